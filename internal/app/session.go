package app

import (
	"log/slog"
	"sync"
	"time"

	"github.com/marcypotter16/Variance/internal/domain"
)

// eventQueueSize bounds how far command handlers can run ahead of the broadcaster
const eventQueueSize = 256

// ClientConnection represents a connected client
type ClientConnection interface {
	Send(message interface{}) error
	GetPlayerID() string
	Close() error
}

// GameSession wraps a game with concurrency control, deadline timers and
// client management. Every command and timer callback runs under mu, so the
// game sees a single serialized stream of inputs.
type GameSession struct {
	game      *domain.Game
	mu        sync.RWMutex
	clients   map[string]ClientConnection // playerID -> client
	clientsMu sync.RWMutex
	clock     Clock
	logger    *slog.Logger

	voteTimer    Timer
	resultsTimer Timer
	lastActive   time.Time

	// Event channel for broadcasting, drained in order by eventLoop
	events    chan *outboundEvent
	done      chan struct{}
	closeOnce sync.Once
}

// NewGameSession creates a session for an empty room
func NewGameSession(room *domain.Room, settings domain.GameSettings, clock Clock, logger *slog.Logger) *GameSession {
	session := &GameSession{
		game:       domain.NewGame(room, settings),
		clients:    make(map[string]ClientConnection),
		clock:      clock,
		logger:     logger.With("roomId", room.ID),
		lastActive: clock.Now(),
		events:     make(chan *outboundEvent, eventQueueSize),
		done:       make(chan struct{}),
	}

	go session.eventLoop()

	return session
}

// ID returns the room code
func (s *GameSession) ID() string {
	return s.game.Room().ID
}

// CreatedAt returns when the room was created
func (s *GameSession) CreatedAt() time.Time {
	return s.game.Room().CreatedAt
}

// GetGameState returns a snapshot of the current game state
func (s *GameSession) GetGameState() *domain.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Snapshot()
}

// Players returns copies of the room's players in join order
func (s *GameSession) Players() []*domain.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Room().PlayerList()
}

// Info returns the public description of the room
func (s *GameSession) Info() domain.RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info()
}

func (s *GameSession) info() domain.RoomInfo {
	return s.game.Room().Info(s.game.Phase().Lifecycle())
}

// GetPhase returns the current game phase
func (s *GameSession) GetPhase() domain.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Phase()
}

// GetPlayerCount returns the number of players
func (s *GameSession) GetPlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Room().Size()
}

// IsEmpty reports whether every player has left
func (s *GameSession) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Room().IsEmpty()
}

// LastActive returns the time of the last accepted command or timer transition
func (s *GameSession) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// RegisterClient registers a client connection for a player
func (s *GameSession) RegisterClient(playerID string, client ClientConnection) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[playerID] = client
}

// UnregisterClient removes a client connection
func (s *GameSession) UnregisterClient(playerID string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, playerID)
}

// Join adds a player to the lobby. The client, if any, is registered before
// the join is announced to the rest of the room.
func (s *GameSession) Join(nickname string, client ClientConnection) (*domain.Player, *domain.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed() {
		return nil, nil, domain.ErrRoomNotFound
	}

	if s.game.Phase() != domain.PhaseLobby {
		return nil, nil, domain.ErrAlreadyStarted
	}

	player, err := s.game.Room().AddPlayer(nickname, s.clock.Now())
	if err != nil {
		return nil, nil, err
	}
	s.touch()

	if client != nil {
		s.RegisterClient(player.ID, client)
	}

	state := s.game.Snapshot()
	s.enqueue(s.newEvent(&domain.PlayerJoinedPayload{
		Player:    player.Clone(),
		Room:      s.info(),
		GameState: state,
	}).Excluding(player.ID))

	s.logger.Info("player joined", "playerId", player.ID, "nickname", player.Nickname)

	return player.Clone(), state, nil
}

// Leave removes a player and repairs the game around the departure
func (s *GameSession) Leave(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevPhase, prevTurn := s.game.Phase(), s.game.CurrentTurn()

	outcome, err := s.game.RemovePlayer(playerID, s.clock.Now())
	if err != nil {
		return err
	}
	s.touch()
	s.UnregisterClient(playerID)

	state := s.game.Snapshot()
	s.queueEvent(&domain.PlayerLeftPayload{
		Player:    outcome.Player.Clone(),
		Room:      s.info(),
		GameState: state,
	})

	if outcome.AllTopicsProposed {
		s.queueEvent(&domain.AllTopicsProposedPayload{Topics: state.Topics, GameState: state})
	}

	if outcome.ClosedRound != nil {
		s.stopVoteTimer()
		s.queueEvent(&domain.VotingCompletedPayload{Round: outcome.ClosedRound.Clone(), GameState: state})
		if !outcome.Finished {
			s.armResultsTimer(outcome.ClosedRound.ID)
		}
	}

	if outcome.Finished {
		s.stopTimers()
	}

	s.announceTurn(prevPhase, prevTurn)

	s.logger.Info("player left", "playerId", playerID, "phase", s.game.Phase())

	return nil
}

// StartGame locks the configuration and opens the topic phase (host only)
func (s *GameSession) StartGame(playerID string, maxRounds int, minimumVariance bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevPhase, prevTurn := s.game.Phase(), s.game.CurrentTurn()

	if err := s.game.Start(playerID, maxRounds, minimumVariance); err != nil {
		return err
	}
	s.touch()

	s.queueEvent(&domain.GameStartedPayload{GameState: s.game.Snapshot()})
	s.announceTurn(prevPhase, prevTurn)

	cfg := s.game.Config()
	s.logger.Info("game started", "maxRounds", cfg.MaxRounds, "mode", cfg.Mode)

	return nil
}

// ProposeTopic records the turn holder's topic
func (s *GameSession) ProposeTopic(playerID, text string) (*domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevPhase, prevTurn := s.game.Phase(), s.game.CurrentTurn()

	topic, allProposed, err := s.game.ProposeTopic(playerID, text)
	if err != nil {
		return nil, err
	}
	s.touch()

	state := s.game.Snapshot()
	var proposer *domain.Player
	if p, err := s.game.Room().GetPlayer(playerID); err == nil {
		proposer = p.Clone()
	}
	s.queueEvent(&domain.TopicProposedPayload{Topic: topic, Player: proposer, GameState: state})

	if allProposed {
		s.queueEvent(&domain.AllTopicsProposedPayload{Topics: state.Topics, GameState: state})
	}

	s.announceTurn(prevPhase, prevTurn)

	return topic, nil
}

// ProposeWord opens a voting round and arms its deadline
func (s *GameSession) ProposeWord(playerID, word, relatedTopic string) (*domain.ProposedWord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevPhase, prevTurn := s.game.Phase(), s.game.CurrentTurn()

	proposed, err := s.game.ProposeWord(playerID, word, relatedTopic, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.touch()

	round := s.game.CurrentRound()
	s.armVoteTimer(round.ID)

	s.queueEvent(&domain.WordProposedPayload{Word: proposed, GameState: s.game.Snapshot()})
	s.announceTurn(prevPhase, prevTurn)

	s.logger.Debug("voting opened", "roundId", round.ID, "deadline", round.VoteDeadline)

	return proposed, nil
}

// CastVote records a vote, completing the round as soon as every eligible
// voter has voted
func (s *GameSession) CastVote(playerID string, score int) (*domain.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vote, quorum, err := s.game.CastVote(playerID, score, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.touch()

	cast := *vote
	s.queueEvent(&domain.VoteCastPayload{Vote: &cast, GameState: s.game.Snapshot()})

	if quorum {
		s.completeVoting(domain.CompletedByQuorum)
	}

	return &cast, nil
}

// PlayAgain returns a finished game to the lobby (host only)
func (s *GameSession) PlayAgain(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevPhase, prevTurn := s.game.Phase(), s.game.CurrentTurn()

	if err := s.game.PlayAgain(playerID); err != nil {
		return err
	}
	s.touch()
	s.stopTimers()

	s.announceTurn(prevPhase, prevTurn)

	return nil
}

// completeVoting closes the open round. Caller must hold mu.
func (s *GameSession) completeVoting(reason domain.CompletionReason) {
	prevPhase, prevTurn := s.game.Phase(), s.game.CurrentTurn()

	round, err := s.game.CompleteVoting(reason, s.clock.Now())
	if err != nil {
		s.logger.Error("failed to complete voting", "reason", reason, "error", err)
		return
	}
	s.touch()
	s.stopVoteTimer()

	s.queueEvent(&domain.VotingCompletedPayload{Round: round.Clone(), GameState: s.game.Snapshot()})
	s.armResultsTimer(round.ID)
	s.announceTurn(prevPhase, prevTurn)

	s.logger.Info("voting completed",
		"roundId", round.ID,
		"reason", reason,
		"votes", round.Result.VoteCount,
		"delta", round.Result.Delta,
	)
}

// onVoteDeadline fires when a round's window elapses. It is a no-op if that
// round already closed by quorum or departure.
func (s *GameSession) onVoteDeadline(roundID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed() {
		return
	}

	round := s.game.CurrentRound()
	if s.game.Phase() != domain.PhaseVoting || round == nil || round.ID != roundID {
		return
	}

	s.voteTimer = nil
	s.completeVoting(domain.CompletedByTimeout)
}

// onResultsElapsed ends the results display of roundID and moves the game on
func (s *GameSession) onResultsElapsed(roundID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed() {
		return
	}

	round := s.game.CurrentRound()
	if s.game.Phase() != domain.PhaseVotingResults || round == nil || round.ID != roundID {
		return
	}

	s.resultsTimer = nil
	prevPhase, prevTurn := s.game.Phase(), s.game.CurrentTurn()

	finished, err := s.game.NextRound()
	if err != nil {
		s.logger.Error("failed to advance round", "error", err)
		return
	}
	s.touch()

	s.announceTurn(prevPhase, prevTurn)

	if finished {
		s.logger.Info("game finished", "rounds", s.game.Round())
	}
}

func (s *GameSession) armVoteTimer(roundID string) {
	s.stopVoteTimer()
	s.voteTimer = s.clock.AfterFunc(s.game.Settings().VotingDuration, func() {
		s.onVoteDeadline(roundID)
	})
}

func (s *GameSession) armResultsTimer(roundID string) {
	if s.resultsTimer != nil {
		s.resultsTimer.Stop()
	}
	s.resultsTimer = s.clock.AfterFunc(s.game.Settings().ResultsDisplay, func() {
		s.onResultsElapsed(roundID)
	})
}

func (s *GameSession) stopVoteTimer() {
	if s.voteTimer != nil {
		s.voteTimer.Stop()
		s.voteTimer = nil
	}
}

func (s *GameSession) stopTimers() {
	s.stopVoteTimer()
	if s.resultsTimer != nil {
		s.resultsTimer.Stop()
		s.resultsTimer = nil
	}
}

// announceTurn emits next-player-turn when the phase or turn holder changed,
// followed by game-ended when the game has just finished. Caller must hold mu.
func (s *GameSession) announceTurn(prevPhase domain.Phase, prevTurn string) {
	phase := s.game.Phase()
	if phase == prevPhase && s.game.CurrentTurn() == prevTurn {
		return
	}

	state := s.game.Snapshot()
	s.queueEvent(&domain.NextPlayerTurnPayload{GameState: state})

	if phase == domain.PhaseFinished && prevPhase != domain.PhaseFinished {
		s.queueEvent(&domain.GameEndedPayload{Leaderboard: s.game.Leaderboard(), GameState: state})
	}
}

func (s *GameSession) touch() {
	s.lastActive = s.clock.Now()
}

func (s *GameSession) newEvent(payload domain.EventPayload) *domain.GameEvent {
	return domain.NewEvent(s.ID(), payload, s.clock.Now())
}

// queueEvent adds an event for the whole room to the broadcast queue
func (s *GameSession) queueEvent(payload domain.EventPayload) {
	s.enqueue(s.newEvent(payload))
}

// outboundEvent is an event together with the clients it was addressed to
type outboundEvent struct {
	event   *domain.GameEvent
	targets map[string]ClientConnection
}

// enqueue blocks until the broadcaster has room so events are never dropped.
// Recipients are fixed here, under mu, so a client registered later never
// receives an event produced before it joined. Caller must hold mu.
func (s *GameSession) enqueue(event *domain.GameEvent) {
	out := &outboundEvent{event: event, targets: s.recipients(event)}
	select {
	case s.events <- out:
	case <-s.done:
	}
}

// recipients returns the registered clients that should receive event
func (s *GameSession) recipients(event *domain.GameEvent) map[string]ClientConnection {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	targets := make(map[string]ClientConnection, len(s.clients))
	for playerID, client := range s.clients {
		if event.DeliverTo(playerID) {
			targets[playerID] = client
		}
	}
	return targets
}

// eventLoop processes events and broadcasts to clients
func (s *GameSession) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case out := <-s.events:
			s.broadcastEvent(out)
		}
	}
}

// broadcastEvent sends an event to the clients it was addressed to
func (s *GameSession) broadcastEvent(out *outboundEvent) {
	for playerID, client := range out.targets {
		if err := client.Send(out.event); err != nil {
			s.logger.Debug("failed to send to client", "playerId", playerID, "error", err)
		}
	}
}

func (s *GameSession) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// CloseIfEmpty closes the session if no players remain. The check and the
// close happen under one lock, so a concurrent Join either lands first or
// sees a closed room.
func (s *GameSession) CloseIfEmpty() bool {
	s.mu.Lock()
	if !s.game.Room().IsEmpty() {
		s.mu.Unlock()
		return false
	}
	s.shutdown()
	s.mu.Unlock()

	s.closeClients()
	return true
}

// Close shuts down the session
func (s *GameSession) Close() {
	s.mu.Lock()
	s.shutdown()
	s.mu.Unlock()

	s.closeClients()
}

func (s *GameSession) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.stopTimers()
	})
}

func (s *GameSession) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for _, client := range s.clients {
		client.Close()
	}
	s.clients = make(map[string]ClientConnection)
}
