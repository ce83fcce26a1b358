package domain

import (
	"time"
)

// Round count bounds
const (
	MinRounds     = 1
	MaxRounds     = 10
	DefaultRounds = 1
)

// GameSettings holds server-wide timing parameters
type GameSettings struct {
	VotingDuration time.Duration `json:"votingDuration"`
	ResultsDisplay time.Duration `json:"resultsDisplay"`
}

// DefaultGameSettings returns the default game settings
func DefaultGameSettings() GameSettings {
	return GameSettings{
		VotingDuration: 30 * time.Second,
		ResultsDisplay: 5 * time.Second,
	}
}

// GameConfig is the configuration locked in when a game starts
type GameConfig struct {
	MaxRounds int         `json:"maxRounds"`
	Mode      ScoringMode `json:"mode"`
}

// Game is the authoritative state machine for one room's play-through. It is
// not safe for concurrent use; GameSession serializes access.
type Game struct {
	room     *Room
	settings GameSettings
	config   GameConfig
	phase    Phase

	topics    []*Topic
	topicTurn string // Topic-proposal rotation
	wordTurn  string // Word-proposal rotation, independent of topicTurn
	// wordTurnAdvanced is set when the word proposer left after proposing,
	// so the next round must not advance the rotation a second time
	wordTurnAdvanced bool

	currentRound    *VotingRound
	completedRounds []*VotingRound
	round           int
}

// NewGame creates a game in the lobby phase for room
func NewGame(room *Room, settings GameSettings) *Game {
	return &Game{
		room:            room,
		settings:        settings,
		phase:           PhaseLobby,
		topics:          make([]*Topic, 0),
		completedRounds: make([]*VotingRound, 0),
	}
}

// Room returns the room this game runs in
func (g *Game) Room() *Room {
	return g.room
}

// Phase returns the current phase
func (g *Game) Phase() Phase {
	return g.phase
}

// Config returns the locked game configuration
func (g *Game) Config() GameConfig {
	return g.config
}

// Settings returns the timing settings
func (g *Game) Settings() GameSettings {
	return g.settings
}

// Round returns the round counter
func (g *Game) Round() int {
	return g.round
}

// CurrentRound returns the open or just-completed voting round, if any
func (g *Game) CurrentRound() *VotingRound {
	return g.currentRound
}

// CurrentTurn returns the ID of the player whose turn it is in the current
// phase, or "" when no turn applies
func (g *Game) CurrentTurn() string {
	switch g.phase {
	case PhaseCollectingTopics:
		return g.topicTurn
	case PhasePlaying, PhaseVoting, PhaseVotingResults:
		return g.wordTurn
	default:
		return ""
	}
}

// InProgress reports whether a game is underway
func (g *Game) InProgress() bool {
	return g.phase.Lifecycle() == RoomStateInProgress
}

func (g *Game) transition(target Phase) error {
	if !g.phase.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	g.phase = target
	return nil
}

// Start locks the configuration and opens the topic-proposal phase
func (g *Game) Start(playerID string, maxRounds int, minimumVariance bool) error {
	if _, err := g.room.GetPlayer(playerID); err != nil {
		return err
	}

	if g.phase != PhaseLobby {
		return ErrAlreadyStarted
	}

	if !g.room.IsHost(playerID) {
		return ErrNotHost
	}

	if maxRounds == 0 {
		maxRounds = DefaultRounds
	}
	if maxRounds < MinRounds || maxRounds > MaxRounds {
		return ErrInvalidSettings
	}

	if g.room.ConnectedCount() < MinRoomPlayers {
		return ErrInsufficientPlayers
	}

	if err := g.transition(PhaseCollectingTopics); err != nil {
		return err
	}

	g.config = GameConfig{
		MaxRounds: maxRounds,
		Mode:      ModeFromMinimumVariance(minimumVariance),
	}
	g.topicTurn = FirstConnected(g.room.Players())

	return nil
}

// EligibleVoters returns the number of connected players who may vote on the
// current word
func (g *Game) EligibleVoters() int {
	if g.currentRound == nil {
		return 0
	}
	count := 0
	for _, p := range g.room.Players() {
		if p.IsConnected() && p.ID != g.currentRound.Word.ProposedBy {
			count++
		}
	}
	return count
}

func (g *Game) quorumReached() bool {
	return g.currentRound != nil && g.currentRound.VoteCount() >= g.EligibleVoters()
}

// CastVote records playerID's score for the current word. quorum is true when
// every eligible voter has voted; the caller is expected to complete the round.
func (g *Game) CastVote(playerID string, score int, now time.Time) (vote *Vote, quorum bool, err error) {
	player, err := g.room.GetPlayer(playerID)
	if err != nil {
		return nil, false, err
	}

	if g.phase != PhaseVoting || g.currentRound == nil {
		return nil, false, ErrNotInVotingPhase
	}

	vote, err = g.currentRound.AddVote(player, score, now)
	if err != nil {
		return nil, false, err
	}

	return vote, g.quorumReached(), nil
}

// CompleteVoting closes the open round, scores it and credits the proposer.
// It succeeds at most once per round.
func (g *Game) CompleteVoting(reason CompletionReason, now time.Time) (*VotingRound, error) {
	if g.phase != PhaseVoting || g.currentRound == nil {
		return nil, ErrNotInVotingPhase
	}

	round := g.currentRound
	result := ScoreRound(round.Scores(), g.config.Mode)
	if reason == CompletedByProposerLeft {
		result.Delta = 0
	}

	if err := round.Complete(reason, result, now); err != nil {
		return nil, err
	}

	if proposer, err := g.room.GetPlayer(round.Word.ProposedBy); err == nil {
		proposer.AddScore(result.Delta)
	}

	g.completedRounds = append(g.completedRounds, round)

	if err := g.transition(PhaseVotingResults); err != nil {
		return nil, err
	}

	return round, nil
}

// NextRound leaves the results display. It starts the next round with the
// next word proposer, or finishes the game once maxRounds have been played.
func (g *Game) NextRound() (finished bool, err error) {
	if g.phase != PhaseVotingResults {
		return false, ErrInvalidPhase
	}

	if g.round >= g.config.MaxRounds {
		return true, g.finish()
	}

	if err := g.transition(PhasePlaying); err != nil {
		return false, err
	}

	g.round++
	g.currentRound = nil
	if g.wordTurnAdvanced {
		g.wordTurnAdvanced = false
	} else {
		g.wordTurn = Advance(g.room.Players(), g.wordTurn)
	}

	return false, nil
}

func (g *Game) finish() error {
	if err := g.transition(PhaseFinished); err != nil {
		return err
	}
	g.topicTurn = ""
	g.wordTurn = ""
	g.wordTurnAdvanced = false
	return nil
}

// PlayAgain returns a finished game to the lobby with the same roster
func (g *Game) PlayAgain(playerID string) error {
	if _, err := g.room.GetPlayer(playerID); err != nil {
		return err
	}

	if !g.room.IsHost(playerID) {
		return ErrNotHost
	}

	if g.phase != PhaseFinished {
		return ErrInvalidPhase
	}

	if err := g.transition(PhaseLobby); err != nil {
		return err
	}

	for _, p := range g.room.Players() {
		p.ResetForNewGame()
	}
	g.config = GameConfig{}
	g.topics = make([]*Topic, 0)
	g.topicTurn = ""
	g.wordTurn = ""
	g.wordTurnAdvanced = false
	g.currentRound = nil
	g.completedRounds = make([]*VotingRound, 0)
	g.round = 0

	return nil
}

// LeaveOutcome describes what a player's departure did to the game
type LeaveOutcome struct {
	Player            *Player
	AllTopicsProposed bool         // The leaver was the last one holding up the topic phase
	ClosedRound       *VotingRound // The open round closed because of the departure
	Finished          bool         // Too few players remained to continue
}

// RemovePlayer takes a player out of the room and repairs the game around
// the gap: turn pointers move on, an uncounted vote is dropped, and a round
// or the whole game closes when it can no longer continue.
func (g *Game) RemovePlayer(playerID string, now time.Time) (*LeaveOutcome, error) {
	player, err := g.room.GetPlayer(playerID)
	if err != nil {
		return nil, err
	}

	player.Disconnect()
	outcome := &LeaveOutcome{Player: player}
	players := g.room.Players()

	if g.topicTurn == playerID {
		g.topicTurn = Advance(players, playerID)
	}
	if g.wordTurn == playerID {
		g.wordTurn = Advance(players, playerID)
		if g.phase == PhaseVoting || g.phase == PhaseVotingResults {
			g.wordTurnAdvanced = true
		}
	}

	if g.phase == PhaseVoting && g.currentRound != nil {
		if g.currentRound.Word.ProposedBy == playerID {
			round, err := g.CompleteVoting(CompletedByProposerLeft, now)
			if err != nil {
				return nil, err
			}
			outcome.ClosedRound = round
		} else {
			g.currentRound.RemoveVote(playerID)
		}
	}

	if _, err := g.room.RemovePlayer(playerID); err != nil {
		return nil, err
	}

	if !g.InProgress() {
		return outcome, nil
	}

	if g.room.ConnectedCount() < MinRoomPlayers {
		if g.phase == PhaseVoting {
			round, err := g.CompleteVoting(CompletedByPlayersLeft, now)
			if err != nil {
				return nil, err
			}
			outcome.ClosedRound = round
		}
		if err := g.finish(); err != nil {
			return nil, err
		}
		outcome.Finished = true
		return outcome, nil
	}

	switch g.phase {
	case PhaseCollectingTopics:
		if g.allTopicsProposed() {
			if err := g.beginPlay(); err != nil {
				return nil, err
			}
			outcome.AllTopicsProposed = true
		}
	case PhaseVoting:
		if g.quorumReached() {
			round, err := g.CompleteVoting(CompletedByQuorum, now)
			if err != nil {
				return nil, err
			}
			outcome.ClosedRound = round
		}
	}

	return outcome, nil
}
