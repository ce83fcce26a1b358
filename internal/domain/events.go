package domain

import "time"

// EventType represents the type of game event
type EventType string

const (
	EventPlayerJoined      EventType = "player-joined"
	EventPlayerLeft        EventType = "player-left"
	EventGameStarted       EventType = "game-started"
	EventTopicProposed     EventType = "topic-proposed"
	EventAllTopicsProposed EventType = "all-topics-proposed"
	EventWordProposed      EventType = "word-proposed"
	EventVoteCast          EventType = "vote-cast"
	EventVotingCompleted   EventType = "voting-completed"
	EventNextPlayerTurn    EventType = "next-player-turn"
	EventGameEnded         EventType = "game-ended"
)

// EventPayload is implemented by every event variant
type EventPayload interface {
	EventType() EventType
}

// GameEvent represents an event that occurred in a room
type GameEvent struct {
	Type      EventType    `json:"type"`
	RoomID    string       `json:"roomId"`
	Payload   EventPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`

	// exclude names a player who must not receive the event
	exclude string
}

// NewEvent wraps a payload for broadcast to the whole room
func NewEvent(roomID string, payload EventPayload, at time.Time) *GameEvent {
	return &GameEvent{
		Type:      payload.EventType(),
		RoomID:    roomID,
		Payload:   payload,
		Timestamp: at,
	}
}

// Excluding returns the event marked so that playerID does not receive it
func (e *GameEvent) Excluding(playerID string) *GameEvent {
	e.exclude = playerID
	return e
}

// DeliverTo reports whether the event should be sent to playerID
func (e *GameEvent) DeliverTo(playerID string) bool {
	return e.exclude == "" || playerID != e.exclude
}

// Payload types for different events

// PlayerJoinedPayload is sent to existing members when a player joins
type PlayerJoinedPayload struct {
	Player    *Player    `json:"player"`
	Room      RoomInfo   `json:"room"`
	GameState *GameState `json:"gameState"`
}

func (PlayerJoinedPayload) EventType() EventType { return EventPlayerJoined }

// PlayerLeftPayload is sent when a player leaves or disconnects
type PlayerLeftPayload struct {
	Player    *Player    `json:"player"`
	Room      RoomInfo   `json:"room"`
	GameState *GameState `json:"gameState"`
}

func (PlayerLeftPayload) EventType() EventType { return EventPlayerLeft }

// GameStartedPayload is sent when the host starts the game
type GameStartedPayload struct {
	GameState *GameState `json:"gameState"`
}

func (GameStartedPayload) EventType() EventType { return EventGameStarted }

// TopicProposedPayload is sent after each accepted topic
type TopicProposedPayload struct {
	Topic     *Topic     `json:"topic"`
	Player    *Player    `json:"player"`
	GameState *GameState `json:"gameState"`
}

func (TopicProposedPayload) EventType() EventType { return EventTopicProposed }

// AllTopicsProposedPayload is sent once every connected player has a topic
type AllTopicsProposedPayload struct {
	Topics    []*Topic   `json:"topics"`
	GameState *GameState `json:"gameState"`
}

func (AllTopicsProposedPayload) EventType() EventType { return EventAllTopicsProposed }

// WordProposedPayload is sent when a voting round opens
type WordProposedPayload struct {
	Word      *ProposedWord `json:"word"`
	GameState *GameState    `json:"gameState"`
}

func (WordProposedPayload) EventType() EventType { return EventWordProposed }

// VoteCastPayload is sent after each accepted vote
type VoteCastPayload struct {
	Vote      *Vote      `json:"vote"`
	GameState *GameState `json:"gameState"`
}

func (VoteCastPayload) EventType() EventType { return EventVoteCast }

// VotingCompletedPayload is sent when a round closes
type VotingCompletedPayload struct {
	Round     *VotingRound `json:"round"`
	GameState *GameState   `json:"gameState"`
}

func (VotingCompletedPayload) EventType() EventType { return EventVotingCompleted }

// NextPlayerTurnPayload is sent on every phase transition
type NextPlayerTurnPayload struct {
	GameState *GameState `json:"gameState"`
}

func (NextPlayerTurnPayload) EventType() EventType { return EventNextPlayerTurn }

// GameEndedPayload is the terminal event of a game
type GameEndedPayload struct {
	Leaderboard []*Player  `json:"leaderboard"`
	GameState   *GameState `json:"gameState"`
}

func (GameEndedPayload) EventType() EventType { return EventGameEnded }
