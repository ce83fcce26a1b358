package ws

import (
	"encoding/json"
	"time"

	"github.com/marcypotter16/Variance/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgCreateRoom     MessageType = "create-room"
	MsgJoinRoom       MessageType = "join-room"
	MsgLeaveRoom      MessageType = "leave-room"
	MsgGetRoomPlayers MessageType = "get-room-players"
	MsgGetRoomList    MessageType = "get-room-list"
	MsgStartGame      MessageType = "start-game"
	MsgProposeTopic   MessageType = "propose-topic"
	MsgProposeWord    MessageType = "propose-word"
	MsgVoteOnWord     MessageType = "vote-on-word"
	MsgPlayAgain      MessageType = "play-again"
	MsgGetGameState   MessageType = "get-game-state"
	MsgPing           MessageType = "ping"
)

// Server → Client message types. Game events are sent as domain.GameEvent
// frames carrying their own type.
const (
	MsgAck   MessageType = "ack"
	MsgError MessageType = "error"
	MsgPong  MessageType = "pong"
)

// ClientMessage represents a message from client to server. A non-zero AckID
// asks for an ack frame carrying the same ID.
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	AckID   int64           `json:"ackId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents an unsolicited message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType MessageType, payload interface{}) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// AckMessage answers one client command
type AckMessage struct {
	Type    MessageType `json:"type"`
	AckID   int64       `json:"ackId"`
	Payload interface{} `json:"payload"`
}

// Client message payloads

// CreateRoomPayload is the payload for create-room
type CreateRoomPayload struct {
	Nickname   string `json:"nickname"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
}

// JoinRoomPayload is the payload for join-room
type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Nickname string `json:"nickname"`
}

// RoomPlayersPayload is the payload for get-room-players
type RoomPlayersPayload struct {
	RoomID string `json:"roomId"`
}

// StartGamePayload is the payload for start-game
type StartGamePayload struct {
	MaxRounds       int  `json:"maxRounds"`
	MinimumVariance bool `json:"minimumVariance"`
}

// ProposeTopicPayload is the payload for propose-topic
type ProposeTopicPayload struct {
	Topic string `json:"topic"`
}

// ProposeWordPayload is the payload for propose-word
type ProposeWordPayload struct {
	Word         string `json:"word"`
	RelatedTopic string `json:"relatedTopic"`
}

// VotePayload is the payload for vote-on-word. Score is decoded as a number
// so that non-integers can be rejected as invalid scores.
type VotePayload struct {
	Score float64 `json:"score"`
}

// Ack payloads

// AckStatus is embedded in every ack payload
type AckStatus struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// RoomAck answers create-room and join-room
type RoomAck struct {
	AckStatus
	Room      domain.RoomInfo   `json:"room"`
	Player    *domain.Player    `json:"player"`
	GameState *domain.GameState `json:"gameState"`
}

// PlayersAck answers get-room-players
type PlayersAck struct {
	AckStatus
	Players []*domain.Player `json:"players"`
}

// RoomListAck answers get-room-list
type RoomListAck struct {
	AckStatus
	Rooms []domain.RoomInfo `json:"rooms"`
}

// GameAck answers start-game
type GameAck struct {
	AckStatus
	Game *domain.GameState `json:"game"`
}

// GameStateAck answers get-game-state
type GameStateAck struct {
	AckStatus
	GameState *domain.GameState `json:"gameState"`
}

// ErrorPayload is the payload for error message
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ok() AckStatus {
	return AckStatus{Success: true}
}
