package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxNicknameLength is the longest nickname accepted, in characters
const MaxNicknameLength = 20

// ConnectionStatus represents a player's connection state
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "CONNECTED"
	StatusDisconnected ConnectionStatus = "DISCONNECTED"
)

// Player represents a player in a room
type Player struct {
	ID          string           `json:"id"`
	Nickname    string           `json:"nickname"`
	IsHost      bool             `json:"isHost"`
	Score       float64          `json:"score"`
	HasProposed bool             `json:"hasProposed"`
	Status      ConnectionStatus `json:"status"`
	JoinedAt    time.Time        `json:"joinedAt"`
}

// NewPlayer creates a new connected player with a fresh ID
func NewPlayer(nickname string, joinedAt time.Time) *Player {
	return &Player{
		ID:       uuid.NewString(),
		Nickname: nickname,
		Status:   StatusConnected,
		JoinedAt: joinedAt,
	}
}

// NormalizeNickname trims and validates a nickname
func NormalizeNickname(nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return "", ErrInvalidNickname
	}
	return nickname, nil
}

// ResetForNewGame clears per-game state while keeping identity and host flag
func (p *Player) ResetForNewGame() {
	p.Score = 0
	p.HasProposed = false
}

// IsConnected returns true if the player is currently connected
func (p *Player) IsConnected() bool {
	return p.Status == StatusConnected
}

// Disconnect marks the player as disconnected
func (p *Player) Disconnect() {
	p.Status = StatusDisconnected
}

// AddScore applies a score delta
func (p *Player) AddScore(delta float64) {
	p.Score += delta
}

// Clone returns a copy safe to hand outside the session lock
func (p *Player) Clone() *Player {
	c := *p
	return &c
}
