package domain

import (
	"strings"
	"time"
)

// Room size bounds
const (
	MinRoomPlayers     = 2
	MaxRoomPlayers     = 20
	DefaultRoomPlayers = 8
)

// RoomSettings holds the per-room configuration chosen at creation
type RoomSettings struct {
	MaxPlayers int `json:"maxPlayers"`
}

// Validate checks the settings are within bounds
func (s RoomSettings) Validate() error {
	if s.MaxPlayers < MinRoomPlayers || s.MaxPlayers > MaxRoomPlayers {
		return ErrInvalidSettings
	}
	return nil
}

// Room is the player registry of one game instance. Players are kept in join
// order, which is the fallback turn order and the leaderboard tie-break.
type Room struct {
	ID        string       `json:"id"`
	HostID    string       `json:"hostId"`
	Settings  RoomSettings `json:"settings"`
	CreatedAt time.Time    `json:"createdAt"`

	players []*Player
}

// NewRoom creates an empty room
func NewRoom(id string, settings RoomSettings, createdAt time.Time) *Room {
	return &Room{
		ID:        id,
		Settings:  settings,
		CreatedAt: createdAt,
		players:   make([]*Player, 0, settings.MaxPlayers),
	}
}

// AddPlayer registers a new player. The first player becomes the host.
func (r *Room) AddPlayer(nickname string, now time.Time) (*Player, error) {
	nickname, err := NormalizeNickname(nickname)
	if err != nil {
		return nil, err
	}

	if len(r.players) >= r.Settings.MaxPlayers {
		return nil, ErrRoomFull
	}

	for _, p := range r.players {
		if strings.EqualFold(p.Nickname, nickname) {
			return nil, ErrDuplicateNickname
		}
	}

	player := NewPlayer(nickname, now)
	r.players = append(r.players, player)

	if r.HostID == "" {
		r.HostID = player.ID
		player.IsHost = true
	}

	return player, nil
}

// RemovePlayer removes a player. If the host leaves, the earliest-joined
// remaining player is promoted.
func (r *Room) RemovePlayer(playerID string) (*Player, error) {
	idx := r.indexOf(playerID)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}

	removed := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)

	if r.HostID == playerID {
		r.HostID = ""
		removed.IsHost = false
		if len(r.players) > 0 {
			r.players[0].IsHost = true
			r.HostID = r.players[0].ID
		}
	}

	return removed, nil
}

// GetPlayer returns a player by ID
func (r *Room) GetPlayer(playerID string) (*Player, error) {
	idx := r.indexOf(playerID)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}
	return r.players[idx], nil
}

// Players returns the players in join order. The slice is shared; callers
// holding it must not retain it past the session lock.
func (r *Room) Players() []*Player {
	return r.players
}

// Size returns the number of registered players
func (r *Room) Size() int {
	return len(r.players)
}

// ConnectedCount returns the number of connected players
func (r *Room) ConnectedCount() int {
	count := 0
	for _, p := range r.players {
		if p.IsConnected() {
			count++
		}
	}
	return count
}

// IsHost checks if the given player is the host
func (r *Room) IsHost(playerID string) bool {
	return r.HostID != "" && r.HostID == playerID
}

// IsEmpty reports whether no players remain
func (r *Room) IsEmpty() bool {
	return len(r.players) == 0
}

// PlayerList returns copies of all players in join order
func (r *Room) PlayerList() []*Player {
	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p.Clone())
	}
	return players
}

func (r *Room) indexOf(playerID string) int {
	for i, p := range r.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// RoomInfo is the public description of a room used by listings
type RoomInfo struct {
	ID           string    `json:"id"`
	HostNickname string    `json:"hostNickname"`
	PlayerCount  int       `json:"playerCount"`
	MaxPlayers   int       `json:"maxPlayers"`
	State        RoomState `json:"state"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Info describes the room given its current lifecycle state
func (r *Room) Info(state RoomState) RoomInfo {
	info := RoomInfo{
		ID:          r.ID,
		PlayerCount: len(r.players),
		MaxPlayers:  r.Settings.MaxPlayers,
		State:       state,
		CreatedAt:   r.CreatedAt,
	}
	if host, err := r.GetPlayer(r.HostID); err == nil {
		info.HostNickname = host.Nickname
	}
	return info
}
