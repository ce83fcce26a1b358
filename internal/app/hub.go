package app

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marcypotter16/Variance/internal/domain"
)

const (
	// DefaultRoomCodeLength is the default length for room codes
	DefaultRoomCodeLength = 6

	// DefaultStaleRoomTimeout is how long a room may sit idle before cleanup
	DefaultStaleRoomTimeout = 2 * time.Hour

	// DefaultCleanupInterval is how often the hub looks for stale rooms
	DefaultCleanupInterval = 10 * time.Minute
)

// RoomCodeChars are characters used for room codes (no ambiguous chars)
const RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// HubOptions configures a GameHub. Zero values fall back to defaults.
type HubOptions struct {
	Clock             Clock
	Logger            *slog.Logger
	Game              domain.GameSettings
	DefaultMaxPlayers int
	RoomCodeLength    int
	CleanupInterval   time.Duration // Negative disables the background cleanup loop
	StaleRoomTimeout  time.Duration
}

// GameHub manages all active game sessions
type GameHub struct {
	sessions map[string]*GameSession
	mu       sync.RWMutex

	clock             Clock
	logger            *slog.Logger
	game              domain.GameSettings
	defaultMaxPlayers int
	roomCodeLength    int
	staleTimeout      time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// NewGameHub creates a new game hub
func NewGameHub(opts HubOptions) *GameHub {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Game.VotingDuration <= 0 || opts.Game.ResultsDisplay <= 0 {
		defaults := domain.DefaultGameSettings()
		if opts.Game.VotingDuration <= 0 {
			opts.Game.VotingDuration = defaults.VotingDuration
		}
		if opts.Game.ResultsDisplay <= 0 {
			opts.Game.ResultsDisplay = defaults.ResultsDisplay
		}
	}
	if opts.DefaultMaxPlayers == 0 {
		opts.DefaultMaxPlayers = domain.DefaultRoomPlayers
	}
	if opts.RoomCodeLength <= 0 {
		opts.RoomCodeLength = DefaultRoomCodeLength
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.StaleRoomTimeout <= 0 {
		opts.StaleRoomTimeout = DefaultStaleRoomTimeout
	}

	hub := &GameHub{
		sessions:          make(map[string]*GameSession),
		clock:             opts.Clock,
		logger:            opts.Logger,
		game:              opts.Game,
		defaultMaxPlayers: opts.DefaultMaxPlayers,
		roomCodeLength:    opts.RoomCodeLength,
		staleTimeout:      opts.StaleRoomTimeout,
		done:              make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go hub.cleanupLoop(opts.CleanupInterval)
	}

	return hub
}

// CreateRoom creates a room with the caller as its host. maxPlayers of 0
// selects the server default.
func (h *GameHub) CreateRoom(nickname string, maxPlayers int, client ClientConnection) (*GameSession, *domain.Player, *domain.GameState, error) {
	if _, err := domain.NormalizeNickname(nickname); err != nil {
		return nil, nil, nil, err
	}

	if maxPlayers == 0 {
		maxPlayers = h.defaultMaxPlayers
	}
	settings := domain.RoomSettings{MaxPlayers: maxPlayers}
	if err := settings.Validate(); err != nil {
		return nil, nil, nil, err
	}

	// The host is seated before the room is published, so the reaper never
	// sees the new room empty.
	h.mu.Lock()
	roomCode, err := h.uniqueRoomCode()
	if err != nil {
		h.mu.Unlock()
		return nil, nil, nil, err
	}
	now := h.clock.Now()
	room := domain.NewRoom(roomCode, settings, now)
	player, err := room.AddPlayer(nickname, now)
	if err != nil {
		h.mu.Unlock()
		return nil, nil, nil, err
	}
	session := NewGameSession(room, h.game, h.clock, h.logger)
	if client != nil {
		session.RegisterClient(player.ID, client)
	}
	h.sessions[roomCode] = session
	h.mu.Unlock()

	player = player.Clone()
	state := session.GetGameState()

	h.logger.Info("room created", "roomId", roomCode, "host", player.Nickname, "maxPlayers", maxPlayers)

	return session, player, state, nil
}

// JoinRoom adds a player to an existing room's lobby
func (h *GameHub) JoinRoom(roomCode, nickname string, client ClientConnection) (*GameSession, *domain.Player, *domain.GameState, error) {
	session, err := h.GetSession(roomCode)
	if err != nil {
		return nil, nil, nil, err
	}

	player, state, err := session.Join(nickname, client)
	if err != nil {
		return nil, nil, nil, err
	}

	return session, player, state, nil
}

// LeaveRoom removes a player from a room and destroys the room once empty
func (h *GameHub) LeaveRoom(roomCode, playerID string) error {
	session, err := h.GetSession(roomCode)
	if err != nil {
		return err
	}

	if err := session.Leave(playerID); err != nil {
		return err
	}

	if session.CloseIfEmpty() {
		h.removeSession(session)
		h.logger.Info("room destroyed", "roomId", session.ID(), "reason", "empty")
	}

	return nil
}

// GetSession returns a game session by room code. Codes are matched
// case-insensitively.
func (h *GameHub) GetSession(roomCode string) (*GameSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	session, ok := h.sessions[NormalizeRoomCode(roomCode)]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	return session, nil
}

// ListRooms returns the joinable rooms, oldest first
func (h *GameHub) ListRooms() []domain.RoomInfo {
	h.mu.RLock()
	sessions := make([]*GameSession, 0, len(h.sessions))
	for _, session := range h.sessions {
		sessions = append(sessions, session)
	}
	h.mu.RUnlock()

	rooms := make([]domain.RoomInfo, 0, len(sessions))
	for _, session := range sessions {
		info := session.Info()
		if info.State == domain.RoomStateLobby && info.PlayerCount > 0 {
			rooms = append(rooms, info)
		}
	}

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})

	return rooms
}

// DeleteSession removes a game session
func (h *GameHub) DeleteSession(roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	roomCode = NormalizeRoomCode(roomCode)
	if session, ok := h.sessions[roomCode]; ok {
		session.Close()
		delete(h.sessions, roomCode)
		h.logger.Info("room deleted", "roomId", roomCode)
	}
}

func (h *GameHub) removeSession(session *GameSession) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.sessions[session.ID()]; ok && current == session {
		delete(h.sessions, session.ID())
	}
}

// GetSessionCount returns the number of active sessions
func (h *GameHub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// GetTotalPlayerCount returns the total number of players across all sessions
func (h *GameHub) GetTotalPlayerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, session := range h.sessions {
		total += session.GetPlayerCount()
	}
	return total
}

// Close shuts down the hub and all sessions
func (h *GameHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, session := range h.sessions {
		session.Close()
	}
	h.sessions = make(map[string]*GameSession)
}

// NormalizeRoomCode canonicalizes user-typed room codes
func NormalizeRoomCode(roomCode string) string {
	return strings.ToUpper(strings.TrimSpace(roomCode))
}

// uniqueRoomCode picks an unused room code. Caller must hold mu.
func (h *GameHub) uniqueRoomCode() (string, error) {
	for attempts := 0; attempts < 10; attempts++ {
		roomCode, err := h.generateRoomCode()
		if err != nil {
			return "", err
		}
		if _, exists := h.sessions[roomCode]; !exists {
			return roomCode, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique room code")
}

// generateRoomCode generates a random room code
func (h *GameHub) generateRoomCode() (string, error) {
	b := make([]byte, h.roomCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}

	code := make([]byte, h.roomCodeLength)
	for i := range code {
		code[i] = RoomCodeChars[int(b[i])%len(RoomCodeChars)]
	}

	return string(code), nil
}

// cleanupLoop periodically cleans up stale rooms
func (h *GameHub) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.CleanupStaleRooms()
		}
	}
}

// CleanupStaleRooms removes rooms that are empty or have been idle for
// longer than the stale timeout. It returns how many rooms were removed.
func (h *GameHub) CleanupStaleRooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	stale := make([]string, 0)

	for roomCode, session := range h.sessions {
		if session.IsEmpty() || now.Sub(session.LastActive()) > h.staleTimeout {
			stale = append(stale, roomCode)
		}
	}

	for _, roomCode := range stale {
		if session, ok := h.sessions[roomCode]; ok {
			session.Close()
			delete(h.sessions, roomCode)
			h.logger.Info("stale room cleaned up", "roomId", roomCode)
		}
	}

	return len(stale)
}
