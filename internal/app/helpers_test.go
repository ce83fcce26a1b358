package app

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marcypotter16/Variance/internal/domain"
)

// --- Clock ---

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward, running due callbacks in deadline order on the
// calling goroutine
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

// pending returns the number of armed timers
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// --- ClientConnection ---

type recordingClient struct {
	mu       sync.Mutex
	playerID string
	events   []*domain.GameEvent
	closed   bool
}

func (c *recordingClient) Send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if event, ok := message.(*domain.GameEvent); ok {
		c.events = append(c.events, event)
	}
	return nil
}

func (c *recordingClient) GetPlayerID() string {
	return c.playerID
}

func (c *recordingClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingClient) types() []domain.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]domain.EventType, 0, len(c.events))
	for _, e := range c.events {
		types = append(types, e.Type)
	}
	return types
}

func (c *recordingClient) count(eventType domain.EventType) int {
	n := 0
	for _, t := range c.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

func (c *recordingClient) last(eventType domain.EventType) *domain.GameEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == eventType {
			return c.events[i]
		}
	}
	return nil
}

// waitForEvents blocks until the client has received n events
func (c *recordingClient) waitForEvents(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(c.types()) >= n
	}, time.Second, 5*time.Millisecond, "expected %d events, got %v", n, c.types())
}

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Send(message interface{}) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *MockClient) GetPlayerID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Fixtures ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(t *testing.T, clock *fakeClock) *GameHub {
	t.Helper()
	hub := NewGameHub(HubOptions{
		Clock:           clock,
		Logger:          discardLogger(),
		CleanupInterval: -1,
	})
	t.Cleanup(hub.Close)
	return hub
}

type seat struct {
	player *domain.Player
	client *recordingClient
}

// newTestRoom creates a room hosted by the first nickname and joins the rest
func newTestRoom(t *testing.T, hub *GameHub, nicknames ...string) (*GameSession, []seat) {
	t.Helper()
	require.NotEmpty(t, nicknames)

	host := &recordingClient{}
	session, player, _, err := hub.CreateRoom(nicknames[0], 0, host)
	require.NoError(t, err)
	host.playerID = player.ID
	seats := []seat{{player, host}}

	for _, n := range nicknames[1:] {
		client := &recordingClient{}
		_, p, _, err := hub.JoinRoom(session.ID(), n, client)
		require.NoError(t, err)
		client.playerID = p.ID
		seats = append(seats, seat{p, client})
	}
	return session, seats
}

// startPlaying starts the game and has every seat propose a topic named after them
func startPlaying(t *testing.T, session *GameSession, seats []seat, maxRounds int, minimumVariance bool) {
	t.Helper()
	require.NoError(t, session.StartGame(seats[0].player.ID, maxRounds, minimumVariance))
	for _, s := range seats {
		_, err := session.ProposeTopic(s.player.ID, "topic-"+s.player.Nickname)
		require.NoError(t, err)
	}
	require.Equal(t, domain.PhasePlaying, session.GetPhase())
}
