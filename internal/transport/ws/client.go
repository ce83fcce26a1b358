package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/marcypotter16/Variance/internal/app"
	"github.com/marcypotter16/Variance/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256

	// Sustained command rate and burst allowed per connection
	commandRate  = 5
	commandBurst = 10
)

// ErrSendBufferFull is returned when a slow client cannot keep up
var ErrSendBufferFull = errors.New("send buffer full")

// Client represents a WebSocket client connection. A client is bound to at
// most one room at a time; closing the socket leaves that room.
type Client struct {
	conn    *websocket.Conn
	hub     *app.GameHub
	send    chan []byte
	done    chan struct{}
	logger  *slog.Logger
	limiter *rate.Limiter

	mu       sync.Mutex
	closed   bool
	session  *app.GameSession
	playerID string
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, hub *app.GameHub, logger *slog.Logger) *Client {
	return &Client{
		conn:    conn,
		hub:     hub,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(commandRate), commandBurst),
	}
}

// GetPlayerID returns the player ID for this client, empty until it joins a room
func (c *Client) GetPlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// Send implements app.ClientConnection interface. A client whose buffer is
// full is disconnected rather than allowed to stall the room.
func (c *Client) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	select {
	case c.send <- data:
		c.mu.Unlock()
		return nil
	default:
	}
	playerID := c.playerID
	c.mu.Unlock()

	c.logger.Warn("send buffer full, closing connection", "playerId", playerID)
	c.Close()
	return ErrSendBufferFull
}

// Close implements app.ClientConnection interface
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) room() (*app.GameSession, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.playerID
}

func (c *Client) bind(session *app.GameSession, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
	c.playerID = playerID
}

// leave takes the client out of its room, if any
func (c *Client) leave() error {
	session, playerID := c.room()
	if session == nil {
		return ErrNotInRoom
	}

	c.bind(nil, "")

	err := c.hub.LeaveRoom(session.ID(), playerID)
	if err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		return err
	}
	return nil
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		if err := c.leave(); err != nil && !errors.Is(err, ErrNotInRoom) {
			c.logger.Debug("leave on disconnect failed", "error", err)
		}
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming message from the client
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	if !c.limiter.Allow() {
		c.reply(msg.AckID, failure(ErrRateLimited))
		return
	}

	if msg.Type == MsgPing {
		c.Send(NewServerMessage(MsgPong, nil))
		return
	}

	result, err := c.dispatch(msg)
	if err != nil {
		if ErrorCode(err) == ErrCodeInternalError {
			c.logger.Error("command failed", "type", msg.Type, "error", err)
		}
		c.reply(msg.AckID, failure(err))
		return
	}

	c.reply(msg.AckID, result)
}

func (c *Client) dispatch(msg ClientMessage) (interface{}, error) {
	switch msg.Type {
	case MsgCreateRoom:
		return c.handleCreateRoom(msg.Payload)
	case MsgJoinRoom:
		return c.handleJoinRoom(msg.Payload)
	case MsgLeaveRoom:
		return ok(), c.leave()
	case MsgGetRoomPlayers:
		return c.handleGetRoomPlayers(msg.Payload)
	case MsgGetRoomList:
		return &RoomListAck{AckStatus: ok(), Rooms: c.hub.ListRooms()}, nil
	case MsgStartGame:
		return c.handleStartGame(msg.Payload)
	case MsgProposeTopic:
		return c.handleProposeTopic(msg.Payload)
	case MsgProposeWord:
		return c.handleProposeWord(msg.Payload)
	case MsgVoteOnWord:
		return c.handleVoteOnWord(msg.Payload)
	case MsgPlayAgain:
		return c.handlePlayAgain()
	case MsgGetGameState:
		return c.handleGetGameState()
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", ErrInvalidPayload, msg.Type)
	}
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// joined returns the client's room, failing if it has none
func (c *Client) joined() (*app.GameSession, string, error) {
	session, playerID := c.room()
	if session == nil {
		return nil, "", ErrNotInRoom
	}
	return session, playerID, nil
}

func (c *Client) handleCreateRoom(raw json.RawMessage) (interface{}, error) {
	if session, _ := c.room(); session != nil {
		return nil, ErrAlreadyInRoom
	}

	var p CreateRoomPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	session, player, state, err := c.hub.CreateRoom(p.Nickname, p.MaxPlayers, c)
	if err != nil {
		return nil, err
	}
	c.bind(session, player.ID)

	return &RoomAck{AckStatus: ok(), Room: session.Info(), Player: player, GameState: state}, nil
}

func (c *Client) handleJoinRoom(raw json.RawMessage) (interface{}, error) {
	if session, _ := c.room(); session != nil {
		return nil, ErrAlreadyInRoom
	}

	var p JoinRoomPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	session, player, state, err := c.hub.JoinRoom(p.RoomID, p.Nickname, c)
	if err != nil {
		return nil, err
	}
	c.bind(session, player.ID)

	return &RoomAck{AckStatus: ok(), Room: session.Info(), Player: player, GameState: state}, nil
}

func (c *Client) handleGetRoomPlayers(raw json.RawMessage) (interface{}, error) {
	var p RoomPlayersPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	session, _ := c.room()
	if p.RoomID != "" {
		var err error
		if session, err = c.hub.GetSession(p.RoomID); err != nil {
			return nil, err
		}
	}
	if session == nil {
		return nil, ErrNotInRoom
	}

	return &PlayersAck{AckStatus: ok(), Players: session.Players()}, nil
}

func (c *Client) handleStartGame(raw json.RawMessage) (interface{}, error) {
	session, playerID, err := c.joined()
	if err != nil {
		return nil, err
	}

	var p StartGamePayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	if err := session.StartGame(playerID, p.MaxRounds, p.MinimumVariance); err != nil {
		return nil, err
	}

	return &GameAck{AckStatus: ok(), Game: session.GetGameState()}, nil
}

func (c *Client) handleProposeTopic(raw json.RawMessage) (interface{}, error) {
	session, playerID, err := c.joined()
	if err != nil {
		return nil, err
	}

	var p ProposeTopicPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	if _, err := session.ProposeTopic(playerID, p.Topic); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (c *Client) handleProposeWord(raw json.RawMessage) (interface{}, error) {
	session, playerID, err := c.joined()
	if err != nil {
		return nil, err
	}

	var p ProposeWordPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	if _, err := session.ProposeWord(playerID, p.Word, p.RelatedTopic); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (c *Client) handleVoteOnWord(raw json.RawMessage) (interface{}, error) {
	session, playerID, err := c.joined()
	if err != nil {
		return nil, err
	}

	var p VotePayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	// Range is checked on the float so the int conversion below is exact
	if p.Score != math.Trunc(p.Score) || p.Score < domain.MinVoteScore || p.Score > domain.MaxVoteScore {
		return nil, domain.ErrInvalidScore
	}

	if _, err := session.CastVote(playerID, int(p.Score)); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (c *Client) handlePlayAgain() (interface{}, error) {
	session, playerID, err := c.joined()
	if err != nil {
		return nil, err
	}

	if err := session.PlayAgain(playerID); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (c *Client) handleGetGameState() (interface{}, error) {
	session, _, err := c.joined()
	if err != nil {
		return nil, err
	}
	return &GameStateAck{AckStatus: ok(), GameState: session.GetGameState()}, nil
}

// reply acks a command. Commands sent without an ack ID still hear about
// failures through an error message.
func (c *Client) reply(ackID int64, payload interface{}) {
	if ackID != 0 {
		c.Send(&AckMessage{Type: MsgAck, AckID: ackID, Payload: payload})
		return
	}

	if status, isStatus := payload.(AckStatus); isStatus && !status.Success {
		c.sendError(status.Code, status.Error)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	payload := &ErrorPayload{
		Code:    code,
		Message: message,
	}

	msg := NewServerMessage(MsgError, payload)
	c.Send(msg)
}
