/*
This file defines the Client struct, a single WebSocket connection driven by a read loop and a
write loop.

A client starts in the Connected state where only registerUser is honoured. After registering it
may join rooms, relay messages, typing indicators and call signals. Every outbound frame goes
through a bounded queue drained by WritePump; producers never block on a slow socket.
*/
package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"messenger/internal/pkg/auth/jwt"
	"messenger/internal/pkg/logx"
	"messenger/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// DefaultSendQueueSize is the outbound queue length when none is configured.
	DefaultSendQueueSize = 256

	// WsCloseCodeSessionKicked is a custom WebSocket Close Code (4000-4999 range)
	// used when the server ends a session: replaced by a newer connection, blocked, or shutting down.
	WsCloseCodeSessionKicked = 4001
)

// SessionState is the lifecycle state of a client connection.
type SessionState int

const (
	StateConnected SessionState = iota
	StateRegistered
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateRegistered:
		return "registered"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Identity is the authenticated principal behind a connection.
type Identity struct {
	UserID      string
	Username    string
	Role        string
	TokenExpiry time.Time
}

// TokenIssuer mints a fresh token for a live session.
type TokenIssuer func(id Identity) (token string, expiresAt time.Time, err error)

// RoomAuthorizer decides whether userID may join room.
type RoomAuthorizer func(ctx context.Context, userID, room string) bool

// ClientOptions configures a Client.
type ClientOptions struct {
	Identity Identity

	// QueueSize bounds the outbound queue; DefaultSendQueueSize when zero.
	QueueSize int

	// IssueToken, when set, is used to push tokenUpdate before the session's token expires.
	IssueToken TokenIssuer

	// AuthorizeRoom, when set, gates joinRoom.
	AuthorizeRoom RoomAuthorizer
}

type outbound struct {
	data []byte

	// non-zero closeCode turns the item into a close frame
	closeCode int
	reason    string
}

// Client represents an active WebSocket connection.
type Client struct {
	id string

	hub  *Hub
	conn *websocket.Conn

	identity Identity

	issueToken    TokenIssuer
	authorizeRoom RoomAuthorizer

	// buffered queue of frames waiting to be written; never closed.
	send chan outbound

	// closed once the client is shutting down.
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	state SessionState

	logger zerolog.Logger
}

var _ Conn = (*Client)(nil)

// NewClient constructs a Client for an upgraded connection.
func NewClient(hub *Hub, wsConn *websocket.Conn, opts ClientOptions) *Client {
	queue := opts.QueueSize
	if queue <= 0 {
		queue = DefaultSendQueueSize
	}

	id := randx.ConnID()

	return &Client{
		id:            id,
		hub:           hub,
		conn:          wsConn,
		identity:      opts.Identity,
		issueToken:    opts.IssueToken,
		authorizeRoom: opts.AuthorizeRoom,
		send:          make(chan outbound, queue),
		done:          make(chan struct{}),
		state:         StateConnected,
		logger: logx.Logger().With().
			Str("component", "ws_client").
			Str("conn_id", id).
			Str("user_id", opts.Identity.UserID).
			Logger(),
	}
}

func (c *Client) ID() string { return c.id }

// State returns the current lifecycle state.
func (c *Client) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start attaches the client to the hub and launches its loops.
func (c *Client) Start() {
	c.hub.Attach(c)
	go c.WritePump()
	go c.ReadPump()
}

// Send implements Conn. A full queue drops the event.
func (c *Client) Send(evt *Event) bool {
	if c.State() == StateClosed {
		return false
	}

	data, err := evt.Encode()
	if err != nil {
		c.logger.Error().Err(err).Str("event", string(evt.Kind)).Msg("Error encoding event")
		return false
	}
	return c.enqueue(outbound{data: data}, string(evt.Kind))
}

func (c *Client) enqueue(item outbound, kind string) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- item:
		return true
	case <-c.done:
		return false
	default:
		c.logger.Warn().
			Int("queue_len", len(c.send)).
			Str("event", kind).
			Msg("Client send queue full, dropping event")
		return false
	}
}

// Evict implements Conn: queues a 4001 close frame and stops accepting events.
// If the queue is full the socket is closed directly.
func (c *Client) Evict(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeSessionKicked).
		Str("reason", reason).
		Msg("Evicting client")

	if !c.enqueue(outbound{closeCode: WsCloseCodeSessionKicked, reason: reason}, "close") {
		c.shutdown()
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error on evict")
		}
		return
	}
	c.markClosed()
}

func (c *Client) markClosed() {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.markClosed()
		close(c.done)
	})
}

// ReadPump reads frames until the connection fails, then releases all registrations.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, WsCloseCodeSessionKicked) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		if c.State() == StateClosed {
			continue
		}

		c.processInboundMessage(messageBytes)
	}
}

func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.shutdown()
	c.hub.Detach(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

func (c *Client) processInboundMessage(messageBytes []byte) {
	cmd, err := decodeCommand(messageBytes)
	if err != nil {
		level := zerolog.WarnLevel
		if errors.Is(err, errUnknownEvent) {
			level = zerolog.InfoLevel
		}
		c.logger.WithLevel(level).Err(err).Int("bytes", len(messageBytes)).Msg("Dropping inbound frame")
		return
	}

	if _, ok := cmd.(*registerUserCmd); !ok && c.State() != StateRegistered {
		c.logger.Warn().Msg("Dropping event from unregistered connection")
		return
	}

	cmd.apply(c)
}

func (cmd *registerUserCmd) apply(c *Client) { c.handleRegister(cmd) }

func (cmd *joinRoomCmd) apply(c *Client) { c.handleJoinRoom(cmd.Room) }

func (cmd *sendMessageCmd) apply(c *Client) {
	if !c.inRoom(cmd.Room) {
		return
	}
	n := c.hub.Dispatcher.SendToRoom(cmd.Room, RelayedMessage(cmd.raw), "")
	c.logger.Debug().Str("room", cmd.Room).Int("delivered", n).Msg("Relayed room message")
}

func (cmd *typingCmd) apply(c *Client) {
	if !c.inRoom(cmd.ChatID) {
		return
	}
	evt := UserTyping(cmd.ChatID, cmd.User)
	if cmd.stop {
		evt = UserStopTyping(cmd.ChatID)
	}
	c.hub.Dispatcher.SendToRoom(cmd.ChatID, evt, c.id)
}

func (cmd *callUserCmd) apply(c *Client) {
	c.hub.Dispatcher.SendToConn(cmd.UserToCall, CallUser(cmd.SignalData, c.id))
}

func (cmd *answerCallCmd) apply(c *Client) {
	c.hub.Dispatcher.SendToConn(cmd.To, CallAccepted(cmd.Signal))
}

// inRoom reports whether this connection joined room. Relays into rooms the
// connection is not a member of are dropped.
func (c *Client) inRoom(room string) bool {
	if c.hub.Conns.IsMember(c.id, room) {
		return true
	}
	c.logger.Warn().Str("room", room).Msg("Dropping relay to a room this connection has not joined")
	return false
}

func (c *Client) handleRegister(cmd *registerUserCmd) {
	if cmd.UserID != c.identity.UserID {
		c.logger.Warn().Str("claimed_user_id", cmd.UserID).Msg("registerUser does not match authenticated user, ignoring")
		return
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateRegistered
	c.mu.Unlock()

	c.hub.Presence.Register(cmd.UserID, c)
	c.logger.Info().Msg("User registered")
}

func (c *Client) handleJoinRoom(room string) {
	if c.authorizeRoom != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		allowed := c.authorizeRoom(ctx, c.identity.UserID, room)
		cancel()

		if !allowed {
			c.logger.Warn().Str("room", room).Msg("Join refused")
			return
		}
	}

	c.hub.Conns.Join(c.id, room)
}

// WritePump drains the send queue to the socket and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case item := <-c.send:
			if !c.writeQueuedMessage(item) {
				return
			}

		case <-c.done:
			c.writeClose(websocket.CloseNormalClosure, "")
			return

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}

			c.checkAndRefreshToken()
		}
	}
}

// writeQueuedMessage returns false when the loop should terminate.
func (c *Client) writeQueuedMessage(item outbound) bool {
	if item.closeCode != 0 {
		c.writeClose(item.closeCode, item.reason)
		c.shutdown()
		return false
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, item.data); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writeClose(code int, reason string) {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}

	if err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason)); err != nil {
		c.logger.Debug().Err(err).Int("close_code", code).Msg("Error writing close message")
	}
}

func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// checkAndRefreshToken pushes a fresh token once the current one is inside the refresh window.
// Only WritePump touches identity.TokenExpiry after start.
func (c *Client) checkAndRefreshToken() {
	if c.issueToken == nil || c.State() != StateRegistered {
		return
	}

	if time.Now().Before(c.identity.TokenExpiry.Add(-jwt.RefreshWindow)) {
		return
	}

	c.logger.Info().
		Time("current_expiry", c.identity.TokenExpiry).
		Dur("refresh_window", jwt.RefreshWindow).
		Msg("JWT token is nearing expiry, attempting refresh.")

	token, expiresAt, err := c.issueToken(c.identity)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to generate new token. Aborting refresh.")
		return
	}

	if !c.Send(TokenUpdate(token)) {
		c.logger.Error().Msg("Failed to queue token update.")
		return
	}

	c.identity.TokenExpiry = expiresAt
}
