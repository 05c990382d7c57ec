package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onairlive/onair/internal/config"
	pkglog "github.com/onairlive/onair/pkg/log"
)

// DisconnectHandler is called when a client disconnects.
type DisconnectHandler func(*Client)

// Client represents one connected WebSocket transport. UserID is empty until
// the connection authenticates; an unauthenticated client stays open but is
// not addressable by DeliverToUser.
type Client struct {
	ID     string
	UserID string
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte

	sendMu            sync.Mutex
	closed            bool
	disconnectHandler DisconnectHandler
}

// trySend queues data for the write pump without blocking. Reports false if
// the client is closed or its buffer is full.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the Send channel exactly once, signalling the write pump
// to shut the transport down.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// SetDisconnectHandler sets the handler to be called on disconnect.
func (c *Client) SetDisconnectHandler(handler DisconnectHandler) {
	c.disconnectHandler = handler
}

// Hub owns the user→connection registry for the push channel. It holds its
// own lock, independent of any session-registry locking.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // all open connections, by client id
	users   map[string]*Client // authenticated user id → live connection
	config  config.WebSocketConfig
}

// NewHub creates a new Hub.
func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		users:   make(map[string]*Client),
		config:  cfg,
	}
}

// Register adds a freshly upgraded connection in a pending-authentication
// state.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	l := pkglog.L()
	l.Info().Str(pkglog.FieldClientID, client.ID).Msg("client registered")
}

// Bind associates an authenticated user identity with a connection.
// Last-connected-wins: an older connection for the same user is evicted and
// closed.
func (h *Hub) Bind(client *Client, userID string) {
	var evicted *Client

	h.mu.Lock()
	if old, ok := h.users[userID]; ok && old != client {
		h.removeLocked(old)
		evicted = old
	}
	client.UserID = userID
	h.users[userID] = client
	h.mu.Unlock()

	l := pkglog.L()
	if evicted != nil {
		l.Info().
			Str(pkglog.FieldUserID, userID).
			Str(pkglog.FieldClientID, evicted.ID).
			Msg("evicted stale connection for user")
	}
	l.Info().
		Str(pkglog.FieldUserID, userID).
		Str(pkglog.FieldClientID, client.ID).
		Msg("client authenticated")
}

// Unregister removes a connection. The user registry entry is only cleared
// when it still points at this exact client, so a stale close event can
// never evict a newer connection for the same user.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	h.removeLocked(client)
	h.mu.Unlock()

	l := pkglog.L()
	l.Info().Str(pkglog.FieldClientID, client.ID).Msg("client unregistered")
}

// removeLocked must be called with h.mu held. Safe to call twice for the
// same client; the Send channel is closed at most once.
func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	if client.UserID != "" && h.users[client.UserID] == client {
		delete(h.users, client.UserID)
	}
	client.closeSend()
}

// DeliverToUser writes message as a single frame to the user's live
// connection, if any. Best-effort by design: with no open connection (or a
// stalled one) this is a silent no-op and the caller must not depend on
// delivery. The send never blocks, so a slow recipient cannot stall a
// fan-out loop.
func (h *Hub) DeliverToUser(userID string, message interface{}) bool {
	h.mu.RLock()
	client, ok := h.users[userID]
	h.mu.RUnlock()

	if !ok {
		return false
	}

	data, err := json.Marshal(message)
	if err != nil {
		return false
	}

	if !client.trySend(data) {
		// Closed or the send buffer is full; drop the stalled connection.
		go h.Unregister(client)
		return false
	}
	return true
}

// IsOnline reports whether the user currently holds a live connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.users[userID]
	return ok
}

// ReadPump pumps messages from the WebSocket connection to the handler.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		if c.disconnectHandler != nil {
			c.disconnectHandler(c)
		}
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Hub.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := pkglog.L()
				l.Error().Err(err).Msg("websocket error")
			}
			break
		}

		handler(c, message)
	}
}

// WritePump pumps messages from the Send channel to the WebSocket
// connection and keeps the transport alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage sends a message to the client without blocking.
func (c *Client) SendMessage(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.trySend(data)
	return nil
}
