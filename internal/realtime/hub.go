// Package realtime pushes store change notices to connected views.
package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"threadx/internal/kv"
	"threadx/internal/logger"
	"threadx/internal/observability"
	"threadx/internal/queue"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrUserConnLimit  = errors.New("user connection limit reached")
	ErrTotalConnLimit = errors.New("server connection limit reached")
	ErrHubClosed      = errors.New("hub closed")
)

// Message is the envelope written to views.
type Message struct {
	Type    string            `json:"type"`
	Payload queue.ChangeEvent `json:"payload"`
}

// Hub maps user id to connected clients. A change to a per-user key goes
// only to that user's views; changes to shared keys go to everyone.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
	closed     bool

	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger.New("RealtimeHub"),
	}
}

// Listener adapts the hub to kv.Store.OnChange for changes made in this
// process.
func (h *Hub) Listener(instance string) kv.Listener {
	return func(c kv.Change) {
		h.Broadcast(queue.NewChangeEvent(c, instance))
	}
}

// Broadcast sends event to every view allowed to see it.
func (h *Hub) Broadcast(event queue.ChangeEvent) {
	data, err := json.Marshal(Message{Type: "change", Payload: event})
	if err != nil {
		h.log.Error().Err(err).Str("key", event.Key).Msg("failed to encode change")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	if event.Owner != "" {
		for c := range h.conns[event.Owner] {
			c.trySend(data)
		}
		return
	}
	for _, clients := range h.conns {
		for c := range clients {
			c.trySend(data)
		}
	}
}

// Register adds a connection for userID and starts its pumps.
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrTotalConnLimit
	}
	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, ErrUserConnLimit
	}

	client := newClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnections.Inc()

	go client.writePump()
	go client.readPump()
	h.log.Debug().Str("user_id", userID).Int("total", h.totalConns).Msg("view connected")
	return client, nil
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[c.userID]
	if !ok {
		return
	}
	if _, exists := m[c]; !exists {
		return
	}
	delete(m, c)
	if len(m) == 0 {
		delete(h.conns, c.userID)
	}
	h.totalConns--
	close(c.send)
	observability.WebSocketConnections.Dec()
	h.log.Debug().Str("user_id", c.userID).Int("total", h.totalConns).Msg("view disconnected")
}

// Count returns the number of connected views.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// Close disconnects every view. Further registrations fail.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for userID, clients := range h.conns {
		for c := range clients {
			close(c.send)
			observability.WebSocketConnections.Dec()
		}
		delete(h.conns, userID)
	}
	h.totalConns = 0
}

// ServeWS upgrades the request and registers the view under the user
// returned by userID. An empty user id is rejected before the upgrade.
func (h *Hub) ServeWS(userID func(r *http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := userID(r)
		if id == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error
			h.log.Debug().Err(err).Msg("upgrade failed")
			return
		}
		if _, err := h.Register(id, conn); err != nil {
			h.log.Warn().Err(err).Str("user_id", id).Msg("view rejected")
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
			_ = conn.Close()
		}
	}
}
