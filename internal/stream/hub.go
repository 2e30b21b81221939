// Package stream tracks live translation sockets per user.
package stream

import (
	"sync"

	"go.uber.org/zap"
)

// Conn is the part of a socket the hub needs.
type Conn interface {
	// CloseWith terminates the connection with a websocket close code and reason.
	CloseWith(code int, reason string) error
}

// Close codes used by the hub.
const (
	CloseGoingAway = 1001
	// CloseReplaced is sent to a socket superseded by a newer one for the same user.
	CloseReplaced = 4000
)

// Hub allows one live translation socket per user.
type Hub struct {
	mu     sync.Mutex
	conns  map[int64]Conn
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{conns: make(map[int64]Conn), logger: logger}
}

// Register stores conn for userID and closes any previous connection.
func (h *Hub) Register(userID int64, conn Conn) {
	h.mu.Lock()
	prev := h.conns[userID]
	h.conns[userID] = conn
	h.mu.Unlock()

	if prev != nil && prev != conn {
		h.logger.Info("replacing translation socket", zap.Int64("user_id", userID))
		_ = prev.CloseWith(CloseReplaced, "replaced by a newer connection")
	}
}

// Unregister removes conn if it is still the current one for userID.
func (h *Hub) Unregister(userID int64, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == conn {
		delete(h.conns, userID)
	}
}

// Len returns the number of live sockets.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// CloseAll closes every socket, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[int64]Conn)
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.CloseWith(CloseGoingAway, "server shutting down")
	}
}
