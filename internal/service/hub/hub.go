package hub

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ymgch/slack-pulse/backend/internal/model/event"
)

// Conn is one live viewer channel. A connection in the registry is
// assumed writable until a send fails.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub owns the process-wide registry of viewer connections and pushes
// qualifying events to all of them. Register, Unregister and Broadcast
// are safe for concurrent use.
type Hub struct {
	mu    sync.Mutex
	conns map[Conn]struct{}
	log   *zap.Logger
}

// New creates an empty hub. The hub is created at process start and
// shared with the HTTP layer; there is no other owner of the registry.
func New(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		conns: make(map[Conn]struct{}),
		log:   log,
	}
}

// Register adds a connection to the registry.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()

	h.log.Info("viewer connected", zap.Int("viewers", n))
}

// Unregister removes a connection. Removing an absent connection is a
// no-op.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	_, present := h.conns[c]
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()

	if present {
		h.log.Info("viewer disconnected", zap.Int("viewers", n))
	}
}

// Broadcast sends payload once to every connection in a snapshot of the
// registry. Failed sends mark the connection for removal but never
// abort delivery to the rest; marked connections are pruned after the
// pass.
func (h *Hub) Broadcast(payload event.Payload) {
	h.mu.Lock()
	snapshot := make([]Conn, 0, len(h.conns))
	for c := range h.conns {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	var dead []Conn
	for _, c := range snapshot {
		if err := c.WriteJSON(payload); err != nil {
			h.log.Warn("viewer send failed, pruning connection", zap.Error(err))
			dead = append(dead, c)
		}
	}

	for _, c := range dead {
		h.Unregister(c)
		_ = c.Close()
	}
}

// Len reports the current registry size.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
