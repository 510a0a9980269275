package chat

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Registry tracks the active chat socket per member. A member opening a
// second socket replaces the first.
type Registry struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewRegistry creates an empty socket registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]*websocket.Conn)}
}

// Register adds a connection for a member, closing any previous one.
func (r *Registry) Register(memberID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.active[memberID]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}
	r.active[memberID] = conn
	slog.Info("Chat socket registered", "member_id", memberID)
}

// Active returns the member's current connection, or nil.
func (r *Registry) Active(memberID string) *websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[memberID]
}

// Unregister removes a member's connection if it is still the active one.
func (r *Registry) Unregister(memberID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.active[memberID]; ok && current == conn {
		delete(r.active, memberID)
		slog.Info("Chat socket unregistered", "member_id", memberID)
	}
}
