package runtime

import (
	"broadcast-relay/contract"
	"broadcast-relay/domain"
	"sync"

	"github.com/samber/lo"
)

var _ contract.IRegistry = (*Registry)(nil)

// Registry owns the set of currently open connections.
// Mutations take the write lock; readers get a snapshot so that a broadcast
// can iterate while connections come and go.
type Registry struct {
	mu          sync.RWMutex
	connections map[domain.ConnectionID]contract.Connection
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[domain.ConnectionID]contract.Connection),
	}
}

// Register adds a connection to the active set.
// Registering the same ID twice replaces the previous entry.
func (r *Registry) Register(conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[conn.ID()] = conn
}

// Unregister removes a connection and reports whether it was present.
// Removing an absent connection is a no-op.
func (r *Registry) Unregister(id domain.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[id]; !ok {
		return false
	}
	delete(r.connections, id)
	return true
}

// Snapshot returns a fresh slice of the active connections.
// The caller may iterate it without holding any lock.
func (r *Registry) Snapshot() []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.connections)
}

func (r *Registry) Contains(id domain.ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.connections[id]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
