// Package registry tracks the set of live WebSocket connections.
//
// The registry is the only shared mutable resource in the service; every
// access goes through its synchronized methods. Membership invariant: a
// connection is a member exactly while its receive loop is active.
package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jordan13p/websocket-test/internal/metrics"
)

// Conn is an opaque handle to a duplex text-frame channel. Implemented by
// session.SocketConn in production and by fakes in tests.
type Conn interface {
	// ID is the transport-assigned unique identity of the connection.
	ID() uuid.UUID
	// RemoteAddr returns the peer IP, or "unknown" if unavailable.
	RemoteAddr() string
	// WriteText sends one text frame, blocking on transport back-pressure.
	WriteText(data []byte) error
	Close() error
}

// Registry is a concurrency-safe set of connections, unique by ID.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]Conn
}

func New() *Registry {
	return &Registry{conns: make(map[uuid.UUID]Conn)}
}

// Add registers a connection. Re-adding the same connection is a no-op.
func (r *Registry) Add(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[conn.ID()]; exists {
		return
	}
	r.conns[conn.ID()] = conn
	metrics.WebSocketConnectionsCurrent.Set(float64(len(r.conns)))
}

// Remove deregisters a connection. Removing an absent connection is a no-op,
// so cleanup paths may call it unconditionally.
func (r *Registry) Remove(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[conn.ID()]; !exists {
		return
	}
	delete(r.conns, conn.ID())
	metrics.WebSocketConnectionsCurrent.Set(float64(len(r.conns)))
}

// Snapshot returns a copy of the current membership, safe to iterate while
// the registry mutates concurrently.
func (r *Registry) Snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Count returns the current number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
