// Package broadcast fans one envelope out to every registered connection.
package broadcast

import (
	"log/slog"

	"github.com/jordan13p/websocket-test/internal/metrics"
	"github.com/jordan13p/websocket-test/internal/protocol"
	"github.com/jordan13p/websocket-test/internal/registry"
)

// Broadcaster delivers envelopes to every connection in the registry.
// Delivery failures are isolated per recipient: a dead connection is
// collected during the pass and removed from the registry afterwards,
// never mid-iteration.
type Broadcaster struct {
	registry *registry.Registry
}

func NewBroadcaster(reg *registry.Registry) *Broadcaster {
	return &Broadcaster{registry: reg}
}

// Broadcast serializes env once and attempts delivery to every connection
// in the current snapshot. No-op when the registry is empty. Returns no
// partial-success signal; callers that care read the registry count.
func (b *Broadcaster) Broadcast(env protocol.Envelope) {
	conns := b.registry.Snapshot()
	if len(conns) == 0 {
		return
	}

	data, err := protocol.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal broadcast envelope", "type", env.Kind(), "error", err)
		return
	}

	metrics.BroadcastsTotal.Inc()

	var failed []registry.Conn
	for _, conn := range conns {
		if err := conn.WriteText(data); err != nil {
			slog.Error("Error broadcasting to connection", "remote_addr", conn.RemoteAddr(), "error", err)
			metrics.BroadcastSendFailuresTotal.Inc()
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		b.registry.Remove(conn)
	}
}
