// Package protocol defines the outbound envelope kinds and the per-message
// routing state machine.
package protocol

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"github.com/jordan13p/websocket-test/internal/metrics"
	"github.com/jordan13p/websocket-test/internal/registry"
)

// Fanout delivers one envelope to every registered connection.
type Fanout interface {
	Broadcast(env Envelope)
}

// Counter reports the current registry size.
type Counter interface {
	Count() int
}

// Router classifies inbound payloads and produces the matching reply.
// Only JSON objects get structured handling; everything else, including
// valid JSON scalars and arrays, is answered with a text echo built from
// the raw payload.
type Router struct {
	clock   clockwork.Clock
	fanout  Fanout
	counter Counter
}

func NewRouter(clock clockwork.Clock, fanout Fanout, counter Counter) *Router {
	return &Router{clock: clock, fanout: fanout, counter: counter}
}

// Route handles one inbound text frame from sender and returns the reply
// envelope. A broadcast message additionally triggers the fan-out before
// the confirmation is returned.
func (r *Router) Route(sender registry.Conn, raw string) Envelope {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return r.textEcho(raw)
	}

	obj, isObject := parsed.(map[string]any)
	if !isObject {
		return r.textEcho(raw)
	}

	return r.routeObject(sender, obj)
}

func (r *Router) routeObject(sender registry.Conn, obj map[string]any) Envelope {
	msgType, ok := obj["type"]
	if !ok {
		msgType = "unknown"
	}

	var reply Envelope
	switch msgType {
	case "ping":
		reply = Pong{
			Type:         "pong",
			Timestamp:    Timestamp(r.clock),
			OriginalData: obj,
		}
	case "echo":
		reply = EchoResponse{
			Type:       "echo_response",
			Timestamp:  Timestamp(r.clock),
			EchoedData: obj,
		}
	case "broadcast":
		reply = r.broadcast(sender, obj)
	default:
		reply = Error{
			Type:         "error",
			Timestamp:    Timestamp(r.clock),
			Message:      fmt.Sprintf("Unknown message type: %v", msgType),
			ReceivedData: obj,
		}
	}

	metrics.MessagesRoutedTotal.WithLabelValues(reply.Kind()).Inc()
	return reply
}

func (r *Router) broadcast(sender registry.Conn, obj map[string]any) Envelope {
	message, ok := obj["message"]
	if !ok {
		message = ""
	}

	env := Broadcast{
		Type:      "broadcast",
		Timestamp: Timestamp(r.clock),
		Message:   message,
		Sender:    sender.RemoteAddr(),
	}
	r.fanout.Broadcast(env)

	// Registry size after the fan-out pass, so recipients reflects any
	// dead connections pruned during delivery.
	return BroadcastConfirmation{
		Type:       "broadcast_confirmation",
		Timestamp:  Timestamp(r.clock),
		Recipients: r.counter.Count(),
	}
}

func (r *Router) textEcho(raw string) Envelope {
	metrics.MessagesRoutedTotal.WithLabelValues("text_echo").Inc()
	return TextEcho{
		Type:            "text_echo",
		Timestamp:       Timestamp(r.clock),
		OriginalMessage: raw,
		MessageLength:   utf8.RuneCountInString(raw),
	}
}
