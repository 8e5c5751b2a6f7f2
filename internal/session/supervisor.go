// Package session owns the lifecycle of a single WebSocket connection:
// register, greet, receive loop, cleanup.
package session

import (
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/jordan13p/websocket-test/internal/identity"
	"github.com/jordan13p/websocket-test/internal/protocol"
	"github.com/jordan13p/websocket-test/internal/registry"
)

// FrameSource is a consumable sequence of inbound text frames, terminated
// by a close signal or transport error. SocketConn implements it over a
// gorilla connection; tests implement it in memory.
type FrameSource interface {
	NextFrame() (string, error)
}

// Supervisor drives one connection from accept to cleanup. Responses to a
// single connection are sent in the order their triggering frames were
// read; the receive loop never reorders router calls.
type Supervisor struct {
	registry *registry.Registry
	router   *protocol.Router
	identity identity.ServiceIdentity
	clock    clockwork.Clock
}

func NewSupervisor(reg *registry.Registry, router *protocol.Router, id identity.ServiceIdentity, clock clockwork.Clock) *Supervisor {
	return &Supervisor{
		registry: reg,
		router:   router,
		identity: id,
		clock:    clock,
	}
}

// Run blocks until the connection reaches a terminal state. Deregistration
// and close happen unconditionally on exit, even when the greeting was
// never sent; registry removal is idempotent so a fan-out pass may have
// pruned the connection already.
func (s *Supervisor) Run(conn registry.Conn, frames FrameSource) {
	log := slog.With("remote_addr", conn.RemoteAddr())
	log.Info("New WebSocket connection")

	s.registry.Add(conn)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in connection handler", "panic", r)
		}
		s.registry.Remove(conn)
		conn.Close()
	}()

	welcome := protocol.NewWelcome(s.clock, s.identity, conn.RemoteAddr(), "Connected to "+s.identity.DisplayName)
	if err := s.send(conn, welcome); err != nil {
		log.Error("Failed to send welcome message", "error", err)
		return
	}

	for {
		raw, err := frames.NextFrame()
		if err != nil {
			if isExpectedClose(err) {
				log.Info("WebSocket connection closed")
			} else {
				log.Error("Error in WebSocket handler", "error", err)
			}
			return
		}

		log.Info("WebSocket message received", "message", raw)

		reply := s.router.Route(conn, raw)
		if err := s.send(conn, reply); err != nil {
			log.Error("Failed to send response", "type", reply.Kind(), "error", err)
			return
		}
	}
}

func (s *Supervisor) send(conn registry.Conn, env protocol.Envelope) error {
	data, err := protocol.Marshal(env)
	if err != nil {
		return err
	}
	return conn.WriteText(data)
}

func isExpectedClose(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
