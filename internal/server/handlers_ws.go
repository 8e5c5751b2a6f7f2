package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/jordan13p/websocket-test/internal/metrics"
	"github.com/jordan13p/websocket-test/internal/protocol"
	"github.com/jordan13p/websocket-test/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Diagnostic service, any origin may connect
	},
}

// handleWebSocket serves the HTTP-upgrade echo path. Unlike the standalone
// listener it runs no routing protocol: any parsable JSON is echoed back as
// http_echo, anything else as a plain text_echo. Connections on this path
// are not registered and do not receive broadcasts.
func (s *Server) handleWebSocket(c echo.Context) error {
	clientIP := c.RealIP()
	log := slog.With("remote_addr", clientIP)
	log.Info("HTTP WebSocket connection")

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("http", "error").Inc()
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}
	metrics.WebSocketConnectionsTotal.WithLabelValues("http", "accepted").Inc()

	conn := session.Wrap(ws)
	defer conn.Close()

	welcome := protocol.NewWelcome(s.clock, s.identity, clientIP,
		fmt.Sprintf("Connected to %s via HTTP WebSocket", s.identity.DisplayName))
	if err := s.send(conn, welcome); err != nil {
		log.Error("Failed to send welcome message", "error", err)
		return nil
	}

	for {
		raw, err := conn.NextFrame()
		if err != nil {
			log.Info("HTTP WebSocket connection closed")
			return nil
		}

		log.Info("HTTP WebSocket message received", "message", raw)

		var reply protocol.Envelope
		var parsed any
		if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr == nil {
			reply = protocol.HTTPEcho{
				Type:       "http_echo",
				Timestamp:  protocol.Timestamp(s.clock),
				EchoedData: parsed,
			}
		} else {
			reply = protocol.RawTextEcho{
				Type:            "text_echo",
				Timestamp:       protocol.Timestamp(s.clock),
				OriginalMessage: raw,
			}
		}

		if err := s.send(conn, reply); err != nil {
			log.Error("Failed to send response", "type", reply.Kind(), "error", err)
			return nil
		}
	}
}

func (s *Server) send(conn *session.SocketConn, env protocol.Envelope) error {
	data, err := protocol.Marshal(env)
	if err != nil {
		return err
	}
	return conn.WriteText(data)
}
