// Package wsserver runs the standalone WebSocket listener. Every connection
// accepted here, regardless of request path, gets the full protocol: welcome
// frame, message routing, and broadcast membership.
package wsserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jordan13p/websocket-test/internal/metrics"
	"github.com/jordan13p/websocket-test/internal/session"
)

const (
	pingInterval = 30 * time.Second
	pongTimeout  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Diagnostic service, any origin may connect
	},
}

type Server struct {
	httpSrv    *http.Server
	supervisor *session.Supervisor
}

func NewServer(port string, sup *session.Supervisor) *Server {
	srv := &Server{supervisor: sup}
	srv.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: http.HandlerFunc(srv.handleConnection),
	}
	return srv
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "remote_addr", r.RemoteAddr, "error", err)
		metrics.WebSocketConnectionsTotal.WithLabelValues("standalone", "error").Inc()
		return
	}
	metrics.WebSocketConnectionsTotal.WithLabelValues("standalone", "accepted").Inc()

	conn := session.Wrap(ws)
	stop := conn.StartKeepalive(pingInterval, pongTimeout)
	defer stop()

	s.supervisor.Run(conn, conn)
}

func (s *Server) Start() error {
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the upgrade handler for httptest-based tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}
