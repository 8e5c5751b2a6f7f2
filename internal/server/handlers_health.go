package server

import (
	"github.com/labstack/echo/v4"

	"github.com/jordan13p/websocket-test/internal/identity"
	"github.com/jordan13p/websocket-test/internal/protocol"
	"github.com/jordan13p/websocket-test/internal/version"
)

const serviceName = "websocket-test-service"

type healthResponse struct {
	Status                     string                   `json:"status"`
	Timestamp                  string                   `json:"timestamp"`
	ActiveWebsocketConnections int                      `json:"active_websocket_connections"`
	Service                    string                   `json:"service"`
	Version                    string                   `json:"version"`
	ServiceIdentity            identity.ServiceIdentity `json:"service_identity"`
}

// handleHealth always reports healthy; there is no degraded-health detection.

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(200, healthResponse{
		Status:                     "healthy",
		Timestamp:                  protocol.Timestamp(s.clock),
		ActiveWebsocketConnections: s.registry.Count(),
		Service:                    serviceName,
		Version:                    version.Version,
		ServiceIdentity:            s.identity,
	})
}
