package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Health endpoints (always 200, no degraded-health detection)
	s.echo.GET("/", s.handleHealth)
	s.echo.GET("/health", s.handleHealth)

	// Observability
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// WebSocket upgrade path (raw echo only, no routing protocol)
	s.echo.GET("/ws", s.handleWebSocket)
}
