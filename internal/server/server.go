package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jordan13p/websocket-test/internal/config"
	"github.com/jordan13p/websocket-test/internal/identity"
)

// connectionCounter reports the current registry size for the health payload.
type connectionCounter interface {
	Count() int
}

type Server struct {
	echo     *echo.Echo
	config   *config.Config
	registry connectionCounter
	identity identity.ServiceIdentity
	clock    clockwork.Clock
}

func NewServer(cfg *config.Config, reg connectionCounter, id identity.ServiceIdentity, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddleware("websocket_test"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"*"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"*"},
		AllowCredentials: true,
		// Diagnostic tool reachable from arbitrary origins; not a
		// production surface.
		UnsafeWildcardOriginWithAllowCredentials: true,
	}))

	srv := &Server{
		echo:     e,
		config:   cfg,
		registry: reg,
		identity: id,
		clock:    clock,
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.HTTPPort))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for httptest-based tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
