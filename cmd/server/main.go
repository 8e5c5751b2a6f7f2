package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jordan13p/websocket-test/internal/broadcast"
	"github.com/jordan13p/websocket-test/internal/config"
	"github.com/jordan13p/websocket-test/internal/identity"
	"github.com/jordan13p/websocket-test/internal/logging"
	"github.com/jordan13p/websocket-test/internal/metrics"
	"github.com/jordan13p/websocket-test/internal/protocol"
	"github.com/jordan13p/websocket-test/internal/registry"
	"github.com/jordan13p/websocket-test/internal/server"
	"github.com/jordan13p/websocket-test/internal/session"
	"github.com/jordan13p/websocket-test/internal/version"
	"github.com/jordan13p/websocket-test/internal/wsserver"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runGracefulShutdown(httpSrv *server.Server, wsSrv *wsserver.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
		if err := wsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("WebSocket server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting WebSocket Test Service", "env", cfg.AppEnv)

	info := version.Get()
	metrics.BuildInfo.WithLabelValues(info.Version, info.Commit, info.BuildTime, info.GoVersion).Set(1)

	id := identity.NewResolver().Resolve()
	slog.Info("Service identity resolved",
		"instance_id", id.InstanceID,
		"display_name", id.DisplayName,
		"environment", id.Environment,
		"container_ip", id.ContainerIP)

	reg := registry.New()
	broadcaster := broadcast.NewBroadcaster(reg)
	router := protocol.NewRouter(clock, broadcaster, reg)
	supervisor := session.NewSupervisor(reg, router, id, clock)

	httpSrv := server.NewServer(cfg, reg, id, clock)
	wsSrv := wsserver.NewServer(cfg.WSPort, supervisor)

	done := runGracefulShutdown(httpSrv, wsSrv)

	go func() {
		slog.Info("Starting WebSocket server", "port", cfg.WSPort)
		if err := wsSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("WebSocket server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("=== WebSocket Test Service Started ===",
		"health", "http://localhost:"+cfg.HTTPPort+"/",
		"http_websocket", "ws://localhost:"+cfg.HTTPPort+"/ws",
		"standalone_websocket", "ws://localhost:"+cfg.WSPort+"/")

	if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Servers stopped")
}
