package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/echorelay/internal/logging"
	"github.com/Tyrowin/echorelay/internal/metrics"
	"github.com/Tyrowin/echorelay/internal/relay"
	"github.com/Tyrowin/echorelay/internal/server"
)

func runGracefulShutdown(srv *http.Server, coordinator *relay.Coordinator, cfg *server.Config) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		// Stop accepting new upgrades before closing the live connections.
		if err := server.ShutdownServer(srv, cfg.ShutdownTimeout); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		if err := coordinator.Shutdown(cfg.ShutdownTimeout); err != nil {
			slog.Error("Relay shutdown error", "error", err, "remaining", coordinator.Len())
		}

		close(done)
	}()

	return done
}

func setupConfig() *server.Config {
	cfg, err := server.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func main() {
	cfg := setupConfig()
	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	reg := metrics.NewRegistry()
	relayMetrics := metrics.NewRelayMetrics(reg)

	coordinator := relay.NewCoordinator(
		relay.WithLogger(logger),
		relay.WithObserver(relayMetrics),
		relay.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	)

	handler := server.NewHandler(coordinator, *cfg, logger)
	mux := server.SetupRoutes(handler, metrics.Handler(reg))
	srv := server.CreateServer(cfg.Addr(), mux)

	done := runGracefulShutdown(srv, coordinator, cfg)

	if err := server.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Server stopped")
}
