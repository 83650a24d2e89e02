// Package server exposes HTTP handlers, including WebSocket upgrades and
// health checks.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/echorelay/internal/relay"
)

// Handler turns upgraded WebSocket connections into relay connections.
type Handler struct {
	coordinator *relay.Coordinator
	upgrader    websocket.Upgrader
	cfg         Config
	logger      *slog.Logger
}

// NewHandler creates a Handler that serves every accepted connection through
// coordinator.
func NewHandler(coordinator *relay.Coordinator, cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     newOriginChecker(cfg.Origins(), logger),
		},
		cfg:    cfg,
		logger: logger,
	}
}

// RootHandler upgrades WebSocket requests on any path and answers plain HTTP
// requests with the health message.
func (h *Handler) RootHandler(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.WebSocketHandler(w, r)
		return
	}
	HealthHandler(w, r)
}

// WebSocketHandler upgrades the request and runs the connection until it
// closes. The handler goroutine becomes the connection's receive loop.
func (h *Handler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, r.RemoteAddr, h.cfg, h.logger)

	if err := h.coordinator.Serve(r.Context(), client); errors.Is(err, relay.ErrShuttingDown) {
		h.logger.Debug("Rejected connection during shutdown", "remote_addr", r.RemoteAddr)
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "echorelay is running!")
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// HealthzHandler reports liveness together with the current connection count.
func (h *Handler) HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := healthResponse{Status: "ok", Connections: h.coordinator.Len()}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Error writing health response", "error", err)
	}
}
