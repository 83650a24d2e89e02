package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/echorelay/internal/metrics"
	"github.com/Tyrowin/echorelay/internal/relay"
)

type testRelay struct {
	coordinator *relay.Coordinator
	metrics     *metrics.RelayMetrics
	handler     *Handler
	server      *httptest.Server
	wsURL       string
}

// newTestRelay starts a relay behind an httptest server. customize may adjust
// the configuration before the handler is built.
func newTestRelay(t *testing.T, customize func(cfg *Config), opts ...relay.Option) *testRelay {
	t.Helper()

	cfg := DefaultConfig()
	if customize != nil {
		customize(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := metrics.NewRegistry()
	relayMetrics := metrics.NewRelayMetrics(reg)
	opts = append([]relay.Option{relay.WithLogger(logger), relay.WithObserver(relayMetrics)}, opts...)
	coordinator := relay.NewCoordinator(opts...)
	handler := NewHandler(coordinator, cfg, logger)

	srv := httptest.NewServer(SetupRoutes(handler, metrics.Handler(reg)))
	t.Cleanup(func() {
		_ = coordinator.Shutdown(2 * time.Second)
		srv.Close()
	})

	return &testRelay{
		coordinator: coordinator,
		metrics:     relayMetrics,
		handler:     handler,
		server:      srv,
		wsURL:       "ws" + strings.TrimPrefix(srv.URL, "http") + "/",
	}
}

func (r *testRelay) waitForConnections(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return r.coordinator.Len() == n }, 2*time.Second, 5*time.Millisecond,
		"expected %d registered connections, have %d", n, r.coordinator.Len())
}

func (r *testRelay) closedTotal(outcome relay.Outcome) float64 {
	return testutil.ToFloat64(r.metrics.ConnectionsClosed.WithLabelValues(outcome.String()))
}

// connect dials the relay and registers cleanup for the connection.
func connect(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(url, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendText(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func readMessage(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	messageType, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	return messageType, payload
}

func expectText(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()
	messageType, payload := readMessage(t, conn)
	require.Equal(t, websocket.TextMessage, messageType)
	require.Equal(t, want, string(payload))
}

// closeGracefully sends a normal closure frame before dropping the socket.
func closeGracefully(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	require.NoError(t, err)
	_ = conn.Close()
}
