package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/echorelay/internal/relay"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyReadError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "normal closure",
			err:  &websocket.CloseError{Code: websocket.CloseNormalClosure},
			want: relay.ErrGracefulDisconnect,
		},
		{
			name: "going away",
			err:  &websocket.CloseError{Code: websocket.CloseGoingAway},
			want: relay.ErrGracefulDisconnect,
		},
		{
			name: "no status code",
			err:  &websocket.CloseError{Code: websocket.CloseNoStatusReceived},
			want: relay.ErrGracefulDisconnect,
		},
		{
			name: "abnormal closure",
			err:  &websocket.CloseError{Code: websocket.CloseAbnormalClosure, Text: io.ErrUnexpectedEOF.Error()},
			want: relay.ErrAbruptDisconnect,
		},
		{
			name: "protocol error close code",
			err:  &websocket.CloseError{Code: websocket.CloseProtocolError},
			want: relay.ErrAbruptDisconnect,
		},
		{
			name: "EOF",
			err:  io.EOF,
			want: relay.ErrAbruptDisconnect,
		},
		{
			name: "closed network connection",
			err:  fmt.Errorf("read tcp: %w", net.ErrClosed),
			want: relay.ErrAbruptDisconnect,
		},
		{
			name: "connection reset",
			err:  errors.New("read tcp 127.0.0.1:8765: connection reset by peer"),
			want: relay.ErrAbruptDisconnect,
		},
		{
			name: "keepalive timeout",
			err:  &net.OpError{Op: "read", Err: timeoutError{}},
			want: relay.ErrAbruptDisconnect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyReadError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err, "original error must stay inspectable")
		})
	}
}

func TestClassifyReadError_Unexpected(t *testing.T) {
	for _, err := range []error{websocket.ErrReadLimit, errors.New("something odd")} {
		got := classifyReadError(err)
		assert.Equal(t, err, got)
		assert.NotErrorIs(t, got, relay.ErrGracefulDisconnect)
		assert.NotErrorIs(t, got, relay.ErrAbruptDisconnect)
	}
}

func TestIsExpectedCloseError(t *testing.T) {
	assert.True(t, isExpectedCloseError(nil))
	assert.True(t, isExpectedCloseError(websocket.ErrCloseSent))
	assert.True(t, isExpectedCloseError(net.ErrClosed))
	assert.True(t, isExpectedCloseError(errors.New("write: broken pipe")))
	assert.False(t, isExpectedCloseError(errors.New("permission denied")))
}

func TestClient_SendQueue(t *testing.T) {
	c := &Client{
		id:   "test",
		send: make(chan relay.Message, 1),
		done: make(chan struct{}),
	}
	msg := relay.Message{Type: relay.TextMessage, Payload: []byte("x")}

	require.NoError(t, c.Send(context.Background(), msg))
	assert.ErrorIs(t, c.Send(context.Background(), msg), ErrSendQueueFull)

	<-c.send
	close(c.done)
	assert.ErrorIs(t, c.Send(context.Background(), msg), ErrClientClosed)
}

func TestClient_CloseDoesNotWaitForStalledPeer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WriteTimeout = 5 * time.Second
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	clients := make(chan *Client, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		clients <- NewClient(conn, r.RemoteAddr, cfg, logger)
	}))
	defer srv.Close()

	// The peer never reads, so large writes fill the socket buffers and block
	// the write pump.
	peer, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer peer.Close()

	client := <-clients
	payload := make([]byte, 16<<20)
	for i := 0; i < 3; i++ {
		require.NoError(t, client.Send(context.Background(), relay.Message{Type: relay.BinaryMessage, Payload: payload}))
	}
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	_ = client.Close()

	assert.Less(t, time.Since(start), 3*time.Second)
}
