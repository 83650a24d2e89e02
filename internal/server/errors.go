// Package server maps gorilla/websocket failures onto the relay's disconnect
// taxonomy.
package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/echorelay/internal/relay"
)

var (
	// ErrClientClosed is returned by Send after the client has been closed.
	ErrClientClosed = errors.New("client closed")
	// ErrSendQueueFull is returned by Send when the outbound queue is full.
	ErrSendQueueFull = errors.New("send queue full")
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer")
}

// classifyReadError wraps a read failure in relay.ErrGracefulDisconnect or
// relay.ErrAbruptDisconnect. Errors that are neither are returned unchanged
// and treated as unexpected by the coordinator.
func classifyReadError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		// 1005 is an empty close frame, as sent by a browser's ws.close().
		case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
			return fmt.Errorf("%w: %w", relay.ErrGracefulDisconnect, err)
		default:
			return fmt.Errorf("%w: %w", relay.ErrAbruptDisconnect, err)
		}
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		return err
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || isExpectedCloseError(err) {
		return fmt.Errorf("%w: %w", relay.ErrAbruptDisconnect, err)
	}

	// A read deadline expiring means the peer stopped answering pings.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: keepalive timeout: %w", relay.ErrAbruptDisconnect, err)
	}

	return err
}
