// Package server manages individual WebSocket clients, handling the write
// pump, keepalive pings, and lifecycle control for each connection.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/echorelay/internal/relay"
)

// Client adapts one WebSocket connection to relay.Conn. Reads happen on the
// caller's goroutine through Receive; writes are queued and drained by a
// dedicated write pump so that a slow peer never blocks a broadcast.
type Client struct {
	id     string
	conn   *websocket.Conn
	addr   string
	send   chan relay.Message
	done   chan struct{}
	logger *slog.Logger

	pingInterval time.Duration
	pongWait     time.Duration
	writeWait    time.Duration

	closeOnce sync.Once
	closeErr  error
}

var _ relay.Conn = (*Client)(nil)

// closeGracePeriod bounds how long Close waits to send the close frame when
// the write pump is stuck on a stalled peer.
const closeGracePeriod = time.Second

// NewClient wraps conn, applies the read limit and keepalive settings from
// cfg, and starts the client's write pump.
func NewClient(conn *websocket.Conn, addr string, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()

	c := &Client{
		id:           id,
		conn:         conn,
		addr:         addr,
		send:         make(chan relay.Message, cfg.SendQueueSize),
		done:         make(chan struct{}),
		logger:       logger.With("conn_id", id, "remote_addr", addr),
		pingInterval: cfg.PingInterval,
		pongWait:     cfg.PingInterval + cfg.PingTimeout,
		writeWait:    cfg.WriteTimeout,
	}

	conn.SetReadLimit(cfg.MaxMessageSize)
	c.setupReadConnection()

	go c.writePump()
	return c
}

// ID returns the connection's unique identifier.
func (c *Client) ID() string { return c.id }

// RemoteAddr returns the peer address reported by the HTTP server.
func (c *Client) RemoteAddr() string { return c.addr }

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.logger.Warn("Error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})
}

// Receive blocks until the peer sends a data frame or the connection ends.
// It must only be called from one goroutine.
func (c *Client) Receive(_ context.Context) (relay.Message, error) {
	messageType, payload, err := c.conn.ReadMessage()
	if err != nil {
		return relay.Message{}, classifyReadError(err)
	}

	if messageType == websocket.BinaryMessage {
		return relay.Message{Type: relay.BinaryMessage, Payload: payload}, nil
	}
	return relay.Message{Type: relay.TextMessage, Payload: payload}, nil
}

// Send queues msg for the write pump without blocking.
func (c *Client) Send(_ context.Context, msg relay.Message) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendQueueFull
	}
}

// Close sends a going-away close frame and closes the underlying connection.
// Messages still queued are discarded. Close is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
		deadline := time.Now().Add(min(c.writeWait, closeGracePeriod))
		if err := c.conn.WriteControl(websocket.CloseMessage, closeMsg, deadline); err != nil && !isExpectedCloseError(err) {
			c.logger.Debug("Error writing close message", "error", err)
		}

		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.closeErr = err
		}
	})
	return c.closeErr
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case msg := <-c.send:
		return c.writeMessage(msg)
	case <-ticker.C:
		return c.writePing()
	case <-c.done:
		return false
	}
}

// writeMessage writes one payload as its own frame, keeping its frame type.
func (c *Client) writeMessage(msg relay.Message) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		c.logger.Warn("Error setting write deadline", "error", err)
		return false
	}

	frameType := websocket.TextMessage
	if msg.Type == relay.BinaryMessage {
		frameType = websocket.BinaryMessage
	}

	if err := c.conn.WriteMessage(frameType, msg.Payload); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("Error writing message", "error", err)
		}
		return false
	}
	return true
}

// writePing sends a ping message to keep the connection alive
func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		c.logger.Warn("Error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("Error writing ping message", "error", err)
		}
		return false
	}
	return true
}
