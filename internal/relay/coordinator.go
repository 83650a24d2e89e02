package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Tyrowin/echorelay/internal/registry"
)

// Coordinator owns the connection registry and runs the per-connection
// receive loops that feed broadcasts.
type Coordinator struct {
	registry *registry.Registry[Conn]
	logger   *slog.Logger
	observer Observer

	limit rate.Limit
	burst int

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver sets the sink for lifecycle and delivery events.
func WithObserver(observer Observer) Option {
	return func(c *Coordinator) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// WithRateLimit caps how many inbound messages per second each connection may
// broadcast. Messages over the limit are dropped; the connection stays open.
// A limit of zero or less disables rate limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Coordinator) {
		if perSecond <= 0 {
			c.limit = 0
			return
		}
		if burst <= 0 {
			burst = max(1, int(perSecond))
		}
		c.limit = rate.Limit(perSecond)
		c.burst = burst
	}
}

// NewCoordinator creates a Coordinator with an empty registry.
func NewCoordinator(opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		registry: registry.New[Conn](),
		logger:   slog.Default(),
		observer: nopObserver{},
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Serve runs the full lifecycle of conn: it registers the connection,
// broadcasts every inbound message until the channel ends, and removes the
// connection again. It blocks until the connection is closed.
//
// Serve returns nil when the peer closed cleanly or the connection was
// canceled by ctx or Shutdown. Abrupt closes wrap ErrAbruptDisconnect and
// everything else wraps ErrUnexpectedFailure.
func (c *Coordinator) Serve(ctx context.Context, conn Conn) (err error) {
	if !c.track() {
		_ = conn.Close()
		return ErrShuttingDown
	}
	defer c.wg.Done()

	log := c.logger.With("conn_id", conn.ID(), "remote_addr", conn.RemoteAddr())

	if err := c.registry.Add(conn); err != nil {
		log.Error("Refusing to register connection", "error", err)
		return err
	}
	c.observer.ConnectionOpened()
	log.Info("Client connected", "connections", c.registry.Len())

	connCtx, cancel := context.WithCancel(ctx)
	stopShutdownWatch := context.AfterFunc(c.ctx, cancel)
	// Closing the channel is what unblocks a pending Receive.
	stopCloseWatch := context.AfterFunc(connCtx, func() { _ = conn.Close() })

	outcome := OutcomeUnexpected
	var cause error

	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeUnexpected
			cause = fmt.Errorf("%w: panic: %v", ErrUnexpectedFailure, r)
		}

		stopShutdownWatch()
		stopCloseWatch()
		cancel()

		if c.registry.Remove(conn) {
			c.observer.ConnectionClosed(outcome)
		}
		if closeErr := conn.Close(); closeErr != nil {
			log.Debug("Error closing connection", "error", closeErr)
		}

		c.logOutcome(log, outcome, cause)
		log.Info("Client removed", "connections", c.registry.Len())

		err = serveError(outcome, cause)
	}()

	outcome, cause = c.receiveLoop(connCtx, conn, log)
	return nil
}

func (c *Coordinator) receiveLoop(ctx context.Context, conn Conn, log *slog.Logger) (Outcome, error) {
	var limiter *rate.Limiter
	if c.limit > 0 {
		limiter = rate.NewLimiter(c.limit, c.burst)
	}

	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			return classify(ctx, err), err
		}
		c.observer.MessageReceived()

		if limiter != nil && !limiter.Allow() {
			c.observer.MessageDropped()
			log.Warn("Rate limit exceeded; discarding message",
				"limit", float64(c.limit), "burst", c.burst)
			continue
		}

		c.Broadcast(ctx, msg)
	}
}

// classify maps a Receive error to an Outcome. Cancellation wins because a
// connection closed by the server surfaces as a transport error.
func classify(ctx context.Context, err error) Outcome {
	switch {
	case ctx.Err() != nil:
		return OutcomeCanceled
	case errors.Is(err, ErrGracefulDisconnect):
		return OutcomeGraceful
	case errors.Is(err, ErrAbruptDisconnect):
		return OutcomeAbrupt
	default:
		return OutcomeUnexpected
	}
}

func serveError(outcome Outcome, cause error) error {
	switch outcome {
	case OutcomeGraceful, OutcomeCanceled:
		return nil
	case OutcomeAbrupt:
		return cause
	default:
		if cause == nil || errors.Is(cause, ErrUnexpectedFailure) {
			return cause
		}
		return fmt.Errorf("%w: %w", ErrUnexpectedFailure, cause)
	}
}

func (c *Coordinator) logOutcome(log *slog.Logger, outcome Outcome, cause error) {
	switch outcome {
	case OutcomeGraceful:
		log.Info("Client disconnected (graceful close)", "reason", cause)
	case OutcomeAbrupt:
		log.Warn("Client disconnected (abrupt close)", "reason", cause)
	case OutcomeCanceled:
		log.Info("Connection closed by server")
	default:
		log.Error("Connection failed", "error", cause)
	}
}

// Broadcast sends msg to every connection in a snapshot of the registry and
// returns how many deliveries succeeded. A failed delivery is logged and
// skipped; it never stops delivery to the remaining members.
func (c *Coordinator) Broadcast(ctx context.Context, msg Message) int {
	members := c.registry.Snapshot()

	delivered := 0
	for _, member := range members {
		if err := deliver(ctx, member, msg); err != nil {
			c.observer.DeliveryFailed()
			c.logger.Warn("Broadcast delivery failed", "conn_id", member.ID(), "error", err)
			continue
		}
		c.observer.Delivered()
		delivered++
	}

	c.logger.Debug("Broadcast message",
		"type", msg.Type.String(),
		"bytes", len(msg.Payload),
		"recipients", len(members),
		"delivered", delivered)
	return delivered
}

func deliver(ctx context.Context, member Conn, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DeliveryError{ConnID: member.ID(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := member.Send(ctx, msg); err != nil {
		return &DeliveryError{ConnID: member.ID(), Err: err}
	}
	return nil
}

// Len returns the number of registered connections.
func (c *Coordinator) Len() int {
	return c.registry.Len()
}

// Members returns the IDs of the currently registered connections.
func (c *Coordinator) Members() []string {
	snapshot := c.registry.Snapshot()
	ids := make([]string, len(snapshot))
	for i, conn := range snapshot {
		ids[i] = conn.ID()
	}
	return ids
}

func (c *Coordinator) track() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return false
	}
	c.wg.Add(1)
	return true
}

// Shutdown stops accepting new connections, closes every active one and waits
// for their receive loops to finish. It returns context.DeadlineExceeded if
// the loops are still running after timeout.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()

	c.logger.Info("Shutting down relay", "connections", c.registry.Len())
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Relay shutdown completed")
		return nil
	case <-time.After(timeout):
		c.logger.Warn("Relay shutdown timed out; some connections may still be closing",
			"connections", c.registry.Len(), "remaining", c.Members())
		return context.DeadlineExceeded
	}
}
