package relay

import (
	"errors"
	"fmt"

	"github.com/Tyrowin/echorelay/internal/registry"
)

var (
	// ErrDuplicateConnection means Serve was called twice for the same
	// connection ID.
	ErrDuplicateConnection = registry.ErrDuplicateConnection

	// ErrGracefulDisconnect is wrapped by transports when the peer closed
	// its channel cleanly.
	ErrGracefulDisconnect = errors.New("peer closed connection")

	// ErrAbruptDisconnect is wrapped by transports when the channel was
	// closed or reset without a clean closing handshake.
	ErrAbruptDisconnect = errors.New("connection closed abruptly")

	// ErrUnexpectedFailure marks any other error that ended a connection.
	ErrUnexpectedFailure = errors.New("unexpected connection failure")

	// ErrDeliveryFailure is matched by every *DeliveryError.
	ErrDeliveryFailure = errors.New("delivery failed")

	// ErrShuttingDown is returned by Serve once Shutdown has begun.
	ErrShuttingDown = errors.New("relay is shutting down")
)

// DeliveryError reports that sending one broadcast to one member failed.
type DeliveryError struct {
	ConnID string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.ConnID, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailure, e.Err}
}

// Outcome is the reason a connection's receive loop ended.
type Outcome int

const (
	// OutcomeGraceful means the peer closed the channel cleanly.
	OutcomeGraceful Outcome = iota
	// OutcomeAbrupt means the channel broke without a closing handshake.
	OutcomeAbrupt
	// OutcomeUnexpected covers every other failure, including panics raised
	// by the transport.
	OutcomeUnexpected
	// OutcomeCanceled means the server ended the connection, either because
	// the caller's context was canceled or because of Shutdown.
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeGraceful:
		return "graceful"
	case OutcomeAbrupt:
		return "abrupt"
	case OutcomeUnexpected:
		return "unexpected"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}
