package relay

import "context"

// MessageType distinguishes text frames from binary frames so that a payload
// leaves the relay in the same form it arrived.
type MessageType int

const (
	// TextMessage is a UTF-8 text payload.
	TextMessage MessageType = iota + 1
	// BinaryMessage is an opaque binary payload.
	BinaryMessage
)

func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	default:
		return "unknown"
	}
}

// Message is one opaque payload. The relay never inspects or rewrites it and
// the same Payload slice is handed to every recipient, so Conn
// implementations must treat it as read-only.
type Message struct {
	Type    MessageType
	Payload []byte
}

// Conn is one client's bidirectional channel as seen by the coordinator. It
// is owned by the transport; the coordinator only borrows it while the
// connection is active.
type Conn interface {
	// ID uniquely identifies the connection for its whole lifetime.
	ID() string
	// RemoteAddr is used for logging only.
	RemoteAddr() string
	// Receive blocks until the next inbound message arrives or the channel
	// ends. Close signals must wrap ErrGracefulDisconnect or
	// ErrAbruptDisconnect; any other error is treated as unexpected.
	Receive(ctx context.Context) (Message, error)
	// Send submits msg for delivery to the peer. It may fail if the peer is
	// gone and must be safe to call concurrently with Receive and Close.
	Send(ctx context.Context, msg Message) error
	// Close releases the channel. It must be idempotent and unblock a
	// pending Receive.
	Close() error
}
