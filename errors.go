package lifo

import (
	"errors"
	"fmt"
)

var (
	// ErrInterrupted is returned when a blocked read or write is cancelled
	// through its context. The stack is left unmodified and the call may be
	// retried.
	ErrInterrupted = errors.New("lifo: interrupted")

	// ErrCopyFault is returned when bytes cannot be transferred to or from the
	// caller's buffer. Shared state is never touched when it is returned.
	ErrCopyFault = errors.New("lifo: bad transfer buffer")

	// ErrClosed is returned by operations on a closed handle or device.
	ErrClosed = errors.New("lifo: closed")

	// ErrNilNotifier is returned when subscribing with a nil Notifier.
	ErrNilNotifier = errors.New("lifo: nil notifier")

	// ErrProtocol is returned when a peer sends a frame that cannot be decoded
	// or names an unknown operation.
	ErrProtocol = errors.New("lifo: protocol error")
)

// Internal predicates. They never leave the Coordinator.
var (
	errFull      = errors.New("lifo: stack full")
	errEmpty     = errors.New("lifo: stack empty")
	errMalformed = errors.New("lifo: malformed value")
)

// interrupted wraps the context error so that callers can match either
// ErrInterrupted or context.Canceled / context.DeadlineExceeded.
func interrupted(cause error) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, cause)
}
