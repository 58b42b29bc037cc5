package live

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned when the microphone cannot be acquired
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrSessionBusy is returned when another live session holds the microphone
	ErrSessionBusy = errors.New("another live session is active")

	// ErrTransport matches every TransportError via errors.Is
	ErrTransport = errors.New("transport error")

	// ErrIdleTimeout is the cause of a TransportError raised by the liveness check
	ErrIdleTimeout = errors.New("no message received within idle timeout")

	// ErrInvalidState is returned when an operation does not apply to the
	// current state
	ErrInvalidState = errors.New("invalid controller state")
)

// TransportError reports a connection failure or protocol error. It is
// fatal to the session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransport) match any TransportError
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
