package signaling

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport means the relay connection or a subscription could not be
	// confirmed. It is fatal to role startup.
	ErrTransport = errors.New("signaling transport failed")

	// ErrSend means a single signal was not acknowledged by the relay.
	ErrSend = errors.New("signal not delivered")

	ErrClosed         = errors.New("signaling client closed")
	ErrConnectionLost = errors.New("relay connection lost")
	ErrInvalidSignal  = errors.New("invalid signal")
)

// Error ties a sentinel to the operation and topic that produced it. Both the
// sentinel and the underlying cause are reachable with errors.Is.
type Error struct {
	Op    string
	Topic string
	Err   error
	Cause error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Topic != "" {
		msg += " " + e.Topic
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v: %v", msg, e.Err, e.Cause)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func transportError(op, topic string, cause error) *Error {
	return &Error{Op: op, Topic: topic, Err: ErrTransport, Cause: cause}
}

func sendError(op, topic string, cause error) *Error {
	return &Error{Op: op, Topic: topic, Err: ErrSend, Cause: cause}
}
