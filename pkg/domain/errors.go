package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrDuplicateTool is returned when a tool name is registered twice.
var ErrDuplicateTool = errors.New("duplicate tool")

// ErrToolNotFound is returned when a call names a tool that is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ErrRegistrySealed is returned when registering after the registry was sealed for serving.
var ErrRegistrySealed = errors.New("registry sealed")

// ErrTimeout is returned when a call exceeds its deadline.
var ErrTimeout = errors.New("call timed out")

// ErrResultTooLarge is the failure reported when an encoded result does not fit in one message.
var ErrResultTooLarge = errors.New("result exceeds max message size")

// ErrTransport marks connection, framing and envelope failures.
// Use errors.Is(err, ErrTransport) to detect any *TransportError.
var ErrTransport = errors.New("transport error")

// ErrBenchmarkUnavailable is returned when a transport's endpoint cannot be reached
// at benchmark start.
var ErrBenchmarkUnavailable = errors.New("transport unavailable")

// ErrIssueNotFound is returned by issue trackers when the issue number is unknown.
var ErrIssueNotFound = errors.New("issue not found")

// HandlerError wraps a failure raised by a tool implementation.
// It never crosses the wire as a transport fault: dispatch converts it into a failed result.
type HandlerError struct {
	Tool  string
	Cause error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Cause)
}

func (e *HandlerError) Unwrap() error {
	return e.Cause
}

// TransportError reports a connection, framing or envelope failure observed by a client.
type TransportError struct {
	Op    string // e.g. "dial", "write", "read", "decode"
	Cause error
}

func (e *TransportError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("transport %s failed", e.Op)
	}
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is makes every TransportError match ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// NewTransportError wraps cause as a TransportError for operation op.
func NewTransportError(op string, cause error) error {
	return &TransportError{Op: op, Cause: cause}
}

// IsTimeout reports whether err is a call timeout, either ErrTimeout or an expired context.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
