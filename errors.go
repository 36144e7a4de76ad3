package courier

import (
	"errors"
	"fmt"
)

// Usage error kinds. Every *UsageError matches exactly one of them via errors.Is.
var (
	ErrIllegalState    = errors.New("illegal state")
	ErrIllegalArgument = errors.New("illegal argument")
	ErrType            = errors.New("type error")
)

// ErrPanic wraps a panic recovered while a request was in flight
var ErrPanic = errors.New("panic in interceptor chain")

// UsageError reports a programming mistake in how the library is used.
// Registration and build return it; a broken call site panics with it.
type UsageError struct {
	Kind error
	Op   string
	Err  error
}

func (e *UsageError) Error() string {
	msg := fmt.Sprintf("courier: %v: %s", e.Kind, e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *UsageError) Unwrap() error {
	return e.Err
}

// Is matches the usage kind
func (e *UsageError) Is(target error) bool {
	return target == e.Kind
}

func usageError(kind error, op string, err error) *UsageError {
	return &UsageError{Kind: kind, Op: op, Err: err}
}

// StatusError is returned by Call.Decode for responses outside 2xx
type StatusError struct {
	StatusCode int
	Route      string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.Route)
}
