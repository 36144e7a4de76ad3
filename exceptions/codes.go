package exceptions

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Transport error codes recognised by the classifier
const (
	CodeConnRefused = "ECONNREFUSED"
	CodeConnReset   = "ECONNRESET"
	CodeConnAborted = "ECONNABORTED"
	CodeTimedOut    = "ETIMEDOUT"
)

// TransportError attaches a transport error code to a raw failure
type TransportError struct {
	Op   string
	Code string
	Err  error
}

// NewTransportError wraps err, deriving the code from it when possible
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Code: CodeOf(err), Err: err}
}

// Error implements error interface
func (e *TransportError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the transport error code, empty when unknown
func (e *TransportError) ErrorCode() string {
	return e.Code
}

type coded interface {
	ErrorCode() string
}

var errnoCodes = []struct {
	errno syscall.Errno
	code  string
}{
	{syscall.ECONNREFUSED, CodeConnRefused},
	{syscall.ECONNRESET, CodeConnReset},
	{syscall.ECONNABORTED, CodeConnAborted},
	{syscall.ETIMEDOUT, CodeTimedOut},
}

// CodeOf extracts the transport error code carried by err.
// It returns an empty string when err carries no code.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}

	var c coded
	if errors.As(err, &c) {
		if code := c.ErrorCode(); code != "" {
			return code
		}
	}

	for _, e := range errnoCodes {
		if errors.Is(err, e.errno) {
			return e.code
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimedOut
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimedOut
	}

	return ""
}
