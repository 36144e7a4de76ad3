package exceptions

import (
	"errors"
	"fmt"
)

// Kind names an exception class
type Kind string

const (
	KindCancel  Kind = "RequestCancelException"
	KindConnect Kind = "ConnectException"
	KindSocket  Kind = "SocketException"
	KindTimeout Kind = "RequestTimeoutException"
	KindIO      Kind = "IOException"
)

// Sentinels for errors.Is matching by kind
var (
	ErrRequestCancel  = &Exception{Kind: KindCancel, Message: "request cancelled"}
	ErrConnect        = &Exception{Kind: KindConnect, Message: "connection refused"}
	ErrSocket         = &Exception{Kind: KindSocket, Message: "connection reset"}
	ErrRequestTimeout = &Exception{Kind: KindTimeout, Message: "request timed out"}
	ErrIO             = &Exception{Kind: KindIO, Message: "i/o failure"}
)

// Exception is a classified transport failure
type Exception struct {
	Kind      Kind
	Message   string
	Code      string
	RequestID string
	Route     string
	Cause     error
}

// Error implements error interface
func (e *Exception) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Route != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Route)
	}
	return msg
}

// Unwrap returns the raw failure
func (e *Exception) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another *Exception of the same kind
func (e *Exception) Is(target error) bool {
	if e == nil {
		return false
	}
	var other *Exception
	if errors.As(target, &other) && other != nil {
		return e.Kind == other.Kind
	}
	return false
}

// IsRetryable reports whether the failure is worth another transport attempt.
// Connect, socket and timeout exceptions are; cancellations and generic I/O
// failures are not.
func IsRetryable(err error) bool {
	var exc *Exception
	if !errors.As(err, &exc) || exc == nil {
		return false
	}
	switch exc.Kind {
	case KindConnect, KindSocket, KindTimeout:
		return true
	default:
		return false
	}
}
