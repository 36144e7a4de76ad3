package contracts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrCancelled is the cause attached to a request cancelled by its caller.
// It matches context.Canceled.
var ErrCancelled = fmt.Errorf("request cancelled: %w", context.Canceled)

// Request describes one outgoing call. It is built once per service method
// invocation and carries its own cancellation scope.
type Request struct {
	ID        string
	Method    string
	URL       *url.URL
	Header    http.Header
	Body      []byte
	Metadata  *MethodMetadata
	CreatedAt time.Time

	// Attempt is the zero based transport attempt, maintained by the retry stage
	Attempt int

	ctx       context.Context
	cancel    context.CancelCauseFunc
	once      sync.Once
	cancelled atomic.Bool
}

// NewRequest creates a request whose context derives from parent
func NewRequest(parent context.Context, method, rawURL string, body []byte) (*Request, error) {
	if parent == nil {
		parent = context.Background()
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid request url %q: %w", rawURL, err)
	}

	ctx, cancel := context.WithCancelCause(parent)
	return &Request{
		ID:        uuid.New().String(),
		Method:    method,
		URL:       u,
		Header:    make(http.Header),
		Body:      body,
		CreatedAt: time.Now().UTC(),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Context returns the request scoped context. It is done once the caller
// cancels the request or the request has been released.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// Cancel marks the request as cancelled by the caller and aborts any
// in-flight transport operation. Only the first call has an effect.
func (r *Request) Cancel(message string) {
	r.once.Do(func() {
		r.cancelled.Store(true)
		if r.cancel != nil {
			r.cancel(fmt.Errorf("%w: %s", ErrCancelled, message))
		}
	})
}

// IsCancel reports whether the caller asked for cancellation
func (r *Request) IsCancel() bool {
	return r.cancelled.Load()
}

// CancelCause returns the cancellation cause, or nil if the caller never cancelled
func (r *Request) CancelCause() error {
	if !r.IsCancel() {
		return nil
	}
	return context.Cause(r.Context())
}

// Release frees the context resources once the request has settled.
// It does not mark the request as cancelled.
func (r *Request) Release() {
	if r.cancel != nil {
		r.cancel(nil)
	}
}

// SetHeader sets a header value and returns the request for chaining
func (r *Request) SetHeader(key, value string) *Request {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
	return r
}

// Route returns "METHOD host/path" for logs and metrics
func (r *Request) Route() string {
	if r.URL == nil {
		return r.Method
	}
	return r.Method + " " + r.URL.Host + r.URL.Path
}
