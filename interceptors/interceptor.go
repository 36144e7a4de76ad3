package interceptors

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/contracts"
)

// ErrNoTerminal is returned when a request falls off the end of the chain
// without any stage performing the call
var ErrNoTerminal = errors.New("interceptor chain has no terminal stage")

// Handler represents the rest of the chain as seen by one interceptor
type Handler interface {
	Handle(ctx context.Context, req *contracts.Request) (*contracts.Response, error)
}

// HandlerFunc is a function adapter for Handler
type HandlerFunc func(ctx context.Context, req *contracts.Request) (*contracts.Response, error)

// Handle implements Handler
func (f HandlerFunc) Handle(ctx context.Context, req *contracts.Request) (*contracts.Response, error) {
	return f(ctx, req)
}

// Interceptor is one stage of the request pipeline.
//
// Stages run in ascending Order on the way in and in reverse on the way
// out. An interceptor may transform the request before calling next, skip
// next entirely and answer itself, or transform the result on the way
// back. Interceptors are shared by every request of a client and must be
// safe for concurrent use.
type Interceptor interface {
	// Order positions the stage; lower values wrap higher ones
	Order() int

	// Init is called exactly once when a client is built
	Init(cfg config.Config) error

	// Intercept processes a request and usually calls next. Returning a
	// nil response with a nil error answers the request with an empty
	// 204 No Content response.
	Intercept(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error)

	// Name returns the interceptor name for logging and debugging
	Name() string
}

// InterceptorFunc is a function adapter for Interceptor
type InterceptorFunc struct {
	name  string
	order int
	fn    func(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error)
}

// NewInterceptorFunc creates a new function-based interceptor
func NewInterceptorFunc(name string, order int, fn func(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error)) *InterceptorFunc {
	return &InterceptorFunc{name: name, order: order, fn: fn}
}

// Order implements Interceptor
func (i *InterceptorFunc) Order() int {
	return i.order
}

// Init implements Interceptor
func (i *InterceptorFunc) Init(config.Config) error {
	return nil
}

// Intercept implements Interceptor
func (i *InterceptorFunc) Intercept(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error) {
	return i.fn(ctx, req, next)
}

// Name implements Interceptor
func (i *InterceptorFunc) Name() string {
	return i.name
}

// Terminator marks the stage that performs the call. It holds a reserved
// order like any other stage, but a chain always runs it after every other
// stage so that user stages wrap each transport attempt.
type Terminator interface {
	Interceptor
	IsTerminal() bool
}

// Chain runs an ordered, immutable sequence of interceptors around a request
type Chain struct {
	interceptors []Interceptor
}

// NewChain creates a chain sorted by ascending order, terminators last.
// Interceptors sharing an order keep their relative position.
func NewChain(interceptors ...Interceptor) *Chain {
	sorted := make([]Interceptor, len(interceptors))
	copy(sorted, interceptors)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := isTerminal(sorted[i]), isTerminal(sorted[j])
		if ti != tj {
			return tj
		}
		return sorted[i].Order() < sorted[j].Order()
	})
	return &Chain{interceptors: sorted}
}

func isTerminal(ic Interceptor) bool {
	t, ok := ic.(Terminator)
	return ok && t.IsTerminal()
}

// Execute runs the request through the chain. The result is whatever the
// outermost interceptor returns.
func (c *Chain) Execute(ctx context.Context, req *contracts.Request) (*contracts.Response, error) {
	return c.at(0).Handle(ctx, req)
}

func (c *Chain) at(i int) Handler {
	return HandlerFunc(func(ctx context.Context, req *contracts.Request) (*contracts.Response, error) {
		if i >= len(c.interceptors) {
			return nil, ErrNoTerminal
		}
		resp, err := c.interceptors[i].Intercept(ctx, req, c.at(i+1))
		if resp == nil && err == nil {
			resp = &contracts.Response{StatusCode: http.StatusNoContent, Request: req}
		}
		return resp, err
	})
}

// Interceptors returns the stages in execution order
func (c *Chain) Interceptors() []Interceptor {
	out := make([]Interceptor, len(c.interceptors))
	copy(out, c.interceptors)
	return out
}

// Len returns the number of interceptors in the chain
func (c *Chain) Len() int {
	return len(c.interceptors)
}
