package interceptors

import (
	"context"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/contracts"
)

// Transport performs a single request. *httpengine.Engine implements it.
type Transport interface {
	Do(ctx context.Context, req *contracts.Request) (*contracts.Response, error)
}

// RealCallInterceptor is the terminal stage. It hands the request to the
// transport and never calls next.
type RealCallInterceptor struct {
	transport Transport
}

// NewRealCallInterceptor creates the terminal interceptor for transport
func NewRealCallInterceptor(transport Transport) *RealCallInterceptor {
	return &RealCallInterceptor{transport: transport}
}

// Order implements Interceptor
func (i *RealCallInterceptor) Order() int {
	return OrderRealCall
}

// Init implements Interceptor
func (i *RealCallInterceptor) Init(config.Config) error {
	return nil
}

// Intercept implements Interceptor
func (i *RealCallInterceptor) Intercept(ctx context.Context, req *contracts.Request, _ Handler) (*contracts.Response, error) {
	if req.IsCancel() {
		return nil, req.CancelCause()
	}
	return i.transport.Do(ctx, req)
}

// IsTerminal implements Terminator
func (i *RealCallInterceptor) IsTerminal() bool {
	return true
}

// Name implements Interceptor
func (i *RealCallInterceptor) Name() string {
	return "RealCallInterceptor"
}
