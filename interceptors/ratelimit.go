package interceptors

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/contracts"
)

// OrderRateLimit is the default position of the rate limit interceptor
const OrderRateLimit = 310

// ErrRateLimited is returned by a non-blocking limiter when no token is available
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitInterceptor applies a token bucket per target host. By default
// a request waits for a token; the wait ends with the request context.
type RateLimitInterceptor struct {
	rps      float64
	burst    int
	order    int
	blocking bool

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// RateLimitOption configures the rate limit interceptor
type RateLimitOption func(*RateLimitInterceptor)

// WithNonBlocking fails requests with ErrRateLimited instead of waiting
func WithNonBlocking() RateLimitOption {
	return func(r *RateLimitInterceptor) {
		r.blocking = false
	}
}

// WithRateLimitOrder moves the interceptor to another position
func WithRateLimitOrder(order int) RateLimitOption {
	return func(r *RateLimitInterceptor) {
		r.order = order
	}
}

// NewRateLimitInterceptor allows rps requests per second to each host with
// the given burst. A non-positive burst defaults to rps, at least one.
func NewRateLimitInterceptor(rps float64, burst int, options ...RateLimitOption) *RateLimitInterceptor {
	if burst <= 0 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	r := &RateLimitInterceptor{
		rps:      rps,
		burst:    burst,
		order:    OrderRateLimit,
		blocking: true,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Order implements Interceptor
func (r *RateLimitInterceptor) Order() int {
	return r.order
}

// Init implements Interceptor
func (r *RateLimitInterceptor) Init(config.Config) error {
	if r.rps <= 0 {
		return fmt.Errorf("rate limit must be positive, got %v", r.rps)
	}
	return nil
}

// Intercept implements Interceptor
func (r *RateLimitInterceptor) Intercept(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error) {
	lim := r.limiter(req)
	if !r.blocking {
		if !lim.Allow() {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, req.Route())
		}
		return next.Handle(ctx, req)
	}

	if err := lim.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return next.Handle(ctx, req)
}

// Name implements Interceptor
func (r *RateLimitInterceptor) Name() string {
	return "RateLimitInterceptor"
}

func (r *RateLimitInterceptor) limiter(req *contracts.Request) *rate.Limiter {
	host := ""
	if req.URL != nil {
		host = req.URL.Host
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lim, ok := r.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(r.rps), r.burst)
		r.limiters[host] = lim
	}
	return lim
}
