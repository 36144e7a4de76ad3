package interceptors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/contracts"
	"github.com/glimte/courier-go/exceptions"
	"github.com/glimte/courier-go/internal/reliability"
)

// OrderCircuitBreaker is the default position of the circuit breaker interceptor
const OrderCircuitBreaker = 330

// ErrCircuitOpen matches requests rejected by an open circuit
var ErrCircuitOpen = reliability.ErrCircuitOpen

// CircuitBreakerSettings configures the breaker kept for each host
type CircuitBreakerSettings struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that closes it again
	SuccessThreshold int
	// Timeout is how long the circuit stays open before probing
	Timeout time.Duration
	// HalfOpenRequests caps concurrent probes
	HalfOpenRequests int
}

// CircuitBreakerInterceptor stops sending requests to a host after
// repeated connect, socket or timeout failures or 5xx responses
type CircuitBreakerInterceptor struct {
	settings CircuitBreakerSettings
	logger   *slog.Logger
	order    int

	mu       sync.Mutex
	breakers map[string]*reliability.CircuitBreaker
}

// NewCircuitBreakerInterceptor creates a new circuit breaker interceptor.
// Zero settings take the breaker defaults.
func NewCircuitBreakerInterceptor(settings CircuitBreakerSettings) *CircuitBreakerInterceptor {
	return &CircuitBreakerInterceptor{
		settings: settings,
		logger:   slog.Default(),
		order:    OrderCircuitBreaker,
		breakers: make(map[string]*reliability.CircuitBreaker),
	}
}

// WithLogger sets the logger used for state changes
func (i *CircuitBreakerInterceptor) WithLogger(logger *slog.Logger) *CircuitBreakerInterceptor {
	if logger != nil {
		i.logger = logger
	}
	return i
}

// WithOrder moves the interceptor to another position
func (i *CircuitBreakerInterceptor) WithOrder(order int) *CircuitBreakerInterceptor {
	i.order = order
	return i
}

// Order implements Interceptor
func (i *CircuitBreakerInterceptor) Order() int {
	return i.order
}

// Init implements Interceptor
func (i *CircuitBreakerInterceptor) Init(config.Config) error {
	return nil
}

// Intercept implements Interceptor
func (i *CircuitBreakerInterceptor) Intercept(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error) {
	var resp *contracts.Response
	err := i.breaker(req).Execute(ctx, func() error {
		var err error
		resp, err = next.Handle(ctx, req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return &statusError{code: resp.StatusCode}
		}
		return nil
	})

	var se *statusError
	if errors.As(err, &se) && resp != nil {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Name implements Interceptor
func (i *CircuitBreakerInterceptor) Name() string {
	return "CircuitBreakerInterceptor"
}

// State returns the circuit state for host
func (i *CircuitBreakerInterceptor) State(host string) reliability.State {
	i.mu.Lock()
	cb, ok := i.breakers[host]
	i.mu.Unlock()
	if !ok {
		return reliability.StateClosed
	}
	return cb.State()
}

// OnStateChange implements reliability.StateChangeListener
func (i *CircuitBreakerInterceptor) OnStateChange(name string, from, to reliability.State, reason string) {
	i.logger.Warn("circuit breaker state changed",
		"host", name,
		"from", from.String(),
		"to", to.String(),
		"reason", reason,
	)
}

func (i *CircuitBreakerInterceptor) breaker(req *contracts.Request) *reliability.CircuitBreaker {
	host := ""
	if req.URL != nil {
		host = req.URL.Host
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if cb, ok := i.breakers[host]; ok {
		return cb
	}

	opts := []reliability.CircuitBreakerOption{
		reliability.WithName(host),
		reliability.WithListener(i),
		reliability.WithFailurePredicate(countsAsFailure),
	}
	if s := i.settings; s.FailureThreshold > 0 {
		opts = append(opts, reliability.WithFailureThreshold(s.FailureThreshold))
	}
	if s := i.settings; s.SuccessThreshold > 0 {
		opts = append(opts, reliability.WithSuccessThreshold(s.SuccessThreshold))
	}
	if s := i.settings; s.Timeout > 0 {
		opts = append(opts, reliability.WithTimeout(s.Timeout))
	}
	if s := i.settings; s.HalfOpenRequests > 0 {
		opts = append(opts, reliability.WithHalfOpenRequests(s.HalfOpenRequests))
	}

	cb := reliability.NewCircuitBreaker(opts...)
	i.breakers[host] = cb
	return cb
}

// countsAsFailure ignores caller cancellation and non transport failures
func countsAsFailure(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return true
	}
	return exceptions.IsRetryable(exceptions.Classify(nil, err))
}
