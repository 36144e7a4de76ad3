package interceptors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/contracts"
	"github.com/glimte/courier-go/exceptions"
	"github.com/glimte/courier-go/internal/reliability"
)

// RetryInterceptor re-runs the inner stages for connect, socket and timeout
// failures and for configured response statuses. Cancelled requests are
// never retried. When attempts run out on a retryable status the last
// response is returned as is.
type RetryInterceptor struct {
	policy   reliability.RetryPolicy
	statuses map[int]struct{}
	logger   *slog.Logger
}

// NewRetryInterceptor creates a new retry interceptor. A nil policy is
// replaced at Init by exponential backoff built from the retry config.
func NewRetryInterceptor(policy reliability.RetryPolicy) *RetryInterceptor {
	return &RetryInterceptor{
		policy: policy,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the retry interceptor
func (r *RetryInterceptor) WithLogger(logger *slog.Logger) *RetryInterceptor {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Order implements Interceptor
func (r *RetryInterceptor) Order() int {
	return OrderRetry
}

// Init implements Interceptor
func (r *RetryInterceptor) Init(cfg config.Config) error {
	if r.policy == nil {
		rc := cfg.Retry
		r.policy = reliability.NewExponentialBackoff(rc.InitialInterval, rc.MaxInterval, rc.Multiplier, rc.MaxRetries)
	}
	r.statuses = make(map[int]struct{}, len(cfg.Retry.RetryStatuses))
	for _, code := range cfg.Retry.RetryStatuses {
		r.statuses[code] = struct{}{}
	}
	return nil
}

// Intercept implements Interceptor
func (r *RetryInterceptor) Intercept(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error) {
	var resp *contracts.Response
	policy := requestPolicy{RetryPolicy: r.policy, req: req}

	err := reliability.Retry(ctx, policy, func(attempt int) error {
		req.Attempt = attempt
		if attempt > 0 {
			r.logger.Debug("retrying request",
				"requestId", req.ID,
				"route", req.Route(),
				"attempt", attempt,
			)
		}

		var err error
		resp, err = next.Handle(ctx, req)
		if err != nil {
			resp = nil
			return err
		}
		if _, ok := r.statuses[resp.StatusCode]; ok {
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
func (r *RetryInterceptor) Name() string {
	return "RetryInterceptor"
}

// statusError marks a response whose status asks for a retry
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.code)
}

// requestPolicy narrows a policy to failures worth repeating for req
type requestPolicy struct {
	reliability.RetryPolicy
	req *contracts.Request
}

func (p requestPolicy) ShouldRetry(attempt int, err error) (bool, time.Duration) {
	if p.req.IsCancel() {
		return false, 0
	}
	var se *statusError
	if !errors.As(err, &se) && !exceptions.IsRetryable(exceptions.Classify(p.req, err)) {
		return false, 0
	}
	return p.RetryPolicy.ShouldRetry(attempt, err)
}
