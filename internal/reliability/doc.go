// Package reliability provides the retry and circuit breaking primitives
// used by courier's built-in interceptors.
//
// This package implements:
//   - Retry Policies: exponential backoff with jitter and fixed delay
//   - Retry: a context-aware retry loop that preserves the last raw error
//   - Circuit Breaker: stops calling a failing upstream until it recovers
//
// Whether a failure is worth retrying is decided by a Retryable predicate
// supplied by the caller, so the classification of transport failures stays
// in one place.
//
// Example usage:
//
//	policy := reliability.NewExponentialBackoff(100*time.Millisecond, 2*time.Second, 2.0, 3)
//	policy.Retryable = exceptions.IsRetryable
//	err := reliability.Retry(ctx, policy, func(attempt int) error {
//	    return doAttempt(attempt)
//	})
package reliability
