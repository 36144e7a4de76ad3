package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff(t *testing.T) {
	t.Run("creates with correct defaults", func(t *testing.T) {
		eb := NewExponentialBackoff(100*time.Millisecond, 5*time.Second, 2.0, 3)

		assert.Equal(t, 100*time.Millisecond, eb.InitialInterval)
		assert.Equal(t, 5*time.Second, eb.MaxInterval)
		assert.Equal(t, 2.0, eb.Multiplier)
		assert.Equal(t, 3, eb.MaxRetries())
		assert.True(t, eb.Jitter)
		assert.Nil(t, eb.Retryable)
	})

	t.Run("ShouldRetry respects max retries", func(t *testing.T) {
		eb := NewExponentialBackoff(100*time.Millisecond, time.Second, 2.0, 3)

		for i := 0; i < 3; i++ {
			shouldRetry, delay := eb.ShouldRetry(i, errors.New("test"))
			assert.True(t, shouldRetry)
			assert.Greater(t, delay, time.Duration(0))
		}

		shouldRetry, delay := eb.ShouldRetry(3, errors.New("test"))
		assert.False(t, shouldRetry)
		assert.Equal(t, time.Duration(0), delay)
	})

	t.Run("ShouldRetry consults the retryable predicate", func(t *testing.T) {
		fatal := errors.New("fatal")
		eb := NewExponentialBackoff(time.Millisecond, time.Second, 2.0, 3)
		eb.Retryable = func(err error) bool { return !errors.Is(err, fatal) }

		retry, _ := eb.ShouldRetry(0, fatal)
		assert.False(t, retry)
		retry, _ = eb.ShouldRetry(0, errors.New("transient"))
		assert.True(t, retry)
		retry, _ = eb.ShouldRetry(0, nil)
		assert.False(t, retry)
	})

	t.Run("NextDelay calculates exponential backoff", func(t *testing.T) {
		eb := NewExponentialBackoff(100*time.Millisecond, 10*time.Second, 2.0, 5)
		eb.Jitter = false

		tests := []struct {
			attempt  int
			expected time.Duration
		}{
			{0, 100 * time.Millisecond},
			{1, 200 * time.Millisecond},
			{2, 400 * time.Millisecond},
			{3, 800 * time.Millisecond},
			{10, 10 * time.Second},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.expected, eb.NextDelay(tt.attempt))
		}
	})

	t.Run("NextDelay with jitter stays within 15 percent", func(t *testing.T) {
		eb := NewExponentialBackoff(time.Second, 10*time.Second, 2.0, 5)

		for i := 0; i < 20; i++ {
			delay := eb.NextDelay(0)
			assert.GreaterOrEqual(t, delay, 850*time.Millisecond)
			assert.LessOrEqual(t, delay, 1150*time.Millisecond)
		}
	})
}

func TestFixedDelay(t *testing.T) {
	fd := NewFixedDelay(50*time.Millisecond, 2)

	retry, delay := fd.ShouldRetry(0, errors.New("x"))
	assert.True(t, retry)
	assert.Equal(t, 50*time.Millisecond, delay)

	retry, _ = fd.ShouldRetry(2, errors.New("x"))
	assert.False(t, retry)
	assert.Equal(t, 2, fd.MaxRetries())
	assert.Equal(t, 50*time.Millisecond, fd.NextDelay(7))

	fd.Retryable = func(error) bool { return false }
	retry, _ = fd.ShouldRetry(0, errors.New("x"))
	assert.False(t, retry)
}

func TestNoRetry(t *testing.T) {
	retry, delay := NoRetry{}.ShouldRetry(0, errors.New("x"))
	assert.False(t, retry)
	assert.Zero(t, delay)
	assert.Zero(t, NoRetry{}.MaxRetries())
}

func TestRetry(t *testing.T) {
	t.Run("succeeds on first attempt", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), NewFixedDelay(time.Millisecond, 3), func(attempt int) error {
			calls++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries until success and passes the attempt", func(t *testing.T) {
		var attempts []int
		err := Retry(context.Background(), NewFixedDelay(time.Millisecond, 3), func(attempt int) error {
			attempts = append(attempts, attempt)
			if attempt < 2 {
				return errors.New("transient")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, attempts)
	})

	t.Run("returns the last raw error when exhausted", func(t *testing.T) {
		last := errors.New("attempt 2")
		err := Retry(context.Background(), NewFixedDelay(time.Millisecond, 2), func(attempt int) error {
			if attempt == 2 {
				return last
			}
			return errors.New("earlier")
		})
		assert.Same(t, last, err)
	})

	t.Run("does not retry non retryable errors", func(t *testing.T) {
		policy := NewFixedDelay(time.Millisecond, 5)
		policy.Retryable = func(error) bool { return false }
		calls := 0
		err := Retry(context.Background(), policy, func(int) error {
			calls++
			return errors.New("fatal")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops waiting when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := Retry(ctx, NewFixedDelay(time.Hour, 5), func(int) error {
			calls++
			cancel()
			return errors.New("transient")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("does not start when the context is already done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := Retry(ctx, NoRetry{}, func(int) error {
			calls++
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls)
	})
}
