package fishing

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryPolicy controls exponential backoff on rate-limit signals.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy allows three attempts with 1s and 2s delays between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// withRateLimitRetry runs fn until it succeeds, fails with something other than
// ErrRateLimited, or the attempt budget is spent. Only rate limits are retried.
func withRateLimitRetry[T any](ctx context.Context, policy RetryPolicy, sleep Sleeper, fn func(context.Context) (T, error)) (T, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrRateLimited) || attempt >= attempts-1 {
			return zero, err
		}

		delay := policy.BaseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}
