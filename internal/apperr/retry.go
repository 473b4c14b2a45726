package apperr

import (
	"context"
	"errors"
	"time"
)

// RetryConfig bounds the generic retry helper.
type RetryConfig struct {
	MaxAttempts int
	Backoff     time.Duration // wait before attempt n+1 is n*Backoff
}

// DefaultRetryConfig returns three attempts with one second linear backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, Backoff: time.Second}
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. Only network and rate_limit kinds are retried.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || !IsRetryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		wait := time.Duration(attempt) * cfg.Backoff
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.Wait > wait {
			wait = rl.Wait
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}
