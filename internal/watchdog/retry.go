package watchdog

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/charliek/revive/internal/config"
	"github.com/charliek/revive/internal/domain"
)

// RetryPolicy bounds how often a provider call is repeated during recovery.
// Only errors classified as transient are retried; everything else fails on
// the first attempt.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// NewRetryPolicy builds a policy from configuration
func NewRetryPolicy(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{MaxAttempts: cfg.MaxAttempts, Backoff: cfg.Backoff}
}

// Retry runs fn under policy p. It returns the result of the first
// successful attempt, or the last error together with the number of
// attempts made.
func Retry[T any](ctx context.Context, p RetryPolicy, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, int, error) {
	attempts := 0
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	operation := func() (T, error) {
		attempts++
		res, err := fn(ctx)
		if err != nil && !domain.IsRetryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Backoff)),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("provider call failed, retrying",
				"operation", op,
				"attempt", attempts,
				"max_attempts", maxAttempts,
				"retry_in", next,
				"error", err)
		}),
	)
	return res, attempts, err
}
