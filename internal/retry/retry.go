// Package retry wraps fallible calls with a bounded fixed-delay retry policy.
package retry

import (
	"context"
	"time"

	goretry "github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/metrics"
)

// Policy retries transient failures up to MaxAttempts total attempts,
// sleeping Delay between attempts. Errors for which Retryable returns false
// are returned immediately without consuming an attempt.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   func(error) bool
	Logger      *zap.Logger
}

// Do runs fn under the policy. After the final attempt the last failure is
// returned unchanged.
func Do[T any](ctx context.Context, p Policy, operation string, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	backoff := goretry.WithMaxRetries(uint64(attempts-1), constant(p.Delay))

	var (
		result  T
		attempt int
	)
	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.RetryAttempts.WithLabelValues(operation).Inc()
			logger.Debug("retrying",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
			)
		}

		v, err := fn(ctx)
		if err != nil {
			if p.Retryable != nil && p.Retryable(err) {
				return goretry.RetryableError(err)
			}
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// constant is goretry.NewConstant without its panic on a non-positive delay.
func constant(d time.Duration) goretry.Backoff {
	if d <= 0 {
		return goretry.BackoffFunc(func() (time.Duration, bool) {
			return 0, false
		})
	}
	return goretry.NewConstant(d)
}
