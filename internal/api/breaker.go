package api

import (
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/metrics"
)

// BreakerConfig configures the circuit guarding one upstream.
type BreakerConfig struct {
	Enabled     bool
	MinRequests uint32
	// FailureRatio at or above which the circuit opens.
	FailureRatio float64
	Interval     time.Duration
	OpenTimeout  time.Duration
}

// Breaker stops calling an upstream that keeps failing transiently. Domain
// errors such as not-found do not count as failures.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

// NewBreaker returns nil when the breaker is disabled.
func NewBreaker(name string, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	if !cfg.Enabled {
		return nil
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("upstream", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &Breaker{cb: cb}
}

// Execute runs fn through the circuit. A rejected call is reported as
// transient so the retry policy can try again after its delay.
func (b *Breaker) Execute(fn func() error) error {
	if b == nil {
		return fn()
	}
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
