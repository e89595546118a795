// Package throttle bounds the call rate of each upstream dependency with a
// token bucket. Each upstream gets its own Throttle so a saturated API never
// delays calls to an unrelated one.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgnsrekt/charsync/internal/metrics"
)

// ErrBackpressure is returned when no permit becomes available within the
// throttle's wait bound.
var ErrBackpressure = errors.New("throttle: no permit available within wait bound")

// DefaultMaxWait bounds Acquire when New is given no positive wait.
const DefaultMaxWait = 30 * time.Second

// Throttle hands out permits permits per window.
type Throttle struct {
	name    string
	limiter *rate.Limiter
	maxWait time.Duration
}

// New creates a throttle allowing permits calls per window. Callers wait at
// most maxWait for a permit, or DefaultMaxWait if maxWait is not positive.
func New(name string, permits int, window, maxWait time.Duration) *Throttle {
	if permits < 1 {
		permits = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Throttle{
		name:    name,
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(permits)), permits),
		maxWait: maxWait,
	}
}

// Name returns the upstream this throttle guards.
func (t *Throttle) Name() string {
	return t.name
}

// Acquire blocks until a permit is available. It fails with ErrBackpressure
// once the wait would exceed the bound, and with the context error if ctx is
// cancelled first.
func (t *Throttle) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, t.maxWait)
	defer cancel()

	if err := t.limiter.Wait(waitCtx); err != nil {
		// Parent cancellation is not backpressure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		metrics.ThrottleRejections.WithLabelValues(t.name).Inc()
		return fmt.Errorf("%w (%s, waited up to %s): %v", ErrBackpressure, t.name, t.maxWait, err)
	}
	return nil
}
