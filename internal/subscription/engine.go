// Package subscription advances named cursors over the event log, handing
// each event to a processing function in strict version order. A failing
// event halts the run and is retried on the next poll, which gives
// at-least-once, in-order delivery with no skipped versions.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/eventlog"
	"github.com/dgnsrekt/charsync/internal/metrics"
)

var (
	// ErrVersionGap is returned when the log hands back a non-contiguous version.
	ErrVersionGap = errors.New("subscription: event log version gap")
	// ErrFatal marks a processing error that no retry can fix, such as an
	// event for a game with no configured synchronizer. It halts the
	// subscription like any failure and is also returned to the caller.
	ErrFatal = errors.New("subscription: fatal processing error")
)

// ProcessFunc handles one event. A non-nil error halts the subscription at
// the previous version.
type ProcessFunc func(ctx context.Context, ev eventlog.EventWithVersion) error

// HaltFunc is called when a run moves the subscription into FAILED.
type HaltFunc func(ctx context.Context, s State, cause error)

type Engine struct {
	name    string
	log     eventlog.Reader
	states  StateStore
	process ProcessFunc
	onHalt  HaltFunc
	logger  *zap.Logger
	clock   func() time.Time
}

func NewEngine(name string, log eventlog.Reader, states StateStore, process ProcessFunc, logger *zap.Logger) *Engine {
	return &Engine{
		name:    name,
		log:     log,
		states:  states,
		process: process,
		logger:  logger.With(zap.String("subscription", name)),
		clock:   time.Now,
	}
}

// OnHalt registers fn to run on every WAITING to FAILED transition.
func (e *Engine) OnHalt(fn HaltFunc) {
	e.onHalt = fn
}

// Name returns the subscription name.
func (e *Engine) Name() string {
	return e.name
}

// Ensure registers the subscription at WAITING(0) unless it already exists.
func (e *Engine) Ensure(ctx context.Context) (State, error) {
	s, ok, err := e.states.Get(ctx, e.name)
	if err != nil {
		return State{}, fmt.Errorf("reading subscription state: %w", err)
	}
	if ok {
		return s, nil
	}

	s = State{Name: e.name, Status: StatusWaiting, Version: 0, Time: e.clock().UTC()}
	if err := e.states.Save(ctx, s); err != nil {
		return State{}, fmt.Errorf("registering subscription: %w", err)
	}
	e.logger.Info("subscription registered")
	return s, nil
}

// State returns the persisted state.
func (e *Engine) State(ctx context.Context) (State, error) {
	s, ok, err := e.states.Get(ctx, e.name)
	if err != nil {
		return State{}, fmt.Errorf("reading subscription state: %w", err)
	}
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrConfigurationMissing, e.name)
	}
	return s, nil
}

// ProcessPendingEvents processes every event after the committed version and
// persists the resulting state. Event failures are recorded in the state,
// not returned; the returned error covers configuration and storage faults.
func (e *Engine) ProcessPendingEvents(ctx context.Context) error {
	current, err := e.State(ctx)
	if err != nil {
		return err
	}

	events, err := e.log.Read(ctx, current.Version)
	if err != nil {
		return fmt.Errorf("reading events after %d: %w", current.Version, err)
	}

	cursor := current.Version
	var (
		failure error
		runErr  error
	)
	for _, ev := range events {
		if ev.Version != cursor+1 {
			runErr = fmt.Errorf("%w: expected %d, got %d", ErrVersionGap, cursor+1, ev.Version)
			failure = runErr
			break
		}

		if err := e.process(ctx, ev); err != nil {
			failure = err
			fields := []zap.Field{
				zap.Int64("version", ev.Version),
				zap.String("kind", string(ev.Event.Payload.Kind())),
				zap.Error(err),
			}
			if errors.Is(err, ErrFatal) {
				runErr = fmt.Errorf("processing event %d: %w", ev.Version, err)
				metrics.SubscriptionEvents.WithLabelValues(e.name, "fatal").Inc()
				e.logger.Error("event cannot be processed without operator action, halting subscription", fields...)
				break
			}
			metrics.SubscriptionEvents.WithLabelValues(e.name, "failed").Inc()
			e.logger.Warn("event processing failed, halting subscription", fields...)
			break
		}

		metrics.SubscriptionEvents.WithLabelValues(e.name, "processed").Inc()
		cursor = ev.Version
	}

	next := State{
		Name:    e.name,
		Status:  StatusWaiting,
		Version: cursor,
		Time:    e.clock().UTC(),
	}
	if failure != nil {
		next.Status = StatusFailed
	}

	// The cursor must survive a cancelled run.
	if err := e.states.Save(context.WithoutCancel(ctx), next); err != nil {
		return fmt.Errorf("persisting subscription state at %d: %w", cursor, err)
	}
	e.publish(next)
	if failure != nil && current.Status != StatusFailed && e.onHalt != nil {
		e.onHalt(ctx, next, failure)
	}

	if len(events) > 0 || current.Status != next.Status {
		e.logger.Info("subscription state persisted",
			zap.String("status", string(next.Status)),
			zap.Int64("from_version", current.Version),
			zap.Int64("version", next.Version),
			zap.Int("pending", len(events)),
		)
	}
	return runErr
}

func (e *Engine) publish(s State) {
	metrics.SubscriptionVersion.WithLabelValues(e.name).Set(float64(s.Version))
	failed := 0.0
	if s.Status == StatusFailed {
		failed = 1
	}
	metrics.SubscriptionFailed.WithLabelValues(e.name).Set(failed)
}
