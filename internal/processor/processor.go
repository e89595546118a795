// Package processor turns log events into synchronizer runs. Its Process
// method is the subscription engine's per-event callback.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/entity"
	"github.com/dgnsrekt/charsync/internal/eventlog"
	"github.com/dgnsrekt/charsync/internal/game"
	"github.com/dgnsrekt/charsync/internal/subscription"
	"github.com/dgnsrekt/charsync/internal/synchronizer"
)

// ErrRetryableFailures fails an event whose run left entities that may
// succeed on a later attempt.
var ErrRetryableFailures = errors.New("processor: synchronization left retryable failures")

// Reporter receives a summary of every run. notify.Notifier satisfies it.
type Reporter interface {
	SendSyncReport(ctx context.Context, summary *synchronizer.Summary, duration time.Duration) error
}

type Options struct {
	// FailOnRetryable fails the event when any entity failure is retryable,
	// so the subscription halts and replays the event on its next poll.
	FailOnRetryable bool
}

type Processor struct {
	entities entity.Repository
	registry *synchronizer.Registry
	reporter Reporter
	opts     Options
	logger   *zap.Logger
}

// New returns a processor. reporter may be nil.
func New(entities entity.Repository, registry *synchronizer.Registry, reporter Reporter, opts Options, logger *zap.Logger) *Processor {
	return &Processor{
		entities: entities,
		registry: registry,
		reporter: reporter,
		opts:     opts,
		logger:   logger,
	}
}

// Process resolves the entities an event refers to and synchronizes them.
func (p *Processor) Process(ctx context.Context, ev eventlog.EventWithVersion) error {
	g, ids, all, err := target(ev.Event.Payload)
	if err != nil {
		return fmt.Errorf("%w: %w", subscription.ErrFatal, err)
	}
	logger := p.logger.With(
		zap.Int64("version", ev.Version),
		zap.String("event_id", ev.Event.ID),
		zap.String("kind", string(ev.Event.Payload.Kind())),
		zap.String("game", g.String()),
	)

	syncer, err := p.registry.Get(g)
	if err != nil {
		return fmt.Errorf("%w: %w", subscription.ErrFatal, err)
	}

	entities, err := p.resolve(ctx, g, ids, all, logger)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		logger.Info("event has no tracked entities")
		return nil
	}

	start := time.Now()
	failures, err := syncer.Synchronize(ctx, entities)
	if err != nil {
		return fmt.Errorf("synchronizing %s: %w", g, err)
	}
	elapsed := time.Since(start)

	summary := synchronizer.Summarize(g, len(entities), failures)
	logger.Info("event processed",
		zap.Int("entities", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("skipped", summary.Skipped),
		zap.Int("removed", summary.Removed),
		zap.Int("failed", summary.Failed),
	)
	if p.reporter != nil {
		if err := p.reporter.SendSyncReport(ctx, summary, elapsed); err != nil {
			logger.Warn("failed to send sync report", zap.Error(err))
		}
	}

	if p.opts.FailOnRetryable {
		retryable := 0
		for _, f := range failures {
			if f.Retryable() {
				retryable++
			}
		}
		if retryable > 0 {
			return fmt.Errorf("%w: %d of %d entities", ErrRetryableFailures, retryable, len(entities))
		}
	}
	return nil
}

func (p *Processor) resolve(ctx context.Context, g game.Game, ids []string, all bool, logger *zap.Logger) ([]entity.TrackedEntity, error) {
	if all {
		entities, err := p.entities.ListByGame(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("listing %s entities: %w", g, err)
		}
		return entities, nil
	}

	seen := make(map[string]bool, len(ids))
	out := make([]entity.TrackedEntity, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		e, err := p.entities.Get(ctx, id, g)
		if err != nil {
			return nil, fmt.Errorf("loading entity %s: %w", id, err)
		}
		if e == nil {
			logger.Warn("skipping unknown entity", zap.String("entity_id", id))
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

// target returns the game and entity ids of a payload. all is set for a
// sync request without ids, which covers every tracked entity of the game.
func target(payload eventlog.Payload) (g game.Game, ids []string, all bool, err error) {
	switch p := payload.(type) {
	case eventlog.ViewCreated:
		return p.Game, p.EntityIDs, false, nil
	case eventlog.ViewEdited:
		return p.Game, p.EntityIDs, false, nil
	case eventlog.SyncRequested:
		return p.Game, p.EntityIDs, len(p.EntityIDs) == 0, nil
	default:
		return "", nil, false, fmt.Errorf("processor: unsupported event payload %T", payload)
	}
}
