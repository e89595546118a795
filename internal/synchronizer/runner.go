package synchronizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/charsync/internal/entity"
	"github.com/dgnsrekt/charsync/internal/game"
	"github.com/dgnsrekt/charsync/internal/metrics"
	"github.com/dgnsrekt/charsync/internal/snapshot"
)

// Options tunes the shared fan-out and persistence stage.
type Options struct {
	// Workers caps concurrently processed entities; 0 leaves the fan-out
	// bounded only by the upstream throttles.
	Workers int
	// Buffer is the depth of the channel between fetchers and the writer.
	Buffer int
	// InsertBatch is the maximum number of snapshots per store insert.
	InsertBatch int
}

func (o Options) withDefaults() Options {
	if o.Buffer < 1 {
		o.Buffer = 20
	}
	if o.InsertBatch < 1 {
		o.InsertBatch = 10
	}
	return o
}

// EntityFunc builds the snapshot payload for one entity from its upstream
// data and its latest snapshot, which is nil when none exists.
type EntityFunc func(ctx context.Context, ent entity.TrackedEntity, prev *snapshot.Snapshot) (any, error)

// Runner fans entities of one game out to an EntityFunc and streams the
// finished snapshots through a bounded channel into a single writer.
type Runner struct {
	game   game.Game
	store  snapshot.Store
	opts   Options
	clock  func() time.Time
	logger *zap.Logger
}

func NewRunner(g game.Game, store snapshot.Store, opts Options, logger *zap.Logger) *Runner {
	return &Runner{
		game:   g,
		store:  store,
		opts:   opts.withDefaults(),
		clock:  time.Now,
		logger: logger.With(zap.String("game", g.String())),
	}
}

// Run processes every entity and returns the per-entity failures. It only
// returns an error when an entity of another game was passed in.
func (r *Runner) Run(ctx context.Context, entities []entity.TrackedEntity, fn EntityFunc) ([]Failure, error) {
	for _, ent := range entities {
		if ent.Game != r.game {
			return nil, fmt.Errorf("%w: %s is %s, expected %s", ErrWrongGame, ent.ID, ent.Game, r.game)
		}
	}
	if len(entities) == 0 {
		return nil, nil
	}

	start := time.Now()
	r.logger.Info("synchronization started", zap.Int("entities", len(entities)))

	var (
		mu       sync.Mutex
		failures []Failure
	)
	record := func(f Failure) {
		mu.Lock()
		failures = append(failures, f)
		mu.Unlock()
	}

	pending := make(chan snapshot.Snapshot, r.opts.Buffer)
	written := make(chan []Failure, 1)
	go func() {
		written <- r.write(ctx, pending)
	}()

	var g errgroup.Group
	if r.opts.Workers > 0 {
		g.SetLimit(r.opts.Workers)
	}
	for _, ent := range entities {
		g.Go(func() error {
			s, err := r.process(ctx, ent, fn)
			if err != nil {
				f := newFailure(ent.ID, err)
				r.logger.Warn("entity synchronization failed",
					zap.String("entity_id", ent.ID),
					zap.String("entity", ent.String()),
					zap.String("kind", string(f.Kind)),
					zap.Error(err),
				)
				record(f)
				return nil
			}

			select {
			case pending <- s:
			case <-ctx.Done():
				record(newFailure(ent.ID, ctx.Err()))
			}
			return nil
		})
	}
	_ = g.Wait()
	close(pending)

	for _, f := range <-written {
		record(f)
	}

	r.observe(len(entities), failures, time.Since(start))
	return failures, nil
}

func (r *Runner) process(ctx context.Context, ent entity.TrackedEntity, fn EntityFunc) (snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Snapshot{}, err
	}

	all, err := r.store.Get(ctx, ent.ID)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("%w: loading snapshots: %w", errStore, err)
	}
	var prev *snapshot.Snapshot
	if latest, ok := snapshot.Latest(all); ok {
		prev = &latest
	}

	payload, err := fn(ctx, ent, prev)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	data, err := snapshot.Encode(payload)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	return snapshot.Snapshot{
		EntityID:   ent.ID,
		Game:       r.game,
		Payload:    data,
		InsertedAt: r.clock().UTC(),
	}, nil
}

// write is the single consumer of pending. It batches whatever is already
// queued, up to InsertBatch, into one insert.
func (r *Runner) write(ctx context.Context, pending <-chan snapshot.Snapshot) []Failure {
	var failures []Failure
	for s := range pending {
		batch := make([]snapshot.Snapshot, 0, r.opts.InsertBatch)
		batch = append(batch, s)
	drain:
		for len(batch) < r.opts.InsertBatch {
			select {
			case next, ok := <-pending:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		failures = append(failures, r.flush(ctx, batch)...)
	}
	return failures
}

func (r *Runner) flush(ctx context.Context, batch []snapshot.Snapshot) []Failure {
	if err := r.store.Insert(ctx, batch); err != nil {
		r.logger.Error("snapshot insert failed", zap.Int("batch", len(batch)), zap.Error(err))
		failures := make([]Failure, 0, len(batch))
		for _, s := range batch {
			failures = append(failures, newFailure(s.EntityID, fmt.Errorf("%w: inserting snapshot: %w", errStore, err)))
		}
		return failures
	}
	metrics.SnapshotsInserted.WithLabelValues(r.game.String()).Add(float64(len(batch)))
	r.logger.Debug("snapshots inserted", zap.Int("batch", len(batch)))
	return nil
}

func (r *Runner) observe(total int, failures []Failure, elapsed time.Duration) {
	label := r.game.String()
	metrics.SyncDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	metrics.SyncOutcomes.WithLabelValues(label, "success").Add(float64(total - len(failures)))
	for _, f := range failures {
		metrics.SyncOutcomes.WithLabelValues(label, string(f.Kind)).Inc()
	}

	r.logger.Info("synchronization complete",
		zap.Int("entities", total),
		zap.Int("succeeded", total-len(failures)),
		zap.Int("failed", len(failures)),
		zap.Duration("duration", elapsed),
	)
}

// decodePrevious decodes the latest snapshot. An unreadable snapshot is
// logged and treated as absent.
func decodePrevious[T any](prev *snapshot.Snapshot, logger *zap.Logger) *T {
	if prev == nil {
		return nil
	}
	v, err := snapshot.Decode[T](*prev)
	if err != nil {
		logger.Warn("ignoring unreadable snapshot",
			zap.String("entity_id", prev.EntityID),
			zap.Error(err),
		)
		return nil
	}
	return &v
}

// fetchAll fetches every id concurrently. The first failure fails the whole
// set so an entity never gets a snapshot with missing sub-resources.
func fetchAll[T any](ctx context.Context, ids []string, fetch func(ctx context.Context, id string) (T, error)) (map[string]T, error) {
	out := make(map[string]T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			v, err := fetch(gctx, id)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", id, err)
			}
			mu.Lock()
			out[id] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
