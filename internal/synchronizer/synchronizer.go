// Package synchronizer refreshes tracked entities from their upstream game
// APIs and appends the results to the snapshot store. Entities are processed
// independently: one entity's failure never affects another's snapshot.
package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgnsrekt/charsync/internal/api"
	"github.com/dgnsrekt/charsync/internal/entity"
	"github.com/dgnsrekt/charsync/internal/game"
	"github.com/dgnsrekt/charsync/internal/throttle"
)

var (
	// ErrWrongGame is returned when an entity is handed to another game's
	// synchronizer.
	ErrWrongGame = errors.New("synchronizer: entity belongs to another game")
	// ErrNoSynchronizer is returned by the registry for an unregistered game.
	ErrNoSynchronizer = errors.New("synchronizer: no synchronizer registered for game")

	// ErrTerminal marks an entity whose last snapshot records a terminal
	// state; it is skipped without any upstream call.
	ErrTerminal = errors.New("entity is in a terminal state")
	// ErrRemoved marks an entity deleted from tracking because the upstream
	// no longer knows it and no snapshot was ever taken.
	ErrRemoved = errors.New("entity removed from tracking")

	errStore = errors.New("snapshot store failure")
)

// Synchronizer refreshes the entities of one game.
type Synchronizer interface {
	Game() game.Game
	// Synchronize appends a snapshot for every entity it could refresh and
	// returns the per-entity failures. The error is reserved for faults that
	// prevented the batch from running at all.
	Synchronize(ctx context.Context, entities []entity.TrackedEntity) ([]Failure, error)
}

// Kind classifies a per-entity failure.
type Kind string

const (
	KindTransient   Kind = "transient"
	KindRateLimited Kind = "rate_limited"
	KindMalformed   Kind = "malformed_response"
	KindNotFound    Kind = "not_found"
	KindAuth        Kind = "auth_failed"
	KindTerminal    Kind = "terminal"
	KindRemoved     Kind = "removed"
	KindStore       Kind = "store"
	KindCancelled   Kind = "cancelled"
	KindInternal    Kind = "internal"
)

// Failure is the per-entity error outcome of a run.
type Failure struct {
	EntityID string
	Kind     Kind
	Err      error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.EntityID, f.Kind, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether running the entity again later may succeed.
func (f Failure) Retryable() bool {
	switch f.Kind {
	case KindTransient, KindRateLimited, KindStore, KindCancelled:
		return true
	default:
		return false
	}
}

func newFailure(entityID string, err error) Failure {
	return Failure{EntityID: entityID, Kind: classify(err), Err: err}
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrTerminal):
		return KindTerminal
	case errors.Is(err, ErrRemoved):
		return KindRemoved
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, errStore):
		return KindStore
	case errors.Is(err, api.ErrNotFound):
		return KindNotFound
	case errors.Is(err, api.ErrRateLimited), errors.Is(err, throttle.ErrBackpressure):
		return KindRateLimited
	case errors.Is(err, api.ErrTransient):
		return KindTransient
	case errors.Is(err, api.ErrMalformedResponse):
		return KindMalformed
	case errors.Is(err, api.ErrAuthFailed):
		return KindAuth
	default:
		return KindInternal
	}
}

// Registry maps each game to its synchronizer.
type Registry struct {
	byGame map[game.Game]Synchronizer
}

func NewRegistry(syncs ...Synchronizer) *Registry {
	r := &Registry{byGame: make(map[game.Game]Synchronizer, len(syncs))}
	for _, s := range syncs {
		r.byGame[s.Game()] = s
	}
	return r
}

func (r *Registry) Get(g game.Game) (Synchronizer, error) {
	s, ok := r.byGame[g]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSynchronizer, g)
	}
	return s, nil
}

// Games lists registered games in a stable order.
func (r *Registry) Games() []game.Game {
	out := make([]game.Game, 0, len(r.byGame))
	for g := range r.byGame {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Summary aggregates one run for reporting.
type Summary struct {
	Game      game.Game
	Total     int
	Succeeded int
	Skipped   int
	Removed   int
	Failed    int
	Errors    []string
}

// Summarize builds a Summary from the run's entity count and failures.
// Terminal skips and removals are counted apart from failures.
func Summarize(g game.Game, total int, failures []Failure) *Summary {
	s := &Summary{Game: g, Total: total}
	for _, f := range failures {
		switch f.Kind {
		case KindTerminal:
			s.Skipped++
		case KindRemoved:
			s.Removed++
		default:
			s.Failed++
			s.Errors = append(s.Errors, f.Error())
		}
	}
	s.Succeeded = total - len(failures)
	return s
}
