// Package snapshot defines the append-only store of timestamped entity
// snapshots. A snapshot is never updated once written; the current snapshot
// of an entity is the one with the latest InsertedAt.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dgnsrekt/charsync/internal/game"
)

// ErrCorrupt marks a stored payload that can no longer be decoded.
var ErrCorrupt = errors.New("snapshot: payload cannot be decoded")

type Snapshot struct {
	EntityID   string
	Game       game.Game
	Payload    []byte
	InsertedAt time.Time
}

// Store is the snapshot persistence boundary.
type Store interface {
	// Get returns every snapshot of the entity in insertion order.
	Get(ctx context.Context, entityID string) ([]Snapshot, error)
	Insert(ctx context.Context, snapshots []Snapshot) error
	// DeleteExpired removes snapshots inserted more than ttl ago. An empty g
	// matches every game. With keepLast the newest snapshot of each entity is
	// preserved regardless of age.
	DeleteExpired(ctx context.Context, ttl time.Duration, g game.Game, keepLast bool) (int64, error)
}

// Latest returns the snapshot with the greatest InsertedAt. Ties go to the
// later element.
func Latest(snapshots []Snapshot) (Snapshot, bool) {
	if len(snapshots) == 0 {
		return Snapshot{}, false
	}
	latest := snapshots[0]
	for _, s := range snapshots[1:] {
		if !s.InsertedAt.Before(latest.InsertedAt) {
			latest = s
		}
	}
	return latest, true
}

// Current loads the entity's latest snapshot.
func Current(ctx context.Context, store Store, entityID string) (Snapshot, bool, error) {
	all, err := store.Get(ctx, entityID)
	if err != nil {
		return Snapshot{}, false, err
	}
	s, ok := Latest(all)
	return s, ok, nil
}

// Encode serializes a domain payload.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot payload: %w", err)
	}
	return b, nil
}

// Decode deserializes a payload, wrapping failures in ErrCorrupt.
func Decode[T any](s Snapshot) (T, error) {
	var v T
	if err := json.Unmarshal(s.Payload, &v); err != nil {
		return v, fmt.Errorf("%w: entity %s at %s: %v", ErrCorrupt, s.EntityID, s.InsertedAt.Format(time.RFC3339), err)
	}
	return v, nil
}
