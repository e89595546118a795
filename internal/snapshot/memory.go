package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/dgnsrekt/charsync/internal/game"
)

type bucket struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

// MemoryStore keeps snapshots in process. Appends for different entities only
// contend on the bucket lookup, not on each other's bucket.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (m *MemoryStore) bucket(entityID string, create bool) *bucket {
	m.mu.RLock()
	b, ok := m.buckets[entityID]
	m.mu.RUnlock()
	if ok || !create {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok = m.buckets[entityID]; !ok {
		b = &bucket{}
		m.buckets[entityID] = b
	}
	return b
}

func (m *MemoryStore) Get(_ context.Context, entityID string) ([]Snapshot, error) {
	b := m.bucket(entityID, false)
	if b == nil {
		return nil, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Snapshot, len(b.snapshots))
	copy(out, b.snapshots)
	return out, nil
}

// Insert appends the whole batch, or nothing if ctx is already done.
func (m *MemoryStore) Insert(ctx context.Context, snapshots []Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, s := range snapshots {
		s.Payload = append([]byte(nil), s.Payload...)
		b := m.bucket(s.EntityID, true)
		b.mu.Lock()
		b.snapshots = append(b.snapshots, s)
		b.mu.Unlock()
	}
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, ttl time.Duration, g game.Game, keepLast bool) (int64, error) {
	cutoff := m.now().Add(-ttl)

	m.mu.RLock()
	buckets := make([]*bucket, 0, len(m.buckets))
	for _, b := range m.buckets {
		buckets = append(buckets, b)
	}
	m.mu.RUnlock()

	var deleted int64
	for _, b := range buckets {
		b.mu.Lock()
		latest, _ := Latest(b.snapshots)
		kept := b.snapshots[:0]
		for _, s := range b.snapshots {
			expired := s.InsertedAt.Before(cutoff) && (g == "" || s.Game == g)
			isLatest := keepLast && s.InsertedAt.Equal(latest.InsertedAt)
			if expired && !isLatest {
				deleted++
				continue
			}
			kept = append(kept, s)
		}
		b.snapshots = kept
		b.mu.Unlock()
	}
	return deleted, nil
}
