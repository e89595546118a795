package entity

import (
	"context"
	"sort"
	"sync"

	"github.com/dgnsrekt/charsync/internal/game"
)

// MemoryRepository is an in-process Store.
type MemoryRepository struct {
	mu       sync.RWMutex
	entities map[string]TrackedEntity
}

func NewMemoryRepository(entities ...TrackedEntity) *MemoryRepository {
	r := &MemoryRepository{entities: make(map[string]TrackedEntity)}
	for _, e := range entities {
		r.entities[e.ID] = e
	}
	return r
}

func (r *MemoryRepository) Get(_ context.Context, id string, g game.Game) (*TrackedEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	if !ok || e.Game != g {
		return nil, nil
	}
	return &e, nil
}

func (r *MemoryRepository) ListByGame(_ context.Context, g game.Game) ([]TrackedEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []TrackedEntity
	for _, e := range r.entities {
		if e.Game == g {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entities, id)
	return nil
}

func (r *MemoryRepository) Save(_ context.Context, e TrackedEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[e.ID] = e
	return nil
}
