package subscription

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrConfigurationMissing is returned when a subscription has never been
// registered. It is fatal and never retried.
var ErrConfigurationMissing = errors.New("subscription: no state registered")

type Status string

const (
	StatusWaiting Status = "WAITING"
	StatusFailed  Status = "FAILED"
)

// State is the persisted cursor of a named subscription. Version is the last
// successfully processed event version and never decreases.
type State struct {
	Name    string
	Status  Status
	Version int64
	Time    time.Time
}

// StateStore persists subscription cursors.
type StateStore interface {
	// Get reports ok=false when the subscription is unknown.
	Get(ctx context.Context, name string) (State, bool, error)
	Save(ctx context.Context, s State) error
}

// MemoryStateStore is an in-process StateStore.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]State
}

func NewMemoryStateStore(states ...State) *MemoryStateStore {
	m := &MemoryStateStore{states: make(map[string]State)}
	for _, s := range states {
		m.states[s.Name] = s
	}
	return m
}

func (m *MemoryStateStore) Get(_ context.Context, name string) (State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[name]
	return s, ok, nil
}

func (m *MemoryStateStore) Save(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s.Name] = s
	return nil
}
