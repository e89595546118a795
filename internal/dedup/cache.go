// Package dedup provides the run-scoped cache that collapses identical
// sub-resource fetches made by concurrent entities of one synchronization
// batch into a single upstream call.
package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/dgnsrekt/charsync/internal/metrics"
)

type entry[V any] struct {
	value V
	err   error
}

// Cache memoizes compute results, errors included, for the lifetime of one
// run. Context errors are returned but not memoized. It is safe for concurrent use; concurrent callers for the same key wait
// for the first caller's in-flight computation.
type Cache[V any] struct {
	name    string
	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]entry[V]
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns an empty cache. name labels the hit/miss metrics.
func New[V any](name string) *Cache[V] {
	return &Cache[V]{
		name:    name,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the cached outcome for key, calling compute at most once per key.
func (c *Cache[V]) Get(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	if e, ok := c.lookup(key); ok {
		c.recordHit()
		return e.value, e.err
	}

	computed := false
	res, _, _ := c.group.Do(key, func() (interface{}, error) {
		// A caller may have finished and been forgotten by the group between
		// our lookup and Do.
		if e, ok := c.lookup(key); ok {
			return e, nil
		}
		computed = true
		v, err := compute(ctx)
		e := entry[V]{value: v, err: err}
		// A cancelled computation says nothing about the key itself.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return e, nil
		}
		c.mu.Lock()
		c.entries[key] = e
		c.mu.Unlock()
		return e, nil
	})

	if computed {
		c.recordMiss()
	} else {
		c.recordHit()
	}

	e := res.(entry[V])
	return e.value, e.err
}

func (c *Cache[V]) lookup(key string) (entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *Cache[V]) recordHit() {
	c.hits.Add(1)
	metrics.DedupLookups.WithLabelValues(c.name, "hit").Inc()
}

func (c *Cache[V]) recordMiss() {
	c.misses.Add(1)
	metrics.DedupLookups.WithLabelValues(c.name, "miss").Inc()
}

// Stats reports lookup counters.
type Stats struct {
	Hits   int64
	Misses int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the lookup counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Len returns the number of memoized keys.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Publish exports the current hit rate gauge.
func (c *Cache[V]) Publish() {
	metrics.DedupHitRate.WithLabelValues(c.name).Set(c.Stats().HitRate())
}
