package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGet_ComputesOncePerKey(t *testing.T) {
	c := New[string]("test")
	var calls atomic.Int32

	compute := func(context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "match-body", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background(), "EUW1_1", compute)
			if err != nil || v != "match-body" {
				t.Errorf("unexpected result %q, %v", v, err)
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected compute to run once, ran %d times", got)
	}

	stats := c.Stats()
	if stats.Misses != 1 || stats.Hits != 9 {
		t.Errorf("expected 1 miss / 9 hits, got %+v", stats)
	}
	if rate := stats.HitRate(); rate != 0.9 {
		t.Errorf("expected hit rate 0.9, got %f", rate)
	}
}

func TestGet_MemoizesErrors(t *testing.T) {
	c := New[int]("test")
	wantErr := errors.New("malformed")
	calls := 0

	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), "k", func(context.Context) (int, error) {
			calls++
			return 0, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected memoized error, got %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 compute, got %d", calls)
	}
}

func TestGet_DistinctKeys(t *testing.T) {
	c := New[int]("test")
	for i, key := range []string{"a", "b", "c"} {
		v, _ := c.Get(context.Background(), key, func(context.Context) (int, error) { return i, nil })
		if v != i {
			t.Errorf("key %s: expected %d, got %d", key, i, v)
		}
	}
	if c.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", c.Len())
	}
	if c.Stats().HitRate() != 0 {
		t.Errorf("expected zero hit rate, got %f", c.Stats().HitRate())
	}
}

func TestGet_RecomputesAfterCancellation(t *testing.T) {
	c := New[string]("test")
	calls := 0

	_, err := c.Get(context.Background(), "EUW1_1", func(context.Context) (string, error) {
		calls++
		return "", context.Canceled
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	v, err := c.Get(context.Background(), "EUW1_1", func(context.Context) (string, error) {
		calls++
		return "match-body", nil
	})
	if err != nil || v != "match-body" {
		t.Fatalf("expected recomputed value, got %q, %v", v, err)
	}
	if calls != 2 {
		t.Errorf("expected 2 computes, got %d", calls)
	}

	if _, err := c.Get(context.Background(), "EUW1_1", func(context.Context) (string, error) {
		t.Error("successful result should be cached")
		return "", nil
	}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
