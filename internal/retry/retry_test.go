package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	errFlaky = errors.New("flaky")
	errFatal = errors.New("fatal")
)

func testPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		Delay:       time.Millisecond,
		Retryable:   func(err error) bool { return errors.Is(err, errFlaky) },
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), testPolicy(3), "op", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errFlaky
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Errorf("expected ok, got %q", v)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ReturnsLastFailureWhenExhausted(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), testPolicy(2), "op", func(context.Context) (int, error) {
		calls++
		return 0, errFlaky
	})
	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected errFlaky, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDo_NonRetryableShortCircuits(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), testPolicy(5), "op", func(context.Context) (int, error) {
		calls++
		return 0, errFatal
	})
	if !errors.Is(err, errFatal) {
		t.Fatalf("expected errFatal, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := testPolicy(5)
	p.Delay = time.Hour

	_, err := Do(ctx, p, "op", func(context.Context) (int, error) {
		cancel()
		return 0, errFlaky
	})
	if err == nil {
		t.Fatal("expected an error after cancellation")
	}
}

func TestDo_ZeroDelay(t *testing.T) {
	p := testPolicy(3)
	p.Delay = 0

	calls := 0
	v, err := Do(context.Background(), p, "op", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errFlaky
		}
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("expected ok, got %q, %v", v, err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ZeroValuePolicy(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, "op", func(context.Context) (int, error) {
		calls++
		return 0, errFlaky
	})
	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected errFlaky, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}
