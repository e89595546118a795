package eventlog

import (
	"context"
	"sync"
)

// Reader is the part of the log a subscription consumes.
type Reader interface {
	// Read returns every event with version > afterVersion, ascending.
	Read(ctx context.Context, afterVersion int64) ([]EventWithVersion, error)
}

// Log is the append-only event store.
type Log interface {
	Reader
	Append(ctx context.Context, e Event) (EventWithVersion, error)
}

// MemoryLog is an in-process Log. The slice index is version-1.
type MemoryLog struct {
	mu     sync.RWMutex
	events []EventWithVersion
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(_ context.Context, e Event) (EventWithVersion, error) {
	if _, _, err := MarshalPayload(e.Payload); err != nil {
		return EventWithVersion{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ev := EventWithVersion{Version: int64(len(l.events)) + 1, Event: e}
	l.events = append(l.events, ev)
	return ev, nil
}

func (l *MemoryLog) Read(_ context.Context, afterVersion int64) ([]EventWithVersion, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if afterVersion < 0 {
		afterVersion = 0
	}
	if afterVersion >= int64(len(l.events)) {
		return nil, nil
	}
	out := make([]EventWithVersion, len(l.events)-int(afterVersion))
	copy(out, l.events[afterVersion:])
	return out, nil
}
