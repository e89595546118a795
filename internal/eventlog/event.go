// Package eventlog defines the domain events that trigger synchronization and
// the append-only, globally ordered log that stores them.
package eventlog

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/dgnsrekt/charsync/internal/game"
)

// Kind discriminates event payloads.
type Kind string

const (
	KindViewCreated   Kind = "view_created"
	KindViewEdited    Kind = "view_edited"
	KindSyncRequested Kind = "sync_requested"
)

// Payload is implemented only by the event types of this package.
type Payload interface {
	Kind() Kind
	sealed()
}

// ViewCreated is emitted when a user creates a view over tracked entities.
type ViewCreated struct {
	ViewID    string    `json:"view_id"`
	Game      game.Game `json:"game"`
	EntityIDs []string  `json:"entity_ids"`
}

// ViewEdited is emitted when the entity set of a view changes.
type ViewEdited struct {
	ViewID    string    `json:"view_id"`
	Game      game.Game `json:"game"`
	EntityIDs []string  `json:"entity_ids"`
}

// SyncRequested asks for a refresh. No entity ids means every tracked entity
// of the game.
type SyncRequested struct {
	Game      game.Game `json:"game"`
	EntityIDs []string  `json:"entity_ids,omitempty"`
}

func (ViewCreated) Kind() Kind   { return KindViewCreated }
func (ViewEdited) Kind() Kind    { return KindViewEdited }
func (SyncRequested) Kind() Kind { return KindSyncRequested }

func (ViewCreated) sealed()   {}
func (ViewEdited) sealed()    {}
func (SyncRequested) sealed() {}

type Event struct {
	ID         string
	OccurredAt time.Time
	Payload    Payload
}

// New wraps a payload with a fresh id and timestamp.
func New(p Payload) Event {
	return Event{
		ID:         uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Payload:    p,
	}
}

// EventWithVersion is an event as read back from the log. Versions start at 1
// and are gapless.
type EventWithVersion struct {
	Version int64
	Event   Event
}

// MarshalPayload encodes a payload for storage.
func MarshalPayload(p Payload) (Kind, []byte, error) {
	if p == nil {
		return "", nil, fmt.Errorf("eventlog: nil payload")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", nil, fmt.Errorf("encoding %s payload: %w", p.Kind(), err)
	}
	return p.Kind(), b, nil
}

// UnmarshalPayload decodes a stored payload of the given kind.
func UnmarshalPayload(kind Kind, data []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch kind {
	case KindViewCreated:
		var v ViewCreated
		err = json.Unmarshal(data, &v)
		p = v
	case KindViewEdited:
		var v ViewEdited
		err = json.Unmarshal(data, &v)
		p = v
	case KindSyncRequested:
		var v SyncRequested
		err = json.Unmarshal(data, &v)
		p = v
	default:
		return nil, fmt.Errorf("eventlog: unknown event kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", kind, err)
	}
	return p, nil
}
