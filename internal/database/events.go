package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dgnsrekt/charsync/internal/eventlog"
)

// EventLog implements eventlog.Log.
type EventLog struct {
	db *gorm.DB
}

func NewEventLog(db *gorm.DB) *EventLog {
	return &EventLog{db: db}
}

// Append assigns the next version inside the insert transaction.
func (l *EventLog) Append(ctx context.Context, e eventlog.Event) (eventlog.EventWithVersion, error) {
	kind, payload, err := eventlog.MarshalPayload(e.Payload)
	if err != nil {
		return eventlog.EventWithVersion{}, err
	}
	rec := EventRecord{
		EventID:         e.ID,
		Kind:            string(kind),
		PayloadJSON:     string(payload),
		OccurredAtNanos: e.OccurredAt.UnixNano(),
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int64
		if err := tx.Model(&EventRecord{}).Select("COALESCE(MAX(version), 0)").Scan(&last).Error; err != nil {
			return err
		}
		rec.Version = last + 1
		return tx.Create(&rec).Error
	})
	if err != nil {
		return eventlog.EventWithVersion{}, fmt.Errorf("appending %s event: %w", kind, err)
	}
	return eventlog.EventWithVersion{Version: rec.Version, Event: e}, nil
}

func (l *EventLog) Read(ctx context.Context, afterVersion int64) ([]eventlog.EventWithVersion, error) {
	var records []EventRecord
	err := l.db.WithContext(ctx).
		Where("version > ?", afterVersion).
		Order("version ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("reading events after %d: %w", afterVersion, err)
	}

	out := make([]eventlog.EventWithVersion, 0, len(records))
	for _, rec := range records {
		payload, err := eventlog.UnmarshalPayload(eventlog.Kind(rec.Kind), []byte(rec.PayloadJSON))
		if err != nil {
			return nil, fmt.Errorf("event version %d: %w", rec.Version, err)
		}
		out = append(out, eventlog.EventWithVersion{
			Version: rec.Version,
			Event: eventlog.Event{
				ID:         rec.EventID,
				OccurredAt: time.Unix(0, rec.OccurredAtNanos).UTC(),
				Payload:    payload,
			},
		})
	}
	return out, nil
}
