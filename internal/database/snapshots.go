package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dgnsrekt/charsync/internal/game"
	"github.com/dgnsrekt/charsync/internal/snapshot"
)

// SnapshotStore implements snapshot.Store.
type SnapshotStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db, now: time.Now}
}

func (s *SnapshotStore) Get(ctx context.Context, entityID string) ([]snapshot.Snapshot, error) {
	var records []SnapshotRecord
	err := s.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("inserted_at_ns ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("loading snapshots for %s: %w", entityID, err)
	}

	out := make([]snapshot.Snapshot, 0, len(records))
	for _, r := range records {
		out = append(out, snapshot.Snapshot{
			EntityID:   r.EntityID,
			Game:       game.Game(r.Game),
			Payload:    []byte(r.PayloadJSON),
			InsertedAt: time.Unix(0, r.InsertedAtNanos).UTC(),
		})
	}
	return out, nil
}

// Insert writes the batch in one transaction.
func (s *SnapshotStore) Insert(ctx context.Context, snapshots []snapshot.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	records := make([]SnapshotRecord, 0, len(snapshots))
	for _, sn := range snapshots {
		records = append(records, SnapshotRecord{
			EntityID:        sn.EntityID,
			Game:            sn.Game.String(),
			PayloadJSON:     string(sn.Payload),
			InsertedAtNanos: sn.InsertedAt.UnixNano(),
		})
	}
	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return fmt.Errorf("inserting %d snapshots: %w", len(records), err)
	}
	return nil
}

func (s *SnapshotStore) DeleteExpired(ctx context.Context, ttl time.Duration, g game.Game, keepLast bool) (int64, error) {
	cutoff := s.now().Add(-ttl).UnixNano()

	q := s.db.WithContext(ctx).Where("inserted_at_ns < ?", cutoff)
	if g != "" {
		q = q.Where("game = ?", g.String())
	}
	if keepLast {
		q = q.Where(`id <> (
			SELECT newest.id FROM entity_snapshots AS newest
			WHERE newest.entity_id = entity_snapshots.entity_id
			ORDER BY newest.inserted_at_ns DESC, newest.id DESC
			LIMIT 1)`)
	}

	res := q.Delete(&SnapshotRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting expired snapshots: %w", res.Error)
	}
	return res.RowsAffected, nil
}
