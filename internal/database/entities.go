package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dgnsrekt/charsync/internal/entity"
	"github.com/dgnsrekt/charsync/internal/game"
)

// EntityRepository implements entity.Store.
type EntityRepository struct {
	db *gorm.DB
}

func NewEntityRepository(db *gorm.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

func (r *EntityRepository) Get(ctx context.Context, id string, g game.Game) (*entity.TrackedEntity, error) {
	var rec EntityRecord
	err := r.db.WithContext(ctx).Where("id = ? AND game = ?", id, g.String()).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading entity %s: %w", id, err)
	}
	e := toEntity(rec)
	return &e, nil
}

func (r *EntityRepository) ListByGame(ctx context.Context, g game.Game) ([]entity.TrackedEntity, error) {
	var records []EntityRecord
	if err := r.db.WithContext(ctx).Where("game = ?", g.String()).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing %s entities: %w", g, err)
	}
	out := make([]entity.TrackedEntity, 0, len(records))
	for _, rec := range records {
		out = append(out, toEntity(rec))
	}
	return out, nil
}

func (r *EntityRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&EntityRecord{}).Error; err != nil {
		return fmt.Errorf("deleting entity %s: %w", id, err)
	}
	return nil
}

// Save inserts or replaces the entity.
func (r *EntityRepository) Save(ctx context.Context, e entity.TrackedEntity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	rec := EntityRecord{
		ID:             e.ID,
		Game:           e.Game.String(),
		Region:         e.Region,
		Name:           e.Name,
		Realm:          e.Realm,
		Tag:            e.Tag,
		CreatedAtNanos: e.CreatedAt.UnixNano(),
	}
	if err := r.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("saving entity %s: %w", e.ID, err)
	}
	return nil
}

func toEntity(rec EntityRecord) entity.TrackedEntity {
	return entity.TrackedEntity{
		ID:        rec.ID,
		Game:      game.Game(rec.Game),
		Region:    rec.Region,
		Name:      rec.Name,
		Realm:     rec.Realm,
		Tag:       rec.Tag,
		CreatedAt: time.Unix(0, rec.CreatedAtNanos).UTC(),
	}
}
