package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dgnsrekt/charsync/internal/subscription"
)

// SubscriptionStore implements subscription.StateStore.
type SubscriptionStore struct {
	db *gorm.DB
}

func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

func (s *SubscriptionStore) Get(ctx context.Context, name string) (subscription.State, bool, error) {
	var rec SubscriptionRecord
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return subscription.State{}, false, nil
	}
	if err != nil {
		return subscription.State{}, false, fmt.Errorf("loading subscription %s: %w", name, err)
	}
	return subscription.State{
		Name:    rec.Name,
		Status:  subscription.Status(rec.Status),
		Version: rec.Version,
		Time:    time.Unix(0, rec.UpdatedAtNanos).UTC(),
	}, true, nil
}

func (s *SubscriptionStore) Save(ctx context.Context, st subscription.State) error {
	rec := SubscriptionRecord{
		Name:           st.Name,
		Status:         string(st.Status),
		Version:        st.Version,
		UpdatedAtNanos: st.Time.UnixNano(),
	}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("saving subscription %s: %w", st.Name, err)
	}
	return nil
}
