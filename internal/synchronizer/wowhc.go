package synchronizer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/api"
	"github.com/dgnsrekt/charsync/internal/api/blizzard"
	"github.com/dgnsrekt/charsync/internal/dedup"
	"github.com/dgnsrekt/charsync/internal/entity"
	"github.com/dgnsrekt/charsync/internal/game"
	"github.com/dgnsrekt/charsync/internal/retry"
	"github.com/dgnsrekt/charsync/internal/snapshot"
)

// WowData is the snapshot payload of a WoW Classic hardcore character.
type WowData struct {
	Character blizzard.Character `json:"character"`
	Equipment []WowItem          `json:"equipment"`
	// Dead is terminal: once recorded the character is never refreshed again.
	Dead   bool       `json:"dead"`
	DiedAt *time.Time `json:"died_at,omitempty"`
}

// WowItem is one equipped item with its slot.
type WowItem struct {
	Slot     string        `json:"slot"`
	SlotName string        `json:"slot_name"`
	Item     blizzard.Item `json:"item"`
}

// WowHardcore synchronizes hardcore characters. Item definitions are static
// per region, so items already present in the previous snapshot are reused.
type WowHardcore struct {
	client   blizzard.Client
	entities entity.Repository
	runner   *Runner
	policy   retry.Policy
	clock    func() time.Time
	logger   *zap.Logger
}

// NewWowHardcore needs the entity repository to drop characters that vanish
// upstream before their first snapshot.
func NewWowHardcore(client blizzard.Client, entities entity.Repository, store snapshot.Store, policy retry.Policy, opts Options, logger *zap.Logger) *WowHardcore {
	return &WowHardcore{
		client:   client,
		entities: entities,
		runner:   NewRunner(game.WowHardcore, store, opts, logger),
		policy:   policy,
		clock:    time.Now,
		logger:   logger.With(zap.String("game", game.WowHardcore.String())),
	}
}

func (s *WowHardcore) Game() game.Game {
	return game.WowHardcore
}

func (s *WowHardcore) Synchronize(ctx context.Context, entities []entity.TrackedEntity) ([]Failure, error) {
	items := dedup.New[blizzard.Item]("wow_items")
	defer func() {
		items.Publish()
		st := items.Stats()
		s.logger.Debug("item cache",
			zap.Int64("hits", st.Hits),
			zap.Int64("misses", st.Misses),
			zap.Float64("hit_rate", st.HitRate()),
		)
	}()

	return s.runner.Run(ctx, entities, func(ctx context.Context, ent entity.TrackedEntity, prev *snapshot.Snapshot) (any, error) {
		return s.refresh(ctx, ent, prev, items)
	})
}

func (s *WowHardcore) refresh(ctx context.Context, ent entity.TrackedEntity, prevSnap *snapshot.Snapshot, items *dedup.Cache[blizzard.Item]) (WowData, error) {
	prev := decodePrevious[WowData](prevSnap, s.logger)
	if prev != nil && prev.Dead {
		return WowData{}, ErrTerminal
	}

	character, err := retry.Do(ctx, s.policy, "blizzard.character", func(ctx context.Context) (blizzard.Character, error) {
		return s.client.Character(ctx, ent.Region, ent.Realm, ent.Name)
	})
	if api.IsNotFound(err) {
		return s.missing(ctx, ent, prev)
	}
	if err != nil {
		return WowData{}, err
	}

	if character.IsGhost {
		data := WowData{Character: character, Equipment: []WowItem{}}
		if prev != nil {
			data.Equipment = prev.Equipment
		}
		s.markDead(&data, ent)
		return data, nil
	}

	equipment, err := retry.Do(ctx, s.policy, "blizzard.equipment", func(ctx context.Context) (blizzard.Equipment, error) {
		return s.client.Equipment(ctx, ent.Region, ent.Realm, ent.Name)
	})
	if api.IsNotFound(err) {
		// A character with nothing equipped has no equipment document.
		equipment, err = blizzard.Equipment{}, nil
	}
	if err != nil {
		return WowData{}, err
	}

	fresh := make([]string, 0, len(equipment.EquippedItems))
	for _, eq := range equipment.EquippedItems {
		fresh = append(fresh, strconv.FormatInt(eq.Item.ID, 10))
	}
	var existing []blizzard.Item
	if prev != nil {
		for _, it := range prev.Equipment {
			existing = append(existing, it.Item)
		}
	}
	plan := Diff(existing, itemID, fresh)

	fetched, err := fetchAll(ctx, plan.ToFetch(), func(_ context.Context, id string) (blizzard.Item, error) {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return blizzard.Item{}, fmt.Errorf("%w: item id %q", api.ErrMalformedResponse, id)
		}
		return items.Get(ctx, ent.Region+"/"+id, func(ctx context.Context) (blizzard.Item, error) {
			return retry.Do(ctx, s.policy, "blizzard.item", func(ctx context.Context) (blizzard.Item, error) {
				return s.client.Item(ctx, ent.Region, n)
			})
		})
	})
	if err != nil {
		return WowData{}, err
	}

	slots := make([]WowItem, 0, len(equipment.EquippedItems))
	for i, eq := range equipment.EquippedItems {
		item, ok := plan.Resolve(fresh[i], fetched)
		if !ok {
			continue
		}
		slots = append(slots, WowItem{Slot: eq.Slot.Type, SlotName: eq.Slot.Name, Item: item})
	}

	s.logger.Debug("character refreshed",
		zap.String("entity", ent.String()),
		zap.Int("level", character.Level),
		zap.Int("items", len(slots)),
		zap.Int("fetched", len(plan.ToFetch())),
	)
	return WowData{Character: character, Equipment: slots}, nil
}

// missing handles a character the upstream no longer knows. Hardcore
// characters are deleted on death, so a previously seen character is
// recorded dead; one never seen is dropped from tracking.
func (s *WowHardcore) missing(ctx context.Context, ent entity.TrackedEntity, prev *WowData) (WowData, error) {
	if prev == nil {
		if err := s.entities.Delete(ctx, ent.ID); err != nil {
			return WowData{}, fmt.Errorf("removing %s from tracking: %w", ent.ID, err)
		}
		s.logger.Info("character not found, removed from tracking", zap.String("entity", ent.String()))
		return WowData{}, ErrRemoved
	}

	data := *prev
	s.markDead(&data, ent)
	return data, nil
}

func (s *WowHardcore) markDead(data *WowData, ent entity.TrackedEntity) {
	died := s.clock().UTC()
	data.Dead = true
	data.DiedAt = &died
	s.logger.Info("character died", zap.String("entity", ent.String()), zap.Int("level", data.Character.Level))
}

func itemID(it blizzard.Item) string {
	return strconv.FormatInt(it.ID, 10)
}
