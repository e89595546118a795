package synchronizer

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/api"
	"github.com/dgnsrekt/charsync/internal/api/blizzard"
	"github.com/dgnsrekt/charsync/internal/entity"
	"github.com/dgnsrekt/charsync/internal/game"
	"github.com/dgnsrekt/charsync/internal/snapshot"
)

type fakeBlizzard struct {
	mu        sync.Mutex
	chars     map[string]blizzard.Character // by name
	equipment map[string][]int64
	calls     map[string]int
}

func newFakeBlizzard() *fakeBlizzard {
	return &fakeBlizzard{
		chars:     make(map[string]blizzard.Character),
		equipment: make(map[string][]int64),
		calls:     make(map[string]int),
	}
}

func (f *fakeBlizzard) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeBlizzard) Character(_ context.Context, _, _, name string) (blizzard.Character, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["character"]++
	c, ok := f.chars[name]
	if !ok {
		return blizzard.Character{}, api.ErrNotFound
	}
	return c, nil
}

func (f *fakeBlizzard) Equipment(_ context.Context, _, _, name string) (blizzard.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["equipment"]++
	ids, ok := f.equipment[name]
	if !ok {
		return blizzard.Equipment{}, api.ErrNotFound
	}
	var eq blizzard.Equipment
	for _, id := range ids {
		var it blizzard.EquippedItem
		it.Item.ID = id
		eq.EquippedItems = append(eq.EquippedItems, it)
	}
	return eq, nil
}

func (f *fakeBlizzard) Item(_ context.Context, _ string, itemID int64) (blizzard.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["item"]++
	return blizzard.Item{ID: itemID, Name: "item"}, nil
}

func wowEntity(t *testing.T, name string) entity.TrackedEntity {
	t.Helper()
	e, err := entity.New(game.WowHardcore, "eu", name, "Soulseeker", "")
	if err != nil {
		t.Fatalf("entity.New: %v", err)
	}
	return e
}

func latestWow(t *testing.T, store snapshot.Store, id string) WowData {
	t.Helper()
	s, ok, err := snapshot.Current(context.Background(), store, id)
	if err != nil || !ok {
		t.Fatalf("expected snapshot for %s, ok=%v err=%v", id, ok, err)
	}
	data, err := snapshot.Decode[WowData](s)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return data
}

func TestWowHardcore_ReusesItemsAcrossRunsAndEntities(t *testing.T) {
	client := newFakeBlizzard()
	client.chars["grom"] = blizzard.Character{Name: "grom", Level: 40}
	client.chars["thrall"] = blizzard.Character{Name: "thrall", Level: 41}
	client.equipment["grom"] = []int64{1, 2}
	client.equipment["thrall"] = []int64{2, 3}
	store := snapshot.NewMemoryStore()
	a, b := wowEntity(t, "grom"), wowEntity(t, "thrall")
	repo := entity.NewMemoryRepository(a, b)
	s := NewWowHardcore(client, repo, store, testPolicy(), Options{}, zap.NewNop())
	ctx := context.Background()

	failures, err := s.Synchronize(ctx, []entity.TrackedEntity{a, b})
	if err != nil || len(failures) != 0 {
		t.Fatalf("expected clean run, failures=%v err=%v", failures, err)
	}
	if n := client.callCount("item"); n != 3 {
		t.Errorf("expected 3 distinct item fetches, got %d", n)
	}

	if _, err := s.Synchronize(ctx, []entity.TrackedEntity{a, b}); err != nil {
		t.Fatal(err)
	}
	if n := client.callCount("item"); n != 3 {
		t.Errorf("expected no item fetches on unchanged equipment, got %d", n)
	}
	if eq := latestWow(t, store, a.ID).Equipment; len(eq) != 2 || eq[0].Item.ID != 1 {
		t.Errorf("unexpected equipment %+v", eq)
	}
}

func TestWowHardcore_DeadCharacterIsTerminal(t *testing.T) {
	client := newFakeBlizzard()
	client.chars["grom"] = blizzard.Character{Name: "grom", Level: 30, IsGhost: true}
	store := snapshot.NewMemoryStore()
	ent := wowEntity(t, "grom")
	s := NewWowHardcore(client, entity.NewMemoryRepository(ent), store, testPolicy(), Options{}, zap.NewNop())
	ctx := context.Background()

	if failures, err := s.Synchronize(ctx, []entity.TrackedEntity{ent}); err != nil || len(failures) != 0 {
		t.Fatalf("first run: failures=%v err=%v", failures, err)
	}
	data := latestWow(t, store, ent.ID)
	if !data.Dead || data.DiedAt == nil {
		t.Fatalf("expected dead snapshot, got %+v", data)
	}

	calls := client.callCount("character")
	failures, err := s.Synchronize(ctx, []entity.TrackedEntity{ent})
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].Kind != KindTerminal {
		t.Fatalf("expected terminal skip, got %v", failures)
	}
	if client.callCount("character") != calls {
		t.Error("terminal entity must not reach the upstream")
	}
	if all, _ := store.Get(ctx, ent.ID); len(all) != 1 {
		t.Errorf("expected no new snapshot, got %d", len(all))
	}
}

func TestWowHardcore_VanishedCharacter(t *testing.T) {
	client := newFakeBlizzard()
	client.chars["grom"] = blizzard.Character{Name: "grom", Level: 12}
	client.equipment["grom"] = []int64{7}
	store := snapshot.NewMemoryStore()
	seen, unseen := wowEntity(t, "grom"), wowEntity(t, "nobody")
	repo := entity.NewMemoryRepository(seen, unseen)
	s := NewWowHardcore(client, repo, store, testPolicy(), Options{}, zap.NewNop())
	ctx := context.Background()

	if _, err := s.Synchronize(ctx, []entity.TrackedEntity{seen}); err != nil {
		t.Fatal(err)
	}
	client.mu.Lock()
	delete(client.chars, "grom")
	client.mu.Unlock()

	failures, err := s.Synchronize(ctx, []entity.TrackedEntity{seen, unseen})
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].EntityID != unseen.ID || failures[0].Kind != KindRemoved {
		t.Fatalf("expected only the unseen entity removed, got %v", failures)
	}

	if got, _ := repo.Get(ctx, unseen.ID, game.WowHardcore); got != nil {
		t.Error("expected unseen entity deleted from tracking")
	}
	if got, _ := repo.Get(ctx, seen.ID, game.WowHardcore); got == nil {
		t.Error("expected seen entity kept")
	}
	data := latestWow(t, store, seen.ID)
	if !data.Dead || len(data.Equipment) != 1 {
		t.Errorf("expected dead snapshot carrying equipment, got %+v", data)
	}
}

func TestWowHardcore_NoEquipment(t *testing.T) {
	client := newFakeBlizzard()
	client.chars["naked"] = blizzard.Character{Name: "naked", Level: 1}
	store := snapshot.NewMemoryStore()
	ent := wowEntity(t, "naked")
	s := NewWowHardcore(client, entity.NewMemoryRepository(ent), store, testPolicy(), Options{}, zap.NewNop())

	failures, err := s.Synchronize(context.Background(), []entity.TrackedEntity{ent})
	if err != nil || len(failures) != 0 {
		t.Fatalf("failures=%v err=%v", failures, err)
	}
	if eq := latestWow(t, store, ent.ID).Equipment; len(eq) != 0 {
		t.Errorf("expected empty equipment, got %+v", eq)
	}
}
