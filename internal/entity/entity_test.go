package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/dgnsrekt/charsync/internal/game"
)

func TestNew_ValidatesPerGame(t *testing.T) {
	if _, err := New(game.LeagueOfLegends, "EUW1", "Caps", "", ""); !errors.Is(err, ErrInvalidEntity) {
		t.Errorf("expected missing tag to be rejected, got %v", err)
	}
	if _, err := New(game.WowHardcore, "eu", "Grom", "", ""); !errors.Is(err, ErrInvalidEntity) {
		t.Errorf("expected missing realm to be rejected, got %v", err)
	}

	e, err := New(game.LeagueOfLegends, "EUW1", "Caps", "", "G2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID == "" {
		t.Error("expected an id to be assigned")
	}
	if e.String() != "euw1/Caps#G2" {
		t.Errorf("unexpected String: %s", e.String())
	}
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	lol := TrackedEntity{ID: "a", Game: game.LeagueOfLegends}
	wow := TrackedEntity{ID: "b", Game: game.WowHardcore}
	repo := NewMemoryRepository(lol, wow)

	got, err := repo.Get(ctx, "a", game.WowHardcore)
	if err != nil || got != nil {
		t.Errorf("expected no match across games, got %+v, %v", got, err)
	}

	list, _ := repo.ListByGame(ctx, game.LeagueOfLegends)
	if len(list) != 1 || list[0].ID != "a" {
		t.Errorf("unexpected list: %+v", list)
	}

	_ = repo.Delete(ctx, "a")
	if got, _ := repo.Get(ctx, "a", game.LeagueOfLegends); got != nil {
		t.Error("expected entity to be deleted")
	}
}
