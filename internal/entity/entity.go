// Package entity holds the tracked game characters the synchronizers refresh.
package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/charsync/internal/game"
)

var ErrInvalidEntity = errors.New("entity: invalid tracked entity")

// TrackedEntity identifies one character at its upstream source.
//
// League of Legends entities use Region (platform, e.g. euw1), Name (Riot ID
// game name) and Tag (Riot ID tag line). WoW entities use Region (eu, us),
// Realm and Name.
type TrackedEntity struct {
	ID        string
	Game      game.Game
	Region    string
	Name      string
	Realm     string
	Tag       string
	CreatedAt time.Time
}

// New validates the identity fields for g and assigns a fresh id.
func New(g game.Game, region, name, realm, tag string) (TrackedEntity, error) {
	e := TrackedEntity{
		ID:        uuid.NewString(),
		Game:      g,
		Region:    strings.ToLower(strings.TrimSpace(region)),
		Name:      strings.TrimSpace(name),
		Realm:     strings.TrimSpace(realm),
		Tag:       strings.TrimSpace(tag),
		CreatedAt: time.Now().UTC(),
	}
	if err := e.Validate(); err != nil {
		return TrackedEntity{}, err
	}
	return e, nil
}

// Validate checks that the source-specific identity fields are present.
func (e TrackedEntity) Validate() error {
	if e.Region == "" || e.Name == "" {
		return fmt.Errorf("%w: region and name are required", ErrInvalidEntity)
	}
	switch e.Game {
	case game.LeagueOfLegends:
		if e.Tag == "" {
			return fmt.Errorf("%w: riot tag line is required", ErrInvalidEntity)
		}
	case game.WowHardcore:
		if e.Realm == "" {
			return fmt.Errorf("%w: realm is required", ErrInvalidEntity)
		}
	default:
		return fmt.Errorf("%w: unknown game %q", ErrInvalidEntity, e.Game)
	}
	return nil
}

func (e TrackedEntity) String() string {
	switch e.Game {
	case game.LeagueOfLegends:
		return fmt.Sprintf("%s/%s#%s", e.Region, e.Name, e.Tag)
	case game.WowHardcore:
		return fmt.Sprintf("%s/%s/%s", e.Region, e.Realm, e.Name)
	default:
		return e.ID
	}
}

// Repository is the read side used by the synchronization core.
type Repository interface {
	// Get returns nil when no entity with that id exists for g.
	Get(ctx context.Context, id string, g game.Game) (*TrackedEntity, error)
	ListByGame(ctx context.Context, g game.Game) ([]TrackedEntity, error)
	Delete(ctx context.Context, id string) error
}

// Store adds the write path used by tooling.
type Store interface {
	Repository
	Save(ctx context.Context, e TrackedEntity) error
}
