package synchronizer

import (
	"context"

	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/api/riot"
	"github.com/dgnsrekt/charsync/internal/dedup"
	"github.com/dgnsrekt/charsync/internal/entity"
	"github.com/dgnsrekt/charsync/internal/game"
	"github.com/dgnsrekt/charsync/internal/retry"
	"github.com/dgnsrekt/charsync/internal/snapshot"
)

// DefaultMatchCount is how many recent match ids are requested per summoner.
const DefaultMatchCount = 20

// LolData is the snapshot payload of a League of Legends summoner.
type LolData struct {
	Account  riot.Account       `json:"account"`
	Summoner riot.Summoner      `json:"summoner"`
	Leagues  []riot.LeagueEntry `json:"leagues"`
	// Matches follows the order of the latest match id listing.
	Matches []riot.Match `json:"matches"`
}

// Lol synchronizes League of Legends summoners. Match details are immutable
// upstream, so only match ids absent from the previous snapshot are fetched.
type Lol struct {
	client     riot.Client
	runner     *Runner
	policy     retry.Policy
	matchCount int
	logger     *zap.Logger
}

func NewLol(client riot.Client, store snapshot.Store, policy retry.Policy, opts Options, matchCount int, logger *zap.Logger) *Lol {
	if matchCount < 1 {
		matchCount = DefaultMatchCount
	}
	return &Lol{
		client:     client,
		runner:     NewRunner(game.LeagueOfLegends, store, opts, logger),
		policy:     policy,
		matchCount: matchCount,
		logger:     logger.With(zap.String("game", game.LeagueOfLegends.String())),
	}
}

func (s *Lol) Game() game.Game {
	return game.LeagueOfLegends
}

func (s *Lol) Synchronize(ctx context.Context, entities []entity.TrackedEntity) ([]Failure, error) {
	matches := dedup.New[riot.Match]("lol_matches")
	defer func() {
		matches.Publish()
		st := matches.Stats()
		s.logger.Debug("match cache",
			zap.Int64("hits", st.Hits),
			zap.Int64("misses", st.Misses),
			zap.Float64("hit_rate", st.HitRate()),
		)
	}()

	return s.runner.Run(ctx, entities, func(ctx context.Context, ent entity.TrackedEntity, prev *snapshot.Snapshot) (any, error) {
		return s.refresh(ctx, ent, prev, matches)
	})
}

func (s *Lol) refresh(ctx context.Context, ent entity.TrackedEntity, prevSnap *snapshot.Snapshot, matches *dedup.Cache[riot.Match]) (LolData, error) {
	prev := decodePrevious[LolData](prevSnap, s.logger)

	account, err := retry.Do(ctx, s.policy, "riot.account", func(ctx context.Context) (riot.Account, error) {
		return s.client.AccountByRiotID(ctx, ent.Region, ent.Name, ent.Tag)
	})
	if err != nil {
		return LolData{}, err
	}

	summoner, err := retry.Do(ctx, s.policy, "riot.summoner", func(ctx context.Context) (riot.Summoner, error) {
		return s.client.SummonerByPUUID(ctx, ent.Region, account.PUUID)
	})
	if err != nil {
		return LolData{}, err
	}

	leagues, err := retry.Do(ctx, s.policy, "riot.league", func(ctx context.Context) ([]riot.LeagueEntry, error) {
		return s.client.LeagueEntries(ctx, ent.Region, account.PUUID)
	})
	if err != nil {
		return LolData{}, err
	}

	ids, err := retry.Do(ctx, s.policy, "riot.match_ids", func(ctx context.Context) ([]string, error) {
		return s.client.MatchIDs(ctx, ent.Region, account.PUUID, s.matchCount)
	})
	if err != nil {
		return LolData{}, err
	}

	var existing []riot.Match
	if prev != nil {
		existing = prev.Matches
	}
	plan := Diff(existing, matchID, ids)

	// Shared fetches run on the batch context so one entity's failure cannot
	// cancel a computation another entity is waiting on.
	fetched, err := fetchAll(ctx, plan.ToFetch(), func(_ context.Context, id string) (riot.Match, error) {
		return matches.Get(ctx, id, func(ctx context.Context) (riot.Match, error) {
			return retry.Do(ctx, s.policy, "riot.match", func(ctx context.Context) (riot.Match, error) {
				return s.client.Match(ctx, ent.Region, id)
			})
		})
	})
	if err != nil {
		return LolData{}, err
	}

	s.logger.Debug("summoner refreshed",
		zap.String("entity", ent.String()),
		zap.Int("matches", len(ids)),
		zap.Int("fetched", len(plan.ToFetch())),
		zap.Int("carried", len(plan.CarryForward())),
	)

	if leagues == nil {
		leagues = []riot.LeagueEntry{}
	}
	return LolData{
		Account:  account,
		Summoner: summoner,
		Leagues:  leagues,
		Matches:  plan.Merge(fetched),
	}, nil
}

func matchID(m riot.Match) string {
	return m.Metadata.MatchID
}
