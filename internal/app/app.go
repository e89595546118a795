// Package app wires configuration into the stores, upstream clients,
// synchronizers and subscription engine shared by the binaries.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dgnsrekt/charsync/internal/api"
	"github.com/dgnsrekt/charsync/internal/api/blizzard"
	"github.com/dgnsrekt/charsync/internal/api/riot"
	"github.com/dgnsrekt/charsync/internal/config"
	"github.com/dgnsrekt/charsync/internal/database"
	"github.com/dgnsrekt/charsync/internal/entity"
	"github.com/dgnsrekt/charsync/internal/eventlog"
	"github.com/dgnsrekt/charsync/internal/game"
	"github.com/dgnsrekt/charsync/internal/notify"
	"github.com/dgnsrekt/charsync/internal/processor"
	"github.com/dgnsrekt/charsync/internal/retry"
	"github.com/dgnsrekt/charsync/internal/server"
	"github.com/dgnsrekt/charsync/internal/snapshot"
	"github.com/dgnsrekt/charsync/internal/subscription"
	"github.com/dgnsrekt/charsync/internal/synchronizer"
	"github.com/dgnsrekt/charsync/internal/throttle"
)

// Stores groups the four persistence boundaries.
type Stores struct {
	Entities  entity.Store
	Snapshots snapshot.Store
	Events    eventlog.Log
	States    subscription.StateStore
	close     func() error
}

// OpenStores opens the stores selected by database.driver.
func OpenStores(cfg config.DatabaseConfig, logger *zap.Logger) (*Stores, error) {
	switch cfg.Driver {
	case "memory":
		return &Stores{
			Entities:  entity.NewMemoryRepository(),
			Snapshots: snapshot.NewMemoryStore(),
			Events:    eventlog.NewMemoryLog(),
			States:    subscription.NewMemoryStateStore(),
		}, nil
	case "sqlite":
		db, err := database.OpenSQLite(cfg.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return sqliteStores(db)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func sqliteStores(db *gorm.DB) (*Stores, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &Stores{
		Entities:  database.NewEntityRepository(db),
		Snapshots: database.NewSnapshotStore(db),
		Events:    database.NewEventLog(db),
		States:    database.NewSubscriptionStore(db),
		close:     sqlDB.Close,
	}, nil
}

// App is the assembled engine.
type App struct {
	Config   *config.Config
	Stores   *Stores
	Registry *synchronizer.Registry
	Engine   *subscription.Engine
	Notifier notify.Notifier
	logger   *zap.Logger
}

// New assembles an App. notifier may be nil.
func New(cfg *config.Config, stores *Stores, notifier notify.Notifier, logger *zap.Logger) *App {
	if notifier == nil {
		notifier = &notify.NoopNotifier{}
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       cfg.Retry.Delay(),
		Retryable:   api.IsRetryable,
		Logger:      logger,
	}
	opts := synchronizer.Options{
		Workers:     cfg.Sync.Workers,
		Buffer:      cfg.Sync.Buffer,
		InsertBatch: cfg.Sync.InsertBatch,
	}

	var syncs []synchronizer.Synchronizer
	if cfg.Riot.Enabled {
		client := riot.NewClient(newDoer("riot", cfg.Riot.UpstreamConfig, logger), cfg.Riot.BaseURL, cfg.Riot.APIKey)
		syncs = append(syncs, synchronizer.NewLol(client, stores.Snapshots, policy, opts, cfg.Sync.LolMatchCount, logger))
	}
	if cfg.Blizzard.Enabled {
		client := blizzard.NewClient(newDoer("blizzard", cfg.Blizzard.UpstreamConfig, logger), blizzard.Options{
			BaseURL:          cfg.Blizzard.BaseURL,
			TokenURL:         cfg.Blizzard.TokenURL,
			ClientID:         cfg.Blizzard.ClientID,
			ClientSecret:     cfg.Blizzard.ClientSecret,
			ProfileNamespace: cfg.Blizzard.ProfileNamespace,
			StaticNamespace:  cfg.Blizzard.StaticNamespace,
			Locale:           cfg.Blizzard.Locale,
		})
		syncs = append(syncs, synchronizer.NewWowHardcore(client, stores.Entities, stores.Snapshots, policy, opts, logger))
	}
	registry := synchronizer.NewRegistry(syncs...)

	proc := processor.New(stores.Entities, registry, notifier, processor.Options{
		FailOnRetryable: cfg.Sync.FailEventOnTransient,
	}, logger)
	engine := subscription.NewEngine(cfg.Subscription.Name, stores.Events, stores.States, proc.Process, logger)
	engine.OnHalt(func(ctx context.Context, s subscription.State, cause error) {
		if err := notifier.SendSubscriptionHalted(context.WithoutCancel(ctx), s, cause); err != nil {
			logger.Warn("failed to send halt notification", zap.Error(err))
		}
	})

	return &App{
		Config:   cfg,
		Stores:   stores,
		Registry: registry,
		Engine:   engine,
		Notifier: notifier,
		logger:   logger,
	}
}

func newDoer(name string, cfg config.UpstreamConfig, logger *zap.Logger) *api.Doer {
	th := throttle.New(name, cfg.Throttle.Permits, cfg.Throttle.Window(), cfg.Throttle.MaxWait())
	br := api.NewBreaker(name, api.BreakerConfig{
		Enabled:      cfg.Breaker.Enabled,
		MinRequests:  cfg.Breaker.MinRequests,
		FailureRatio: cfg.Breaker.FailureRatio,
		Interval:     time.Duration(cfg.Breaker.IntervalSec) * time.Second,
		OpenTimeout:  time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
	}, logger)
	return api.NewDoer(name, cfg.Timeout(), th, br, logger)
}

// Close releases the underlying database, if any.
func (a *App) Close() error {
	if a.Stores.close == nil {
		return nil
	}
	return a.Stores.close()
}

// Track validates and stores a new entity.
func (a *App) Track(ctx context.Context, g game.Game, region, name, realm, tag string) (entity.TrackedEntity, error) {
	e, err := entity.New(g, region, name, realm, tag)
	if err != nil {
		return entity.TrackedEntity{}, err
	}
	if err := a.Stores.Entities.Save(ctx, e); err != nil {
		return entity.TrackedEntity{}, err
	}
	a.logger.Info("entity tracked", zap.String("entity_id", e.ID), zap.String("entity", e.String()))
	return e, nil
}

// RequestSync appends a sync_requested event for g. No ids means every
// tracked entity of the game.
func (a *App) RequestSync(ctx context.Context, g game.Game, ids ...string) (eventlog.EventWithVersion, error) {
	if _, err := a.Registry.Get(g); err != nil {
		return eventlog.EventWithVersion{}, err
	}
	return a.Stores.Events.Append(ctx, eventlog.New(eventlog.SyncRequested{Game: g, EntityIDs: ids}))
}

// SyncNow synchronizes every tracked entity of g directly, bypassing the
// event log.
func (a *App) SyncNow(ctx context.Context, g game.Game) (*synchronizer.Summary, error) {
	syncer, err := a.Registry.Get(g)
	if err != nil {
		return nil, err
	}
	entities, err := a.Stores.Entities.ListByGame(ctx, g)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	failures, err := syncer.Synchronize(ctx, entities)
	if err != nil {
		return nil, err
	}
	summary := synchronizer.Summarize(g, len(entities), failures)
	if err := a.Notifier.SendSyncReport(ctx, summary, time.Since(start)); err != nil {
		a.logger.Warn("failed to send sync report", zap.Error(err))
	}
	return summary, nil
}

// Purge applies the retention policy to every game.
func (a *App) Purge(ctx context.Context) (int64, error) {
	ttl := a.Config.Retention.TTL()
	deleted, err := a.Stores.Snapshots.DeleteExpired(ctx, ttl, "", a.Config.Retention.KeepLast)
	if err != nil {
		return 0, err
	}
	a.logger.Info("retention sweep complete",
		zap.Int64("deleted", deleted),
		zap.Duration("ttl", ttl),
		zap.Bool("keep_last", a.Config.Retention.KeepLast),
	)
	return deleted, nil
}

// Handler returns the ops HTTP handler.
func (a *App) Handler() http.Handler {
	srv := server.NewServer(a.Stores.Events, a.Stores.States, a.Stores.Snapshots, a.logger)
	return server.NewRouter(srv, a.logger)
}
