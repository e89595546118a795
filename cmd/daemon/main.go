package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/app"
	"github.com/dgnsrekt/charsync/internal/config"
	"github.com/dgnsrekt/charsync/internal/notify"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// Load daemon config
	daemonCfg := LoadDaemonConfig()

	logger.Info("daemon configuration loaded",
		zap.Duration("syncInterval", daemonCfg.SyncInterval),
		zap.Int("sweepHour", daemonCfg.SweepHour),
		zap.Int("sweepMinute", daemonCfg.SweepMinute),
		zap.String("timezone", daemonCfg.Timezone),
		zap.String("configPath", daemonCfg.ConfigPath),
		zap.String("stateFile", daemonCfg.StateFile),
		zap.Bool("runOnStartup", daemonCfg.RunOnStartup),
		zap.String("serveAddr", daemonCfg.ServeAddr),
	)

	cfg, err := config.Load(daemonCfg.ConfigPath)
	if err != nil {
		logger.Error("failed to load charsync config", zap.Error(err))
		return 1
	}

	stores, err := app.OpenStores(cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open stores", zap.Error(err))
		return 1
	}
	a := app.New(cfg, stores, notify.New(cfg.Notify, logger), logger)
	defer a.Close()

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if _, err := a.Engine.Ensure(ctx); err != nil {
		logger.Error("failed to register subscription", zap.Error(err))
		return 1
	}

	srv := startServer(daemonCfg.ServeAddr, a, logger)

	scheduler := NewScheduler(daemonCfg.SweepHour, daemonCfg.SweepMinute, daemonCfg.Timezone)
	tracker := NewSweepTracker(daemonCfg.StateFile)

	logger.Info("daemon started",
		zap.String("subscription", cfg.Subscription.Name),
		zap.Duration("pollInterval", cfg.Subscription.PollInterval()),
		zap.String("sweep", fmt.Sprintf("%02d:%02d %s", daemonCfg.SweepHour, daemonCfg.SweepMinute, daemonCfg.Timezone)),
	)

	if daemonCfg.RunOnStartup {
		requestSyncs(ctx, a, logger)
	}

	poll := time.NewTicker(cfg.Subscription.PollInterval())
	defer poll.Stop()

	// A nil channel never fires, which disables scheduled sync requests.
	var syncTick <-chan time.Time
	if daemonCfg.SyncInterval > 0 {
		t := time.NewTicker(daemonCfg.SyncInterval)
		defer t.Stop()
		syncTick = t.C
	}

	sweepCheck := time.NewTicker(1 * time.Minute)
	defer sweepCheck.Stop()

	exit := 0
loop:
	for {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()
			break loop

		case <-poll.C:
			if err := a.Engine.ProcessPendingEvents(ctx); err != nil {
				logger.Error("subscription run failed", zap.Error(err))
			}

		case <-syncTick:
			requestSyncs(ctx, a, logger)

		case <-sweepCheck.C:
			if shouldSweep(scheduler, tracker) {
				runSweep(ctx, a, scheduler, tracker, logger)
			}

		case <-ctx.Done():
			logger.Info("context cancelled, shutting down")
			break loop
		}
	}

	if srv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), daemonCfg.ShutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
			exit = 1
		}
	}
	return exit
}

func startServer(addr string, a *app.App, logger *zap.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("ops server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()
	return srv
}

// requestSyncs appends a full sync request for every enabled game.
func requestSyncs(ctx context.Context, a *app.App, logger *zap.Logger) {
	for _, g := range a.Registry.Games() {
		ev, err := a.RequestSync(ctx, g)
		if err != nil {
			logger.Error("failed to request sync", zap.String("game", g.String()), zap.Error(err))
			continue
		}
		logger.Info("scheduled sync requested", zap.String("game", g.String()), zap.Int64("version", ev.Version))
	}
}

// shouldSweep checks if the daily retention sweep is due
func shouldSweep(scheduler *Scheduler, tracker *SweepTracker) bool {
	return scheduler.IsPastScheduledTime() && !tracker.AlreadySwept(scheduler.TodayDate())
}

// runSweep executes the retention sweep and updates the tracker
func runSweep(ctx context.Context, a *app.App, scheduler *Scheduler, tracker *SweepTracker, logger *zap.Logger) {
	today := scheduler.TodayDate()
	start := time.Now()

	deleted, err := a.Purge(ctx)
	if err != nil {
		logger.Error("retention sweep failed", zap.Error(err), zap.String("date", today))
		return
	}
	logger.Info("retention sweep succeeded",
		zap.String("date", today),
		zap.Int64("deleted", deleted),
		zap.Duration("duration", time.Since(start)),
	)

	// Update tracker to prevent a second sweep today
	if err := tracker.SetLastSweepDate(today); err != nil {
		logger.Error("failed to update tracker", zap.Error(err))
	}
}
