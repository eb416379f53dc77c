// Command grana runs the local data core: the key-value backed repository,
// the auto-save loop, and the remote sync client, wired together once at
// startup and passed to each other explicitly.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grana/internal/autosave"
	"grana/internal/bus"
	"grana/internal/config"
	"grana/internal/kvstore"
	"grana/internal/logger"
	"grana/internal/repository"
	"grana/internal/syncclient"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store := kvstore.New(kvstore.NewRedisBackend(cfg.RedisAddr, cfg.RedisDB))
	if !store.Persistent() {
		log.Warn("running without persistent storage, data will not survive a restart")
	}

	events := bus.New()
	repo := repository.New(store, events, logger.Named("repository"),
		repository.WithMaxSnapshots(cfg.SnapshotMax))

	scheduler := autosave.New(repo, events, autosave.Config{
		BaseInterval:  cfg.AutoSaveBaseInterval,
		IdleInterval:  cfg.AutoSaveIdleInterval,
		IdleThreshold: cfg.AutoSaveIdleAfter,
		Debounce:      cfg.AutoSaveDebounce,
	}, logger.Named("autosave"))

	sync := syncclient.New(cfg.SyncBaseURL, cfg.SyncToken, nil, repo, events, logger.Named("sync"))

	events.Subscribe(bus.TopicSyncStatus, func(payload interface{}) bus.Result {
		if change, ok := payload.(syncclient.StatusChange); ok {
			log.Infow("sync status", "status", change.Status, "direction", change.Direction)
		}
		return bus.Continue
	}, bus.WithID("status-logger"))

	// Mutations count as activity for the idle back-off.
	events.Subscribe(bus.TopicDataUpdated, func(interface{}) bus.Result {
		scheduler.Activity()
		return bus.Continue
	}, bus.WithID("activity-tracker"))

	scheduler.Start()
	defer scheduler.Stop()

	if cfg.SyncToken != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := sync.Pull(ctx); err != nil {
			log.Warnw("initial pull failed, continuing with local data", "error", err)
		}
		cancel()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := scheduler.ForceSave(ctx); err != nil {
		log.Warnw("final snapshot failed", "error", err)
	}
	if cfg.SyncToken != "" {
		if err := sync.Push(ctx); err != nil {
			log.Warnw("final push failed", "error", err)
		}
	}
	repo.Close()
	return nil
}
