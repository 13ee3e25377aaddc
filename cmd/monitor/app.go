package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/suspectuso/airdrop-tracker/internal/alphaapi"
	"github.com/suspectuso/airdrop-tracker/internal/config"
	"github.com/suspectuso/airdrop-tracker/internal/logging"
	"github.com/suspectuso/airdrop-tracker/internal/metrics"
	"github.com/suspectuso/airdrop-tracker/internal/notifier"
	"github.com/suspectuso/airdrop-tracker/internal/storage"
	"github.com/suspectuso/airdrop-tracker/internal/tracker"
)

// app bundles the wired components shared by every subcommand
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	store   *storage.Storage
	metrics *metrics.Metrics
	tracker *tracker.Tracker
	owner   string
}

// withApp loads config, wires components and runs fn with a context that is
// cancelled on SIGINT/SIGTERM
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, logCloser := logging.New(logging.Options{
		Level:         cfg.LogLevel,
		File:          cfg.LogFile,
		RetentionDays: cfg.LogRetentionDays,
	})
	defer logCloser.Close()
	slog.SetDefault(log)

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Error("init storage", "error", err)
		return err
	}
	defer store.Close()
	log.Debug("storage initialized", "path", cfg.DBPath)

	sink, err := buildSink(cfg, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	notify := notifier.New(sink, m, log)

	feed := alphaapi.NewClient(alphaapi.Options{
		DataURL:           cfg.DataURL,
		PriceURL:          cfg.PriceURL,
		UserAgent:         cfg.UserAgent,
		Referer:           cfg.Referer,
		Timeout:           cfg.HTTPTimeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, log)

	t := tracker.New(feed, store, notify, m, tracker.SystemClock{}, tracker.Options{
		Thresholds: tracker.Thresholds{
			High:   cfg.HighValueThreshold,
			Medium: cfg.MediumValueThreshold,
		},
		Location:         cfg.Location,
		ArmWindow:        cfg.ArmWindow,
		ReminderOffset:   cfg.ReminderOffset,
		ReminderCount:    cfg.ReminderCount,
		ReminderInterval: cfg.ReminderInterval,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		metrics: m,
		tracker: t,
		owner:   uuid.NewString(),
	})
}

// buildSink fans out to every configured push channel, or logs when none is
func buildSink(cfg *config.Config, log *slog.Logger) (*notifier.MultiSink, error) {
	var sinks []notifier.Sink

	if cfg.ServerChanKey != "" {
		sinks = append(sinks, notifier.NewServerChanSink(cfg.ServerChanKey))
	}
	if cfg.TelegramEnabled() {
		tg, err := notifier.NewTelegramSink(cfg.BotToken, cfg.TelegramChatID)
		if err != nil {
			log.Error("init telegram sink", "error", err)
			return nil, err
		}
		sinks = append(sinks, tg)
	}
	if len(sinks) == 0 {
		log.Warn("no push channel configured, notifications will only be logged")
		sinks = append(sinks, notifier.NewLogSink(log))
	}

	return notifier.NewMultiSink(log, sinks...), nil
}

// pass runs one monitoring pass under the run lock. A held lock is not an
// error: the pass is skipped.
func (a *app) pass(ctx context.Context) error {
	if err := a.store.AcquireRunLock(a.owner, a.cfg.RunLockTTL); err != nil {
		if errors.Is(err, storage.ErrLocked) {
			a.log.Warn("another run is in progress, skipping pass")
			return nil
		}
		return fmt.Errorf("acquire run lock: %w", err)
	}
	defer func() {
		if err := a.store.ReleaseRunLock(a.owner); err != nil {
			a.log.Error("release run lock", "error", err)
		}
	}()

	start := time.Now()
	result, err := a.tracker.RunPass(ctx)
	a.log.Info("pass finished",
		"duration", time.Since(start).Round(time.Millisecond),
		"active", result.Active,
		"expired", result.Expired,
		"reminded", result.Reminded,
	)

	// Push with a fresh context so metrics still go out after a signal
	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if perr := a.metrics.Push(pushCtx, a.cfg.PushgatewayURL); perr != nil {
		a.log.Warn("push metrics", "error", perr)
	}

	return err
}
