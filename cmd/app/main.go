package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"support-bot/internal/bot"
	"support-bot/internal/cache"
	"support-bot/internal/config"
	"support-bot/internal/httpserver"
	"support-bot/internal/logging"
	"support-bot/internal/metrics"
	"support-bot/internal/pending"
	"support-bot/internal/reminder"
	"support-bot/internal/repo"
	"support-bot/internal/schedule"
	"support-bot/internal/tg"
	"support-bot/internal/users"
	"support-bot/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting support bot", "env", cfg.AppEnv, "db_driver", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	repository, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repository.Close()

	if err := repository.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrated")

	var (
		store       pending.Store = pending.NewMemoryStore(cfg.PendingTTL)
		redisPinger httpserver.Pinger
	)
	if cfg.Redis.Addr != "" {
		redisClient := cache.New(cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			UseTLS:   cfg.Redis.TLS,
		}, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed closing redis", "error", err)
			}
		}()
		if err := redisClient.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		store = pending.NewRedisStore(redisClient, cfg.PendingTTL)
		redisPinger = redisClient
		logger.Info("pending submissions stored in redis", "addr", cfg.Redis.Addr)
	}

	scheduler, err := schedule.New(cfg.Location(), logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Warn("scheduler shutdown", "error", err)
		}
	}()

	tgClient, err := tg.New(tg.Config{
		Token:       cfg.BotToken,
		PollTimeout: cfg.PollTimeout,
		Debug:       cfg.AppEnv == "development" && cfg.LogLevel == "debug",
		Metrics:     metricRegistry,
	}, logger)
	if err != nil {
		return fmt.Errorf("init telegram client: %w", err)
	}

	engine, err := reminder.New(reminder.Config{
		Store:       repository,
		Messenger:   tgClient,
		Scheduler:   scheduler,
		Metrics:     metricRegistry,
		FireTimeout: cfg.FireTimeout,
	}, logger)
	if err != nil {
		return err
	}

	supportBot, err := bot.New(bot.Config{
		AdminChatID:  cfg.AdminChatID,
		InactiveDays: cfg.InactiveDays,
		ProjectsDir:  cfg.ProjectsImagesDir,
		CallbackURL:  cfg.WebApp.CallbackURL,
		OrderURL:     cfg.WebApp.OrderURL,
	}, bot.Deps{
		Messenger: tgClient,
		Users:     users.NewService(repository, logger),
		Reminders: engine,
		Pending:   pending.NewBuffer(store),
		Metrics:   metricRegistry,
	}, logger)
	if err != nil {
		return err
	}
	tgClient.SetUpdateProcessor(supportBot)

	if err := tgClient.RegisterCommands(ctx, cfg.AdminChatID, supportBot.Commands()...); err != nil {
		logger.Warn("failed registering bot commands", "error", err)
	}

	if cfg.InactiveDigestAt != "" {
		hour, minute, err := config.ParseClock(cfg.InactiveDigestAt)
		if err != nil {
			return err
		}
		err = scheduler.Daily("inactive-digest", hour, minute, func() {
			digestCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			if err := supportBot.SendInactiveDigest(digestCtx); err != nil {
				logger.Error("inactive digest failed", "error", err)
				metricRegistry.Error("digest")
			}
		})
		if err != nil {
			return err
		}
	}

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, httpserver.Dependencies{
		Database:  repository,
		Redis:     redisPinger,
		Reminders: engine,
	}, cfg.AdminAPIToken)

	errCh := make(chan error, 2)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		if err := tgClient.Start(ctx); err != nil {
			errCh <- fmt.Errorf("telegram polling: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-pollDone:
	case <-shutdownCtx.Done():
		logger.Warn("telegram polling did not stop in time")
	}

	return runErr
}

func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repo.Repository, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		return repo.NewSQLite(ctx, cfg.Database.Path, logger)
	default:
		return repo.New(ctx, cfg.Database.URL(), logger)
	}
}
