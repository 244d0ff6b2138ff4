package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"waha-chatwoot/internal/cache"
	"waha-chatwoot/internal/config"
	"waha-chatwoot/internal/consumers"
	"waha-chatwoot/internal/httpserver"
	"waha-chatwoot/internal/logging"
	"waha-chatwoot/internal/metrics"
	"waha-chatwoot/internal/queue"
	"waha-chatwoot/internal/repo"
	"waha-chatwoot/internal/rmutex"
	"waha-chatwoot/internal/schedule"
	"waha-chatwoot/internal/waha"
	"waha-chatwoot/migrations"
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
	logger.Info("starting waha-chatwoot", "env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	var store repo.Store
	if cfg.DatabaseURL != "" {
		store, err = repo.NewPostgres(ctx, cfg.DatabaseURL, logger)
	} else {
		store, err = repo.NewSQLite(ctx, cfg.SQLitePath, logger)
	}
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	if err := store.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrated")

	redisClient := cache.New(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		UseTLS:   cfg.RedisTLS,
	}, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed closing redis", "error", err)
		}
	}()
	if err := redisClient.Ping(ctx); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	wahaClient := waha.New(waha.Config{
		BaseURL: cfg.WAHABaseURL,
		APIKey:  cfg.WAHAAPIKey,
		Timeout: cfg.WAHATimeout,
	}, logger, metricRegistry)

	queues := queue.New(redisClient.Client(), logger, metricRegistry, queue.Options{
		MaxAttempts: cfg.JobMaxAttempts,
		Backoff: queue.Backoff{
			Type:  cfg.JobBackoffType,
			Delay: cfg.JobBackoffDelay,
		},
	})
	locker := rmutex.NewRedisLocker(redisClient.Client(), logger, cfg.MutexLease, cfg.MutexAcquireWait)
	conversations := cache.NewConversationStore()

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	factory := &consumers.Factory{
		Store:         store,
		Conversations: conversations,
		WAHA:          wahaClient,
		Meter:         metricRegistry,
		Logger:        logger,
		BaseURL:       baseURL,
	}

	pool := queue.NewWorkerPool(queues, cfg.QueueConcurrency)
	consumers.RegisterAll(pool, factory, locker, metricRegistry, logger)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	pool.Start(workerCtx)

	cleanup := schedule.NewCleanup(store, cfg.MappingRetention, cfg.CleanupInterval, logger)
	go cleanup.Run(workerCtx)

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, httpserver.Dependencies{
		Store:         store,
		Queues:        queues,
		Conversations: conversations,
	}, cfg.PublicBasePath)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	stopWorkers()
	pool.Wait()

	return nil
}
