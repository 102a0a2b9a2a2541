package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"chantier_portal_backend/internal/addressing"
	"chantier_portal_backend/internal/chantiers"
	"chantier_portal_backend/internal/contacts"
	"chantier_portal_backend/internal/documents"
	"chantier_portal_backend/internal/email"
	"chantier_portal_backend/internal/events"
	"chantier_portal_backend/internal/geocoding"
	apphttp "chantier_portal_backend/internal/http"
	"chantier_portal_backend/internal/http/router"
	"chantier_portal_backend/internal/notification"
	"chantier_portal_backend/internal/presence"
	"chantier_portal_backend/internal/reference"
	"chantier_portal_backend/internal/scheduler"
	"chantier_portal_backend/internal/users"
	"chantier_portal_backend/platform/config"
	"chantier_portal_backend/platform/db"
	"chantier_portal_backend/platform/logger"
	"chantier_portal_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	geocoder := geocoding.New(cfg, log)

	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	usersModule := users.NewModule(pool, cfg, eventBus, val, log)
	chantiersModule := chantiers.NewModule(pool, eventBus, log)
	contactsModule := contacts.NewModule(pool, log)
	referenceModule := reference.NewModule(pool)
	addressingModule := addressing.NewModule(geocoder, cfg, log)
	defer addressingModule.Shutdown()

	modules := []apphttp.Module{
		usersModule,
		chantiersModule,
		contactsModule,
		referenceModule,
		addressingModule,
		notificationModule,
	}

	// Presence needs redis; the scheduler client shares the same instance.
	if cfg.GetRedisURL() != "" {
		rdb, err := newRedisClient(cfg)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			panic("failed to connect to redis: " + err.Error())
		}
		defer func() { _ = rdb.Close() }()

		modules = append(modules, presence.NewModule(rdb, cfg, log))

		schedulerClient, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize scheduler client", "error", err)
		} else {
			defer func() { _ = schedulerClient.Close() }()
			chantiersModule.SetTaskEnqueuer(schedulerClient)
		}
	} else {
		log.Warn("REDIS_URL not configured; presence tracking and background purge disabled")
	}

	if cfg.IsMinIOEnabled() {
		storage, err := documents.NewStorage(cfg)
		if err != nil {
			log.Error("failed to initialize document storage", "error", err)
			panic("failed to initialize document storage: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure documents bucket", 5, 2*time.Second, func() error {
			return storage.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure documents bucket", "error", err)
			panic("failed to ensure documents bucket: " + err.Error())
		}
		log.Info("document storage initialized", "bucket", cfg.GetMinioBucketChantierDocuments())

		modules = append(modules, documents.NewModule(pool, chantiersModule.Repository(), storage, log))
	} else {
		log.Warn("MINIO_ENDPOINT not configured; chantier documents disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules:  modules,
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func newRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
