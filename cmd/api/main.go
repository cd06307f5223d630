package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dialflow_backend/internal/adapters"
	"dialflow_backend/internal/assistants"
	"dialflow_backend/internal/autocall"
	"dialflow_backend/internal/calls"
	"dialflow_backend/internal/events"
	apphttp "dialflow_backend/internal/http"
	"dialflow_backend/internal/http/router"
	"dialflow_backend/internal/leads"
	"dialflow_backend/internal/provider"
	"dialflow_backend/internal/scheduler"
	"dialflow_backend/internal/webhook"
	"dialflow_backend/migrations"
	"dialflow_backend/platform/config"
	"dialflow_backend/platform/db"
	"dialflow_backend/platform/logger"
	"dialflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
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

	// Voice provider client, shared by dispatch and assistant verification
	providerClient := provider.NewClient(cfg, log)

	pollScheduler, closeScheduler := initPollScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Recently-dialed set, shared between the dispatch path and the
	// auto-call engine so manual and automatic calls see the same marks.
	dedup := autocall.NewDedup(cfg.GetDedupTTL())

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(pool, val, log)
	assistantsModule := assistants.NewModule(pool, providerClient, val, log)
	callsModule := calls.NewModule(pool, leadsModule.Repository(), providerClient, pollScheduler, dedup, eventBus, cfg, log)

	// Calls module consumes provider call events published by the webhook module
	callsModule.RegisterHandlers(eventBus)

	assistantResolver := adapters.NewAssistantResolverAdapter(assistantsModule.Resolver())
	autocallModule := autocall.NewModule(leadsModule.Repository(), assistantResolver, callsModule.Dispatcher(), dedup, cfg, cfg, val, log)
	autocallModule.AutoStart()

	webhookModule := webhook.NewModule(cfg, eventBus, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			assistantsModule,
			callsModule,
			autocallModule,
			webhookModule,
		},
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
		autocallModule.Engine().Stop()
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initPollScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; call outcome polling disabled")
		return nil, nil
	}

	pollClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize poll scheduler client", "error", err)
		return nil, nil
	}

	return pollClient, func() {
		_ = pollClient.Close()
	}
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
