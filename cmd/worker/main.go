package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	callsrepo "dialflow_backend/internal/calls/repository"
	callsservice "dialflow_backend/internal/calls/service"
	leadsrepo "dialflow_backend/internal/leads/repository"
	"dialflow_backend/internal/provider"
	"dialflow_backend/internal/scheduler"
	"dialflow_backend/platform/config"
	"dialflow_backend/platform/db"
	"dialflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	providerClient := provider.NewClient(cfg, log)
	reconciler := callsservice.NewReconciler(leadsrepo.New(pool), callsrepo.New(pool), cfg.GetDefaultPhoneRegion(), log)

	// The worker re-enqueues its own poll tasks, so it needs a client too.
	pollClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize poll scheduler client", "error", err)
		panic("failed to initialize poll scheduler client: " + err.Error())
	}
	defer func() { _ = pollClient.Close() }()

	worker, err := scheduler.NewWorker(cfg, providerClient, reconciler, pollClient, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("worker stopped")
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
