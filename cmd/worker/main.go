package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agency_os_backend/internal/adapters"
	"agency_os_backend/internal/brands"
	"agency_os_backend/internal/email"
	"agency_os_backend/internal/events"
	"agency_os_backend/internal/jobs"
	"agency_os_backend/internal/keywords"
	"agency_os_backend/internal/meetings"
	"agency_os_backend/internal/projects"
	"agency_os_backend/internal/team"
	"agency_os_backend/internal/tracker"
	"agency_os_backend/internal/usage"
	"agency_os_backend/platform/ai/llm"
	"agency_os_backend/platform/config"
	"agency_os_backend/platform/db"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/telemetry"
	"agency_os_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName(), "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg, version)
	if err != nil {
		log.Error("failed to initialize telemetry", "error", err)
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	model := llm.NewFromConfig(cfg, log)

	// Worker-side job wiring: the modules register the same handlers as in
	// the API process. Storage is not needed by any job.
	jobsModule := jobs.NewModule(pool, cfg, eventBus, val, log)
	runner := jobsModule.Runner()

	brandsModule := brands.NewModule(pool, nil, cfg.GetMinioBucketBrandLogos(), val, log)
	teamModule := team.NewModule(pool, eventBus, email.NewSender(cfg), cfg.GetAppBaseURL(), val, log)

	keywordsModule, err := keywords.NewModule(keywords.Deps{
		Pool:      pool,
		Runner:    runner,
		Brands:    adapters.NewBrandTermsAdapter(brandsModule.Service()),
		Model:     model,
		EventBus:  eventBus,
		Validator: val,
		Log:       log,
	})
	if err != nil {
		log.Error("failed to initialize keywords module", "error", err)
		panic("failed to initialize keywords module: " + err.Error())
	}
	if _, err := projects.NewModule(projects.Deps{
		Pool:      pool,
		Runner:    runner,
		Pools:     adapters.NewPoolKeywordsAdapter(keywordsModule.Service()),
		Model:     model,
		EventBus:  eventBus,
		Validator: val,
		Log:       log,
	}); err != nil {
		log.Error("failed to initialize projects module", "error", err)
		panic("failed to initialize projects module: " + err.Error())
	}
	meetingsModule, err := meetings.NewModule(meetings.Deps{
		Pool:      pool,
		Runner:    runner,
		Model:     model,
		Members:   adapters.NewTeamDirectoryAdapter(teamModule.Service()),
		Tracker:   tracker.NewFromConfig(cfg, log),
		EventBus:  eventBus,
		Validator: val,
		Log:       log,
	})
	if err != nil {
		log.Error("failed to initialize meetings module", "error", err)
		panic("failed to initialize meetings module: " + err.Error())
	}
	usageModule, err := usage.NewModule(pool, val, log)
	if err != nil {
		log.Error("failed to initialize usage module", "error", err)
		panic("failed to initialize usage module: " + err.Error())
	}

	keywordsModule.RegisterHandlers(eventBus)
	meetingsModule.RegisterHandlers(eventBus)
	usageModule.RegisterHandlers(eventBus)

	worker, err := jobs.NewWorker(cfg, runner, log)
	if err != nil {
		log.Error("failed to initialize job worker", "error", err)
		panic("failed to initialize job worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
	log.Info("worker stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
