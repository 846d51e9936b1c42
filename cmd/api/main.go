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

	"agency_os_backend/internal/adapters"
	"agency_os_backend/internal/adapters/storage"
	"agency_os_backend/internal/auth"
	"agency_os_backend/internal/brands"
	"agency_os_backend/internal/clients"
	"agency_os_backend/internal/email"
	"agency_os_backend/internal/events"
	apphttp "agency_os_backend/internal/http"
	"agency_os_backend/internal/http/router"
	"agency_os_backend/internal/jobs"
	"agency_os_backend/internal/keywords"
	"agency_os_backend/internal/meetings"
	"agency_os_backend/internal/projects"
	"agency_os_backend/internal/team"
	"agency_os_backend/internal/tracker"
	"agency_os_backend/internal/usage"
	"agency_os_backend/migrations"
	"agency_os_backend/platform/ai/llm"
	"agency_os_backend/platform/config"
	"agency_os_backend/platform/db"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/telemetry"
	"agency_os_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

// eventSubscriber is implemented by modules that react to domain events.
type eventSubscriber interface {
	RegisterHandlers(bus events.Bus)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	shutdownTelemetry, err := telemetry.Init(ctx, cfg, version)
	if err != nil {
		log.Error("failed to initialize telemetry", "error", err)
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			log.Warn("telemetry shutdown failed", "error", err)
		}
	}()

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

	sender := email.NewSender(cfg)
	val := validator.New()
	store := initStorage(ctx, cfg, log)

	model := llm.NewFromConfig(cfg, log)
	if model == nil {
		log.Warn("LLM_API_KEY not configured; AI generation and extraction disabled")
	}
	taskTracker := tracker.NewFromConfig(cfg, log)
	if taskTracker == nil {
		log.Warn("TRACKER_API_TOKEN not configured; pushing meeting tasks disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	jobsModule := jobs.NewModule(pool, cfg, eventBus, val, log)
	runner := jobsModule.Runner()
	closeDispatcher := initDispatcher(cfg, runner, log)
	if closeDispatcher != nil {
		defer closeDispatcher()
	}
	go jobsModule.RunCleanup(ctx)

	authModule := auth.NewModule(pool, eventBus, log)
	clientsModule := clients.NewModule(pool, val, log)
	brandsModule := brands.NewModule(pool, store, cfg.GetMinioBucketBrandLogos(), val, log)
	teamModule := team.NewModule(pool, eventBus, sender, cfg.GetAppBaseURL(), val, log)

	keywordsModule, err := keywords.NewModule(keywords.Deps{
		Pool:      pool,
		Storage:   store,
		Bucket:    cfg.GetMinioBucketKeywordUploads(),
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

	projectsModule, err := projects.NewModule(projects.Deps{
		Pool:      pool,
		Runner:    runner,
		Pools:     adapters.NewPoolKeywordsAdapter(keywordsModule.Service()),
		Model:     model,
		EventBus:  eventBus,
		Validator: val,
		Log:       log,
	})
	if err != nil {
		log.Error("failed to initialize projects module", "error", err)
		panic("failed to initialize projects module: " + err.Error())
	}

	meetingsModule, err := meetings.NewModule(meetings.Deps{
		Pool:      pool,
		Runner:    runner,
		Model:     model,
		Members:   adapters.NewTeamDirectoryAdapter(teamModule.Service()),
		Tracker:   taskTracker,
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

	for _, sub := range []eventSubscriber{teamModule, keywordsModule, meetingsModule, usageModule} {
		sub.RegisterHandlers(eventBus)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:            cfg,
		Logger:            log,
		Health:            db.NewPoolAdapter(pool),
		EventBus:          eventBus,
		ProfileMiddleware: authModule.ProfileMiddleware(),
		Modules: []apphttp.Module{
			authModule,
			clientsModule,
			brandsModule,
			teamModule,
			keywordsModule,
			projectsModule,
			meetingsModule,
			jobsModule,
			usageModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		runner.Wait()
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initStorage returns nil when MinIO is not configured. Uploads and logos
// are then rejected by the modules that need them.
func initStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) storage.StorageService {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; file uploads disabled")
		return nil
	}

	svc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	for _, bucket := range []string{cfg.GetMinioBucketKeywordUploads(), cfg.GetMinioBucketBrandLogos()} {
		if err := withRetry(ctx, log, "ensure bucket "+bucket, 5, 2*time.Second, func() error {
			return svc.EnsureBucketExists(ctx, bucket)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
	}
	log.Info("storage service initialized",
		"keywordUploadsBucket", cfg.GetMinioBucketKeywordUploads(),
		"brandLogosBucket", cfg.GetMinioBucketBrandLogos(),
	)
	return svc
}

// initDispatcher hands jobs to the worker binary through asynq when Redis is
// configured. Without Redis the runner keeps executing jobs in-process.
func initDispatcher(cfg config.SchedulerConfig, runner *jobs.Runner, log *logger.Logger) func() {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; jobs run inside the API process")
		return nil
	}

	dispatcher, err := jobs.NewAsynqDispatcher(cfg)
	if err != nil {
		log.Error("failed to initialize job dispatcher", "error", err)
		panic("failed to initialize job dispatcher: " + err.Error())
	}
	runner.UseDispatcher(dispatcher)
	log.Info("jobs dispatched through asynq", "queue", cfg.GetAsynqQueueName())

	return func() {
		_ = dispatcher.Close()
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
