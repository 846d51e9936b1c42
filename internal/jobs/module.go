package jobs

import (
	"context"

	"agency_os_backend/internal/events"
	apphttp "agency_os_backend/internal/http"
	"agency_os_backend/internal/jobs/handler"
	"agency_os_backend/internal/jobs/repository"
	"agency_os_backend/platform/config"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the background jobs bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	runner  *Runner
	cleanup *Cleanup
}

// NewModule creates the runner shared by every module that starts jobs.
func NewModule(pool *pgxpool.Pool, cfg config.JobConfig, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	return &Module{
		handler: handler.New(repo, val),
		runner:  NewRunner(repo, bus, log, cfg.GetJobTimeout()),
		cleanup: NewCleanup(repo, bus, cfg, log),
	}
}

func (m *Module) Name() string {
	return "jobs"
}

// Runner returns the job runner for handler registration and Start calls.
func (m *Module) Runner() *Runner {
	return m.runner
}

// RunCleanup blocks running the retention loop until ctx is cancelled.
func (m *Module) RunCleanup(ctx context.Context) {
	m.cleanup.Run(ctx)
}

// RegisterRoutes mounts job status routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/jobs", m.handler.List)
	ctx.Protected.GET("/jobs/:id", m.handler.Get)
}

var _ apphttp.Module = (*Module)(nil)
