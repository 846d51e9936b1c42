// Package keywords provides the keyword pool bounded context module.
package keywords

import (
	"context"
	"fmt"

	"agency_os_backend/internal/adapters/storage"
	"agency_os_backend/internal/events"
	apphttp "agency_os_backend/internal/http"
	"agency_os_backend/internal/jobs"
	"agency_os_backend/internal/keywords/grouping"
	"agency_os_backend/internal/keywords/handler"
	"agency_os_backend/internal/keywords/repository"
	"agency_os_backend/internal/keywords/service"
	"agency_os_backend/platform/ai/llm"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the collaborators the keywords module is built from. Storage and
// Model are nil when MinIO or the LLM are not configured.
type Deps struct {
	Pool      *pgxpool.Pool
	Storage   storage.StorageService
	Bucket    string
	Runner    *jobs.Runner
	Brands    service.BrandTermsProvider
	Model     *llm.Model
	EventBus  events.Bus
	Validator *validator.Validator
	Log       *logger.Logger
}

// Module is the keywords bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	log     *logger.Logger
}

// NewModule wires the pool service and registers the grouping job handler.
func NewModule(d Deps) (*Module, error) {
	var grouper service.Grouper
	if d.Model != nil {
		prompter, err := grouping.NewAgentPrompter(d.Model)
		if err != nil {
			return nil, fmt.Errorf("keyword grouping prompter: %w", err)
		}
		grouper = grouping.NewGrouper(prompter)
	}

	svc := service.New(service.Deps{
		Repo:    repository.New(d.Pool),
		Brands:  d.Brands,
		Storage: d.Storage,
		Bucket:  d.Bucket,
		Jobs:    d.Runner,
		Grouper: grouper,
		Bus:     d.EventBus,
		Log:     d.Log,
	})
	d.Runner.Register(jobs.KindKeywordGrouping, svc.RunGroupingJob)

	return &Module{
		handler: handler.New(svc, d.Validator),
		service: svc,
		log:     d.Log,
	}, nil
}

func (m *Module) Name() string {
	return "keywords"
}

// Service returns the pool service.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts keyword pool routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	pools := ctx.Protected.Group("/keyword-pools")
	pools.POST("/upload-url", m.handler.UploadURL)
	pools.POST("", m.handler.Create)
	pools.GET("", m.handler.List)
	pools.GET("/:id", m.handler.Get)
	pools.DELETE("/:id", m.handler.Delete)
	pools.POST("/:id/clean", m.handler.Clean)
	pools.POST("/:id/restore", m.handler.Restore)
	pools.POST("/:id/group", ctx.AIRateLimit, m.handler.Group)
	pools.GET("/:id/groups", m.handler.Groups)
	pools.POST("/:id/overrides", m.handler.AddOverride)
	pools.DELETE("/:id/overrides", m.handler.ResetOverrides)
	pools.POST("/:id/approve", m.handler.Approve)
}

// RegisterHandlers subscribes to job completion to settle failed groupings.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.JobFinished{}.EventName(), m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.JobFinished:
		if e.Kind != string(jobs.KindKeywordGrouping) || e.Status != string(jobs.StatusFailed) {
			return nil
		}
		return m.service.MarkGroupingFailed(ctx, e.SubjectID, e.Error)
	default:
		return nil
	}
}

var _ apphttp.Module = (*Module)(nil)
