// Package projects provides the copy-generation project bounded context
// module: SKUs and their keywords, questions, topics and copy, gated by the
// stage-approval workflow.
package projects

import (
	"fmt"

	"agency_os_backend/internal/events"
	apphttp "agency_os_backend/internal/http"
	"agency_os_backend/internal/jobs"
	"agency_os_backend/internal/projects/handler"
	"agency_os_backend/internal/projects/repository"
	"agency_os_backend/internal/projects/service"
	"agency_os_backend/platform/ai/llm"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the collaborators the projects module is built from. Model is
// nil when no LLM is configured; Pools is nil when pool import is disabled.
type Deps struct {
	Pool      *pgxpool.Pool
	Runner    *jobs.Runner
	Pools     service.PoolKeywordSource
	Model     *llm.Model
	EventBus  events.Bus
	Validator *validator.Validator
	Log       *logger.Logger
}

// Module is the projects bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the project service and registers the generation job
// handlers.
func NewModule(d Deps) (*Module, error) {
	var prompters service.Prompters
	if d.Model != nil {
		p, err := service.NewPrompters(d.Model)
		if err != nil {
			return nil, fmt.Errorf("project prompters: %w", err)
		}
		prompters = p
	}

	svc := service.New(service.Deps{
		Repo:      repository.New(d.Pool),
		Pools:     d.Pools,
		Jobs:      d.Runner,
		Prompters: prompters,
		Bus:       d.EventBus,
		Log:       d.Log,
	})
	d.Runner.Register(jobs.KindTopicGeneration, svc.RunTopicJob)
	d.Runner.Register(jobs.KindCopyGeneration, svc.RunCopyJob)

	return &Module{handler: handler.New(svc, d.Validator), service: svc}, nil
}

func (m *Module) Name() string {
	return "projects"
}

// Service returns the project service.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts project routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	projects := ctx.Protected.Group("/projects")
	projects.GET("", m.handler.List)
	projects.POST("", m.handler.Create)
	projects.GET("/:id", m.handler.Get)
	projects.PUT("/:id", m.handler.Update)
	projects.DELETE("/:id", m.handler.Delete)
	projects.POST("/:id/transition", m.handler.Transition)
	projects.POST("/:id/generate/topics", ctx.AIRateLimit, m.handler.GenerateTopics)
	projects.POST("/:id/generate/copy", ctx.AIRateLimit, m.handler.GenerateCopy)

	skus := projects.Group("/:id/skus")
	skus.POST("", m.handler.CreateSKU)
	skus.GET("/:skuId", m.handler.GetSKU)
	skus.PUT("/:skuId", m.handler.UpdateSKU)
	skus.DELETE("/:skuId", m.handler.DeleteSKU)
	skus.POST("/:skuId/keywords", m.handler.AddKeywords)
	skus.POST("/:skuId/keywords/import", m.handler.ImportPoolKeywords)
	skus.DELETE("/:skuId/keywords/:keywordId", m.handler.DeleteKeyword)
	skus.POST("/:skuId/questions", m.handler.CreateQuestion)
	skus.PUT("/:skuId/questions/:questionId", m.handler.UpdateQuestion)
	skus.DELETE("/:skuId/questions/:questionId", m.handler.DeleteQuestion)
	skus.PATCH("/:skuId/topics/:topicId", m.handler.UpdateTopic)
	skus.PUT("/:skuId/copy", m.handler.UpdateCopy)
}

var _ apphttp.Module = (*Module)(nil)
