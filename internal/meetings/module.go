// Package meetings provides the meeting notes bounded context module.
package meetings

import (
	"context"
	"fmt"

	"agency_os_backend/internal/events"
	apphttp "agency_os_backend/internal/http"
	"agency_os_backend/internal/jobs"
	"agency_os_backend/internal/meetings/handler"
	"agency_os_backend/internal/meetings/repository"
	"agency_os_backend/internal/meetings/service"
	"agency_os_backend/internal/tracker"
	"agency_os_backend/platform/ai/llm"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the collaborators the meetings module is built from. Model and
// Tracker are nil when not configured.
type Deps struct {
	Pool      *pgxpool.Pool
	Runner    *jobs.Runner
	Model     *llm.Model
	Members   service.MemberDirectory
	Tracker   *tracker.Client
	EventBus  events.Bus
	Validator *validator.Validator
	Log       *logger.Logger
}

// Module is the meetings bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(d Deps) (*Module, error) {
	var prompter service.Prompter
	if d.Model != nil {
		p, err := service.NewAgentPrompter(d.Model)
		if err != nil {
			return nil, fmt.Errorf("meeting extraction prompter: %w", err)
		}
		prompter = p
	}
	var tt service.TaskTracker
	if d.Tracker != nil {
		tt = d.Tracker
	}

	svc := service.New(service.Deps{
		Repo:     repository.New(d.Pool),
		Jobs:     d.Runner,
		Prompter: prompter,
		Members:  d.Members,
		Tracker:  tt,
		Bus:      d.EventBus,
		Log:      d.Log,
	})
	d.Runner.Register(jobs.KindMeetingExtraction, svc.RunExtractionJob)

	return &Module{handler: handler.New(svc, d.Validator), service: svc}, nil
}

func (m *Module) Name() string {
	return "meetings"
}

// RegisterRoutes mounts meeting routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	meetings := ctx.Protected.Group("/meetings")
	meetings.POST("", ctx.AIRateLimit, m.handler.Submit)
	meetings.GET("", m.handler.List)
	meetings.GET("/:id", m.handler.Get)
	meetings.DELETE("/:id", m.handler.Delete)
	meetings.POST("/:id/extract", ctx.AIRateLimit, m.handler.Extract)
	meetings.PATCH("/:id/tasks/:taskId", m.handler.UpdateTask)
	meetings.POST("/:id/push", m.handler.Push)
}

// RegisterHandlers subscribes to job completion to settle failed extractions.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.JobFinished{}.EventName(), m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.JobFinished:
		if e.Kind != string(jobs.KindMeetingExtraction) || e.Status != string(jobs.StatusFailed) {
			return nil
		}
		return m.service.MarkExtractionFailed(ctx, e.SubjectID, e.Error)
	default:
		return nil
	}
}

var _ apphttp.Module = (*Module)(nil)
