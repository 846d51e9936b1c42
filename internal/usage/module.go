// Package usage records AI usage and domain activity from the event bus.
package usage

import (
	"context"

	"agency_os_backend/internal/events"
	apphttp "agency_os_backend/internal/http"
	"agency_os_backend/internal/usage/handler"
	"agency_os_backend/internal/usage/repository"
	"agency_os_backend/internal/usage/service"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/telemetry"
	"agency_os_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const meterScope = "agency_os_backend/usage"

// Module is the usage bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	log     *logger.Logger
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) (*Module, error) {
	svc, err := service.New(repository.New(pool), telemetry.Meter(meterScope), log)
	if err != nil {
		return nil, err
	}
	return &Module{handler: handler.New(svc, val), service: svc, log: log}, nil
}

func (m *Module) Name() string {
	return "usage"
}

// RegisterRoutes mounts usage routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/usage", m.handler.Summary)
	ctx.Protected.GET("/activity", m.handler.ListActivity)
}

// RegisterHandlers subscribes the recorder to every domain event it logs.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.AIUsageRecorded{}.EventName(), m)

	bus.Subscribe(events.GhostProfileCreated{}.EventName(), m)
	bus.Subscribe(events.ProfileLinked{}.EventName(), m)
	bus.Subscribe(events.KeywordPoolCleaned{}.EventName(), m)
	bus.Subscribe(events.KeywordPoolApproved{}.EventName(), m)
	bus.Subscribe(events.ProjectStageChanged{}.EventName(), m)
	bus.Subscribe(events.JobFinished{}.EventName(), m)
	bus.Subscribe(events.MeetingTasksExtracted{}.EventName(), m)
	bus.Subscribe(events.MeetingTasksPushed{}.EventName(), m)

	m.log.Info("usage module registered event handlers")
}

// Handle routes events to the appropriate recorder.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.AIUsageRecorded:
		return m.service.RecordAIUsage(ctx, e)
	default:
		return m.service.RecordActivity(ctx, event)
	}
}

var _ apphttp.Module = (*Module)(nil)
