// Package team provides the team administration bounded context module.
package team

import (
	"context"
	"strings"

	"agency_os_backend/internal/email"
	"agency_os_backend/internal/events"
	apphttp "agency_os_backend/internal/http"
	"agency_os_backend/internal/team/handler"
	"agency_os_backend/internal/team/repository"
	"agency_os_backend/internal/team/service"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the team bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	sender     email.Sender
	appBaseURL string
	log        *logger.Logger
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, sender email.Sender, appBaseURL string, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), eventBus, log)
	return &Module{
		handler:    handler.New(svc, val),
		service:    svc,
		sender:     sender,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		log:        log,
	}
}

func (m *Module) Name() string {
	return "team"
}

// Service returns the team service.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts team routes on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	adminGroup := ctx.Admin.Group("/team")
	adminGroup.GET("", m.handler.List)
	adminGroup.POST("", m.handler.Create)
	adminGroup.PUT("/:id", m.handler.Update)
	adminGroup.DELETE("/:id", m.handler.Delete)
	adminGroup.PUT("/:id/assignments", m.handler.SetAssignments)
}

// RegisterHandlers subscribes to events that trigger invite emails.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.GhostProfileCreated{}.EventName(), m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.GhostProfileCreated:
		if !e.SendInvite {
			return nil
		}
		if err := m.sender.SendInviteEmail(ctx, e.Email, e.DisplayName, m.appBaseURL+"/login"); err != nil {
			m.log.Warn("invite email failed", "profileId", e.ProfileID, "error", err)
			return err
		}
		return nil
	default:
		return nil
	}
}

var _ apphttp.Module = (*Module)(nil)
