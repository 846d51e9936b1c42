// Package auth provides the authentication bounded context module.
// Tokens are issued by the identity provider; this module only maps them to
// team profiles.
package auth

import (
	"agency_os_backend/internal/auth/handler"
	"agency_os_backend/internal/auth/repository"
	"agency_os_backend/internal/auth/service"
	"agency_os_backend/internal/events"
	apphttp "agency_os_backend/internal/http"
	"agency_os_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the auth module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), eventBus, log)
	return &Module{
		handler: handler.New(svc, log),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "auth"
}

// Service returns the auth service.
func (m *Module) Service() *service.Service {
	return m.service
}

// ProfileMiddleware resolves the caller's profile for every protected route.
func (m *Module) ProfileMiddleware() gin.HandlerFunc {
	return m.handler.ResolveProfile()
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/me", m.handler.GetMe)
}

var _ apphttp.Module = (*Module)(nil)
