// Package clients provides the agency client bounded context module.
package clients

import (
	"agency_os_backend/internal/clients/handler"
	"agency_os_backend/internal/clients/repository"
	"agency_os_backend/internal/clients/service"
	apphttp "agency_os_backend/internal/http"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the clients bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "clients"
}

// RegisterRoutes mounts client routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/clients", m.handler.List)
	ctx.Protected.GET("/clients/:id", m.handler.Get)

	adminGroup := ctx.Admin.Group("/clients")
	adminGroup.POST("", m.handler.Create)
	adminGroup.PUT("/:id", m.handler.Update)
	adminGroup.POST("/:id/archive", m.handler.Archive)
	adminGroup.POST("/:id/restore", m.handler.Restore)
	adminGroup.DELETE("/:id", m.handler.Delete)
}

var _ apphttp.Module = (*Module)(nil)
