// Package brands provides the brand bounded context module.
package brands

import (
	"agency_os_backend/internal/adapters/storage"
	"agency_os_backend/internal/brands/handler"
	"agency_os_backend/internal/brands/repository"
	"agency_os_backend/internal/brands/service"
	apphttp "agency_os_backend/internal/http"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the brands module. store may be nil.
func NewModule(pool *pgxpool.Pool, store storage.StorageService, logoBucket string, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), store, logoBucket, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "brands"
}

// Service returns the brand service for cross-module adapters.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/brands", m.handler.List)
	ctx.Protected.GET("/brands/:id", m.handler.Get)

	adminGroup := ctx.Admin.Group("/brands")
	adminGroup.POST("", m.handler.Create)
	adminGroup.PUT("/:id", m.handler.Update)
	adminGroup.DELETE("/:id", m.handler.Delete)
	adminGroup.POST("/:id/logo/presign", m.handler.PresignLogo)
	adminGroup.PUT("/:id/logo", m.handler.ConfirmLogo)
	adminGroup.DELETE("/:id/logo", m.handler.RemoveLogo)
}

var _ apphttp.Module = (*Module)(nil)
