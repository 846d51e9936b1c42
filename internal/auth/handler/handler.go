package handler

import (
	"context"

	"agency_os_backend/internal/auth/service"
	"agency_os_backend/platform/httpkit"
	"agency_os_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
	log *logger.Logger
}

func New(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// ResolveProfile runs after AuthRequired and stores the caller's profile on
// the request. First sign-ins link or create the profile here.
func (h *Handler) ResolveProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := httpkit.MustGetIdentity(c)
		if identity == nil {
			return
		}

		profile, err := h.svc.EnsureProfile(c.Request.Context(), identity.AuthUserID(), identity.Email())
		if httpkit.HandleError(c, err) {
			return
		}

		httpkit.SetProfile(c, profile.ID, profile.IsAdmin)
		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, profile.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetMe returns the caller's profile and assigned clients.
// GET /api/v1/me
func (h *Handler) GetMe(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	resp, err := h.svc.GetMe(c.Request.Context(), identity.ProfileID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}
