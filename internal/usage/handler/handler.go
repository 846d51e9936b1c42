package handler

import (
	"net/http"

	"agency_os_backend/internal/usage/service"
	"agency_os_backend/internal/usage/transport"
	"agency_os_backend/platform/httpkit"
	"agency_os_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

// Summary reports LLM usage per feature and per day.
// GET /api/v1/admin/usage?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) Summary(c *gin.Context) {
	var req transport.SummaryRequest
	if !h.bindQuery(c, &req) {
		return
	}
	result, err := h.svc.Summary(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GET /api/v1/activity?subjectId=...
func (h *Handler) ListActivity(c *gin.Context) {
	var req transport.ListActivityRequest
	if !h.bindQuery(c, &req) {
		return
	}
	result, err := h.svc.ListActivity(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
