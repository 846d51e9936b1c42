package handler

import (
	"net/http"

	"agency_os_backend/internal/clients/service"
	"agency_os_backend/internal/clients/transport"
	"agency_os_backend/platform/httpkit"
	"agency_os_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid client ID"
)

// Handler handles HTTP requests for clients.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves clients with search, status filter and pagination.
// GET /api/v1/clients
func (h *Handler) List(c *gin.Context) {
	var req transport.ListClientsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get retrieves a client with its brands.
// GET /api/v1/clients/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create adds a client.
// POST /api/v1/admin/clients
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), identity.ProfileID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Update edits a client.
// PUT /api/v1/admin/clients/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	var req transport.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Archive hides a client from active lists.
// POST /api/v1/admin/clients/:id/archive
func (h *Handler) Archive(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	result, err := h.svc.Archive(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Restore reactivates an archived client.
// POST /api/v1/admin/clients/:id/restore
func (h *Handler) Restore(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	result, err := h.svc.Restore(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes a client without brands.
// DELETE /api/v1/admin/clients/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}
