package handler

import (
	"net/http"

	"agency_os_backend/internal/brands/service"
	"agency_os_backend/internal/brands/transport"
	"agency_os_backend/platform/httpkit"
	"agency_os_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid brand ID"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// bind decodes and validates a JSON body, writing the 400 itself.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

// List returns the brands of a client.
// GET /api/v1/brands?clientId=
func (h *Handler) List(c *gin.Context) {
	var req transport.ListBrandsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ListByClient(c.Request.Context(), uuid.MustParse(req.ClientID))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get returns one brand.
// GET /api/v1/brands/:id
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

// Create adds a brand to a client.
// POST /api/v1/admin/brands
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateBrandRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Update edits a brand.
// PUT /api/v1/admin/brands/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	var req transport.UpdateBrandRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes a brand.
// DELETE /api/v1/admin/brands/:id
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

// PresignLogo returns an upload URL for a brand logo.
// POST /api/v1/admin/brands/:id/logo/presign
func (h *Handler) PresignLogo(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	var req transport.LogoUploadRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.RequestLogoUpload(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ConfirmLogo attaches an uploaded logo to the brand.
// PUT /api/v1/admin/brands/:id/logo
func (h *Handler) ConfirmLogo(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	var req transport.ConfirmLogoRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.ConfirmLogo(c.Request.Context(), id, req.FileKey)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RemoveLogo clears the brand logo.
// DELETE /api/v1/admin/brands/:id/logo
func (h *Handler) RemoveLogo(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	result, err := h.svc.RemoveLogo(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
