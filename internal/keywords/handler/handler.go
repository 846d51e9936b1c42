package handler

import (
	"net/http"

	"agency_os_backend/internal/keywords/service"
	"agency_os_backend/internal/keywords/transport"
	"agency_os_backend/platform/httpkit"
	"agency_os_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid keyword pool ID"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

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

// poolAction resolves the pool id and caller shared by every mutating route.
func poolAction(c *gin.Context) (id, actor uuid.UUID, ok bool) {
	id, ok = httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, uuid.Nil, false
	}
	return id, identity.ProfileID(), true
}

// UploadURL returns a presigned URL for a keyword CSV.
// POST /api/v1/keyword-pools/upload-url
func (h *Handler) UploadURL(c *gin.Context) {
	var req transport.UploadURLRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.RequestUpload(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create stores a pool from inline keywords or an uploaded file.
// POST /api/v1/keyword-pools
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreatePoolRequest
	if !h.bind(c, &req) {
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

// List returns pools filtered by client, brand or status.
// GET /api/v1/keyword-pools
func (h *Handler) List(c *gin.Context) {
	var req transport.ListPoolsRequest
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

// Get returns a pool with its cleaned and removed keywords.
// GET /api/v1/keyword-pools/:id
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

// Delete removes a pool.
// DELETE /api/v1/keyword-pools/:id
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

// Clean runs the cleaning pipeline.
// POST /api/v1/keyword-pools/:id/clean
func (h *Handler) Clean(c *gin.Context) {
	id, actor, ok := poolAction(c)
	if !ok {
		return
	}
	var req transport.CleanRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.Clean(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Restore puts a removed keyword back.
// POST /api/v1/keyword-pools/:id/restore
func (h *Handler) Restore(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	var req transport.RestoreRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.Restore(c.Request.Context(), id, req.Keyword)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Group starts the AI grouping job.
// POST /api/v1/keyword-pools/:id/group
func (h *Handler) Group(c *gin.Context) {
	id, actor, ok := poolAction(c)
	if !ok {
		return
	}
	var req transport.GroupRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	result, err := h.svc.StartGrouping(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, result)
}

// Groups returns the merged groups.
// GET /api/v1/keyword-pools/:id/groups
func (h *Handler) Groups(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	result, err := h.svc.GetGroups(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AddOverride records a manual correction.
// POST /api/v1/keyword-pools/:id/overrides
func (h *Handler) AddOverride(c *gin.Context) {
	id, actor, ok := poolAction(c)
	if !ok {
		return
	}
	var req transport.OverrideRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.AddOverride(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ResetOverrides drops all corrections.
// DELETE /api/v1/keyword-pools/:id/overrides
func (h *Handler) ResetOverrides(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	result, err := h.svc.ResetOverrides(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Approve freezes the merged groups.
// POST /api/v1/keyword-pools/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	id, actor, ok := poolAction(c)
	if !ok {
		return
	}
	result, err := h.svc.Approve(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
