package handler

import (
	"net/http"

	"agency_os_backend/internal/meetings/service"
	"agency_os_backend/internal/meetings/transport"
	"agency_os_backend/platform/httpkit"
	"agency_os_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid meeting ID"
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

// Submit stores meeting notes and starts task extraction.
// POST /api/v1/meetings
func (h *Handler) Submit(c *gin.Context) {
	var req transport.SubmitMeetingRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	result, err := h.svc.Submit(c.Request.Context(), identity.ProfileID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// GET /api/v1/meetings
func (h *Handler) List(c *gin.Context) {
	var req transport.ListMeetingsRequest
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

// GET /api/v1/meetings/:id
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

// DELETE /api/v1/meetings/:id
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

// Extract re-runs task extraction.
// POST /api/v1/meetings/:id/extract
func (h *Handler) Extract(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	result, err := h.svc.Extract(c.Request.Context(), identity.ProfileID(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, result)
}

// UpdateTask edits, approves or discards an extracted task.
// PATCH /api/v1/meetings/:id/tasks/:taskId
func (h *Handler) UpdateTask(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	taskID, ok := httpkit.ParamUUID(c, "taskId", "invalid task ID")
	if !ok {
		return
	}
	var req transport.UpdateTaskRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.UpdateTask(c.Request.Context(), id, taskID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Push sends approved tasks to the tracker.
// POST /api/v1/meetings/:id/push
func (h *Handler) Push(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	var req transport.PushTasksRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	result, err := h.svc.Push(c.Request.Context(), identity.ProfileID(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
