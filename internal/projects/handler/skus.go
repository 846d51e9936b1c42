package handler

import (
	"net/http"

	"agency_os_backend/internal/projects/transport"
	"agency_os_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// skuPath resolves :id and :skuId.
func skuPath(c *gin.Context) (projectID, skuID uuid.UUID, ok bool) {
	projectID, ok = httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	skuID, ok = httpkit.ParamUUID(c, "skuId", msgInvalidSKUID)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return projectID, skuID, true
}

// POST /api/v1/projects/:id/skus
func (h *Handler) CreateSKU(c *gin.Context) {
	projectID, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}
	var req transport.CreateSKURequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.CreateSKU(c.Request.Context(), projectID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// GET /api/v1/projects/:id/skus/:skuId
func (h *Handler) GetSKU(c *gin.Context) {
	projectID, skuID, ok := skuPath(c)
	if !ok {
		return
	}
	result, err := h.svc.GetSKU(c.Request.Context(), projectID, skuID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PUT /api/v1/projects/:id/skus/:skuId
func (h *Handler) UpdateSKU(c *gin.Context) {
	projectID, skuID, ok := skuPath(c)
	if !ok {
		return
	}
	var req transport.UpdateSKURequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.UpdateSKU(c.Request.Context(), projectID, skuID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DELETE /api/v1/projects/:id/skus/:skuId
func (h *Handler) DeleteSKU(c *gin.Context) {
	projectID, skuID, ok := skuPath(c)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteSKU(c.Request.Context(), projectID, skuID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/v1/projects/:id/skus/:skuId/keywords
func (h *Handler) AddKeywords(c *gin.Context) {
	projectID, skuID, ok := skuPath(c)
	if !ok {
		return
	}
	var req transport.AddKeywordsRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.AddKeywords(c.Request.Context(), projectID, skuID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ImportPoolKeywords copies keywords from an approved keyword pool.
// POST /api/v1/projects/:id/skus/:skuId/keywords/import
func (h *Handler) ImportPoolKeywords(c *gin.Context) {
	projectID, skuID, ok := skuPath(c)
	if !ok {
		return
	}
	var req transport.ImportPoolKeywordsRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.ImportPoolKeywords(c.Request.Context(), projectID, skuID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DELETE /api/v1/projects/:id/skus/:skuId/keywords/:keywordId
func (h *Handler) DeleteKeyword(c *gin.Context) {
	projectID, skuID, ok := skuPath(c)
	if !ok {
		return
	}
	keywordID, ok := httpkit.ParamUUID(c, "keywordId", "invalid keyword ID")
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteKeyword(c.Request.Context(), projectID, skuID, keywordID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/v1/projects/:id/skus/:skuId/questions
func (h *Handler) CreateQuestion(c *gin.Context) {
	projectID, skuID, ok := skuPath(c)
	if !ok {
		return
	}
	var req transport.QuestionRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.CreateQuestion(c.Request.Context(), projectID, skuID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// PUT /api/v1/projects/:id/skus/:skuId/questions/:questionId
func (h *Handler) UpdateQuestion(c *gin.Context) {
	projectID, skuID, ok := skuPath(c)
	if !ok {
		return
	}
	questionID, ok := httpkit.ParamUUID(c, "questionId", "invalid question ID")
	if !ok {
		return
	}
	var req transport.QuestionRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.UpdateQuestion(c.Request.Context(), projectID, skuID, questionID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DELETE /api/v1/projects/:id/skus/:skuId/questions/:questionId
func (h *Handler) DeleteQuestion(c *gin.Context) {
	projectID, skuID, ok := skuPath(c)
	if !ok {
		return
	}
	questionID, ok := httpkit.ParamUUID(c, "questionId", "invalid question ID")
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteQuestion(c.Request.Context(), projectID, skuID, questionID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateTopic selects, deselects or edits a generated topic.
// PATCH /api/v1/projects/:id/skus/:skuId/topics/:topicId
func (h *Handler) UpdateTopic(c *gin.Context) {
	projectID, skuID, ok := skuPath(c)
	if !ok {
		return
	}
	topicID, ok := httpkit.ParamUUID(c, "topicId", "invalid topic ID")
	if !ok {
		return
	}
	var req transport.UpdateTopicRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.UpdateTopic(c.Request.Context(), projectID, skuID, topicID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PUT /api/v1/projects/:id/skus/:skuId/copy
func (h *Handler) UpdateCopy(c *gin.Context) {
	projectID, skuID, ok := skuPath(c)
	if !ok {
		return
	}
	var req transport.UpdateCopyRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.UpdateCopy(c.Request.Context(), projectID, skuID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
