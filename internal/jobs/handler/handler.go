package handler

import (
	"context"
	"net/http"

	"agency_os_backend/internal/jobs/repository"
	"agency_os_backend/internal/jobs/transport"
	"agency_os_backend/platform/httpkit"
	"agency_os_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid job ID"
)

// Reader is the read side of the jobs repository.
type Reader interface {
	Get(ctx context.Context, id uuid.UUID) (repository.Job, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID, limit int) ([]repository.Job, error)
}

// Handler serves job status endpoints used by the UI to poll progress.
type Handler struct {
	repo Reader
	val  *validator.Validator
}

func New(repo Reader, val *validator.Validator) *Handler {
	return &Handler{repo: repo, val: val}
}

// Get returns one job.
// GET /api/v1/jobs/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id", msgInvalidID)
	if !ok {
		return
	}

	job, err := h.repo.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, ToResponse(job))
}

// List returns the most recent jobs for a subject.
// GET /api/v1/jobs?subjectId=
func (h *Handler) List(c *gin.Context) {
	var req transport.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	jobs, err := h.repo.ListBySubject(c.Request.Context(), uuid.MustParse(req.SubjectID), req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.JobResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, ToResponse(job))
	}
	httpkit.OK(c, transport.JobListResponse{Items: items})
}

// ToResponse maps a job row to its API shape. Other modules embed it when
// they return the job they just started.
func ToResponse(job repository.Job) transport.JobResponse {
	return transport.JobResponse{
		ID:         job.ID,
		Kind:       string(job.Kind),
		SubjectID:  job.SubjectID,
		Status:     string(job.Status),
		Error:      job.Error,
		Result:     job.Result,
		CreatedBy:  job.CreatedBy,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
	}
}
