package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ListJobsRequest filters jobs by the entity they operate on.
type ListJobsRequest struct {
	SubjectID string `form:"subjectId" validate:"required,uuid"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// JobResponse represents a background job in API responses.
type JobResponse struct {
	ID         uuid.UUID       `json:"id"`
	Kind       string          `json:"kind"`
	SubjectID  uuid.UUID       `json:"subjectId"`
	Status     string          `json:"status"`
	Error      *string         `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	CreatedBy  *uuid.UUID      `json:"createdBy,omitempty"`
	StartedAt  *time.Time      `json:"startedAt,omitempty"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// JobListResponse wraps a list of jobs.
type JobListResponse struct {
	Items []JobResponse `json:"items"`
}
