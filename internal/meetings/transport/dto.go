package transport

import (
	"time"

	"github.com/google/uuid"
)

type SubmitMeetingRequest struct {
	ClientID    uuid.UUID `json:"clientId" validate:"required"`
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	MeetingDate string    `json:"meetingDate" validate:"required,datetime=2006-01-02"`
	RawNotes    string    `json:"rawNotes" validate:"required,notblank,max=100000"`
}

type ListMeetingsRequest struct {
	ClientID string `form:"clientId" validate:"omitempty,uuid"`
}

type UpdateTaskRequest struct {
	Title             *string    `json:"title,omitempty" validate:"omitempty,notblank,max=300"`
	Description       *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	AssigneeProfileID *uuid.UUID `json:"assigneeProfileId,omitempty"`
	ClearAssignee     bool       `json:"clearAssignee,omitempty"`
	DueDate           *string    `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ClearDueDate      bool       `json:"clearDueDate,omitempty"`
	Status            *string    `json:"status,omitempty" validate:"omitempty,oneof=draft approved discarded"`
}

type PushTasksRequest struct {
	// ListID overrides the configured default tracker list.
	ListID  string      `json:"listId,omitempty" validate:"omitempty,max=100"`
	TaskIDs []uuid.UUID `json:"taskIds,omitempty" validate:"omitempty,max=200"`
}

type TaskResponse struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       *string    `json:"description,omitempty"`
	AssigneeHint      *string    `json:"assigneeHint,omitempty"`
	AssigneeProfileID *uuid.UUID `json:"assigneeProfileId,omitempty"`
	DueDate           *string    `json:"dueDate,omitempty"`
	Status            string     `json:"status"`
	ExternalID        *string    `json:"externalId,omitempty"`
	ExternalURL       *string    `json:"externalUrl,omitempty"`
	PushedAt          *time.Time `json:"pushedAt,omitempty"`
}

type MeetingResponse struct {
	ID          uuid.UUID      `json:"id"`
	ClientID    uuid.UUID      `json:"clientId"`
	Title       string         `json:"title"`
	MeetingDate string         `json:"meetingDate"`
	RawNotes    string         `json:"rawNotes,omitempty"`
	Status      string         `json:"status"`
	JobID       *uuid.UUID     `json:"jobId,omitempty"`
	Tasks       []TaskResponse `json:"tasks,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type MeetingListResponse struct {
	Items []MeetingResponse `json:"items"`
}

type PushFailure struct {
	TaskID uuid.UUID `json:"taskId"`
	Error  string    `json:"error"`
}

type PushTasksResponse struct {
	Pushed  int            `json:"pushed"`
	Skipped int            `json:"skipped"`
	Failed  []PushFailure  `json:"failed"`
	Tasks   []TaskResponse `json:"tasks"`
}
