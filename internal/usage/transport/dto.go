package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SummaryRequest selects an inclusive day range. Both ends default to the
// last 30 days.
type SummaryRequest struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

type FeatureUsage struct {
	Feature          string `json:"feature"`
	Model            string `json:"model"`
	Requests         int    `json:"requests"`
	FallbackRequests int    `json:"fallbackRequests"`
	PromptTokens     int64  `json:"promptTokens"`
	CompletionTokens int64  `json:"completionTokens"`
}

type DayUsage struct {
	Day              string `json:"day"`
	Requests         int    `json:"requests"`
	PromptTokens     int64  `json:"promptTokens"`
	CompletionTokens int64  `json:"completionTokens"`
}

type UsageTotals struct {
	Requests         int   `json:"requests"`
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
}

type SummaryResponse struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Totals   UsageTotals    `json:"totals"`
	Features []FeatureUsage `json:"features"`
	Days     []DayUsage     `json:"days"`
}

type ListActivityRequest struct {
	SubjectID string `form:"subjectId" validate:"required,uuid"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

type ActivityResponse struct {
	ID        uuid.UUID       `json:"id"`
	EventName string          `json:"eventName"`
	SubjectID *uuid.UUID      `json:"subjectId,omitempty"`
	ProfileID *uuid.UUID      `json:"profileId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ActivityListResponse struct {
	Items []ActivityResponse `json:"items"`
}
