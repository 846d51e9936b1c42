package transport

import (
	"time"

	"github.com/google/uuid"
)

type UploadURLRequest struct {
	ClientID    uuid.UUID `json:"clientId" validate:"required"`
	FileName    string    `json:"fileName" validate:"required,notblank,max=200"`
	ContentType string    `json:"contentType" validate:"required"`
	SizeBytes   int64     `json:"sizeBytes" validate:"required,min=1"`
}

type UploadURLResponse struct {
	UploadURL string    `json:"uploadUrl"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CreatePoolRequest takes either inline keywords or the key of an uploaded CSV.
type CreatePoolRequest struct {
	ClientID uuid.UUID  `json:"clientId" validate:"required"`
	BrandID  *uuid.UUID `json:"brandId,omitempty"`
	Name     string     `json:"name" validate:"required,notblank,max=200"`
	Keywords []string   `json:"keywords,omitempty" validate:"omitempty,max=20000,dive,max=300"`
	FileKey  *string    `json:"fileKey,omitempty" validate:"omitempty,notblank,max=500"`
}

type ListPoolsRequest struct {
	ClientID string `form:"clientId" validate:"omitempty,uuid"`
	BrandID  string `form:"brandId" validate:"omitempty,uuid"`
	Status   string `form:"status" validate:"omitempty,oneof=uploaded cleaned grouping grouped approved failed"`
}

type CleanRequest struct {
	RemoveBrand     bool     `json:"removeBrand"`
	RemoveColors    bool     `json:"removeColors"`
	RemoveSizes     bool     `json:"removeSizes"`
	CompetitorTerms []string `json:"competitorTerms,omitempty" validate:"omitempty,max=500,dive,notblank,max=100"`
	ExtraStopwords  []string `json:"extraStopwords,omitempty" validate:"omitempty,max=500,dive,notblank,max=100"`
	ExtraColors     []string `json:"extraColors,omitempty" validate:"omitempty,max=500,dive,notblank,max=100"`
	ExtraSizes      []string `json:"extraSizes,omitempty" validate:"omitempty,max=500,dive,notblank,max=100"`
}

type RestoreRequest struct {
	Keyword string `json:"keyword" validate:"required,notblank,max=300"`
}

type GroupRequest struct {
	MaxGroups int    `json:"maxGroups" validate:"omitempty,min=1,max=200"`
	Notes     string `json:"notes" validate:"omitempty,max=2000"`
}

type OverrideRequest struct {
	Action    string `json:"action" validate:"required,oneof=move remove add rename"`
	Keyword   string `json:"keyword" validate:"omitempty,max=300"`
	FromGroup string `json:"fromGroup" validate:"omitempty,max=200"`
	ToGroup   string `json:"toGroup" validate:"omitempty,max=200"`
}

type RemovedKeyword struct {
	Keyword    string `json:"keyword"`
	Normalized string `json:"normalized"`
	Reason     string `json:"reason"`
}

type PoolResponse struct {
	ID              uuid.UUID        `json:"id"`
	ClientID        uuid.UUID        `json:"clientId"`
	BrandID         *uuid.UUID       `json:"brandId,omitempty"`
	Name            string           `json:"name"`
	Status          string           `json:"status"`
	RawCount        int              `json:"rawCount"`
	CleanedCount    int              `json:"cleanedCount"`
	RemovedCount    int              `json:"removedCount"`
	RemovalSummary  map[string]int   `json:"removalSummary"`
	CleanedKeywords []string         `json:"cleanedKeywords,omitempty"`
	Removed         []RemovedKeyword `json:"removed,omitempty"`
	ApprovedAt      *time.Time       `json:"approvedAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

type PoolListResponse struct {
	Items []PoolResponse `json:"items"`
}

type Group struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

type Override struct {
	Seq       int64  `json:"seq"`
	Action    string `json:"action"`
	Keyword   string `json:"keyword,omitempty"`
	FromGroup string `json:"fromGroup,omitempty"`
	ToGroup   string `json:"toGroup,omitempty"`
}

type SkippedOverride struct {
	Seq    int64  `json:"seq"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// GroupsResponse is the merged view: AI groups with overrides replayed.
type GroupsResponse struct {
	PoolID    uuid.UUID         `json:"poolId"`
	Status    string            `json:"status"`
	Groups    []Group           `json:"groups"`
	Overrides []Override        `json:"overrides"`
	Skipped   []SkippedOverride `json:"skipped"`
}

type GroupingStartedResponse struct {
	PoolID uuid.UUID `json:"poolId"`
	JobID  uuid.UUID `json:"jobId"`
	Status string    `json:"status"`
}
