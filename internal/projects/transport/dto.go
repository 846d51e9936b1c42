package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateProjectRequest struct {
	ClientID    uuid.UUID  `json:"clientId" validate:"required"`
	BrandID     *uuid.UUID `json:"brandId,omitempty"`
	Name        string     `json:"name" validate:"required,notblank,max=200"`
	Marketplace *string    `json:"marketplace,omitempty" validate:"omitempty,max=50"`
	Locale      string     `json:"locale" validate:"omitempty,max=20"`
}

type UpdateProjectRequest struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	BrandID     *uuid.UUID `json:"brandId,omitempty"`
	Marketplace *string    `json:"marketplace,omitempty" validate:"omitempty,max=50"`
	Locale      *string    `json:"locale,omitempty" validate:"omitempty,notblank,max=20"`
}

type ListProjectsRequest struct {
	ClientID string `form:"clientId" validate:"omitempty,uuid"`
	Status   string `form:"status" validate:"omitempty,oneof=draft stage_a_approved stage_b_approved stage_c_approved archived"`
	Search   string `form:"search" validate:"omitempty,max=100"`
}

type TransitionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve_a approve_b approve_c unapprove_a unapprove_b unapprove_c archive restore"`
}

type ProjectResponse struct {
	ID               uuid.UUID     `json:"id"`
	ClientID         uuid.UUID     `json:"clientId"`
	BrandID          *uuid.UUID    `json:"brandId,omitempty"`
	Name             string        `json:"name"`
	Marketplace      *string       `json:"marketplace,omitempty"`
	Locale           string        `json:"locale"`
	Status           string        `json:"status"`
	PreviousStatus   *string       `json:"previousStatus,omitempty"`
	StageAApprovedAt *time.Time    `json:"stageAApprovedAt,omitempty"`
	StageBApprovedAt *time.Time    `json:"stageBApprovedAt,omitempty"`
	StageCApprovedAt *time.Time    `json:"stageCApprovedAt,omitempty"`
	ArchivedAt       *time.Time    `json:"archivedAt,omitempty"`
	SKUs             []SKUResponse `json:"skus,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

type ProjectListResponse struct {
	Items []ProjectResponse `json:"items"`
}

type CreateSKURequest struct {
	SKUCode     string            `json:"skuCode" validate:"required,notblank,max=100"`
	ProductName string            `json:"productName" validate:"required,notblank,max=300"`
	Attributes  map[string]string `json:"attributes,omitempty" validate:"omitempty,max=50"`
	Notes       *string           `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

type UpdateSKURequest struct {
	SKUCode     *string           `json:"skuCode,omitempty" validate:"omitempty,notblank,max=100"`
	ProductName *string           `json:"productName,omitempty" validate:"omitempty,notblank,max=300"`
	Attributes  map[string]string `json:"attributes,omitempty" validate:"omitempty,max=50"`
	Notes       *string           `json:"notes,omitempty" validate:"omitempty,max=5000"`
	Position    *int              `json:"position,omitempty" validate:"omitempty,min=0"`
}

type SKUResponse struct {
	ID          uuid.UUID          `json:"id"`
	ProjectID   uuid.UUID          `json:"projectId"`
	SKUCode     string             `json:"skuCode"`
	ProductName string             `json:"productName"`
	Attributes  map[string]string  `json:"attributes"`
	Notes       *string            `json:"notes,omitempty"`
	Position    int                `json:"position"`
	Keywords    []KeywordResponse  `json:"keywords,omitempty"`
	Questions   []QuestionResponse `json:"questions,omitempty"`
	Topics      []TopicResponse    `json:"topics,omitempty"`
	Copy        *CopyResponse      `json:"copy,omitempty"`
}

type AddKeywordsRequest struct {
	Keywords []string `json:"keywords" validate:"required,min=1,max=500,dive,notblank,max=300"`
}

type ImportPoolKeywordsRequest struct {
	PoolID uuid.UUID `json:"poolId" validate:"required"`
	Groups []string  `json:"groups,omitempty" validate:"omitempty,max=200,dive,notblank,max=200"`
}

type KeywordResponse struct {
	ID      uuid.UUID `json:"id"`
	Keyword string    `json:"keyword"`
	Source  string    `json:"source"`
}

type AddKeywordsResponse struct {
	Added    int               `json:"added"`
	Keywords []KeywordResponse `json:"keywords"`
}

type QuestionRequest struct {
	Question string  `json:"question" validate:"required,notblank,max=1000"`
	Answer   *string `json:"answer,omitempty" validate:"omitempty,max=5000"`
}

type QuestionResponse struct {
	ID       uuid.UUID `json:"id"`
	Question string    `json:"question"`
	Answer   *string   `json:"answer,omitempty"`
}

type UpdateTopicRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,notblank,max=300"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Selected    *bool   `json:"selected,omitempty"`
}

type TopicResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Selected    bool      `json:"selected"`
	Position    int       `json:"position"`
}

type UpdateCopyRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,notblank,max=500"`
	Bullets     []string `json:"bullets,omitempty" validate:"omitempty,max=10,dive,max=1000"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=10000"`
}

type CopyResponse struct {
	Title       string    `json:"title"`
	Bullets     []string  `json:"bullets"`
	Description string    `json:"description"`
	Edited      bool      `json:"edited"`
	Model       *string   `json:"model,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type GenerateCopyRequest struct {
	// Overwrite replaces copy that was edited by hand.
	Overwrite bool `json:"overwrite"`
}

type GenerationStartedResponse struct {
	ProjectID uuid.UUID `json:"projectId"`
	JobID     uuid.UUID `json:"jobId"`
	Kind      string    `json:"kind"`
}
