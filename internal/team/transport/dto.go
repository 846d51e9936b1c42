package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateMemberRequest struct {
	Email       string  `json:"email" validate:"required,email,max=320"`
	DisplayName string  `json:"displayName" validate:"required,notblank,max=200"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	IsAdmin     bool    `json:"isAdmin"`
	SendInvite  bool    `json:"sendInvite"`
}

type UpdateMemberRequest struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,notblank,max=200"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	IsAdmin     *bool   `json:"isAdmin,omitempty"`
}

type AssignmentInput struct {
	ClientID uuid.UUID `json:"clientId" validate:"required"`
	Role     string    `json:"role" validate:"required,oneof=strategist analyst viewer"`
}

type SetAssignmentsRequest struct {
	Assignments []AssignmentInput `json:"assignments" validate:"max=200,dive"`
}

type AssignmentResponse struct {
	ClientID   uuid.UUID `json:"clientId"`
	ClientName string    `json:"clientName"`
	Role       string    `json:"role"`
}

type MemberResponse struct {
	ID          uuid.UUID            `json:"id"`
	Email       string               `json:"email"`
	DisplayName string               `json:"displayName"`
	Phone       *string              `json:"phone,omitempty"`
	IsAdmin     bool                 `json:"isAdmin"`
	IsGhost     bool                 `json:"isGhost"`
	Assignments []AssignmentResponse `json:"assignments"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

type MemberListResponse struct {
	Items []MemberResponse `json:"items"`
}
