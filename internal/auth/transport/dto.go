package transport

import (
	"time"

	"github.com/google/uuid"
)

type AssignedClient struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

type MeResponse struct {
	ID          uuid.UUID        `json:"id"`
	Email       string           `json:"email"`
	DisplayName string           `json:"displayName"`
	Phone       *string          `json:"phone,omitempty"`
	IsAdmin     bool             `json:"isAdmin"`
	Clients     []AssignedClient `json:"clients"`
	CreatedAt   time.Time        `json:"createdAt"`
}
