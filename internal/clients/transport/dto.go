package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateClientRequest struct {
	Name  string  `json:"name" validate:"required,notblank,max=200"`
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

type UpdateClientRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

type ListClientsRequest struct {
	Search   string `form:"search" validate:"omitempty,max=100"`
	Status   string `form:"status" validate:"omitempty,oneof=active archived"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type BrandSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Marketplaces []string  `json:"marketplaces"`
	LogoKey      *string   `json:"logoKey,omitempty"`
}

type ClientResponse struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Status    string         `json:"status"`
	Notes     *string        `json:"notes,omitempty"`
	Brands    []BrandSummary `json:"brands,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type ClientListResponse struct {
	Items    []ClientResponse `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
}
