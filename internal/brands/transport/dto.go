package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateBrandRequest struct {
	ClientID        uuid.UUID `json:"clientId" validate:"required"`
	Name            string    `json:"name" validate:"required,notblank,max=200"`
	Marketplaces    []string  `json:"marketplaces" validate:"omitempty,max=20,dive,notblank,max=50"`
	BrandTerms      []string  `json:"brandTerms" validate:"omitempty,max=200,dive,notblank,max=100"`
	CompetitorTerms []string  `json:"competitorTerms" validate:"omitempty,max=500,dive,notblank,max=100"`
}

type UpdateBrandRequest struct {
	Name            *string  `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	Marketplaces    []string `json:"marketplaces,omitempty" validate:"omitempty,max=20,dive,notblank,max=50"`
	BrandTerms      []string `json:"brandTerms,omitempty" validate:"omitempty,max=200,dive,notblank,max=100"`
	CompetitorTerms []string `json:"competitorTerms,omitempty" validate:"omitempty,max=500,dive,notblank,max=100"`
}

type ListBrandsRequest struct {
	ClientID string `form:"clientId" validate:"required,uuid"`
}

type LogoUploadRequest struct {
	FileName    string `json:"fileName" validate:"required,notblank,max=200"`
	ContentType string `json:"contentType" validate:"required"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

type LogoUploadResponse struct {
	UploadURL string    `json:"uploadUrl"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ConfirmLogoRequest struct {
	FileKey string `json:"fileKey" validate:"required,notblank"`
}

type BrandResponse struct {
	ID              uuid.UUID `json:"id"`
	ClientID        uuid.UUID `json:"clientId"`
	Name            string    `json:"name"`
	Marketplaces    []string  `json:"marketplaces"`
	BrandTerms      []string  `json:"brandTerms"`
	CompetitorTerms []string  `json:"competitorTerms"`
	LogoKey         *string   `json:"logoKey,omitempty"`
	LogoURL         *string   `json:"logoUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type BrandListResponse struct {
	Items []BrandResponse `json:"items"`
}
