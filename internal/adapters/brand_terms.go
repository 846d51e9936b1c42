package adapters

import (
	"context"

	brandsvc "agency_os_backend/internal/brands/service"
	keywordsvc "agency_os_backend/internal/keywords/service"

	"github.com/google/uuid"
)

// BrandTermsAdapter exposes brand cleaning inputs to the keywords module.
type BrandTermsAdapter struct {
	brands *brandsvc.Service
}

func NewBrandTermsAdapter(brands *brandsvc.Service) *BrandTermsAdapter {
	return &BrandTermsAdapter{brands: brands}
}

func (a *BrandTermsAdapter) GetBrandTerms(ctx context.Context, brandID uuid.UUID) (keywordsvc.BrandTerms, error) {
	t, err := a.brands.GetTerms(ctx, brandID)
	if err != nil {
		return keywordsvc.BrandTerms{}, err
	}
	return keywordsvc.BrandTerms{
		Name:            t.Name,
		Marketplaces:    t.Marketplaces,
		BrandTerms:      t.BrandTerms,
		CompetitorTerms: t.CompetitorTerms,
	}, nil
}

var _ keywordsvc.BrandTermsProvider = (*BrandTermsAdapter)(nil)
