package adapters

import (
	"context"

	keywordsvc "agency_os_backend/internal/keywords/service"
	projectsvc "agency_os_backend/internal/projects/service"

	"github.com/google/uuid"
)

// PoolKeywordsAdapter lets projects import keywords from approved pools.
type PoolKeywordsAdapter struct {
	pools *keywordsvc.Service
}

func NewPoolKeywordsAdapter(pools *keywordsvc.Service) *PoolKeywordsAdapter {
	return &PoolKeywordsAdapter{pools: pools}
}

// ApprovedPoolKeywords flattens the selected approved groups, in group order.
func (a *PoolKeywordsAdapter) ApprovedPoolKeywords(ctx context.Context, poolID uuid.UUID, groups []string) ([]string, error) {
	approved, err := a.pools.ApprovedKeywords(ctx, poolID, groups)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, g := range approved {
		out = append(out, g.Keywords...)
	}
	return out, nil
}

var _ projectsvc.PoolKeywordSource = (*PoolKeywordsAdapter)(nil)
