package service

import (
	"agency_os_backend/internal/keywords/cleaning"
	"agency_os_backend/internal/keywords/grouping"
	"agency_os_backend/internal/keywords/repository"
	"agency_os_backend/internal/keywords/transport"
)

func toPoolResponse(p repository.Pool, detail bool) transport.PoolResponse {
	resp := transport.PoolResponse{
		ID:             p.ID,
		ClientID:       p.ClientID,
		BrandID:        p.BrandID,
		Name:           p.Name,
		Status:         string(p.Status),
		RawCount:       len(p.RawKeywords),
		CleanedCount:   len(p.CleanedKeywords),
		RemovedCount:   len(p.Removed),
		RemovalSummary: removalSummary(p.Removed),
		ApprovedAt:     p.ApprovedAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if detail {
		resp.CleanedKeywords = p.CleanedKeywords
		resp.Removed = make([]transport.RemovedKeyword, 0, len(p.Removed))
		for _, r := range p.Removed {
			resp.Removed = append(resp.Removed, transport.RemovedKeyword{
				Keyword:    r.Keyword,
				Normalized: r.Normalized,
				Reason:     string(r.Reason),
			})
		}
	}
	return resp
}

func removalSummary(removed []cleaning.Removed) map[string]int {
	out := make(map[string]int)
	for _, r := range removed {
		out[string(r.Reason)]++
	}
	return out
}

func toGroupResponses(groups []grouping.Group) []transport.Group {
	out := make([]transport.Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, transport.Group{Name: g.Name, Keywords: g.Keywords})
	}
	return out
}

func toOverrideResponses(overrides []grouping.Override) []transport.Override {
	out := make([]transport.Override, 0, len(overrides))
	for _, o := range overrides {
		out = append(out, transport.Override{
			Seq:       o.Seq,
			Action:    string(o.Action),
			Keyword:   o.Keyword,
			FromGroup: o.FromGroup,
			ToGroup:   o.ToGroup,
		})
	}
	return out
}
