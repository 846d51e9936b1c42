package service

import (
	"agency_os_backend/internal/projects/domain"
	"agency_os_backend/internal/projects/repository"
	"agency_os_backend/internal/projects/transport"
)

func toProjectResponse(p repository.Project, skus []transport.SKUResponse) transport.ProjectResponse {
	resp := transport.ProjectResponse{
		ID:               p.ID,
		ClientID:         p.ClientID,
		BrandID:          p.BrandID,
		Name:             p.Name,
		Marketplace:      p.Marketplace,
		Locale:           p.Locale,
		Status:           string(p.Status),
		StageAApprovedAt: p.StageAApprovedAt,
		StageBApprovedAt: p.StageBApprovedAt,
		StageCApprovedAt: p.StageCApprovedAt,
		ArchivedAt:       p.ArchivedAt,
		SKUs:             skus,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.PreviousStatus != nil && *p.PreviousStatus != domain.Status("") {
		prev := string(*p.PreviousStatus)
		resp.PreviousStatus = &prev
	}
	return resp
}

func toSKUResponse(s repository.SKU) transport.SKUResponse {
	return transport.SKUResponse{
		ID:          s.ID,
		ProjectID:   s.ProjectID,
		SKUCode:     s.SKUCode,
		ProductName: s.ProductName,
		Attributes:  s.Attributes,
		Notes:       s.Notes,
		Position:    s.Position,
	}
}

func toKeywordResponses(keywords []repository.Keyword) []transport.KeywordResponse {
	out := make([]transport.KeywordResponse, 0, len(keywords))
	for _, k := range keywords {
		out = append(out, transport.KeywordResponse{ID: k.ID, Keyword: k.Keyword, Source: k.Source})
	}
	return out
}

func toQuestionResponse(q repository.Question) transport.QuestionResponse {
	return transport.QuestionResponse{ID: q.ID, Question: q.Question, Answer: q.Answer}
}

func toTopicResponse(t repository.Topic) transport.TopicResponse {
	return transport.TopicResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Selected:    t.Selected,
		Position:    t.Position,
	}
}

func toCopyResponse(c repository.Copy) transport.CopyResponse {
	bullets := c.Bullets
	if bullets == nil {
		bullets = []string{}
	}
	return transport.CopyResponse{
		Title:       c.Title,
		Bullets:     bullets,
		Description: c.Description,
		Edited:      c.Edited,
		Model:       c.Model,
		UpdatedAt:   c.UpdatedAt,
	}
}
