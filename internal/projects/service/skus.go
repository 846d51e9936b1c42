package service

import (
	"context"

	"agency_os_backend/internal/keywords/cleaning"
	"agency_os_backend/internal/projects/domain"
	"agency_os_backend/internal/projects/repository"
	"agency_os_backend/internal/projects/transport"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/sanitize"

	"github.com/google/uuid"
)

func (s *Service) CreateSKU(ctx context.Context, projectID uuid.UUID, req transport.CreateSKURequest) (transport.SKUResponse, error) {
	if _, err := s.requireEditable(ctx, projectID, domain.ResourceSKUs); err != nil {
		return transport.SKUResponse{}, err
	}
	sku, err := s.repo.CreateSKU(ctx, editLock(projectID, domain.ResourceSKUs), repository.CreateSKUParams{
		ProjectID:   projectID,
		SKUCode:     sanitize.Line(req.SKUCode),
		ProductName: sanitize.Line(req.ProductName),
		Attributes:  req.Attributes,
		Notes:       req.Notes,
	})
	if err != nil {
		return transport.SKUResponse{}, err
	}
	return toSKUResponse(sku), nil
}

func (s *Service) UpdateSKU(ctx context.Context, projectID, skuID uuid.UUID, req transport.UpdateSKURequest) (transport.SKUResponse, error) {
	if _, err := s.requireEditable(ctx, projectID, domain.ResourceSKUs); err != nil {
		return transport.SKUResponse{}, err
	}
	if _, err := s.skuOf(ctx, projectID, skuID); err != nil {
		return transport.SKUResponse{}, err
	}
	sku, err := s.repo.UpdateSKU(ctx, repository.UpdateSKUParams{
		ID:          skuID,
		SKUCode:     sanitize.LinePtr(req.SKUCode),
		ProductName: sanitize.LinePtr(req.ProductName),
		Attributes:  req.Attributes,
		Notes:       req.Notes,
		Position:    req.Position,
	})
	if err != nil {
		return transport.SKUResponse{}, err
	}
	return toSKUResponse(sku), nil
}

func (s *Service) DeleteSKU(ctx context.Context, projectID, skuID uuid.UUID) error {
	if _, err := s.requireEditable(ctx, projectID, domain.ResourceSKUs); err != nil {
		return err
	}
	if _, err := s.skuOf(ctx, projectID, skuID); err != nil {
		return err
	}
	return s.repo.DeleteSKU(ctx, editLock(projectID, domain.ResourceSKUs), skuID)
}

// GetSKU returns one SKU with its keywords, questions, topics and copy.
func (s *Service) GetSKU(ctx context.Context, projectID, skuID uuid.UUID) (transport.SKUResponse, error) {
	sku, err := s.skuOf(ctx, projectID, skuID)
	if err != nil {
		return transport.SKUResponse{}, err
	}
	return s.skuDetail(ctx, sku)
}

func (s *Service) skuDetail(ctx context.Context, sku repository.SKU) (transport.SKUResponse, error) {
	resp := toSKUResponse(sku)

	keywords, err := s.repo.ListKeywords(ctx, sku.ID)
	if err != nil {
		return resp, err
	}
	questions, err := s.repo.ListQuestions(ctx, sku.ID)
	if err != nil {
		return resp, err
	}
	topics, err := s.repo.ListTopics(ctx, sku.ID)
	if err != nil {
		return resp, err
	}
	cp, err := s.repo.GetCopy(ctx, sku.ID)
	if err != nil {
		return resp, err
	}

	resp.Keywords = toKeywordResponses(keywords)
	resp.Questions = make([]transport.QuestionResponse, 0, len(questions))
	for _, q := range questions {
		resp.Questions = append(resp.Questions, toQuestionResponse(q))
	}
	resp.Topics = make([]transport.TopicResponse, 0, len(topics))
	for _, t := range topics {
		resp.Topics = append(resp.Topics, toTopicResponse(t))
	}
	if cp != nil {
		c := toCopyResponse(*cp)
		resp.Copy = &c
	}
	return resp, nil
}

// AddKeywords adds manual keywords to a SKU. Keywords are normalised the
// same way the cleaning pipeline does and duplicates are ignored.
func (s *Service) AddKeywords(ctx context.Context, projectID, skuID uuid.UUID, req transport.AddKeywordsRequest) (transport.AddKeywordsResponse, error) {
	return s.addKeywords(ctx, projectID, skuID, req.Keywords, repository.SourceManual)
}

// ImportPoolKeywords copies keywords from an approved pool, optionally
// limited to some of its groups.
func (s *Service) ImportPoolKeywords(ctx context.Context, projectID, skuID uuid.UUID, req transport.ImportPoolKeywordsRequest) (transport.AddKeywordsResponse, error) {
	if s.pools == nil {
		return transport.AddKeywordsResponse{}, apperr.Unavailable("keyword pools are not available")
	}
	if _, err := s.requireEditable(ctx, projectID, domain.ResourceKeywords); err != nil {
		return transport.AddKeywordsResponse{}, err
	}
	keywords, err := s.pools.ApprovedPoolKeywords(ctx, req.PoolID, req.Groups)
	if err != nil {
		return transport.AddKeywordsResponse{}, err
	}
	if len(keywords) == 0 {
		return transport.AddKeywordsResponse{}, apperr.Validation("the selected groups contain no keywords")
	}
	return s.addKeywords(ctx, projectID, skuID, keywords, repository.SourcePool)
}

func (s *Service) addKeywords(ctx context.Context, projectID, skuID uuid.UUID, raw []string, source string) (transport.AddKeywordsResponse, error) {
	if _, err := s.requireEditable(ctx, projectID, domain.ResourceKeywords); err != nil {
		return transport.AddKeywordsResponse{}, err
	}
	if _, err := s.skuOf(ctx, projectID, skuID); err != nil {
		return transport.AddKeywordsResponse{}, err
	}

	seen := make(map[string]struct{}, len(raw))
	keywords := make([]string, 0, len(raw))
	for _, k := range raw {
		norm := cleaning.Normalize(k)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		keywords = append(keywords, norm)
	}

	added, err := s.repo.AddKeywords(ctx, skuID, keywords, source)
	if err != nil {
		return transport.AddKeywordsResponse{}, err
	}
	all, err := s.repo.ListKeywords(ctx, skuID)
	if err != nil {
		return transport.AddKeywordsResponse{}, err
	}
	return transport.AddKeywordsResponse{Added: added, Keywords: toKeywordResponses(all)}, nil
}

func (s *Service) DeleteKeyword(ctx context.Context, projectID, skuID, keywordID uuid.UUID) error {
	if _, err := s.requireEditable(ctx, projectID, domain.ResourceKeywords); err != nil {
		return err
	}
	if _, err := s.skuOf(ctx, projectID, skuID); err != nil {
		return err
	}
	return s.repo.DeleteKeyword(ctx, editLock(projectID, domain.ResourceKeywords), skuID, keywordID)
}

func (s *Service) CreateQuestion(ctx context.Context, projectID, skuID uuid.UUID, req transport.QuestionRequest) (transport.QuestionResponse, error) {
	if _, err := s.requireEditable(ctx, projectID, domain.ResourceQuestions); err != nil {
		return transport.QuestionResponse{}, err
	}
	if _, err := s.skuOf(ctx, projectID, skuID); err != nil {
		return transport.QuestionResponse{}, err
	}
	q, err := s.repo.CreateQuestion(ctx, skuID, sanitize.Line(req.Question), sanitize.NotesPtr(req.Answer))
	if err != nil {
		return transport.QuestionResponse{}, err
	}
	return toQuestionResponse(q), nil
}

func (s *Service) UpdateQuestion(ctx context.Context, projectID, skuID, questionID uuid.UUID, req transport.QuestionRequest) (transport.QuestionResponse, error) {
	if _, err := s.requireEditable(ctx, projectID, domain.ResourceQuestions); err != nil {
		return transport.QuestionResponse{}, err
	}
	if _, err := s.skuOf(ctx, projectID, skuID); err != nil {
		return transport.QuestionResponse{}, err
	}
	q, err := s.repo.UpdateQuestion(ctx, skuID, questionID, sanitize.Line(req.Question), sanitize.NotesPtr(req.Answer))
	if err != nil {
		return transport.QuestionResponse{}, err
	}
	return toQuestionResponse(q), nil
}

func (s *Service) DeleteQuestion(ctx context.Context, projectID, skuID, questionID uuid.UUID) error {
	if _, err := s.requireEditable(ctx, projectID, domain.ResourceQuestions); err != nil {
		return err
	}
	if _, err := s.skuOf(ctx, projectID, skuID); err != nil {
		return err
	}
	return s.repo.DeleteQuestion(ctx, skuID, questionID)
}

// UpdateTopic selects, deselects or retitles a generated topic.
func (s *Service) UpdateTopic(ctx context.Context, projectID, skuID, topicID uuid.UUID, req transport.UpdateTopicRequest) (transport.TopicResponse, error) {
	if _, err := s.requireEditable(ctx, projectID, domain.ResourceTopics); err != nil {
		return transport.TopicResponse{}, err
	}
	if _, err := s.skuOf(ctx, projectID, skuID); err != nil {
		return transport.TopicResponse{}, err
	}
	topic, err := s.repo.GetTopic(ctx, topicID)
	if err != nil {
		return transport.TopicResponse{}, err
	}
	if topic.SKUID != skuID {
		return transport.TopicResponse{}, apperr.NotFound("topic not found")
	}

	updated, err := s.repo.UpdateTopic(ctx, editLock(projectID, domain.ResourceTopics), repository.UpdateTopicParams{
		ID:          topicID,
		Title:       sanitize.LinePtr(req.Title),
		Description: sanitize.NotesPtr(req.Description),
		Selected:    req.Selected,
	})
	if err != nil {
		return transport.TopicResponse{}, err
	}
	return toTopicResponse(updated), nil
}

// UpdateCopy applies a manual edit to generated copy.
func (s *Service) UpdateCopy(ctx context.Context, projectID, skuID uuid.UUID, req transport.UpdateCopyRequest) (transport.CopyResponse, error) {
	if _, err := s.requireEditable(ctx, projectID, domain.ResourceCopy); err != nil {
		return transport.CopyResponse{}, err
	}
	if _, err := s.skuOf(ctx, projectID, skuID); err != nil {
		return transport.CopyResponse{}, err
	}

	var bullets []string
	if req.Bullets != nil {
		bullets = make([]string, 0, len(req.Bullets))
		for _, b := range req.Bullets {
			if t := sanitize.Line(b); t != "" {
				bullets = append(bullets, t)
			}
		}
	}
	c, err := s.repo.UpdateCopy(ctx, repository.UpdateCopyParams{
		SKUID:       skuID,
		Title:       sanitize.LinePtr(req.Title),
		Bullets:     bullets,
		Description: sanitize.NotesPtr(req.Description),
	})
	if err != nil {
		return transport.CopyResponse{}, err
	}
	return toCopyResponse(c), nil
}
