package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"agency_os_backend/internal/events"
	"agency_os_backend/internal/jobs"
	"agency_os_backend/internal/projects/domain"
	"agency_os_backend/internal/projects/repository"
	"agency_os_backend/internal/projects/transport"
	"agency_os_backend/platform/ai/llm"
	"agency_os_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	featureTopicGeneration = "topic_generation"
	featureCopyGeneration  = "copy_generation"

	maxTopicsPerSKU      = 8
	maxCopyBullets       = 10
	generationConcurrent = 3

	msgAIUnavailable = "AI generation is not configured"
)

type copyPayload struct {
	Overwrite bool `json:"overwrite"`
}

type generationResult struct {
	SKUs    int `json:"skus"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
}

type topicReply struct {
	Topics []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"topics"`
}

type copyReply struct {
	Title       string   `json:"title"`
	Bullets     []string `json:"bullets"`
	Description string   `json:"description"`
}

// StartTopicGeneration starts the topic job for every SKU of the project.
func (s *Service) StartTopicGeneration(ctx context.Context, actorID, projectID uuid.UUID) (transport.GenerationStartedResponse, error) {
	if s.prompter.Topics == nil {
		return transport.GenerationStartedResponse{}, apperr.Unavailable(msgAIUnavailable)
	}
	return s.startGeneration(ctx, actorID, projectID, domain.GenerateTopics, jobs.KindTopicGeneration, nil)
}

// StartCopyGeneration starts the copy job. Copy edited by hand is kept
// unless overwrite is set.
func (s *Service) StartCopyGeneration(ctx context.Context, actorID, projectID uuid.UUID, req transport.GenerateCopyRequest) (transport.GenerationStartedResponse, error) {
	if s.prompter.Copy == nil {
		return transport.GenerationStartedResponse{}, apperr.Unavailable(msgAIUnavailable)
	}
	return s.startGeneration(ctx, actorID, projectID, domain.GenerateCopy, jobs.KindCopyGeneration, copyPayload{Overwrite: req.Overwrite})
}

func (s *Service) startGeneration(ctx context.Context, actorID, projectID uuid.UUID, gen domain.GenerationKind, kind jobs.Kind, payload any) (transport.GenerationStartedResponse, error) {
	p, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return transport.GenerationStartedResponse{}, err
	}
	if reason := domain.GenerationBlockedReason(p.Status, gen); reason != "" {
		return transport.GenerationStartedResponse{}, apperr.Conflict(reason)
	}
	skus, err := s.repo.ListSKUs(ctx, projectID)
	if err != nil {
		return transport.GenerationStartedResponse{}, err
	}
	if len(skus) == 0 {
		return transport.GenerationStartedResponse{}, apperr.Validation("the project has no SKUs")
	}

	job, err := s.jobs.Start(ctx, jobs.StartParams{
		Kind:      kind,
		SubjectID: projectID,
		CreatedBy: actorID,
		Payload:   payload,
	})
	if err != nil {
		return transport.GenerationStartedResponse{}, err
	}
	return transport.GenerationStartedResponse{ProjectID: projectID, JobID: job.ID, Kind: string(kind)}, nil
}

// generationTarget re-checks the gate when the job runs; the project may
// have moved on since the job was queued.
func (s *Service) generationTarget(ctx context.Context, projectID uuid.UUID, gen domain.GenerationKind) (repository.Project, []repository.SKU, error) {
	p, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return repository.Project{}, nil, err
	}
	if reason := domain.GenerationBlockedReason(p.Status, gen); reason != "" {
		return repository.Project{}, nil, apperr.Conflict(reason)
	}
	skus, err := s.repo.ListSKUs(ctx, projectID)
	if err != nil {
		return repository.Project{}, nil, err
	}
	return p, skus, nil
}

// RunTopicJob is the jobs.HandlerFunc for topic generation. Topics of every
// SKU are replaced, which also clears previous selections. The writes are
// bound to stage A, so a project approved or unapproved while the model is
// answering fails the job instead of losing its selected topics.
func (s *Service) RunTopicJob(ctx context.Context, job jobs.Job) (json.RawMessage, error) {
	if s.prompter.Topics == nil {
		return nil, apperr.Unavailable(msgAIUnavailable)
	}
	p, skus, err := s.generationTarget(ctx, job.SubjectID, domain.GenerateTopics)
	if err != nil {
		return nil, err
	}

	lock := repository.StageLock{ProjectID: p.ID, Status: domain.GenerationRequires(domain.GenerateTopics)}
	usage := &usageSum{}
	defer s.publishUsage(ctx, job, featureTopicGeneration, usage)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(generationConcurrent)
	for _, sku := range skus {
		eg.Go(func() error {
			input, err := s.skuBrief(egCtx, p, sku, false)
			if err != nil {
				return err
			}
			res, err := s.prompter.Topics.Prompt(egCtx, input)
			usage.add(res.Usage)
			if err != nil {
				return fmt.Errorf("topics for %s: %w", sku.SKUCode, err)
			}
			var reply topicReply
			if err := llm.DecodeJSON(res.Text, &reply); err != nil {
				return fmt.Errorf("topics for %s: %w", sku.SKUCode, err)
			}
			return s.repo.ReplaceTopics(egCtx, lock, sku.ID, topicDrafts(reply))
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	s.log.Info("topics generated", "projectId", p.ID, "skus", len(skus))
	return jobs.EncodeResult(generationResult{SKUs: len(skus), Written: len(skus)})
}

func topicDrafts(reply topicReply) []repository.TopicDraft {
	drafts := make([]repository.TopicDraft, 0, maxTopicsPerSKU)
	seen := make(map[string]struct{})
	for _, t := range reply.Topics {
		title := strings.TrimSpace(t.Title)
		key := strings.ToLower(title)
		if title == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		d := repository.TopicDraft{Title: title}
		if desc := strings.TrimSpace(t.Description); desc != "" {
			d.Description = &desc
		}
		drafts = append(drafts, d)
		if len(drafts) == maxTopicsPerSKU {
			break
		}
	}
	return drafts
}

// RunCopyJob is the jobs.HandlerFunc for copy generation.
func (s *Service) RunCopyJob(ctx context.Context, job jobs.Job) (json.RawMessage, error) {
	if s.prompter.Copy == nil {
		return nil, apperr.Unavailable(msgAIUnavailable)
	}
	var payload copyPayload
	if err := jobs.DecodePayload(job, &payload); err != nil {
		return nil, err
	}
	p, skus, err := s.generationTarget(ctx, job.SubjectID, domain.GenerateCopy)
	if err != nil {
		return nil, err
	}

	lock := repository.StageLock{ProjectID: p.ID, Status: domain.GenerationRequires(domain.GenerateCopy)}
	usage := &usageSum{}
	defer s.publishUsage(ctx, job, featureCopyGeneration, usage)

	var (
		mu     sync.Mutex
		result = generationResult{SKUs: len(skus)}
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(generationConcurrent)
	for _, sku := range skus {
		eg.Go(func() error {
			written, err := s.generateCopy(egCtx, lock, p, sku, payload.Overwrite, usage)
			if err != nil {
				return err
			}
			mu.Lock()
			if written {
				result.Written++
			} else {
				result.Skipped++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	s.log.Info("copy generated", "projectId", p.ID, "written", result.Written, "skipped", result.Skipped)
	return jobs.EncodeResult(result)
}

func (s *Service) generateCopy(ctx context.Context, lock repository.StageLock, p repository.Project, sku repository.SKU, overwrite bool, usage *usageSum) (bool, error) {
	existing, err := s.repo.GetCopy(ctx, sku.ID)
	if err != nil {
		return false, err
	}
	if existing != nil && existing.Edited && !overwrite {
		return false, nil
	}

	input, err := s.skuBrief(ctx, p, sku, true)
	if err != nil {
		return false, err
	}
	res, err := s.prompter.Copy.Prompt(ctx, input)
	usage.add(res.Usage)
	if err != nil {
		return false, fmt.Errorf("copy for %s: %w", sku.SKUCode, err)
	}
	var reply copyReply
	if err := llm.DecodeJSON(res.Text, &reply); err != nil {
		return false, fmt.Errorf("copy for %s: %w", sku.SKUCode, err)
	}
	title := strings.TrimSpace(reply.Title)
	if title == "" {
		return false, fmt.Errorf("copy for %s: model returned an empty title", sku.SKUCode)
	}

	bullets := make([]string, 0, len(reply.Bullets))
	for _, b := range reply.Bullets {
		if t := strings.TrimSpace(b); t != "" {
			bullets = append(bullets, t)
		}
		if len(bullets) == maxCopyBullets {
			break
		}
	}
	c := repository.Copy{
		SKUID:       sku.ID,
		Title:       title,
		Bullets:     bullets,
		Description: strings.TrimSpace(reply.Description),
	}
	if res.Usage.Model != "" {
		model := res.Usage.Model
		c.Model = &model
	}
	return s.repo.SaveGeneratedCopy(ctx, lock, c, overwrite)
}

// skuBrief renders the prompt input for one SKU. Copy briefs include the
// selected topics.
func (s *Service) skuBrief(ctx context.Context, p repository.Project, sku repository.SKU, withTopics bool) (string, error) {
	keywords, err := s.repo.ListKeywords(ctx, sku.ID)
	if err != nil {
		return "", err
	}
	questions, err := s.repo.ListQuestions(ctx, sku.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Locale: %s\n", p.Locale)
	if p.Marketplace != nil {
		fmt.Fprintf(&b, "Marketplace: %s\n", *p.Marketplace)
	}
	fmt.Fprintf(&b, "Product: %s (SKU %s)\n", sku.ProductName, sku.SKUCode)

	if len(sku.Attributes) > 0 {
		keys := make([]string, 0, len(sku.Attributes))
		for k := range sku.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\nAttributes:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, sku.Attributes[k])
		}
	}
	if sku.Notes != nil && strings.TrimSpace(*sku.Notes) != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", strings.TrimSpace(*sku.Notes))
	}

	b.WriteString("\nKeywords:\n")
	for _, k := range keywords {
		fmt.Fprintf(&b, "- %s\n", k.Keyword)
	}
	if len(questions) > 0 {
		b.WriteString("\nShopper questions:\n")
		for _, q := range questions {
			if q.Answer != nil && *q.Answer != "" {
				fmt.Fprintf(&b, "- %s (answer: %s)\n", q.Question, *q.Answer)
			} else {
				fmt.Fprintf(&b, "- %s\n", q.Question)
			}
		}
	}

	if withTopics {
		topics, err := s.repo.ListTopics(ctx, sku.ID)
		if err != nil {
			return "", err
		}
		b.WriteString("\nSelected topics:\n")
		for _, t := range topics {
			if !t.Selected {
				continue
			}
			if t.Description != nil {
				fmt.Fprintf(&b, "- %s: %s\n", t.Title, *t.Description)
			} else {
				fmt.Fprintf(&b, "- %s\n", t.Title)
			}
		}
	}
	return b.String(), nil
}

// usageSum accumulates token usage across concurrent prompts.
type usageSum struct {
	mu    sync.Mutex
	total llm.Usage
}

func (u *usageSum) add(x llm.Usage) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.total.PromptTokens += x.PromptTokens
	u.total.CompletionTokens += x.CompletionTokens
	u.total.Fallback = u.total.Fallback || x.Fallback
	if u.total.Model == "" {
		u.total.Model = x.Model
	}
}

func (u *usageSum) get() llm.Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.total
}

func (s *Service) publishUsage(ctx context.Context, job jobs.Job, feature string, u *usageSum) {
	total := u.get()
	if total.PromptTokens == 0 && total.CompletionTokens == 0 {
		return
	}
	actor := uuid.Nil
	if job.CreatedBy != nil {
		actor = *job.CreatedBy
	}
	s.bus.Publish(ctx, events.AIUsageRecorded{
		BaseEvent:        events.NewActorEvent(actor),
		Feature:          feature,
		Model:            total.Model,
		PromptTokens:     total.PromptTokens,
		CompletionTokens: total.CompletionTokens,
		Fallback:         total.Fallback,
		SubjectID:        job.SubjectID,
	})
}
