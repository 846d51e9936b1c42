package service

import (
	"context"
	"encoding/json"
	"fmt"

	"agency_os_backend/internal/events"
	"agency_os_backend/internal/jobs"
	"agency_os_backend/internal/keywords/grouping"
	"agency_os_backend/internal/keywords/repository"
	"agency_os_backend/internal/keywords/transport"
	"agency_os_backend/platform/apperr"

	"github.com/google/uuid"
)

const featureKeywordGrouping = "keyword_grouping"

type groupingPayload struct {
	Hints grouping.Hints `json:"hints"`
}

type groupingResult struct {
	Groups    int `json:"groups"`
	Keywords  int `json:"keywords"`
	Ungrouped int `json:"ungrouped"`
}

// StartGrouping moves a cleaned pool to grouping and starts the AI job.
// A pool whose previous grouping failed may be grouped again.
func (s *Service) StartGrouping(ctx context.Context, actorID, id uuid.UUID, req transport.GroupRequest) (transport.GroupingStartedResponse, error) {
	if s.grouper == nil {
		return transport.GroupingStartedResponse{}, apperr.Unavailable(msgAIUnavailable)
	}

	pool, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.GroupingStartedResponse{}, err
	}
	if pool.Status != repository.StatusCleaned && pool.Status != repository.StatusFailed {
		return transport.GroupingStartedResponse{}, statusConflict("group", pool.Status)
	}
	if len(pool.CleanedKeywords) == 0 {
		return transport.GroupingStartedResponse{}, apperr.Validation("no cleaned keywords to group")
	}

	hints := grouping.Hints{MaxGroups: req.MaxGroups, Notes: req.Notes}
	if pool.BrandID != nil {
		terms, err := s.brands.GetBrandTerms(ctx, *pool.BrandID)
		if err != nil {
			return transport.GroupingStartedResponse{}, err
		}
		hints.Brand = terms.Name
		if len(terms.Marketplaces) > 0 {
			hints.Marketplace = terms.Marketplaces[0]
		}
	}

	from := []repository.Status{repository.StatusCleaned, repository.StatusFailed}
	ok, err := s.repo.Transition(ctx, id, from, repository.StatusGrouping)
	if err != nil {
		return transport.GroupingStartedResponse{}, err
	}
	if !ok {
		return transport.GroupingStartedResponse{}, statusConflict("group", pool.Status)
	}

	job, err := s.jobs.Start(ctx, jobs.StartParams{
		Kind:      jobs.KindKeywordGrouping,
		SubjectID: id,
		CreatedBy: actorID,
		Payload:   groupingPayload{Hints: hints},
	})
	if err != nil {
		if _, rbErr := s.repo.Transition(context.WithoutCancel(ctx), id, []repository.Status{repository.StatusGrouping}, pool.Status); rbErr != nil {
			s.log.DatabaseError("revert keyword pool status", rbErr)
		}
		return transport.GroupingStartedResponse{}, err
	}

	return transport.GroupingStartedResponse{PoolID: id, JobID: job.ID, Status: string(repository.StatusGrouping)}, nil
}

// RunGroupingJob is the jobs.HandlerFunc for keyword grouping.
func (s *Service) RunGroupingJob(ctx context.Context, job jobs.Job) (json.RawMessage, error) {
	if s.grouper == nil {
		return nil, apperr.Unavailable(msgAIUnavailable)
	}

	var payload groupingPayload
	if err := jobs.DecodePayload(job, &payload); err != nil {
		return nil, err
	}
	pool, err := s.repo.GetByID(ctx, job.SubjectID)
	if err != nil {
		return nil, err
	}
	if pool.Status != repository.StatusGrouping {
		return nil, fmt.Errorf("keyword pool is %s, expected grouping", pool.Status)
	}

	out, err := s.grouper.Group(ctx, pool.CleanedKeywords, payload.Hints)
	s.publishUsage(ctx, job, out)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.SaveGroups(ctx, pool.ID, out.Groups)
	if err != nil {
		return nil, err
	}
	if !saved {
		return nil, apperr.Conflict("keyword pool left grouping before the job finished")
	}

	res := groupingResult{Groups: len(out.Groups), Keywords: len(pool.CleanedKeywords)}
	for _, g := range out.Groups {
		if g.Name == grouping.UngroupedName {
			res.Ungrouped = len(g.Keywords)
		}
	}
	s.log.Info("keyword pool grouped", "poolId", pool.ID, "groups", res.Groups, "ungrouped", res.Ungrouped)
	return jobs.EncodeResult(res)
}

func (s *Service) publishUsage(ctx context.Context, job jobs.Job, out grouping.Output) {
	if out.Usage.PromptTokens == 0 && out.Usage.CompletionTokens == 0 {
		return
	}
	actor := uuid.Nil
	if job.CreatedBy != nil {
		actor = *job.CreatedBy
	}
	s.bus.Publish(ctx, events.AIUsageRecorded{
		BaseEvent:        events.NewActorEvent(actor),
		Feature:          featureKeywordGrouping,
		Model:            out.Usage.Model,
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
		Fallback:         out.Usage.Fallback,
		SubjectID:        job.SubjectID,
	})
}

// MarkGroupingFailed flips a pool stuck in grouping to failed after its job
// failed.
func (s *Service) MarkGroupingFailed(ctx context.Context, poolID uuid.UUID, reason string) error {
	ok, err := s.repo.Transition(ctx, poolID, []repository.Status{repository.StatusGrouping}, repository.StatusFailed)
	if err != nil {
		return err
	}
	if ok {
		s.log.Warn("keyword grouping failed", "poolId", poolID, "reason", reason)
	}
	return nil
}
