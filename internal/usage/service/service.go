// Package service records AI usage and domain activity published on the
// event bus, and answers the admin usage summary.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agency_os_backend/internal/events"
	"agency_os_backend/internal/usage/repository"
	"agency_os_backend/internal/usage/transport"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	dayLayout          = "2006-01-02"
	defaultSummaryDays = 30
	maxSummaryDays     = 366
	defaultActivityMax = 50
)

type Service struct {
	repo     repository.Repository
	log      *logger.Logger
	now      func() time.Time
	requests metric.Int64Counter
	tokens   metric.Int64Counter
}

func New(repo repository.Repository, meter metric.Meter, log *logger.Logger) (*Service, error) {
	requests, err := meter.Int64Counter("llm.requests",
		metric.WithDescription("LLM round-trips by feature and model"))
	if err != nil {
		return nil, fmt.Errorf("llm.requests counter: %w", err)
	}
	tokens, err := meter.Int64Counter("llm.tokens",
		metric.WithDescription("LLM tokens by feature, model and direction"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, fmt.Errorf("llm.tokens counter: %w", err)
	}
	return &Service{repo: repo, log: log, now: time.Now, requests: requests, tokens: tokens}, nil
}

// RecordAIUsage stores one usage row and bumps the LLM counters.
func (s *Service) RecordAIUsage(ctx context.Context, e events.AIUsageRecorded) error {
	attrs := []attribute.KeyValue{
		attribute.String("feature", e.Feature),
		attribute.String("model", e.Model),
		attribute.Bool("fallback", e.Fallback),
	}
	s.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	s.tokens.Add(ctx, int64(e.PromptTokens), metric.WithAttributes(append(attrs, attribute.String("direction", "prompt"))...))
	s.tokens.Add(ctx, int64(e.CompletionTokens), metric.WithAttributes(append(attrs, attribute.String("direction", "completion"))...))

	err := s.repo.InsertAIUsage(ctx, repository.AIUsage{
		Feature:          e.Feature,
		Model:            e.Model,
		PromptTokens:     e.PromptTokens,
		CompletionTokens: e.CompletionTokens,
		Fallback:         e.Fallback,
		ProfileID:        optionalID(e.Actor()),
		SubjectID:        optionalID(e.SubjectID),
	})
	if err != nil {
		s.log.DatabaseError("insert ai usage", err)
		return err
	}
	return nil
}

// RecordActivity appends a domain event to the activity log. The event
// itself is stored as the payload.
func (s *Service) RecordActivity(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.EventName(), err)
	}
	err = s.repo.InsertActivity(ctx, repository.Activity{
		EventName: e.EventName(),
		SubjectID: optionalID(subjectOf(e)),
		ProfileID: optionalID(e.Actor()),
		Payload:   payload,
	})
	if err != nil {
		s.log.DatabaseError("insert activity", err)
		return err
	}
	return nil
}

func subjectOf(e events.Event) uuid.UUID {
	switch ev := e.(type) {
	case events.ProjectStageChanged:
		return ev.ProjectID
	case events.JobFinished:
		return ev.SubjectID
	case events.KeywordPoolCleaned:
		return ev.PoolID
	case events.KeywordPoolApproved:
		return ev.PoolID
	case events.MeetingTasksExtracted:
		return ev.MeetingID
	case events.MeetingTasksPushed:
		return ev.MeetingID
	case events.GhostProfileCreated:
		return ev.ProfileID
	case events.ProfileLinked:
		return ev.ProfileID
	default:
		return uuid.Nil
	}
}

// Summary aggregates usage over whole UTC days, both ends inclusive.
func (s *Service) Summary(ctx context.Context, req transport.SummaryRequest) (transport.SummaryResponse, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	to, err := parseDay(req.To, today)
	if err != nil {
		return transport.SummaryResponse{}, err
	}
	from, err := parseDay(req.From, to.AddDate(0, 0, -(defaultSummaryDays - 1)))
	if err != nil {
		return transport.SummaryResponse{}, err
	}
	if from.After(to) {
		return transport.SummaryResponse{}, apperr.Validation("from must not be after to")
	}
	if to.Sub(from) >= maxSummaryDays*24*time.Hour {
		return transport.SummaryResponse{}, apperr.Validation(fmt.Sprintf("range is limited to %d days", maxSummaryDays))
	}
	end := to.AddDate(0, 0, 1)

	features, err := s.repo.FeatureTotals(ctx, from, end)
	if err != nil {
		return transport.SummaryResponse{}, err
	}
	days, err := s.repo.DayTotals(ctx, from, end)
	if err != nil {
		return transport.SummaryResponse{}, err
	}

	resp := transport.SummaryResponse{
		From:     from.Format(dayLayout),
		To:       to.Format(dayLayout),
		Features: make([]transport.FeatureUsage, 0, len(features)),
		Days:     make([]transport.DayUsage, 0, len(days)),
	}
	for _, f := range features {
		resp.Features = append(resp.Features, transport.FeatureUsage{
			Feature:          f.Feature,
			Model:            f.Model,
			Requests:         f.Requests,
			FallbackRequests: f.FallbackRequests,
			PromptTokens:     f.PromptTokens,
			CompletionTokens: f.CompletionTokens,
		})
		resp.Totals.Requests += f.Requests
		resp.Totals.PromptTokens += f.PromptTokens
		resp.Totals.CompletionTokens += f.CompletionTokens
	}
	for _, d := range days {
		resp.Days = append(resp.Days, transport.DayUsage{
			Day:              d.Day.UTC().Format(dayLayout),
			Requests:         d.Requests,
			PromptTokens:     d.PromptTokens,
			CompletionTokens: d.CompletionTokens,
		})
	}
	return resp, nil
}

// ListActivity returns the newest activity entries for one subject.
func (s *Service) ListActivity(ctx context.Context, req transport.ListActivityRequest) (transport.ActivityListResponse, error) {
	subjectID, err := uuid.Parse(req.SubjectID)
	if err != nil {
		return transport.ActivityListResponse{}, apperr.Validation("invalid subjectId")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultActivityMax
	}
	items, err := s.repo.ListActivity(ctx, subjectID, limit)
	if err != nil {
		return transport.ActivityListResponse{}, err
	}
	resp := transport.ActivityListResponse{Items: make([]transport.ActivityResponse, 0, len(items))}
	for _, a := range items {
		resp.Items = append(resp.Items, transport.ActivityResponse{
			ID:        a.ID,
			EventName: a.EventName,
			SubjectID: a.SubjectID,
			ProfileID: a.ProfileID,
			Payload:   a.Payload,
			CreatedAt: a.CreatedAt,
		})
	}
	return resp, nil
}

func parseDay(v string, fallback time.Time) (time.Time, error) {
	if v == "" {
		return fallback, nil
	}
	t, err := time.Parse(dayLayout, v)
	if err != nil {
		return time.Time{}, apperr.Validation("dates must be YYYY-MM-DD")
	}
	return t, nil
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
