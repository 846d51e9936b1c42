// Package repository persists AI usage rows and the domain activity log.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agency_os_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AIUsage struct {
	Feature          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Fallback         bool
	ProfileID        *uuid.UUID
	SubjectID        *uuid.UUID
}

type Activity struct {
	ID        uuid.UUID
	EventName string
	SubjectID *uuid.UUID
	ProfileID *uuid.UUID
	Payload   json.RawMessage
	CreatedAt time.Time
}

// FeatureTotals aggregates usage rows of one feature and model.
type FeatureTotals struct {
	Feature          string
	Model            string
	Requests         int
	FallbackRequests int
	PromptTokens     int64
	CompletionTokens int64
}

// DayTotals aggregates usage rows of one UTC day.
type DayTotals struct {
	Day              time.Time
	Requests         int
	PromptTokens     int64
	CompletionTokens int64
}

type Repository interface {
	InsertAIUsage(ctx context.Context, u AIUsage) error
	InsertActivity(ctx context.Context, a Activity) error
	ListActivity(ctx context.Context, subjectID uuid.UUID, limit int) ([]Activity, error)
	FeatureTotals(ctx context.Context, from, to time.Time) ([]FeatureTotals, error)
	DayTotals(ctx context.Context, from, to time.Time) ([]DayTotals, error)
}

type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// InsertAIUsage drops the profile reference when the profile no longer
// exists instead of losing the row.
func (r *Repo) InsertAIUsage(ctx context.Context, u AIUsage) error {
	const q = `
		INSERT INTO ai_usage_events (feature, model, prompt_tokens, completion_tokens, fallback, profile_id, subject_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, q, u.Feature, u.Model, u.PromptTokens, u.CompletionTokens, u.Fallback, u.ProfileID, u.SubjectID)
	if err != nil && u.ProfileID != nil && db.IsForeignKeyViolation(err) {
		_, err = r.pool.Exec(ctx, q, u.Feature, u.Model, u.PromptTokens, u.CompletionTokens, u.Fallback, nil, u.SubjectID)
	}
	if err != nil {
		return fmt.Errorf("insert ai usage: %w", err)
	}
	return nil
}

func (r *Repo) InsertActivity(ctx context.Context, a Activity) error {
	const q = `
		INSERT INTO activity_events (event_name, subject_id, profile_id, payload)
		VALUES ($1, $2, $3, $4)`
	payload := a.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	_, err := r.pool.Exec(ctx, q, a.EventName, a.SubjectID, a.ProfileID, payload)
	if err != nil && a.ProfileID != nil && db.IsForeignKeyViolation(err) {
		_, err = r.pool.Exec(ctx, q, a.EventName, a.SubjectID, nil, payload)
	}
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *Repo) ListActivity(ctx context.Context, subjectID uuid.UUID, limit int) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_name, subject_id, profile_id, payload, created_at
		FROM activity_events
		WHERE subject_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	out := make([]Activity, 0)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.EventName, &a.SubjectID, &a.ProfileID, &a.Payload, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FeatureTotals sums usage in [from, to).
func (r *Repo) FeatureTotals(ctx context.Context, from, to time.Time) ([]FeatureTotals, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT feature, model, count(*), count(*) FILTER (WHERE fallback),
		       COALESCE(sum(prompt_tokens), 0), COALESCE(sum(completion_tokens), 0)
		FROM ai_usage_events
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY feature, model
		ORDER BY feature, model`, from, to)
	if err != nil {
		return nil, fmt.Errorf("usage by feature: %w", err)
	}
	defer rows.Close()

	out := make([]FeatureTotals, 0)
	for rows.Next() {
		var t FeatureTotals
		if err := rows.Scan(&t.Feature, &t.Model, &t.Requests, &t.FallbackRequests, &t.PromptTokens, &t.CompletionTokens); err != nil {
			return nil, fmt.Errorf("scan usage by feature: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DayTotals sums usage per UTC day in [from, to). Days without usage are
// not returned.
func (r *Repo) DayTotals(ctx context.Context, from, to time.Time) ([]DayTotals, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, count(*),
		       COALESCE(sum(prompt_tokens), 0), COALESCE(sum(completion_tokens), 0)
		FROM ai_usage_events
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY day
		ORDER BY day`, from, to)
	if err != nil {
		return nil, fmt.Errorf("usage by day: %w", err)
	}
	defer rows.Close()

	out := make([]DayTotals, 0)
	for rows.Next() {
		var t DayTotals
		if err := rows.Scan(&t.Day, &t.Requests, &t.PromptTokens, &t.CompletionTokens); err != nil {
			return nil, fmt.Errorf("scan usage by day: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
