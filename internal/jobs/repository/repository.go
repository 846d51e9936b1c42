// Package repository persists background job rows.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Kind identifies the work a job performs.
type Kind string

const (
	KindKeywordGrouping   Kind = "keyword_grouping"
	KindTopicGeneration   Kind = "topic_generation"
	KindCopyGeneration    Kind = "copy_generation"
	KindMeetingExtraction Kind = "meeting_extraction"
)

// Status is the lifecycle position of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition can happen.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is a row in the jobs table.
type Job struct {
	ID         uuid.UUID
	Kind       Kind
	SubjectID  uuid.UUID
	Status     Status
	Payload    json.RawMessage
	Error      *string
	Result     json.RawMessage
	CreatedBy  *uuid.UUID
	StartedAt  *time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateParams describes a new pending job.
type CreateParams struct {
	Kind      Kind
	SubjectID uuid.UUID
	Payload   json.RawMessage
	CreatedBy *uuid.UUID
}

// Repository is the storage contract used by the runner and handlers.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Job, error)
	Get(ctx context.Context, id uuid.UUID) (Job, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID, limit int) ([]Job, error)
	LatestBySubject(ctx context.Context, subjectID uuid.UUID, kind Kind) (*Job, error)
	// Claim moves a pending job to running. ok is false when another
	// executor already claimed it or it no longer exists.
	Claim(ctx context.Context, id uuid.UUID) (job Job, ok bool, err error)
	Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
	// FailStale fails running jobs started before cutoff and pending jobs
	// queued before it, returning the rows it failed.
	FailStale(ctx context.Context, cutoff time.Time, message string) ([]Job, error)
	DeleteFinishedBefore(ctx context.Context, completedBefore, failedBefore time.Time) (int64, error)
}

// Repo implements Repository with PostgreSQL.
type Repo struct {
	db db.DBTX
}

// New creates a jobs repository.
func New(conn db.DBTX) *Repo {
	return &Repo{db: conn}
}

var _ Repository = (*Repo)(nil)

const jobColumns = `id, kind, subject_id, status, payload, error, result, created_by, started_at, finished_at, created_at, updated_at`

const msgJobNotFound = "job not found"

func scanJob(row pgx.Row) (Job, error) {
	var j Job
	var payload, result []byte
	err := row.Scan(
		&j.ID, &j.Kind, &j.SubjectID, &j.Status, &payload, &j.Error, &result,
		&j.CreatedBy, &j.StartedAt, &j.FinishedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return Job{}, err
	}
	j.Payload = payload
	j.Result = result
	return j, nil
}

// Create inserts a pending job. The partial unique index on (kind, subject_id)
// turns a second active job for the same subject into a conflict.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Job, error) {
	payload := params.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO jobs (kind, subject_id, payload, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + jobColumns

	job, err := scanJob(r.db.QueryRow(ctx, query, params.Kind, params.SubjectID, []byte(payload), params.CreatedBy))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Job{}, apperr.Conflict(fmt.Sprintf("a %s job is already active for this item", params.Kind))
		}
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// Get loads one job.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	job, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.NotFound(msgJobNotFound)
		}
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListBySubject returns the newest jobs for a subject first.
func (r *Repo) ListBySubject(ctx context.Context, subjectID uuid.UUID, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE subject_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// LatestBySubject returns the most recent job of kind for subject, or nil.
func (r *Repo) LatestBySubject(ctx context.Context, subjectID uuid.UUID, kind Kind) (*Job, error) {
	job, err := scanJob(r.db.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE subject_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT 1`, subjectID, kind))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest job: %w", err)
	}
	return &job, nil
}

// Claim conditionally moves a pending job to running.
func (r *Repo) Claim(ctx context.Context, id uuid.UUID) (Job, bool, error) {
	job, err := scanJob(r.db.QueryRow(ctx, `
		UPDATE jobs
		SET status = 'running', started_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+jobColumns, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, false, nil
		}
		return Job{}, false, fmt.Errorf("claim job: %w", err)
	}
	return job, true, nil
}

// Complete marks a running job as completed.
func (r *Repo) Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	var resultArg any
	if len(result) > 0 {
		resultArg = []byte(result)
	}
	_, err := r.db.Exec(ctx, `
		UPDATE jobs
		SET status = 'completed', result = $2, error = NULL, finished_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'running'`, id, resultArg)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// Fail marks a pending or running job as failed.
func (r *Repo) Fail(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE jobs
		SET status = 'failed', error = $2, finished_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'running')`, id, message)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// FailStale fails jobs left running by a process that died mid-job and jobs
// whose dispatch was lost before any executor claimed them.
func (r *Repo) FailStale(ctx context.Context, cutoff time.Time, message string) ([]Job, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE jobs
		SET status = 'failed', error = $2, finished_at = now(), updated_at = now()
		WHERE (status = 'running' AND started_at < $1)
		   OR (status = 'pending' AND created_at < $1)
		RETURNING `+jobColumns, cutoff, message)
	if err != nil {
		return nil, fmt.Errorf("fail stale jobs: %w", err)
	}
	defer rows.Close()

	failed := make([]Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stale job: %w", err)
		}
		failed = append(failed, job)
	}
	return failed, rows.Err()
}

// DeleteFinishedBefore removes terminal jobs past their retention.
func (r *Repo) DeleteFinishedBefore(ctx context.Context, completedBefore, failedBefore time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM jobs
		WHERE (status = 'completed' AND finished_at < $1)
		   OR (status = 'failed' AND finished_at < $2)`, completedBefore, failedBefore)
	if err != nil {
		return 0, fmt.Errorf("delete finished jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}
