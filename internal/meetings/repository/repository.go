// Package repository persists meeting notes and the tasks extracted from them.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Status is the extraction state of a meeting.
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusExtracting Status = "extracting"
	StatusExtracted  Status = "extracted"
	StatusFailed     Status = "failed"
)

// TaskStatus is the review state of an extracted task.
type TaskStatus string

const (
	TaskDraft     TaskStatus = "draft"
	TaskApproved  TaskStatus = "approved"
	TaskDiscarded TaskStatus = "discarded"
	TaskPushing   TaskStatus = "pushing"
	TaskPushed    TaskStatus = "pushed"
)

type Meeting struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	Title       string
	MeetingDate time.Time
	RawNotes    string
	Status      Status
	CreatedBy   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Task struct {
	ID                uuid.UUID
	MeetingID         uuid.UUID
	Title             string
	Description       *string
	AssigneeHint      *string
	AssigneeProfileID *uuid.UUID
	DueDate           *time.Time
	Status            TaskStatus
	ExternalID        *string
	ExternalURL       *string
	PushedAt          *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type CreateParams struct {
	ClientID    uuid.UUID
	Title       string
	MeetingDate time.Time
	RawNotes    string
	CreatedBy   *uuid.UUID
}

type ListParams struct {
	ClientID *uuid.UUID
}

// TaskDraft is an extracted task before it is stored.
type TaskDraft struct {
	Title             string
	Description       *string
	AssigneeHint      *string
	AssigneeProfileID *uuid.UUID
	DueDate           *time.Time
}

type UpdateTaskParams struct {
	ID                uuid.UUID
	Title             *string
	Description       *string
	AssigneeProfileID *uuid.UUID
	ClearAssignee     bool
	DueDate           *time.Time
	ClearDueDate      bool
	Status            *TaskStatus
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (Meeting, error)
	GetByID(ctx context.Context, id uuid.UUID) (Meeting, error)
	List(ctx context.Context, params ListParams) ([]Meeting, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Transition(ctx context.Context, id uuid.UUID, from []Status, to Status) (bool, error)

	ListTasks(ctx context.Context, meetingID uuid.UUID) ([]Task, error)
	GetTask(ctx context.Context, id uuid.UUID) (Task, error)
	// ReplaceDrafts swaps unreviewed tasks for a fresh extraction and marks
	// the meeting extracted. Approved and pushed tasks are kept.
	ReplaceDrafts(ctx context.Context, meetingID uuid.UUID, drafts []TaskDraft) (bool, error)
	// UpdateTask edits a task that has not been pushed yet.
	UpdateTask(ctx context.Context, params UpdateTaskParams) (Task, bool, error)
	// ClaimForPush moves an approved task to pushing. ok is false when the
	// task is no longer approved, typically because another push claimed it.
	ClaimForPush(ctx context.Context, id uuid.UUID) (ok bool, err error)
	// ReleasePush returns a claimed task to approved after a tracker failure.
	ReleasePush(ctx context.Context, id uuid.UUID) error
	// MarkPushed records the tracker reference of a claimed task.
	MarkPushed(ctx context.Context, id uuid.UUID, externalID, externalURL string) (bool, error)
}

type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

const (
	meetingColumns     = `id, client_id, title, meeting_date, raw_notes, status, created_by, created_at, updated_at`
	taskColumns        = `id, meeting_id, title, description, assignee_hint, assignee_profile_id, due_date, status, external_id, external_url, pushed_at, created_at, updated_at`
	msgMeetingNotFound = "meeting not found"
	msgTaskNotFound    = "task not found"
)

func scanMeeting(row pgx.Row) (Meeting, error) {
	var m Meeting
	err := row.Scan(&m.ID, &m.ClientID, &m.Title, &m.MeetingDate, &m.RawNotes, &m.Status, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.MeetingID, &t.Title, &t.Description, &t.AssigneeHint, &t.AssigneeProfileID, &t.DueDate,
		&t.Status, &t.ExternalID, &t.ExternalURL, &t.PushedAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func statusStrings(in []Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func (r *Repo) Create(ctx context.Context, params CreateParams) (Meeting, error) {
	m, err := scanMeeting(r.pool.QueryRow(ctx, `
		INSERT INTO meeting_notes (client_id, title, meeting_date, raw_notes, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+meetingColumns,
		params.ClientID, params.Title, params.MeetingDate, params.RawNotes, params.CreatedBy))
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Meeting{}, apperr.NotFound("client not found")
		}
		return Meeting{}, fmt.Errorf("create meeting: %w", err)
	}
	return m, nil
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Meeting, error) {
	m, err := scanMeeting(r.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meeting_notes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Meeting{}, apperr.NotFound(msgMeetingNotFound)
		}
		return Meeting{}, fmt.Errorf("get meeting: %w", err)
	}
	return m, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) ([]Meeting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+meetingColumns+`
		FROM meeting_notes
		WHERE ($1::uuid IS NULL OR client_id = $1)
		ORDER BY meeting_date DESC, created_at DESC`, params.ClientID)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	out := make([]Meeting, 0)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM meeting_notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(msgMeetingNotFound)
	}
	return nil
}

func (r *Repo) Transition(ctx context.Context, id uuid.UUID, from []Status, to Status) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE meeting_notes SET status = $3, updated_at = now()
		WHERE id = $1 AND status = ANY($2)`, id, statusStrings(from), to)
	if err != nil {
		return false, fmt.Errorf("transition meeting: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) ListTasks(ctx context.Context, meetingID uuid.UUID) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM meeting_tasks
		WHERE meeting_id = $1
		ORDER BY created_at, id`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list meeting tasks: %w", err)
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meeting task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) GetTask(ctx context.Context, id uuid.UUID) (Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM meeting_tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, apperr.NotFound(msgTaskNotFound)
		}
		return Task{}, fmt.Errorf("get meeting task: %w", err)
	}
	return t, nil
}

func (r *Repo) ReplaceDrafts(ctx context.Context, meetingID uuid.UUID, drafts []TaskDraft) (bool, error) {
	var stored bool
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE meeting_notes SET status = 'extracted', updated_at = now()
			WHERE id = $1 AND status = 'extracting'`, meetingID)
		if err != nil {
			return fmt.Errorf("mark meeting extracted: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM meeting_tasks
			WHERE meeting_id = $1 AND status IN ('draft', 'discarded')`, meetingID); err != nil {
			return fmt.Errorf("clear draft tasks: %w", err)
		}

		batch := &pgx.Batch{}
		for _, d := range drafts {
			batch.Queue(`
				INSERT INTO meeting_tasks (meeting_id, title, description, assignee_hint, assignee_profile_id, due_date)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				meetingID, d.Title, d.Description, d.AssigneeHint, d.AssigneeProfileID, d.DueDate)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert meeting tasks: %w", err)
		}
		stored = true
		return nil
	})
	return stored, err
}

func (r *Repo) UpdateTask(ctx context.Context, params UpdateTaskParams) (Task, bool, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE meeting_tasks
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			assignee_profile_id = CASE WHEN $5 THEN NULL ELSE COALESCE($4, assignee_profile_id) END,
			due_date = CASE WHEN $7 THEN NULL ELSE COALESCE($6, due_date) END,
			status = COALESCE($8, status),
			updated_at = now()
		WHERE id = $1 AND status NOT IN ('pushing', 'pushed')
		RETURNING `+taskColumns,
		params.ID, params.Title, params.Description, params.AssigneeProfileID, params.ClearAssignee,
		params.DueDate, params.ClearDueDate, params.Status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, false, nil
		}
		if db.IsForeignKeyViolation(err) {
			return Task{}, false, apperr.NotFound("team member not found")
		}
		return Task{}, false, fmt.Errorf("update meeting task: %w", err)
	}
	return t, true, nil
}

func (r *Repo) ClaimForPush(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE meeting_tasks SET status = 'pushing', updated_at = now()
		WHERE id = $1 AND status = 'approved'`, id)
	if err != nil {
		return false, fmt.Errorf("claim task for push: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) ReleasePush(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE meeting_tasks SET status = 'approved', updated_at = now()
		WHERE id = $1 AND status = 'pushing'`, id)
	if err != nil {
		return fmt.Errorf("release task push: %w", err)
	}
	return nil
}

func (r *Repo) MarkPushed(ctx context.Context, id uuid.UUID, externalID, externalURL string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE meeting_tasks
		SET status = 'pushed', external_id = $2, external_url = NULLIF($3, ''), pushed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pushing'`, id, externalID, externalURL)
	if err != nil {
		return false, fmt.Errorf("mark task pushed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
