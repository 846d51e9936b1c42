// Package repository persists projects, their SKUs and every per-SKU
// artefact of the copy-generation workflow.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agency_os_backend/internal/projects/domain"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Project struct {
	ID               uuid.UUID
	ClientID         uuid.UUID
	BrandID          *uuid.UUID
	Name             string
	Marketplace      *string
	Locale           string
	Status           domain.Status
	PreviousStatus   *domain.Status
	CreatedBy        *uuid.UUID
	StageAApprovedAt *time.Time
	StageBApprovedAt *time.Time
	StageCApprovedAt *time.Time
	ArchivedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type CreateParams struct {
	ClientID    uuid.UUID
	BrandID     *uuid.UUID
	Name        string
	Marketplace *string
	Locale      string
	CreatedBy   *uuid.UUID
}

type UpdateParams struct {
	ID          uuid.UUID
	Name        *string
	BrandID     *uuid.UUID
	Marketplace *string
	Locale      *string
}

type ListParams struct {
	ClientID *uuid.UUID
	Status   *string
	Search   *string
}

// Decide picks the outcome of a stage action from a snapshot read under lock.
type Decide func(domain.Snapshot) (domain.Outcome, error)

type Repository interface {
	Create(ctx context.Context, params CreateParams) (Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (Project, error)
	List(ctx context.Context, params ListParams) ([]Project, error)
	Update(ctx context.Context, params UpdateParams) (Project, error)
	// DeleteDraft deletes a project only while it is a draft.
	DeleteDraft(ctx context.Context, id uuid.UUID) (bool, error)
	// Transition decides and applies a stage change atomically.
	Transition(ctx context.Context, id uuid.UUID, decide Decide) (Project, domain.Outcome, error)

	SKURepository
}

type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

const (
	projectColumns = `id, client_id, brand_id, name, marketplace, locale, status, previous_status, created_by,
		stage_a_approved_at, stage_b_approved_at, stage_c_approved_at, archived_at, created_at, updated_at`
	msgProjectNotFound = "project not found"
)

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.ClientID, &p.BrandID, &p.Name, &p.Marketplace, &p.Locale, &p.Status, &p.PreviousStatus,
		&p.CreatedBy, &p.StageAApprovedAt, &p.StageBApprovedAt, &p.StageCApprovedAt, &p.ArchivedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) Create(ctx context.Context, params CreateParams) (Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx, `
		INSERT INTO projects (client_id, brand_id, name, marketplace, locale, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+projectColumns,
		params.ClientID, params.BrandID, params.Name, params.Marketplace, params.Locale, params.CreatedBy))
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Project{}, apperr.NotFound("client or brand not found")
		}
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, apperr.NotFound(msgProjectNotFound)
		}
		return Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) ([]Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE ($1::uuid IS NULL OR client_id = $1)
			AND ($2::text IS NULL OR status = $2)
			AND ($3::text IS NULL OR name ILIKE '%' || $3 || '%')
		ORDER BY updated_at DESC`, params.ClientID, params.Status, params.Search)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Update(ctx context.Context, params UpdateParams) (Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx, `
		UPDATE projects
		SET name = COALESCE($2, name),
			brand_id = COALESCE($3, brand_id),
			marketplace = COALESCE($4, marketplace),
			locale = COALESCE($5, locale),
			updated_at = now()
		WHERE id = $1
		RETURNING `+projectColumns, params.ID, params.Name, params.BrandID, params.Marketplace, params.Locale))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, apperr.NotFound(msgProjectNotFound)
		}
		if db.IsForeignKeyViolation(err) {
			return Project{}, apperr.NotFound("brand not found")
		}
		return Project{}, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

func (r *Repo) DeleteDraft(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND status = 'draft'`, id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Transition locks the project row, reads SKU readiness under that lock and
// persists the outcome decide returns. Stage-bound SKU writes share-lock the
// same row (see StageLock), so readiness cannot change before the update
// commits. Approval timestamps are set on approve and cleared on unapprove.
func (r *Repo) Transition(ctx context.Context, id uuid.UUID, decide Decide) (Project, domain.Outcome, error) {
	var (
		updated Project
		outcome domain.Outcome
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := scanProject(tx.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound(msgProjectNotFound)
			}
			return fmt.Errorf("lock project: %w", err)
		}
		skus, err := readiness(ctx, tx, id)
		if err != nil {
			return err
		}

		snapshot := domain.Snapshot{Status: p.Status, SKUs: skus}
		if p.PreviousStatus != nil {
			snapshot.PreviousStatus = *p.PreviousStatus
		}
		outcome, err = decide(snapshot)
		if err != nil {
			return err
		}

		var previous *domain.Status
		if outcome.PreviousStatus != "" {
			previous = &outcome.PreviousStatus
		}
		updated, err = scanProject(tx.QueryRow(ctx, `
			UPDATE projects
			SET status = $3,
				previous_status = $4,
				stage_a_approved_at = CASE
					WHEN $3 = 'stage_a_approved' AND $2 = 'draft' THEN now()
					WHEN $3 = 'draft' AND $2 = 'stage_a_approved' THEN NULL
					ELSE stage_a_approved_at END,
				stage_b_approved_at = CASE
					WHEN $3 = 'stage_b_approved' AND $2 = 'stage_a_approved' THEN now()
					WHEN $3 = 'stage_a_approved' AND $2 = 'stage_b_approved' THEN NULL
					ELSE stage_b_approved_at END,
				stage_c_approved_at = CASE
					WHEN $3 = 'stage_c_approved' AND $2 = 'stage_b_approved' THEN now()
					WHEN $3 = 'stage_b_approved' AND $2 = 'stage_c_approved' THEN NULL
					ELSE stage_c_approved_at END,
				archived_at = CASE WHEN $3 = 'archived' THEN now() ELSE NULL END,
				updated_at = now()
			WHERE id = $1 AND status = $2
			RETURNING `+projectColumns, id, outcome.From, outcome.To, previous))
		if err != nil {
			return fmt.Errorf("apply project transition: %w", err)
		}
		return nil
	})
	if err != nil {
		return Project{}, domain.Outcome{}, err
	}
	return updated, outcome, nil
}

func readiness(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) ([]domain.SKUReadiness, error) {
	rows, err := tx.Query(ctx, `
		SELECT s.id, s.sku_code,
			(SELECT COUNT(*) FROM sku_keywords k WHERE k.sku_id = s.id),
			(SELECT COUNT(*) FROM sku_topics t WHERE t.sku_id = s.id AND t.selected),
			EXISTS (SELECT 1 FROM sku_copy c WHERE c.sku_id = s.id)
		FROM project_skus s
		WHERE s.project_id = $1
		ORDER BY s.position, s.sku_code`, projectID)
	if err != nil {
		return nil, fmt.Errorf("project readiness: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SKUReadiness, 0)
	for rows.Next() {
		var s domain.SKUReadiness
		if err := rows.Scan(&s.SKUID, &s.SKUCode, &s.KeywordCount, &s.SelectedTopics, &s.HasCopy); err != nil {
			return nil, fmt.Errorf("scan readiness: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
