// Package repository persists keyword pools and their manual overrides.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agency_os_backend/internal/keywords/cleaning"
	"agency_os_backend/internal/keywords/grouping"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Status is the wizard step a pool is at.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusCleaned  Status = "cleaned"
	StatusGrouping Status = "grouping"
	StatusGrouped  Status = "grouped"
	StatusApproved Status = "approved"
	StatusFailed   Status = "failed"
)

type Pool struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	BrandID         *uuid.UUID
	Name            string
	Status          Status
	RawKeywords     []string
	CleanedKeywords []string
	Removed         []cleaning.Removed
	CleaningOptions cleaning.Options
	AIGroups        []grouping.Group
	ApprovedGroups  []grouping.Group
	SourceObjectKey *string
	CreatedBy       *uuid.UUID
	ApprovedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CreateParams struct {
	ClientID        uuid.UUID
	BrandID         *uuid.UUID
	Name            string
	RawKeywords     []string
	SourceObjectKey *string
	CreatedBy       *uuid.UUID
}

type ListParams struct {
	ClientID *uuid.UUID
	BrandID  *uuid.UUID
	Status   *string
}

type CleaningParams struct {
	Cleaned []string
	Removed []cleaning.Removed
	Options cleaning.Options
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (Pool, error)
	GetByID(ctx context.Context, id uuid.UUID) (Pool, error)
	List(ctx context.Context, params ListParams) ([]Pool, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// SaveCleaning stores a cleaning run, discards earlier groups and
	// overrides and moves the pool to cleaned. ok is false when the pool is
	// not in one of from.
	SaveCleaning(ctx context.Context, id uuid.UUID, params CleaningParams, from []Status) (Pool, bool, error)
	UpdateCleaned(ctx context.Context, id uuid.UUID, params CleaningParams) (Pool, bool, error)
	Transition(ctx context.Context, id uuid.UUID, from []Status, to Status) (bool, error)
	SaveGroups(ctx context.Context, id uuid.UUID, groups []grouping.Group) (bool, error)
	Approve(ctx context.Context, id uuid.UUID, groups []grouping.Group) (Pool, bool, error)

	ListOverrides(ctx context.Context, poolID uuid.UUID) ([]grouping.Override, error)
	AddOverride(ctx context.Context, poolID uuid.UUID, o grouping.Override, createdBy *uuid.UUID) (grouping.Override, error)
	DeleteOverrides(ctx context.Context, poolID uuid.UUID) (int64, error)
}

type Repo struct {
	db db.DBTX
}

func New(conn db.DBTX) *Repo {
	return &Repo{db: conn}
}

var _ Repository = (*Repo)(nil)

const (
	poolColumns = `id, client_id, brand_id, name, status, raw_keywords, cleaned_keywords,
		removed_keywords, cleaning_options, ai_groups, approved_groups, source_object_key,
		created_by, approved_at, created_at, updated_at`
	msgPoolNotFound = "keyword pool not found"
)

func scanPool(row pgx.Row) (Pool, error) {
	var (
		p                                  Pool
		removed, options, aiGroups, frozen []byte
	)
	err := row.Scan(&p.ID, &p.ClientID, &p.BrandID, &p.Name, &p.Status, &p.RawKeywords, &p.CleanedKeywords,
		&removed, &options, &aiGroups, &frozen, &p.SourceObjectKey,
		&p.CreatedBy, &p.ApprovedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Pool{}, err
	}
	if err := decodeJSON(removed, &p.Removed); err != nil {
		return Pool{}, fmt.Errorf("decode removed keywords: %w", err)
	}
	if err := decodeJSON(options, &p.CleaningOptions); err != nil {
		return Pool{}, fmt.Errorf("decode cleaning options: %w", err)
	}
	if err := decodeJSON(aiGroups, &p.AIGroups); err != nil {
		return Pool{}, fmt.Errorf("decode ai groups: %w", err)
	}
	if err := decodeJSON(frozen, &p.ApprovedGroups); err != nil {
		return Pool{}, fmt.Errorf("decode approved groups: %w", err)
	}
	if p.Removed == nil {
		p.Removed = []cleaning.Removed{}
	}
	return p, nil
}

func decodeJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func statusStrings(in []Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func (r *Repo) Create(ctx context.Context, params CreateParams) (Pool, error) {
	raw := params.RawKeywords
	if raw == nil {
		raw = []string{}
	}
	p, err := scanPool(r.db.QueryRow(ctx, `
		INSERT INTO keyword_pools (client_id, brand_id, name, raw_keywords, source_object_key, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+poolColumns,
		params.ClientID, params.BrandID, params.Name, raw, params.SourceObjectKey, params.CreatedBy))
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Pool{}, apperr.NotFound("client or brand not found")
		}
		return Pool{}, fmt.Errorf("create keyword pool: %w", err)
	}
	return p, nil
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Pool, error) {
	p, err := scanPool(r.db.QueryRow(ctx, `SELECT `+poolColumns+` FROM keyword_pools WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pool{}, apperr.NotFound(msgPoolNotFound)
		}
		return Pool{}, fmt.Errorf("get keyword pool: %w", err)
	}
	return p, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) ([]Pool, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+poolColumns+`
		FROM keyword_pools
		WHERE ($1::uuid IS NULL OR client_id = $1)
			AND ($2::uuid IS NULL OR brand_id = $2)
			AND ($3::text IS NULL OR status = $3)
		ORDER BY created_at DESC`, params.ClientID, params.BrandID, params.Status)
	if err != nil {
		return nil, fmt.Errorf("list keyword pools: %w", err)
	}
	defer rows.Close()

	pools := make([]Pool, 0)
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan keyword pool: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM keyword_pools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete keyword pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(msgPoolNotFound)
	}
	return nil
}

func (r *Repo) SaveCleaning(ctx context.Context, id uuid.UUID, params CleaningParams, from []Status) (Pool, bool, error) {
	removed, options, err := encodeCleaning(params)
	if err != nil {
		return Pool{}, false, err
	}

	// The CTE discards overrides that targeted the previous groups.
	p, err := scanPool(r.db.QueryRow(ctx, `
		WITH cleared AS (
			DELETE FROM keyword_overrides
			WHERE pool_id = $1
				AND EXISTS (SELECT 1 FROM keyword_pools WHERE id = $1 AND status = ANY($5))
		)
		UPDATE keyword_pools
		SET cleaned_keywords = $2,
			removed_keywords = $3,
			cleaning_options = $4,
			ai_groups = NULL,
			status = 'cleaned',
			updated_at = now()
		WHERE id = $1 AND status = ANY($5)
		RETURNING `+poolColumns, id, nonNil(params.Cleaned), removed, options, statusStrings(from)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pool{}, false, nil
		}
		return Pool{}, false, fmt.Errorf("save cleaning: %w", err)
	}
	return p, true, nil
}

func (r *Repo) UpdateCleaned(ctx context.Context, id uuid.UUID, params CleaningParams) (Pool, bool, error) {
	removed, _, err := encodeCleaning(params)
	if err != nil {
		return Pool{}, false, err
	}
	p, err := scanPool(r.db.QueryRow(ctx, `
		UPDATE keyword_pools
		SET cleaned_keywords = $2, removed_keywords = $3, updated_at = now()
		WHERE id = $1 AND status = 'cleaned'
		RETURNING `+poolColumns, id, nonNil(params.Cleaned), removed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pool{}, false, nil
		}
		return Pool{}, false, fmt.Errorf("update cleaned keywords: %w", err)
	}
	return p, true, nil
}

func (r *Repo) Transition(ctx context.Context, id uuid.UUID, from []Status, to Status) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE keyword_pools SET status = $3, updated_at = now()
		WHERE id = $1 AND status = ANY($2)`, id, statusStrings(from), to)
	if err != nil {
		return false, fmt.Errorf("transition keyword pool: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) SaveGroups(ctx context.Context, id uuid.UUID, groups []grouping.Group) (bool, error) {
	data, err := json.Marshal(groups)
	if err != nil {
		return false, fmt.Errorf("encode groups: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE keyword_pools SET ai_groups = $2, status = 'grouped', updated_at = now()
		WHERE id = $1 AND status = 'grouping'`, id, data)
	if err != nil {
		return false, fmt.Errorf("save groups: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) Approve(ctx context.Context, id uuid.UUID, groups []grouping.Group) (Pool, bool, error) {
	data, err := json.Marshal(groups)
	if err != nil {
		return Pool{}, false, fmt.Errorf("encode groups: %w", err)
	}
	p, err := scanPool(r.db.QueryRow(ctx, `
		UPDATE keyword_pools
		SET approved_groups = $2, status = 'approved', approved_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'grouped'
		RETURNING `+poolColumns, id, data))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pool{}, false, nil
		}
		return Pool{}, false, fmt.Errorf("approve keyword pool: %w", err)
	}
	return p, true, nil
}

func (r *Repo) ListOverrides(ctx context.Context, poolID uuid.UUID) ([]grouping.Override, error) {
	rows, err := r.db.Query(ctx, `
		SELECT seq, action, COALESCE(keyword, ''), COALESCE(from_group, ''), COALESCE(to_group, '')
		FROM keyword_overrides
		WHERE pool_id = $1
		ORDER BY seq`, poolID)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	out := make([]grouping.Override, 0)
	for rows.Next() {
		var o grouping.Override
		if err := rows.Scan(&o.Seq, &o.Action, &o.Keyword, &o.FromGroup, &o.ToGroup); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) AddOverride(ctx context.Context, poolID uuid.UUID, o grouping.Override, createdBy *uuid.UUID) (grouping.Override, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO keyword_overrides (pool_id, action, keyword, from_group, to_group, created_by)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING seq`, poolID, o.Action, o.Keyword, o.FromGroup, o.ToGroup, createdBy).Scan(&o.Seq)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return grouping.Override{}, apperr.NotFound(msgPoolNotFound)
		}
		return grouping.Override{}, fmt.Errorf("add override: %w", err)
	}
	return o, nil
}

func (r *Repo) DeleteOverrides(ctx context.Context, poolID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM keyword_overrides WHERE pool_id = $1`, poolID)
	if err != nil {
		return 0, fmt.Errorf("reset overrides: %w", err)
	}
	return tag.RowsAffected(), nil
}

func encodeCleaning(params CleaningParams) (removed, options []byte, err error) {
	rm := params.Removed
	if rm == nil {
		rm = []cleaning.Removed{}
	}
	if removed, err = json.Marshal(rm); err != nil {
		return nil, nil, fmt.Errorf("encode removed keywords: %w", err)
	}
	if options, err = json.Marshal(params.Options); err != nil {
		return nil, nil, fmt.Errorf("encode cleaning options: %w", err)
	}
	return removed, options, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
