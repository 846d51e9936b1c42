// Package repository stores team member profiles and client assignments.
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

// Assignment roles.
const (
	RoleStrategist = "strategist"
	RoleAnalyst    = "analyst"
	RoleViewer     = "viewer"
)

type Member struct {
	ID          uuid.UUID
	AuthUserID  *uuid.UUID
	Email       string
	DisplayName string
	Phone       *string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (m Member) IsGhost() bool {
	return m.AuthUserID == nil
}

type Assignment struct {
	ProfileID  uuid.UUID
	ClientID   uuid.UUID
	ClientName string
	Role       string
}

type CreateGhostParams struct {
	Email       string
	DisplayName string
	Phone       *string
	IsAdmin     bool
}

type UpdateParams struct {
	ID          uuid.UUID
	DisplayName *string
	Phone       *string
	IsAdmin     *bool
}

type Repository interface {
	List(ctx context.Context) ([]Member, error)
	GetByID(ctx context.Context, id uuid.UUID) (Member, error)
	CreateGhost(ctx context.Context, params CreateGhostParams) (Member, error)
	Update(ctx context.Context, params UpdateParams) (Member, error)
	// DeleteGhost deletes id only while it has never signed in.
	DeleteGhost(ctx context.Context, id uuid.UUID) (bool, error)
	ListAssignments(ctx context.Context) ([]Assignment, error)
	ReplaceAssignments(ctx context.Context, profileID uuid.UUID, assignments []Assignment) error
	CountAdmins(ctx context.Context) (int, error)
}

type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

const (
	memberColumns     = `id, auth_user_id, email, display_name, phone, is_admin, created_at, updated_at`
	msgMemberNotFound = "team member not found"
)

func scanMember(row pgx.Row) (Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.AuthUserID, &m.Email, &m.DisplayName, &m.Phone, &m.IsAdmin, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *Repo) List(ctx context.Context) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+memberColumns+` FROM profiles ORDER BY lower(display_name), lower(email)`)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	members := make([]Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, apperr.NotFound(msgMemberNotFound)
		}
		return Member{}, fmt.Errorf("get team member: %w", err)
	}
	return m, nil
}

func (r *Repo) CreateGhost(ctx context.Context, params CreateGhostParams) (Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `
		INSERT INTO profiles (email, display_name, phone, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING `+memberColumns, params.Email, params.DisplayName, params.Phone, params.IsAdmin))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Member{}, apperr.Conflict("a team member with this email already exists")
		}
		return Member{}, fmt.Errorf("create ghost profile: %w", err)
	}
	return m, nil
}

func (r *Repo) Update(ctx context.Context, params UpdateParams) (Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `
		UPDATE profiles
		SET display_name = COALESCE($2, display_name),
			phone = COALESCE($3, phone),
			is_admin = COALESCE($4, is_admin),
			updated_at = now()
		WHERE id = $1
		RETURNING `+memberColumns, params.ID, params.DisplayName, params.Phone, params.IsAdmin))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, apperr.NotFound(msgMemberNotFound)
		}
		return Member{}, fmt.Errorf("update team member: %w", err)
	}
	return m, nil
}

func (r *Repo) DeleteGhost(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1 AND auth_user_id IS NULL`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return false, apperr.Conflict("team member still owns records")
		}
		return false, fmt.Errorf("delete ghost profile: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) ListAssignments(ctx context.Context) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ca.profile_id, ca.client_id, c.name, ca.role
		FROM client_assignments ca
		JOIN clients c ON c.id = ca.client_id
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	out := make([]Assignment, 0)
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ProfileID, &a.ClientID, &a.ClientName, &a.Role); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ReplaceAssignments swaps the full assignment set of a profile atomically.
func (r *Repo) ReplaceAssignments(ctx context.Context, profileID uuid.UUID, assignments []Assignment) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM client_assignments WHERE profile_id = $1`, profileID); err != nil {
			return fmt.Errorf("clear assignments: %w", err)
		}
		for _, a := range assignments {
			if _, err := tx.Exec(ctx, `
				INSERT INTO client_assignments (client_id, profile_id, role)
				VALUES ($1, $2, $3)`, a.ClientID, profileID, a.Role); err != nil {
				if db.IsForeignKeyViolation(err) {
					return apperr.NotFound("client or team member not found")
				}
				return fmt.Errorf("insert assignment: %w", err)
			}
		}
		return nil
	})
}

func (r *Repo) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE is_admin`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
