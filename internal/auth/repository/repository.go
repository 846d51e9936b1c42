// Package repository resolves identity-provider users to profile rows.
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
)

// Profile is a team member row as seen by the auth layer.
type Profile struct {
	ID          uuid.UUID
	AuthUserID  *uuid.UUID
	Email       string
	DisplayName string
	Phone       *string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsGhost reports whether nobody has signed in as this profile yet.
func (p Profile) IsGhost() bool {
	return p.AuthUserID == nil
}

// ClientAssignment is a client the profile is assigned to.
type ClientAssignment struct {
	ClientID   uuid.UUID
	ClientName string
	Role       string
}

// Repository is the storage contract used by the auth service.
type Repository interface {
	GetByAuthUserID(ctx context.Context, authUserID uuid.UUID) (Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (Profile, error)
	FindGhostByEmail(ctx context.Context, email string) (Profile, error)
	// LinkGhost attaches authUserID to a ghost. ok is false when the row was
	// linked concurrently or is no longer a ghost.
	LinkGhost(ctx context.Context, profileID, authUserID uuid.UUID) (profile Profile, ok bool, err error)
	Create(ctx context.Context, authUserID uuid.UUID, email, displayName string) (Profile, error)
	ListAssignments(ctx context.Context, profileID uuid.UUID) ([]ClientAssignment, error)
}

// Repo implements Repository with PostgreSQL.
type Repo struct {
	db db.DBTX
}

func New(conn db.DBTX) *Repo {
	return &Repo{db: conn}
}

var _ Repository = (*Repo)(nil)

const profileColumns = `id, auth_user_id, email, display_name, phone, is_admin, created_at, updated_at`

const msgProfileNotFound = "profile not found"

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.AuthUserID, &p.Email, &p.DisplayName, &p.Phone, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(msgProfileNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *Repo) GetByAuthUserID(ctx context.Context, authUserID uuid.UUID) (Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE auth_user_id = $1`, authUserID))
	if err != nil {
		return Profile{}, notFoundOr(err, "get profile by auth user")
	}
	return p, nil
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return Profile{}, notFoundOr(err, "get profile")
	}
	return p, nil
}

func (r *Repo) FindGhostByEmail(ctx context.Context, email string) (Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE lower(email) = lower($1) AND auth_user_id IS NULL`, email))
	if err != nil {
		return Profile{}, notFoundOr(err, "find ghost profile")
	}
	return p, nil
}

func (r *Repo) LinkGhost(ctx context.Context, profileID, authUserID uuid.UUID) (Profile, bool, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, `
		UPDATE profiles
		SET auth_user_id = $2, updated_at = now()
		WHERE id = $1 AND auth_user_id IS NULL
		RETURNING `+profileColumns, profileID, authUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, false, nil
		}
		if db.IsUniqueViolation(err) {
			return Profile{}, false, nil
		}
		return Profile{}, false, fmt.Errorf("link ghost profile: %w", err)
	}
	return p, true, nil
}

// Create inserts a profile for a first-time user. A unique violation means a
// concurrent request created it first, or the email belongs to another account.
func (r *Repo) Create(ctx context.Context, authUserID uuid.UUID, email, displayName string) (Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, `
		INSERT INTO profiles (auth_user_id, email, display_name)
		VALUES ($1, $2, $3)
		RETURNING `+profileColumns, authUserID, email, displayName))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Profile{}, apperr.Conflict("a profile with this email already exists")
		}
		return Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func (r *Repo) ListAssignments(ctx context.Context, profileID uuid.UUID) ([]ClientAssignment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.name, ca.role
		FROM client_assignments ca
		JOIN clients c ON c.id = ca.client_id
		WHERE ca.profile_id = $1 AND c.status = 'active'
		ORDER BY c.name`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]ClientAssignment, 0)
	for rows.Next() {
		var a ClientAssignment
		if err := rows.Scan(&a.ClientID, &a.ClientName, &a.Role); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
