// Package repository stores brands and their keyword term lists.
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

// Brand is a row in the brands table.
type Brand struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	Name            string
	Marketplaces    []string
	BrandTerms      []string
	CompetitorTerms []string
	LogoKey         *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CreateParams struct {
	ClientID        uuid.UUID
	Name            string
	Marketplaces    []string
	BrandTerms      []string
	CompetitorTerms []string
}

// UpdateParams replaces the fields that are non-nil.
type UpdateParams struct {
	ID              uuid.UUID
	Name            *string
	Marketplaces    []string
	BrandTerms      []string
	CompetitorTerms []string
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Brand, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]Brand, error)
	Create(ctx context.Context, params CreateParams) (Brand, error)
	Update(ctx context.Context, params UpdateParams) (Brand, error)
	SetLogoKey(ctx context.Context, id uuid.UUID, key *string) (Brand, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Repo struct {
	db db.DBTX
}

func New(conn db.DBTX) *Repo {
	return &Repo{db: conn}
}

var _ Repository = (*Repo)(nil)

const (
	brandColumns      = `id, client_id, name, marketplaces, brand_terms, competitor_terms, logo_key, created_at, updated_at`
	msgBrandNotFound  = "brand not found"
	msgBrandNameTaken = "this client already has a brand with that name"
)

func scanBrand(row pgx.Row) (Brand, error) {
	var b Brand
	err := row.Scan(&b.ID, &b.ClientID, &b.Name, &b.Marketplaces, &b.BrandTerms, &b.CompetitorTerms, &b.LogoKey, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func mapErr(err error, op string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return apperr.NotFound(msgBrandNotFound)
	case db.IsUniqueViolation(err):
		return apperr.Conflict(msgBrandNameTaken)
	case db.IsForeignKeyViolation(err):
		return apperr.NotFound("client not found")
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Brand, error) {
	b, err := scanBrand(r.db.QueryRow(ctx, `SELECT `+brandColumns+` FROM brands WHERE id = $1`, id))
	if err != nil {
		return Brand{}, mapErr(err, "get brand")
	}
	return b, nil
}

func (r *Repo) ListByClient(ctx context.Context, clientID uuid.UUID) ([]Brand, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+brandColumns+`
		FROM brands
		WHERE client_id = $1
		ORDER BY lower(name)`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	brands := make([]Brand, 0)
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

func (r *Repo) Create(ctx context.Context, params CreateParams) (Brand, error) {
	b, err := scanBrand(r.db.QueryRow(ctx, `
		INSERT INTO brands (client_id, name, marketplaces, brand_terms, competitor_terms)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+brandColumns,
		params.ClientID, params.Name, nonNil(params.Marketplaces), nonNil(params.BrandTerms), nonNil(params.CompetitorTerms)))
	if err != nil {
		return Brand{}, mapErr(err, "create brand")
	}
	return b, nil
}

func (r *Repo) Update(ctx context.Context, params UpdateParams) (Brand, error) {
	b, err := scanBrand(r.db.QueryRow(ctx, `
		UPDATE brands
		SET name = COALESCE($2, name),
			marketplaces = COALESCE($3, marketplaces),
			brand_terms = COALESCE($4, brand_terms),
			competitor_terms = COALESCE($5, competitor_terms),
			updated_at = now()
		WHERE id = $1
		RETURNING `+brandColumns,
		params.ID, params.Name, params.Marketplaces, params.BrandTerms, params.CompetitorTerms))
	if err != nil {
		return Brand{}, mapErr(err, "update brand")
	}
	return b, nil
}

func (r *Repo) SetLogoKey(ctx context.Context, id uuid.UUID, key *string) (Brand, error) {
	b, err := scanBrand(r.db.QueryRow(ctx, `
		UPDATE brands SET logo_key = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+brandColumns, id, key))
	if err != nil {
		return Brand{}, mapErr(err, "set brand logo")
	}
	return b, nil
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM brands WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperr.Conflict("brand is still used by keyword pools or projects")
		}
		return fmt.Errorf("delete brand: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(msgBrandNotFound)
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
