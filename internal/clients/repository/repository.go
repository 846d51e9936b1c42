// Package repository stores agency clients.
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

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Client is a row in the clients table.
type Client struct {
	ID        uuid.UUID
	Name      string
	Status    string
	Notes     *string
	CreatedBy *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BrandSummary is the slice of a brand shown on the client detail page.
type BrandSummary struct {
	ID           uuid.UUID
	Name         string
	Marketplaces []string
	LogoKey      *string
}

type CreateParams struct {
	Name      string
	Notes     *string
	CreatedBy uuid.UUID
}

type UpdateParams struct {
	ID    uuid.UUID
	Name  *string
	Notes *string
}

type ListParams struct {
	Search string
	Status string
	Offset int
	Limit  int
}

// Reader defines read operations for clients.
type Reader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Client, error)
	List(ctx context.Context, params ListParams) ([]Client, int, error)
	ListBrands(ctx context.Context, clientID uuid.UUID) ([]BrandSummary, error)
	HasBrands(ctx context.Context, clientID uuid.UUID) (bool, error)
}

// Writer defines write operations for clients.
type Writer interface {
	Create(ctx context.Context, params CreateParams) (Client, error)
	Update(ctx context.Context, params UpdateParams) (Client, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) (Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Repository combines read and write operations.
type Repository interface {
	Reader
	Writer
}

// Repo implements Repository with PostgreSQL.
type Repo struct {
	db db.DBTX
}

func New(conn db.DBTX) *Repo {
	return &Repo{db: conn}
}

var _ Repository = (*Repo)(nil)

const (
	clientColumns      = `id, name, status, notes, created_by, created_at, updated_at`
	msgClientNotFound  = "client not found"
	msgClientNameTaken = "a client with this name already exists"
)

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.Status, &c.Notes, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func mapWriteErr(err error, op string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return apperr.NotFound(msgClientNotFound)
	case db.IsUniqueViolation(err):
		return apperr.Conflict(msgClientNameTaken)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, apperr.NotFound(msgClientNotFound)
		}
		return Client{}, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) ([]Client, int, error) {
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}
	var statusParam interface{}
	if params.Status != "" {
		statusParam = params.Status
	}

	var total int
	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM clients
		WHERE ($1::text IS NULL OR name ILIKE $1)
			AND ($2::text IS NULL OR status = $2)
	`, searchParam, statusParam).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE ($1::text IS NULL OR name ILIKE $1)
			AND ($2::text IS NULL OR status = $2)
		ORDER BY lower(name) ASC
		LIMIT $3 OFFSET $4
	`, searchParam, statusParam, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	items := make([]Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan client: %w", err)
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *Repo) ListBrands(ctx context.Context, clientID uuid.UUID) ([]BrandSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, marketplaces, logo_key
		FROM brands
		WHERE client_id = $1
		ORDER BY lower(name)`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list client brands: %w", err)
	}
	defer rows.Close()

	brands := make([]BrandSummary, 0)
	for rows.Next() {
		var b BrandSummary
		if err := rows.Scan(&b.ID, &b.Name, &b.Marketplaces, &b.LogoKey); err != nil {
			return nil, fmt.Errorf("scan client brand: %w", err)
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

func (r *Repo) HasBrands(ctx context.Context, clientID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM brands WHERE client_id = $1)`, clientID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check client brands: %w", err)
	}
	return exists, nil
}

func (r *Repo) Create(ctx context.Context, params CreateParams) (Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `
		INSERT INTO clients (name, notes, created_by)
		VALUES ($1, $2, $3)
		RETURNING `+clientColumns, params.Name, params.Notes, params.CreatedBy))
	if err != nil {
		return Client{}, mapWriteErr(err, "create client")
	}
	return c, nil
}

func (r *Repo) Update(ctx context.Context, params UpdateParams) (Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `
		UPDATE clients
		SET name = COALESCE($2, name),
			notes = COALESCE($3, notes),
			updated_at = now()
		WHERE id = $1
		RETURNING `+clientColumns, params.ID, params.Name, params.Notes))
	if err != nil {
		return Client{}, mapWriteErr(err, "update client")
	}
	return c, nil
}

func (r *Repo) SetStatus(ctx context.Context, id uuid.UUID, status string) (Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `
		UPDATE clients SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+clientColumns, id, status))
	if err != nil {
		return Client{}, mapWriteErr(err, "set client status")
	}
	return c, nil
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperr.Conflict("client still has brands or projects")
		}
		return fmt.Errorf("delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(msgClientNotFound)
	}
	return nil
}
