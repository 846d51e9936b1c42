// Package service implements client administration.
package service

import (
	"context"
	"strings"

	"agency_os_backend/internal/clients/repository"
	"agency_os_backend/internal/clients/transport"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) List(ctx context.Context, req transport.ListClientsRequest) (transport.ClientListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.repo.List(ctx, repository.ListParams{
		Search: strings.TrimSpace(req.Search),
		Status: req.Status,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	})
	if err != nil {
		return transport.ClientListResponse{}, err
	}

	resp := transport.ClientListResponse{
		Items:    make([]transport.ClientResponse, 0, len(items)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, c := range items {
		resp.Items = append(resp.Items, toResponse(c, nil))
	}
	return resp, nil
}

// Get returns a client with its brands.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.ClientResponse, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ClientResponse{}, err
	}
	brands, err := s.repo.ListBrands(ctx, id)
	if err != nil {
		return transport.ClientResponse{}, err
	}
	return toResponse(c, brands), nil
}

func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req transport.CreateClientRequest) (transport.ClientResponse, error) {
	c, err := s.repo.Create(ctx, repository.CreateParams{
		Name:      sanitize.Line(req.Name),
		Notes:     sanitize.NotesPtr(req.Notes),
		CreatedBy: actorID,
	})
	if err != nil {
		return transport.ClientResponse{}, err
	}
	s.log.Info("client created", "client_id", c.ID, "name", c.Name)
	return toResponse(c, nil), nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateClientRequest) (transport.ClientResponse, error) {
	c, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:    id,
		Name:  sanitize.LinePtr(req.Name),
		Notes: sanitize.NotesPtr(req.Notes),
	})
	if err != nil {
		return transport.ClientResponse{}, err
	}
	return toResponse(c, nil), nil
}

func (s *Service) Archive(ctx context.Context, id uuid.UUID) (transport.ClientResponse, error) {
	return s.setStatus(ctx, id, repository.StatusArchived)
}

func (s *Service) Restore(ctx context.Context, id uuid.UUID) (transport.ClientResponse, error) {
	return s.setStatus(ctx, id, repository.StatusActive)
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, status string) (transport.ClientResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ClientResponse{}, err
	}
	if current.Status == status {
		return toResponse(current, nil), nil
	}
	c, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return transport.ClientResponse{}, err
	}
	return toResponse(c, nil), nil
}

// Delete removes a client that has no brands.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	hasBrands, err := s.repo.HasBrands(ctx, id)
	if err != nil {
		return err
	}
	if hasBrands {
		return apperr.Conflict("delete the client's brands first, or archive the client")
	}
	return s.repo.Delete(ctx, id)
}

func toResponse(c repository.Client, brands []repository.BrandSummary) transport.ClientResponse {
	resp := transport.ClientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Status:    c.Status,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if brands != nil {
		resp.Brands = make([]transport.BrandSummary, 0, len(brands))
		for _, b := range brands {
			resp.Brands = append(resp.Brands, transport.BrandSummary{
				ID:           b.ID,
				Name:         b.Name,
				Marketplaces: b.Marketplaces,
				LogoKey:      b.LogoKey,
			})
		}
	}
	return resp
}
