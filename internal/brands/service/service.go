// Package service implements brand administration and logo uploads.
package service

import (
	"context"
	"strings"

	"agency_os_backend/internal/adapters/storage"
	"agency_os_backend/internal/brands/repository"
	"agency_os_backend/internal/brands/transport"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/logger"

	"github.com/google/uuid"
)

const msgStorageUnavailable = "file storage is not configured"

type Service struct {
	repo    repository.Repository
	storage storage.StorageService
	bucket  string
	log     *logger.Logger
}

// New creates the brand service. store may be nil when MinIO is not configured.
func New(repo repository.Repository, store storage.StorageService, bucket string, log *logger.Logger) *Service {
	return &Service{repo: repo, storage: store, bucket: bucket, log: log}
}

// Terms is what the keyword pipeline needs to know about a brand.
type Terms struct {
	Name            string
	Marketplaces    []string
	BrandTerms      []string
	CompetitorTerms []string
}

// GetTerms returns the brand's cleaning inputs. The brand name always counts
// as a brand term.
func (s *Service) GetTerms(ctx context.Context, brandID uuid.UUID) (Terms, error) {
	b, err := s.repo.GetByID(ctx, brandID)
	if err != nil {
		return Terms{}, err
	}
	return Terms{
		Name:            b.Name,
		Marketplaces:    b.Marketplaces,
		BrandTerms:      normalizeTerms(append([]string{b.Name}, b.BrandTerms...)),
		CompetitorTerms: b.CompetitorTerms,
	}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.BrandResponse, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BrandResponse{}, err
	}
	return s.toResponse(ctx, b), nil
}

func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID) (transport.BrandListResponse, error) {
	brands, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return transport.BrandListResponse{}, err
	}
	resp := transport.BrandListResponse{Items: make([]transport.BrandResponse, 0, len(brands))}
	for _, b := range brands {
		resp.Items = append(resp.Items, s.toResponse(ctx, b))
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, req transport.CreateBrandRequest) (transport.BrandResponse, error) {
	b, err := s.repo.Create(ctx, repository.CreateParams{
		ClientID:        req.ClientID,
		Name:            strings.TrimSpace(req.Name),
		Marketplaces:    normalizeMarketplaces(req.Marketplaces),
		BrandTerms:      normalizeTerms(req.BrandTerms),
		CompetitorTerms: normalizeTerms(req.CompetitorTerms),
	})
	if err != nil {
		return transport.BrandResponse{}, err
	}
	s.log.Info("brand created", "brand_id", b.ID, "client_id", b.ClientID)
	return s.toResponse(ctx, b), nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateBrandRequest) (transport.BrandResponse, error) {
	params := repository.UpdateParams{ID: id}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		params.Name = &name
	}
	if req.Marketplaces != nil {
		params.Marketplaces = normalizeMarketplaces(req.Marketplaces)
	}
	if req.BrandTerms != nil {
		params.BrandTerms = normalizeTerms(req.BrandTerms)
	}
	if req.CompetitorTerms != nil {
		params.CompetitorTerms = normalizeTerms(req.CompetitorTerms)
	}

	b, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.BrandResponse{}, err
	}
	return s.toResponse(ctx, b), nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if b.LogoKey != nil {
		s.removeObject(ctx, *b.LogoKey)
	}
	return nil
}

// RequestLogoUpload returns a presigned PUT URL for a new brand logo.
func (s *Service) RequestLogoUpload(ctx context.Context, id uuid.UUID, req transport.LogoUploadRequest) (transport.LogoUploadResponse, error) {
	if s.storage == nil {
		return transport.LogoUploadResponse{}, apperr.Unavailable(msgStorageUnavailable)
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return transport.LogoUploadResponse{}, err
	}

	presigned, err := s.storage.GenerateUploadURL(ctx, storage.UploadRequest{
		Bucket:      s.bucket,
		Folder:      logoFolder(id),
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		Purpose:     storage.PurposeBrandLogo,
	})
	if err != nil {
		return transport.LogoUploadResponse{}, err
	}
	return transport.LogoUploadResponse{
		UploadURL: presigned.URL,
		FileKey:   presigned.FileKey,
		ExpiresAt: presigned.ExpiresAt,
	}, nil
}

// ConfirmLogo stores the uploaded key and removes the previous logo.
func (s *Service) ConfirmLogo(ctx context.Context, id uuid.UUID, fileKey string) (transport.BrandResponse, error) {
	if s.storage == nil {
		return transport.BrandResponse{}, apperr.Unavailable(msgStorageUnavailable)
	}
	if !strings.HasPrefix(fileKey, logoFolder(id)+"/") {
		return transport.BrandResponse{}, apperr.Validation("file key does not belong to this brand")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BrandResponse{}, err
	}
	b, err := s.repo.SetLogoKey(ctx, id, &fileKey)
	if err != nil {
		return transport.BrandResponse{}, err
	}
	if current.LogoKey != nil && *current.LogoKey != fileKey {
		s.removeObject(ctx, *current.LogoKey)
	}
	return s.toResponse(ctx, b), nil
}

// RemoveLogo clears the brand logo.
func (s *Service) RemoveLogo(ctx context.Context, id uuid.UUID) (transport.BrandResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BrandResponse{}, err
	}
	b, err := s.repo.SetLogoKey(ctx, id, nil)
	if err != nil {
		return transport.BrandResponse{}, err
	}
	if current.LogoKey != nil {
		s.removeObject(ctx, *current.LogoKey)
	}
	return s.toResponse(ctx, b), nil
}

func (s *Service) removeObject(ctx context.Context, key string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.DeleteObject(ctx, s.bucket, key); err != nil {
		s.log.Warn("failed to delete brand logo object", "key", key, "error", err)
	}
}

func (s *Service) toResponse(ctx context.Context, b repository.Brand) transport.BrandResponse {
	resp := transport.BrandResponse{
		ID:              b.ID,
		ClientID:        b.ClientID,
		Name:            b.Name,
		Marketplaces:    b.Marketplaces,
		BrandTerms:      b.BrandTerms,
		CompetitorTerms: b.CompetitorTerms,
		LogoKey:         b.LogoKey,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.LogoKey != nil && s.storage != nil {
		if presigned, err := s.storage.GenerateDownloadURL(ctx, s.bucket, *b.LogoKey); err == nil {
			resp.LogoURL = &presigned.URL
		}
	}
	return resp
}

func logoFolder(brandID uuid.UUID) string {
	return "brands/" + brandID.String()
}

// normalizeTerms lowercases, trims and de-duplicates term lists.
func normalizeTerms(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.Join(strings.Fields(v), " "))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func normalizeMarketplaces(values []string) []string {
	out := normalizeTerms(values)
	for i, v := range out {
		out[i] = strings.ToUpper(v)
	}
	return out
}
