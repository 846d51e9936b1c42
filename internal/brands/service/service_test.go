package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"agency_os_backend/internal/adapters/storage"
	"agency_os_backend/internal/brands/repository"
	"agency_os_backend/internal/brands/transport"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	brands map[uuid.UUID]repository.Brand
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Brand, error) {
	b, ok := m.brands[id]
	if !ok {
		return repository.Brand{}, apperr.NotFound("brand not found")
	}
	return b, nil
}
func (m *memRepo) ListByClient(context.Context, uuid.UUID) ([]repository.Brand, error) {
	return nil, nil
}
func (m *memRepo) Create(_ context.Context, p repository.CreateParams) (repository.Brand, error) {
	b := repository.Brand{ID: uuid.New(), ClientID: p.ClientID, Name: p.Name, Marketplaces: p.Marketplaces, BrandTerms: p.BrandTerms, CompetitorTerms: p.CompetitorTerms}
	m.brands[b.ID] = b
	return b, nil
}
func (m *memRepo) Update(_ context.Context, p repository.UpdateParams) (repository.Brand, error) {
	return m.brands[p.ID], nil
}
func (m *memRepo) SetLogoKey(_ context.Context, id uuid.UUID, key *string) (repository.Brand, error) {
	b := m.brands[id]
	b.LogoKey = key
	m.brands[id] = b
	return b, nil
}
func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.brands, id)
	return nil
}

type fakeStorage struct {
	deleted []string
}

func (f *fakeStorage) GenerateUploadURL(_ context.Context, req storage.UploadRequest) (*storage.PresignedURL, error) {
	if err := storage.ValidateContentType(req.Purpose, req.ContentType); err != nil {
		return nil, err
	}
	return &storage.PresignedURL{URL: "https://s3/put", FileKey: req.Folder + "/logo_1234.png", ExpiresAt: time.Now()}, nil
}
func (f *fakeStorage) GenerateDownloadURL(_ context.Context, _, key string) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{URL: "https://s3/get/" + key}, nil
}
func (f *fakeStorage) DownloadFile(context.Context, string, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}
func (f *fakeStorage) DeleteObject(_ context.Context, _, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}
func (f *fakeStorage) EnsureBucketExists(context.Context, string) error { return nil }

func TestCreateNormalizesTermLists(t *testing.T) {
	svc := New(&memRepo{brands: map[uuid.UUID]repository.Brand{}}, nil, "logos", logger.Discard())

	resp, err := svc.Create(context.Background(), transport.CreateBrandRequest{
		ClientID:        uuid.New(),
		Name:            " TrailPro ",
		Marketplaces:    []string{"us", " US", "de"},
		BrandTerms:      []string{"Trail  Pro", "trail pro", "TP"},
		CompetitorTerms: []string{"Hiker X"},
	})
	require.NoError(t, err)
	require.Equal(t, "TrailPro", resp.Name)
	require.Equal(t, []string{"US", "DE"}, resp.Marketplaces)
	require.Equal(t, []string{"trail pro", "tp"}, resp.BrandTerms)
	require.Equal(t, []string{"hiker x"}, resp.CompetitorTerms)
}

func TestGetTermsIncludesBrandName(t *testing.T) {
	id := uuid.New()
	repo := &memRepo{brands: map[uuid.UUID]repository.Brand{id: {ID: id, Name: "TrailPro", BrandTerms: []string{"trailpro", "tp"}}}}
	svc := New(repo, nil, "logos", logger.Discard())

	terms, err := svc.GetTerms(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, []string{"trailpro", "tp"}, terms.BrandTerms)
}

func TestLogoUploadRequiresStorage(t *testing.T) {
	id := uuid.New()
	repo := &memRepo{brands: map[uuid.UUID]repository.Brand{id: {ID: id}}}
	svc := New(repo, nil, "logos", logger.Discard())

	_, err := svc.RequestLogoUpload(context.Background(), id, transport.LogoUploadRequest{FileName: "a.png", ContentType: "image/png", SizeBytes: 10})
	require.True(t, apperr.Is(err, apperr.KindUnavailable))
}

func TestLogoLifecycle(t *testing.T) {
	id := uuid.New()
	old := "brands/" + id.String() + "/old.png"
	repo := &memRepo{brands: map[uuid.UUID]repository.Brand{id: {ID: id, LogoKey: &old}}}
	store := &fakeStorage{}
	svc := New(repo, store, "logos", logger.Discard())
	ctx := context.Background()

	_, err := svc.RequestLogoUpload(ctx, id, transport.LogoUploadRequest{FileName: "a.pdf", ContentType: "application/pdf", SizeBytes: 10})
	require.True(t, apperr.Is(err, apperr.KindValidation))

	upload, err := svc.RequestLogoUpload(ctx, id, transport.LogoUploadRequest{FileName: "logo.png", ContentType: "image/png", SizeBytes: 10})
	require.NoError(t, err)

	_, err = svc.ConfirmLogo(ctx, id, "brands/"+uuid.NewString()+"/x.png")
	require.True(t, apperr.Is(err, apperr.KindValidation))

	resp, err := svc.ConfirmLogo(ctx, id, upload.FileKey)
	require.NoError(t, err)
	require.NotNil(t, resp.LogoURL)
	require.Equal(t, []string{old}, store.deleted)
}
