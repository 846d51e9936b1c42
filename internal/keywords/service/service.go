// Package service implements the keyword pool wizard: upload, clean,
// group with AI, correct by hand and approve.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agency_os_backend/internal/adapters/storage"
	"agency_os_backend/internal/events"
	"agency_os_backend/internal/jobs"
	"agency_os_backend/internal/keywords/cleaning"
	"agency_os_backend/internal/keywords/grouping"
	"agency_os_backend/internal/keywords/repository"
	"agency_os_backend/internal/keywords/transport"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	msgStorageUnavailable = "file storage is not configured"
	msgAIUnavailable      = "AI grouping is not configured"
	uploadFolderPrefix    = "keyword-uploads"
)

// BrandTerms is what cleaning and grouping need to know about a brand.
type BrandTerms struct {
	Name            string
	Marketplaces    []string
	BrandTerms      []string
	CompetitorTerms []string
}

// BrandTermsProvider resolves a brand's cleaning inputs.
type BrandTermsProvider interface {
	GetBrandTerms(ctx context.Context, brandID uuid.UUID) (BrandTerms, error)
}

// Grouper is the AI grouping step.
type Grouper interface {
	Group(ctx context.Context, keywords []string, hints grouping.Hints) (grouping.Output, error)
}

type Service struct {
	repo    repository.Repository
	brands  BrandTermsProvider
	storage storage.StorageService
	bucket  string
	jobs    jobs.Starter
	cleaner *cleaning.Cleaner
	grouper Grouper
	bus     events.Bus
	log     *logger.Logger
}

// Deps groups the collaborators of Service. Storage and Grouper may be nil.
type Deps struct {
	Repo    repository.Repository
	Brands  BrandTermsProvider
	Storage storage.StorageService
	Bucket  string
	Jobs    jobs.Starter
	Cleaner *cleaning.Cleaner
	Grouper Grouper
	Bus     events.Bus
	Log     *logger.Logger
}

func New(d Deps) *Service {
	cleaner := d.Cleaner
	if cleaner == nil {
		cleaner = cleaning.New()
	}
	return &Service{
		repo:    d.Repo,
		brands:  d.Brands,
		storage: d.Storage,
		bucket:  d.Bucket,
		jobs:    d.Jobs,
		cleaner: cleaner,
		grouper: d.Grouper,
		bus:     d.Bus,
		log:     d.Log,
	}
}

// RequestUpload returns a presigned PUT URL for a keyword CSV.
func (s *Service) RequestUpload(ctx context.Context, req transport.UploadURLRequest) (transport.UploadURLResponse, error) {
	if s.storage == nil {
		return transport.UploadURLResponse{}, apperr.Unavailable(msgStorageUnavailable)
	}
	presigned, err := s.storage.GenerateUploadURL(ctx, storage.UploadRequest{
		Bucket:      s.bucket,
		Folder:      uploadFolder(req.ClientID),
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		Purpose:     storage.PurposeKeywordUpload,
	})
	if err != nil {
		return transport.UploadURLResponse{}, err
	}
	return transport.UploadURLResponse{
		UploadURL: presigned.URL,
		FileKey:   presigned.FileKey,
		ExpiresAt: presigned.ExpiresAt,
	}, nil
}

// Create stores a new pool from inline keywords or an uploaded CSV.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req transport.CreatePoolRequest) (transport.PoolResponse, error) {
	var (
		keywords  []string
		sourceKey *string
	)
	switch {
	case req.FileKey != nil:
		parsed, err := s.readUpload(ctx, req.ClientID, *req.FileKey)
		if err != nil {
			return transport.PoolResponse{}, err
		}
		keywords = parsed
		sourceKey = req.FileKey
	default:
		keywords = trimNonEmpty(req.Keywords)
	}
	if len(keywords) == 0 {
		return transport.PoolResponse{}, apperr.Validation("keyword pool needs at least one keyword")
	}

	if req.BrandID != nil {
		if _, err := s.brands.GetBrandTerms(ctx, *req.BrandID); err != nil {
			return transport.PoolResponse{}, err
		}
	}

	pool, err := s.repo.Create(ctx, repository.CreateParams{
		ClientID:        req.ClientID,
		BrandID:         req.BrandID,
		Name:            strings.TrimSpace(req.Name),
		RawKeywords:     keywords,
		SourceObjectKey: sourceKey,
		CreatedBy:       optionalID(actorID),
	})
	if err != nil {
		return transport.PoolResponse{}, err
	}
	s.log.Info("keyword pool created", "poolId", pool.ID, "clientId", pool.ClientID, "keywords", len(keywords))
	return toPoolResponse(pool, false), nil
}

func (s *Service) readUpload(ctx context.Context, clientID uuid.UUID, fileKey string) ([]string, error) {
	if s.storage == nil {
		return nil, apperr.Unavailable(msgStorageUnavailable)
	}
	if !strings.HasPrefix(fileKey, uploadFolder(clientID)+"/") {
		return nil, apperr.Validation("file key does not belong to this client")
	}

	body, err := s.storage.DownloadFile(ctx, s.bucket, fileKey)
	if err != nil {
		return nil, fmt.Errorf("download keyword file: %w", err)
	}
	defer body.Close()

	keywords, err := parseKeywordCSV(body)
	if err != nil {
		if errors.Is(err, errTooManyKeywords) {
			return nil, apperr.Validation(err.Error())
		}
		return nil, apperr.Wrap(apperr.KindValidation, "keyword file is not valid CSV", err)
	}
	return keywords, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.PoolResponse, error) {
	pool, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PoolResponse{}, err
	}
	return toPoolResponse(pool, true), nil
}

func (s *Service) List(ctx context.Context, req transport.ListPoolsRequest) (transport.PoolListResponse, error) {
	params := repository.ListParams{}
	if req.ClientID != "" {
		id := uuid.MustParse(req.ClientID)
		params.ClientID = &id
	}
	if req.BrandID != "" {
		id := uuid.MustParse(req.BrandID)
		params.BrandID = &id
	}
	if req.Status != "" {
		params.Status = &req.Status
	}

	pools, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.PoolListResponse{}, err
	}
	resp := transport.PoolListResponse{Items: make([]transport.PoolResponse, 0, len(pools))}
	for _, p := range pools {
		resp.Items = append(resp.Items, toPoolResponse(p, false))
	}
	return resp, nil
}

// Delete removes a pool. Pools with a running grouping job are kept.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	pool, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if pool.Status == repository.StatusGrouping {
		return apperr.Conflict("keyword pool is being grouped")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if pool.SourceObjectKey != nil && s.storage != nil {
		if err := s.storage.DeleteObject(ctx, s.bucket, *pool.SourceObjectKey); err != nil {
			s.log.Warn("failed to delete keyword upload", "key", *pool.SourceObjectKey, "error", err)
		}
	}
	return nil
}

// Clean runs the cleaning pipeline over the raw keywords. Cleaning again
// after grouping discards the groups and every override.
func (s *Service) Clean(ctx context.Context, actorID, id uuid.UUID, req transport.CleanRequest) (transport.PoolResponse, error) {
	pool, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PoolResponse{}, err
	}

	opts := cleaning.Options{
		RemoveBrand:     req.RemoveBrand,
		RemoveColors:    req.RemoveColors,
		RemoveSizes:     req.RemoveSizes,
		CompetitorTerms: req.CompetitorTerms,
		ExtraStopwords:  req.ExtraStopwords,
		ExtraColors:     req.ExtraColors,
		ExtraSizes:      req.ExtraSizes,
	}
	if pool.BrandID != nil {
		terms, err := s.brands.GetBrandTerms(ctx, *pool.BrandID)
		if err != nil {
			return transport.PoolResponse{}, err
		}
		opts.BrandTerms = terms.BrandTerms
		opts.CompetitorTerms = append(append([]string{}, terms.CompetitorTerms...), req.CompetitorTerms...)
	} else if req.RemoveBrand {
		return transport.PoolResponse{}, apperr.Validation("brand removal needs a pool linked to a brand")
	}

	result := s.cleaner.Clean(pool.RawKeywords, opts)
	updated, ok, err := s.repo.SaveCleaning(ctx, id, repository.CleaningParams{
		Cleaned: result.Kept,
		Removed: result.Removed,
		Options: opts,
	}, []repository.Status{
		repository.StatusUploaded,
		repository.StatusCleaned,
		repository.StatusGrouped,
		repository.StatusFailed,
	})
	if err != nil {
		return transport.PoolResponse{}, err
	}
	if !ok {
		return transport.PoolResponse{}, statusConflict("clean", pool.Status)
	}

	s.bus.Publish(ctx, events.KeywordPoolCleaned{
		BaseEvent: events.NewActorEvent(actorID),
		PoolID:    id,
		Kept:      len(result.Kept),
		Removed:   len(result.Removed),
	})
	return toPoolResponse(updated, true), nil
}

// Restore moves a removed keyword back into the cleaned list.
func (s *Service) Restore(ctx context.Context, id uuid.UUID, keyword string) (transport.PoolResponse, error) {
	pool, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PoolResponse{}, err
	}
	if pool.Status != repository.StatusCleaned {
		return transport.PoolResponse{}, statusConflict("restore keywords", pool.Status)
	}

	result := cleaning.Result{Kept: pool.CleanedKeywords, Removed: pool.Removed}
	if !result.Restore(keyword) {
		return transport.PoolResponse{}, apperr.NotFound("keyword was not removed from this pool")
	}

	updated, ok, err := s.repo.UpdateCleaned(ctx, id, repository.CleaningParams{Cleaned: result.Kept, Removed: result.Removed})
	if err != nil {
		return transport.PoolResponse{}, err
	}
	if !ok {
		return transport.PoolResponse{}, apperr.Conflict("keyword pool changed while restoring")
	}
	return toPoolResponse(updated, true), nil
}

// GetGroups returns the AI groups with every override replayed. Approved
// pools return the frozen groups.
func (s *Service) GetGroups(ctx context.Context, id uuid.UUID) (transport.GroupsResponse, error) {
	pool, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.GroupsResponse{}, err
	}
	return s.mergedView(ctx, pool)
}

func (s *Service) mergedView(ctx context.Context, pool repository.Pool) (transport.GroupsResponse, error) {
	switch pool.Status {
	case repository.StatusGrouped, repository.StatusApproved:
	default:
		return transport.GroupsResponse{}, statusConflict("view groups", pool.Status)
	}

	overrides, err := s.repo.ListOverrides(ctx, pool.ID)
	if err != nil {
		return transport.GroupsResponse{}, err
	}

	resp := transport.GroupsResponse{
		PoolID:    pool.ID,
		Status:    string(pool.Status),
		Overrides: toOverrideResponses(overrides),
		Skipped:   []transport.SkippedOverride{},
	}
	if pool.Status == repository.StatusApproved {
		resp.Groups = toGroupResponses(pool.ApprovedGroups)
		return resp, nil
	}

	merged := grouping.ApplyOverrides(pool.AIGroups, overrides)
	resp.Groups = toGroupResponses(merged.Groups)
	for _, sk := range merged.Skipped {
		resp.Skipped = append(resp.Skipped, transport.SkippedOverride{Seq: sk.Seq, Action: string(sk.Action), Reason: sk.Reason})
	}
	return resp, nil
}

// AddOverride records a manual correction and returns the merged view.
func (s *Service) AddOverride(ctx context.Context, actorID, id uuid.UUID, req transport.OverrideRequest) (transport.GroupsResponse, error) {
	o, err := overrideFromRequest(req)
	if err != nil {
		return transport.GroupsResponse{}, err
	}

	pool, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.GroupsResponse{}, err
	}
	if pool.Status != repository.StatusGrouped {
		return transport.GroupsResponse{}, statusConflict("edit groups", pool.Status)
	}

	if _, err := s.repo.AddOverride(ctx, id, o, optionalID(actorID)); err != nil {
		return transport.GroupsResponse{}, err
	}
	return s.mergedView(ctx, pool)
}

// ResetOverrides drops every manual correction.
func (s *Service) ResetOverrides(ctx context.Context, id uuid.UUID) (transport.GroupsResponse, error) {
	pool, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.GroupsResponse{}, err
	}
	if pool.Status != repository.StatusGrouped {
		return transport.GroupsResponse{}, statusConflict("reset overrides", pool.Status)
	}
	removed, err := s.repo.DeleteOverrides(ctx, id)
	if err != nil {
		return transport.GroupsResponse{}, err
	}
	s.log.Info("keyword overrides reset", "poolId", id, "removed", removed)
	return s.mergedView(ctx, pool)
}

// Approve freezes the merged groups.
func (s *Service) Approve(ctx context.Context, actorID, id uuid.UUID) (transport.GroupsResponse, error) {
	pool, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.GroupsResponse{}, err
	}
	if pool.Status != repository.StatusGrouped {
		return transport.GroupsResponse{}, statusConflict("approve", pool.Status)
	}

	overrides, err := s.repo.ListOverrides(ctx, id)
	if err != nil {
		return transport.GroupsResponse{}, err
	}
	merged := grouping.ApplyOverrides(pool.AIGroups, overrides)
	if len(merged.Groups) == 0 {
		return transport.GroupsResponse{}, apperr.Validation("cannot approve a pool without groups")
	}

	approved, ok, err := s.repo.Approve(ctx, id, merged.Groups)
	if err != nil {
		return transport.GroupsResponse{}, err
	}
	if !ok {
		return transport.GroupsResponse{}, apperr.Conflict("keyword pool changed while approving")
	}

	s.bus.Publish(ctx, events.KeywordPoolApproved{
		BaseEvent:  events.NewActorEvent(actorID),
		PoolID:     id,
		GroupCount: len(merged.Groups),
	})
	return s.mergedView(ctx, approved)
}

// ApprovedKeywords returns the frozen groups of an approved pool, optionally
// narrowed to the named groups.
func (s *Service) ApprovedKeywords(ctx context.Context, id uuid.UUID, groupNames []string) ([]grouping.Group, error) {
	pool, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pool.Status != repository.StatusApproved {
		return nil, apperr.Conflict("keyword pool is not approved")
	}
	if len(groupNames) == 0 {
		return pool.ApprovedGroups, nil
	}

	wanted := make(map[string]struct{}, len(groupNames))
	for _, n := range groupNames {
		wanted[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	out := make([]grouping.Group, 0, len(groupNames))
	for _, g := range pool.ApprovedGroups {
		if _, ok := wanted[strings.ToLower(g.Name)]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func overrideFromRequest(req transport.OverrideRequest) (grouping.Override, error) {
	o := grouping.Override{
		Action:    grouping.Action(req.Action),
		Keyword:   cleaning.Normalize(req.Keyword),
		FromGroup: strings.TrimSpace(req.FromGroup),
		ToGroup:   strings.TrimSpace(req.ToGroup),
	}
	switch o.Action {
	case grouping.ActionMove, grouping.ActionAdd:
		if o.Keyword == "" || o.ToGroup == "" {
			return o, apperr.Validation(fmt.Sprintf("%s needs keyword and toGroup", o.Action))
		}
	case grouping.ActionRemove:
		if o.Keyword == "" {
			return o, apperr.Validation("remove needs keyword")
		}
	case grouping.ActionRename:
		if o.FromGroup == "" || o.ToGroup == "" {
			return o, apperr.Validation("rename needs fromGroup and toGroup")
		}
	default:
		return o, apperr.Validation("unknown override action")
	}
	return o, nil
}

func statusConflict(action string, status repository.Status) error {
	return apperr.Conflict(fmt.Sprintf("cannot %s a keyword pool in status %s", action, status))
}

func uploadFolder(clientID uuid.UUID) string {
	return uploadFolderPrefix + "/" + clientID.String()
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
