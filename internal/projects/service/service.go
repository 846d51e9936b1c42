// Package service implements projects: CRUD for the copy-generation wizard,
// the stage-approval workflow and the AI jobs it gates.
package service

import (
	"context"
	"errors"
	"strings"

	"agency_os_backend/internal/events"
	"agency_os_backend/internal/jobs"
	"agency_os_backend/internal/projects/domain"
	"agency_os_backend/internal/projects/repository"
	"agency_os_backend/internal/projects/transport"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/sanitize"

	"github.com/google/uuid"
)

const defaultLocale = "en-US"

// PoolKeywordSource reads approved keyword pools.
type PoolKeywordSource interface {
	ApprovedPoolKeywords(ctx context.Context, poolID uuid.UUID, groups []string) ([]string, error)
}

type Service struct {
	repo     repository.Repository
	pools    PoolKeywordSource
	jobs     jobs.Starter
	prompter Prompters
	bus      events.Bus
	log      *logger.Logger
}

// Deps groups the collaborators of Service. Prompters may be empty when no
// LLM is configured.
type Deps struct {
	Repo      repository.Repository
	Pools     PoolKeywordSource
	Jobs      jobs.Starter
	Prompters Prompters
	Bus       events.Bus
	Log       *logger.Logger
}

func New(d Deps) *Service {
	return &Service{
		repo:     d.Repo,
		pools:    d.Pools,
		jobs:     d.Jobs,
		prompter: d.Prompters,
		bus:      d.Bus,
		log:      d.Log,
	}
}

func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req transport.CreateProjectRequest) (transport.ProjectResponse, error) {
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = defaultLocale
	}
	p, err := s.repo.Create(ctx, repository.CreateParams{
		ClientID:    req.ClientID,
		BrandID:     req.BrandID,
		Name:        sanitize.Line(req.Name),
		Marketplace: upperPtr(req.Marketplace),
		Locale:      locale,
		CreatedBy:   optionalID(actorID),
	})
	if err != nil {
		return transport.ProjectResponse{}, err
	}
	s.log.Info("project created", "projectId", p.ID, "clientId", p.ClientID)
	return toProjectResponse(p, nil), nil
}

func (s *Service) List(ctx context.Context, req transport.ListProjectsRequest) (transport.ProjectListResponse, error) {
	params := repository.ListParams{}
	if req.ClientID != "" {
		id := uuid.MustParse(req.ClientID)
		params.ClientID = &id
	}
	if req.Status != "" {
		params.Status = &req.Status
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		params.Search = &search
	}

	projects, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ProjectListResponse{}, err
	}
	resp := transport.ProjectListResponse{Items: make([]transport.ProjectResponse, 0, len(projects))}
	for _, p := range projects {
		resp.Items = append(resp.Items, toProjectResponse(p, nil))
	}
	return resp, nil
}

// Get returns the project with every SKU and its artefacts.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.ProjectResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ProjectResponse{}, err
	}
	skus, err := s.repo.ListSKUs(ctx, id)
	if err != nil {
		return transport.ProjectResponse{}, err
	}

	details := make([]transport.SKUResponse, 0, len(skus))
	for _, sku := range skus {
		d, err := s.skuDetail(ctx, sku)
		if err != nil {
			return transport.ProjectResponse{}, err
		}
		details = append(details, d)
	}
	return toProjectResponse(p, details), nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateProjectRequest) (transport.ProjectResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ProjectResponse{}, err
	}
	if current.Status == domain.StatusArchived {
		return transport.ProjectResponse{}, apperr.Conflict("archived projects cannot be edited")
	}

	p, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:          id,
		Name:        sanitize.LinePtr(req.Name),
		BrandID:     req.BrandID,
		Marketplace: upperPtr(req.Marketplace),
		Locale:      sanitize.LinePtr(req.Locale),
	})
	if err != nil {
		return transport.ProjectResponse{}, err
	}
	return toProjectResponse(p, nil), nil
}

// Delete removes a project that has not been approved yet.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Status != domain.StatusDraft {
		return apperr.Conflict("only draft projects can be deleted; archive it instead")
	}
	deleted, err := s.repo.DeleteDraft(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.Conflict("project left draft while deleting")
	}
	return nil
}

// Transition applies a stage action after checking its guard.
func (s *Service) Transition(ctx context.Context, actorID, id uuid.UUID, rawAction string) (transport.ProjectResponse, error) {
	action, ok := domain.ParseAction(rawAction)
	if !ok {
		return transport.ProjectResponse{}, apperr.Validation("unknown stage action")
	}

	updated, outcome, err := s.repo.Transition(ctx, id, func(snapshot domain.Snapshot) (domain.Outcome, error) {
		return domain.Transition(snapshot, action)
	})
	if err != nil {
		return transport.ProjectResponse{}, transitionError(err)
	}

	s.log.Info("project stage changed", "projectId", id, "action", action, "from", outcome.From, "to", outcome.To)
	s.bus.Publish(ctx, events.ProjectStageChanged{
		BaseEvent: events.NewActorEvent(actorID),
		ProjectID: id,
		Action:    string(action),
		From:      string(outcome.From),
		To:        string(outcome.To),
	})
	return toProjectResponse(updated, nil), nil
}

func transitionError(err error) error {
	var guard *domain.GuardError
	if errors.As(err, &guard) {
		return apperr.Conflict(guard.Error()).WithDetails(map[string]any{
			"action":   guard.Action,
			"reason":   guard.Reason,
			"skuCodes": guard.SKUCodes,
		})
	}
	var invalid *domain.TransitionError
	if errors.As(err, &invalid) {
		return apperr.Conflict(invalid.Error()).WithDetails(map[string]any{
			"action": invalid.Action,
			"status": invalid.Status,
		})
	}
	return err
}

// editLock binds a write to the status in which r is editable.
func editLock(projectID uuid.UUID, r domain.Resource) repository.StageLock {
	return repository.StageLock{ProjectID: projectID, Status: domain.EditableIn(r)}
}

// requireEditable loads the project and rejects edits its status forbids.
func (s *Service) requireEditable(ctx context.Context, projectID uuid.UUID, r domain.Resource) (repository.Project, error) {
	p, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return repository.Project{}, err
	}
	if reason := domain.EditBlockedReason(p.Status, r); reason != "" {
		return repository.Project{}, apperr.Conflict(reason)
	}
	return p, nil
}

// skuOf loads a SKU and checks it belongs to the project.
func (s *Service) skuOf(ctx context.Context, projectID, skuID uuid.UUID) (repository.SKU, error) {
	sku, err := s.repo.GetSKU(ctx, skuID)
	if err != nil {
		return repository.SKU{}, err
	}
	if sku.ProjectID != projectID {
		return repository.SKU{}, apperr.NotFound("SKU not found")
	}
	return sku, nil
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func upperPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.ToUpper(strings.TrimSpace(*v))
	if t == "" {
		return nil
	}
	return &t
}
