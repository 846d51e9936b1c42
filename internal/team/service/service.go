// Package service implements team administration: ghost profiles, roles and
// client assignments.
package service

import (
	"context"
	"errors"
	"strings"

	"agency_os_backend/internal/events"
	"agency_os_backend/internal/team/repository"
	"agency_os_backend/internal/team/transport"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/phone"

	"github.com/google/uuid"
)



type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

func (s *Service) List(ctx context.Context) (transport.MemberListResponse, error) {
	members, err := s.repo.List(ctx)
	if err != nil {
		return transport.MemberListResponse{}, err
	}
	assignments, err := s.repo.ListAssignments(ctx)
	if err != nil {
		return transport.MemberListResponse{}, err
	}

	byProfile := make(map[uuid.UUID][]repository.Assignment, len(members))
	for _, a := range assignments {
		byProfile[a.ProfileID] = append(byProfile[a.ProfileID], a)
	}

	resp := transport.MemberListResponse{Items: make([]transport.MemberResponse, 0, len(members))}
	for _, m := range members {
		resp.Items = append(resp.Items, toResponse(m, byProfile[m.ID]))
	}
	return resp, nil
}

// CreateGhost pre-creates a profile that is linked on the member's first sign-in.
func (s *Service) CreateGhost(ctx context.Context, actorID uuid.UUID, req transport.CreateMemberRequest) (transport.MemberResponse, error) {
	phoneNumber, err := normalizePhone(req.Phone)
	if err != nil {
		return transport.MemberResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	member, err := s.repo.CreateGhost(ctx, repository.CreateGhostParams{
		Email:       email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Phone:       phoneNumber,
		IsAdmin:     req.IsAdmin,
	})
	if err != nil {
		return transport.MemberResponse{}, err
	}

	s.log.Info("ghost profile created", "profileId", member.ID, "admin", member.IsAdmin, "invite", req.SendInvite)
	s.bus.Publish(ctx, events.GhostProfileCreated{
		BaseEvent:   events.NewActorEvent(actorID),
		ProfileID:   member.ID,
		Email:       member.Email,
		DisplayName: member.DisplayName,
		SendInvite:  req.SendInvite,
	})
	return toResponse(member, nil), nil
}

func (s *Service) Update(ctx context.Context, actorID, id uuid.UUID, req transport.UpdateMemberRequest) (transport.MemberResponse, error) {
	phoneNumber, err := normalizePhone(req.Phone)
	if err != nil {
		return transport.MemberResponse{}, err
	}

	if req.IsAdmin != nil && !*req.IsAdmin {
		if err := s.guardLastAdmin(ctx, actorID, id); err != nil {
			return transport.MemberResponse{}, err
		}
	}

	var displayName *string
	if req.DisplayName != nil {
		trimmed := strings.TrimSpace(*req.DisplayName)
		displayName = &trimmed
	}

	member, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:          id,
		DisplayName: displayName,
		Phone:       phoneNumber,
		IsAdmin:     req.IsAdmin,
	})
	if err != nil {
		return transport.MemberResponse{}, err
	}
	return toResponse(member, nil), nil
}

// guardLastAdmin refuses to demote an admin when that would leave the team
// without one, and refuses self-demotion.
func (s *Service) guardLastAdmin(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return apperr.Conflict("you cannot remove your own admin rights")
	}
	member, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !member.IsAdmin {
		return nil
	}
	admins, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return apperr.Conflict("the team needs at least one admin")
	}
	return nil
}

// DeleteGhost removes a profile that never signed in.
func (s *Service) DeleteGhost(ctx context.Context, id uuid.UUID) error {
	member, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !member.IsGhost() {
		return apperr.Conflict("only team members that never signed in can be deleted")
	}

	deleted, err := s.repo.DeleteGhost(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		// Linked between the read and the delete.
		return apperr.Conflict("only team members that never signed in can be deleted")
	}
	s.log.Info("ghost profile deleted", "profileId", id)
	return nil
}

// SetAssignments replaces the full set of client assignments for a member.
func (s *Service) SetAssignments(ctx context.Context, id uuid.UUID, req transport.SetAssignmentsRequest) ([]transport.AssignmentResponse, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(req.Assignments))
	assignments := make([]repository.Assignment, 0, len(req.Assignments))
	for _, in := range req.Assignments {
		if _, dup := seen[in.ClientID]; dup {
			return nil, apperr.Validation("a client can only be assigned once")
		}
		seen[in.ClientID] = struct{}{}
		assignments = append(assignments, repository.Assignment{ProfileID: id, ClientID: in.ClientID, Role: in.Role})
	}

	if err := s.repo.ReplaceAssignments(ctx, id, assignments); err != nil {
		return nil, err
	}

	all, err := s.repo.ListAssignments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]transport.AssignmentResponse, 0, len(assignments))
	for _, a := range all {
		if a.ProfileID == id {
			out = append(out, toAssignmentResponse(a))
		}
	}
	return out, nil
}

func normalizePhone(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, nil
	}
	normalized, err := phone.ParseE164(trimmed, phone.DefaultRegion)
	if err != nil {
		if errors.Is(err, phone.ErrInvalidNumber) {
			return nil, apperr.Validation("phone number is not valid")
		}
		return nil, err
	}
	return &normalized, nil
}

func toResponse(m repository.Member, assignments []repository.Assignment) transport.MemberResponse {
	resp := transport.MemberResponse{
		ID:          m.ID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Phone:       m.Phone,
		IsAdmin:     m.IsAdmin,
		IsGhost:     m.IsGhost(),
		Assignments: make([]transport.AssignmentResponse, 0, len(assignments)),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	for _, a := range assignments {
		resp.Assignments = append(resp.Assignments, toAssignmentResponse(a))
	}
	return resp
}

func toAssignmentResponse(a repository.Assignment) transport.AssignmentResponse {
	return transport.AssignmentResponse{ClientID: a.ClientID, ClientName: a.ClientName, Role: a.Role}
}
