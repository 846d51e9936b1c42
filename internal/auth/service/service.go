// Package service links identity-provider users to team profiles.
package service

import (
	"context"
	"strings"
	"unicode"

	"agency_os_backend/internal/auth/repository"
	"agency_os_backend/internal/auth/transport"
	"agency_os_backend/internal/events"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/logger"

	"github.com/google/uuid"
)

// Service resolves the profile behind every authenticated request.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// EnsureProfile returns the profile linked to authUserID. On first sign-in it
// links a ghost profile with the same email, or creates a fresh non-admin
// profile. Calling it again for the same user returns the same profile.
func (s *Service) EnsureProfile(ctx context.Context, authUserID uuid.UUID, email string) (repository.Profile, error) {
	profile, err := s.repo.GetByAuthUserID(ctx, authUserID)
	if err == nil {
		return profile, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return repository.Profile{}, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return repository.Profile{}, apperr.Unauthorized("token has no email claim")
	}

	ghost, err := s.repo.FindGhostByEmail(ctx, email)
	switch {
	case err == nil:
		linked, ok, linkErr := s.repo.LinkGhost(ctx, ghost.ID, authUserID)
		if linkErr != nil {
			return repository.Profile{}, linkErr
		}
		if !ok {
			// Lost a race with a concurrent first request for the same user.
			return s.repo.GetByAuthUserID(ctx, authUserID)
		}
		s.log.AuthEvent("ghost_profile_linked", email, true, "")
		s.publishLinked(ctx, linked, true)
		return linked, nil
	case !apperr.Is(err, apperr.KindNotFound):
		return repository.Profile{}, err
	}

	created, err := s.repo.Create(ctx, authUserID, email, displayNameFromEmail(email))
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			if existing, getErr := s.repo.GetByAuthUserID(ctx, authUserID); getErr == nil {
				return existing, nil
			}
			s.log.AuthEvent("profile_create", email, false, "email linked to another account")
		}
		return repository.Profile{}, err
	}
	s.log.AuthEvent("profile_created", email, true, "")
	s.publishLinked(ctx, created, false)
	return created, nil
}

func (s *Service) publishLinked(ctx context.Context, p repository.Profile, wasGhost bool) {
	if s.bus == nil || p.AuthUserID == nil {
		return
	}
	s.bus.Publish(ctx, events.ProfileLinked{
		BaseEvent:  events.NewActorEvent(p.ID),
		ProfileID:  p.ID,
		AuthUserID: *p.AuthUserID,
		Email:      p.Email,
		WasGhost:   wasGhost,
	})
}

// GetMe returns the caller's profile with assigned clients.
func (s *Service) GetMe(ctx context.Context, profileID uuid.UUID) (transport.MeResponse, error) {
	profile, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return transport.MeResponse{}, err
	}
	assignments, err := s.repo.ListAssignments(ctx, profileID)
	if err != nil {
		return transport.MeResponse{}, err
	}

	resp := transport.MeResponse{
		ID:          profile.ID,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		Phone:       profile.Phone,
		IsAdmin:     profile.IsAdmin,
		Clients:     make([]transport.AssignedClient, 0, len(assignments)),
		CreatedAt:   profile.CreatedAt,
	}
	for _, a := range assignments {
		resp.Clients = append(resp.Clients, transport.AssignedClient{
			ID:   a.ClientID,
			Name: a.ClientName,
			Role: a.Role,
		})
	}
	return resp, nil
}

// displayNameFromEmail turns "jane.doe@x.com" into "Jane Doe".
func displayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, p := range parts {
		runes := []rune(p)
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	if len(parts) == 0 {
		return email
	}
	return strings.Join(parts, " ")
}
