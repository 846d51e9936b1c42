package adapters

import (
	"context"

	meetingsvc "agency_os_backend/internal/meetings/service"
	teamsvc "agency_os_backend/internal/team/service"
)

// TeamDirectoryAdapter exposes team members to meeting task assignment.
type TeamDirectoryAdapter struct {
	team *teamsvc.Service
}

func NewTeamDirectoryAdapter(team *teamsvc.Service) *TeamDirectoryAdapter {
	return &TeamDirectoryAdapter{team: team}
}

func (a *TeamDirectoryAdapter) ListMembers(ctx context.Context) ([]meetingsvc.Member, error) {
	list, err := a.team.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]meetingsvc.Member, 0, len(list.Items))
	for _, m := range list.Items {
		out = append(out, meetingsvc.Member{ID: m.ID, DisplayName: m.DisplayName, Email: m.Email})
	}
	return out, nil
}

var _ meetingsvc.MemberDirectory = (*TeamDirectoryAdapter)(nil)
