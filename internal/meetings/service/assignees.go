package service

import (
	"strings"

	"github.com/google/uuid"
)

// Member is a team member an extracted task can be assigned to.
type Member struct {
	ID          uuid.UUID
	DisplayName string
	Email       string
}

// resolveAssignee maps a free-text hint from the notes to a team member.
// Matches are tried from strictest to loosest: email, email local part,
// full display name, then first name. A hint that matches more than one
// member at the first level that matches anything is left unresolved.
func resolveAssignee(hint string, members []Member) *uuid.UUID {
	h := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(hint), "@")))
	if h == "" {
		return nil
	}

	levels := []func(Member) bool{
		func(m Member) bool { return strings.EqualFold(m.Email, h) },
		func(m Member) bool {
			local, _, ok := strings.Cut(strings.ToLower(m.Email), "@")
			return ok && local == h
		},
		func(m Member) bool { return strings.EqualFold(strings.Join(strings.Fields(m.DisplayName), " "), strings.Join(strings.Fields(h), " ")) },
		func(m Member) bool {
			fields := strings.Fields(m.DisplayName)
			return len(fields) > 0 && strings.EqualFold(fields[0], h)
		},
	}
	for _, match := range levels {
		var found []uuid.UUID
		for _, m := range members {
			if match(m) {
				found = append(found, m.ID)
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			return &found[0]
		default:
			return nil
		}
	}
	return nil
}
