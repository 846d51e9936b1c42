package service

import (
	"context"
	"fmt"
	"strings"

	"agency_os_backend/internal/events"
	"agency_os_backend/internal/meetings/repository"
	"agency_os_backend/internal/meetings/transport"
	"agency_os_backend/internal/tracker"
	"agency_os_backend/platform/apperr"

	"github.com/google/uuid"
)

// Push sends approved tasks to the tracker one at a time. Each task is
// claimed (approved -> pushing) before the tracker is called, so concurrent
// pushes of the same meeting never create a tracker task twice. Tasks that
// are not approved, or were claimed by another push, are skipped. A failing
// task returns to approved and does not stop the others.
func (s *Service) Push(ctx context.Context, actorID, meetingID uuid.UUID, req transport.PushTasksRequest) (transport.PushTasksResponse, error) {
	if s.tracker == nil {
		return transport.PushTasksResponse{}, apperr.BadRequest(msgTrackerUnavailable)
	}
	listID := strings.TrimSpace(req.ListID)
	if listID == "" {
		listID = s.tracker.DefaultListID()
	}
	if listID == "" {
		return transport.PushTasksResponse{}, apperr.Validation("listId is required when no default tracker list is configured")
	}

	m, err := s.repo.GetByID(ctx, meetingID)
	if err != nil {
		return transport.PushTasksResponse{}, err
	}
	tasks, err := s.repo.ListTasks(ctx, meetingID)
	if err != nil {
		return transport.PushTasksResponse{}, err
	}

	var wanted map[uuid.UUID]struct{}
	if len(req.TaskIDs) > 0 {
		wanted = make(map[uuid.UUID]struct{}, len(req.TaskIDs))
		for _, id := range req.TaskIDs {
			wanted[id] = struct{}{}
		}
	}

	var names map[uuid.UUID]string
	if s.members != nil {
		members, err := s.members.ListMembers(ctx)
		if err != nil {
			return transport.PushTasksResponse{}, err
		}
		names = make(map[uuid.UUID]string, len(members))
		for _, mem := range members {
			names[mem.ID] = mem.DisplayName
		}
	}

	resp := transport.PushTasksResponse{Failed: []transport.PushFailure{}}
	for _, t := range tasks {
		if wanted != nil {
			if _, ok := wanted[t.ID]; !ok {
				continue
			}
		}
		if t.Status != repository.TaskApproved {
			resp.Skipped++
			continue
		}

		claimed, err := s.repo.ClaimForPush(ctx, t.ID)
		if err != nil {
			resp.Failed = append(resp.Failed, transport.PushFailure{TaskID: t.ID, Error: "could not claim task"})
			s.log.DatabaseError("claim meeting task", err)
			continue
		}
		if !claimed {
			resp.Skipped++
			continue
		}

		created, err := s.tracker.CreateTask(ctx, listID, taskInput(m, t, names))
		if err != nil {
			resp.Failed = append(resp.Failed, transport.PushFailure{TaskID: t.ID, Error: err.Error()})
			if err := s.repo.ReleasePush(ctx, t.ID); err != nil {
				s.log.DatabaseError("release meeting task", err)
			}
			continue
		}
		ok, err := s.repo.MarkPushed(ctx, t.ID, created.ID, created.URL)
		if err != nil {
			// The tracker task exists but is not linked to the row.
			s.log.DatabaseError("mark meeting task pushed", err)
			s.log.Warn("tracker task not recorded", "taskId", t.ID, "externalId", created.ID)
			resp.Failed = append(resp.Failed, transport.PushFailure{TaskID: t.ID, Error: "pushed but not recorded"})
			continue
		}
		if !ok {
			resp.Skipped++
			continue
		}
		resp.Pushed++
	}

	s.log.Info("meeting tasks pushed", "meetingId", meetingID, "pushed", resp.Pushed, "skipped", resp.Skipped, "failed", len(resp.Failed))
	s.bus.Publish(ctx, events.MeetingTasksPushed{
		BaseEvent: events.NewActorEvent(actorID),
		MeetingID: meetingID,
		Pushed:    resp.Pushed,
		Skipped:   resp.Skipped,
		Failed:    len(resp.Failed),
	})

	after, err := s.repo.ListTasks(ctx, meetingID)
	if err != nil {
		return transport.PushTasksResponse{}, err
	}
	resp.Tasks = toTaskResponses(after)
	return resp, nil
}

func taskInput(m repository.Meeting, t repository.Task, names map[uuid.UUID]string) tracker.TaskInput {
	var b strings.Builder
	if t.Description != nil && *t.Description != "" {
		b.WriteString(*t.Description)
		b.WriteString("\n\n")
	}
	if t.AssigneeProfileID != nil {
		if name, ok := names[*t.AssigneeProfileID]; ok {
			fmt.Fprintf(&b, "Assignee: %s\n", name)
		}
	} else if t.AssigneeHint != nil {
		fmt.Fprintf(&b, "Assignee (from notes): %s\n", *t.AssigneeHint)
	}
	fmt.Fprintf(&b, "From meeting %q on %s", m.Title, m.MeetingDate.Format(dateLayout))

	return tracker.TaskInput{
		Name:        t.Title,
		Description: b.String(),
		DueDate:     t.DueDate,
		Tags:        []string{"meeting-notes"},
	}
}
