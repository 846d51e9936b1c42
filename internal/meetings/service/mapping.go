package service

import (
	"agency_os_backend/internal/meetings/repository"
	"agency_os_backend/internal/meetings/transport"
)

func toMeetingResponse(m repository.Meeting, tasks []repository.Task) transport.MeetingResponse {
	resp := transport.MeetingResponse{
		ID:          m.ID,
		ClientID:    m.ClientID,
		Title:       m.Title,
		MeetingDate: m.MeetingDate.Format(dateLayout),
		RawNotes:    m.RawNotes,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if tasks != nil {
		resp.Tasks = toTaskResponses(tasks)
	}
	return resp
}

func toTaskResponses(tasks []repository.Task) []transport.TaskResponse {
	out := make([]transport.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return out
}

func toTaskResponse(t repository.Task) transport.TaskResponse {
	resp := transport.TaskResponse{
		ID:                t.ID,
		Title:             t.Title,
		Description:       t.Description,
		AssigneeHint:      t.AssigneeHint,
		AssigneeProfileID: t.AssigneeProfileID,
		Status:            string(t.Status),
		ExternalID:        t.ExternalID,
		ExternalURL:       t.ExternalURL,
		PushedAt:          t.PushedAt,
	}
	if t.DueDate != nil {
		d := t.DueDate.Format(dateLayout)
		resp.DueDate = &d
	}
	return resp
}
