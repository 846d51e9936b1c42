// Package service implements meeting notes: task extraction with the LLM,
// draft review and pushing approved tasks to the tracker.
package service

import (
	"context"
	"time"

	"agency_os_backend/internal/events"
	"agency_os_backend/internal/jobs"
	"agency_os_backend/internal/meetings/repository"
	"agency_os_backend/internal/meetings/transport"
	"agency_os_backend/internal/tracker"
	"agency_os_backend/platform/ai/llm"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/logger"
	"agency_os_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	dateLayout = "2006-01-02"

	msgAIUnavailable      = "AI extraction is not configured"
	msgTrackerUnavailable = "task tracker not configured"
)

// Prompter is the single-turn LLM call used for extraction.
type Prompter interface {
	Prompt(ctx context.Context, input string) (llm.Result, error)
}

// MemberDirectory lists the team members tasks can be assigned to.
type MemberDirectory interface {
	ListMembers(ctx context.Context) ([]Member, error)
}

// TaskTracker creates tasks in the external tracker.
type TaskTracker interface {
	CreateTask(ctx context.Context, listID string, in tracker.TaskInput) (tracker.Task, error)
	DefaultListID() string
}

type Service struct {
	repo     repository.Repository
	jobs     jobs.Starter
	prompter Prompter
	members  MemberDirectory
	tracker  TaskTracker
	bus      events.Bus
	log      *logger.Logger
}

// Deps groups the collaborators of Service. Prompter and Tracker are nil
// when the LLM or the tracker are not configured.
type Deps struct {
	Repo     repository.Repository
	Jobs     jobs.Starter
	Prompter Prompter
	Members  MemberDirectory
	Tracker  TaskTracker
	Bus      events.Bus
	Log      *logger.Logger
}

func New(d Deps) *Service {
	return &Service{
		repo:     d.Repo,
		jobs:     d.Jobs,
		prompter: d.Prompter,
		members:  d.Members,
		tracker:  d.Tracker,
		bus:      d.Bus,
		log:      d.Log,
	}
}

// Submit stores meeting notes and starts extraction when an LLM is
// configured. Without one the meeting stays submitted.
func (s *Service) Submit(ctx context.Context, actorID uuid.UUID, req transport.SubmitMeetingRequest) (transport.MeetingResponse, error) {
	date, err := time.Parse(dateLayout, req.MeetingDate)
	if err != nil {
		return transport.MeetingResponse{}, apperr.Validation("meetingDate must be YYYY-MM-DD")
	}

	title, notes := sanitize.Line(req.Title), sanitize.Notes(req.RawNotes)
	if title == "" || notes == "" {
		return transport.MeetingResponse{}, apperr.Validation("title and rawNotes must contain text")
	}

	m, err := s.repo.Create(ctx, repository.CreateParams{
		ClientID:    req.ClientID,
		Title:       title,
		MeetingDate: date,
		RawNotes:    notes,
		CreatedBy:   optionalID(actorID),
	})
	if err != nil {
		return transport.MeetingResponse{}, err
	}
	s.log.Info("meeting submitted", "meetingId", m.ID, "clientId", m.ClientID)

	if s.prompter == nil {
		return toMeetingResponse(m, nil), nil
	}
	job, err := s.startExtraction(ctx, actorID, m)
	if err != nil {
		return transport.MeetingResponse{}, err
	}
	m.Status = repository.StatusExtracting
	resp := toMeetingResponse(m, nil)
	resp.JobID = &job.ID
	return resp, nil
}

// Extract re-runs extraction. Draft and discarded tasks are replaced;
// approved and pushed ones are kept.
func (s *Service) Extract(ctx context.Context, actorID, id uuid.UUID) (transport.MeetingResponse, error) {
	if s.prompter == nil {
		return transport.MeetingResponse{}, apperr.Unavailable(msgAIUnavailable)
	}
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.MeetingResponse{}, err
	}
	job, err := s.startExtraction(ctx, actorID, m)
	if err != nil {
		return transport.MeetingResponse{}, err
	}
	m.Status = repository.StatusExtracting
	resp := toMeetingResponse(m, nil)
	resp.JobID = &job.ID
	return resp, nil
}

func (s *Service) startExtraction(ctx context.Context, actorID uuid.UUID, m repository.Meeting) (jobs.Job, error) {
	from := []repository.Status{repository.StatusSubmitted, repository.StatusExtracted, repository.StatusFailed}
	ok, err := s.repo.Transition(ctx, m.ID, from, repository.StatusExtracting)
	if err != nil {
		return jobs.Job{}, err
	}
	if !ok {
		return jobs.Job{}, apperr.Conflict("tasks are already being extracted from this meeting")
	}

	job, err := s.jobs.Start(ctx, jobs.StartParams{
		Kind:      jobs.KindMeetingExtraction,
		SubjectID: m.ID,
		CreatedBy: actorID,
	})
	if err != nil {
		revert := []repository.Status{repository.StatusExtracting}
		if _, rbErr := s.repo.Transition(context.WithoutCancel(ctx), m.ID, revert, m.Status); rbErr != nil {
			s.log.DatabaseError("revert meeting status", rbErr)
		}
		return jobs.Job{}, err
	}
	return job, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.MeetingResponse, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.MeetingResponse{}, err
	}
	tasks, err := s.repo.ListTasks(ctx, id)
	if err != nil {
		return transport.MeetingResponse{}, err
	}
	return toMeetingResponse(m, tasks), nil
}

func (s *Service) List(ctx context.Context, req transport.ListMeetingsRequest) (transport.MeetingListResponse, error) {
	params := repository.ListParams{}
	if req.ClientID != "" {
		id := uuid.MustParse(req.ClientID)
		params.ClientID = &id
	}
	meetings, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.MeetingListResponse{}, err
	}
	resp := transport.MeetingListResponse{Items: make([]transport.MeetingResponse, 0, len(meetings))}
	for _, m := range meetings {
		r := toMeetingResponse(m, nil)
		r.RawNotes = ""
		resp.Items = append(resp.Items, r)
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.Status == repository.StatusExtracting {
		return apperr.Conflict("wait for extraction to finish before deleting the meeting")
	}
	return s.repo.Delete(ctx, id)
}

// UpdateTask edits, approves or discards a task that was not pushed yet.
func (s *Service) UpdateTask(ctx context.Context, meetingID, taskID uuid.UUID, req transport.UpdateTaskRequest) (transport.TaskResponse, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return transport.TaskResponse{}, err
	}
	if task.MeetingID != meetingID {
		return transport.TaskResponse{}, apperr.NotFound("task not found")
	}
	switch task.Status {
	case repository.TaskPushed:
		return transport.TaskResponse{}, apperr.Conflict("pushed tasks cannot be changed")
	case repository.TaskPushing:
		return transport.TaskResponse{}, apperr.Conflict("task is being pushed")
	}

	params := repository.UpdateTaskParams{
		ID:                taskID,
		Title:             sanitize.LinePtr(req.Title),
		Description:       sanitize.NotesPtr(req.Description),
		AssigneeProfileID: req.AssigneeProfileID,
		ClearAssignee:     req.ClearAssignee,
		ClearDueDate:      req.ClearDueDate,
	}
	if params.Title != nil && *params.Title == "" {
		return transport.TaskResponse{}, apperr.Validation("title must not be empty")
	}
	if req.DueDate != nil {
		due, err := time.Parse(dateLayout, *req.DueDate)
		if err != nil {
			return transport.TaskResponse{}, apperr.Validation("dueDate must be YYYY-MM-DD")
		}
		params.DueDate = &due
	}
	if req.Status != nil {
		st := repository.TaskStatus(*req.Status)
		params.Status = &st
	}

	updated, ok, err := s.repo.UpdateTask(ctx, params)
	if err != nil {
		return transport.TaskResponse{}, err
	}
	if !ok {
		return transport.TaskResponse{}, apperr.Conflict("task was pushed while editing")
	}
	return toTaskResponse(updated), nil
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
