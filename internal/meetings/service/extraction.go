package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"agency_os_backend/internal/events"
	"agency_os_backend/internal/jobs"
	"agency_os_backend/internal/meetings/repository"
	"agency_os_backend/platform/ai/llm"
	"agency_os_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	featureMeetingExtraction = "meeting_extraction"
	maxExtractedTasks        = 50
)

const extractionInstruction = `You turn meeting notes from a marketing agency into action items.
Only extract concrete tasks someone agreed to do. Ignore discussion, context and decisions that need no follow-up.
For each task return:
- title: imperative, at most 12 words
- description: one or two sentences with the details needed to do the task, or an empty string
- assigneeHint: the person responsible exactly as named in the notes (name, first name or email), or an empty string
- dueDate: YYYY-MM-DD when the notes give a deadline, or an empty string. Resolve relative dates such as "next Friday" against the meeting date.
Reply with JSON only, in this exact shape:
{"tasks": [{"title": "...", "description": "...", "assigneeHint": "...", "dueDate": "..."}]}`

// NewAgentPrompter builds the production extraction prompter.
func NewAgentPrompter(model *llm.Model) (*llm.Prompter, error) {
	return llm.NewPrompter(model, llm.PromptConfig{
		Name:        "meeting_task_extractor",
		Description: "Extracts action items from meeting notes",
		Instruction: extractionInstruction,
		JSON:        true,
		Temperature: 0.1,
	})
}

type extractedTask struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	AssigneeHint string `json:"assigneeHint"`
	DueDate      string `json:"dueDate"`
}

type extractionReply struct {
	Tasks []extractedTask `json:"tasks"`
}

type extractionResult struct {
	Tasks    int `json:"tasks"`
	Assigned int `json:"assigned"`
}

// RunExtractionJob is the jobs.HandlerFunc for meeting extraction.
func (s *Service) RunExtractionJob(ctx context.Context, job jobs.Job) (json.RawMessage, error) {
	if s.prompter == nil {
		return nil, apperr.Unavailable(msgAIUnavailable)
	}
	m, err := s.repo.GetByID(ctx, job.SubjectID)
	if err != nil {
		return nil, err
	}
	if m.Status != repository.StatusExtracting {
		return nil, fmt.Errorf("meeting is %s, expected extracting", m.Status)
	}

	input := fmt.Sprintf("Meeting: %s\nMeeting date: %s\n\nNotes:\n%s", m.Title, m.MeetingDate.Format(dateLayout), m.RawNotes)
	res, err := s.prompter.Prompt(ctx, input)
	s.publishUsage(ctx, job, res.Usage)
	if err != nil {
		return nil, err
	}
	var reply extractionReply
	if err := llm.DecodeJSON(res.Text, &reply); err != nil {
		return nil, err
	}

	var members []Member
	if s.members != nil {
		if members, err = s.members.ListMembers(ctx); err != nil {
			return nil, err
		}
	}
	drafts := toDrafts(reply.Tasks, members)

	stored, err := s.repo.ReplaceDrafts(ctx, m.ID, drafts)
	if err != nil {
		return nil, err
	}
	if !stored {
		return nil, apperr.Conflict("meeting left extracting before the job finished")
	}

	result := extractionResult{Tasks: len(drafts)}
	for _, d := range drafts {
		if d.AssigneeProfileID != nil {
			result.Assigned++
		}
	}
	s.log.Info("meeting tasks extracted", "meetingId", m.ID, "tasks", result.Tasks, "assigned", result.Assigned)
	s.bus.Publish(ctx, events.MeetingTasksExtracted{
		BaseEvent: events.NewActorEvent(actorOf(job)),
		MeetingID: m.ID,
		TaskCount: len(drafts),
	})
	return jobs.EncodeResult(result)
}

func toDrafts(tasks []extractedTask, members []Member) []repository.TaskDraft {
	drafts := make([]repository.TaskDraft, 0, len(tasks))
	for _, t := range tasks {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			continue
		}
		d := repository.TaskDraft{Title: title}
		if desc := strings.TrimSpace(t.Description); desc != "" {
			d.Description = &desc
		}
		if hint := strings.TrimSpace(t.AssigneeHint); hint != "" {
			d.AssigneeHint = &hint
			d.AssigneeProfileID = resolveAssignee(hint, members)
		}
		if due, err := time.Parse(dateLayout, strings.TrimSpace(t.DueDate)); err == nil {
			d.DueDate = &due
		}
		drafts = append(drafts, d)
		if len(drafts) == maxExtractedTasks {
			break
		}
	}
	return drafts
}

// MarkExtractionFailed flips a meeting stuck in extracting to failed.
func (s *Service) MarkExtractionFailed(ctx context.Context, meetingID uuid.UUID, reason string) error {
	ok, err := s.repo.Transition(ctx, meetingID, []repository.Status{repository.StatusExtracting}, repository.StatusFailed)
	if err != nil {
		return err
	}
	if ok {
		s.log.Warn("meeting extraction failed", "meetingId", meetingID, "reason", reason)
	}
	return nil
}

func (s *Service) publishUsage(ctx context.Context, job jobs.Job, u llm.Usage) {
	if u.PromptTokens == 0 && u.CompletionTokens == 0 {
		return
	}
	s.bus.Publish(ctx, events.AIUsageRecorded{
		BaseEvent:        events.NewActorEvent(actorOf(job)),
		Feature:          featureMeetingExtraction,
		Model:            u.Model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		Fallback:         u.Fallback,
		SubjectID:        job.SubjectID,
	})
}

func actorOf(job jobs.Job) uuid.UUID {
	if job.CreatedBy != nil {
		return *job.CreatedBy
	}
	return uuid.Nil
}
