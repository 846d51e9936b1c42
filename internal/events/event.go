// Package events defines the domain events exchanged between modules.
// Infrastructure (Bus, Handler) lives in platform/events.
package events

import (
	"time"

	"agency_os_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewActorEvent  = events.NewActorEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Team / auth
// =============================================================================

// GhostProfileCreated is published when an admin pre-creates a team member.
type GhostProfileCreated struct {
	BaseEvent
	ProfileID   uuid.UUID `json:"profileId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	SendInvite  bool      `json:"sendInvite"`
}

func (e GhostProfileCreated) EventName() string { return "team.ghost_profile.created" }

// ProfileLinked is published when a signed-in identity is attached to a
// profile, either by claiming a ghost or by creating a fresh profile.
type ProfileLinked struct {
	BaseEvent
	ProfileID  uuid.UUID `json:"profileId"`
	AuthUserID uuid.UUID `json:"authUserId"`
	Email      string    `json:"email"`
	WasGhost   bool      `json:"wasGhost"`
}

func (e ProfileLinked) EventName() string { return "auth.profile.linked" }

// =============================================================================
// Keyword pools
// =============================================================================

// KeywordPoolCleaned is published after the cleaning pipeline ran on a pool.
type KeywordPoolCleaned struct {
	BaseEvent
	PoolID  uuid.UUID `json:"poolId"`
	Kept    int       `json:"kept"`
	Removed int       `json:"removed"`
}

func (e KeywordPoolCleaned) EventName() string { return "keywords.pool.cleaned" }

// KeywordPoolApproved is published when a pool's merged groups are frozen.
type KeywordPoolApproved struct {
	BaseEvent
	PoolID     uuid.UUID `json:"poolId"`
	GroupCount int       `json:"groupCount"`
}

func (e KeywordPoolApproved) EventName() string { return "keywords.pool.approved" }

// =============================================================================
// Projects
// =============================================================================

// ProjectStageChanged is published after every successful stage transition.
type ProjectStageChanged struct {
	BaseEvent
	ProjectID uuid.UUID `json:"projectId"`
	Action    string    `json:"action"`
	From      string    `json:"from"`
	To        string    `json:"to"`
}

func (e ProjectStageChanged) EventName() string { return "projects.stage.changed" }

// =============================================================================
// Jobs and AI usage
// =============================================================================

// JobFinished is published when a background job reaches a terminal status.
type JobFinished struct {
	BaseEvent
	JobID     uuid.UUID     `json:"jobId"`
	Kind      string        `json:"kind"`
	SubjectID uuid.UUID     `json:"subjectId"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

func (e JobFinished) EventName() string { return "jobs.job.finished" }

// AIUsageRecorded is published after every LLM round-trip.
type AIUsageRecorded struct {
	BaseEvent
	Feature          string    `json:"feature"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	Fallback         bool      `json:"fallback"`
	SubjectID        uuid.UUID `json:"subjectId"`
}

func (e AIUsageRecorded) EventName() string { return "ai.usage.recorded" }

// =============================================================================
// Meetings
// =============================================================================

// MeetingTasksExtracted is published after the extraction job stored drafts.
type MeetingTasksExtracted struct {
	BaseEvent
	MeetingID uuid.UUID `json:"meetingId"`
	TaskCount int       `json:"taskCount"`
}

func (e MeetingTasksExtracted) EventName() string { return "meetings.tasks.extracted" }

// MeetingTasksPushed is published after approved tasks were sent to the tracker.
type MeetingTasksPushed struct {
	BaseEvent
	MeetingID uuid.UUID `json:"meetingId"`
	Pushed    int       `json:"pushed"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
}

func (e MeetingTasksPushed) EventName() string { return "meetings.tasks.pushed" }
