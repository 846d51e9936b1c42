// Package domain holds the project stage-approval rules. It has no
// dependencies on storage or transport and is exercised directly by tests.
package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Status is a project's position in the copy-generation workflow.
type Status string

const (
	StatusDraft          Status = "draft"
	StatusStageAApproved Status = "stage_a_approved"
	StatusStageBApproved Status = "stage_b_approved"
	StatusStageCApproved Status = "stage_c_approved"
	StatusArchived       Status = "archived"
)

// Action is a named stage transition.
type Action string

const (
	ActionApproveA   Action = "approve_a"
	ActionApproveB   Action = "approve_b"
	ActionApproveC   Action = "approve_c"
	ActionUnapproveA Action = "unapprove_a"
	ActionUnapproveB Action = "unapprove_b"
	ActionUnapproveC Action = "unapprove_c"
	ActionArchive    Action = "archive"
	ActionRestore    Action = "restore"
)

// Actions lists every action accepted by Transition.
var Actions = []Action{
	ActionApproveA, ActionApproveB, ActionApproveC,
	ActionUnapproveA, ActionUnapproveB, ActionUnapproveC,
	ActionArchive, ActionRestore,
}

type edge struct {
	from Status
	to   Status
}

// linear holds every transition with a fixed source and target. Each
// unapprove is the exact reverse of its approve.
var linear = map[Action]edge{
	ActionApproveA:   {from: StatusDraft, to: StatusStageAApproved},
	ActionApproveB:   {from: StatusStageAApproved, to: StatusStageBApproved},
	ActionApproveC:   {from: StatusStageBApproved, to: StatusStageCApproved},
	ActionUnapproveA: {from: StatusStageAApproved, to: StatusDraft},
	ActionUnapproveB: {from: StatusStageBApproved, to: StatusStageAApproved},
	ActionUnapproveC: {from: StatusStageCApproved, to: StatusStageBApproved},
}

// IsValidStatus reports whether s is a known status.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusStageAApproved, StatusStageBApproved, StatusStageCApproved, StatusArchived:
		return true
	}
	return false
}

// ParseAction validates a user-supplied action name.
func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Actions {
		if a == known {
			return a, true
		}
	}
	return "", false
}

// SKUReadiness summarises what one SKU has accumulated so far.
type SKUReadiness struct {
	SKUID          uuid.UUID
	SKUCode        string
	KeywordCount   int
	SelectedTopics int
	HasCopy        bool
}

// Snapshot is the state Transition decides on.
type Snapshot struct {
	Status         Status
	PreviousStatus Status
	SKUs           []SKUReadiness
}

// Outcome is a permitted transition.
type Outcome struct {
	From Status
	To   Status
	// PreviousStatus is what must be persisted alongside To: the status to
	// restore into after an archive, empty otherwise.
	PreviousStatus Status
}

// ErrInvalidTransition is wrapped by TransitionError.
var ErrInvalidTransition = errors.New("invalid stage transition")

// TransitionError reports an action that is not allowed from the current status.
type TransitionError struct {
	Status Status
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a project in status %s", e.Action, e.Status)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// GuardError reports an allowed transition whose preconditions are unmet.
type GuardError struct {
	Action   Action
	Reason   string
	SKUCodes []string
}

func (e *GuardError) Error() string {
	if len(e.SKUCodes) == 0 {
		return fmt.Sprintf("%s blocked: %s", e.Action, e.Reason)
	}
	return fmt.Sprintf("%s blocked: %s (%s)", e.Action, e.Reason, strings.Join(e.SKUCodes, ", "))
}

// Transition decides whether action may run against s.
func Transition(s Snapshot, action Action) (Outcome, error) {
	switch action {
	case ActionArchive:
		if s.Status == StatusArchived {
			return Outcome{}, &TransitionError{Status: s.Status, Action: action}
		}
		return Outcome{From: s.Status, To: StatusArchived, PreviousStatus: s.Status}, nil
	case ActionRestore:
		if s.Status != StatusArchived {
			return Outcome{}, &TransitionError{Status: s.Status, Action: action}
		}
		target := s.PreviousStatus
		if !IsValidStatus(target) || target == StatusArchived {
			target = StatusDraft
		}
		return Outcome{From: s.Status, To: target}, nil
	}

	e, ok := linear[action]
	if !ok || e.from != s.Status {
		return Outcome{}, &TransitionError{Status: s.Status, Action: action}
	}
	if err := checkGuard(s.SKUs, action); err != nil {
		return Outcome{}, err
	}
	return Outcome{From: e.from, To: e.to}, nil
}

func checkGuard(skus []SKUReadiness, action Action) error {
	var (
		reason string
		ready  func(SKUReadiness) bool
	)
	switch action {
	case ActionApproveA:
		if len(skus) == 0 {
			return &GuardError{Action: action, Reason: "project has no SKUs"}
		}
		reason = "every SKU needs at least one keyword"
		ready = func(s SKUReadiness) bool { return s.KeywordCount > 0 }
	case ActionApproveB:
		reason = "every SKU needs at least one selected topic"
		ready = func(s SKUReadiness) bool { return s.SelectedTopics > 0 }
	case ActionApproveC:
		reason = "every SKU needs generated copy"
		ready = func(s SKUReadiness) bool { return s.HasCopy }
	default:
		return nil
	}

	var missing []string
	for _, s := range skus {
		if !ready(s) {
			missing = append(missing, s.SKUCode)
		}
	}
	if len(missing) > 0 {
		return &GuardError{Action: action, Reason: reason, SKUCodes: missing}
	}
	return nil
}
