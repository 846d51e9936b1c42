package domain

import "fmt"

// Resource is a part of a project that can be edited.
type Resource string

const (
	ResourceSKUs      Resource = "skus"
	ResourceKeywords  Resource = "keywords"
	ResourceQuestions Resource = "questions"
	ResourceTopics    Resource = "topics"
	ResourceCopy      Resource = "copy"
)

var editableIn = map[Resource]Status{
	ResourceSKUs:      StatusDraft,
	ResourceKeywords:  StatusDraft,
	ResourceQuestions: StatusDraft,
	ResourceTopics:    StatusStageAApproved,
	ResourceCopy:      StatusStageBApproved,
}

// CanEdit reports whether r may change while the project is in status.
func CanEdit(status Status, r Resource) bool {
	want, ok := editableIn[r]
	return ok && want == status
}

// EditableIn returns the only status in which r may change.
func EditableIn(r Resource) Status {
	return editableIn[r]
}

// EditBlockedReason returns a user-facing reason, or "" when editing is allowed.
func EditBlockedReason(status Status, r Resource) string {
	if CanEdit(status, r) {
		return ""
	}
	want, ok := editableIn[r]
	if !ok {
		return fmt.Sprintf("%s cannot be edited", r)
	}
	return fmt.Sprintf("%s can only be edited while the project is %s (current status: %s)", r, want, status)
}

// GenerationKind is an AI step gated by stage approval.
type GenerationKind string

const (
	GenerateTopics GenerationKind = "topics"
	GenerateCopy   GenerationKind = "copy"
)

var generationRequires = map[GenerationKind]Status{
	GenerateTopics: StatusStageAApproved,
	GenerateCopy:   StatusStageBApproved,
}

// GenerationRequires returns the status kind must run in.
func GenerationRequires(kind GenerationKind) Status {
	return generationRequires[kind]
}

// GenerationBlockedReason returns "" when kind may start in status.
func GenerationBlockedReason(status Status, kind GenerationKind) string {
	want, ok := generationRequires[kind]
	if !ok {
		return fmt.Sprintf("unknown generation kind %q", kind)
	}
	if status != want {
		return fmt.Sprintf("%s generation requires status %s (current status: %s)", kind, want, status)
	}
	return ""
}
