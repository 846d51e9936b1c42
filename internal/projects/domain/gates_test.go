package domain

import "testing"

func TestEditGates(t *testing.T) {
	statuses := []Status{StatusDraft, StatusStageAApproved, StatusStageBApproved, StatusStageCApproved, StatusArchived}
	allowed := map[Resource]Status{
		ResourceSKUs:      StatusDraft,
		ResourceKeywords:  StatusDraft,
		ResourceQuestions: StatusDraft,
		ResourceTopics:    StatusStageAApproved,
		ResourceCopy:      StatusStageBApproved,
	}

	for resource, only := range allowed {
		if got := EditableIn(resource); got != only {
			t.Errorf("EditableIn(%s) = %s, want %s", resource, got, only)
		}
		for _, status := range statuses {
			want := status == only
			if got := CanEdit(status, resource); got != want {
				t.Errorf("CanEdit(%s, %s) = %v, want %v", status, resource, got, want)
			}
			if reason := EditBlockedReason(status, resource); (reason == "") != want {
				t.Errorf("EditBlockedReason(%s, %s) = %q", status, resource, reason)
			}
		}
	}
}

func TestGenerationGates(t *testing.T) {
	tests := []struct {
		status Status
		kind   GenerationKind
		ok     bool
	}{
		{StatusDraft, GenerateTopics, false},
		{StatusStageAApproved, GenerateTopics, true},
		{StatusStageBApproved, GenerateTopics, false},
		{StatusStageAApproved, GenerateCopy, false},
		{StatusStageBApproved, GenerateCopy, true},
		{StatusStageCApproved, GenerateCopy, false},
		{StatusArchived, GenerateCopy, false},
		{StatusStageAApproved, GenerationKind("images"), false},
	}
	for _, tt := range tests {
		reason := GenerationBlockedReason(tt.status, tt.kind)
		if (reason == "") != tt.ok {
			t.Errorf("GenerationBlockedReason(%s, %s) = %q, want ok=%v", tt.status, tt.kind, reason, tt.ok)
		}
		if tt.ok && GenerationRequires(tt.kind) != tt.status {
			t.Errorf("GenerationRequires(%s) = %s, want %s", tt.kind, GenerationRequires(tt.kind), tt.status)
		}
	}
}
