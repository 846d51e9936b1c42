package domain

import (
	"errors"
	"testing"
)

func readySKU(code string) SKUReadiness {
	return SKUReadiness{SKUCode: code, KeywordCount: 2, SelectedTopics: 1, HasCopy: true}
}

func TestTransitionTable(t *testing.T) {
	skus := []SKUReadiness{readySKU("A1"), readySKU("A2")}

	tests := []struct {
		name   string
		status Status
		prev   Status
		action Action
		want   Status
		ok     bool
	}{
		{"approve a", StatusDraft, "", ActionApproveA, StatusStageAApproved, true},
		{"approve b", StatusStageAApproved, "", ActionApproveB, StatusStageBApproved, true},
		{"approve c", StatusStageBApproved, "", ActionApproveC, StatusStageCApproved, true},
		{"unapprove a", StatusStageAApproved, "", ActionUnapproveA, StatusDraft, true},
		{"unapprove b", StatusStageBApproved, "", ActionUnapproveB, StatusStageAApproved, true},
		{"unapprove c", StatusStageCApproved, "", ActionUnapproveC, StatusStageBApproved, true},
		{"archive draft", StatusDraft, "", ActionArchive, StatusArchived, true},
		{"archive approved", StatusStageCApproved, "", ActionArchive, StatusArchived, true},
		{"restore", StatusArchived, StatusStageBApproved, ActionRestore, StatusStageBApproved, true},
		{"restore without previous", StatusArchived, "", ActionRestore, StatusDraft, true},

		{"skip a stage", StatusDraft, "", ActionApproveB, "", false},
		{"approve twice", StatusStageAApproved, "", ActionApproveA, "", false},
		{"unapprove wrong stage", StatusStageBApproved, "", ActionUnapproveA, "", false},
		{"archive archived", StatusArchived, StatusDraft, ActionArchive, "", false},
		{"restore active", StatusDraft, "", ActionRestore, "", false},
		{"approve archived", StatusArchived, StatusDraft, ActionApproveA, "", false},
		{"unknown action", StatusDraft, "", Action("publish"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Transition(Snapshot{Status: tt.status, PreviousStatus: tt.prev, SKUs: skus}, tt.action)
			if !tt.ok {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected invalid transition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.To != tt.want || out.From != tt.status {
				t.Fatalf("expected %s -> %s, got %s -> %s", tt.status, tt.want, out.From, out.To)
			}
		})
	}
}

func TestArchiveRemembersPreviousStatus(t *testing.T) {
	out, err := Transition(Snapshot{Status: StatusStageAApproved}, ActionArchive)
	if err != nil {
		t.Fatal(err)
	}
	if out.PreviousStatus != StatusStageAApproved {
		t.Fatalf("expected previous status to be kept, got %q", out.PreviousStatus)
	}

	restored, err := Transition(Snapshot{Status: out.To, PreviousStatus: out.PreviousStatus}, ActionRestore)
	if err != nil {
		t.Fatal(err)
	}
	if restored.To != StatusStageAApproved {
		t.Fatalf("expected restore to %s, got %s", StatusStageAApproved, restored.To)
	}
}

func TestApproveAndUnapproveAreInverse(t *testing.T) {
	pairs := map[Action]Action{
		ActionApproveA: ActionUnapproveA,
		ActionApproveB: ActionUnapproveB,
		ActionApproveC: ActionUnapproveC,
	}
	skus := []SKUReadiness{readySKU("A1")}
	for approve, unapprove := range pairs {
		from := linear[approve].from
		up, err := Transition(Snapshot{Status: from, SKUs: skus}, approve)
		if err != nil {
			t.Fatalf("%s: %v", approve, err)
		}
		down, err := Transition(Snapshot{Status: up.To, SKUs: skus}, unapprove)
		if err != nil {
			t.Fatalf("%s: %v", unapprove, err)
		}
		if down.To != from {
			t.Fatalf("%s then %s should return to %s, got %s", approve, unapprove, from, down.To)
		}
	}
}

func TestGuards(t *testing.T) {
	tests := []struct {
		name        string
		status      Status
		action      Action
		skus        []SKUReadiness
		wantMissing []string
	}{
		{
			name:   "approve a without skus",
			status: StatusDraft,
			action: ActionApproveA,
		},
		{
			name:        "approve a with keywordless sku",
			status:      StatusDraft,
			action:      ActionApproveA,
			skus:        []SKUReadiness{readySKU("A1"), {SKUCode: "A2"}},
			wantMissing: []string{"A2"},
		},
		{
			name:        "approve b without selected topics",
			status:      StatusStageAApproved,
			action:      ActionApproveB,
			skus:        []SKUReadiness{{SKUCode: "A1", KeywordCount: 1}, {SKUCode: "A2", KeywordCount: 1}},
			wantMissing: []string{"A1", "A2"},
		},
		{
			name:        "approve c without copy",
			status:      StatusStageBApproved,
			action:      ActionApproveC,
			skus:        []SKUReadiness{{SKUCode: "A1", KeywordCount: 1, SelectedTopics: 2}},
			wantMissing: []string{"A1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transition(Snapshot{Status: tt.status, SKUs: tt.skus}, tt.action)
			var guardErr *GuardError
			if !errors.As(err, &guardErr) {
				t.Fatalf("expected guard error, got %v", err)
			}
			if errors.Is(err, ErrInvalidTransition) {
				t.Fatal("guard failures must not look like invalid transitions")
			}
			if len(guardErr.SKUCodes) != len(tt.wantMissing) {
				t.Fatalf("expected missing %v, got %v", tt.wantMissing, guardErr.SKUCodes)
			}
			for i := range tt.wantMissing {
				if guardErr.SKUCodes[i] != tt.wantMissing[i] {
					t.Fatalf("expected missing %v, got %v", tt.wantMissing, guardErr.SKUCodes)
				}
			}
		})
	}
}

func TestUnapproveHasNoGuard(t *testing.T) {
	if _, err := Transition(Snapshot{Status: StatusStageCApproved}, ActionUnapproveC); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseAction(t *testing.T) {
	if a, ok := ParseAction(" Approve_A "); !ok || a != ActionApproveA {
		t.Fatalf("expected approve_a, got %q %v", a, ok)
	}
	if _, ok := ParseAction("delete"); ok {
		t.Fatal("expected unknown action to be rejected")
	}
}
