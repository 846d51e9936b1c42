package validator

import "testing"

type createRequest struct {
	Name     string   `json:"name" validate:"required,notblank,max=20"`
	Keywords []string `json:"keywords" validate:"max=3,dive,notblank"`
}

func TestNotBlank(t *testing.T) {
	val := New()

	if err := val.Struct(createRequest{Name: "Acme", Keywords: []string{"a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := val.Struct(createRequest{Name: "   ", Keywords: []string{"ok", " "}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	fields := FieldErrors(err)
	if fields["createRequest.Name"] != "notblank" {
		t.Errorf("Name tag = %q", fields["createRequest.Name"])
	}
	if fields["createRequest.Keywords[1]"] != "notblank" {
		t.Errorf("Keywords[1] tag = %q (all: %v)", fields["createRequest.Keywords[1]"], fields)
	}
}
