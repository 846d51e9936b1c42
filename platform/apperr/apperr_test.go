package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{BadRequest("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusConflict},
		{Forbidden("x"), http.StatusForbidden},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Unavailable("x"), http.StatusServiceUnavailable},
		{Internal("x"), http.StatusInternalServerError},
		{New(KindUnknown, "x"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Errorf("kind %d: HTTPStatus() = %d, want %d", tc.err.Kind, got, tc.want)
		}
	}
}

func TestGetKindFollowsWrapChain(t *testing.T) {
	base := Conflict("project is archived")
	wrapped := fmt.Errorf("approve stage: %w", base)

	if !Is(wrapped, KindConflict) {
		t.Fatalf("expected wrapped error to keep KindConflict, got %d", GetKind(wrapped))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("plain errors should be KindUnknown")
	}
}

func TestErrorStringIncludesOp(t *testing.T) {
	err := NotFound("client not found").WithOp("clients.Get")
	if err.Error() != "clients.Get: client not found" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
