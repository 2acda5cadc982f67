package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(StorageError, "insert failed", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to unwrap")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestIsAndKindOf(t *testing.T) {
	err := New(NotFound, "no such domain")

	if !Is(err, NotFound) {
		t.Fatalf("expected Is(NotFound) to match")
	}
	if Is(err, AlreadyExists) {
		t.Fatalf("expected Is(AlreadyExists) not to match")
	}
	if KindOf(err) != NotFound {
		t.Fatalf("expected KindOf to report NotFound")
	}
	if KindOf(errors.New("untyped")) != Internal {
		t.Fatalf("expected untyped errors to default to Internal")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		NotFound:        http.StatusNotFound,
		NameTaken:       http.StatusConflict,
		AuthRequired:    http.StatusUnauthorized,
		KeyringDenied:   http.StatusForbidden,
		WorkspaceLocked: http.StatusLocked,
		Internal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := New(kind, "x").HTTPStatus(); got != want {
			t.Errorf("%s: got status %d, want %d", kind, got, want)
		}
	}
}
