package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/pool-backoffice/internal/persistence"
	"github.com/example/pool-backoffice/internal/workflow"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"title": "is required", "end": "must not be before start"}}
	if got := withFields.Error(); got != "validation failed: end must not be before start; title is required" {
		t.Fatalf("expected sorted field messages, got %q", got)
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	if base.HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	base.add("first", "value")
	base.add("first", "ignored")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected first message to win, got %q", got)
	}

	base.merge(map[string]string{"second": "another"})
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}
	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestMapRepoError(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err      error
		expected error
	}{
		"nil":              {err: nil, expected: nil},
		"not found":        {err: fmt.Errorf("wrap: %w", persistence.ErrNotFound), expected: ErrNotFound},
		"version conflict": {err: persistence.ErrVersionConflict, expected: ErrConflict},
		"duplicate":        {err: persistence.ErrDuplicate, expected: ErrAlreadyExists},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := mapRepoError(tc.err); !errors.Is(got, tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}

	t.Run("constraint violations become validation errors", func(t *testing.T) {
		t.Parallel()
		for _, err := range []error{persistence.ErrConstraintViolation, persistence.ErrForeignKeyViolation} {
			var vErr *ValidationError
			if !errors.As(mapRepoError(err), &vErr) {
				t.Fatalf("expected ValidationError for %v", err)
			}
		}
	})

	t.Run("unknown errors pass through", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		if got := mapRepoError(boom); got != boom {
			t.Fatalf("expected passthrough, got %v", got)
		}
	})
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: ErrConflict, want: "conflict"},
		{err: fmt.Errorf("x: %w", ErrNotFound), want: "not_found"},
		{err: ErrForbidden, want: "forbidden"},
		{err: &ValidationError{}, want: "validation"},
		{err: &EventNotEditableError{}, want: "not_editable"},
		{err: workflow.Transition(workflow.StatusDraft, workflow.StatusConverted), want: "invalid_transition"},
		{err: errors.New("disk on fire"), want: "unexpected"},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestEventNotEditableError(t *testing.T) {
	t.Parallel()

	err := &EventNotEditableError{EventID: "e1", Status: EventStatusCompleted, Action: "reschedule"}
	if got := err.Error(); got != "cannot reschedule a completed event" {
		t.Fatalf("unexpected message %q", got)
	}
}
