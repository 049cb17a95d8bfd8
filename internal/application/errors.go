package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/pool-backoffice/internal/persistence"
)

var (
	// ErrUnauthorized is returned when no authenticated principal is present.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the principal lacks the admin role.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when a caller's version is stale.
	ErrConflict = errors.New("application: version conflict")
	// ErrAlreadyExists is returned when a unique value is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when login details do not match an account.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned when a disabled admin attempts to sign in.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrSessionExpired is returned for sessions past their expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned for sessions that were signed out.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface. Fields are listed in sorted order so
// messages are stable.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = field + " " + v.FieldErrors[field]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from a field map into the receiver.
func (v *ValidationError) merge(problems map[string]string) {
	for field, msg := range problems {
		v.add(field, msg)
	}
}

func newValidationError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// EventNotEditableError reports that an event left the scheduled state and
// can no longer be moved or transitioned.
type EventNotEditableError struct {
	EventID string
	Status  EventStatus
	Action  string
}

// Error implements the error interface.
func (e *EventNotEditableError) Error() string {
	return fmt.Sprintf("cannot %s a %s event", e.Action, e.Status)
}

// EstimateNotEditableError reports that an estimate reached a final status and
// its content is frozen.
type EstimateNotEditableError struct {
	EstimateID string
	Status     string
}

// Error implements the error interface.
func (e *EstimateNotEditableError) Error() string {
	return fmt.Sprintf("cannot edit a %s estimate", e.Status)
}

// mapRepoError translates persistence sentinels into the errors callers of
// the services understand.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrVersionConflict):
		return ErrConflict
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return newValidationError("reference", "refers to a record that does not exist")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return newValidationError("record", "violates a storage constraint")
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}

// notFoundf wraps ErrNotFound with the missing resource.
func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}
