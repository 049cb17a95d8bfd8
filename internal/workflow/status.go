// Package workflow defines the estimate status state machine. The transition
// table here is the only place that decides which status changes are legal;
// the UI derives its action buttons from AllowedNextStatuses.
package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle state of an estimate.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSent          Status = "sent"
	StatusInternalFinal Status = "internal_final"
	StatusConverted     Status = "converted"
	StatusDeclined      Status = "declined"
)

// ErrInvalidTransition is matched by every InvalidTransitionError.
var ErrInvalidTransition = errors.New("workflow: invalid status transition")

// InvalidTransitionError reports a rejected status change.
type InvalidTransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *InvalidTransitionError) Error() string {
	if e == nil {
		return ErrInvalidTransition.Error()
	}
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("cannot change status from %s to %s: %s is final", e.From, e.To, e.From)
	}
	allowed := make([]string, 0, len(e.Allowed))
	for _, s := range e.Allowed {
		allowed = append(allowed, string(s))
	}
	return fmt.Sprintf("cannot change status from %s to %s (allowed: %s)", e.From, e.To, strings.Join(allowed, ", "))
}

// Is makes errors.Is(err, ErrInvalidTransition) hold.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

var transitions = map[Status][]Status{
	StatusDraft:         {StatusSent},
	StatusSent:          {StatusInternalFinal, StatusConverted, StatusDeclined},
	StatusInternalFinal: {StatusConverted, StatusDeclined},
	StatusConverted:     {},
	StatusDeclined:      {},
}

// All lists every status in workflow order.
func All() []Status {
	return []Status{StatusDraft, StatusSent, StatusInternalFinal, StatusConverted, StatusDeclined}
}

// ParseStatus validates a status name.
func ParseStatus(value string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := transitions[s]; !ok {
		return "", false
	}
	return s, true
}

// AllowedNextStatuses returns the statuses reachable in one step from
// current. Unknown and terminal statuses yield an empty slice.
func AllowedNextStatuses(current Status) []Status {
	next := transitions[current]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is an edge of the workflow.
func CanTransition(from, to Status) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s Status) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// Transition validates from -> to.
func Transition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return &InvalidTransitionError{From: from, To: to, Allowed: AllowedNextStatuses(from)}
}
