package actions

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/example/pool-backoffice/internal/application"
	"github.com/example/pool-backoffice/internal/calendar"
	"github.com/example/pool-backoffice/internal/logging"
	"github.com/example/pool-backoffice/internal/workflow"
)

// EventService is the calendar surface the actions depend on.
type EventService interface {
	Location() *time.Location
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.EventDetails, error)
	GetEvent(ctx context.Context, principal application.Principal, id string) (application.EventDetails, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.EventDetails, error)
	RescheduleEvent(ctx context.Context, params application.RescheduleEventParams) (application.EventDetails, error)
	CancelEvent(ctx context.Context, params application.EventTransitionParams) (application.EventDetails, error)
	CompleteEvent(ctx context.Context, params application.EventTransitionParams) (application.EventDetails, error)
	DeleteEvent(ctx context.Context, principal application.Principal, id string) error
	ListEventsInRange(ctx context.Context, params application.ListEventsParams) ([]application.EventDetails, error)
}

// EstimateService is the estimate surface the actions depend on.
type EstimateService interface {
	CreateEstimate(ctx context.Context, params application.CreateEstimateParams) (application.Estimate, error)
	GetEstimate(ctx context.Context, principal application.Principal, id string) (application.Estimate, error)
	ListEstimates(ctx context.Context, params application.ListEstimatesParams) ([]application.Estimate, error)
	UpdateEstimate(ctx context.Context, params application.UpdateEstimateParams) (application.Estimate, error)
	EditLineItem(ctx context.Context, params application.EditLineItemParams) (application.Estimate, error)
	ChangeEstimateStatus(ctx context.Context, params application.ChangeEstimateStatusParams) (application.Estimate, error)
	DuplicateEstimate(ctx context.Context, principal application.Principal, id string) (application.Estimate, error)
	DeleteEstimate(ctx context.Context, principal application.Principal, id string) error
	AvailableTransitions(ctx context.Context, principal application.Principal, id string) ([]workflow.Status, error)
	IsExpired(estimate application.Estimate) bool
}

// Invalidator marks cached views stale by logical path.
type Invalidator interface {
	Invalidate(paths ...string)
}

// Actions runs the back-office operations and reports them as Results.
type Actions struct {
	events      EventService
	estimates   EstimateService
	invalidator Invalidator
	logger      *slog.Logger
}

// New wires the actions. A nil invalidator disables view invalidation.
func New(events EventService, estimates EstimateService, invalidator Invalidator, logger *slog.Logger) *Actions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Actions{events: events, estimates: estimates, invalidator: invalidator, logger: logger}
}

// EventQuery narrows a calendar listing.
type EventQuery struct {
	Range      calendar.Range
	CustomerID string
	Statuses   []application.EventStatus
}

// EstimateView is an estimate with the state the UI derives its controls from.
type EstimateView struct {
	application.Estimate
	Expired            bool
	AllowedTransitions []workflow.Status
}

// Deleted acknowledges a delete.
type Deleted struct {
	ID string `json:"id"`
}

// Location returns the business timezone used for calendar views.
func (a *Actions) Location() *time.Location {
	if a == nil || a.events == nil {
		return time.UTC
	}
	return a.events.Location()
}

func (a *Actions) log(ctx context.Context, operation string) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = a.logger
	}
	return logger.With("action", operation)
}

// principal returns the caller or an UNAUTHORIZED Result.
func principal[T any](ctx context.Context) (application.Principal, *Result[T]) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		result := Fail[T](CodeUnauthorized, "sign in to continue")
		return application.Principal{}, &result
	}
	return p, nil
}

// failure converts err and logs internal errors with their detail.
func failure[T any](ctx context.Context, logger *slog.Logger, err error) Result[T] {
	result := FromError[T](err)
	if result.Code == CodeInternal {
		logger.ErrorContext(ctx, "action failed", "error", err, "error_kind", application.ErrorKind(err))
	}
	return result
}

// recoverInto turns a panic into an INTERNAL_ERROR Result. It must be
// deferred directly.
func recoverInto[T any](ctx context.Context, logger *slog.Logger, result *Result[T]) {
	if rec := recover(); rec != nil {
		logger.ErrorContext(ctx, "action panicked", "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
		*result = Fail[T](CodeInternal, internalErrorMessage)
	}
}

func (a *Actions) invalidate(paths ...string) {
	if a.invalidator == nil || len(paths) == 0 {
		return
	}
	a.invalidator.Invalidate(paths...)
}

// eventPaths lists the views showing event.
func eventPaths(event application.Event) []string {
	paths := []string{application.ViewPathCalendar}
	if event.CustomerID != "" {
		paths = append(paths, application.CustomerViewPath(event.CustomerID))
	}
	return paths
}

// estimatePaths lists the views showing estimate.
func estimatePaths(estimate application.Estimate) []string {
	paths := []string{application.ViewPathEstimates, application.EstimateViewPath(estimate.ID)}
	if estimate.CustomerID != "" {
		paths = append(paths, application.CustomerViewPath(estimate.CustomerID))
	}
	return paths
}

func (a *Actions) estimateView(estimate application.Estimate) EstimateView {
	return EstimateView{
		Estimate:           estimate,
		Expired:            a.estimates.IsExpired(estimate),
		AllowedTransitions: workflow.AllowedNextStatuses(estimate.Status),
	}
}
