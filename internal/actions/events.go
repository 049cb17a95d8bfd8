package actions

import (
	"context"
	"time"

	"github.com/example/pool-backoffice/internal/application"
)

// CreateEvent schedules a new appointment.
func (a *Actions) CreateEvent(ctx context.Context, input application.EventInput) (result Result[application.EventDetails]) {
	logger := a.log(ctx, "CreateEvent")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[application.EventDetails](ctx)
	if denied != nil {
		return *denied
	}
	details, err := a.events.CreateEvent(ctx, application.CreateEventParams{Principal: p, Input: input})
	if err != nil {
		return failure[application.EventDetails](ctx, logger, err)
	}
	a.invalidate(eventPaths(details.Event)...)
	return OK(details)
}

// GetEvent returns one event with its directory details.
func (a *Actions) GetEvent(ctx context.Context, id string) (result Result[application.EventDetails]) {
	logger := a.log(ctx, "GetEvent")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[application.EventDetails](ctx)
	if denied != nil {
		return *denied
	}
	details, err := a.events.GetEvent(ctx, p, id)
	if err != nil {
		return failure[application.EventDetails](ctx, logger, err)
	}
	return OK(details)
}

// ListEvents returns the events intersecting the query range.
func (a *Actions) ListEvents(ctx context.Context, query EventQuery) (result Result[[]application.EventDetails]) {
	logger := a.log(ctx, "ListEvents")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[[]application.EventDetails](ctx)
	if denied != nil {
		return *denied
	}
	events, err := a.events.ListEventsInRange(ctx, application.ListEventsParams{
		Principal:  p,
		Range:      query.Range,
		CustomerID: query.CustomerID,
		Statuses:   query.Statuses,
	})
	if err != nil {
		return failure[[]application.EventDetails](ctx, logger, err)
	}
	if events == nil {
		events = []application.EventDetails{}
	}
	return OK(events)
}

// UpdateEvent replaces the editable fields of an event at version.
func (a *Actions) UpdateEvent(ctx context.Context, id string, version int64, input application.EventInput) (result Result[application.EventDetails]) {
	logger := a.log(ctx, "UpdateEvent")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[application.EventDetails](ctx)
	if denied != nil {
		return *denied
	}
	details, err := a.events.UpdateEvent(ctx, application.UpdateEventParams{
		Principal: p,
		EventID:   id,
		Version:   version,
		Input:     input,
	})
	if err != nil {
		return failure[application.EventDetails](ctx, logger, err)
	}
	// The customer may have changed, so every customer view goes stale.
	a.invalidate(application.ViewPathCalendar, application.ViewPathCustomers)
	return OK(details)
}

// RescheduleEvent moves an event at version.
func (a *Actions) RescheduleEvent(ctx context.Context, id string, version int64, start, end time.Time, allDay bool) (result Result[application.EventDetails]) {
	logger := a.log(ctx, "RescheduleEvent")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[application.EventDetails](ctx)
	if denied != nil {
		return *denied
	}
	details, err := a.events.RescheduleEvent(ctx, application.RescheduleEventParams{
		Principal: p,
		EventID:   id,
		Version:   version,
		Start:     start,
		End:       end,
		AllDay:    allDay,
	})
	if err != nil {
		return failure[application.EventDetails](ctx, logger, err)
	}
	a.invalidate(eventPaths(details.Event)...)
	return OK(details)
}

// CancelEvent cancels a scheduled event at version.
func (a *Actions) CancelEvent(ctx context.Context, id string, version int64) (result Result[application.EventDetails]) {
	logger := a.log(ctx, "CancelEvent")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[application.EventDetails](ctx)
	if denied != nil {
		return *denied
	}
	details, err := a.events.CancelEvent(ctx, application.EventTransitionParams{Principal: p, EventID: id, Version: version})
	if err != nil {
		return failure[application.EventDetails](ctx, logger, err)
	}
	a.invalidate(eventPaths(details.Event)...)
	return OK(details)
}

// CompleteEvent marks a scheduled event completed at version.
func (a *Actions) CompleteEvent(ctx context.Context, id string, version int64) (result Result[application.EventDetails]) {
	logger := a.log(ctx, "CompleteEvent")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[application.EventDetails](ctx)
	if denied != nil {
		return *denied
	}
	details, err := a.events.CompleteEvent(ctx, application.EventTransitionParams{Principal: p, EventID: id, Version: version})
	if err != nil {
		return failure[application.EventDetails](ctx, logger, err)
	}
	a.invalidate(eventPaths(details.Event)...)
	return OK(details)
}

// DeleteEvent removes an event regardless of version.
func (a *Actions) DeleteEvent(ctx context.Context, id string) (result Result[Deleted]) {
	logger := a.log(ctx, "DeleteEvent")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[Deleted](ctx)
	if denied != nil {
		return *denied
	}
	if err := a.events.DeleteEvent(ctx, p, id); err != nil {
		return failure[Deleted](ctx, logger, err)
	}
	a.invalidate(application.ViewPathCalendar, application.ViewPathCustomers)
	return OK(Deleted{ID: id})
}
