package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/pool-backoffice/internal/calendar"
)

const maxEventTitleLength = 200

// allDaySlack widens range queries so all-day events, stored as UTC midnight
// of their dates, are fetched whatever the business timezone offset. A local
// day spans up to 24h plus the widest zone offset (UTC-12 to UTC+14) away
// from its stored instant.
const allDaySlack = 48 * time.Hour

// EventRepository captures the persistence interactions needed by the event
// service. UpdateEvent writes only when the stored version equals
// expectedVersion and returns the event at its new version.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, event Event, expectedVersion int64) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, filter EventRepositoryFilter) ([]Event, error)
}

// EventService orchestrates validation, version checks and persistence for
// calendar events.
type EventService struct {
	events      EventRepository
	directory   CustomerDirectory
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	cache       *ViewCache
	logger      *slog.Logger
}

// NewEventService wires dependencies for event operations.
func NewEventService(events EventRepository, directory CustomerDirectory, idGenerator func() string, now func() time.Time, location *time.Location, cache *ViewCache) *EventService {
	return NewEventServiceWithLogger(events, directory, idGenerator, now, location, cache, nil)
}

// NewEventServiceWithLogger wires dependencies for event operations with a
// specific logger.
func NewEventServiceWithLogger(events EventRepository, directory CustomerDirectory, idGenerator func() string, now func() time.Time, location *time.Location, cache *ViewCache, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &EventService{
		events:      events,
		directory:   directory,
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		cache:       cache,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// Location returns the business timezone used for all-day evaluation.
func (s *EventService) Location() *time.Location {
	return s.location
}

// CreateEvent validates the input, checks its references and stores a new
// scheduled event at version 1.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (details EventDetails, err error) {
	if s == nil || s.events == nil {
		return EventDetails{}, fmt.Errorf("event service not configured")
	}
	logger := s.loggerWith(ctx, "CreateEvent", "admin_id", params.Principal.AdminID, "customer_id", params.Input.CustomerID)
	defer func() {
		logOutcome(ctx, logger.With("event_id", details.ID), err, "event creation failed", "event created")
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return EventDetails{}, err
	}

	input := normalizeEventInput(params.Input)
	if vErr := validateEventInput(input); vErr.HasErrors() {
		return EventDetails{}, vErr
	}
	if err = s.ensureReferences(ctx, input); err != nil {
		return EventDetails{}, err
	}

	now := s.now()
	event := Event{
		ID:          s.idGenerator(),
		Title:       input.Title,
		Start:       input.Start,
		End:         input.End,
		AllDay:      input.AllDay,
		Type:        input.Type,
		Status:      EventStatusScheduled,
		CustomerID:  input.CustomerID,
		PropertyID:  input.PropertyID,
		PoolID:      input.PoolID,
		LocationURL: input.LocationURL,
		Description: input.Description,
		CreatedBy:   params.Principal.AdminID,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.events.CreateEvent(ctx, event)
	if err != nil {
		return EventDetails{}, mapRepoError(err)
	}
	return s.resolveDetails(ctx, created)
}

// GetEvent returns the canonical read model of an event.
func (s *EventService) GetEvent(ctx context.Context, principal Principal, id string) (details EventDetails, err error) {
	if s == nil || s.events == nil {
		return EventDetails{}, fmt.Errorf("event service not configured")
	}
	logger := s.loggerWith(ctx, "GetEvent", "event_id", id)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, err, "event lookup failed", "")
		}
	}()

	if err = requireAdmin(principal); err != nil {
		return EventDetails{}, err
	}
	if strings.TrimSpace(id) == "" {
		return EventDetails{}, newValidationError("id", "is required")
	}

	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return EventDetails{}, mapRepoError(err)
	}
	return s.resolveDetails(ctx, event)
}

// UpdateEvent replaces every editable field of a scheduled event, guarded by
// the caller's version.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (details EventDetails, err error) {
	if s == nil || s.events == nil {
		return EventDetails{}, fmt.Errorf("event service not configured")
	}
	logger := s.loggerWith(ctx, "UpdateEvent", "event_id", params.EventID, "version", params.Version)
	defer func() {
		logOutcome(ctx, logger.With("new_version", details.Version), err, "event update failed", "event updated")
	}()

	input := normalizeEventInput(params.Input)
	return s.mutate(ctx, params.Principal, params.EventID, params.Version, "update", func(ctx context.Context, event *Event) error {
		if vErr := validateEventInput(input); vErr.HasErrors() {
			return vErr
		}
		if err := s.ensureReferences(ctx, input); err != nil {
			return err
		}
		event.Title = input.Title
		event.Type = input.Type
		event.Start = input.Start
		event.End = input.End
		event.AllDay = input.AllDay
		event.CustomerID = input.CustomerID
		event.PropertyID = input.PropertyID
		event.PoolID = input.PoolID
		event.LocationURL = input.LocationURL
		event.Description = input.Description
		return nil
	})
}

// RescheduleEvent moves a scheduled event, guarded by the caller's version.
func (s *EventService) RescheduleEvent(ctx context.Context, params RescheduleEventParams) (details EventDetails, err error) {
	if s == nil || s.events == nil {
		return EventDetails{}, fmt.Errorf("event service not configured")
	}
	logger := s.loggerWith(ctx, "RescheduleEvent", "event_id", params.EventID, "version", params.Version)
	defer func() {
		logOutcome(ctx, logger.With("new_version", details.Version), err, "event reschedule failed", "event rescheduled")
	}()

	start, end := normalizeEventTimes(params.Start, params.End, params.AllDay)
	return s.mutate(ctx, params.Principal, params.EventID, params.Version, "reschedule", func(_ context.Context, event *Event) error {
		vErr := &ValidationError{}
		validateEventTimes(start, end, vErr)
		if vErr.HasErrors() {
			return vErr
		}
		event.Start = start
		event.End = end
		event.AllDay = params.AllDay
		return nil
	})
}

// CancelEvent marks a scheduled event canceled.
func (s *EventService) CancelEvent(ctx context.Context, params EventTransitionParams) (EventDetails, error) {
	return s.transition(ctx, params, "cancel", EventStatusCanceled)
}

// CompleteEvent marks a scheduled event completed.
func (s *EventService) CompleteEvent(ctx context.Context, params EventTransitionParams) (EventDetails, error) {
	return s.transition(ctx, params, "complete", EventStatusCompleted)
}

func (s *EventService) transition(ctx context.Context, params EventTransitionParams, action string, target EventStatus) (details EventDetails, err error) {
	if s == nil || s.events == nil {
		return EventDetails{}, fmt.Errorf("event service not configured")
	}
	logger := s.loggerWith(ctx, "TransitionEvent", "event_id", params.EventID, "version", params.Version, "target", target)
	defer func() {
		logOutcome(ctx, logger.With("new_version", details.Version), err, "event transition failed", "event transitioned")
	}()

	return s.mutate(ctx, params.Principal, params.EventID, params.Version, action, func(_ context.Context, event *Event) error {
		event.Status = target
		return nil
	})
}

// mutate loads the event, rejects stale versions and non-scheduled events,
// applies change and performs the conditional write.
func (s *EventService) mutate(ctx context.Context, principal Principal, id string, version int64, action string, change func(context.Context, *Event) error) (EventDetails, error) {
	if err := requireAdmin(principal); err != nil {
		return EventDetails{}, err
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(id) == "" {
		vErr.add("id", "is required")
	}
	if version < 1 {
		vErr.add("version", "must be a positive integer")
	}
	if vErr.HasErrors() {
		return EventDetails{}, vErr
	}

	current, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return EventDetails{}, mapRepoError(err)
	}
	if current.Version != version {
		return EventDetails{}, fmt.Errorf("%w: event %s is at version %d, not %d", ErrConflict, id, current.Version, version)
	}
	if current.Status != EventStatusScheduled {
		return EventDetails{}, &EventNotEditableError{EventID: id, Status: current.Status, Action: action}
	}

	updated := current
	if err := change(ctx, &updated); err != nil {
		return EventDetails{}, err
	}
	updated.UpdatedAt = s.now()

	stored, err := s.events.UpdateEvent(ctx, updated, version)
	if err != nil {
		return EventDetails{}, mapRepoError(err)
	}
	return s.resolveDetails(ctx, stored)
}

// DeleteEvent removes an event without a version check.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.events == nil {
		return fmt.Errorf("event service not configured")
	}
	logger := s.loggerWith(ctx, "DeleteEvent", "event_id", id)
	defer func() { logOutcome(ctx, logger, err, "event deletion failed", "event deleted") }()

	if err = requireAdmin(principal); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return newValidationError("id", "is required")
	}
	if err = s.events.DeleteEvent(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// ListEventsInRange returns events whose interval intersects the half-open
// range, sorted by start then id. All-day events are evaluated as the local
// days they cover in the business timezone.
func (s *EventService) ListEventsInRange(ctx context.Context, params ListEventsParams) (events []EventDetails, err error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event service not configured")
	}
	logger := s.loggerWith(ctx, "ListEventsInRange",
		"start", params.Range.Start.UTC().Format(time.RFC3339),
		"end", params.Range.End.UTC().Format(time.RFC3339),
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, err, "event listing failed", "")
			return
		}
		logger.DebugContext(ctx, "events listed", "count", len(events))
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return nil, err
	}

	vErr := &ValidationError{}
	if params.Range.Start.IsZero() {
		vErr.add("start", "is required")
	}
	if params.Range.End.IsZero() {
		vErr.add("end", "is required")
	}
	if !params.Range.Start.IsZero() && params.Range.End.Before(params.Range.Start) {
		vErr.add("end", "must not be before start")
	}
	for _, status := range params.Statuses {
		if !status.Valid() {
			vErr.add("status", fmt.Sprintf("unknown status %q", status))
		}
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	cacheKey := buildEventListCacheKey(params)
	generation := s.cache.Generation()
	if cached, ok := s.cache.Get(ViewPathCalendar, cacheKey); ok {
		if list, ok := cached.([]EventDetails); ok {
			return slices.Clone(list), nil
		}
	}

	wide := params.Range.Widen(allDaySlack)
	candidates, err := s.events.ListEvents(ctx, EventRepositoryFilter{
		EndsAfter:    wide.Start,
		StartsBefore: wide.End,
		CustomerID:   strings.TrimSpace(params.CustomerID),
		Statuses:     params.Statuses,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	matched := make([]Event, 0, len(candidates))
	for _, event := range candidates {
		start, end := event.Start, event.End
		if event.AllDay {
			start, end = calendar.AllDayInterval(start, end, s.location)
		}
		if params.Range.Intersects(start, end) {
			matched = append(matched, event)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Start.Equal(matched[j].Start) {
			return matched[i].Start.Before(matched[j].Start)
		}
		return matched[i].ID < matched[j].ID
	})

	resolver := newDetailsResolver(s.directory)
	events = make([]EventDetails, 0, len(matched))
	for _, event := range matched {
		details, err := resolver.resolve(ctx, event)
		if err != nil {
			return nil, err
		}
		events = append(events, details)
	}

	s.cache.StoreIfCurrent(ViewPathCalendar, cacheKey, slices.Clone(events), generation)
	return events, nil
}

func (s *EventService) ensureReferences(ctx context.Context, input EventInput) error {
	if s.directory == nil {
		return nil
	}
	if err := ensureCustomerExists(ctx, s.directory, input.CustomerID); err != nil {
		return err
	}
	if input.PropertyID != nil {
		owner, ok, err := s.directory.CustomerIDForProperty(ctx, *input.PropertyID)
		if err != nil {
			return err
		}
		if !ok {
			return notFoundf("property %s", *input.PropertyID)
		}
		if owner != input.CustomerID {
			return newValidationError("property_id", "does not belong to the customer")
		}
	}
	return ensurePoolExists(ctx, s.directory, input.PoolID)
}

func (s *EventService) resolveDetails(ctx context.Context, event Event) (EventDetails, error) {
	return newDetailsResolver(s.directory).resolve(ctx, event)
}

// detailsResolver memoizes directory lookups while building read models.
type detailsResolver struct {
	directory  CustomerDirectory
	customers  map[string]*CustomerSummary
	properties map[string]*PropertySummary
	pools      map[string]*PoolSummary
}

func newDetailsResolver(directory CustomerDirectory) *detailsResolver {
	return &detailsResolver{
		directory:  directory,
		customers:  make(map[string]*CustomerSummary),
		properties: make(map[string]*PropertySummary),
		pools:      make(map[string]*PoolSummary),
	}
}

func (r *detailsResolver) resolve(ctx context.Context, event Event) (EventDetails, error) {
	details := EventDetails{Event: event}
	if r.directory == nil {
		return details, nil
	}

	customer, ok := r.customers[event.CustomerID]
	if !ok {
		var err error
		if customer, err = r.directory.LookupCustomer(ctx, event.CustomerID); err != nil {
			return EventDetails{}, err
		}
		r.customers[event.CustomerID] = customer
	}
	details.Customer = customer

	if event.PropertyID != nil {
		property, ok := r.properties[*event.PropertyID]
		if !ok {
			var err error
			if property, err = r.directory.LookupProperty(ctx, *event.PropertyID); err != nil {
				return EventDetails{}, err
			}
			r.properties[*event.PropertyID] = property
		}
		details.Property = property
	}

	if event.PoolID != nil {
		pool, ok := r.pools[*event.PoolID]
		if !ok {
			var err error
			if pool, err = r.directory.LookupPool(ctx, *event.PoolID); err != nil {
				return EventDetails{}, err
			}
			r.pools[*event.PoolID] = pool
		}
		details.Pool = pool
	}
	return details, nil
}

func normalizeEventInput(input EventInput) EventInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Type = EventType(strings.ToLower(strings.TrimSpace(string(input.Type))))
	input.CustomerID = strings.TrimSpace(input.CustomerID)
	input.PropertyID = normalizeOptionalString(input.PropertyID)
	input.PoolID = normalizeOptionalString(input.PoolID)
	input.LocationURL = normalizeOptionalString(input.LocationURL)
	input.Description = normalizeOptionalString(input.Description)
	input.Start, input.End = normalizeEventTimes(input.Start, input.End, input.AllDay)
	return input
}

// normalizeEventTimes stores timed events in UTC and all-day events as UTC
// midnight of their calendar dates.
func normalizeEventTimes(start, end time.Time, allDay bool) (time.Time, time.Time) {
	if start.IsZero() || end.IsZero() {
		return start, end
	}
	if allDay {
		return calendar.AllDayDate(start), calendar.AllDayDate(end)
	}
	return start.UTC(), end.UTC()
}

func validateEventInput(input EventInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Title == "" {
		vErr.add("title", "is required")
	} else if utf8.RuneCountInString(input.Title) > maxEventTitleLength {
		vErr.add("title", fmt.Sprintf("must be at most %d characters", maxEventTitleLength))
	}
	if input.Type == "" {
		vErr.add("event_type", "is required")
	} else if !input.Type.Valid() {
		vErr.add("event_type", "must be consultation, estimate_visit, follow_up or other")
	}
	if input.CustomerID == "" {
		vErr.add("customer_id", "is required")
	}
	validateEventTimes(input.Start, input.End, vErr)
	if input.LocationURL != nil {
		if parsed, err := url.Parse(*input.LocationURL); err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			vErr.add("location_url", "must be an absolute http or https URL")
		}
	}
	return vErr
}

func validateEventTimes(start, end time.Time, vErr *ValidationError) {
	if start.IsZero() {
		vErr.add("start", "is required")
	}
	if end.IsZero() {
		vErr.add("end", "is required")
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		vErr.add("end", "must not be before start")
	}
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
