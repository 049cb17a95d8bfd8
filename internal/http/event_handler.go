package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/pool-backoffice/internal/actions"
	"github.com/example/pool-backoffice/internal/application"
	"github.com/example/pool-backoffice/internal/calendar"
)

//go:generate mockgen -source=event_handler.go -destination=mocks/mock_event_actions.go -package=mocks

// EventActions is the calendar surface served over HTTP.
type EventActions interface {
	Location() *time.Location
	CreateEvent(ctx context.Context, input application.EventInput) actions.Result[application.EventDetails]
	GetEvent(ctx context.Context, id string) actions.Result[application.EventDetails]
	ListEvents(ctx context.Context, query actions.EventQuery) actions.Result[[]application.EventDetails]
	UpdateEvent(ctx context.Context, id string, version int64, input application.EventInput) actions.Result[application.EventDetails]
	RescheduleEvent(ctx context.Context, id string, version int64, start, end time.Time, allDay bool) actions.Result[application.EventDetails]
	CancelEvent(ctx context.Context, id string, version int64) actions.Result[application.EventDetails]
	CompleteEvent(ctx context.Context, id string, version int64) actions.Result[application.EventDetails]
	DeleteEvent(ctx context.Context, id string) actions.Result[actions.Deleted]
}

// EventHandler serves /events.
type EventHandler struct {
	actions   EventActions
	responder responder
	logger    *slog.Logger
}

// NewEventHandler builds the handler.
func NewEventHandler(actions EventActions, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{actions: actions, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

// List serves GET /events.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.actions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	loc, err := requestLocation(query.Get("tz"), h.actions.Location())
	if err != nil {
		h.responder.writeValidation(r.Context(), w, "tz", "is not a known timezone")
		return
	}

	rng, field, err := parseRange(query.Get("view"), query.Get("date"), query.Get("start"), query.Get("end"), loc)
	if err != nil {
		h.log(r.Context(), "List", "error_kind", "validation").WarnContext(r.Context(), "invalid calendar range", "error", err)
		h.responder.writeValidation(r.Context(), w, field, err.Error())
		return
	}

	var statuses []application.EventStatus
	for _, raw := range strings.Split(query.Get("status"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			statuses = append(statuses, application.EventStatus(raw))
		}
	}

	result := h.actions.ListEvents(r.Context(), actions.EventQuery{
		Range:      rng,
		CustomerID: strings.TrimSpace(query.Get("customer_id")),
		Statuses:   statuses,
	})
	writeResult(r.Context(), h.responder, w, http.StatusOK, actions.Map(result, func(events []application.EventDetails) []eventDTO {
		return toEventDTOs(events, loc)
	}))
}

// Create serves POST /events.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.actions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode event request", "error", err)
		h.responder.writeBadRequest(r.Context(), w, err)
		return
	}
	loc, input, field, err := req.toInput(h.actions.Location())
	if err != nil {
		h.responder.writeValidation(r.Context(), w, field, err.Error())
		return
	}

	result := h.actions.CreateEvent(r.Context(), input)
	if result.Success {
		h.log(r.Context(), "Create", "event_id", result.Data.ID).InfoContext(r.Context(), "event created")
	}
	h.writeEvent(r.Context(), w, http.StatusCreated, result, loc)
}

// Get serves GET /events/{id}.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}
	h.writeEvent(r.Context(), w, http.StatusOK, h.actions.GetEvent(r.Context(), id), h.actions.Location())
}

// Update serves PUT /events/{id}.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "event_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode event update", "error", err)
		h.responder.writeBadRequest(r.Context(), w, err)
		return
	}
	loc, input, field, err := req.toInput(h.actions.Location())
	if err != nil {
		h.responder.writeValidation(r.Context(), w, field, err.Error())
		return
	}
	h.writeEvent(r.Context(), w, http.StatusOK, h.actions.UpdateEvent(r.Context(), id, req.Version, input), loc)
}

// Reschedule serves POST /events/{id}/reschedule.
func (h *EventHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}

	var req rescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Reschedule", "event_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reschedule request", "error", err)
		h.responder.writeBadRequest(r.Context(), w, err)
		return
	}
	loc, err := requestLocation(req.Timezone, h.actions.Location())
	if err != nil {
		h.responder.writeValidation(r.Context(), w, "timezone", "is not a known timezone")
		return
	}
	start, err := parseEventTime(req.Start, req.AllDay, loc)
	if err != nil {
		h.responder.writeValidation(r.Context(), w, "start", err.Error())
		return
	}
	end, err := parseEventTime(req.End, req.AllDay, loc)
	if err != nil {
		h.responder.writeValidation(r.Context(), w, "end", err.Error())
		return
	}

	result := h.actions.RescheduleEvent(r.Context(), id, req.Version, start, end, req.AllDay)
	if !result.Success && result.Code == actions.CodeConflict {
		h.log(r.Context(), "Reschedule", "event_id", id, "version", req.Version).InfoContext(r.Context(), "stale reschedule rejected")
	}
	h.writeEvent(r.Context(), w, http.StatusOK, result, loc)
}

// Cancel serves POST /events/{id}/cancel.
func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Cancel", h.actions.CancelEvent)
}

// Complete serves POST /events/{id}/complete.
func (h *EventHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Complete", h.actions.CompleteEvent)
}

func (h *EventHandler) transition(w http.ResponseWriter, r *http.Request, operation string, apply func(context.Context, string, int64) actions.Result[application.EventDetails]) {
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}

	var req versionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), operation, "event_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode transition request", "error", err)
		h.responder.writeBadRequest(r.Context(), w, err)
		return
	}
	h.writeEvent(r.Context(), w, http.StatusOK, apply(r.Context(), id, req.Version), h.actions.Location())
}

// Delete serves DELETE /events/{id}.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}
	writeResult(r.Context(), h.responder, w, http.StatusOK, h.actions.DeleteEvent(r.Context(), id))
}

func (h *EventHandler) resourceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h == nil || h.actions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return "", false
	}
	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.log(r.Context(), "", "error_kind", "bad_request").WarnContext(r.Context(), "missing event id")
		h.responder.writeBadRequest(r.Context(), w, errMissingResourceID)
		return "", false
	}
	return id, true
}

func (h *EventHandler) writeEvent(ctx context.Context, w http.ResponseWriter, status int, result actions.Result[application.EventDetails], loc *time.Location) {
	writeResult(ctx, h.responder, w, status, actions.Map(result, func(details application.EventDetails) eventDTO {
		return toEventDTO(details, loc)
	}))
}

type eventRequest struct {
	Title       string  `json:"title"`
	EventType   string  `json:"event_type"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	AllDay      bool    `json:"all_day"`
	Timezone    string  `json:"timezone"`
	CustomerID  string  `json:"customer_id"`
	PropertyID  *string `json:"property_id"`
	PoolID      *string `json:"pool_id"`
	LocationURL *string `json:"location_url"`
	Description *string `json:"description"`
	Version     int64   `json:"version"`
}

// toInput resolves the request times. On failure it names the offending field.
func (r eventRequest) toInput(fallback *time.Location) (*time.Location, application.EventInput, string, error) {
	loc, err := requestLocation(r.Timezone, fallback)
	if err != nil {
		return nil, application.EventInput{}, "timezone", fmt.Errorf("is not a known timezone")
	}
	start, err := parseEventTime(r.Start, r.AllDay, loc)
	if err != nil {
		return nil, application.EventInput{}, "start", err
	}
	end, err := parseEventTime(r.End, r.AllDay, loc)
	if err != nil {
		return nil, application.EventInput{}, "end", err
	}
	return loc, application.EventInput{
		Title:       r.Title,
		Type:        application.EventType(strings.TrimSpace(r.EventType)),
		Start:       start,
		End:         end,
		AllDay:      r.AllDay,
		CustomerID:  r.CustomerID,
		PropertyID:  r.PropertyID,
		PoolID:      r.PoolID,
		LocationURL: r.LocationURL,
		Description: r.Description,
	}, "", nil
}

type rescheduleRequest struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	AllDay   bool   `json:"all_day"`
	Timezone string `json:"timezone"`
	Version  int64  `json:"version"`
}

type versionRequest struct {
	Version int64 `json:"version"`
}

type eventDTO struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	EventType   string       `json:"event_type"`
	Status      string       `json:"status"`
	Start       string       `json:"start"`
	End         string       `json:"end"`
	StartLocal  string       `json:"start_local"`
	EndLocal    string       `json:"end_local"`
	AllDay      bool         `json:"all_day"`
	CustomerID  string       `json:"customer_id"`
	PropertyID  *string      `json:"property_id,omitempty"`
	PoolID      *string      `json:"pool_id,omitempty"`
	LocationURL *string      `json:"location_url,omitempty"`
	Description *string      `json:"description,omitempty"`
	CreatedBy   string       `json:"created_by"`
	Version     int64        `json:"version"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
	Customer    *customerDTO `json:"customer,omitempty"`
	Property    *propertyDTO `json:"property,omitempty"`
	Pool        *poolDTO     `json:"pool,omitempty"`
}

type customerDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type propertyDTO struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

type poolDTO struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// toEventDTO renders timed events as UTC instants plus wall-clock values in
// loc. All-day events render their dates unshifted.
func toEventDTO(details application.EventDetails, loc *time.Location) eventDTO {
	dto := eventDTO{
		ID:          details.ID,
		Title:       details.Title,
		EventType:   string(details.Type),
		Status:      string(details.Status),
		AllDay:      details.AllDay,
		CustomerID:  details.CustomerID,
		PropertyID:  details.PropertyID,
		PoolID:      details.PoolID,
		LocationURL: details.LocationURL,
		Description: details.Description,
		CreatedBy:   details.CreatedBy,
		Version:     details.Version,
		CreatedAt:   details.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   details.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if details.AllDay {
		dto.Start = calendar.AllDayDate(details.Start).Format(calendar.DateLayout)
		dto.End = calendar.AllDayDate(details.End).Format(calendar.DateLayout)
		dto.StartLocal, dto.EndLocal = dto.Start, dto.End
	} else {
		dto.Start = details.Start.UTC().Format(time.RFC3339)
		dto.End = details.End.UTC().Format(time.RFC3339)
		dto.StartLocal, _ = calendar.UTCToLocalString(dto.Start, loc)
		dto.EndLocal, _ = calendar.UTCToLocalString(dto.End, loc)
	}
	if c := details.Customer; c != nil {
		dto.Customer = &customerDTO{ID: c.ID, Name: c.Name, Phone: c.Phone, Email: c.Email}
	}
	if p := details.Property; p != nil {
		dto.Property = &propertyDTO{ID: p.ID, Address: p.Address}
	}
	if p := details.Pool; p != nil {
		dto.Pool = &poolDTO{ID: p.ID, Label: p.Label}
	}
	return dto
}

func toEventDTOs(events []application.EventDetails, loc *time.Location) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, details := range events {
		out = append(out, toEventDTO(details, loc))
	}
	return out
}

func requestLocation(name string, fallback *time.Location) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}
	return calendar.LoadLocation(name)
}

// parseEventTime accepts RFC 3339 instants or wall-clock values in loc. For
// all-day events only the calendar date is kept.
func parseEventTime(value string, allDay bool, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if allDay {
		if date, err := time.Parse(calendar.DateLayout, value); err == nil {
			return date, nil
		}
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		if allDay {
			return calendar.AllDayDate(ts), nil
		}
		return ts.UTC(), nil
	}
	if allDay {
		ts, err := calendar.ParseLocal(value, loc)
		if err != nil {
			return time.Time{}, errEventTimeFormat
		}
		return calendar.AllDayDate(ts), nil
	}
	persisted, err := calendar.LocalToUTCString(value, loc)
	if err != nil {
		return time.Time{}, errEventTimeFormat
	}
	return time.Parse(time.RFC3339, persisted)
}

var errEventTimeFormat = errors.New("must be RFC 3339 or YYYY-MM-DDTHH:mm")

// parseRange reads either a view preset around date or explicit local bounds.
func parseRange(view, date, start, end string, loc *time.Location) (calendar.Range, string, error) {
	if strings.TrimSpace(view) != "" {
		preset, ok := calendar.ParseView(view)
		if !ok {
			return calendar.Range{}, "view", fmt.Errorf("must be day, week or month")
		}
		reference := time.Now()
		if strings.TrimSpace(date) != "" {
			parsed, err := calendar.ParseLocal(date, loc)
			if err != nil {
				return calendar.Range{}, "date", fmt.Errorf("must be YYYY-MM-DD")
			}
			reference = parsed
		}
		return calendar.ViewBounds(preset, reference, loc), "", nil
	}
	if strings.TrimSpace(start) == "" {
		return calendar.Range{}, "start", fmt.Errorf("is required")
	}
	if strings.TrimSpace(end) == "" {
		return calendar.Range{}, "end", fmt.Errorf("is required")
	}
	rng, err := calendar.RangeUTC(start, end, loc)
	if err != nil {
		return calendar.Range{}, "end", fmt.Errorf("must be a wall-clock value not before start")
	}
	return rng, "", nil
}
