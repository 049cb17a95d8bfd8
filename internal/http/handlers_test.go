package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/example/pool-backoffice/internal/actions"
	"github.com/example/pool-backoffice/internal/application"
	"github.com/example/pool-backoffice/internal/http/mocks"
	"github.com/example/pool-backoffice/internal/lineitems"
	"github.com/example/pool-backoffice/internal/workflow"
)

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func withID(r *http.Request, id string) *http.Request {
	return r.WithContext(ContextWithResourceID(r.Context(), id))
}

func sampleEvent(start time.Time) application.EventDetails {
	return application.EventDetails{
		Event: application.Event{
			ID:         "evt-1",
			Title:      "Pump inspection",
			Type:       application.EventTypeConsultation,
			Status:     application.EventStatusScheduled,
			Start:      start,
			End:        start.Add(time.Hour),
			CustomerID: "customer-001",
			CreatedBy:  "admin-1",
			Version:    1,
			CreatedAt:  start,
			UpdatedAt:  start,
		},
		Customer: &application.CustomerSummary{ID: "customer-001", Name: "Dana Reyes"},
	}
}

func TestAuthHandlers(t *testing.T) {
	t.Parallel()

	t.Run("login issues session token via cookie and header", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		service := mocks.NewMockAuthService(ctrl)
		expires := time.Date(2024, 5, 21, 13, 0, 0, 0, time.UTC)

		service.EXPECT().
			Authenticate(gomock.Any(), application.AuthenticateParams{Email: "owner@example.com", Password: "secret", Fingerprint: "test-agent"}).
			Return(application.AuthenticateResult{
				Admin:   application.Admin{ID: "admin-1", Email: "owner@example.com", Role: application.RoleAdmin},
				Session: application.Session{Token: "tok-1", ExpiresAt: expires},
			}, nil)

		handler := NewAuthHandler(service, false, nil)
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":" Owner@Example.com ","password":"secret"}`))
		req.Header.Set("User-Agent", "test-agent")
		rec := httptest.NewRecorder()
		handler.Login(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "tok-1", rec.Header().Get("X-Session-Token"))
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookieName, cookies[0].Name)
		assert.Equal(t, "tok-1", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)

		body := decodeEnvelope(t, rec)
		assert.True(t, body.Success)
		var data loginResponse
		require.NoError(t, json.Unmarshal(body.Data, &data))
		assert.Equal(t, "tok-1", data.Token)
		assert.Equal(t, "2024-05-21T13:00:00Z", data.ExpiresAt)
		assert.Equal(t, "admin-1", data.Admin.ID)
	})

	t.Run("login hides which credential was wrong", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		service := mocks.NewMockAuthService(ctrl)
		service.EXPECT().Authenticate(gomock.Any(), gomock.Any()).Return(application.AuthenticateResult{}, application.ErrInvalidCredentials)

		rec := httptest.NewRecorder()
		NewAuthHandler(service, true, nil).Login(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`)))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decodeEnvelope(t, rec)
		assert.False(t, body.Success)
		assert.Equal(t, "UNAUTHORIZED", body.Code)
		assert.Equal(t, "invalid email or password", body.Error)
	})

	t.Run("login rejects unknown fields", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		service := mocks.NewMockAuthService(ctrl)

		rec := httptest.NewRecorder()
		NewAuthHandler(service, true, nil).Login(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.c","pass":"x"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, rec).Code)
	})

	t.Run("logout revokes the session", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		service := mocks.NewMockAuthService(ctrl)
		service.EXPECT().RevokeSession(gomock.Any(), "tok-1").Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		rec := httptest.NewRecorder()
		NewAuthHandler(service, true, nil).Logout(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})
}

func TestEventHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create converts wall-clock input to UTC", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		events := mocks.NewMockEventActions(ctrl)
		loc := newYork(t)
		start := time.Date(2024, 5, 21, 13, 0, 0, 0, time.UTC)

		events.EXPECT().Location().Return(loc).AnyTimes()
		events.EXPECT().CreateEvent(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, input application.EventInput) actions.Result[application.EventDetails] {
				assert.Equal(t, start, input.Start)
				assert.Equal(t, start.Add(time.Hour), input.End)
				assert.Equal(t, application.EventTypeConsultation, input.Type)
				return actions.OK(sampleEvent(start))
			})

		rec := httptest.NewRecorder()
		NewEventHandler(events, nil).Create(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(
			`{"title":"Pump inspection","event_type":"consultation","start":"2024-05-21T09:00","end":"2024-05-21T10:00","customer_id":"customer-001"}`)))

		require.Equal(t, http.StatusCreated, rec.Code)
		body := decodeEnvelope(t, rec)
		var dto eventDTO
		require.NoError(t, json.Unmarshal(body.Data, &dto))
		assert.Equal(t, "2024-05-21T13:00:00Z", dto.Start)
		assert.Equal(t, "2024-05-21T09:00", dto.StartLocal)
		require.NotNil(t, dto.Customer)
		assert.Equal(t, "Dana Reyes", dto.Customer.Name)
	})

	t.Run("create rejects malformed times with a field error", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		events := mocks.NewMockEventActions(ctrl)
		events.EXPECT().Location().Return(time.UTC).AnyTimes()

		rec := httptest.NewRecorder()
		NewEventHandler(events, nil).Create(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(
			`{"title":"x","event_type":"other","start":"tomorrow","end":"2024-05-21T10:00","customer_id":"c"}`)))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeEnvelope(t, rec)
		assert.Contains(t, body.Fields, "start")
	})

	t.Run("all-day dates are kept unshifted", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		events := mocks.NewMockEventActions(ctrl)
		events.EXPECT().Location().Return(newYork(t)).AnyTimes()

		day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		events.EXPECT().CreateEvent(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, input application.EventInput) actions.Result[application.EventDetails] {
				assert.True(t, input.AllDay)
				assert.Equal(t, day, input.Start)
				assert.Equal(t, day, input.End)
				details := sampleEvent(day)
				details.AllDay = true
				details.End = day
				return actions.OK(details)
			})

		rec := httptest.NewRecorder()
		NewEventHandler(events, nil).Create(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(
			`{"title":"Closed","event_type":"other","start":"2024-06-01","end":"2024-06-01","all_day":true,"customer_id":"customer-001"}`)))

		require.Equal(t, http.StatusCreated, rec.Code)
		var dto eventDTO
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &dto))
		assert.Equal(t, "2024-06-01", dto.Start)
		assert.Equal(t, "2024-06-01", dto.StartLocal)
	})

	t.Run("list resolves a week view around the date", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		events := mocks.NewMockEventActions(ctrl)
		loc := newYork(t)
		events.EXPECT().Location().Return(loc).AnyTimes()
		events.EXPECT().ListEvents(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, query actions.EventQuery) actions.Result[[]application.EventDetails] {
				assert.Equal(t, time.Date(2024, 5, 20, 4, 0, 0, 0, time.UTC), query.Range.Start)
				assert.Equal(t, time.Date(2024, 5, 27, 4, 0, 0, 0, time.UTC), query.Range.End)
				assert.Equal(t, "customer-001", query.CustomerID)
				assert.Equal(t, []application.EventStatus{application.EventStatusScheduled, application.EventStatusCompleted}, query.Statuses)
				return actions.OK([]application.EventDetails{})
			})

		rec := httptest.NewRecorder()
		NewEventHandler(events, nil).List(rec, httptest.NewRequest(http.MethodGet,
			"/events?view=week&date=2024-05-22&customer_id=customer-001&status=scheduled,completed", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())
	})

	t.Run("list requires bounds", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		events := mocks.NewMockEventActions(ctrl)
		events.EXPECT().Location().Return(time.UTC).AnyTimes()

		rec := httptest.NewRecorder()
		NewEventHandler(events, nil).List(rec, httptest.NewRequest(http.MethodGet, "/events?start=2024-05-20T00:00", nil))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeEnvelope(t, rec).Fields, "end")
	})

	t.Run("stale reschedule answers conflict", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		events := mocks.NewMockEventActions(ctrl)
		events.EXPECT().Location().Return(time.UTC).AnyTimes()
		events.EXPECT().
			RescheduleEvent(gomock.Any(), "evt-1", int64(1), time.Date(2024, 5, 22, 9, 0, 0, 0, time.UTC), time.Date(2024, 5, 22, 10, 0, 0, 0, time.UTC), false).
			Return(actions.FromError[application.EventDetails](application.ErrConflict))

		req := withID(httptest.NewRequest(http.MethodPost, "/events/evt-1/reschedule", strings.NewReader(
			`{"start":"2024-05-22T09:00:00Z","end":"2024-05-22T10:00:00Z","version":1}`)), "evt-1")
		rec := httptest.NewRecorder()
		NewEventHandler(events, nil).Reschedule(rec, req)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "CONFLICT", decodeEnvelope(t, rec).Code)
	})

	t.Run("cancel passes the caller version", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		events := mocks.NewMockEventActions(ctrl)
		start := time.Date(2024, 5, 22, 13, 0, 0, 0, time.UTC)
		canceled := sampleEvent(start)
		canceled.Status = application.EventStatusCanceled
		canceled.Version = 4

		events.EXPECT().Location().Return(time.UTC).AnyTimes()
		events.EXPECT().CancelEvent(gomock.Any(), "evt-1", int64(3)).Return(actions.OK(canceled))

		rec := httptest.NewRecorder()
		NewEventHandler(events, nil).Cancel(rec, withID(httptest.NewRequest(http.MethodPost, "/events/evt-1/cancel", strings.NewReader(`{"version":3}`)), "evt-1"))

		require.Equal(t, http.StatusOK, rec.Code)
		var dto eventDTO
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &dto))
		assert.Equal(t, "canceled", dto.Status)
		assert.Equal(t, int64(4), dto.Version)
	})

	t.Run("missing id is a bad request", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		events := mocks.NewMockEventActions(ctrl)

		rec := httptest.NewRecorder()
		NewEventHandler(events, nil).Get(rec, httptest.NewRequest(http.MethodGet, "/events/", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEstimateHandlers(t *testing.T) {
	t.Parallel()

	sample := func(status workflow.Status) actions.EstimateView {
		validUntil := time.Date(2024, 6, 19, 0, 0, 0, 0, time.UTC)
		return actions.EstimateView{
			Estimate: application.Estimate{
				ID:         "est-1",
				Number:     "EST-2024-0001",
				Status:     status,
				CustomerID: "customer-001",
				LineItems: []lineitems.Item{
					{ID: "li-1", Description: "Pump", Quantity: 1, UnitPriceCents: 123450, TotalCents: 123450},
				},
				SubtotalCents:  123450,
				TaxRate:        0.07,
				TaxAmountCents: 8642,
				TotalCents:     132092,
				ValidUntil:     &validUntil,
				Version:        1,
			},
			AllowedTransitions: workflow.AllowedNextStatuses(status),
		}
	}

	t.Run("create parses dollar strings into cents", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		estimates := mocks.NewMockEstimateActions(ctrl)
		estimates.EXPECT().CreateEstimate(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, input application.EstimateInput) actions.Result[actions.EstimateView] {
				require.Len(t, input.LineItems, 2)
				assert.Equal(t, int64(123450), input.LineItems[0].UnitPriceCents)
				assert.Equal(t, int64(2500), input.LineItems[1].UnitPriceCents)
				require.NotNil(t, input.ValidUntil)
				assert.Equal(t, time.Date(2024, 6, 19, 0, 0, 0, 0, time.UTC), *input.ValidUntil)
				return actions.OK(sample(workflow.StatusDraft))
			})

		rec := httptest.NewRecorder()
		NewEstimateHandler(estimates, nil).Create(rec, httptest.NewRequest(http.MethodPost, "/estimates", strings.NewReader(
			`{"customer_id":"customer-001","valid_until":"2024-06-19","line_items":[{"description":"Pump","quantity":1,"unit_price":"$1,234.50"},{"description":"Filter","quantity":2,"unit_price_cents":2500}]}`)))

		require.Equal(t, http.StatusCreated, rec.Code)
		var dto estimateDTO
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &dto))
		assert.Equal(t, "EST-2024-0001", dto.Number)
		assert.Equal(t, "$1,234.50", dto.Subtotal)
		assert.Equal(t, "$1,320.92", dto.Total)
		assert.Equal(t, "$1,234.50", dto.LineItems[0].UnitPrice)
		require.NotNil(t, dto.ValidUntil)
		assert.Equal(t, "2024-06-19", *dto.ValidUntil)
		assert.Equal(t, []string{"sent"}, dto.AllowedTransitions)
	})

	t.Run("create rejects a malformed price", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		estimates := mocks.NewMockEstimateActions(ctrl)

		rec := httptest.NewRecorder()
		NewEstimateHandler(estimates, nil).Create(rec, httptest.NewRequest(http.MethodPost, "/estimates", strings.NewReader(
			`{"customer_id":"c","line_items":[{"description":"Pump","quantity":1,"unit_price":"12.345"}]}`)))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeEnvelope(t, rec).Fields, "line_items[0].unit_price")
	})

	t.Run("create rejects a price beyond the cent range", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		estimates := mocks.NewMockEstimateActions(ctrl)

		rec := httptest.NewRecorder()
		NewEstimateHandler(estimates, nil).Create(rec, httptest.NewRequest(http.MethodPost, "/estimates", strings.NewReader(
			`{"customer_id":"c","line_items":[{"description":"Pump","quantity":1,"unit_price":"99999999999999999999"}]}`)))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeEnvelope(t, rec).Fields, "line_items[0].unit_price")
	})

	t.Run("line item edit converts the price and passes the op", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		estimates := mocks.NewMockEstimateActions(ctrl)
		estimates.EXPECT().
			EditLineItem(gomock.Any(), "est-1", int64(1), application.LineItemUpdate, "li-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _ int64, _ application.LineItemOp, _ string, patch lineitems.Patch) actions.Result[actions.EstimateView] {
				require.NotNil(t, patch.UnitPriceCents)
				assert.Equal(t, int64(4250), *patch.UnitPriceCents)
				require.NotNil(t, patch.Quantity)
				assert.Equal(t, 2.0, *patch.Quantity)
				assert.Nil(t, patch.Description)
				view := sample(workflow.StatusDraft)
				view.Version = 2
				return actions.OK(view)
			})

		rec := httptest.NewRecorder()
		NewEstimateHandler(estimates, nil).EditLineItem(rec, withID(httptest.NewRequest(http.MethodPost, "/estimates/est-1/line-items", strings.NewReader(
			`{"op":"Update","item_id":" li-1 ","quantity":2,"unit_price":"$42.50","version":1}`)), "est-1"))

		require.Equal(t, http.StatusOK, rec.Code)
		var dto estimateDTO
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &dto))
		assert.Equal(t, int64(2), dto.Version)
	})

	t.Run("line item edit rejects a malformed price", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		estimates := mocks.NewMockEstimateActions(ctrl)

		rec := httptest.NewRecorder()
		NewEstimateHandler(estimates, nil).EditLineItem(rec, withID(httptest.NewRequest(http.MethodPost, "/estimates/est-1/line-items", strings.NewReader(
			`{"op":"add","unit_price":"ten dollars","version":1}`)), "est-1"))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeEnvelope(t, rec).Fields, "unit_price")
	})

	t.Run("removing an unknown line answers 404", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		estimates := mocks.NewMockEstimateActions(ctrl)
		estimates.EXPECT().
			EditLineItem(gomock.Any(), "est-1", int64(3), application.LineItemRemove, "li-9", lineitems.Patch{}).
			Return(actions.FromError[actions.EstimateView](application.ErrNotFound))

		rec := httptest.NewRecorder()
		NewEstimateHandler(estimates, nil).EditLineItem(rec, withID(httptest.NewRequest(http.MethodPost, "/estimates/est-1/line-items", strings.NewReader(
			`{"op":"remove","item_id":"li-9","version":3}`)), "est-1"))

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Code)
	})

	t.Run("invalid transition answers 422", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		estimates := mocks.NewMockEstimateActions(ctrl)
		estimates.EXPECT().
			ChangeEstimateStatus(gomock.Any(), "est-1", int64(1), workflow.StatusConverted).
			Return(actions.FromError[actions.EstimateView](workflow.Transition(workflow.StatusDraft, workflow.StatusConverted)))

		rec := httptest.NewRecorder()
		NewEstimateHandler(estimates, nil).ChangeStatus(rec, withID(httptest.NewRequest(http.MethodPost, "/estimates/est-1/status", strings.NewReader(`{"status":"converted","version":1}`)), "est-1"))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "INVALID_TRANSITION", decodeEnvelope(t, rec).Code)
	})

	t.Run("unknown status is rejected before the action", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		estimates := mocks.NewMockEstimateActions(ctrl)

		rec := httptest.NewRecorder()
		NewEstimateHandler(estimates, nil).ChangeStatus(rec, withID(httptest.NewRequest(http.MethodPost, "/estimates/est-1/status", strings.NewReader(`{"status":"archived","version":1}`)), "est-1"))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeEnvelope(t, rec).Fields, "status")
	})

	t.Run("transitions lists the allowed targets", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		estimates := mocks.NewMockEstimateActions(ctrl)
		estimates.EXPECT().EstimateTransitions(gomock.Any(), "est-1").
			Return(actions.OK(workflow.AllowedNextStatuses(workflow.StatusSent)))

		rec := httptest.NewRecorder()
		NewEstimateHandler(estimates, nil).Transitions(rec, withID(httptest.NewRequest(http.MethodGet, "/estimates/est-1/transitions", nil), "est-1"))

		require.Equal(t, http.StatusOK, rec.Code)
		var statuses []string
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &statuses))
		assert.ElementsMatch(t, []string{"internal_final", "converted", "declined"}, statuses)
	})

	t.Run("internal failures hide the cause", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		estimates := mocks.NewMockEstimateActions(ctrl)
		estimates.EXPECT().DeleteEstimate(gomock.Any(), "est-1").
			Return(actions.FromError[actions.Deleted](errors.New("disk on fire")))

		rec := httptest.NewRecorder()
		NewEstimateHandler(estimates, nil).Delete(rec, withID(httptest.NewRequest(http.MethodDelete, "/estimates/est-1", nil), "est-1"))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeEnvelope(t, rec)
		assert.Equal(t, "INTERNAL_ERROR", body.Code)
		assert.NotContains(t, body.Error, "disk")
	})
}
