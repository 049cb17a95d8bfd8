package http

import (
	"context"
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
)

func TestSplitResourcePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path   string
		id     string
		action string
		ok     bool
	}{
		{path: "/events/evt-1", id: "evt-1", ok: true},
		{path: "/events/evt-1/", id: "evt-1", ok: true},
		{path: "/events/evt-1/cancel", id: "evt-1", action: "cancel", ok: true},
		{path: "/events/", ok: false},
		{path: "/events/evt-1/cancel/now", ok: false},
		{path: "/events//cancel", ok: false},
	}
	for _, tc := range tests {
		id, action, ok := splitResourcePath(tc.path, "/events/")
		assert.Equal(t, tc.ok, ok, tc.path)
		assert.Equal(t, tc.id, id, tc.path)
		assert.Equal(t, tc.action, action, tc.path)
	}
}

func TestRouter(t *testing.T) {
	t.Parallel()

	t.Run("protected routes require a session", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockPrincipalResolver(ctrl)
		events := mocks.NewMockEventActions(ctrl)

		router := NewRouter(RouterConfig{
			Events:         NewEventHandler(events, nil),
			RequireSession: RequireSession(resolver, nil),
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?view=day", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("dispatches event actions with the path id", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockPrincipalResolver(ctrl)
		events := mocks.NewMockEventActions(ctrl)
		start := time.Date(2024, 5, 22, 13, 0, 0, 0, time.UTC)

		resolver.EXPECT().ResolvePrincipal(gomock.Any(), "tok-1").Return(application.Principal{AdminID: "admin-1"}, nil)
		events.EXPECT().Location().Return(time.UTC).AnyTimes()
		events.EXPECT().CompleteEvent(gomock.Any(), "evt-9", int64(2)).Return(actions.OK(sampleEvent(start)))

		router := NewRouter(RouterConfig{
			Events:         NewEventHandler(events, nil),
			RequireSession: RequireSession(resolver, nil),
			Middleware:     []func(http.Handler) http.Handler{RequestLogger(nil)},
		})

		req := httptest.NewRequest(http.MethodPost, "/events/evt-9/complete", strings.NewReader(`{"version":2}`))
		req.Header.Set("Authorization", "Bearer tok-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	})

	t.Run("unknown sub-resource is not found", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		estimates := mocks.NewMockEstimateActions(ctrl)

		router := NewRouter(RouterConfig{Estimates: NewEstimateHandler(estimates, nil)})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/estimates/est-1/archive", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("line item edits route with the estimate id", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		estimates := mocks.NewMockEstimateActions(ctrl)
		estimates.EXPECT().
			EditLineItem(gomock.Any(), "est-1", int64(2), application.LineItemAdd, "", lineitems.Patch{}).
			Return(actions.OK(actions.EstimateView{Estimate: application.Estimate{ID: "est-1", Version: 3}}))

		router := NewRouter(RouterConfig{Estimates: NewEstimateHandler(estimates, nil)})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/estimates/est-1/line-items", strings.NewReader(`{"op":"add","version":2}`)))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/estimates/est-1/line-items", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("wrong method lists the allowed ones", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		estimates := mocks.NewMockEstimateActions(ctrl)

		router := NewRouter(RouterConfig{Estimates: NewEstimateHandler(estimates, nil)})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/estimates/est-1/duplicate", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	})

	t.Run("health reflects the check", func(t *testing.T) {
		t.Parallel()
		healthy := NewRouter(RouterConfig{Health: func(context.Context) error { return nil }})
		rec := httptest.NewRecorder()
		healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		failing := NewRouter(RouterConfig{Health: func(context.Context) error { return errors.New("down") }})
		rec = httptest.NewRecorder()
		failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
