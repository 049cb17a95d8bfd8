package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/example/pool-backoffice/internal/actions"
	"github.com/example/pool-backoffice/internal/application"
	"github.com/example/pool-backoffice/internal/http/mocks"
	"github.com/example/pool-backoffice/internal/logging"
)

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without valid session tokens", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name           string
			cookieToken    *http.Cookie
			headerToken    string
			lookupError    error
			expectedStatus int
		}{
			{
				name:           "missing credentials",
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "non bearer header",
				headerToken:    "Basic abc",
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "revoked session",
				cookieToken:    &http.Cookie{Name: sessionCookieName, Value: "revoked-token"},
				lookupError:    application.ErrSessionRevoked,
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "expired session",
				headerToken:    "Bearer expired-token",
				lookupError:    application.ErrSessionExpired,
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "storage failure",
				headerToken:    "Bearer any-token",
				lookupError:    errors.New("connection reset"),
				expectedStatus: http.StatusInternalServerError,
			},
		}

		for _, tc := range tests {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()
				ctrl := gomock.NewController(t)
				resolver := mocks.NewMockPrincipalResolver(ctrl)
				if tc.lookupError != nil {
					resolver.EXPECT().ResolvePrincipal(gomock.Any(), gomock.Any()).Return(application.Principal{}, tc.lookupError)
				}

				req := httptest.NewRequest(http.MethodGet, "/events", nil)
				if tc.cookieToken != nil {
					req.AddCookie(tc.cookieToken)
				}
				if tc.headerToken != "" {
					req.Header.Set("Authorization", tc.headerToken)
				}
				recorder := httptest.NewRecorder()

				handler := RequireSession(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(recorder, req)

				assert.Equal(t, tc.expectedStatus, recorder.Code)
				body := decodeEnvelope(t, recorder)
				assert.False(t, body.Success)
				assert.NotContains(t, body.Error, "connection reset")
			})
		}
	})

	t.Run("attaches authenticated principal to request context", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockPrincipalResolver(ctrl)
		principal := application.Principal{AdminID: "admin-1", Role: application.RoleStaff}
		resolver.EXPECT().ResolvePrincipal(gomock.Any(), "tok-1").Return(principal, nil)

		var seen application.Principal
		handler := RequireSession(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := actions.PrincipalFromContext(r.Context())
			require.True(t, ok)
			seen = got
			w.WriteHeader(http.StatusNoContent)
		}))

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "tok-1"})
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Equal(t, principal, seen)
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("assigns a request id", func(t *testing.T) {
		t.Parallel()
		var seen string
		handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logging.RequestIDFromContext(r.Context())
			assert.NotNil(t, logging.FromContext(r.Context()))
		}))

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, recorder.Header().Get(requestIDHeader))
	})

	t.Run("reuses a well-formed incoming id", func(t *testing.T) {
		t.Parallel()
		incoming := uuid.NewString()
		handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(requestIDHeader, incoming)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, incoming, recorder.Header().Get(requestIDHeader))
	})

	t.Run("replaces a malformed incoming id", func(t *testing.T) {
		t.Parallel()
		handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(requestIDHeader, "<script>")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.NotEqual(t, "<script>", recorder.Header().Get(requestIDHeader))
	})
}
