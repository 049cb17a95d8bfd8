package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/example/pool-backoffice/internal/actions"
	"github.com/example/pool-backoffice/internal/logging"
)

var (
	errBadRequestBody      = errors.New("request body must be a valid JSON object")
	errMissingResourceID   = errors.New("resource id is missing from the path")
	errMissingSessionToken = errors.New("sign in to continue")
	errInvalidSession      = errors.New("session is invalid or expired, sign in again")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError answers with a failure envelope. status may differ from the
// code's own status, as with malformed bodies (400).
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code actions.Code, err error) {
	message := http.StatusText(status)
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	r.writeJSON(ctx, w, status, actions.Fail[struct{}](code, message))
}

func (r responder) writeBadRequest(ctx context.Context, w http.ResponseWriter, err error) {
	r.writeError(ctx, w, http.StatusBadRequest, actions.CodeValidation, err)
}

func (r responder) writeValidation(ctx context.Context, w http.ResponseWriter, field, message string) {
	result := actions.Fail[struct{}](actions.CodeValidation, "validation failed: "+field+" "+message)
	result.Fields = map[string]string{field: message}
	r.writeJSON(ctx, w, http.StatusUnprocessableEntity, result)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// writeResult answers with result, using successStatus when it succeeded.
func writeResult[T any](ctx context.Context, r responder, w http.ResponseWriter, successStatus int, result actions.Result[T]) {
	status := successStatus
	if !result.Success {
		status = result.HTTPStatus()
	}
	r.writeJSON(ctx, w, status, result)
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errBadRequestBody
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}
	return nil
}
