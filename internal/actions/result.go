// Package actions is the entry point used by transports. Every operation
// resolves the principal from the context, calls one application service,
// invalidates the affected views and reports the outcome as a Result.
package actions

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/pool-backoffice/internal/application"
	"github.com/example/pool-backoffice/internal/workflow"
)

// Code classifies a failed Result.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInternal          Code = "INTERNAL_ERROR"
)

const internalErrorMessage = "an unexpected error occurred"

// HTTPStatus returns the status code a transport should answer with.
func (c Code) HTTPStatus() int {
	switch c {
	case "":
		return http.StatusOK
	case CodeValidation, CodeInvalidTransition:
		return http.StatusUnprocessableEntity
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Result is the uniform outcome of an action: either Data, or an Error
// message with its Code. Fields carries per-field messages for validation
// failures.
type Result[T any] struct {
	Success bool
	Data    T
	Error   string
	Code    Code
	Fields  map[string]string
}

// OK wraps data in a successful Result.
func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail builds a failed Result.
func Fail[T any](code Code, message string) Result[T] {
	return Result[T]{Code: code, Error: message}
}

// FromError classifies err. Internal errors get a generic message so storage
// details never reach the caller.
func FromError[T any](err error) Result[T] {
	if err == nil {
		return Fail[T](CodeInternal, internalErrorMessage)
	}
	code := Classify(err)
	result := Fail[T](code, err.Error())
	switch code {
	case CodeInternal:
		result.Error = internalErrorMessage
	case CodeValidation:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) && vErr.HasErrors() {
			result.Fields = vErr.FieldErrors
		}
	}
	return result
}

// Classify maps an error returned by the application layer to a Code.
func Classify(err error) Code {
	if err == nil {
		return ""
	}

	var (
		vErr        *application.ValidationError
		eventErr    *application.EventNotEditableError
		estimateErr *application.EstimateNotEditableError
	)
	switch {
	case errors.As(err, &vErr), errors.As(err, &eventErr), errors.As(err, &estimateErr):
		return CodeValidation
	case errors.Is(err, workflow.ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, application.ErrUnauthorized),
		errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrSessionExpired),
		errors.Is(err, application.ErrSessionRevoked),
		errors.Is(err, application.ErrAccountDisabled):
		return CodeUnauthorized
	case errors.Is(err, application.ErrForbidden):
		return CodeForbidden
	case errors.Is(err, application.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, application.ErrConflict), errors.Is(err, application.ErrAlreadyExists):
		return CodeConflict
	}
	return CodeInternal
}

// HTTPStatus mirrors the Result's code.
func (r Result[T]) HTTPStatus() int {
	if r.Success {
		return http.StatusOK
	}
	return r.Code.HTTPStatus()
}

type successEnvelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

type failureEnvelope struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Code    Code              `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// MarshalJSON renders {success:true,data} or {success:false,error,code}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(successEnvelope[T]{Success: true, Data: r.Data})
	}
	return json.Marshal(failureEnvelope{Error: r.Error, Code: r.Code, Fields: r.Fields})
}

// UnmarshalJSON accepts either envelope shape.
func (r *Result[T]) UnmarshalJSON(data []byte) error {
	var raw struct {
		Success bool              `json:"success"`
		Data    json.RawMessage   `json:"data"`
		Error   string            `json:"error"`
		Code    Code              `json:"code"`
		Fields  map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Result[T]{Success: raw.Success, Error: raw.Error, Code: raw.Code, Fields: raw.Fields}
	if raw.Success && len(raw.Data) > 0 {
		return json.Unmarshal(raw.Data, &r.Data)
	}
	return nil
}

// Map converts the data of a successful Result, keeping failures as they are.
func Map[T, U any](r Result[T], convert func(T) U) Result[U] {
	if !r.Success {
		return Result[U]{Error: r.Error, Code: r.Code, Fields: r.Fields}
	}
	return OK(convert(r.Data))
}
