// Package errors defines the errors the dashboard reports to clients. Each
// carries an HTTP status, a stable code for the JSON envelope and a message
// key translated per request.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/medflow/medflow-dispensary/pkg/i18n"
)

var (
	ErrBadRequest          = errors.New("bad request")
	ErrConflict            = errors.New("conflict")
	ErrInternal            = errors.New("internal error")
	ErrValidation          = errors.New("validation failed")
	ErrUpstreamUnavailable = errors.New("inventory service unavailable")
)

// AppError is rendered by httputil.Error as the envelope's error object.
type AppError struct {
	Err        error             `json:"-"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	MessageKey string            `json:"-"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// Localize translates the message for the locale in ctx. Errors built
// without a key keep their message as is.
func (e *AppError) Localize(ctx context.Context) string {
	if e.MessageKey == "" {
		return e.Message
	}
	return i18n.TFromContext(ctx, e.MessageKey)
}

type kind struct {
	sentinel error
	code     string
	key      string
	status   int
}

var (
	badRequest  = kind{ErrBadRequest, "BAD_REQUEST", "errors.bad_request", http.StatusBadRequest}
	conflict    = kind{ErrConflict, "CONFLICT", "errors.conflict", http.StatusConflict}
	internal    = kind{ErrInternal, "INTERNAL_ERROR", "errors.internal", http.StatusInternalServerError}
	validation  = kind{ErrValidation, "VALIDATION_ERROR", "errors.validation_failed", http.StatusBadRequest}
	upstreamErr = kind{ErrUpstreamUnavailable, "UPSTREAM_UNAVAILABLE", "errors.upstream_unavailable", http.StatusBadGateway}
)

func (k kind) new(message string, err error) *AppError {
	if err == nil {
		err = k.sentinel
	}
	return &AppError{Err: err, Code: k.code, Message: message, MessageKey: k.key, StatusCode: k.status}
}

// BadRequest rejects malformed input.
func BadRequest(message string) *AppError { return badRequest.new(message, nil) }

// Conflict reports a change that clashes with recorded state.
func Conflict(message string) *AppError { return conflict.new(message, nil) }

// Internal hides an unexpected failure from the client.
func Internal(message string) *AppError { return internal.new(message, nil) }

// Validation carries per-field messages in Details.
func Validation(details map[string]string) *AppError {
	e := validation.new("validation failed", nil)
	e.Details = details
	return e
}

// UpstreamUnavailable reports that the inventory API could not serve a
// request. cause is kept for logging and never shown to the client.
func UpstreamUnavailable(cause error) *AppError {
	return upstreamErr.new("inventory service unavailable", fmt.Errorf("%w: %w", ErrUpstreamUnavailable, cause))
}

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
