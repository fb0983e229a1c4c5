// Package httputil holds the JSON envelope and middleware shared by the
// dashboard's API routes.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/medflow/medflow-dispensary/pkg/errors"
)

// Response is the envelope every API route answers with.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Meta is set on list responses.
type Meta struct {
	Total int `json:"total"`
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// JSON wraps data in a success envelope when status is 2xx.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{Success: status >= 200 && status < 300, Data: data})
}

// JSONList answers with items and their count. A nil slice is sent as [].
func JSONList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	write(w, http.StatusOK, Response{Success: true, Data: items, Meta: &Meta{Total: len(items)}})
}

// Error answers with err translated for the request's locale. Anything that
// is not an *errors.AppError becomes a 500 without its text.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		appErr = errors.Internal("unexpected failure")
	}
	write(w, appErr.StatusCode, Response{
		Error: &ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Localize(r.Context()),
			Details: appErr.Details,
		},
	})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// DecodeJSON reads the body into v. Unknown fields are rejected.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		e := errors.BadRequest("request body is not valid JSON")
		e.MessageKey = "errors.invalid_json"
		return e
	}
	return nil
}
