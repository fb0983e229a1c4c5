package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// NewHTTPRequest builds a request for the dashboard router. A non-nil body
// is sent as JSON.
func NewHTTPRequest(method, target string, body any) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, target, nil)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("testutil: encode %T body: %v", body, err))
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewFormRequest posts form the way the dashboard's HTML forms do.
func NewFormRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// ExecuteRequest serves req and returns what h wrote.
func ExecuteRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// AssertStatus fails with the response body when the status differs.
func AssertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	assert.Equalf(t, want, rec.Code, "%s %s", http.StatusText(rec.Code), rec.Body)
}

func AssertBodyContains(t *testing.T, rec *httptest.ResponseRecorder, fragment string) {
	t.Helper()
	assert.Contains(t, rec.Body.String(), fragment)
}

// DefaultTestContext bounds integration tests that start containers.
func DefaultTestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)
	return ctx
}

// SkipIfShort keeps container-backed tests out of `go test -short`.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skipf("%s needs docker, skipped with -short", t.Name())
	}
}
