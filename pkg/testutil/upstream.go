package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RecordedRequest is a request seen by FakeUpstream.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// FakeUpstream is an in-process stand-in for the inventory API. Routes are
// matched on method and exact path; anything unregistered answers 404.
type FakeUpstream struct {
	Server *httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewFakeUpstream starts a server that is closed when the test ends.
func NewFakeUpstream(t *testing.T) *FakeUpstream {
	t.Helper()

	f := &FakeUpstream{routes: make(map[string]http.HandlerFunc)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL to point a client at.
func (f *FakeUpstream) URL() string {
	return f.Server.URL
}

// JSON registers a route answering status with body encoded as JSON.
func (f *FakeUpstream) JSON(method, path string, status int, body any) *FakeUpstream {
	return f.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
}

// Raw registers a route answering status with a literal body.
func (f *FakeUpstream) Raw(method, path string, status int, body string) *FakeUpstream {
	return f.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// Fail registers a route answering a bare error status.
func (f *FakeUpstream) Fail(method, path string, status int) *FakeUpstream {
	return f.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, http.StatusText(status), status)
	})
}

// Handle registers an arbitrary handler.
func (f *FakeUpstream) Handle(method, path string, h http.HandlerFunc) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
	return f
}

// Requests returns every request received so far.
func (f *FakeUpstream) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Count returns how many times method and path were requested.
func (f *FakeUpstream) Count(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (f *FakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   body,
	})
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}
