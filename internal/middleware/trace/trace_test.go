package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"garage/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer) *Middleware {
	logger := log.New(log.Config{Level: slog.LevelDebug, Format: "json", Component: log.ComponentApp, Output: buf})
	return NewMiddleware(logger, func(*http.Request) string { return "10.0.0.1" })
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		log.FromContext(r.Context()).InfoContext(r.Context(), "inside")
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/projects", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id %q", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header %q, want %q", rec.Header().Get(HeaderRequestID), seen)
	}
	out := buf.String()
	if strings.Count(out, seen) != 3 {
		t.Fatalf("expected request id on start, inner and end lines:\n%s", out)
	}
	if !strings.Contains(out, `"status_code":201`) {
		t.Fatalf("missing status code:\n%s", out)
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Fatalf("total requests %d", got)
	}
}

func TestIncomingRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"kept", "abc-123", "abc-123"},
		{"empty", "", ""},
		{"with space", "abc 123", ""},
		{"too long", strings.Repeat("a", 65), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(HeaderRequestID, tt.header)
			if got := incomingRequestID(r); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddlewareKeepsUpstreamID(t *testing.T) {
	var buf bytes.Buffer
	h := newTestMiddleware(&buf).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "upstream-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get(HeaderRequestID) != "upstream-1" {
		t.Fatalf("header %q", rec.Header().Get(HeaderRequestID))
	}
}
