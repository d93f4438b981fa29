package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func newJSONLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{Level: level, Format: "json", Component: ComponentApp, Output: buf})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("not json: %q", line)
		}
		out = append(out, m)
	}
	return out
}

func TestLoggerComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, slog.LevelInfo)

	l.DebugContext(context.Background(), "hidden")
	l.WithComponent(ComponentWorker).InfoContext(context.Background(), "Synced expense", FieldExpenseID, 7)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	if lines[0][FieldComponent] != ComponentWorker || lines[0][FieldExpenseID] != float64(7) {
		t.Fatalf("line: %v", lines[0])
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})
	l.InfoContext(context.Background(), "hello")
	if !strings.Contains(buf.String(), "component=http") {
		t.Fatalf("text output: %q", buf.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := newJSONLogger(&buf, slog.LevelInfo)

	h := Middleware(base)(RequestIDMiddleware(func(r *http.Request) string {
		return r.Header.Get("X-Request-ID")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "inside")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0][FieldRequestID] != "req-1" {
		t.Fatalf("lines: %v", lines)
	}
}

func TestFromContextDefault(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("fallback logger: %+v", l)
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newJSONLogger(&buf, slog.LevelInfo))
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/expenses/3?x=1", nil)
	sl.LogHTTPEnd(ctx, req, http.StatusNotFound, 12, "10.0.0.1")
	sl.LogExpenseWritten(ctx, OpCreate, "u1", 3, 1, "12.50", "Parts")
	sl.LogError(ctx, "Render failed", errors.New("boom"), ErrorTypeInternal, ComponentHTTP, OpRender)

	lines := decodeLines(t, &buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0]["level"] != "WARN" || lines[0][FieldStatusCode] != float64(404) || lines[0][FieldSuccess] != false {
		t.Errorf("http line: %v", lines[0])
	}
	if lines[1][FieldComponent] != ComponentExpense || lines[1][FieldAmount] != "12.50" {
		t.Errorf("expense line: %v", lines[1])
	}
	if lines[2]["level"] != "ERROR" || lines[2][FieldErrorType] != ErrorTypeInternal {
		t.Errorf("error line: %v", lines[2])
	}
}
