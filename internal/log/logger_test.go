package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerAttachesComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Handler: NewHandler(&buf, "text", slog.LevelDebug)})

	logger.WithComponent(ComponentSession).Info("selected month", FieldMonth, "2024-07")

	out := buf.String()
	if strings.Count(out, "component=") != 1 {
		t.Fatalf("expected a single component attribute, got %q", out)
	}
	if !strings.Contains(out, "component=session") || !strings.Contains(out, "month=2024-07") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentWorker, Handler: NewHandler(&buf, "json", slog.LevelInfo)})
	logger.Debug("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record should be filtered at info level")
	}
	if !strings.Contains(out, `"component":"worker"`) {
		t.Errorf("expected JSON component attribute, got %q", out)
	}
}

func TestMiddlewareAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Component: ComponentHTTP, Handler: NewHandler(&buf, "text", slog.LevelInfo)})

	handler := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req_42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("inside handler")
		}),
	))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ledger", nil))

	if !strings.Contains(buf.String(), "request_id=req_42") {
		t.Errorf("expected request id in %q", buf.String())
	}
}

func TestFromContextFallback(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("unexpected fallback logger %+v", l)
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Handler: NewHandler(&buf, "text", slog.LevelInfo)}))
	r := httptest.NewRequest(http.MethodPost, "/ledger/fields", nil)

	sl.LogHTTPEnd(context.Background(), r, http.StatusServiceUnavailable, 12, "10.0.0.1")
	sl.LogError(context.Background(), "write failed", errors.New("boom"), ComponentStorage, OpAddEntry, nil)

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "status_code=503") {
		t.Errorf("expected error-level HTTP record, got %q", out)
	}
	if !strings.Contains(out, "error=boom") || !strings.Contains(out, "operation=add_entry") {
		t.Errorf("expected error fields, got %q", out)
	}
}
