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
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != "unknown" {
		t.Fatalf("unexpected fallback logger %+v", l)
	}
}

func TestMiddlewareChainCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: "test", Output: &buf, Level: slog.LevelInfo})

	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	out := buf.String()
	if !strings.Contains(out, "request_id=req_1") || !strings.Contains(out, "msg=inside") {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestStructuredLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Component: "test", Output: &buf}))

	sl.LogExpenseCreated(context.Background(), "alice", "EXP-0001", "150", "Travel", "Taxi")
	sl.LogError(context.Background(), "failed", errors.New("boom"), ComponentStorage, OpList, nil)

	out := buf.String()
	for _, want := range []string{"expense_id=EXP-0001", "user=alice", "amount=150", "error=boom", "operation=list"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}
