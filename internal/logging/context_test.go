package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"viva/internal/logging"
	"viva/internal/services"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := services.WithSessionID(context.Background(), "sess-1")
	ctx = services.WithRequestID(ctx, "req-1")

	logging.WithContext(ctx, logger).Info("delivery handled")

	out := buf.String()
	if !strings.Contains(out, "session_id=sess-1") {
		t.Fatalf("missing session id: %s", out)
	}
	if !strings.Contains(out, "correlation_id=req-1") {
		t.Fatalf("missing correlation id: %s", out)
	}
}

func TestWithContextBareContextIsPassthrough(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	if got := logging.WithContext(context.Background(), logger); got != logger {
		t.Fatal("unannotated context should return the logger unchanged")
	}
	if fields := logging.ContextFields(context.Background()); len(fields) != 0 {
		t.Fatalf("fields = %v, want none", fields)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := services.WithSessionID(context.Background(), "sess-2")
	if id, ok := services.SessionIDFromContext(ctx); !ok || id != "sess-2" {
		t.Fatalf("session id = %q, %v", id, ok)
	}

	// Empty values never annotate.
	ctx = services.WithRequestID(context.Background(), "")
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("empty request id should not annotate the context")
	}
}
