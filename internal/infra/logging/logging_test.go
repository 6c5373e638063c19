//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWith_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithUserID(WithTraceID(context.Background(), "trace-1"), "user-1")
	With(ctx, &base).Info().Msg("hello")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if got["trace_id"] != "trace-1" {
		t.Errorf("expected trace_id=trace-1, got %v", got["trace_id"])
	}
	if got["user_id"] != "user-1" {
		t.Errorf("expected user_id=user-1, got %v", got["user_id"])
	}
	if TraceID(ctx) != "trace-1" {
		t.Errorf("TraceID returned %q", TraceID(ctx))
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("abc", false); got != "***" {
		t.Errorf("short value: got %q", got)
	}
	if got := Redact("0123456789abcdef", false); got != "0123...ef" {
		t.Errorf("long value: got %q", got)
	}
	if got := Redact("0123456789abcdef", true); got != "0123456789abcdef" {
		t.Errorf("dev mode should not redact, got %q", got)
	}
}
