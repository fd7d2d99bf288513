package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/suenolabs/sueno-api/pkg/contextkeys"
)

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("user_id", "42").Info("login succeeded")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "login succeeded" {
		t.Errorf("msg = %v, want %q", entry["msg"], "login succeeded")
	}
	if entry["user_id"] != "42" {
		t.Errorf("user_id = %v, want %q", entry["user_id"], "42")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Debug("should be dropped")
	logger.Info("should be dropped too")
	logger.Warn("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Errorf("below-level messages should be filtered, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn message missing from output: %s", buf.String())
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(nil).Info("no error attached")
	if strings.Contains(buf.String(), `"error"`) {
		t.Error("nil error should not add an error field")
	}
}

func TestFromContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), logger)
	ctx = contextkeys.WithRequestID(ctx, "req-abc")

	FromContext(ctx).Info("hello")

	if !strings.Contains(buf.String(), "req-abc") {
		t.Errorf("request id missing from log output: %s", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"garbage", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
