package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/zapponejosh/panchang-api/internal/config"
)

func TestSetupWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := SetupWriter(&config.Config{Env: config.EnvStaging, LogLevel: "info", LogFormat: "json"}, &buf)

	log.Debug("hidden")
	log.Info("visible", slog.String("location", "Hyderabad"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "visible" {
		t.Errorf("msg = %v, want visible", entry["msg"])
	}
	if entry["env"] != config.EnvStaging {
		t.Errorf("env = %v, want %s", entry["env"], config.EnvStaging)
	}
	if entry["location"] != "Hyderabad" {
		t.Errorf("location = %v, want Hyderabad", entry["location"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromContext_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithRequestID(context.Background(), "req-42")
	if got := RequestID(ctx); got != "req-42" {
		t.Fatalf("RequestID() = %q, want req-42", got)
	}

	FromContext(ctx, base).Info("hello")
	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Errorf("log line missing request id: %q", buf.String())
	}
}

func TestFromContext_NoRequestID(t *testing.T) {
	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if got := FromContext(context.Background(), base); got != base {
		t.Error("FromContext without request id should return base unchanged")
	}
}
