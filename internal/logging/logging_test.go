package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := ParseLevel(tt.input)
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFormatFor(t *testing.T) {
	if FormatFor(true) != JSON {
		t.Error("stdout results should log JSON")
	}
	if FormatFor(false) != Text {
		t.Error("non-stdout results should log text")
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, JSON, slog.LevelInfo, "provider", "tableau")

	logger.Info("run complete", "events", 3)

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected valid JSON output, got error: %v\noutput: %s", err, buf.String())
	}
	if m["msg"] != "run complete" {
		t.Errorf("expected msg 'run complete', got %q", m["msg"])
	}
	if m["provider"] != "tableau" {
		t.Errorf("expected base attr provider=tableau, got %v", m["provider"])
	}
	if m["events"] != float64(3) {
		t.Errorf("expected events=3, got %v", m["events"])
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Text, slog.LevelInfo)

	logger.Warn("usage anomaly", "dashboard", "tableau.7")

	out := buf.String()
	if !strings.Contains(out, "msg=\"usage anomaly\"") || !strings.Contains(out, "dashboard=tableau.7") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, JSON, slog.LevelWarn)

	logger.Info("should be filtered")
	logger.Debug("also filtered")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn level, got: %s", buf.String())
	}

	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("expected output for warn-level message")
	}
}

func TestInitSetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := Init(false, slog.LevelDebug)
	if slog.Default() != logger {
		t.Error("Init did not install the logger as default")
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be enabled")
	}
}
