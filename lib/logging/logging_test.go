// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chotop-overlay/chotop/lib/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFileLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chotop.log")
	section := config.Default().Log
	section.File = path

	logger, closer, err := New(OptionsFrom(section, slog.LevelDebug))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("avatar cached", "user_id", "1")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("log line is not JSON: %q", data)
	}
	if record["msg"] != "avatar cached" || record["user_id"] != "1" {
		t.Errorf("record = %v", record)
	}
}

func TestConsoleOverride(t *testing.T) {
	var buffer bytes.Buffer
	logger, _, err := New(Options{
		Level:   slog.LevelWarn,
		Console: slog.NewTextHandler(&buffer, &slog.HandlerOptions{Level: slog.LevelWarn}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buffer.String(), "hidden") || !strings.Contains(buffer.String(), "shown") {
		t.Errorf("console output = %q", buffer.String())
	}
}

func TestDisabledConsoleWithoutFileDiscards(t *testing.T) {
	logger, closer, err := New(Options{DisableConsole: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discarding logger should report nothing enabled")
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestFanout(t *testing.T) {
	var debug, warn bytes.Buffer
	handler := Fanout{
		slog.NewJSONHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
	logger := slog.New(handler).With("component", "ingest")

	logger.Info("connected")
	logger.Warn("dropped")

	if strings.Count(debug.String(), "\n") != 2 {
		t.Errorf("debug handler got %q", debug.String())
	}
	if strings.Count(warn.String(), "\n") != 1 || !strings.Contains(warn.String(), `"component":"ingest"`) {
		t.Errorf("warn handler got %q", warn.String())
	}
}
