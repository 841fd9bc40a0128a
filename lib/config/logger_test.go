// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func logTo(t *testing.T, logging LoggingConfig, write func(*slog.Logger)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	write(logging.NewLogger(file))
	file.Close()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestNewLogger_AutoUsesJSONOffTerminal(t *testing.T) {
	output := logTo(t, LoggingConfig{Level: "info", Format: FormatAuto}, func(logger *slog.Logger) {
		logger.Info("hello", "key", "value")
	})
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &record); err != nil {
		t.Fatalf("auto format off a terminal is not JSON: %q", output)
	}
	if record["msg"] != "hello" || record["key"] != "value" {
		t.Errorf("record = %v", record)
	}
}

func TestNewLogger_Text(t *testing.T) {
	output := logTo(t, LoggingConfig{Level: "debug", Format: FormatText}, func(logger *slog.Logger) {
		logger.Debug("details")
	})
	if !strings.Contains(output, "msg=details") {
		t.Errorf("text output = %q", output)
	}
}

func TestNewLogger_Level(t *testing.T) {
	file, err := os.Create(filepath.Join(t.TempDir(), "log"))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	ctx := context.Background()
	warn := LoggingConfig{Level: "warn", Format: FormatJSON}.NewLogger(file)
	if warn.Enabled(ctx, slog.LevelInfo) || !warn.Enabled(ctx, slog.LevelWarn) {
		t.Error("warn level not applied")
	}
	fallback := LoggingConfig{Level: "loud"}.NewLogger(file)
	if fallback.Enabled(ctx, slog.LevelDebug) || !fallback.Enabled(ctx, slog.LevelInfo) {
		t.Error("unknown level should log at info")
	}
}
