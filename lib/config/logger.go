// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// NewLogger creates the structured logger a binary writes to output.
// FormatAuto uses slog.TextHandler when output is a terminal and
// slog.JSONHandler otherwise, so piped logs stay machine-parseable.
// An unrecognized level logs at info.
func (l LoggingConfig) NewLogger(output *os.File) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}

	text := l.Format == FormatText
	if l.Format == "" || l.Format == FormatAuto {
		text = term.IsTerminal(int(output.Fd()))
	}

	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(output, options)
	} else {
		handler = slog.NewJSONHandler(output, options)
	}
	return slog.New(handler)
}
