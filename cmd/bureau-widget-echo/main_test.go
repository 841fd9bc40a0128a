// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

func TestLoadSettings(t *testing.T) {
	settings, err := loadSettings("")
	if err != nil || settings.RequiredAccess != protocol.AccessReadOnly || settings.Columns != nil {
		t.Fatalf("default settings = %+v, %v", settings, err)
	}

	dir := t.TempDir()
	good := filepath.Join(dir, "echo.jsonc")
	if err := os.WriteFile(good, []byte(`{"required_access": "full", "columns": ["Title"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	settings, err = loadSettings(good)
	if err != nil || settings.RequiredAccess != protocol.AccessFull || len(settings.Columns) != 1 {
		t.Errorf("manifest settings = %+v, %v", settings, err)
	}

	bad := filepath.Join(dir, "bad.jsonc")
	if err := os.WriteFile(bad, []byte(`{"columns": ["Title"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadSettings(bad); err == nil || !strings.Contains(err.Error(), "problems") {
		t.Errorf("invalid manifest = %v", err)
	}
}
