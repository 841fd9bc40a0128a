// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

const sample = `{
	// Shows one contact card.
	"required_access": "read table",
	"columns": [
		"Name",
		{"name": "Tags", "optional": true, "allow_multiple": true},
	],
	"allow_select_by": true,
}`

func TestReadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "contact-card.jsonc")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	manifest, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if manifest.Name != "contact-card" {
		t.Errorf("Name = %q, want name from path", manifest.Name)
	}

	settings := manifest.Settings()
	if settings.RequiredAccess != protocol.AccessReadOnly || !settings.AllowSelectBy {
		t.Errorf("settings = %+v", settings)
	}
	want := []mapping.Column{
		mapping.Required("Name"),
		{Name: "Tags", Optional: true, AllowMultiple: true},
	}
	if !reflect.DeepEqual(settings.Columns, want) {
		t.Errorf("columns = %+v, want %+v", settings.Columns, want)
	}
	if issues := Validate(manifest); len(issues) != 0 {
		t.Errorf("Validate = %v", issues)
	}
}

func TestReadFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := ReadFile(filepath.Join(dir, "absent.jsonc")); err == nil {
		t.Error("missing file read")
	}

	path := filepath.Join(dir, "bad.jsonc")
	if err := os.WriteFile(path, []byte(`{"columns": [{"name": ""}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadFile(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Errorf("ReadFile(empty column name) = %v, want error naming the file", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		manifest       Manifest
		wantSubstrings []string
	}{
		{
			name:     "no columns",
			manifest: Manifest{RequiredAccess: protocol.AccessNone},
		},
		{
			name:           "unknown access",
			manifest:       Manifest{RequiredAccess: "write"},
			wantSubstrings: []string{`"write"`},
		},
		{
			name:           "columns without access",
			manifest:       Manifest{Columns: []mapping.Column{mapping.Required("A")}},
			wantSubstrings: []string{"grants no table access"},
		},
		{
			name: "duplicate and reserved",
			manifest: Manifest{
				RequiredAccess: protocol.AccessFull,
				Columns:        []mapping.Column{mapping.Required("A"), mapping.Optional("A"), mapping.Required("id")},
			},
			wantSubstrings: []string{`duplicate field "A"`, "reserved"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			issues := Validate(&test.manifest)
			if len(issues) != len(test.wantSubstrings) {
				t.Fatalf("issues = %v, want %d", issues, len(test.wantSubstrings))
			}
			joined := strings.Join(issues, "\n")
			for _, want := range test.wantSubstrings {
				if !strings.Contains(joined, want) {
					t.Errorf("issues %q missing %q", joined, want)
				}
			}
		})
	}
}
