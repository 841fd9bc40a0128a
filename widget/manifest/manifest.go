// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest reads widget manifests: the JSONC files that
// declare a widget's name, the access it needs, and the fields it
// maps onto host columns. A manifest is the on-disk form of the
// settings a widget passes to Ready.
//
// The typical flow:
//
//  1. ReadFile or Parse: JSONC bytes → Manifest
//  2. Validate: structural checks (access level, column names)
//  3. Settings: Manifest → handshake.Settings
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/bureau-widget/widget/handshake"
	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

// Manifest describes a widget.
type Manifest struct {
	// Name identifies the widget in logs. Defaults to the file name.
	Name string `json:"name,omitempty"`

	// Description is shown to users choosing a widget.
	Description string `json:"description,omitempty"`

	// RequiredAccess is "none", "read table", or "full".
	RequiredAccess string `json:"required_access,omitempty"`

	// Columns declares the widget's fields. Each element is either a
	// field name (a required single-column field) or an object with
	// the full declaration.
	Columns []mapping.Column `json:"columns,omitempty"`

	// AllowSelectBy lets other sections link to the widget's selection.
	AllowSelectBy bool `json:"allow_select_by,omitempty"`
}

// Settings converts the manifest into handshake settings. A manifest
// without columns declares no mapping spec.
func (m *Manifest) Settings() *handshake.Settings {
	return &handshake.Settings{
		RequiredAccess: m.RequiredAccess,
		Columns:        m.Columns,
		AllowSelectBy:  m.AllowSelectBy,
	}
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Manifest.
func Parse(data []byte) (*Manifest, error) {
	stripped := jsonc.ToJSON(data)

	var manifest Manifest
	if err := json.Unmarshal(stripped, &manifest); err != nil {
		return nil, fmt.Errorf("parsing widget manifest: %w", err)
	}
	return &manifest, nil
}

// ReadFile reads and parses a manifest file. An unnamed manifest is
// named after the file.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	manifest, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if manifest.Name == "" {
		manifest.Name = NameFromPath(path)
	}
	return manifest, nil
}

// NameFromPath strips the directory and extension from a manifest
// path: "widgets/map-view.jsonc" returns "map-view".
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Validate returns a description of every structural problem in the
// manifest. An empty result means the manifest is usable.
func Validate(m *Manifest) []string {
	var issues []string

	switch m.RequiredAccess {
	case "", protocol.AccessNone, protocol.AccessReadOnly, protocol.AccessFull:
	default:
		issues = append(issues, fmt.Sprintf("required_access %q is not one of %q, %q, %q",
			m.RequiredAccess, protocol.AccessNone, protocol.AccessReadOnly, protocol.AccessFull))
	}
	if len(m.Columns) > 0 && (m.RequiredAccess == "" || m.RequiredAccess == protocol.AccessNone) {
		issues = append(issues, "columns are declared but required_access grants no table access")
	}

	seen := make(map[string]bool, len(m.Columns))
	for i, column := range m.Columns {
		switch {
		case column.Name == mapping.IDField:
			issues = append(issues, fmt.Sprintf("columns[%d]: %q is reserved for row ids", i, mapping.IDField))
		case seen[column.Name]:
			issues = append(issues, fmt.Sprintf("columns[%d]: duplicate field %q", i, column.Name))
		}
		seen[column.Name] = true
	}
	return issues
}
