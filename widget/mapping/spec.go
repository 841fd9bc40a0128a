// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Column describes one field a widget needs from the host.
type Column struct {
	// Name is the widget-facing field name. Required.
	Name string `json:"name"`

	// Title and Description are shown to the user when picking the
	// host column.
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// Type restricts which host column types the picker offers
	// ("Any", "Text", "Numeric", ...). Empty means any.
	Type string `json:"type,omitempty"`

	// Optional fields may stay unassigned without invalidating the
	// mapping.
	Optional bool `json:"optional,omitempty"`

	// AllowMultiple lets the user assign a series of columns. The
	// field then maps to a positional list.
	AllowMultiple bool `json:"allow_multiple,omitempty"`
}

// Required returns a required column declaration.
func Required(name string) Column {
	return Column{Name: name}
}

// Optional returns an optional column declaration.
func Optional(name string) Column {
	return Column{Name: name, Optional: true}
}

// UnmarshalJSON accepts either a bare name or a column object, so
// manifests can write ["Name", {"name": "Email", "optional": true}].
func (c *Column) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		*c = Column{Name: name}
		return c.validate()
	}

	// Alias drops the method set so Unmarshal does not recurse.
	type plain Column
	var decoded plain
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return err
	}
	*c = Column(decoded)
	return c.validate()
}

func (c *Column) validate() error {
	if c.Name == "" {
		return fmt.Errorf("column declaration has an empty name")
	}
	return nil
}

// Spec is the ordered set of columns a widget declared. A nil *Spec
// means the widget never asked for mapping.
type Spec struct {
	Columns []Column
}

// NewSpec builds a Spec from column declarations.
func NewSpec(columns ...Column) *Spec {
	return &Spec{Columns: append([]Column{}, columns...)}
}

// Lookup returns the declaration for name.
func (s *Spec) Lookup(name string) (Column, bool) {
	if s == nil {
		return Column{}, false
	}
	for _, column := range s.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return Column{}, false
}

// Names returns the declared field names in declaration order.
func (s *Spec) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Columns))
	for _, column := range s.Columns {
		names = append(names, column.Name)
	}
	return names
}
