// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mapping

import (
	"fmt"
	"maps"
	"slices"

	"github.com/bureau-foundation/bureau-widget/lib/codec"
)

// Target is what one widget field is assigned to: a single host column,
// an ordered series of host columns, or nothing.
//
// On the wire a Target is a text string, an array of text strings, or
// null.
type Target struct {
	column string
	series []string
}

// Single assigns a field to one host column.
func Single(column string) Target {
	return Target{column: column}
}

// Series assigns a field to an ordered list of host columns.
func Series(columns ...string) Target {
	return Target{series: append([]string{}, columns...)}
}

// Column returns the host column of a single assignment.
func (t Target) Column() (string, bool) {
	return t.column, t.column != ""
}

// SeriesColumns returns the host columns of a non-empty series.
func (t Target) SeriesColumns() ([]string, bool) {
	return t.series, len(t.series) > 0
}

// IsSet reports whether the field is assigned to anything. An empty
// series counts as unassigned.
func (t Target) IsSet() bool {
	return t.column != "" || len(t.series) > 0
}

func (t Target) clone() Target {
	return Target{column: t.column, series: slices.Clone(t.series)}
}

func (t Target) String() string {
	switch {
	case len(t.series) > 0:
		return fmt.Sprintf("%v", t.series)
	case t.column != "":
		return t.column
	default:
		return "<unset>"
	}
}

// MarshalCBOR encodes the wire form.
func (t Target) MarshalCBOR() ([]byte, error) {
	switch {
	case t.series != nil:
		return codec.Marshal(t.series)
	case t.column != "":
		return codec.Marshal(t.column)
	default:
		return codec.Marshal(nil)
	}
}

// UnmarshalCBOR decodes the wire form.
func (t *Target) UnmarshalCBOR(data []byte) error {
	var value any
	if err := codec.Unmarshal(data, &value); err != nil {
		return err
	}
	decoded, err := TargetFromValue(value)
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

// TargetFromValue converts a decoded JSON, YAML, or CBOR value into a
// Target: nil or "" is unset, a string is a single column, a list of
// strings is a series.
func TargetFromValue(value any) (Target, error) {
	switch typed := value.(type) {
	case nil:
		return Target{}, nil
	case string:
		return Single(typed), nil
	case []string:
		return Series(typed...), nil
	case []any:
		columns := make([]string, 0, len(typed))
		for i, element := range typed {
			name, ok := element.(string)
			if !ok {
				return Target{}, fmt.Errorf("series element %d is %T, want string", i, element)
			}
			columns = append(columns, name)
		}
		return Series(columns...), nil
	default:
		return Target{}, fmt.Errorf("column assignment is %T, want string, list, or null", value)
	}
}

// ColumnMapping assigns widget field names to host columns. A nil
// ColumnMapping means no mapping has been resolved.
type ColumnMapping map[string]Target

// Clone returns a deep copy; nil stays nil.
func (m ColumnMapping) Clone() ColumnMapping {
	if m == nil {
		return nil
	}
	cloned := make(ColumnMapping, len(m))
	for name, target := range m {
		cloned[name] = target.clone()
	}
	return cloned
}

// Names returns the assigned field names in lexicographic order.
func (m ColumnMapping) Names() []string {
	return slices.Sorted(maps.Keys(m))
}

// MappingFromValue converts a decoded map (from YAML or JSON) into a
// ColumnMapping.
func MappingFromValue(value map[string]any) (ColumnMapping, error) {
	if value == nil {
		return nil, nil
	}
	result := make(ColumnMapping, len(value))
	for name, raw := range value {
		target, err := TargetFromValue(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		result[name] = target
	}
	return result, nil
}
