// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devhost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

// ParseJSONTable parses a table from JSON or JSONC. Two shapes are
// accepted: columnar, an object of column name to cell array; and row
// oriented, an array of objects. Integral numbers become int64 and
// other numbers float64.
func ParseJSONTable(data []byte) (protocol.TableData, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("parsing table: %w", err)
	}

	switch shape := value.(type) {
	case map[string]any:
		table := make(protocol.TableData, len(shape))
		for name, column := range shape {
			cells, ok := column.([]any)
			if !ok {
				return nil, fmt.Errorf("column %q is not an array", name)
			}
			table[name] = normalizeCells(cells)
		}
		return table, nil
	case []any:
		rows := make([]mapping.Record, len(shape))
		for i, row := range shape {
			fields, ok := row.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d is not an object", i)
			}
			record := make(mapping.Record, len(fields))
			for name, cell := range fields {
				record[name] = normalizeNumber(cell)
			}
			rows[i] = record
		}
		return protocol.TableFromRows(rows), nil
	default:
		return nil, fmt.Errorf("table must be an object of columns or an array of rows, got %T", value)
	}
}

func normalizeCells(cells []any) []any {
	for i, cell := range cells {
		cells[i] = normalizeNumber(cell)
	}
	return cells
}

func normalizeNumber(value any) any {
	switch typed := value.(type) {
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i
		}
		f, _ := typed.Float64()
		return f
	case []any:
		return normalizeCells(typed)
	case map[string]any:
		for key, nested := range typed {
			typed[key] = normalizeNumber(nested)
		}
		return typed
	default:
		return value
	}
}

// LoadTableFile reads a table, choosing the format by file extension:
// .arrow and .arrows for Arrow IPC streams, .parquet for Parquet, and
// anything else as JSON or JSONC.
func LoadTableFile(ctx context.Context, path string) (protocol.TableData, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".arrow", ".arrows":
		return LoadArrowFile(path)
	case ".parquet":
		return LoadParquetFile(ctx, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	table, err := ParseJSONTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// ParseMapping parses a column mapping from YAML: widget field name to
// a column name, a list of column names, or null.
func ParseMapping(data []byte) (mapping.ColumnMapping, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing column mapping: %w", err)
	}
	if raw == nil {
		return mapping.ColumnMapping{}, nil
	}
	return mapping.MappingFromValue(raw)
}

// LoadMappingFile reads a YAML column mapping.
func LoadMappingFile(path string) (mapping.ColumnMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	columns, err := ParseMapping(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return columns, nil
}

// TableNameFromPath names a table after its file: "data/People.parquet"
// returns "People".
func TableNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
