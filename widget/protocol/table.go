// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"maps"
	"slices"

	"github.com/bureau-foundation/bureau-widget/widget/mapping"
)

// IncludeShown restricts a table fetch to the columns visible in the
// widget's section.
const IncludeShown = "shown"

// IncludeAll fetches every column of the table.
const IncludeAll = "all"

// FetchOptions qualifies a table or record fetch.
type FetchOptions struct {
	// IncludeColumns is IncludeShown or IncludeAll. Empty lets the
	// host choose.
	IncludeColumns string `json:"include_columns,omitempty"`

	// KeepEncoded asks for raw cell encodings instead of decoded
	// values.
	KeepEncoded bool `json:"keep_encoded,omitempty"`
}

// TableData is a table in columnar form: column name to cell values,
// all columns the same length, with the mapping.IDField column
// mandatory.
type TableData map[string][]any

// Len returns the number of rows, taken from the id column.
func (t TableData) Len() int {
	return len(t[mapping.IDField])
}

// Rows reshapes the table into one record per row, in the order of the
// id column. A column shorter than the id column contributes nil for
// the missing cells.
func (t TableData) Rows() []mapping.Record {
	rows := make([]mapping.Record, t.Len())
	for i := range rows {
		rows[i], _ = t.Row(i)
	}
	return rows
}

// Row returns the record at index i.
func (t TableData) Row(i int) (mapping.Record, bool) {
	if i < 0 || i >= t.Len() {
		return nil, false
	}
	row := make(mapping.Record, len(t))
	for column, values := range t {
		if i < len(values) {
			row[column] = values[i]
		} else {
			row[column] = nil
		}
	}
	return row, true
}

// Columns returns the column names in lexicographic order.
func (t TableData) Columns() []string {
	return slices.Sorted(maps.Keys(t))
}

// TableFromRows builds columnar data from records. Every column any
// record carries becomes a column; records lacking it hold nil.
func TableFromRows(rows []mapping.Record) TableData {
	columns := make(map[string]struct{})
	for _, row := range rows {
		for column := range row {
			columns[column] = struct{}{}
		}
	}
	columns[mapping.IDField] = struct{}{}

	table := make(TableData, len(columns))
	for column := range columns {
		values := make([]any, len(rows))
		for i, row := range rows {
			values[i] = row[column]
		}
		table[column] = values
	}
	return table
}
