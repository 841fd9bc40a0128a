// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mapping

import (
	"reflect"
	"slices"
)

// Options selects the declared spec, the resolved mapping, and the
// direction of a translation.
type Options struct {
	// Spec is the widget's declaration. Nil disables mapping entirely.
	Spec *Spec

	// Mapping is the host's assignment. Nil means not resolved yet.
	Mapping ColumnMapping

	// Reverse translates widget-named records back to host columns.
	Reverse bool
}

// copyOp moves one field from a source record into a destination
// record.
type copyOp func(from, to Record)

// MapRecord translates a single record. See the package documentation
// for the meaning of the boolean result.
func MapRecord(record Record, options Options) (Record, bool) {
	if options.Spec == nil {
		return record, true
	}
	ops, ok := plan(options)
	if !ok {
		return nil, false
	}
	return apply(record, ops), true
}

// MapRecords translates every record with one shared plan. An empty
// input is returned unchanged even when no mapping is resolved.
func MapRecords(records []Record, options Options) ([]Record, bool) {
	if options.Spec == nil || len(records) == 0 {
		return records, true
	}
	ops, ok := plan(options)
	if !ok {
		return nil, false
	}
	mapped := make([]Record, len(records))
	for i, record := range records {
		mapped[i] = apply(record, ops)
	}
	return mapped, true
}

func apply(record Record, ops []copyOp) Record {
	result := make(Record, len(ops))
	for _, op := range ops {
		op(record, result)
	}
	return result
}

// plan builds the copy operations for options. It fails when the
// mapping is unresolved or a required field has no assignment.
//
// Field names are visited in lexicographic order over the union of
// declared names and mapping keys, so when two reverse operations write
// the same host column the later name wins deterministically.
func plan(options Options) ([]copyOp, bool) {
	if options.Mapping == nil {
		return nil, false
	}

	names := options.Spec.Names()
	for name := range options.Mapping {
		names = append(names, name)
	}
	slices.Sort(names)
	names = slices.Compact(names)

	ops := []copyOp{copyField(IDField, IDField)}
	for _, name := range names {
		target := options.Mapping[name]
		if series, ok := target.SeriesColumns(); ok {
			if options.Reverse {
				ops = append(ops, scatterSeries(name, series))
			} else {
				ops = append(ops, gatherSeries(series, name))
			}
			continue
		}
		if column, ok := target.Column(); ok {
			if options.Reverse {
				ops = append(ops, copyField(name, column))
			} else {
				ops = append(ops, copyField(column, name))
			}
			continue
		}
		// Undeclared names carry no requirement.
		if declared, ok := options.Spec.Lookup(name); ok && !declared.Optional {
			return nil, false
		}
	}
	return ops, true
}

func copyField(from, to string) copyOp {
	return func(source, destination Record) {
		if value, ok := source[from]; ok {
			destination[to] = value
		}
	}
}

// gatherSeries builds a positional list from several host columns.
// Absent columns leave nil in their position.
func gatherSeries(columns []string, to string) copyOp {
	return func(source, destination Record) {
		values := make([]any, len(columns))
		for i, column := range columns {
			values[i] = source[column]
		}
		destination[to] = values
	}
}

// scatterSeries distributes a positional list back to host columns.
func scatterSeries(from string, columns []string) copyOp {
	return func(source, destination Record) {
		values := asList(source[from])
		for i, column := range columns {
			if i >= len(values) {
				return
			}
			destination[column] = values[i]
		}
	}
}

func asList(value any) []any {
	switch typed := value.(type) {
	case nil:
		return nil
	case []any:
		return typed
	}
	reflected := reflect.ValueOf(value)
	if reflected.Kind() != reflect.Slice && reflected.Kind() != reflect.Array {
		return nil
	}
	list := make([]any, reflected.Len())
	for i := range list {
		list[i] = reflected.Index(i).Interface()
	}
	return list
}
