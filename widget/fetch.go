// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import (
	"context"

	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

// FetchOptions qualifies FetchSelectedTable and FetchSelectedRecord.
type FetchOptions struct {
	// IncludeColumns is protocol.IncludeShown or protocol.IncludeAll.
	// Empty uses the configured default.
	IncludeColumns string

	// KeepEncoded requests raw cell encodings.
	KeepEncoded bool

	// Raw skips column mapping even when a spec is declared.
	Raw bool
}

func (w *Widget) protocolOptions(options FetchOptions) protocol.FetchOptions {
	include := options.IncludeColumns
	if include == "" {
		include = w.includeColumns
	}
	return protocol.FetchOptions{IncludeColumns: include, KeepEncoded: options.KeepEncoded}
}

// FetchSelectedTable returns every row of the bound table, in id order.
// With a declared spec the rows are mapped; they are nil while the
// mapping is incomplete.
func (w *Widget) FetchSelectedTable(ctx context.Context, options FetchOptions) ([]mapping.Record, error) {
	table, err := hostSource{w}.FetchSelectedTable(ctx, w.protocolOptions(options))
	if err != nil {
		return nil, err
	}
	rows := table.Rows()
	spec := w.coordinator.Spec()
	if options.Raw || spec == nil {
		return rows, nil
	}
	columns, err := w.cache.RefreshIfNeeded(ctx, false)
	if err != nil {
		return nil, err
	}
	mapped, _ := mapping.MapRecords(rows, mapping.Options{Spec: spec, Mapping: columns})
	return mapped, nil
}

// FetchSelectedRecord returns one row of the bound table, mapped like
// FetchSelectedTable.
func (w *Widget) FetchSelectedRecord(ctx context.Context, rowID int64, options FetchOptions) (mapping.Record, error) {
	record, err := hostSource{w}.FetchSelectedRecord(ctx, rowID, w.protocolOptions(options))
	if err != nil {
		return nil, err
	}
	spec := w.coordinator.Spec()
	if options.Raw || spec == nil {
		return record, nil
	}
	columns, err := w.cache.RefreshIfNeeded(ctx, false)
	if err != nil {
		return nil, err
	}
	mapped, _ := mapping.MapRecord(record, mapping.Options{Spec: spec, Mapping: columns})
	return mapped, nil
}

// FetchTable reads any table of the document in columnar form.
func (w *Widget) FetchTable(ctx context.Context, tableID string) (protocol.TableData, error) {
	var table protocol.TableData
	if err := w.document.Call(ctx, protocol.MethodFetchTable, &table, tableID); err != nil {
		return nil, err
	}
	return table, nil
}

// ListTables returns the ids of the document's tables.
func (w *Widget) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	if err := w.document.Call(ctx, protocol.MethodListTables, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// hostSource serves the dispatcher unmapped rows from the host.
type hostSource struct {
	widget *Widget
}

func (s hostSource) FetchSelectedRecord(ctx context.Context, rowID int64, options protocol.FetchOptions) (mapping.Record, error) {
	var record mapping.Record
	if err := s.widget.view.Call(ctx, protocol.MethodFetchSelectedRecord, &record, rowID, options); err != nil {
		return nil, err
	}
	return record, nil
}

func (s hostSource) FetchSelectedTable(ctx context.Context, options protocol.FetchOptions) (protocol.TableData, error) {
	var table protocol.TableData
	if err := s.widget.view.Call(ctx, protocol.MethodFetchSelectedTable, &table, options); err != nil {
		return nil, err
	}
	return table, nil
}
