// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

// TableOptions qualifies a table write.
type TableOptions struct {
	// MapBack translates widget-named records to host columns before
	// writing. Fails when the mapping is incomplete.
	MapBack bool
}

// TableOperations writes to the table the widget is bound to. The
// table is resolved at each call, so operations follow the binding.
type TableOperations struct {
	widget *Widget
}

// SelectedTable returns write operations on the bound table.
func (w *Widget) SelectedTable() *TableOperations {
	return &TableOperations{widget: w}
}

func (t *TableOperations) tableID() (string, error) {
	tableID, ok := t.widget.SelectedTableID()
	if !ok {
		return "", ErrNoSelectedTable
	}
	return tableID, nil
}

func (t *TableOperations) prepare(ctx context.Context, records []mapping.Record, options TableOptions) ([]mapping.Record, error) {
	if !options.MapBack {
		return records, nil
	}
	columns, err := t.widget.cache.RefreshIfNeeded(ctx, false)
	if err != nil {
		return nil, err
	}
	mapped, ok := mapping.MapRecords(records, mapping.Options{
		Spec:    t.widget.coordinator.Spec(),
		Mapping: columns,
		Reverse: true,
	})
	if !ok {
		return nil, fmt.Errorf("cannot map records back: column mapping incomplete")
	}
	return mapped, nil
}

func (t *TableOperations) apply(ctx context.Context, actions ...protocol.UserAction) (protocol.ApplyResult, error) {
	var result protocol.ApplyResult
	err := t.widget.document.Call(ctx, protocol.MethodApplyUserActions, &result, actions)
	return result, err
}

// Create adds records and returns the ids the document assigned.
func (t *TableOperations) Create(ctx context.Context, records []mapping.Record, options TableOptions) ([]int64, error) {
	tableID, err := t.tableID()
	if err != nil {
		return nil, err
	}
	records, err = t.prepare(ctx, records, options)
	if err != nil {
		return nil, err
	}

	result, err := t.apply(ctx, protocol.BulkAddRecord(tableID, records))
	if err != nil {
		return nil, err
	}
	if len(result.RetValues) == 0 {
		return nil, fmt.Errorf("%s returned no row ids", protocol.ActionBulkAddRecord)
	}
	values, ok := result.RetValues[0].([]any)
	if !ok {
		return nil, fmt.Errorf("%s returned %T, want a list of row ids", protocol.ActionBulkAddRecord, result.RetValues[0])
	}
	ids := make([]int64, len(values))
	for i, value := range values {
		id, ok := mapping.Record{mapping.IDField: value}.ID()
		if !ok {
			return nil, fmt.Errorf("%s returned non-integer row id %v", protocol.ActionBulkAddRecord, value)
		}
		ids[i] = id
	}
	return ids, nil
}

// Update writes records, each identified by its id field.
func (t *TableOperations) Update(ctx context.Context, records []mapping.Record, options TableOptions) error {
	tableID, err := t.tableID()
	if err != nil {
		return err
	}
	records, err = t.prepare(ctx, records, options)
	if err != nil {
		return err
	}
	action, err := protocol.BulkUpdateRecord(tableID, records)
	if err != nil {
		return err
	}
	_, err = t.apply(ctx, action)
	return err
}

// Destroy removes rows by id.
func (t *TableOperations) Destroy(ctx context.Context, rowIDs []int64) error {
	tableID, err := t.tableID()
	if err != nil {
		return err
	}
	_, err = t.apply(ctx, protocol.BulkRemoveRecord(tableID, rowIDs))
	return err
}
