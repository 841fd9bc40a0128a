// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"

	"github.com/bureau-foundation/bureau-widget/widget/mapping"
)

// User action names understood by DocumentAPI.applyUserActions.
const (
	ActionBulkAddRecord    = "BulkAddRecord"
	ActionBulkUpdateRecord = "BulkUpdateRecord"
	ActionBulkRemoveRecord = "BulkRemoveRecord"
)

// UserAction is one document action: the action name followed by its
// positional arguments.
type UserAction []any

// Name returns the action name.
func (a UserAction) Name() string {
	if len(a) == 0 {
		return ""
	}
	name, _ := a[0].(string)
	return name
}

// BulkAddRecord adds rows. ids holds nil for each row the document
// should assign an id to. The id field of records is ignored.
func BulkAddRecord(tableID string, records []mapping.Record) UserAction {
	ids := make([]any, len(records))
	for i, record := range records {
		if id, ok := record.ID(); ok {
			ids[i] = id
		}
	}
	return UserAction{ActionBulkAddRecord, tableID, ids, columnValues(records)}
}

// BulkUpdateRecord updates rows identified by their id field.
func BulkUpdateRecord(tableID string, records []mapping.Record) (UserAction, error) {
	ids := make([]any, len(records))
	for i, record := range records {
		id, ok := record.ID()
		if !ok {
			return nil, fmt.Errorf("record %d has no integer id", i)
		}
		ids[i] = id
	}
	return UserAction{ActionBulkUpdateRecord, tableID, ids, columnValues(records)}, nil
}

// BulkRemoveRecord removes rows by id.
func BulkRemoveRecord(tableID string, ids []int64) UserAction {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return UserAction{ActionBulkRemoveRecord, tableID, values}
}

// columnValues gathers non-id fields into columnar form. A field
// missing from some records holds nil for them.
func columnValues(records []mapping.Record) map[string]any {
	names := make(map[string]struct{})
	for _, record := range records {
		for name := range record {
			if name != mapping.IDField {
				names[name] = struct{}{}
			}
		}
	}
	columns := make(map[string]any, len(names))
	for name := range names {
		values := make([]any, len(records))
		for i, record := range records {
			values[i] = record[name]
		}
		columns[name] = values
	}
	return columns
}
