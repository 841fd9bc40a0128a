// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devhost

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

// table is one table of the document. Every column holds one cell per
// element of ids.
type table struct {
	ids     []int64
	columns map[string][]any
	hidden  map[string]bool
	nextID  int64
}

// document is the host's set of tables. It is not safe for concurrent
// use; Host guards it with its mutex.
type document struct {
	tables map[string]*table
}

func newDocument() *document {
	return &document{tables: make(map[string]*table)}
}

func (d *document) has(tableID string) bool {
	_, ok := d.tables[tableID]
	return ok
}

func (d *document) tableIDs() []string {
	ids := make([]string, 0, len(d.tables))
	for id := range d.tables {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (d *document) put(tableID string, data protocol.TableData) {
	rows := len(data[mapping.IDField])
	for _, values := range data {
		rows = max(rows, len(values))
	}

	t := &table{
		ids:     make([]int64, rows),
		columns: make(map[string][]any, len(data)),
		hidden:  make(map[string]bool),
	}
	idColumn := data[mapping.IDField]
	for i := range rows {
		row := mapping.Record{}
		if i < len(idColumn) {
			row[mapping.IDField] = idColumn[i]
		}
		id, ok := row.ID()
		if !ok || id <= 0 {
			id = int64(i + 1)
		}
		t.ids[i] = id
		t.nextID = max(t.nextID, id)
	}
	for name, values := range data {
		if name == mapping.IDField {
			continue
		}
		cells := make([]any, rows)
		copy(cells, values)
		t.columns[name] = cells
	}
	d.tables[tableID] = t
}

func (d *document) hide(tableID string, columns ...string) {
	t, ok := d.tables[tableID]
	if !ok {
		return
	}
	for _, name := range columns {
		if name != mapping.IDField {
			t.hidden[name] = true
		}
	}
}

func (t *table) visible(name, include string) bool {
	return include == protocol.IncludeAll || !t.hidden[name]
}

// get returns a copy of a table, omitting hidden columns unless include
// is protocol.IncludeAll.
func (d *document) get(tableID, include string) (protocol.TableData, bool) {
	t, ok := d.tables[tableID]
	if !ok {
		return nil, false
	}
	data := protocol.TableData{mapping.IDField: make([]any, len(t.ids))}
	for i, id := range t.ids {
		data[mapping.IDField][i] = id
	}
	for name, values := range t.columns {
		if t.visible(name, include) {
			data[name] = slices.Clone(values)
		}
	}
	return data, true
}

func (d *document) row(tableID string, rowID int64, include string) (mapping.Record, bool) {
	t, ok := d.tables[tableID]
	if !ok {
		return nil, false
	}
	index := slices.Index(t.ids, rowID)
	if index < 0 {
		return nil, false
	}
	record := mapping.Record{mapping.IDField: rowID}
	for name, values := range t.columns {
		if t.visible(name, include) {
			record[name] = values[index]
		}
	}
	return record, true
}

// apply performs one user action and returns its result value and the
// table it touched.
func (d *document) apply(action protocol.UserAction) (any, string, error) {
	if len(action) < 3 {
		return nil, "", fmt.Errorf("expected at least 3 elements, got %d", len(action))
	}
	tableID, ok := action[1].(string)
	if !ok {
		return nil, "", fmt.Errorf("table id is %T, not a string", action[1])
	}
	t, ok := d.tables[tableID]
	if !ok {
		return nil, tableID, fmt.Errorf("no table %q", tableID)
	}
	ids, ok := action[2].([]any)
	if !ok {
		return nil, tableID, fmt.Errorf("row ids are %T, not a list", action[2])
	}
	var columns map[string]any
	if len(action) > 3 && action[3] != nil {
		if columns, ok = action[3].(map[string]any); !ok {
			return nil, tableID, fmt.Errorf("column values are %T, not a map", action[3])
		}
	}

	switch action.Name() {
	case protocol.ActionBulkAddRecord:
		return t.add(ids, columns), tableID, nil
	case protocol.ActionBulkUpdateRecord:
		return nil, tableID, t.update(ids, columns)
	case protocol.ActionBulkRemoveRecord:
		return nil, tableID, t.remove(ids)
	default:
		return nil, tableID, fmt.Errorf("unsupported action %q", action.Name())
	}
}

func (t *table) add(ids []any, columns map[string]any) []any {
	assigned := make([]any, len(ids))
	for i, requested := range ids {
		id, ok := mapping.Record{mapping.IDField: requested}.ID()
		if !ok || id <= 0 || slices.Contains(t.ids, id) {
			id = t.nextID + 1
		}
		t.nextID = max(t.nextID, id)
		t.ids = append(t.ids, id)
		for name := range t.columns {
			t.columns[name] = append(t.columns[name], nil)
		}
		t.set(len(t.ids)-1, i, columns)
		assigned[i] = id
	}
	return assigned
}

func (t *table) update(ids []any, columns map[string]any) error {
	for i, requested := range ids {
		id, ok := mapping.Record{mapping.IDField: requested}.ID()
		if !ok {
			return fmt.Errorf("row id %v is not an integer", requested)
		}
		index := slices.Index(t.ids, id)
		if index < 0 {
			return fmt.Errorf("no row %d", id)
		}
		t.set(index, i, columns)
	}
	return nil
}

func (t *table) remove(ids []any) error {
	for _, requested := range ids {
		id, ok := mapping.Record{mapping.IDField: requested}.ID()
		if !ok {
			return fmt.Errorf("row id %v is not an integer", requested)
		}
		index := slices.Index(t.ids, id)
		if index < 0 {
			return fmt.Errorf("no row %d", id)
		}
		t.ids = slices.Delete(t.ids, index, index+1)
		for name, values := range t.columns {
			t.columns[name] = slices.Delete(values, index, index+1)
		}
	}
	return nil
}

// set writes the position'th value of every column in columns into row
// index. Unknown columns are created.
func (t *table) set(index, position int, columns map[string]any) {
	for name, raw := range columns {
		if name == mapping.IDField {
			continue
		}
		values, ok := raw.([]any)
		if !ok || position >= len(values) {
			continue
		}
		cells, exists := t.columns[name]
		if !exists {
			cells = make([]any, len(t.ids))
		}
		cells[index] = values[position]
		t.columns[name] = cells
	}
}
