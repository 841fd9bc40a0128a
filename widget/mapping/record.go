// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mapping

import "maps"

// IDField is the row identity field present in every record, in both
// host and widget form.
const IDField = "id"

// Record is one row: field name to value, plus IDField.
type Record map[string]any

// ID returns the row id when it is an integer.
func (r Record) ID() (int64, bool) {
	switch id := r[IDField].(type) {
	case int64:
		return id, true
	case int:
		return int64(id), true
	case uint64:
		return int64(id), true
	case float64:
		return int64(id), id == float64(int64(id))
	default:
		return 0, false
	}
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	return maps.Clone(r)
}
