// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"strconv"

	"github.com/bureau-foundation/bureau-widget/lib/codec"
)

// Message is the notification payload the host posts whenever the
// widget's selection, data, mapping, or options change. Fields the host
// has nothing to say about are absent.
type Message struct {
	// TableID is the table the widget is bound to.
	TableID string `json:"table_id,omitempty"`

	// RowID is the selected row, or the add-row placeholder.
	RowID *RowRef `json:"row_id,omitempty"`

	// DataChange reports that rows of the table changed.
	DataChange bool `json:"data_change,omitempty"`

	// MappingsChange reports that the user reassigned columns.
	MappingsChange bool `json:"mappings_change,omitempty"`

	// Settings is present on options notifications. It carries host
	// settings such as the widget's granted access level.
	Settings map[string]any `json:"settings"`

	// Options is the widget's stored options on an options
	// notification; nil when none are stored.
	Options map[string]any `json:"options"`
}

// DecodeMessage decodes a notification payload. Payloads that are not
// maps (a widget may post arbitrary values to itself) fail.
func DecodeMessage(data []byte) (*Message, error) {
	var message Message
	if err := codec.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("decoding host notification: %w", err)
	}
	return &message, nil
}

// newRowLiteral is how the add-row placeholder travels on the wire.
const newRowLiteral = "new"

// RowRef identifies a selected row: either a concrete positive row id
// or the placeholder row used for adding records.
type RowRef struct {
	id    int64
	isNew bool
}

// RowID refers to a concrete row.
func RowID(id int64) *RowRef {
	return &RowRef{id: id}
}

// NewRow refers to the add-row placeholder.
func NewRow() *RowRef {
	return &RowRef{isNew: true}
}

// ID returns the concrete row id. Zero and negative ids do not refer to
// a row.
func (r *RowRef) ID() (int64, bool) {
	if r == nil || r.isNew || r.id <= 0 {
		return 0, false
	}
	return r.id, true
}

// IsNew reports whether r is the add-row placeholder.
func (r *RowRef) IsNew() bool {
	return r != nil && r.isNew
}

func (r *RowRef) String() string {
	switch {
	case r == nil:
		return "<none>"
	case r.isNew:
		return newRowLiteral
	default:
		return strconv.FormatInt(r.id, 10)
	}
}

// MarshalCBOR encodes the row as an integer or the text "new".
func (r RowRef) MarshalCBOR() ([]byte, error) {
	if r.isNew {
		return codec.Marshal(newRowLiteral)
	}
	return codec.Marshal(r.id)
}

// UnmarshalCBOR accepts an integer or the text "new".
func (r *RowRef) UnmarshalCBOR(data []byte) error {
	var value any
	if err := codec.Unmarshal(data, &value); err != nil {
		return err
	}
	switch typed := value.(type) {
	case int64:
		*r = RowRef{id: typed}
	case uint64:
		*r = RowRef{id: int64(typed)}
	case string:
		if typed != newRowLiteral {
			return fmt.Errorf("row id %q is neither an integer nor %q", typed, newRowLiteral)
		}
		*r = RowRef{isNew: true}
	default:
		return fmt.Errorf("row id has type %T", value)
	}
	return nil
}
