// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "github.com/bureau-foundation/bureau-widget/widget/mapping"

// Access levels a widget may request.
const (
	AccessNone     = "none"
	AccessReadOnly = "read table"
	AccessFull     = "full"
)

// Configuration is the argument of WidgetSection.configure: what the
// widget declared about itself at handshake.
type Configuration struct {
	RequiredAccess   string           `json:"required_access,omitempty"`
	Columns          []mapping.Column `json:"columns,omitempty"`
	AllowSelectBy    bool             `json:"allow_select_by,omitempty"`
	HasCustomOptions bool             `json:"has_custom_options"`
}

// CursorPos is the argument of WidgetView.setCursorPos.
type CursorPos struct {
	// RowID moves the cursor to this row when non-zero.
	RowID int64 `json:"row_id,omitempty"`

	// FieldIndex moves the cursor to this field of the section when
	// set.
	FieldIndex *int `json:"field_index,omitempty"`
}

// ApplyResult is the result of DocumentAPI.applyUserActions: one
// return value per action. BulkAddRecord returns the new row ids.
type ApplyResult struct {
	RetValues []any `json:"ret_values"`
}
