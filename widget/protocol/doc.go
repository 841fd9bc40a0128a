// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the names and payloads exchanged between a
// widget and its host over an [rpc.Channel]: the interfaces each side
// serves, the notification the host pushes when the user's selection
// or the data changes, the configuration a widget declares at
// handshake, and the columnar table form document data travels in.
//
// Payloads are CBOR maps with snake_case keys. Both the widget side
// (packages handshake, dispatch, and widget) and the development host
// (package devhost) build on these types, so a change here is a wire
// change.
//
// [rpc.Channel]: github.com/bureau-foundation/bureau-widget/lib/rpc.Channel
package protocol

// Interfaces the host serves.
const (
	// ViewInterface exposes the widget's own view of the document:
	// the selected table and row, cursor, and selection.
	ViewInterface = "WidgetView"

	// SectionInterface is the host's record of the widget's place in
	// the layout: its column mapping and declared configuration.
	SectionInterface = "WidgetSection"

	// OptionsInterface stores per-widget options.
	OptionsInterface = "WidgetOptions"

	// DocumentInterface applies user actions and reads arbitrary
	// tables.
	DocumentInterface = "DocumentAPI"
)

// WidgetView methods.
const (
	MethodFetchSelectedTable  = "fetchSelectedTable"
	MethodFetchSelectedRecord = "fetchSelectedRecord"
	MethodSetCursorPos        = "setCursorPos"
	MethodSetSelectedRows     = "setSelectedRows"
	MethodAllowSelectBy       = "allowSelectBy"
)

// WidgetSection methods.
const (
	MethodMappings  = "mappings"
	MethodConfigure = "configure"
)

// WidgetOptions methods.
const (
	MethodGetOption    = "getOption"
	MethodSetOption    = "setOption"
	MethodGetOptions   = "getOptions"
	MethodSetOptions   = "setOptions"
	MethodClearOptions = "clearOptions"
)

// DocumentAPI methods.
const (
	MethodApplyUserActions = "applyUserActions"
	MethodFetchTable       = "fetchTable"
	MethodListTables       = "listTables"
)

// Functions the widget registers for the host to invoke.
const (
	// FuncEditOptions opens the widget's own options editor.
	FuncEditOptions = "editOptions"

	// FuncPrint prints the widget's frame.
	FuncPrint = "print"
)
