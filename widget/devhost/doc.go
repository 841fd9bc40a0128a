// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package devhost is an in-memory host for developing and testing
// widgets. A [Host] serves every interface a widget calls (WidgetView,
// WidgetSection, WidgetOptions, DocumentAPI) over any transport
// [transport.Port], holds a small document of columnar tables, and
// drives the widget the way a real host would: selecting tables and
// rows, changing data, reassigning columns, and editing options.
//
// Tables can be loaded from Apache Arrow IPC streams, Parquet files,
// and JSON or JSONC files; column mappings from YAML.
package devhost
