// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package widget is the entry point for widget authors. A [Widget]
// owns a channel to the host, a transport selected for the hosting
// context, the handshake, the column-mapping cache, and the event
// dispatcher. There is one Widget per process.
//
//	w, err := widget.New(widget.Options{})
//	if err != nil {
//		return err
//	}
//	w.OnRecord(func(ctx context.Context, record mapping.Record, columns mapping.ColumnMapping) {
//		...
//	}, dispatch.RecordOptions{MapColumns: true})
//	w.Ready(&handshake.Settings{
//		RequiredAccess: protocol.AccessReadOnly,
//		Columns:        []mapping.Column{mapping.Required("Name")},
//	})
//
// Register callbacks before calling Ready: notifications queued while
// the widget starts are delivered as soon as it declares readiness.
package widget
