// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devhost

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/bureau-foundation/bureau-widget/lib/rpc"
	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
	"github.com/bureau-foundation/bureau-widget/widget/transport"
)

// Options configures a Host.
type Options struct {
	// AccessLevel is reported in settings on options notifications.
	// Empty uses protocol.AccessFull.
	AccessLevel string

	// Logger is the host's logger. Nil uses slog.Default().
	Logger *slog.Logger
}

// Host is the host side of one widget connection. It owns a small
// in-memory document and answers the widget's document, view, options
// and function-call requests against it, the way a spreadsheet host
// would. Tests and the bureau-widget-host binary drive it through the
// Select and Set methods, which change host state and then notify the
// widget exactly as a real host does after a user action.
//
// A Host is safe for concurrent use. Widget requests are served on the
// channel's goroutines while drivers run on the caller's.
type Host struct {
	channel     *rpc.Channel
	logger      *slog.Logger
	accessLevel string

	mu              sync.Mutex
	document        *document
	selectedTable   string
	selectedRow     *protocol.RowRef
	mappings        mapping.ColumnMapping
	options         map[string]any
	configuration   *protocol.Configuration
	cursor          protocol.CursorPos
	selectedRows    []int64
	selectByAllowed bool

	configured     chan struct{}
	configuredOnce sync.Once
}

// New serves a widget reachable through port. Handlers are registered
// before incoming messages are processed, so a widget that announces
// ready and calls back immediately never sees an unknown method.
// Tables added later with AddTable are visible to requests that arrive
// after the call returns.
func New(port transport.Port, options Options) *Host {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	accessLevel := options.AccessLevel
	if accessLevel == "" {
		accessLevel = protocol.AccessFull
	}

	channel := rpc.NewChannel(logger)
	h := &Host{
		channel:     channel,
		logger:      logger,
		accessLevel: accessLevel,
		document:    newDocument(),
		configured:  make(chan struct{}),
	}

	channel.RegisterImplementation(protocol.ViewInterface, rpc.Methods{
		protocol.MethodFetchSelectedTable:  h.fetchSelectedTable,
		protocol.MethodFetchSelectedRecord: h.fetchSelectedRecord,
		protocol.MethodSetCursorPos:        h.setCursorPos,
		protocol.MethodSetSelectedRows:     h.setSelectedRows,
		protocol.MethodAllowSelectBy:       h.allowSelectBy,
	})
	channel.RegisterImplementation(protocol.SectionInterface, rpc.Methods{
		protocol.MethodMappings:  h.currentMappings,
		protocol.MethodConfigure: h.configure,
	})
	channel.RegisterImplementation(protocol.OptionsInterface, rpc.Methods{
		protocol.MethodGetOption:    h.getOption,
		protocol.MethodSetOption:    h.setOption,
		protocol.MethodGetOptions:   h.getOptions,
		protocol.MethodSetOptions:   h.setOptions,
		protocol.MethodClearOptions: h.clearOptions,
	})
	channel.RegisterImplementation(protocol.DocumentInterface, rpc.Methods{
		protocol.MethodApplyUserActions: h.applyUserActions,
		protocol.MethodFetchTable:       h.fetchTable,
		protocol.MethodListTables:       h.listTables,
	})

	channel.SetSendMessage(func(message *rpc.Message) error {
		data, err := message.Encode()
		if err != nil {
			return err
		}
		return port.PostMessage(data)
	})
	port.OnMessage(channel.ReceiveBytes)
	channel.ProcessIncoming()
	return h
}

// Close fails pending calls to the widget.
func (h *Host) Close() {
	h.channel.Close()
}

// WaitReady blocks until the widget has announced readiness.
//
// The widget's channel holds envelopes that arrive before it starts
// processing, so an early notification is not lost, but subscriptions
// made after ready would miss it. Drivers that expect the widget to
// react should wait first, as the bureau-widget-host session does
// before selecting its first table.
func (h *Host) WaitReady(ctx context.Context) error {
	select {
	case <-h.channel.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Configuration blocks until the widget has sent its configuration and
// returns it.
func (h *Host) Configuration(ctx context.Context) (protocol.Configuration, error) {
	select {
	case <-h.configured:
	case <-ctx.Done():
		return protocol.Configuration{}, ctx.Err()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return *h.configuration, nil
}

// AddTable adds or replaces a table in the document. Rows without an id
// column are numbered from 1.
func (h *Host) AddTable(tableID string, table protocol.TableData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.document.put(tableID, table)
}

// HideColumns marks columns of a table as not shown in the widget's
// section. Fetches with protocol.IncludeShown omit them.
func (h *Host) HideColumns(tableID string, columns ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.document.hide(tableID, columns...)
}

// Table returns a copy of a table.
func (h *Host) Table(tableID string) (protocol.TableData, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.document.get(tableID, protocol.IncludeAll)
}

// Cursor returns the last cursor position the widget set.
func (h *Host) Cursor() protocol.CursorPos {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// SelectedRows returns the last row selection the widget set; nil when
// cleared.
func (h *Host) SelectedRows() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.selectedRows)
}

// SelectByAllowed reports whether the widget called allowSelectBy.
func (h *Host) SelectByAllowed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selectByAllowed
}

// StoredOptions returns a copy of the widget's options.
func (h *Host) StoredOptions() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return maps.Clone(h.options)
}

// SelectTable binds the widget to a table and announces its data.
//
// This is the host-side equivalent of the user pointing a section at
// a table. The notification carries the table id with a data change
// and no row, so the widget resolves its binding, fetches the records
// and subscribers of whole-table changes run. Any previous row
// selection is cleared. An unknown table is an error and nothing is
// posted.
func (h *Host) SelectTable(ctx context.Context, tableID string) error {
	h.mu.Lock()
	if !h.document.has(tableID) {
		h.mu.Unlock()
		return fmt.Errorf("no table %q", tableID)
	}
	h.selectedTable = tableID
	h.selectedRow = nil
	h.mu.Unlock()

	h.logger.Info("selecting table", "table_id", tableID)
	return h.post(ctx, protocol.Message{TableID: tableID, DataChange: true})
}

// SelectRow moves the selection to a row of the selected table.
//
// The row must exist. Selecting a row that the widget has not seen is
// a host bug and would make the widget fetch a record that is not
// there, so it is rejected before anything is posted. Record
// subscribers run when the notification arrives.
func (h *Host) SelectRow(ctx context.Context, rowID int64) error {
	h.mu.Lock()
	tableID := h.selectedTable
	if tableID == "" {
		h.mu.Unlock()
		return fmt.Errorf("no table selected")
	}
	if _, ok := h.document.row(tableID, rowID, protocol.IncludeAll); !ok {
		h.mu.Unlock()
		return fmt.Errorf("table %q has no row %d", tableID, rowID)
	}
	h.selectedRow = protocol.RowID(rowID)
	h.mu.Unlock()

	return h.post(ctx, protocol.Message{TableID: tableID, RowID: protocol.RowID(rowID)})
}

// SelectNewRow moves the selection to the add-row placeholder.
func (h *Host) SelectNewRow(ctx context.Context) error {
	h.mu.Lock()
	tableID := h.selectedTable
	if tableID == "" {
		h.mu.Unlock()
		return fmt.Errorf("no table selected")
	}
	h.selectedRow = protocol.NewRow()
	h.mu.Unlock()

	return h.post(ctx, protocol.Message{TableID: tableID, RowID: protocol.NewRow()})
}

// NotifyDataChange tells the widget the selected table's data changed.
//
// Call it after editing the document directly, for example after
// AddTable replaced the selected table. Actions the widget applies
// through applyUserActions notify on their own. The current row
// selection is repeated so record subscribers refetch too.
func (h *Host) NotifyDataChange(ctx context.Context) error {
	h.mu.Lock()
	tableID, row := h.selectedTable, h.selectedRow
	h.mu.Unlock()
	if tableID == "" {
		return fmt.Errorf("no table selected")
	}
	return h.post(ctx, protocol.Message{TableID: tableID, RowID: row, DataChange: true})
}

// SetMappings reassigns columns and tells the widget. The notification
// repeats the current selection so the widget can redraw it.
func (h *Host) SetMappings(ctx context.Context, columns mapping.ColumnMapping) error {
	h.mu.Lock()
	h.mappings = columns.Clone()
	tableID, row := h.selectedTable, h.selectedRow
	h.mu.Unlock()

	h.logger.Info("column mapping changed", "fields", len(columns))
	return h.post(ctx, protocol.Message{
		TableID:        tableID,
		RowID:          row,
		DataChange:     tableID != "",
		MappingsChange: true,
	})
}

// SetOptions replaces the widget's options and notifies it.
func (h *Host) SetOptions(ctx context.Context, options map[string]any) error {
	h.mu.Lock()
	h.options = maps.Clone(options)
	h.mu.Unlock()
	return h.notifyOptions(ctx)
}

// EditOptions invokes the widget's options editor.
func (h *Host) EditOptions(ctx context.Context) error {
	return h.channel.CallFunc(ctx, protocol.FuncEditOptions, nil)
}

// Print asks the widget to print its frame.
func (h *Host) Print(ctx context.Context) error {
	return h.channel.CallFunc(ctx, protocol.FuncPrint, nil)
}

func (h *Host) notifyOptions(ctx context.Context) error {
	h.mu.Lock()
	var options map[string]any
	if len(h.options) > 0 {
		options = maps.Clone(h.options)
	}
	h.mu.Unlock()
	return h.post(ctx, protocol.Message{
		Options:  options,
		Settings: map[string]any{"access_level": h.accessLevel},
	})
}

func (h *Host) post(ctx context.Context, message protocol.Message) error {
	if err := h.channel.PostMessage(ctx, message); err != nil {
		return fmt.Errorf("notifying widget: %w", err)
	}
	return nil
}
