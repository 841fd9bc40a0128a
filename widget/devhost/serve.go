// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devhost

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/bureau-foundation/bureau-widget/lib/rpc"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

var errNoTableSelected = errors.New("no table selected")

func decodeFetchOptions(args rpc.Args, index int) (protocol.FetchOptions, error) {
	var options protocol.FetchOptions
	if _, err := args.DecodeOptional(index, &options); err != nil {
		return options, err
	}
	if options.IncludeColumns == "" {
		options.IncludeColumns = protocol.IncludeShown
	}
	return options, nil
}

func (h *Host) fetchSelectedTable(ctx context.Context, args rpc.Args) (any, error) {
	options, err := decodeFetchOptions(args, 0)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.selectedTable == "" {
		return nil, errNoTableSelected
	}
	table, _ := h.document.get(h.selectedTable, options.IncludeColumns)
	return table, nil
}

func (h *Host) fetchSelectedRecord(ctx context.Context, args rpc.Args) (any, error) {
	var rowID int64
	if err := args.Decode(0, &rowID); err != nil {
		return nil, err
	}
	options, err := decodeFetchOptions(args, 1)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.selectedTable == "" {
		return nil, errNoTableSelected
	}
	record, ok := h.document.row(h.selectedTable, rowID, options.IncludeColumns)
	if !ok {
		return nil, fmt.Errorf("table %q has no row %d", h.selectedTable, rowID)
	}
	return record, nil
}

func (h *Host) setCursorPos(ctx context.Context, args rpc.Args) (any, error) {
	var position protocol.CursorPos
	if err := args.Decode(0, &position); err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.cursor = position
	h.mu.Unlock()
	return nil, nil
}

func (h *Host) setSelectedRows(ctx context.Context, args rpc.Args) (any, error) {
	var rowIDs []int64
	if err := args.Decode(0, &rowIDs); err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.selectedRows = rowIDs
	h.mu.Unlock()
	return nil, nil
}

func (h *Host) allowSelectBy(ctx context.Context, args rpc.Args) (any, error) {
	h.mu.Lock()
	h.selectByAllowed = true
	h.mu.Unlock()
	return nil, nil
}

func (h *Host) currentMappings(ctx context.Context, args rpc.Args) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mappings == nil {
		return nil, nil
	}
	return h.mappings.Clone(), nil
}

func (h *Host) configure(ctx context.Context, args rpc.Args) (any, error) {
	var configuration protocol.Configuration
	if err := args.Decode(0, &configuration); err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.configuration = &configuration
	h.mu.Unlock()
	h.configuredOnce.Do(func() { close(h.configured) })

	h.logger.Info("widget configured",
		"required_access", configuration.RequiredAccess,
		"columns", len(configuration.Columns),
	)
	return nil, nil
}

func (h *Host) getOption(ctx context.Context, args rpc.Args) (any, error) {
	var key string
	if err := args.Decode(0, &key); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.options[key], nil
}

func (h *Host) setOption(ctx context.Context, args rpc.Args) (any, error) {
	var key string
	var value any
	if err := args.Decode(0, &key); err != nil {
		return nil, err
	}
	if err := args.Decode(1, &value); err != nil {
		return nil, err
	}
	h.mu.Lock()
	if h.options == nil {
		h.options = make(map[string]any)
	}
	h.options[key] = value
	h.mu.Unlock()
	return nil, h.notifyOptions(ctx)
}

func (h *Host) getOptions(ctx context.Context, args rpc.Args) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.options) == 0 {
		return nil, nil
	}
	return maps.Clone(h.options), nil
}

func (h *Host) setOptions(ctx context.Context, args rpc.Args) (any, error) {
	var options map[string]any
	if err := args.Decode(0, &options); err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.options = options
	h.mu.Unlock()
	return nil, h.notifyOptions(ctx)
}

func (h *Host) clearOptions(ctx context.Context, args rpc.Args) (any, error) {
	h.mu.Lock()
	h.options = nil
	h.mu.Unlock()
	return nil, h.notifyOptions(ctx)
}

func (h *Host) fetchTable(ctx context.Context, args rpc.Args) (any, error) {
	var tableID string
	if err := args.Decode(0, &tableID); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	table, ok := h.document.get(tableID, protocol.IncludeAll)
	if !ok {
		return nil, fmt.Errorf("no table %q", tableID)
	}
	return table, nil
}

func (h *Host) listTables(ctx context.Context, args rpc.Args) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.document.tableIDs(), nil
}

func (h *Host) applyUserActions(ctx context.Context, args rpc.Args) (any, error) {
	var actions []protocol.UserAction
	if err := args.Decode(0, &actions); err != nil {
		return nil, err
	}

	h.mu.Lock()
	result := protocol.ApplyResult{RetValues: make([]any, 0, len(actions))}
	touched := false
	for i, action := range actions {
		value, tableID, err := h.document.apply(action)
		if err != nil {
			h.mu.Unlock()
			return nil, fmt.Errorf("action %d (%s): %w", i, action.Name(), err)
		}
		result.RetValues = append(result.RetValues, value)
		touched = touched || tableID == h.selectedTable
	}
	tableID, row := h.selectedTable, h.selectedRow
	h.mu.Unlock()

	h.logger.Info("applied user actions", "count", len(actions))
	if touched {
		if err := h.post(ctx, protocol.Message{TableID: tableID, RowID: row, DataChange: true}); err != nil {
			h.logger.Warn("data change notification failed", "error", err)
		}
	}
	return result, nil
}
