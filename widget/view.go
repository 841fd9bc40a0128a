// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/bureau-widget/lib/codec"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

// SetCursorPos moves the host's cursor in the widget's section.
func (w *Widget) SetCursorPos(ctx context.Context, position protocol.CursorPos) error {
	return w.view.Call(ctx, protocol.MethodSetCursorPos, nil, position)
}

// SetSelectedRows selects rows in linked sections. A nil slice clears
// the selection.
func (w *Widget) SetSelectedRows(ctx context.Context, rowIDs []int64) error {
	if rowIDs == nil {
		return w.view.Call(ctx, protocol.MethodSetSelectedRows, nil, nil)
	}
	return w.view.Call(ctx, protocol.MethodSetSelectedRows, nil, rowIDs)
}

// AllowSelectBy lets other sections link to this widget's selection.
func (w *Widget) AllowSelectBy(ctx context.Context) error {
	return w.view.Call(ctx, protocol.MethodAllowSelectBy, nil)
}

// GetOption decodes the stored option key into target. It reports
// whether the option is set.
func (w *Widget) GetOption(ctx context.Context, key string, target any) (bool, error) {
	var raw codec.RawMessage
	if err := w.options.Call(ctx, protocol.MethodGetOption, &raw, key); err != nil {
		return false, err
	}
	// CBOR null (0xf6) and undefined (0xf7) mean unset.
	if len(raw) == 0 || raw[0] == 0xf6 || raw[0] == 0xf7 {
		return false, nil
	}
	if err := codec.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("decoding option %q: %w", key, err)
	}
	return true, nil
}

// SetOption stores one option.
func (w *Widget) SetOption(ctx context.Context, key string, value any) error {
	return w.options.Call(ctx, protocol.MethodSetOption, nil, key, value)
}

// GetOptions returns every stored option, or nil when none are stored.
func (w *Widget) GetOptions(ctx context.Context) (map[string]any, error) {
	var options map[string]any
	if err := w.options.Call(ctx, protocol.MethodGetOptions, &options); err != nil {
		return nil, err
	}
	return options, nil
}

// SetOptions replaces every stored option.
func (w *Widget) SetOptions(ctx context.Context, options map[string]any) error {
	return w.options.Call(ctx, protocol.MethodSetOptions, nil, options)
}

// ClearOptions removes every stored option.
func (w *Widget) ClearOptions(ctx context.Context) error {
	return w.options.Call(ctx, protocol.MethodClearOptions, nil)
}
