// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"fmt"

	"github.com/bureau-foundation/bureau-widget/lib/codec"
)

// Args is the positional argument list of an inbound call. Each element
// stays encoded until the implementation decodes it into the type it
// expects.
type Args struct {
	items []codec.RawMessage
}

// NewArgs encodes values as an argument list. Used by tests and by
// in-process callers that invoke an Implementation directly.
func NewArgs(values ...any) (Args, error) {
	items := make([]codec.RawMessage, len(values))
	for i, value := range values {
		encoded, err := codec.Marshal(value)
		if err != nil {
			return Args{}, fmt.Errorf("encoding argument %d: %w", i, err)
		}
		items[i] = encoded
	}
	return Args{items: items}, nil
}

func decodeArgs(raw codec.RawMessage) (Args, error) {
	if len(raw) == 0 {
		return Args{}, nil
	}
	var items []codec.RawMessage
	if err := codec.Unmarshal(raw, &items); err != nil {
		return Args{}, fmt.Errorf("decoding arguments: %w", err)
	}
	return Args{items: items}, nil
}

func encodeArgs(values []any) (codec.RawMessage, error) {
	if values == nil {
		values = []any{}
	}
	encoded, err := codec.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encoding arguments: %w", err)
	}
	return encoded, nil
}

// Len returns the number of arguments supplied.
func (a Args) Len() int { return len(a.items) }

// Decode decodes argument index into target. Returns an error wrapping
// ErrMissingArgument when the caller supplied fewer arguments.
func (a Args) Decode(index int, target any) error {
	if index < 0 || index >= len(a.items) {
		return fmt.Errorf("argument %d: %w", index, ErrMissingArgument)
	}
	if err := codec.Unmarshal(a.items[index], target); err != nil {
		return fmt.Errorf("argument %d: %w", index, err)
	}
	return nil
}

// DecodeOptional decodes argument index into target when present.
// Reports whether the argument was supplied.
func (a Args) DecodeOptional(index int, target any) (bool, error) {
	if index < 0 || index >= len(a.items) {
		return false, nil
	}
	if err := codec.Unmarshal(a.items[index], target); err != nil {
		return true, fmt.Errorf("argument %d: %w", index, err)
	}
	return true, nil
}
