// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/bureau-widget/lib/codec"
)

// Stub calls methods on one interface registered by the peer.
type Stub struct {
	channel *Channel
	name    string
}

// Name returns the interface name this stub targets.
func (s *Stub) Name() string { return s.name }

// Call invokes method with args and, when result is non-nil and the
// peer returned data, decodes the result into it.
//
// Call blocks until the response arrives, ctx is done, or the channel
// closes. A peer-side failure returns *CallError; transport and
// encoding failures are returned as plain errors.
func (s *Stub) Call(ctx context.Context, method string, result any, args ...any) error {
	encodedArgs, err := encodeArgs(args)
	if err != nil {
		return fmt.Errorf("calling %s.%s: %w", s.name, method, err)
	}

	id, waiter, err := s.channel.register()
	if err != nil {
		return fmt.Errorf("calling %s.%s: %w", s.name, method, err)
	}

	call := &Message{
		Type:      TypeCall,
		RequestID: id,
		Interface: s.name,
		Method:    method,
		Args:      encodedArgs,
	}
	if err := s.channel.sendMessage(call); err != nil {
		s.channel.forget(id)
		return fmt.Errorf("calling %s.%s: %w", s.name, method, err)
	}

	var response *Message
	select {
	case <-ctx.Done():
		s.channel.forget(id)
		return fmt.Errorf("calling %s.%s: %w", s.name, method, ctx.Err())
	case response = <-waiter:
	}
	if response == nil {
		return fmt.Errorf("calling %s.%s: %w", s.name, method, ErrClosed)
	}

	if response.Error != "" {
		return &CallError{
			Interface: s.name,
			Method:    method,
			Message:   response.Error,
			Code:      response.ErrorCode,
		}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding result of %s.%s: %w", s.name, method, err)
		}
	}
	return nil
}
