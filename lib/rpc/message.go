// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"fmt"

	"github.com/bureau-foundation/bureau-widget/lib/codec"
)

// MessageType discriminates envelope kinds.
type MessageType string

const (
	// TypeCall invokes Method on Interface with Args.
	TypeCall MessageType = "call"

	// TypeResponse answers the call with the same RequestID. Data holds
	// the encoded result; Error is non-empty on failure.
	TypeResponse MessageType = "response"

	// TypeCustom carries an application notification in Data.
	TypeCustom MessageType = "custom"

	// TypeReady announces that the sender is processing messages.
	TypeReady MessageType = "ready"
)

// EventMessage is the event name under which custom notifications are
// delivered to handlers registered with Channel.On.
const EventMessage = "message"

// funcMethod is the method name used when a single function is
// registered under an interface name with Channel.RegisterFunc.
const funcMethod = "invoke"

// Message is the wire envelope exchanged between widget and host.
type Message struct {
	Type      MessageType      `cbor:"type"`
	RequestID uint64           `cbor:"request_id,omitempty"`
	Interface string           `cbor:"interface,omitempty"`
	Method    string           `cbor:"method,omitempty"`
	Args      codec.RawMessage `cbor:"args,omitempty"`
	Data      codec.RawMessage `cbor:"data,omitempty"`
	Error     string           `cbor:"error,omitempty"`
	ErrorCode string           `cbor:"error_code,omitempty"`
}

// Encode serializes the envelope.
func (m *Message) Encode() ([]byte, error) {
	data, err := codec.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", m.Type, err)
	}
	return data, nil
}

// DecodeMessage parses an envelope produced by Message.Encode.
func DecodeMessage(data []byte) (*Message, error) {
	var message Message
	if err := codec.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	if message.Type == "" {
		return nil, fmt.Errorf("decoding envelope: missing type")
	}
	return &message, nil
}

// String summarizes the envelope for log lines.
func (m *Message) String() string {
	switch m.Type {
	case TypeCall:
		return fmt.Sprintf("call#%d %s.%s", m.RequestID, m.Interface, m.Method)
	case TypeResponse:
		if m.Error != "" {
			return fmt.Sprintf("response#%d error=%q", m.RequestID, m.Error)
		}
		return fmt.Sprintf("response#%d", m.RequestID)
	default:
		return string(m.Type)
	}
}
