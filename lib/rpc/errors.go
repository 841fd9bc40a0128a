// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by calls pending or started after the
	// channel was closed.
	ErrClosed = errors.New("rpc: channel closed")

	// ErrUnknownInterface reports a call to an interface the peer never
	// registered.
	ErrUnknownInterface = errors.New("rpc: unknown interface")

	// ErrUnknownMethod reports a call to a method the interface does
	// not implement.
	ErrUnknownMethod = errors.New("rpc: unknown method")

	// ErrMissingArgument is returned by Args.Decode for an index past
	// the end of the argument list.
	ErrMissingArgument = errors.New("rpc: missing argument")

	// ErrNotConnected is returned when a message is sent before an
	// outbound hook was installed.
	ErrNotConnected = errors.New("rpc: no outbound hook installed")
)

// Wire error codes. Codes let errors.Is work across the channel for the
// failures the channel itself produces.
const (
	codeUnknownInterface = "unknown_interface"
	codeUnknownMethod    = "unknown_method"
	codeBadRequest       = "bad_request"
	codeFailed           = "failed"
)

// CallError is returned by Stub.Call when the peer answered with an
// error. Callers can use errors.As to inspect it:
//
//	var callErr *rpc.CallError
//	if errors.As(err, &callErr) {
//	    logger.Warn("host rejected call", "method", callErr.Method)
//	}
type CallError struct {
	Interface string
	Method    string
	Message   string
	Code      string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("rpc: %s.%s failed: %s", e.Interface, e.Method, e.Message)
}

// Unwrap maps channel-level error codes back to their sentinels.
func (e *CallError) Unwrap() error {
	switch e.Code {
	case codeUnknownInterface:
		return ErrUnknownInterface
	case codeUnknownMethod:
		return ErrUnknownMethod
	case codeBadRequest:
		return ErrMissingArgument
	default:
		return nil
	}
}

// errorCode picks the wire code for an implementation error.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownInterface):
		return codeUnknownInterface
	case errors.Is(err, ErrUnknownMethod):
		return codeUnknownMethod
	case errors.Is(err, ErrMissingArgument):
		return codeBadRequest
	default:
		return codeFailed
	}
}
