// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "errors"

// ErrPortClosed is returned when posting to a closed port.
var ErrPortClosed = errors.New("transport: port closed")

// Port is a bidirectional message endpoint. Each PostMessage delivers
// one message to the peer's handlers, in order.
//
// Handlers run on the port's delivery goroutine, never inside
// PostMessage.
type Port interface {
	PostMessage(data []byte) error
	OnMessage(handler func(data []byte))
}

// FramePort is a parent window: posting takes a target origin
// restricting which documents may receive the message.
type FramePort interface {
	PostMessage(data []byte, targetOrigin string) error
	OnMessage(handler func(data []byte))
}

// Disconnecter is implemented by ports that can tell when the peer has
// gone away.
type Disconnecter interface {
	Done() <-chan struct{}
}

// originIgnoringPort presents a Port as a FramePort. Stream and
// in-process ports reach exactly one peer, so the origin has nothing to
// restrict.
type originIgnoringPort struct {
	Port
}

// AsFramePort adapts a Port to serve as a parent window.
func AsFramePort(port Port) FramePort {
	return originIgnoringPort{Port: port}
}

func (p originIgnoringPort) PostMessage(data []byte, targetOrigin string) error {
	return p.Port.PostMessage(data)
}

// Unwrap returns the adapted port.
func (p originIgnoringPort) Unwrap() Port {
	return p.Port
}
