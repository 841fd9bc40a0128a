// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpctest connects [rpc.Channel] pairs in-process for tests of
// packages built on the channel.
package rpctest

import (
	"io"
	"log/slog"
	"testing"

	"github.com/bureau-foundation/bureau-widget/lib/rpc"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Connect wires two channels back to back until the test ends. Each
// direction has one delivery goroutine, so envelopes arrive in send
// order, and every envelope is encoded and decoded as on a stream.
func Connect(t testing.TB, left, right *rpc.Channel) {
	t.Helper()
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	left.SetSendMessage(deliverTo(right, done))
	right.SetSendMessage(deliverTo(left, done))
}

func deliverTo(destination *rpc.Channel, done <-chan struct{}) rpc.SendFunc {
	queue := make(chan []byte, 256)
	go func() {
		for {
			select {
			case data := <-queue:
				destination.ReceiveBytes(data)
			case <-done:
				return
			}
		}
	}()
	return func(message *rpc.Message) error {
		data, err := message.Encode()
		if err != nil {
			return err
		}
		select {
		case queue <- data:
			return nil
		case <-done:
			return rpc.ErrClosed
		}
	}
}

// Pair returns a connected widget-side and host-side channel. The host
// side is already processing incoming messages; the widget side queues
// until its handshake calls ProcessIncoming.
func Pair(t testing.TB) (widget, host *rpc.Channel) {
	t.Helper()
	widget = rpc.NewChannel(Logger())
	host = rpc.NewChannel(Logger())
	host.ProcessIncoming()
	Connect(t, widget, host)
	t.Cleanup(func() {
		widget.Close()
		host.Close()
	})
	return widget, host
}
