// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpc implements the message channel a widget and its host
// use to call each other.
//
// A [Channel] is transport-agnostic. It never reads or writes a socket
// itself: the owner installs an outbound hook with
// [Channel.SetSendMessage] and feeds inbound envelopes to
// [Channel.ReceiveMessage]. The widget's transport bridge does this
// wiring for whichever hosting context it detects; hosts do the same
// for their side of the stream.
//
// Four envelope types cross the channel:
//
//   - call: invoke a method on a named interface registered on the
//     peer with [Channel.RegisterImplementation] or
//     [Channel.RegisterFunc]. Arguments travel as a CBOR array.
//   - response: the result or error of a call, matched to the caller
//     by request id.
//   - custom: an application notification delivered to every handler
//     registered with [Channel.On] for [EventMessage].
//   - ready: the peer has attached its listeners and will process
//     calls. [Channel.Ready] closes when it arrives.
//
// Inbound envelopes are queued until [Channel.ProcessIncoming] is
// called, so a widget can register its handlers before anything is
// dispatched. After that, envelopes are dispatched in delivery order.
// Event handlers run synchronously on the delivering goroutine and
// must not block on remote calls; calls into registered
// implementations run on their own goroutines so an implementation
// may call back into the peer.
//
// Remote failures surface as [*CallError]. Error codes for unknown
// interfaces and methods unwrap to [ErrUnknownInterface] and
// [ErrUnknownMethod], so callers can use errors.Is across the wire.
package rpc
