// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport connects a widget's [rpc.Channel] to whatever is
// hosting it.
//
// A widget runs in one of a closed set of hosting contexts, each with
// its own way of moving bytes:
//
//   - [KindEmbeddedFrame]: a frame inside a native host application
//     that provides a message forwarder.
//   - [KindHostedFrame]: a frame whose parent window receives posted
//     messages.
//   - [KindBackgroundWorker]: a background worker holding a message
//     port to the page that started it.
//   - [KindSubprocessChannel]: a child process with an IPC channel to
//     its parent. The widget exits with status 0 when the parent
//     disconnects.
//   - [KindUnattached]: nothing is listening. Outbound messages are
//     dropped and logged at debug level.
//
// [Detect] picks the variant from an [Environment] once, at startup.
// [DetectEnvironment] builds that Environment from what an OS process
// can observe: environment variables naming sockets and inherited file
// descriptors. In-process hosts construct an Environment directly,
// typically around ports from [NewPortPair].
//
// On byte streams each message travels as one codec frame
// ([codec.FrameWriter]), compressed with zstd above a size threshold.
package transport
