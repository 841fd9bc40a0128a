// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration and stream
// framing shared by the widget bridge and its hosts.
//
// Every message that crosses a widget boundary (RPC calls, responses,
// host notifications, the ready announcement) is CBOR. The encoder uses
// Core Deterministic Encoding (RFC 8949 §4.2): sorted map keys,
// smallest integer encoding, no indefinite-length items. Same logical
// data always produces identical bytes, which lets tests compare
// encoded envelopes directly.
//
// For buffer-oriented operations (envelope bodies, RPC arguments):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For byte streams (subprocess channels, frame sockets) use
// [FrameWriter] and [FrameReader]. Each frame carries one encoded
// message; frames larger than the writer's threshold are compressed
// with zstd so that bulk table fetches do not dominate the channel.
//
// # Decoding into any
//
// Record values arrive in map[string]any and []any targets. The decoder
// produces map[string]any for maps and int64 for every integer, so a row
// id decoded from the wire compares equal to an int64 literal in Go
// code regardless of whether the encoder chose a positive or negative
// CBOR major type.
//
// # Struct Tag Rules
//
// Wire types carry `cbor` tags. Types that are also read from JSONC
// manifests or YAML files carry `json` or `yaml` tags instead; the CBOR
// library falls back to `json` tags when `cbor` tags are absent.
package codec
