// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for Bureau widget
// and host binaries. These functions centralize the raw I/O and exit
// paths that exist before or after the structured logger:
//
//   - Fatal error reporting to stderr when the logger may not be
//     initialized (pre-logger).
//   - Process exit after an unrecoverable error in main(), or when a
//     spawned widget loses its parent.
package process
