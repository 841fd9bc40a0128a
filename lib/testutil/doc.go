// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the widget bridge.
//
// Widget and host run on separate goroutines connected by channels, so
// most tests observe outcomes by waiting on a channel. [RequireReceive],
// [RequireClosed], and [RequireNoReceive] wrap the select-with-timeout
// pattern so individual tests do not repeat it; they are the only place
// where tests use the wall clock.
//
// [SocketDir] creates a short temporary directory for Unix sockets,
// whose paths are limited to 108 bytes. [UniqueID] returns
// monotonically increasing identifiers for table and option names that
// must not collide across tests.
//
// All helpers call t.Fatalf on failure.
package testutil
