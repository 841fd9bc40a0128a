// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"strconv"
	"sync/atomic"
)

var sequence atomic.Uint64

// UniqueID returns prefix followed by "-" and a number that increases
// across the whole test binary, so parallel tests never share a table
// or option name.
//
//	tableID := testutil.UniqueID("table") // "table-1", "table-2", ...
func UniqueID(prefix string) string {
	return prefix + "-" + strconv.FormatUint(sequence.Add(1), 10)
}
