// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// stderr and exit are swapped by tests.
var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// Fatal reports err on stderr as "error: err" and exits with status 1.
// main() calls it with the error returned from run(), before or after
// the structured logger exists.
func Fatal(err error) {
	fmt.Fprintf(stderr, "error: %v\n", err)
	exit(1)
}

// Exit ends the process with code without running deferred functions.
// A subprocess widget installs it as its disconnect hook so the child
// goes away even while other goroutines are blocked on the host.
func Exit(code int) {
	exit(code)
}
