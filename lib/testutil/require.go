// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive returns the next value sent on ch, failing the test
// if none arrives within timeout or ch is closed first.
//
//	record := testutil.RequireReceive(t, records, 5*time.Second, "record callback")
func RequireReceive[T any](t TB, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	deadline := time.NewTimer(timeout) //nolint:realclock test hang prevention
	defer deadline.Stop()

	select {
	case value, ok := <-ch:
		if ok {
			return value
		}
		t.Fatalf("%s: channel closed before a value arrived", describe(msgAndArgs))
	case <-deadline.C:
		t.Fatalf("%s: nothing received within %v", describe(msgAndArgs), timeout)
	}
	var zero T
	return zero
}

// RequireNoReceive fails the test if ch yields a value within window.
// Use it for "must not happen yet" checks such as a callback that may
// only run after the handshake.
func RequireNoReceive[T any](t TB, ch <-chan T, window time.Duration, msgAndArgs ...any) {
	t.Helper()
	quiet := time.NewTimer(window) //nolint:realclock negative check window
	defer quiet.Stop()

	select {
	case value, ok := <-ch:
		if ok {
			t.Fatalf("%s: unexpected value %v", describe(msgAndArgs), value)
		}
	case <-quiet.C:
	}
}

// RequireClosed waits for a signal channel to close (or deliver),
// failing the test after timeout.
//
//	testutil.RequireClosed(t, w.Configured(), 5*time.Second, "configure acknowledgement")
func RequireClosed(t TB, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	deadline := time.NewTimer(timeout) //nolint:realclock test hang prevention
	defer deadline.Stop()

	select {
	case <-ch:
	case <-deadline.C:
		t.Fatalf("%s: still open after %v", describe(msgAndArgs), timeout)
	}
}

// describe renders the optional message arguments: nothing, a single
// value, or a format string and its operands.
func describe(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return "wait"
	}
	format, ok := msgAndArgs[0].(string)
	if !ok {
		return fmt.Sprint(msgAndArgs...)
	}
	if len(msgAndArgs) == 1 {
		return format
	}
	return fmt.Sprintf(format, msgAndArgs[1:]...)
}
