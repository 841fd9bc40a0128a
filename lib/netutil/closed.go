// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies I/O errors from the byte streams widget
// transports read from: sockets, pipes, and inherited descriptors.
package netutil

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// closeSentinels are the wrapped errors a reader sees when its peer or
// its own side has gone away.
var closeSentinels = []error{
	io.EOF,
	io.ErrUnexpectedEOF,
	io.ErrClosedPipe,
	net.ErrClosed,
	os.ErrClosed,
}

// peerGoneErrnos are raw errnos reported by the kernel when the other
// end of a socketpair or pipe exits mid-write.
var peerGoneErrnos = []syscall.Errno{
	syscall.EPIPE,
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
}

// IsExpectedCloseError reports whether err marks the normal end of a
// stream rather than a failure worth logging.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	for _, sentinel := range closeSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	for _, gone := range peerGoneErrnos {
		if errno == gone {
			return true
		}
	}
	return false
}
