// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build identity of the widget binaries.
//
// The release scripts stamp [GitCommit], [GitDirty], [BuildTime], and
// [Version] with -ldflags -X. Unstamped builds (go run, go test) report
// "unknown" and "0.1.0-dev".
//
// Binaries answer --version with [Print] and put [Attr] on their first
// log line, so a log stream identifies the build that wrote it.
package version
