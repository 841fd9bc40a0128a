// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"log/slog"
	"runtime"
)

// Build identity, overridden with -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/bureau-widget/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"

	// Version is bumped by hand for releases.
	Version = "0.1.0-dev"
)

func dirty() bool { return GitDirty == "true" }

// Info returns "VERSION (COMMIT[-dirty], BUILDTIME)".
func Info() string {
	commit := GitCommit
	if dirty() {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, BuildTime)
}

// Full follows Info with the Go toolchain and target platform on
// indented lines.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns Version alone.
func Short() string { return Version }

// Commit returns GitCommit alone.
func Commit() string { return GitCommit }

// Print answers --version for the named binary on stdout.
func Print(name string) {
	fmt.Printf("%s %s\n", name, Full())
}

// Attr groups the build identity under "build" for a binary's startup
// log line.
func Attr() slog.Attr {
	return slog.Group("build",
		"version", Version,
		"commit", GitCommit,
		"dirty", dirty(),
		"go", runtime.Version(),
	)
}
