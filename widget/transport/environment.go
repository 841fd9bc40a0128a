// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/bureau-widget/lib/process"
)

// Environment variables read by DetectEnvironment.
const (
	// EnvFrameSocket is the Unix socket of the parent frame.
	EnvFrameSocket = "BUREAU_WIDGET_FRAME_SOCKET"

	// EnvEmbedded marks a frame embedded in a native host ("1").
	EnvEmbedded = "BUREAU_WIDGET_EMBEDDED"

	// EnvNativeFD is an inherited descriptor connected to the native
	// host's message forwarder.
	EnvNativeFD = "BUREAU_WIDGET_NATIVE_FD"

	// EnvChannelFD is an inherited descriptor connected to the parent
	// process.
	EnvChannelFD = "BUREAU_WIDGET_CHANNEL_FD"

	// EnvChannel set to "stdio" uses standard input and output as the
	// parent process channel.
	EnvChannel = "BUREAU_WIDGET_CHANNEL"

	// EnvPluginPath names the plugin bundle the widget was loaded
	// from. It only labels diagnostics.
	EnvPluginPath = "BUREAU_WIDGET_PLUGIN_PATH"
)

// Environment describes the capabilities visible to the widget.
// Absent capabilities are nil.
type Environment struct {
	// Window is present when the widget runs inside a frame.
	Window *Window

	// Worker is the port of a background worker to the page that
	// started it. It is only consulted when there is neither a Window
	// nor a Process.
	Worker Port

	// Process is present when the widget is an OS process.
	Process *Process

	// PluginPath labels log lines, when set.
	PluginPath string
}

// Window is a frame hosting the widget.
type Window struct {
	// Embedded marks a frame inside a native host application.
	Embedded bool

	// Native is the native host's message forwarder.
	Native Port

	// Parent is the window that contains this frame.
	Parent FramePort

	// Print prints the frame. Nil when the window cannot print.
	Print func(ctx context.Context) error
}

// Process describes the widget's own OS process.
type Process struct {
	// Channel is the IPC channel to the parent, or nil when the
	// process was not spawned with one.
	Channel Port

	// Exit terminates the process. Nil uses process.Exit.
	Exit func(code int)
}

// DetectOptions configures DetectEnvironment.
type DetectOptions struct {
	// Logger receives detection diagnostics. Nil uses slog.Default().
	Logger *slog.Logger

	// CompressionThreshold applies to every stream port created.
	CompressionThreshold int

	// Getenv reads environment variables. Nil uses os.Getenv.
	Getenv func(string) string
}

// DetectEnvironment builds an Environment from the process
// environment. Channels it cannot open are logged and left absent, so
// the widget falls back to a lesser transport rather than failing.
func DetectEnvironment(options DetectOptions) Environment {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	getenv := options.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	streamOptions := StreamOptions{CompressionThreshold: options.CompressionThreshold, Logger: logger}

	env := Environment{
		PluginPath: getenv(EnvPluginPath),
		Process:    &Process{Exit: process.Exit},
	}

	if path := getenv(EnvFrameSocket); path != "" {
		connection, err := net.Dial("unix", path)
		if err != nil {
			logger.Warn("cannot reach parent frame", "socket", path, "error", err)
		} else {
			port := NewStreamPort(connection, connection, connection, streamOptions)
			env.Window = &Window{Parent: AsFramePort(port)}
		}
	}

	// The embedded marker describes a windowing context; it never
	// creates one. Without a parent frame or a native forwarder the
	// widget falls through to the process channel.
	if getenv(EnvEmbedded) == "1" {
		var native Port
		if file, err := inheritedFile(getenv(EnvNativeFD), "bureau-widget-native"); err != nil {
			logger.Warn("native forwarder unavailable", "error", err)
		} else if file != nil {
			native = NewStreamPort(file, file, file, streamOptions)
		}
		if native != nil && env.Window == nil {
			env.Window = &Window{}
		}
		if env.Window != nil {
			env.Window.Embedded = true
			env.Window.Native = native
		}
	}

	switch {
	case getenv(EnvChannelFD) != "":
		file, err := inheritedFile(getenv(EnvChannelFD), "bureau-widget-channel")
		if err != nil {
			logger.Warn("parent channel unavailable", "error", err)
			break
		}
		env.Process.Channel = NewStreamPort(file, file, file, streamOptions)
	case getenv(EnvChannel) == "stdio":
		env.Process.Channel = NewStreamPort(os.Stdin, os.Stdout, os.Stdin, streamOptions)
	}

	return env
}

// inheritedFile opens a descriptor number passed by the parent. An
// empty value returns (nil, nil).
func inheritedFile(value, name string) (*os.File, error) {
	if value == "" {
		return nil, nil
	}
	fd, err := strconv.Atoi(value)
	if err != nil || fd < 0 {
		return nil, fmt.Errorf("descriptor %q is not a non-negative integer", value)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err != nil {
		return nil, fmt.Errorf("descriptor %d is not open: %w", fd, err)
	}
	return os.NewFile(uintptr(fd), name), nil
}
