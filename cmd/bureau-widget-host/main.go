// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bureau-widget-host runs a widget binary as a subprocess against an
// in-memory document, for developing widgets without a real host.
//
// The widget is spawned with one end of a socketpair as descriptor 3
// and BUREAU_WIDGET_CHANNEL_FD=3 in its environment, so it selects the
// subprocess channel transport. The host loads tables from Arrow IPC,
// Parquet, or JSON files, applies an optional YAML column mapping,
// selects the first table once the widget has configured itself, and
// then reads commands from standard input:
//
//	table NAME     bind the widget to another table
//	row ID         select a row
//	new            select the add-row placeholder
//	refresh        announce a data change
//	mapping PATH   load and assign a YAML column mapping
//	option K V     set one widget option
//	edit           invoke the widget's options editor
//	dump           print the selected table
//	quit           stop the widget and exit
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/bureau-widget/lib/config"
	"github.com/bureau-foundation/bureau-widget/lib/process"
	"github.com/bureau-foundation/bureau-widget/lib/version"
	"github.com/bureau-foundation/bureau-widget/widget/devhost"
	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/transport"
)

// childChannelFD is where the widget finds its end of the socketpair:
// the first entry of ExtraFiles after stdin, stdout, and stderr.
const childChannelFD = 3

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		tables      []string
		mappingPath string
		accessLevel string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("bureau-widget-host", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: $"+config.EnvVar+" or built-in defaults)")
	flagSet.StringArrayVar(&tables, "table", nil, "table file to load, as PATH or NAME=PATH (repeatable)")
	flagSet.StringVar(&mappingPath, "mapping", "", "YAML column mapping to assign before the first selection")
	flagSet.StringVar(&accessLevel, "access", "", "access level reported to the widget (default: full)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("bureau-widget-host")
		return nil
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	command := flagSet.Args()
	if len(command) == 0 {
		printHelp(flagSet)
		return fmt.Errorf("no widget command given")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := cfg.Logging.NewLogger(os.Stderr).With("component", "devhost")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loaded, err := loadTables(ctx, tables)
	if err != nil {
		return err
	}
	var columns mapping.ColumnMapping
	if mappingPath != "" {
		if columns, err = devhost.LoadMappingFile(mappingPath); err != nil {
			return err
		}
	}

	widgetPath, err := cfg.BinaryPath(command[0])
	if err != nil {
		return err
	}

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("creating widget channel: %w", err)
	}
	hostEnd := os.NewFile(uintptr(fds[0]), "bureau-widget-host")
	widgetEnd := os.NewFile(uintptr(fds[1]), "bureau-widget-channel")

	child := exec.CommandContext(ctx, widgetPath, command[1:]...)
	child.Stdout = os.Stderr
	child.Stderr = os.Stderr
	child.ExtraFiles = []*os.File{widgetEnd}
	child.Env = append(os.Environ(), fmt.Sprintf("%s=%d", transport.EnvChannelFD, childChannelFD))
	if err := child.Start(); err != nil {
		hostEnd.Close()
		widgetEnd.Close()
		return fmt.Errorf("starting widget %s: %w", widgetPath, err)
	}
	widgetEnd.Close()
	logger.Info("widget started", "path", widgetPath, "pid", child.Process.Pid, version.Attr())

	port := transport.NewStreamPort(hostEnd, hostEnd, hostEnd, transport.StreamOptions{
		CompressionThreshold: cfg.Transport.CompressionThreshold,
		Logger:               logger,
	})
	host := devhost.New(port, devhost.Options{AccessLevel: accessLevel, Logger: logger})

	session := &session{host: host, logger: logger, tables: loaded}
	sessionErr := session.start(ctx, columns)
	if sessionErr == nil {
		sessionErr = session.repl(ctx, os.Stdin, os.Stdout)
	}

	host.Close()
	port.Close()
	waitErr := waitWidget(child, logger)
	if sessionErr != nil && !errors.Is(sessionErr, context.Canceled) {
		return sessionErr
	}
	return waitErr
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.LoadOrDefault()
}

// waitWidget gives the widget a moment to exit on its own after its
// channel closed, then kills it.
func waitWidget(child *exec.Cmd, logger *slog.Logger) error {
	exited := make(chan error, 1)
	go func() { exited <- child.Wait() }()

	select {
	case err := <-exited:
		return exitError(err)
	case <-time.After(2 * time.Second):
		logger.Warn("widget did not exit after its channel closed, killing it")
		child.Process.Kill()
		<-exited
		return nil
	}
}

func exitError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !exitErr.Exited() {
		// Killed by our own signal context.
		return nil
	}
	if err != nil {
		return fmt.Errorf("widget: %w", err)
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `bureau-widget-host runs a widget against an in-memory document.

Usage:
  bureau-widget-host [flags] -- WIDGET [args...]

WIDGET is resolved in paths.bin of the configuration, then PATH.

Examples:
  # Serve a Parquet table with a column mapping
  bureau-widget-host --table contacts.parquet --mapping card.yaml -- bureau-widget-echo

  # Two named tables
  bureau-widget-host --table People=people.json --table Orders=orders.arrows -- ./my-widget

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

// splitTableFlag parses a --table value.
func splitTableFlag(value string) (name, path string) {
	if name, path, ok := strings.Cut(value, "="); ok && name != "" {
		return name, path
	}
	return devhost.TableNameFromPath(value), value
}
