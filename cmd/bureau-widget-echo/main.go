// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bureau-widget-echo is a minimal widget: it declares the fields of
// its manifest, then logs every record, batch of records, and options
// change it receives. Run it under bureau-widget-host (or any host
// that spawns widgets with a channel descriptor) to watch the
// selection and column mapping flow end to end.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bureau-widget/lib/config"
	"github.com/bureau-foundation/bureau-widget/lib/process"
	"github.com/bureau-foundation/bureau-widget/lib/version"
	"github.com/bureau-foundation/bureau-widget/widget"
	"github.com/bureau-foundation/bureau-widget/widget/dispatch"
	"github.com/bureau-foundation/bureau-widget/widget/handshake"
	"github.com/bureau-foundation/bureau-widget/widget/manifest"
	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath   string
		manifestPath string
		raw          bool
		showVersion  bool
	)

	flagSet := pflag.NewFlagSet("bureau-widget-echo", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: $"+config.EnvVar+" or built-in defaults)")
	flagSet.StringVar(&manifestPath, "manifest", "", "widget manifest (default: read access, no declared fields)")
	flagSet.BoolVar(&raw, "raw", false, "log records with host column names")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("bureau-widget-echo")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := cfg.Logging.NewLogger(os.Stderr).With("widget", "echo")

	settings, err := loadSettings(manifestPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := widget.New(widget.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer w.Close()

	logger.Info("echo widget starting", "transport", w.Transport().String(), version.Attr())
	subscribe(w, logger, !raw && settings.Columns != nil)
	w.Ready(settings)

	tableID, err := w.GetSelectedTableID(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("bound to table", "table_id", tableID)
	<-ctx.Done()
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.LoadOrDefault()
}

func loadSettings(path string) (*handshake.Settings, error) {
	if path == "" {
		return &handshake.Settings{RequiredAccess: protocol.AccessReadOnly}, nil
	}
	m, err := manifest.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if issues := manifest.Validate(m); len(issues) > 0 {
		return nil, fmt.Errorf("%s: %d problems, first: %s", path, len(issues), issues[0])
	}
	return m.Settings(), nil
}

func subscribe(w *widget.Widget, logger *slog.Logger, mapColumns bool) {
	options := dispatch.RecordOptions{MapColumns: mapColumns}

	w.OnRecord(func(ctx context.Context, record mapping.Record, columns mapping.ColumnMapping) {
		if record == nil {
			logger.Warn("row selected but the column mapping is incomplete")
			return
		}
		id, _ := record.ID()
		logger.Info("record", "id", id, "fields", len(record), "record", record)
	}, options)

	w.OnRecords(func(ctx context.Context, records []mapping.Record, columns mapping.ColumnMapping) {
		if records == nil && mapColumns {
			logger.Warn("table changed but the column mapping is incomplete")
			return
		}
		logger.Info("records", "count", len(records), "mapped_fields", len(columns))
	}, options)

	w.OnNewRecord(func(ctx context.Context) {
		logger.Info("add-row placeholder selected")
	})

	w.OnOptions(func(ctx context.Context, stored, settings map[string]any) {
		logger.Info("options", "options", stored, "access_level", settings["access_level"])
	})

	w.OnError(func(err error) {
		logger.Error("fetch for subscription failed", "error", err)
	})
}
