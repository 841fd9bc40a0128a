// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/bureau-foundation/bureau-widget/widget/devhost"
	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

// namedTable is a table loaded from a --table flag.
type namedTable struct {
	name string
	data protocol.TableData
}

func loadTables(ctx context.Context, flags []string) ([]namedTable, error) {
	tables := make([]namedTable, 0, len(flags))
	for _, flag := range flags {
		name, path := splitTableFlag(flag)
		data, err := devhost.LoadTableFile(ctx, path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, namedTable{name: name, data: data})
	}
	return tables, nil
}

// session drives the development host.
type session struct {
	host   *devhost.Host
	logger *slog.Logger
	tables []namedTable
}

// start waits for the widget to configure itself, then assigns the
// mapping and selects the first table.
func (s *session) start(ctx context.Context, columns mapping.ColumnMapping) error {
	for _, table := range s.tables {
		s.host.AddTable(table.name, table.data)
	}
	if err := s.host.WaitReady(ctx); err != nil {
		return fmt.Errorf("waiting for the widget: %w", err)
	}
	configuration, err := s.host.Configuration(ctx)
	if err != nil {
		return fmt.Errorf("waiting for widget configuration: %w", err)
	}
	s.logger.Info("widget ready",
		"required_access", configuration.RequiredAccess,
		"fields", len(configuration.Columns),
		"custom_options", configuration.HasCustomOptions,
	)

	if columns != nil {
		if err := s.host.SetMappings(ctx, columns); err != nil {
			return err
		}
	}
	if len(s.tables) > 0 {
		return s.host.SelectTable(ctx, s.tables[0].name)
	}
	return nil
}

// repl reads commands until quit, end of input, or ctx ends. Command
// failures are reported and the loop continues.
func (s *session) repl(ctx context.Context, input io.Reader, output io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case next, ok := <-lines:
			if !ok {
				return nil
			}
			line = next
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" {
			return nil
		}
		if err := s.execute(ctx, fields, output); err != nil {
			fmt.Fprintf(output, "error: %v\n", err)
		}
	}
}

func (s *session) execute(ctx context.Context, fields []string, output io.Writer) error {
	switch command, args := fields[0], fields[1:]; command {
	case "table":
		if len(args) != 1 {
			return fmt.Errorf("usage: table NAME")
		}
		return s.host.SelectTable(ctx, args[0])
	case "row":
		if len(args) != 1 {
			return fmt.Errorf("usage: row ID")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("row id %q: %w", args[0], err)
		}
		return s.host.SelectRow(ctx, id)
	case "new":
		return s.host.SelectNewRow(ctx)
	case "refresh":
		return s.host.NotifyDataChange(ctx)
	case "mapping":
		if len(args) != 1 {
			return fmt.Errorf("usage: mapping PATH")
		}
		columns, err := devhost.LoadMappingFile(args[0])
		if err != nil {
			return err
		}
		return s.host.SetMappings(ctx, columns)
	case "option":
		if len(args) < 2 {
			return fmt.Errorf("usage: option KEY VALUE")
		}
		options := s.host.StoredOptions()
		if options == nil {
			options = make(map[string]any)
		}
		options[args[0]] = strings.Join(args[1:], " ")
		return s.host.SetOptions(ctx, options)
	case "edit":
		return s.host.EditOptions(ctx)
	case "dump":
		return s.dump(output)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (s *session) dump(output io.Writer) error {
	for _, table := range s.tables {
		data, ok := s.host.Table(table.name)
		if !ok {
			continue
		}
		columns := data.Columns()
		fmt.Fprintf(output, "%s (%d rows)\n", table.name, data.Len())
		fmt.Fprintf(output, "  %s\n", strings.Join(columns, "\t"))
		for _, row := range data.Rows() {
			cells := make([]string, len(columns))
			for i, column := range columns {
				cells[i] = fmt.Sprint(row[column])
			}
			fmt.Fprintf(output, "  %s\n", strings.Join(cells, "\t"))
		}
	}
	if len(s.tables) == 0 {
		fmt.Fprintln(output, "no tables loaded")
	}
	selected := s.host.SelectedRows()
	if selected != nil {
		slices.Sort(selected)
		fmt.Fprintf(output, "widget selection: %v\n", selected)
	}
	return nil
}
