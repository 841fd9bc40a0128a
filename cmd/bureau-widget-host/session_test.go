// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bureau-foundation/bureau-widget/lib/rpc/rpctest"
	"github.com/bureau-foundation/bureau-widget/widget/devhost"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
	"github.com/bureau-foundation/bureau-widget/widget/transport"
)

func TestSplitTableFlag(t *testing.T) {
	tests := []struct {
		value, name, path string
	}{
		{"People=people.json", "People", "people.json"},
		{"data/Orders.parquet", "Orders", "data/Orders.parquet"},
		{"=odd.json", "=odd", "=odd.json"},
	}
	for _, test := range tests {
		name, path := splitTableFlag(test.value)
		if name != test.name || path != test.path {
			t.Errorf("splitTableFlag(%q) = %q, %q; want %q, %q", test.value, name, path, test.name, test.path)
		}
	}
}

func TestSessionCommands(t *testing.T) {
	_, hostPort := transport.NewPortPair()
	host := devhost.New(hostPort, devhost.Options{Logger: rpctest.Logger()})
	t.Cleanup(host.Close)

	s := &session{host: host, logger: rpctest.Logger(), tables: []namedTable{{
		name: "People",
		data: protocol.TableData{"id": {int64(1)}, "Name": {"Ada"}},
	}}}
	for _, table := range s.tables {
		host.AddTable(table.name, table.data)
	}

	input := strings.NewReader("table People\nrow x\nrow 1\nbogus\noption color deep red\ndump\nquit\nrow 1\n")
	var output bytes.Buffer
	if err := s.repl(context.Background(), input, &output); err != nil {
		t.Fatalf("repl: %v", err)
	}

	text := output.String()
	for _, want := range []string{`row id "x"`, `unknown command "bogus"`, "People (1 rows)", "Ada"} {
		if !strings.Contains(text, want) {
			t.Errorf("output %q missing %q", text, want)
		}
	}
	if got := host.StoredOptions()["color"]; got != "deep red" {
		t.Errorf("color option = %v", got)
	}
}
