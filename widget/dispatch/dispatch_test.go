// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/bureau-widget/lib/rpc"
	"github.com/bureau-foundation/bureau-widget/lib/rpc/rpctest"
	"github.com/bureau-foundation/bureau-widget/lib/testutil"
	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

const timeout = 5 * time.Second

type fakeSource struct {
	mu           sync.Mutex
	table        protocol.TableData
	fetchErr     error
	tableOptions []protocol.FetchOptions
}

func (s *fakeSource) FetchSelectedRecord(ctx context.Context, rowID int64, options protocol.FetchOptions) (mapping.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	for _, row := range s.table.Rows() {
		if id, _ := row.ID(); id == rowID {
			return row, nil
		}
	}
	return nil, errors.New("no such row")
}

func (s *fakeSource) FetchSelectedTable(ctx context.Context, options protocol.FetchOptions) (protocol.TableData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tableOptions = append(s.tableOptions, options)
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.table, nil
}

type harness struct {
	host       *rpc.Channel
	source     *fakeSource
	dispatcher *Dispatcher
	fetches    *atomic.Int32
}

func newHarness(t *testing.T, spec *mapping.Spec, columns mapping.ColumnMapping) *harness {
	t.Helper()
	widget, host := rpctest.Pair(t)
	source := &fakeSource{table: protocol.TableData{
		"id":   {int64(1), int64(2)},
		"Name": {"A", "B"},
	}}
	fetches := &atomic.Int32{}
	cache := mapping.NewCache(func(ctx context.Context) (mapping.ColumnMapping, error) {
		fetches.Add(1)
		return columns, nil
	}, rpctest.Logger())

	dispatcher := New(Config{
		Channel: widget,
		Source:  source,
		Cache:   cache,
		Spec:    func() *mapping.Spec { return spec },
		Logger:  rpctest.Logger(),
	})
	t.Cleanup(dispatcher.Close)
	widget.ProcessIncoming()
	return &harness{host: host, source: source, dispatcher: dispatcher, fetches: fetches}
}

func (h *harness) post(t *testing.T, message protocol.Message) {
	t.Helper()
	if err := h.host.PostMessage(context.Background(), message); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
}

type recordEvent struct {
	record  mapping.Record
	columns mapping.ColumnMapping
}

func TestRecordsReshapedInIDOrder(t *testing.T) {
	h := newHarness(t, nil, nil)
	received := make(chan []mapping.Record, 1)
	h.dispatcher.OnRecords(func(ctx context.Context, records []mapping.Record, columns mapping.ColumnMapping) {
		received <- records
	}, RecordOptions{})

	h.post(t, protocol.Message{TableID: "People", DataChange: true})

	got := testutil.RequireReceive(t, received, timeout, "records callback")
	want := []mapping.Record{
		{"id": int64(1), "Name": "A"},
		{"id": int64(2), "Name": "B"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("records = %v, want %v", got, want)
	}

	h.source.mu.Lock()
	defer h.source.mu.Unlock()
	if len(h.source.tableOptions) != 1 || h.source.tableOptions[0].IncludeColumns != protocol.IncludeShown {
		t.Errorf("table fetch options = %+v, want include_columns=shown", h.source.tableOptions)
	}
}

func TestRecordMappedWithSpec(t *testing.T) {
	spec := mapping.NewSpec(mapping.Required("Title"))
	columns := mapping.ColumnMapping{"Title": mapping.Single("Name")}
	h := newHarness(t, spec, columns)

	mapped := make(chan recordEvent, 1)
	raw := make(chan recordEvent, 1)
	h.dispatcher.OnRecord(func(ctx context.Context, record mapping.Record, columns mapping.ColumnMapping) {
		mapped <- recordEvent{record, columns}
	}, RecordOptions{MapColumns: true})
	h.dispatcher.OnRecord(func(ctx context.Context, record mapping.Record, columns mapping.ColumnMapping) {
		raw <- recordEvent{record, columns}
	}, RecordOptions{})

	h.post(t, protocol.Message{TableID: "People", RowID: protocol.RowID(2)})

	event := testutil.RequireReceive(t, mapped, timeout, "mapped record callback")
	if want := (mapping.Record{"id": int64(2), "Title": "B"}); !reflect.DeepEqual(event.record, want) {
		t.Errorf("mapped record = %v, want %v", event.record, want)
	}
	if column, _ := event.columns["Title"].Column(); column != "Name" {
		t.Errorf("columns = %v", event.columns)
	}

	event = testutil.RequireReceive(t, raw, timeout, "raw record callback")
	if want := (mapping.Record{"id": int64(2), "Name": "B"}); !reflect.DeepEqual(event.record, want) {
		t.Errorf("raw record = %v, want %v", event.record, want)
	}
}

func TestRecordNilWhenMappingIncomplete(t *testing.T) {
	h := newHarness(t, mapping.NewSpec(mapping.Required("Title")), mapping.ColumnMapping{})
	received := make(chan recordEvent, 1)
	h.dispatcher.OnRecord(func(ctx context.Context, record mapping.Record, columns mapping.ColumnMapping) {
		received <- recordEvent{record, columns}
	}, RecordOptions{MapColumns: true})

	h.post(t, protocol.Message{TableID: "People", RowID: protocol.RowID(1)})
	if event := testutil.RequireReceive(t, received, timeout, "record callback"); event.record != nil {
		t.Errorf("record = %v, want nil for an incomplete mapping", event.record)
	}
}

func TestMappingsChangeForcesRefresh(t *testing.T) {
	h := newHarness(t, nil, mapping.ColumnMapping{})
	received := make(chan struct{}, 4)
	h.dispatcher.OnRecord(func(ctx context.Context, record mapping.Record, columns mapping.ColumnMapping) {
		received <- struct{}{}
	}, RecordOptions{})

	for _, changed := range []bool{false, false, true} {
		h.post(t, protocol.Message{TableID: "People", RowID: protocol.RowID(1), MappingsChange: changed})
		testutil.RequireReceive(t, received, timeout, "record callback")
	}
	if got := h.fetches.Load(); got != 2 {
		t.Errorf("mapping fetched %d times, want 2 (first use and change)", got)
	}
}

func TestNewRecordAndOptions(t *testing.T) {
	h := newHarness(t, nil, nil)
	newRecords := make(chan struct{}, 1)
	h.dispatcher.OnNewRecord(func(ctx context.Context) { newRecords <- struct{}{} })

	type optionsEvent struct{ options, settings map[string]any }
	options := make(chan optionsEvent, 2)
	h.dispatcher.OnOptions(func(ctx context.Context, opts, settings map[string]any) {
		options <- optionsEvent{opts, settings}
	})

	h.post(t, protocol.Message{TableID: "People", RowID: protocol.NewRow()})
	testutil.RequireReceive(t, newRecords, timeout, "new record callback")

	h.post(t, protocol.Message{Settings: map[string]any{"access_level": "full"}})
	event := testutil.RequireReceive(t, options, timeout, "options callback")
	if event.options != nil {
		t.Errorf("options = %v, want nil", event.options)
	}
	if event.settings["access_level"] != "full" {
		t.Errorf("settings = %v", event.settings)
	}

	h.post(t, protocol.Message{
		Options:  map[string]any{"color": "blue"},
		Settings: map[string]any{"access_level": "full"},
	})
	event = testutil.RequireReceive(t, options, timeout, "second options callback")
	if event.options["color"] != "blue" {
		t.Errorf("options = %v", event.options)
	}
}

func TestPredicatesAreIndependent(t *testing.T) {
	h := newHarness(t, nil, nil)
	var fired sync.Map
	done := make(chan string, 3)
	h.dispatcher.OnRecord(func(context.Context, mapping.Record, mapping.ColumnMapping) {
		fired.Store("record", true)
		done <- "record"
	}, RecordOptions{})
	h.dispatcher.OnRecords(func(context.Context, []mapping.Record, mapping.ColumnMapping) {
		fired.Store("records", true)
		done <- "records"
	}, RecordOptions{})
	h.dispatcher.OnOptions(func(context.Context, map[string]any, map[string]any) {
		fired.Store("options", true)
		done <- "options"
	})

	h.post(t, protocol.Message{
		TableID:    "People",
		RowID:      protocol.RowID(1),
		DataChange: true,
		Settings:   map[string]any{},
	})
	for range 3 {
		testutil.RequireReceive(t, done, timeout, "callback")
	}
	for _, name := range []string{"record", "records", "options"} {
		if _, ok := fired.Load(name); !ok {
			t.Errorf("%s callback did not fire", name)
		}
	}
}

func TestRowWithoutTableIsIgnored(t *testing.T) {
	h := newHarness(t, nil, nil)
	received := make(chan struct{}, 1)
	h.dispatcher.OnRecord(func(context.Context, mapping.Record, mapping.ColumnMapping) {
		received <- struct{}{}
	}, RecordOptions{})
	h.dispatcher.OnNewRecord(func(context.Context) { received <- struct{}{} })

	h.post(t, protocol.Message{RowID: protocol.RowID(1)})
	h.post(t, protocol.Message{RowID: protocol.NewRow()})
	testutil.RequireNoReceive(t, received, 50*time.Millisecond, "callback fired without a table id")
}

func TestFetchFailureReachesErrorFunc(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.source.fetchErr = errors.New("table deleted")

	errs := make(chan error, 1)
	h.dispatcher.OnError(func(err error) { errs <- err })
	h.dispatcher.OnRecords(func(context.Context, []mapping.Record, mapping.ColumnMapping) {
		t.Error("records callback ran after a failed fetch")
	}, RecordOptions{IncludeColumns: protocol.IncludeAll})

	h.post(t, protocol.Message{TableID: "People", DataChange: true})
	err := testutil.RequireReceive(t, errs, timeout, "error callback")
	if !errors.Is(err, h.source.fetchErr) {
		t.Errorf("error = %v, want wrapping %v", err, h.source.fetchErr)
	}

	h.dispatcher.Wait()
	h.source.mu.Lock()
	defer h.source.mu.Unlock()
	if h.source.tableOptions[0].IncludeColumns != protocol.IncludeAll {
		t.Errorf("include columns = %q, want all", h.source.tableOptions[0].IncludeColumns)
	}
}
