// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch turns host notifications into widget callbacks.
//
// The [Dispatcher] holds one subscription to the channel's message
// event. Every notification is tested against four independent
// predicates, so a single notification can trigger several callbacks:
//
//   - a table id and a concrete row id: the row is fetched and passed
//     to record subscribers
//   - a table id and the add-row placeholder: new-record subscribers
//     are called
//   - a table id and a data change: the table is fetched, reshaped into
//     rows, and passed to records subscribers
//   - settings: options subscribers receive the options and settings
//
// Callbacks never run on the goroutine that delivers notifications, so
// they may make remote calls. Record and records deliveries each run on
// their own goroutine and may complete in any order; new-record and
// options callbacks run one at a time in delivery order.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/bureau-widget/lib/codec"
	"github.com/bureau-foundation/bureau-widget/lib/rpc"
	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

// RecordFunc receives the selected row and the current mapping.
type RecordFunc func(ctx context.Context, record mapping.Record, columns mapping.ColumnMapping)

// RecordsFunc receives every row of the bound table, in id-column
// order, and the current mapping.
type RecordsFunc func(ctx context.Context, records []mapping.Record, columns mapping.ColumnMapping)

// NewRecordFunc is called when the user selects the add-row
// placeholder.
type NewRecordFunc func(ctx context.Context)

// OptionsFunc receives the widget's stored options (nil when none) and
// the host settings.
type OptionsFunc func(ctx context.Context, options, settings map[string]any)

// ErrorFunc receives failures of background fetches.
type ErrorFunc func(err error)

// Source reads the data callbacks need from the host.
type Source interface {
	FetchSelectedRecord(ctx context.Context, rowID int64, options protocol.FetchOptions) (mapping.Record, error)
	FetchSelectedTable(ctx context.Context, options protocol.FetchOptions) (protocol.TableData, error)
}

// RecordOptions configures a record or records subscription.
type RecordOptions struct {
	// MapColumns translates rows with the declared spec before the
	// callback. Rows are nil while the mapping is incomplete.
	MapColumns bool

	// IncludeColumns overrides the dispatcher's default for fetches
	// made for this subscription.
	IncludeColumns string

	// KeepEncoded requests raw cell encodings.
	KeepEncoded bool
}

// Config holds a Dispatcher's collaborators.
type Config struct {
	// Channel supplies the message event. Required.
	Channel *rpc.Channel

	// Source fetches rows. Required.
	Source Source

	// Cache supplies the column mapping. Required.
	Cache *mapping.Cache

	// Spec returns the widget's declared spec, or nil. Nil Spec
	// function means no spec.
	Spec func() *mapping.Spec

	// IncludeColumns is the default column selection for table
	// fetches. Empty means protocol.IncludeShown.
	IncludeColumns string

	// OnError, when set, receives fetch failures after they are
	// logged.
	OnError ErrorFunc

	// Logger is the dispatcher's logger. Nil uses slog.Default().
	Logger *slog.Logger
}

type recordSubscription struct {
	callback RecordFunc
	options  RecordOptions
}

type recordsSubscription struct {
	callback RecordsFunc
	options  RecordOptions
}

// Dispatcher routes host notifications to subscribers.
//
// Each host message is matched against four independent predicates:
// a concrete row selection, a data change of the bound table, the
// add-row placeholder, and an options change. One message may fire
// several of them. Record and records deliveries fetch from the host,
// so each runs on its own goroutine and completes in whatever order
// the fetches finish. New-record and options callbacks fetch nothing
// and run one at a time in message order. No callback runs on the
// channel's delivery goroutine, so a slow subscriber never stalls the
// connection.
//
// Fetch and mapping-refresh failures are logged and passed to the
// OnError callback, and the subscriber is skipped for that message. An
// incomplete mapping is not a failure: subscribers that asked for
// mapped columns receive nil.
type Dispatcher struct {
	source         Source
	cache          *mapping.Cache
	spec           func() *mapping.Spec
	includeColumns string
	logger         *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	serial *serialQueue
	wg     sync.WaitGroup

	mu         sync.Mutex
	records    []recordSubscription
	tables     []recordsSubscription
	newRecords []NewRecordFunc
	options    []OptionsFunc
	onError    ErrorFunc
}

// New creates a dispatcher and subscribes it to config.Channel.
func New(config Config) *Dispatcher {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	spec := config.Spec
	if spec == nil {
		spec = func() *mapping.Spec { return nil }
	}
	includeColumns := config.IncludeColumns
	if includeColumns == "" {
		includeColumns = protocol.IncludeShown
	}
	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		source:         config.Source,
		cache:          config.Cache,
		spec:           spec,
		includeColumns: includeColumns,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
		serial:         newSerialQueue(ctx.Done()),
		onError:        config.OnError,
	}
	config.Channel.On(rpc.EventMessage, d.handle)
	return d
}

// OnRecord subscribes to selection of concrete rows.
func (d *Dispatcher) OnRecord(callback RecordFunc, options RecordOptions) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, recordSubscription{callback: callback, options: options})
}

// OnRecords subscribes to changes of the bound table's data.
func (d *Dispatcher) OnRecords(callback RecordsFunc, options RecordOptions) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables = append(d.tables, recordsSubscription{callback: callback, options: options})
}

// OnNewRecord subscribes to selection of the add-row placeholder.
func (d *Dispatcher) OnNewRecord(callback NewRecordFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.newRecords = append(d.newRecords, callback)
}

// OnOptions subscribes to options notifications.
func (d *Dispatcher) OnOptions(callback OptionsFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.options = append(d.options, callback)
}

// OnError replaces the background error callback.
func (d *Dispatcher) OnError(callback ErrorFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onError = callback
}

// Wait blocks until every callback started so far has returned.
// Tests use it after a notification to observe the complete effect of
// that message, and Close followed by Wait is a clean shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close cancels the context passed to callbacks and stops running
// queued new-record and options callbacks.
func (d *Dispatcher) Close() {
	d.cancel()
}

// handle runs on the channel's delivery goroutine and must not block.
func (d *Dispatcher) handle(data codec.RawMessage) {
	message, err := protocol.DecodeMessage(data)
	if err != nil {
		d.logger.Debug("ignoring notification", "error", err)
		return
	}

	d.mu.Lock()
	records := append([]recordSubscription(nil), d.records...)
	tables := append([]recordsSubscription(nil), d.tables...)
	newRecords := append([]NewRecordFunc(nil), d.newRecords...)
	options := append([]OptionsFunc(nil), d.options...)
	d.mu.Unlock()

	if message.TableID != "" {
		if rowID, ok := message.RowID.ID(); ok {
			for _, subscription := range records {
				d.spawn(func() { d.deliverRecord(message, rowID, subscription) })
			}
		}
		if message.RowID.IsNew() {
			for _, callback := range newRecords {
				d.enqueue(func() { callback(d.ctx) })
			}
		}
		if message.DataChange {
			for _, subscription := range tables {
				d.spawn(func() { d.deliverRecords(message, subscription) })
			}
		}
	}

	if message.Settings != nil {
		for _, callback := range options {
			d.enqueue(func() { callback(d.ctx, message.Options, message.Settings) })
		}
	}
}

func (d *Dispatcher) spawn(run func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		run()
	}()
}

func (d *Dispatcher) enqueue(run func()) {
	d.wg.Add(1)
	d.serial.push(func() {
		defer d.wg.Done()
		run()
	}, d.wg.Done)
}

func (d *Dispatcher) fetchOptions(options RecordOptions) protocol.FetchOptions {
	include := options.IncludeColumns
	if include == "" {
		include = d.includeColumns
	}
	return protocol.FetchOptions{IncludeColumns: include, KeepEncoded: options.KeepEncoded}
}

func (d *Dispatcher) deliverRecord(message *protocol.Message, rowID int64, subscription recordSubscription) {
	record, err := d.source.FetchSelectedRecord(d.ctx, rowID, d.fetchOptions(subscription.options))
	if err != nil {
		d.fail(fmt.Errorf("fetching record %d of %s: %w", rowID, message.TableID, err))
		return
	}
	columns, err := d.cache.RefreshIfNeeded(d.ctx, message.MappingsChange)
	if err != nil {
		d.fail(fmt.Errorf("refreshing column mapping: %w", err))
		return
	}

	if subscription.options.MapColumns {
		mapped, ok := mapping.MapRecord(record, mapping.Options{Spec: d.spec(), Mapping: columns})
		if !ok {
			d.logger.Debug("mapping incomplete; delivering nil record", "table_id", message.TableID)
		}
		record = mapped
	}
	subscription.callback(d.ctx, record, columns)
}

func (d *Dispatcher) deliverRecords(message *protocol.Message, subscription recordsSubscription) {
	table, err := d.source.FetchSelectedTable(d.ctx, d.fetchOptions(subscription.options))
	if err != nil {
		d.fail(fmt.Errorf("fetching table %s: %w", message.TableID, err))
		return
	}
	columns, err := d.cache.RefreshIfNeeded(d.ctx, message.MappingsChange)
	if err != nil {
		d.fail(fmt.Errorf("refreshing column mapping: %w", err))
		return
	}

	rows := table.Rows()
	if subscription.options.MapColumns {
		mapped, ok := mapping.MapRecords(rows, mapping.Options{Spec: d.spec(), Mapping: columns})
		if !ok {
			d.logger.Debug("mapping incomplete; delivering nil rows", "table_id", message.TableID)
		}
		rows = mapped
	}
	subscription.callback(d.ctx, rows, columns)
}

func (d *Dispatcher) fail(err error) {
	if d.ctx.Err() != nil {
		d.logger.Debug("dropping failure after close", "error", err)
		return
	}
	d.logger.Error("widget event delivery failed", "error", err)
	d.mu.Lock()
	onError := d.onError
	d.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}
