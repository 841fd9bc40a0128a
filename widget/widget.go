// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/bureau-widget/lib/config"
	"github.com/bureau-foundation/bureau-widget/lib/rpc"
	"github.com/bureau-foundation/bureau-widget/widget/dispatch"
	"github.com/bureau-foundation/bureau-widget/widget/handshake"
	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
	"github.com/bureau-foundation/bureau-widget/widget/transport"
)

// ErrNoSelectedTable is returned by table operations when the widget
// is not bound to a table.
var ErrNoSelectedTable = errors.New("widget: no table selected")

// Options configures New.
type Options struct {
	// Config supplies transport mode, compression, and fetch defaults.
	// Nil uses config.Default().
	Config *config.Config

	// Environment replaces detection of the hosting context. Nil
	// probes the process with transport.DetectEnvironment.
	Environment *transport.Environment

	// Transport replaces transport selection entirely.
	Transport transport.Transport

	// Logger is the widget's logger. Nil uses slog.Default().
	Logger *slog.Logger
}

// Widget is the widget side of the bridge.
type Widget struct {
	logger         *slog.Logger
	includeColumns string

	channel     *rpc.Channel
	transport   transport.Transport
	coordinator *handshake.Coordinator
	cache       *mapping.Cache
	dispatcher  *dispatch.Dispatcher

	view     *rpc.Stub
	section  *rpc.Stub
	options  *rpc.Stub
	document *rpc.Stub
}

// New creates a widget and connects it to its host. Nothing is sent
// until Ready.
func New(options Options) (*Widget, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := options.Config
	if cfg == nil {
		cfg = config.Default()
	}

	selected, err := selectTransport(options, cfg, logger)
	if err != nil {
		return nil, err
	}

	channel := rpc.NewChannel(logger)
	w := &Widget{
		logger:         logger,
		includeColumns: cfg.Fetch.IncludeColumns,
		channel:        channel,
		transport:      selected,
		coordinator:    handshake.New(channel, logger),
		view:           channel.GetStub(protocol.ViewInterface),
		section:        channel.GetStub(protocol.SectionInterface),
		options:        channel.GetStub(protocol.OptionsInterface),
		document:       channel.GetStub(protocol.DocumentInterface),
	}
	w.cache = mapping.NewCache(w.fetchMappings, logger)
	w.dispatcher = dispatch.New(dispatch.Config{
		Channel:        channel,
		Source:         hostSource{w},
		Cache:          w.cache,
		Spec:           w.coordinator.Spec,
		IncludeColumns: cfg.Fetch.IncludeColumns,
		Logger:         logger,
	})
	transport.Install(selected, channel)

	logger.Info("widget started", "transport", selected.Kind().String())
	return w, nil
}

func selectTransport(options Options, cfg *config.Config, logger *slog.Logger) (transport.Transport, error) {
	if options.Transport != nil {
		return options.Transport, nil
	}

	var env transport.Environment
	if options.Environment != nil {
		env = *options.Environment
	} else {
		env = transport.DetectEnvironment(transport.DetectOptions{
			Logger:               logger,
			CompressionThreshold: cfg.Transport.CompressionThreshold,
		})
	}

	if cfg.Transport.Mode == "" || cfg.Transport.Mode == config.ModeAuto {
		return transport.Detect(env, logger), nil
	}
	kind, err := transport.ParseKind(cfg.Transport.Mode)
	if err != nil {
		return nil, err
	}
	forced, err := transport.ForKind(kind, env, logger)
	if err != nil {
		return nil, fmt.Errorf("forced transport mode: %w", err)
	}
	return forced, nil
}

// Ready declares the widget ready and sends its settings. Only the
// first call has any effect; it reports whether this call was the one.
func (w *Widget) Ready(settings *handshake.Settings) bool {
	return w.coordinator.DeclareReady(settings)
}

// Configured is closed once the host has acknowledged (or rejected)
// the widget's configuration.
func (w *Widget) Configured() <-chan struct{} {
	return w.coordinator.Configured()
}

// GetSelectedTableID returns the table the widget is bound to, waiting
// for the host to bind one.
func (w *Widget) GetSelectedTableID(ctx context.Context) (string, error) {
	return w.coordinator.AwaitDataSourceID(ctx)
}

// SelectedTableID returns the bound table without waiting.
func (w *Widget) SelectedTableID() (string, bool) {
	return w.coordinator.CurrentDataSourceID()
}

// State returns the handshake state.
func (w *Widget) State() handshake.State {
	return w.coordinator.State()
}

// Transport reports which transport the widget selected.
func (w *Widget) Transport() transport.Kind {
	return w.transport.Kind()
}

// Channel returns the underlying RPC channel, for registering
// additional host-invokable functions.
func (w *Widget) Channel() *rpc.Channel {
	return w.channel
}

// OnRecord subscribes to selection of concrete rows.
func (w *Widget) OnRecord(callback dispatch.RecordFunc, options dispatch.RecordOptions) {
	w.dispatcher.OnRecord(callback, options)
}

// OnRecords subscribes to data changes of the bound table.
func (w *Widget) OnRecords(callback dispatch.RecordsFunc, options dispatch.RecordOptions) {
	w.dispatcher.OnRecords(callback, options)
}

// OnNewRecord subscribes to selection of the add-row placeholder.
func (w *Widget) OnNewRecord(callback dispatch.NewRecordFunc) {
	w.dispatcher.OnNewRecord(callback)
}

// OnOptions subscribes to options notifications.
func (w *Widget) OnOptions(callback dispatch.OptionsFunc) {
	w.dispatcher.OnOptions(callback)
}

// OnError receives failures of fetches made for subscriptions.
func (w *Widget) OnError(callback dispatch.ErrorFunc) {
	w.dispatcher.OnError(callback)
}

// mappingOptions builds engine options from the declared spec and the
// cached mapping.
func (w *Widget) mappingOptions(reverse bool) mapping.Options {
	columns, _ := w.cache.Current()
	return mapping.Options{Spec: w.coordinator.Spec(), Mapping: columns, Reverse: reverse}
}

// MapColumnNames translates host-named records to the declared field
// names using the last fetched mapping. See package mapping for the
// meaning of the boolean.
func (w *Widget) MapColumnNames(records []mapping.Record) ([]mapping.Record, bool) {
	return mapping.MapRecords(records, w.mappingOptions(false))
}

// MapColumnNamesBack translates widget-named records back to host
// columns.
func (w *Widget) MapColumnNamesBack(records []mapping.Record) ([]mapping.Record, bool) {
	return mapping.MapRecords(records, w.mappingOptions(true))
}

// MapRecord translates one host-named record.
func (w *Widget) MapRecord(record mapping.Record) (mapping.Record, bool) {
	return mapping.MapRecord(record, w.mappingOptions(false))
}

// MapRecordBack translates one widget-named record back.
func (w *Widget) MapRecordBack(record mapping.Record) (mapping.Record, bool) {
	return mapping.MapRecord(record, w.mappingOptions(true))
}

// Mappings returns the current column mapping, fetching it once if the
// widget has not yet.
func (w *Widget) Mappings(ctx context.Context) (mapping.ColumnMapping, error) {
	return w.cache.RefreshIfNeeded(ctx, false)
}

// Close stops callbacks, fails pending calls, and releases the
// transport's ports. A subprocess widget exits when its channel closes.
func (w *Widget) Close() error {
	w.dispatcher.Close()
	w.channel.Close()
	return w.transport.Close()
}

func (w *Widget) fetchMappings(ctx context.Context) (mapping.ColumnMapping, error) {
	var columns mapping.ColumnMapping
	if err := w.section.Call(ctx, protocol.MethodMappings, &columns); err != nil {
		return nil, err
	}
	return columns, nil
}
