// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package handshake runs the widget side of initialization: declaring
// readiness and configuration to the host exactly once, and tracking
// which table the host has bound the widget to.
//
// Until [Coordinator.DeclareReady] the channel queues inbound messages.
// Declaring starts processing them, announces readiness, and sends the
// widget's configuration. The first host notification carrying a table
// id binds the widget; [Coordinator.AwaitDataSourceID] blocks until
// then.
package handshake

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/bureau-widget/lib/codec"
	"github.com/bureau-foundation/bureau-widget/lib/rpc"
	"github.com/bureau-foundation/bureau-widget/widget/mapping"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

// State is the coordinator's position in the handshake.
type State int

const (
	// Uninitialized: the widget has not declared readiness.
	Uninitialized State = iota

	// AwaitingBinding: declared, no table bound yet.
	AwaitingBinding

	// Bound: a table id has been received. Rebinding to another table
	// stays in this state.
	Bound
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case AwaitingBinding:
		return "awaiting_binding"
	case Bound:
		return "bound"
	default:
		return "unknown"
	}
}

// Settings is what a widget declares about itself.
type Settings struct {
	// RequiredAccess is one of the protocol.Access* levels.
	RequiredAccess string

	// Columns declares the fields the widget needs. Nil declares no
	// mapping spec; records then reach the widget with host column
	// names.
	Columns []mapping.Column

	// AllowSelectBy lets other sections link to this widget's
	// selection.
	AllowSelectBy bool

	// OnEditOptions, when set, is registered as the host-invokable
	// editOptions function and tells the host the widget has its own
	// options editor.
	OnEditOptions func(ctx context.Context) error
}

// configuration is the wire form sent to WidgetSection.configure.
func (s *Settings) configuration() protocol.Configuration {
	return protocol.Configuration{
		RequiredAccess:   s.RequiredAccess,
		Columns:          s.Columns,
		AllowSelectBy:    s.AllowSelectBy,
		HasCustomOptions: s.OnEditOptions != nil,
	}
}

// Coordinator owns the handshake and binding state of one widget.
type Coordinator struct {
	channel *rpc.Channel
	logger  *slog.Logger

	mu       sync.Mutex
	declared bool
	spec     *mapping.Spec
	tableID  string

	bound      chan struct{}
	configured chan struct{}
}

// New creates a coordinator for channel. A nil logger uses
// slog.Default().
func New(channel *rpc.Channel, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		channel:    channel,
		logger:     logger,
		bound:      make(chan struct{}),
		configured: make(chan struct{}),
	}
}

// DeclareReady performs the handshake. Only the first call has any
// effect; it reports whether this call was the one. settings may be
// nil, in which case only readiness is announced.
//
// DeclareReady returns without waiting for the host. The readiness
// announcement and configure request are sent from a goroutine; a
// configure failure is logged and otherwise ignored. Configured is
// closed when that sequence ends.
func (c *Coordinator) DeclareReady(settings *Settings) bool {
	c.mu.Lock()
	if c.declared {
		c.mu.Unlock()
		c.logger.Debug("widget already declared ready")
		return false
	}
	c.declared = true
	if settings != nil && settings.Columns != nil {
		c.spec = mapping.NewSpec(settings.Columns...)
	}
	c.mu.Unlock()

	if settings != nil && settings.OnEditOptions != nil {
		edit := settings.OnEditOptions
		c.channel.RegisterFunc(protocol.FuncEditOptions, func(ctx context.Context, args rpc.Args) (any, error) {
			return nil, edit(ctx)
		})
	}
	c.channel.On(rpc.EventMessage, c.observe)
	c.channel.ProcessIncoming()

	go c.announce(settings)
	return true
}

func (c *Coordinator) announce(settings *Settings) {
	defer close(c.configured)
	ctx := context.Background()

	if err := c.channel.SendReadyMessage(ctx); err != nil {
		c.logger.Warn("sending ready announcement failed", "error", err)
	}
	if settings == nil {
		return
	}

	configuration := settings.configuration()
	err := c.channel.GetStub(protocol.SectionInterface).Call(ctx, protocol.MethodConfigure, nil, configuration)
	if err != nil {
		c.logger.Error("widget configuration failed", "error", err)
		return
	}
	c.logger.Info("widget configured",
		"required_access", configuration.RequiredAccess,
		"columns", len(configuration.Columns),
		"custom_options", configuration.HasCustomOptions,
	)
}

// observe watches host notifications for table bindings.
func (c *Coordinator) observe(data codec.RawMessage) {
	message, err := protocol.DecodeMessage(data)
	if err != nil {
		c.logger.Debug("ignoring notification", "error", err)
		return
	}
	c.bind(message.TableID)
}

func (c *Coordinator) bind(tableID string) {
	if tableID == "" {
		return
	}
	c.mu.Lock()
	previous := c.tableID
	if tableID == previous {
		c.mu.Unlock()
		return
	}
	c.tableID = tableID
	c.mu.Unlock()

	if previous == "" {
		close(c.bound)
		c.logger.Info("widget bound to table", "table_id", tableID)
		return
	}
	c.logger.Info("widget rebound to table", "table_id", tableID, "previous", previous)
}

// AwaitDataSourceID returns the bound table id, blocking until the
// first binding. It has no timeout of its own; ctx lets the caller stop
// waiting.
func (c *Coordinator) AwaitDataSourceID(ctx context.Context) (string, error) {
	select {
	case <-c.bound:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tableID, nil
}

// CurrentDataSourceID returns the bound table id without blocking.
func (c *Coordinator) CurrentDataSourceID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tableID, c.tableID != ""
}

// Bound returns a channel closed at the first binding.
func (c *Coordinator) Bound() <-chan struct{} {
	return c.bound
}

// Configured returns a channel closed once the ready announcement and
// configure request have completed, successfully or not.
func (c *Coordinator) Configured() <-chan struct{} {
	return c.configured
}

// State returns the current handshake state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.declared:
		return Uninitialized
	case c.tableID == "":
		return AwaitingBinding
	default:
		return Bound
	}
}

// Spec returns the declared mapping spec, or nil when none was
// declared.
func (c *Coordinator) Spec() *mapping.Spec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spec
}
