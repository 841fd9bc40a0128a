// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bureau-foundation/bureau-widget/lib/process"
	"github.com/bureau-foundation/bureau-widget/lib/rpc"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

// ErrPrintUnavailable is returned to a host that asks a widget to print
// when its window cannot.
var ErrPrintUnavailable = errors.New("transport: window cannot print")

// Kind identifies a transport variant.
type Kind int

const (
	KindUnattached Kind = iota
	KindEmbeddedFrame
	KindHostedFrame
	KindBackgroundWorker
	KindSubprocessChannel
)

var kindNames = map[Kind]string{
	KindUnattached:        "unattached",
	KindEmbeddedFrame:     "embedded_frame",
	KindHostedFrame:       "hosted_frame",
	KindBackgroundWorker:  "background_worker",
	KindSubprocessChannel: "subprocess_channel",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts a kind name (as used in configuration) to a Kind.
func ParseKind(name string) (Kind, error) {
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown transport kind %q", name)
}

// Transport wires a channel to one hosting context.
type Transport interface {
	// Kind reports the variant.
	Kind() Kind

	// ConfigureSend installs the channel's outbound hook.
	ConfigureSend(channel *rpc.Channel)

	// ConfigureReceive routes inbound messages to the channel.
	ConfigureReceive(channel *rpc.Channel)

	// Close releases ports the transport owns.
	Close() error
}

// Install configures both directions of channel.
func Install(transport Transport, channel *rpc.Channel) {
	transport.ConfigureSend(channel)
	transport.ConfigureReceive(channel)
}

// Detect selects the transport for env. The first matching context
// wins:
//
//  1. a window marked embedded with a native forwarder
//  2. a window with a parent
//  3. no window and no process, with a worker port
//  4. no window, with a process that has an IPC channel
//  5. otherwise unattached
//
// Detect never fails. A nil logger uses slog.Default().
func Detect(env Environment, logger *slog.Logger) Transport {
	logger = transportLogger(env, logger)
	transport := detect(env, logger)
	logger.Debug("transport selected", "kind", transport.Kind().String())
	return transport
}

func detect(env Environment, logger *slog.Logger) Transport {
	if window := env.Window; window != nil {
		if window.Embedded && window.Native != nil {
			return &embeddedFrame{native: window.Native, logger: logger}
		}
		if window.Parent != nil {
			return &hostedFrame{window: window, logger: logger}
		}
		return &unattached{logger: logger}
	}
	if env.Process == nil && env.Worker != nil {
		return &backgroundWorker{port: env.Worker, logger: logger}
	}
	if env.Process != nil && env.Process.Channel != nil {
		return &subprocessChannel{process: env.Process, logger: logger}
	}
	return &unattached{logger: logger}
}

// ForKind builds the transport of a forced kind, failing when env
// lacks what that kind needs.
func ForKind(kind Kind, env Environment, logger *slog.Logger) (Transport, error) {
	logger = transportLogger(env, logger)
	switch kind {
	case KindUnattached:
		return &unattached{logger: logger}, nil
	case KindEmbeddedFrame:
		if env.Window == nil || env.Window.Native == nil {
			return nil, fmt.Errorf("transport %s: no native forwarder", kind)
		}
		return &embeddedFrame{native: env.Window.Native, logger: logger}, nil
	case KindHostedFrame:
		if env.Window == nil || env.Window.Parent == nil {
			return nil, fmt.Errorf("transport %s: no parent window", kind)
		}
		return &hostedFrame{window: env.Window, logger: logger}, nil
	case KindBackgroundWorker:
		if env.Worker == nil {
			return nil, fmt.Errorf("transport %s: no worker port", kind)
		}
		return &backgroundWorker{port: env.Worker, logger: logger}, nil
	case KindSubprocessChannel:
		if env.Process == nil || env.Process.Channel == nil {
			return nil, fmt.Errorf("transport %s: no process channel", kind)
		}
		return &subprocessChannel{process: env.Process, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown transport kind %d", int(kind))
	}
}

func transportLogger(env Environment, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if env.PluginPath != "" {
		logger = logger.With("plugin", env.PluginPath)
	}
	return logger
}

// sendVia returns an outbound hook posting encoded envelopes with post.
func sendVia(post func([]byte) error) rpc.SendFunc {
	return func(message *rpc.Message) error {
		data, err := message.Encode()
		if err != nil {
			return err
		}
		return post(data)
	}
}

func closePort(port any) error {
	if closer, ok := port.(io.Closer); ok {
		return closer.Close()
	}
	if wrapper, ok := port.(interface{ Unwrap() Port }); ok {
		return closePort(wrapper.Unwrap())
	}
	return nil
}

type embeddedFrame struct {
	native Port
	logger *slog.Logger
}

func (t *embeddedFrame) Kind() Kind { return KindEmbeddedFrame }

func (t *embeddedFrame) ConfigureSend(channel *rpc.Channel) {
	channel.SetSendMessage(sendVia(t.native.PostMessage))
}

func (t *embeddedFrame) ConfigureReceive(channel *rpc.Channel) {
	t.native.OnMessage(channel.ReceiveBytes)
}

func (t *embeddedFrame) Close() error { return closePort(t.native) }

// hostedFrame posts to the parent window with target origin "*": the
// widget cannot know the host's origin in advance.
type hostedFrame struct {
	window *Window
	logger *slog.Logger
}

func (t *hostedFrame) Kind() Kind { return KindHostedFrame }

func (t *hostedFrame) ConfigureSend(channel *rpc.Channel) {
	parent := t.window.Parent
	channel.SetSendMessage(sendVia(func(data []byte) error {
		return parent.PostMessage(data, "*")
	}))
}

// ConfigureReceive also registers the host-invokable print function.
func (t *hostedFrame) ConfigureReceive(channel *rpc.Channel) {
	t.window.Parent.OnMessage(channel.ReceiveBytes)

	printFrame := t.window.Print
	channel.RegisterFunc(protocol.FuncPrint, func(ctx context.Context, args rpc.Args) (any, error) {
		if printFrame == nil {
			return nil, ErrPrintUnavailable
		}
		t.logger.Info("printing widget frame")
		return nil, printFrame(ctx)
	})
}

func (t *hostedFrame) Close() error { return closePort(t.window.Parent) }

type backgroundWorker struct {
	port   Port
	logger *slog.Logger
}

func (t *backgroundWorker) Kind() Kind { return KindBackgroundWorker }

func (t *backgroundWorker) ConfigureSend(channel *rpc.Channel) {
	channel.SetSendMessage(sendVia(t.port.PostMessage))
}

func (t *backgroundWorker) ConfigureReceive(channel *rpc.Channel) {
	t.port.OnMessage(channel.ReceiveBytes)
}

func (t *backgroundWorker) Close() error { return closePort(t.port) }

// subprocessChannel talks to the parent process and exits with status
// 0 when the parent disconnects.
type subprocessChannel struct {
	process *Process
	logger  *slog.Logger
}

func (t *subprocessChannel) Kind() Kind { return KindSubprocessChannel }

func (t *subprocessChannel) ConfigureSend(channel *rpc.Channel) {
	channel.SetSendMessage(sendVia(t.process.Channel.PostMessage))
}

func (t *subprocessChannel) ConfigureReceive(channel *rpc.Channel) {
	t.process.Channel.OnMessage(channel.ReceiveBytes)

	disconnecter, ok := t.process.Channel.(Disconnecter)
	if !ok {
		return
	}
	exit := t.process.Exit
	if exit == nil {
		exit = process.Exit
	}
	go func() {
		<-disconnecter.Done()
		t.logger.Info("parent process disconnected; exiting")
		exit(0)
	}()
}

func (t *subprocessChannel) Close() error { return closePort(t.process.Channel) }

// unattached drops outbound messages. Nothing ever arrives.
type unattached struct {
	logger *slog.Logger
}

func (t *unattached) Kind() Kind { return KindUnattached }

func (t *unattached) ConfigureSend(channel *rpc.Channel) {
	channel.SetSendMessage(func(message *rpc.Message) error {
		t.logger.Debug("no host attached; dropping message", "message", message.String())
		return nil
	})
}

func (t *unattached) ConfigureReceive(channel *rpc.Channel) {}

func (t *unattached) Close() error { return nil }
