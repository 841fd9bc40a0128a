// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/bureau-widget/lib/codec"
)

// SendFunc delivers one outbound envelope to the peer.
type SendFunc func(message *Message) error

// EventHandler receives the payload of a custom notification.
type EventHandler func(data codec.RawMessage)

// Func is a single host- or widget-invokable function.
type Func func(ctx context.Context, args Args) (any, error)

// Implementation serves calls on one registered interface name.
type Implementation interface {
	Invoke(ctx context.Context, method string, args Args) (any, error)
}

// Methods is an Implementation backed by a method table.
type Methods map[string]Func

// Invoke dispatches to the named method.
func (m Methods) Invoke(ctx context.Context, method string, args Args) (any, error) {
	function, ok := m[method]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownMethod, method)
	}
	return function(ctx, args)
}

// funcImplementation adapts a Func registered with RegisterFunc.
type funcImplementation struct {
	function Func
}

func (f funcImplementation) Invoke(ctx context.Context, method string, args Args) (any, error) {
	if method != funcMethod {
		return nil, fmt.Errorf("%w %q", ErrUnknownMethod, method)
	}
	return f.function(ctx, args)
}

// Channel is one side of a widget↔host conversation. Create with
// NewChannel; the zero value is not usable.
type Channel struct {
	logger *slog.Logger

	mu              sync.Mutex
	send            SendFunc
	implementations map[string]Implementation
	handlers        map[string][]EventHandler
	pending         map[uint64]chan *Message
	nextRequestID   uint64
	processing      bool
	queue           []*Message
	closed          bool

	// dispatchMu serializes dispatch so that envelopes queued before
	// ProcessIncoming are handled before anything delivered after it.
	dispatchMu sync.Mutex

	// serveContext is passed to implementations. Cancelled by Close.
	serveContext context.Context
	serveCancel  context.CancelFunc

	ready     chan struct{}
	readyOnce sync.Once
}

// NewChannel creates a channel with no outbound hook. Messages sent
// before SetSendMessage fail with ErrNotConnected.
func NewChannel(logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	serveContext, serveCancel := context.WithCancel(context.Background())
	return &Channel{
		logger:          logger,
		implementations: make(map[string]Implementation),
		handlers:        make(map[string][]EventHandler),
		pending:         make(map[uint64]chan *Message),
		serveContext:    serveContext,
		serveCancel:     serveCancel,
		ready:           make(chan struct{}),
	}
}

// SetSendMessage installs the outbound hook. Replaces any previous hook.
func (c *Channel) SetSendMessage(send SendFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.send = send
}

// RegisterImplementation makes implementation callable by the peer
// under name. Panics if name is already registered.
func (c *Channel) RegisterImplementation(name string, implementation Implementation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.implementations[name]; exists {
		panic(fmt.Sprintf("rpc.Channel: duplicate implementation for %q", name))
	}
	c.implementations[name] = implementation
}

// RegisterFunc makes a single function callable by the peer under name.
// The peer invokes it with Channel.CallFunc.
func (c *Channel) RegisterFunc(name string, function Func) {
	c.RegisterImplementation(name, funcImplementation{function: function})
}

// On registers handler for event. Handlers run in registration order
// on the delivering goroutine.
func (c *Channel) On(event string, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

// Ready returns a channel closed once the peer's ready announcement
// has been processed.
func (c *Channel) Ready() <-chan struct{} {
	return c.ready
}

// ProcessIncoming starts dispatching inbound envelopes, first draining
// everything queued so far in arrival order. Later calls are no-ops.
func (c *Channel) ProcessIncoming() {
	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		return
	}
	c.processing = true
	queued := c.queue
	c.queue = nil
	c.mu.Unlock()

	if len(queued) > 0 {
		c.logger.Debug("processing queued messages", "count", len(queued))
	}
	for _, message := range queued {
		c.dispatch(message)
	}
}

// ReceiveMessage accepts one inbound envelope from the transport. Must
// not be called from inside an event handler.
func (c *Channel) ReceiveMessage(message *Message) {
	if message == nil {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if !c.processing {
		c.queue = append(c.queue, message)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	c.dispatch(message)
}

// ReceiveBytes decodes and accepts one encoded envelope. Malformed
// envelopes are logged and dropped.
func (c *Channel) ReceiveBytes(data []byte) {
	message, err := DecodeMessage(data)
	if err != nil {
		c.logger.Warn("dropping malformed message", "error", err, "bytes", len(data))
		if c.logger.Enabled(context.Background(), slog.LevelDebug) {
			if notation, diagErr := codec.Diagnose(data); diagErr == nil {
				c.logger.Debug("malformed message contents", "cbor", notation)
			}
		}
		return
	}
	c.ReceiveMessage(message)
}

// SendReadyMessage announces to the peer that this side is processing
// messages.
func (c *Channel) SendReadyMessage(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.sendMessage(&Message{Type: TypeReady})
}

// PostMessage sends data to the peer as a custom notification.
func (c *Channel) PostMessage(ctx context.Context, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := codec.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	return c.sendMessage(&Message{Type: TypeCustom, Data: encoded})
}

// GetStub returns a callable handle for the peer's interface name.
// Stubs are cheap; no round trip happens until Call.
func (c *Channel) GetStub(name string) *Stub {
	return &Stub{channel: c, name: name}
}

// CallFunc invokes a function the peer registered with RegisterFunc.
func (c *Channel) CallFunc(ctx context.Context, name string, result any, args ...any) error {
	return c.GetStub(name).Call(ctx, funcMethod, result, args...)
}

// Close fails all pending calls with ErrClosed, cancels the context of
// running implementations, and drops later inbound envelopes.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[uint64]chan *Message)
	c.queue = nil
	c.mu.Unlock()

	c.serveCancel()
	for _, waiter := range pending {
		close(waiter)
	}
}

func (c *Channel) sendMessage(message *Message) error {
	c.mu.Lock()
	send := c.send
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if send == nil {
		return ErrNotConnected
	}
	c.logger.Debug("sending message", "message", message.String())
	return send(message)
}

// dispatch handles one envelope. Called with dispatchMu held.
func (c *Channel) dispatch(message *Message) {
	c.logger.Debug("received message", "message", message.String())

	switch message.Type {
	case TypeReady:
		c.readyOnce.Do(func() { close(c.ready) })

	case TypeResponse:
		c.mu.Lock()
		waiter, ok := c.pending[message.RequestID]
		delete(c.pending, message.RequestID)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("response for unknown request", "request_id", message.RequestID)
			return
		}
		waiter <- message

	case TypeCall:
		c.mu.Lock()
		implementation, ok := c.implementations[message.Interface]
		c.mu.Unlock()
		go c.serveCall(message, implementation, ok)

	case TypeCustom:
		c.mu.Lock()
		handlers := append([]EventHandler(nil), c.handlers[EventMessage]...)
		c.mu.Unlock()
		for _, handler := range handlers {
			handler(message.Data)
		}

	default:
		c.logger.Warn("dropping message of unknown type", "type", message.Type)
	}
}

// serveCall runs an implementation and sends its response.
func (c *Channel) serveCall(call *Message, implementation Implementation, found bool) {
	response := &Message{Type: TypeResponse, RequestID: call.RequestID}

	result, err := func() (any, error) {
		if !found {
			return nil, fmt.Errorf("%w %q", ErrUnknownInterface, call.Interface)
		}
		args, err := decodeArgs(call.Args)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingArgument, err)
		}
		return implementation.Invoke(c.serveContext, call.Method, args)
	}()

	if err == nil && result != nil {
		encoded, marshalErr := codec.Marshal(result)
		if marshalErr != nil {
			err = fmt.Errorf("internal: encoding result: %w", marshalErr)
		} else {
			response.Data = encoded
		}
	}
	if err != nil {
		c.logger.Debug("call failed",
			"interface", call.Interface,
			"method", call.Method,
			"error", err,
		)
		response.Error = err.Error()
		response.ErrorCode = errorCode(err)
		response.Data = nil
	}

	if sendErr := c.sendMessage(response); sendErr != nil && !errors.Is(sendErr, ErrClosed) {
		c.logger.Warn("failed to send response",
			"interface", call.Interface,
			"method", call.Method,
			"error", sendErr,
		)
	}
}

// register allocates a request id and a waiter for a call.
func (c *Channel) register() (uint64, chan *Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, nil, ErrClosed
	}
	c.nextRequestID++
	id := c.nextRequestID
	waiter := make(chan *Message, 1)
	c.pending[id] = waiter
	return id, waiter, nil
}

func (c *Channel) forget(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}
