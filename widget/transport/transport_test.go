// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/bureau-widget/lib/rpc"
	"github.com/bureau-foundation/bureau-widget/lib/rpc/rpctest"
	"github.com/bureau-foundation/bureau-widget/lib/testutil"
	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

const timeout = 5 * time.Second

// hostOn serves an echo interface on port and returns the host channel.
func hostOn(t *testing.T, port Port) *rpc.Channel {
	t.Helper()
	host := rpc.NewChannel(rpctest.Logger())
	host.SetSendMessage(sendVia(port.PostMessage))
	port.OnMessage(host.ReceiveBytes)
	host.ProcessIncoming()
	host.RegisterImplementation("Echo", rpc.Methods{
		"echo": func(ctx context.Context, args rpc.Args) (any, error) {
			var value string
			if err := args.Decode(0, &value); err != nil {
				return nil, err
			}
			return value, nil
		},
	})
	t.Cleanup(host.Close)
	return host
}

func widgetOn(t *testing.T, transport Transport) *rpc.Channel {
	t.Helper()
	widget := rpc.NewChannel(rpctest.Logger())
	Install(transport, widget)
	widget.ProcessIncoming()
	t.Cleanup(widget.Close)
	return widget
}

func requireEcho(t *testing.T, widget *rpc.Channel) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var reply string
	if err := widget.GetStub("Echo").Call(ctx, "echo", &reply, "ping"); err != nil {
		t.Fatalf("echo call: %v", err)
	}
	if reply != "ping" {
		t.Errorf("echo reply = %q, want ping", reply)
	}
}

// recordingFrame is a parent window that records target origins.
type recordingFrame struct {
	Port
	mu      sync.Mutex
	origins []string
}

func (f *recordingFrame) PostMessage(data []byte, targetOrigin string) error {
	f.mu.Lock()
	f.origins = append(f.origins, targetOrigin)
	f.mu.Unlock()
	return f.Port.PostMessage(data)
}

func TestDetectSelection(t *testing.T) {
	port, _ := NewPortPair()
	frame := AsFramePort(port)

	tests := []struct {
		name string
		env  Environment
		want Kind
	}{
		{"empty", Environment{}, KindUnattached},
		{"embedded with forwarder", Environment{Window: &Window{Embedded: true, Native: port, Parent: frame}}, KindEmbeddedFrame},
		{"embedded marker without forwarder", Environment{Window: &Window{Embedded: true, Parent: frame}}, KindHostedFrame},
		{"forwarder without marker", Environment{Window: &Window{Native: port, Parent: frame}}, KindHostedFrame},
		{"window with parent", Environment{Window: &Window{Parent: frame}}, KindHostedFrame},
		{"window without parent", Environment{Window: &Window{}, Worker: port}, KindUnattached},
		{"worker", Environment{Worker: port}, KindBackgroundWorker},
		{"process shadows worker", Environment{Worker: port, Process: &Process{}}, KindUnattached},
		{"process with channel", Environment{Process: &Process{Channel: port}}, KindSubprocessChannel},
		{"window shadows process", Environment{Window: &Window{Parent: frame}, Process: &Process{Channel: port}}, KindHostedFrame},
		{"process without channel", Environment{Process: &Process{}}, KindUnattached},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Detect(test.env, rpctest.Logger()).Kind(); got != test.want {
				t.Errorf("Detect = %v, want %v", got, test.want)
			}
		})
	}
}

func TestEmbeddedFrameRoundtrip(t *testing.T) {
	widgetPort, hostPort := NewPortPair()
	hostOn(t, hostPort)
	widget := widgetOn(t, Detect(Environment{Window: &Window{Embedded: true, Native: widgetPort}}, rpctest.Logger()))
	requireEcho(t, widget)
}

func TestHostedFramePostsToAnyOrigin(t *testing.T) {
	widgetPort, hostPort := NewPortPair()
	hostOn(t, hostPort)
	parent := &recordingFrame{Port: widgetPort}
	widget := widgetOn(t, Detect(Environment{Window: &Window{Parent: parent}}, rpctest.Logger()))
	requireEcho(t, widget)

	parent.mu.Lock()
	defer parent.mu.Unlock()
	if len(parent.origins) == 0 {
		t.Fatal("nothing posted to the parent window")
	}
	for _, origin := range parent.origins {
		if origin != "*" {
			t.Errorf("target origin = %q, want *", origin)
		}
	}
}

func TestHostedFramePrint(t *testing.T) {
	widgetPort, hostPort := NewPortPair()
	host := hostOn(t, hostPort)
	printed := make(chan struct{}, 1)
	widgetOn(t, Detect(Environment{Window: &Window{
		Parent: AsFramePort(widgetPort),
		Print: func(ctx context.Context) error {
			printed <- struct{}{}
			return nil
		},
	}}, rpctest.Logger()))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := host.CallFunc(ctx, protocol.FuncPrint, nil); err != nil {
		t.Fatalf("print: %v", err)
	}
	testutil.RequireReceive(t, printed, timeout, "print handler did not run")
}

func TestHostedFramePrintUnavailable(t *testing.T) {
	widgetPort, hostPort := NewPortPair()
	host := hostOn(t, hostPort)
	widgetOn(t, Detect(Environment{Window: &Window{Parent: AsFramePort(widgetPort)}}, rpctest.Logger()))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := host.CallFunc(ctx, protocol.FuncPrint, nil)
	var callErr *rpc.CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("print error = %v, want *rpc.CallError", err)
	}
	if callErr.Message != ErrPrintUnavailable.Error() {
		t.Errorf("print error message = %q", callErr.Message)
	}
}

func TestBackgroundWorkerRoundtrip(t *testing.T) {
	widgetPort, hostPort := NewPortPair()
	hostOn(t, hostPort)
	widget := widgetOn(t, Detect(Environment{Worker: widgetPort}, rpctest.Logger()))
	requireEcho(t, widget)
}

func TestSubprocessExitsOnDisconnect(t *testing.T) {
	widgetPort, hostPort := NewPortPair()
	hostOn(t, hostPort)
	exits := make(chan int, 1)
	transport := Detect(Environment{Process: &Process{
		Channel: widgetPort,
		Exit:    func(code int) { exits <- code },
	}}, rpctest.Logger())
	widget := widgetOn(t, transport)
	requireEcho(t, widget)

	testutil.RequireNoReceive(t, exits, 20*time.Millisecond, "exited while connected")
	hostPort.Close()
	if code := testutil.RequireReceive(t, exits, timeout, "no exit after disconnect"); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}

func TestUnattachedSendNeverFails(t *testing.T) {
	widget := widgetOn(t, Detect(Environment{}, rpctest.Logger()))
	if err := widget.SendReadyMessage(context.Background()); err != nil {
		t.Errorf("SendReadyMessage: %v", err)
	}
	if err := widget.PostMessage(context.Background(), map[string]any{"hello": "world"}); err != nil {
		t.Errorf("PostMessage: %v", err)
	}
}

func TestForKind(t *testing.T) {
	port, _ := NewPortPair()
	if _, err := ForKind(KindHostedFrame, Environment{}, nil); err == nil {
		t.Error("forced hosted frame without a window succeeded")
	}
	if _, err := ForKind(KindSubprocessChannel, Environment{Process: &Process{}}, nil); err == nil {
		t.Error("forced subprocess without a channel succeeded")
	}
	transport, err := ForKind(KindBackgroundWorker, Environment{Worker: port, Process: &Process{}}, nil)
	if err != nil {
		t.Fatalf("ForKind(worker): %v", err)
	}
	if transport.Kind() != KindBackgroundWorker {
		t.Errorf("kind = %v", transport.Kind())
	}
}

func TestParseKind(t *testing.T) {
	for _, kind := range []Kind{KindUnattached, KindEmbeddedFrame, KindHostedFrame, KindBackgroundWorker, KindSubprocessChannel} {
		parsed, err := ParseKind(kind.String())
		if err != nil || parsed != kind {
			t.Errorf("ParseKind(%q) = (%v, %v)", kind.String(), parsed, err)
		}
	}
	if _, err := ParseKind("auto"); err == nil {
		t.Error("ParseKind accepted auto")
	}
}

func TestMemoryPortHoldsMessagesUntilHandler(t *testing.T) {
	left, right := NewPortPair()
	defer left.Close()
	for _, message := range []string{"one", "two"} {
		if err := left.PostMessage([]byte(message)); err != nil {
			t.Fatalf("PostMessage: %v", err)
		}
	}

	received := make(chan string, 2)
	right.OnMessage(func(data []byte) { received <- string(data) })
	for _, want := range []string{"one", "two"} {
		if got := testutil.RequireReceive(t, received, timeout, "message %q", want); got != want {
			t.Errorf("received %q, want %q", got, want)
		}
	}

	right.Close()
	testutil.RequireClosed(t, left.Done(), timeout, "closing one end did not close the pair")
	if err := left.PostMessage([]byte("late")); !errors.Is(err, ErrPortClosed) {
		t.Errorf("post after close = %v, want ErrPortClosed", err)
	}
}

// requireLateHandlers checks that every registered handler sees each
// message, and that a handler may register another one while a
// message is being delivered to it.
func requireLateHandlers(t *testing.T, sender, receiver Port) {
	t.Helper()
	first := make(chan string, 2)
	second := make(chan string, 1)
	var once sync.Once
	receiver.OnMessage(func(data []byte) {
		once.Do(func() {
			receiver.OnMessage(func(data []byte) { second <- string(data) })
		})
		first <- string(data)
	})

	if err := sender.PostMessage([]byte("one")); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if got := testutil.RequireReceive(t, first, timeout, "first message"); got != "one" {
		t.Errorf("first handler received %q, want %q", got, "one")
	}
	if err := sender.PostMessage([]byte("two")); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if got := testutil.RequireReceive(t, first, timeout, "second message"); got != "two" {
		t.Errorf("first handler received %q, want %q", got, "two")
	}
	if got := testutil.RequireReceive(t, second, timeout, "late handler"); got != "two" {
		t.Errorf("late handler received %q, want %q", got, "two")
	}
	testutil.RequireNoReceive(t, second, 50*time.Millisecond, "late handler saw a message sent before it registered")
}

func TestMemoryPortHandlersRegisteredDuringDelivery(t *testing.T) {
	left, right := NewPortPair()
	defer left.Close()
	requireLateHandlers(t, left, right)
}
