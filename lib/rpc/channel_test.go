// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/bureau-widget/lib/codec"
	"github.com/bureau-foundation/bureau-widget/lib/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// connect wires two channels back to back. Each direction has one
// delivery goroutine, so envelopes arrive in send order, and every
// envelope goes through Encode/DecodeMessage like it would on a stream.
func connect(t *testing.T, left, right *Channel) {
	t.Helper()
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	wire := func(destination *Channel) SendFunc {
		queue := make(chan []byte, 64)
		go func() {
			for {
				select {
				case data := <-queue:
					destination.ReceiveBytes(data)
				case <-done:
					return
				}
			}
		}()
		return func(message *Message) error {
			data, err := message.Encode()
			if err != nil {
				return err
			}
			select {
			case queue <- data:
				return nil
			case <-done:
				return ErrClosed
			}
		}
	}
	left.SetSendMessage(wire(right))
	right.SetSendMessage(wire(left))
}

func newPair(t *testing.T) (*Channel, *Channel) {
	t.Helper()
	widget := NewChannel(testLogger())
	host := NewChannel(testLogger())
	connect(t, widget, host)
	t.Cleanup(func() {
		widget.Close()
		host.Close()
	})
	return widget, host
}

func TestCallRoundtrip(t *testing.T) {
	widget, host := newPair(t)

	host.RegisterImplementation("WidgetView", Methods{
		"fetchSelectedRecord": func(ctx context.Context, args Args) (any, error) {
			var rowID int64
			if err := args.Decode(0, &rowID); err != nil {
				return nil, err
			}
			return map[string]any{"id": rowID, "Name": "Ann"}, nil
		},
	})
	widget.ProcessIncoming()
	host.ProcessIncoming()

	var record map[string]any
	if err := widget.GetStub("WidgetView").Call(context.Background(), "fetchSelectedRecord", &record, 7); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if record["id"] != int64(7) || record["Name"] != "Ann" {
		t.Errorf("record = %#v", record)
	}
}

func TestCallUnknownInterface(t *testing.T) {
	widget, host := newPair(t)
	widget.ProcessIncoming()
	host.ProcessIncoming()

	err := widget.GetStub("Missing").Call(context.Background(), "anything", nil)
	if !errors.Is(err, ErrUnknownInterface) {
		t.Fatalf("error = %v, want ErrUnknownInterface", err)
	}
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("error %T is not *CallError", err)
	}
	if callErr.Interface != "Missing" || callErr.Method != "anything" {
		t.Errorf("CallError = %+v", callErr)
	}
}

func TestCallUnknownMethod(t *testing.T) {
	widget, host := newPair(t)
	host.RegisterImplementation("WidgetOptions", Methods{})
	widget.ProcessIncoming()
	host.ProcessIncoming()

	err := widget.GetStub("WidgetOptions").Call(context.Background(), "getOption", nil, "color")
	if !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("error = %v, want ErrUnknownMethod", err)
	}
}

func TestCallImplementationError(t *testing.T) {
	widget, host := newPair(t)
	host.RegisterImplementation("WidgetSection", Methods{
		"configure": func(ctx context.Context, args Args) (any, error) {
			return nil, errors.New("access denied")
		},
	})
	widget.ProcessIncoming()
	host.ProcessIncoming()

	err := widget.GetStub("WidgetSection").Call(context.Background(), "configure", nil, map[string]any{})
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("error = %v, want *CallError", err)
	}
	if callErr.Message != "access denied" {
		t.Errorf("message = %q, want %q", callErr.Message, "access denied")
	}
	if callErr.Unwrap() != nil {
		t.Errorf("application failure unwrapped to %v, want nil", callErr.Unwrap())
	}
}

func TestRegisterFuncAndCallFunc(t *testing.T) {
	widget, host := newPair(t)

	called := make(chan struct{}, 1)
	widget.RegisterFunc("editOptions", func(ctx context.Context, args Args) (any, error) {
		called <- struct{}{}
		return nil, nil
	})
	widget.ProcessIncoming()
	host.ProcessIncoming()

	if err := host.CallFunc(context.Background(), "editOptions", nil); err != nil {
		t.Fatalf("CallFunc: %v", err)
	}
	testutil.RequireReceive(t, called, 5*time.Second, "editOptions invocation")
}

func TestMessagesQueueUntilProcessIncoming(t *testing.T) {
	widget, host := newPair(t)

	var mu sync.Mutex
	var received []string
	delivered := make(chan struct{}, 8)
	widget.On(EventMessage, func(data codec.RawMessage) {
		var payload struct {
			Table string `cbor:"table_id"`
		}
		if err := codec.Unmarshal(data, &payload); err != nil {
			t.Errorf("decoding payload: %v", err)
			return
		}
		mu.Lock()
		received = append(received, payload.Table)
		mu.Unlock()
		delivered <- struct{}{}
	})

	ctx := context.Background()
	for _, table := range []string{"A", "B", "C"} {
		if err := host.PostMessage(ctx, map[string]any{"table_id": table}); err != nil {
			t.Fatalf("PostMessage: %v", err)
		}
	}

	testutil.RequireNoReceive(t, delivered, 50*time.Millisecond, "handler ran before ProcessIncoming")

	widget.ProcessIncoming()
	for range 3 {
		testutil.RequireReceive(t, delivered, 5*time.Second, "queued notification")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"A", "B", "C"}
	if len(received) != len(want) {
		t.Fatalf("received %v, want %v", received, want)
	}
	for i := range want {
		if received[i] != want[i] {
			t.Errorf("received[%d] = %q, want %q", i, received[i], want[i])
		}
	}
}

func TestReadyAnnouncement(t *testing.T) {
	widget, host := newPair(t)
	host.ProcessIncoming()

	if err := widget.SendReadyMessage(context.Background()); err != nil {
		t.Fatalf("SendReadyMessage: %v", err)
	}
	testutil.RequireClosed(t, host.Ready(), 5*time.Second, "host sees widget ready")
}

func TestCallHonorsContext(t *testing.T) {
	widget, host := newPair(t)
	release := make(chan struct{})
	host.RegisterImplementation("WidgetView", Methods{
		"fetchSelectedTable": func(ctx context.Context, args Args) (any, error) {
			<-release
			return nil, nil
		},
	})
	t.Cleanup(func() { close(release) })
	widget.ProcessIncoming()
	host.ProcessIncoming()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := widget.GetStub("WidgetView").Call(ctx, "fetchSelectedTable", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestCloseFailsPendingCalls(t *testing.T) {
	widget, host := newPair(t)
	release := make(chan struct{})
	host.RegisterImplementation("WidgetSection", Methods{
		"mappings": func(ctx context.Context, args Args) (any, error) {
			<-release
			return nil, nil
		},
	})
	t.Cleanup(func() { close(release) })
	widget.ProcessIncoming()
	host.ProcessIncoming()

	result := make(chan error, 1)
	go func() {
		result <- widget.GetStub("WidgetSection").Call(context.Background(), "mappings", nil)
	}()

	// Give the call time to register before closing.
	time.Sleep(20 * time.Millisecond) //nolint:realclock ordering only
	widget.Close()

	err := testutil.RequireReceive(t, result, 5*time.Second, "pending call result")
	if !errors.Is(err, ErrClosed) {
		t.Errorf("error = %v, want ErrClosed", err)
	}
}

func TestSendWithoutHook(t *testing.T) {
	channel := NewChannel(testLogger())
	err := channel.PostMessage(context.Background(), map[string]any{})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("error = %v, want ErrNotConnected", err)
	}
}

func TestDecodeMessageRequiresType(t *testing.T) {
	data, err := codec.Marshal(map[string]any{"request_id": 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := DecodeMessage(data); err == nil {
		t.Fatal("expected error for envelope without type")
	}
}

func TestArgsDecodeMissing(t *testing.T) {
	args, err := NewArgs("only")
	if err != nil {
		t.Fatalf("NewArgs: %v", err)
	}
	var second string
	if err := args.Decode(1, &second); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("Decode(1) error = %v, want ErrMissingArgument", err)
	}
	present, err := args.DecodeOptional(1, &second)
	if err != nil || present {
		t.Errorf("DecodeOptional(1) = (%v, %v), want (false, nil)", present, err)
	}
}
