// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/bureau-foundation/bureau-widget/lib/codec"
	"github.com/bureau-foundation/bureau-widget/lib/netutil"
)

// StreamOptions configures a StreamPort.
type StreamOptions struct {
	// CompressionThreshold is passed to codec.NewFrameWriter: zero
	// uses the default, negative disables compression.
	CompressionThreshold int

	// Logger receives read-loop diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// StreamPort carries messages over a byte stream, one codec frame per
// message. The read loop starts with the first OnMessage and ends at
// end of stream; Done is closed then.
type StreamPort struct {
	reader *codec.FrameReader
	writer *codec.FrameWriter
	closer io.Closer
	logger *slog.Logger

	mu       sync.Mutex
	handlers []func([]byte)
	started  bool
	err      error

	done      chan struct{}
	closeOnce sync.Once
}

// NewStreamPort creates a port reading frames from r and writing them
// to w. closer, when non-nil, is closed by Close; it is usually the
// connection or file behind r and w.
func NewStreamPort(r io.Reader, w io.Writer, closer io.Closer, options StreamOptions) *StreamPort {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamPort{
		reader: codec.NewFrameReader(r),
		writer: codec.NewFrameWriter(w, options.CompressionThreshold),
		closer: closer,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// PostMessage writes data as one frame.
func (p *StreamPort) PostMessage(data []byte) error {
	select {
	case <-p.done:
		return ErrPortClosed
	default:
	}
	return p.writer.WriteFrame(data)
}

// OnMessage registers handler and starts the read loop if it is not
// running.
func (p *StreamPort) OnMessage(handler func(data []byte)) {
	p.mu.Lock()
	p.handlers = append(p.handlers, handler)
	start := !p.started
	p.started = true
	p.mu.Unlock()

	if start {
		go p.readLoop()
	}
}

// Done is closed when the read loop ends.
func (p *StreamPort) Done() <-chan struct{} {
	return p.done
}

// Err returns the error that ended the read loop, or nil for a clean
// end of stream.
func (p *StreamPort) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Close closes the underlying stream. A running read loop ends with
// it.
func (p *StreamPort) Close() error {
	if p.closer == nil {
		p.finish(nil)
		return nil
	}
	err := p.closer.Close()
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		p.finish(nil)
	}
	return err
}

func (p *StreamPort) readLoop() {
	for {
		body, err := p.reader.ReadFrame()
		if err != nil {
			if netutil.IsExpectedCloseError(err) {
				p.logger.Debug("stream closed", "error", err)
				err = nil
			} else {
				p.logger.Error("reading message frame failed", "error", err)
			}
			p.finish(err)
			return
		}

		p.mu.Lock()
		handlers := slices.Clone(p.handlers)
		p.mu.Unlock()
		for _, handler := range handlers {
			handler(body)
		}
	}
}

func (p *StreamPort) finish(err error) {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	})
}
