// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Frame encodings. These are protocol constants shared by widgets and
// hosts; changing them breaks channel compatibility.
const (
	// EncodingIdentity marks an uncompressed frame body.
	EncodingIdentity = ""

	// EncodingZstd marks a zstd-compressed frame body.
	EncodingZstd = "zstd"
)

// DefaultCompressionThreshold is the body size above which frames are
// compressed when the writer was not given an explicit threshold.
const DefaultCompressionThreshold = 64 * 1024

// MaxFrameSize bounds the decoded size of a single frame. A selected
// table of several hundred thousand cells fits comfortably; anything
// larger indicates a corrupt or hostile peer.
const MaxFrameSize = 64 * 1024 * 1024

// ErrFrameTooLarge is returned by FrameReader when a frame declares a
// size above MaxFrameSize.
var ErrFrameTooLarge = errors.New("codec: frame exceeds maximum size")

// Frame is the unit written to a byte stream. Body holds one CBOR
// encoded message, compressed when Encoding is EncodingZstd. Size is
// the uncompressed body length and is verified on read.
type Frame struct {
	Encoding string `cbor:"encoding,omitempty"`
	Size     int    `cbor:"size"`
	Body     []byte `cbor:"body"`
}

// zstdEncoder and zstdDecoder are shared by all frame writers and
// readers. Both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(MaxFrameSize),
	)
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

// FrameWriter writes message bodies to a stream as Frames. It is safe
// for concurrent use; each WriteFrame call emits one complete frame.
type FrameWriter struct {
	mu        sync.Mutex
	encoder   *Encoder
	threshold int
}

// NewFrameWriter returns a FrameWriter that compresses bodies larger
// than threshold bytes. A threshold of zero selects
// DefaultCompressionThreshold; a negative threshold disables
// compression.
func NewFrameWriter(w io.Writer, threshold int) *FrameWriter {
	if threshold == 0 {
		threshold = DefaultCompressionThreshold
	}
	return &FrameWriter{
		encoder:   NewEncoder(w),
		threshold: threshold,
	}
}

// WriteFrame writes body as a single frame.
func (w *FrameWriter) WriteFrame(body []byte) error {
	frame := Frame{
		Encoding: EncodingIdentity,
		Size:     len(body),
		Body:     body,
	}
	if w.threshold > 0 && len(body) > w.threshold {
		compressed := zstdEncoder.EncodeAll(body, nil)
		// Incompressible bodies go out as-is.
		if len(compressed) < len(body) {
			frame.Encoding = EncodingZstd
			frame.Body = compressed
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.encoder.Encode(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// FrameReader reads Frames written by a FrameWriter. It is not safe for
// concurrent use; a stream has exactly one reader loop.
type FrameReader struct {
	decoder *Decoder
}

// NewFrameReader returns a FrameReader reading from r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{decoder: NewDecoder(r)}
}

// ReadFrame reads the next frame and returns its decoded body. At end
// of stream it returns io.EOF unwrapped so callers can compare
// directly.
func (r *FrameReader) ReadFrame() ([]byte, error) {
	var frame Frame
	if err := r.decoder.Decode(&frame); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	if frame.Size < 0 || frame.Size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, frame.Size)
	}

	switch frame.Encoding {
	case EncodingIdentity:
		if len(frame.Body) != frame.Size {
			return nil, fmt.Errorf("frame body is %d bytes, header says %d", len(frame.Body), frame.Size)
		}
		return frame.Body, nil

	case EncodingZstd:
		body, err := zstdDecoder.DecodeAll(frame.Body, make([]byte, 0, frame.Size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(body) != frame.Size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(body), frame.Size)
		}
		return body, nil

	default:
		return nil, fmt.Errorf("unknown frame encoding %q", frame.Encoding)
	}
}
