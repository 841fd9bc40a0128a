// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundtripSmallBody(t *testing.T) {
	var buffer bytes.Buffer
	writer := NewFrameWriter(&buffer, 0)

	bodies := [][]byte{[]byte("first"), []byte("second"), {}}
	for _, body := range bodies {
		if err := writer.WriteFrame(body); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	reader := NewFrameReader(&buffer)
	for i, want := range bodies {
		got, err := reader.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d = %q, want %q", i, got, want)
		}
	}

	if _, err := reader.ReadFrame(); err != io.EOF {
		t.Errorf("ReadFrame at end = %v, want io.EOF", err)
	}
}

func TestFrameCompressesLargeBody(t *testing.T) {
	body := bytes.Repeat([]byte("row-value;"), 1000)

	var buffer bytes.Buffer
	if err := NewFrameWriter(&buffer, 128).WriteFrame(body); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if buffer.Len() >= len(body) {
		t.Errorf("encoded frame is %d bytes, expected compression below %d", buffer.Len(), len(body))
	}

	var frame Frame
	if err := Unmarshal(buffer.Bytes(), &frame); err != nil {
		t.Fatalf("decoding raw frame: %v", err)
	}
	if frame.Encoding != EncodingZstd {
		t.Errorf("encoding = %q, want %q", frame.Encoding, EncodingZstd)
	}

	got, err := NewFrameReader(&buffer).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Error("decompressed body does not match original")
	}
}

func TestFrameCompressionDisabled(t *testing.T) {
	body := bytes.Repeat([]byte("a"), 4096)

	var buffer bytes.Buffer
	if err := NewFrameWriter(&buffer, -1).WriteFrame(body); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	var frame Frame
	if err := Unmarshal(buffer.Bytes(), &frame); err != nil {
		t.Fatalf("decoding raw frame: %v", err)
	}
	if frame.Encoding != EncodingIdentity {
		t.Errorf("encoding = %q, want identity", frame.Encoding)
	}
}

func TestFrameReaderRejectsSizeMismatch(t *testing.T) {
	data, err := Marshal(Frame{Size: 10, Body: []byte("short")})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := NewFrameReader(bytes.NewReader(data)).ReadFrame(); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestFrameReaderRejectsOversizedFrame(t *testing.T) {
	data, err := Marshal(Frame{Size: MaxFrameSize + 1, Body: nil})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	_, err = NewFrameReader(bytes.NewReader(data)).ReadFrame()
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("ReadFrame error = %v, want ErrFrameTooLarge", err)
	}
}

func TestFrameReaderRejectsUnknownEncoding(t *testing.T) {
	data, err := Marshal(Frame{Encoding: "brotli", Size: 1, Body: []byte("x")})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := NewFrameReader(bytes.NewReader(data)).ReadFrame(); err == nil {
		t.Fatal("expected unknown encoding error")
	}
}
