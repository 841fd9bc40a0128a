// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

// sampleEnvelope mirrors the shape of an RPC call envelope.
type sampleEnvelope struct {
	Type      string `cbor:"type"`
	Interface string `cbor:"interface,omitempty"`
	RequestID uint64 `cbor:"request_id,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleEnvelope{
		Type:      "call",
		Interface: "WidgetView",
		RequestID: 7,
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleEnvelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	record := map[string]any{"id": 1, "Name": "Ann", "Email": "ann@example.com"}

	first, err := Marshal(record)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(record)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestUnmarshalIntoAnyUsesStringMapsAndInt64(t *testing.T) {
	data, err := Marshal(map[string]any{
		"id":    uint64(42),
		"delta": -3,
		"tags":  []any{"x", 1},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	record, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if id, ok := record["id"].(int64); !ok || id != 42 {
		t.Errorf("id = %#v, want int64(42)", record["id"])
	}
	if delta, ok := record["delta"].(int64); !ok || delta != -3 {
		t.Errorf("delta = %#v, want int64(-3)", record["delta"])
	}
	tags, ok := record["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Fatalf("tags = %#v, want two-element []any", record["tags"])
	}
	if tags[1] != int64(1) {
		t.Errorf("tags[1] = %#v, want int64(1)", tags[1])
	}
}

func TestRawMessageDefersDecoding(t *testing.T) {
	type envelope struct {
		Type string     `cbor:"type"`
		Data RawMessage `cbor:"data"`
	}

	payload, err := Marshal(map[string]any{"table_id": "People"})
	if err != nil {
		t.Fatalf("Marshal payload: %v", err)
	}
	data, err := Marshal(envelope{Type: "custom", Data: payload})
	if err != nil {
		t.Fatalf("Marshal envelope: %v", err)
	}

	var decoded envelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !bytes.Equal(decoded.Data, payload) {
		t.Errorf("raw data = %x, want %x", []byte(decoded.Data), payload)
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var decoded sampleEnvelope
	if err := Unmarshal([]byte{0xff, 0xfe}, &decoded); err == nil {
		t.Fatal("expected error decoding garbage")
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]any{"type": "ready"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"ready"`) {
		t.Errorf("notation %q does not contain \"ready\"", notation)
	}
}
