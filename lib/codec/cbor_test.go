// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalIsDeterministic(t *testing.T) {
	first, err := Marshal(map[string]any{"kind": "quit", "a": 1, "z": true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(map[string]any{"z": true, "kind": "quit", "a": 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("encodings differ: %x vs %x", first, second)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	data, err := Marshal(map[string]any{"kind": "restart", "extra": "ignored"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded struct {
		Kind string `cbor:"kind"`
	}
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Kind != "restart" {
		t.Fatalf("Kind = %q, want restart", decoded.Kind)
	}
}

func TestStreamDecodeStopsAtValueBoundary(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	if err := encoder.Encode("first"); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := encoder.Encode("second"); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoder := NewDecoder(&buffer)
	var value string
	if err := decoder.Decode(&value); err != nil || value != "first" {
		t.Fatalf("first Decode = %q, %v", value, err)
	}
	if err := decoder.Decode(&value); err != nil || value != "second" {
		t.Fatalf("second Decode = %q, %v", value, err)
	}
}

func TestAnyTargetUsesStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"nested": map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type %T, want map[string]any", decoded)
	}
	if _, ok := outer["nested"].(map[string]any); !ok {
		t.Fatalf("nested type %T, want map[string]any", outer["nested"])
	}
}
