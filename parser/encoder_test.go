package parser

import (
	"strings"
	"testing"
)

func TestEncodeNonBinaryEvent(t *testing.T) {
	e := NewEncoder()
	packet := &Packet{Type: EVENT, Data: map[string]any{"key": "value"}}

	frames := e.Encode(packet)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if got := frames[0].(string); got != `2{"key":"value"}` {
		t.Errorf("got %q", got)
	}
}

func TestEncodeAck(t *testing.T) {
	e := NewEncoder()
	packet := &Packet{Type: ACK, Data: map[string]any{"key": "value"}}

	frames := e.Encode(packet)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if got := frames[0].(string); got != `3{"key":"value"}` {
		t.Errorf("got %q", got)
	}
}

func TestEncodeEventPromotesToBinary(t *testing.T) {
	e := NewEncoder()
	packet := &Packet{Type: EVENT, Data: []any{"upload", []byte{1, 2, 3}}}

	frames := e.Encode(packet)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	header := frames[0].(string)
	if !strings.HasPrefix(header, "51-") {
		t.Errorf("expected BINARY_EVENT header, got %q", header)
	}
	attachment, ok := frames[1].([]byte)
	if !ok || string(attachment) != "\x01\x02\x03" {
		t.Errorf("unexpected attachment frame: %v", frames[1])
	}
}

func TestEncodeNamespaceAndId(t *testing.T) {
	e := NewEncoder()
	id := uint64(42)
	packet := &Packet{Type: EVENT, Nsp: "/admin", Id: &id, Data: []any{"message", "hello"}}

	frames := e.Encode(packet)
	want := `2/admin,42["message","hello"]`
	if got := frames[0].(string); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEncodeDefaultNamespaceOmitted(t *testing.T) {
	e := NewEncoder()
	packet := &Packet{Type: EVENT, Nsp: "/", Data: "string"}

	frames := e.Encode(packet)
	if got := frames[0].(string); got != `2"string"` {
		t.Errorf("got %q", got)
	}
}

func TestEncodeEmptyPacket(t *testing.T) {
	e := NewEncoder()
	frames := e.Encode(&Packet{Type: DISCONNECT})
	if got := frames[0].(string); got != "1" {
		t.Errorf("got %q", got)
	}
}
