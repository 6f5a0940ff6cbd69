package parser

import (
	"reflect"
	"testing"
)

func TestDecodeEventPacket(t *testing.T) {
	d := NewDecoder()

	var decoded *Packet
	d.On("decoded", func(args ...any) {
		decoded = args[0].(*Packet)
	})

	if err := d.Add(`2["hello","world"]`); err != nil {
		t.Fatalf("Add: %v", err)
	}
	want := &Packet{Type: EVENT, Nsp: "/", Data: []any{"hello", "world"}}
	if !reflect.DeepEqual(decoded, want) {
		t.Errorf("got %+v, want %+v", decoded, want)
	}
}

func TestDecodeConnectWithNamespace(t *testing.T) {
	d := NewDecoder()
	var decoded *Packet
	d.On("decoded", func(args ...any) { decoded = args[0].(*Packet) })

	if err := d.Add(`0/admin,{"token":"abc"}`); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if decoded.Type != CONNECT || decoded.Nsp != "/admin" {
		t.Errorf("got type=%v nsp=%q", decoded.Type, decoded.Nsp)
	}
}

func TestDecodeAckWithId(t *testing.T) {
	d := NewDecoder()
	var decoded *Packet
	d.On("decoded", func(args ...any) { decoded = args[0].(*Packet) })

	if err := d.Add(`31["response"]`); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if decoded.Id == nil || *decoded.Id != 1 {
		t.Errorf("expected id 1, got %v", decoded.Id)
	}
}

func TestDecodeInvalidPacketType(t *testing.T) {
	d := NewDecoder()
	if err := d.Add("9invalid"); err == nil {
		t.Error("expected error for unknown packet type")
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	d := NewDecoder()
	if err := d.Add("2{not json}"); err == nil {
		t.Error("expected error for invalid JSON payload")
	}
}

func TestBinaryEventRoundTrip(t *testing.T) {
	e := NewEncoder()
	packet := &Packet{Type: EVENT, Data: []any{"upload", []byte{0x01, 0x02, 0x03}}}
	frames := e.Encode(packet)

	d := NewDecoder()
	var decoded *Packet
	d.On("decoded", func(args ...any) { decoded = args[0].(*Packet) })

	if err := d.Add(frames[0].(string)); err != nil {
		t.Fatalf("Add header: %v", err)
	}
	if decoded != nil {
		t.Fatal("packet should not decode before attachments arrive")
	}
	if err := d.Add(frames[1].([]byte)); err != nil {
		t.Fatalf("Add attachment: %v", err)
	}
	if decoded == nil {
		t.Fatal("packet should decode once all attachments arrive")
	}
	data := decoded.Data.([]any)
	if data[0] != "upload" {
		t.Errorf("unexpected event name %v", data[0])
	}
	buf, ok := data[1].([]byte)
	if !ok || string(buf) != "\x01\x02\x03" {
		t.Errorf("unexpected reconstructed attachment: %v", data[1])
	}
}

func TestDecoderRejectsPlaintextWhileReconstructing(t *testing.T) {
	d := NewDecoder()
	if err := d.Add(`51-["upload",{"_placeholder":true,"num":0}]`); err != nil {
		t.Fatalf("Add header: %v", err)
	}
	if err := d.Add("2[\"hello\"]"); err == nil {
		t.Error("expected error adding plaintext mid-reconstruction")
	}
}

func TestIsPayloadValid(t *testing.T) {
	tests := []struct {
		name    string
		pType   PacketType
		payload any
		want    bool
	}{
		{"valid CONNECT", CONNECT, map[string]any{"key": "value"}, true},
		{"invalid CONNECT", CONNECT, "string", false},
		{"valid DISCONNECT", DISCONNECT, nil, true},
		{"invalid DISCONNECT", DISCONNECT, "data", false},
		{"valid ERROR map", ERROR, map[string]any{"message": "x"}, true},
		{"valid ERROR string", ERROR, "nope", true},
		{"invalid ERROR", ERROR, 123, false},
		{"valid EVENT", EVENT, []any{"event", "data"}, true},
		{"invalid EVENT empty", EVENT, []any{}, false},
		{"valid ACK", ACK, []any{"data"}, true},
		{"invalid ACK", ACK, "not array", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPayloadValid(tt.pType, tt.payload); got != tt.want {
				t.Errorf("isPayloadValid() = %v, want %v", got, tt.want)
			}
		})
	}
}
