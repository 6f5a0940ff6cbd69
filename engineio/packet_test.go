package engineio

import "testing"

func TestPacketEncodeDecode(t *testing.T) {
	p := &Packet{Type: PacketTypeMessage, Data: []byte("hello")}
	encoded := p.Encode()
	if string(encoded) != "4hello" {
		t.Fatalf("got %q", encoded)
	}

	decoded, err := DecodePacket(encoded)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if decoded.Type != PacketTypeMessage || string(decoded.Data) != "hello" {
		t.Errorf("got %+v", decoded)
	}
}

func TestDecodePacketEmpty(t *testing.T) {
	if _, err := DecodePacket(nil); err == nil {
		t.Error("expected error for empty packet")
	}
}

func TestDecodePacketInvalidType(t *testing.T) {
	if _, err := DecodePacket([]byte("9x")); err == nil {
		t.Error("expected error for invalid packet type")
	}
}

func TestPacketTypeString(t *testing.T) {
	if PacketTypeOpen.String() != "open" {
		t.Errorf("got %q", PacketTypeOpen.String())
	}
}
