package parser

import "testing"

func TestIsBinary(t *testing.T) {
	if !IsBinary([]byte{1}) {
		t.Error("[]byte should be binary")
	}
	if IsBinary("string") {
		t.Error("string should not be binary")
	}
	if IsBinary(nil) {
		t.Error("nil should not be binary")
	}
}

func TestHasBinaryNested(t *testing.T) {
	data := []any{"event", map[string]any{"file": []byte{1, 2}}}
	if !HasBinary(data) {
		t.Error("expected nested binary to be detected")
	}
	if HasBinary([]any{"event", "data"}) {
		t.Error("expected no binary")
	}
}

func TestDeconstructReconstructPacket(t *testing.T) {
	packet := &Packet{Type: EVENT, Data: []any{"upload", []byte{1, 2, 3}}}
	pack, buffers := DeconstructPacket(packet)
	if len(buffers) != 1 {
		t.Fatalf("expected 1 buffer, got %d", len(buffers))
	}
	if pack.Attachments == nil || *pack.Attachments != 1 {
		t.Fatalf("expected attachments=1, got %v", pack.Attachments)
	}

	reconstructed, err := ReconstructPacket(pack, buffers)
	if err != nil {
		t.Fatalf("ReconstructPacket: %v", err)
	}
	data := reconstructed.Data.([]any)
	buf, ok := data[1].([]byte)
	if !ok || string(buf) != "\x01\x02\x03" {
		t.Errorf("unexpected reconstructed data: %v", data[1])
	}
	if reconstructed.Attachments != nil {
		t.Error("Attachments should be cleared after reconstruction")
	}
}
