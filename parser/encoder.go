package parser

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Encoder turns a Packet into the frames that cross the wire: a single
// string frame for non-binary packets, or a string frame followed by one
// []byte frame per attachment for binary ones.
type Encoder interface {
	Encode(*Packet) []any
}

type encoder struct{}

func NewEncoder() Encoder {
	return &encoder{}
}

// Encode returns the packet's wire frames, promoting EVENT/ACK packets that
// carry binary data to BINARY_EVENT/BINARY_ACK in the process.
func (e *encoder) Encode(packet *Packet) []any {
	parserLog.Debug("encoding packet %v", packet)
	if packet.Type == EVENT || packet.Type == ACK {
		if HasBinary(packet.Data) {
			if packet.Type == EVENT {
				packet.Type = BINARY_EVENT
			} else {
				packet.Type = BINARY_ACK
			}
			return e.encodeAsBinary(packet)
		}
	}
	return []any{e.encodeAsString(packet)}
}

// encodeAsString renders the packet's non-binary frame: type byte,
// optional attachment count, optional namespace, optional ack id, then the
// JSON-encoded data.
func (e *encoder) encodeAsString(packet *Packet) string {
	var str strings.Builder
	str.WriteByte(byte(packet.Type))

	if packet.Type == BINARY_EVENT || packet.Type == BINARY_ACK {
		if packet.Attachments != nil {
			str.WriteString(strconv.FormatUint(*packet.Attachments, 10))
		}
		str.WriteByte('-')
	}

	if len(packet.Nsp) > 0 && packet.Nsp != "/" {
		str.WriteString(packet.Nsp)
		str.WriteByte(',')
	}

	if packet.Id != nil {
		str.WriteString(strconv.FormatUint(*packet.Id, 10))
	}

	if packet.Data != nil {
		if b, err := json.Marshal(packet.Data); err == nil {
			str.Write(b)
		}
	}

	parserLog.Debug("encoded %v as %s", packet, str.String())
	return str.String()
}

// encodeAsBinary strips binary attachments out of the packet into their own
// frames and returns the leading string frame followed by each attachment.
func (e *encoder) encodeAsBinary(obj *Packet) []any {
	packet, buffers := DeconstructPacket(obj)
	frames := make([]any, 0, len(buffers)+1)
	frames = append(frames, e.encodeAsString(packet))
	for _, b := range buffers {
		frames = append(frames, b)
	}
	return frames
}
