// Package engineio implements the low-level, transport-facing half of the
// stack: a WebSocket-based Engine.IO server that frames and keeps alive the
// connections the socket package's Client/Server build namespaces on top
// of.
package engineio

import "fmt"

// PacketType is the Engine.IO (not socket.io) packet discriminator: the
// layer below the one parser.PacketType describes.
type PacketType byte

const (
	PacketTypeOpen PacketType = iota
	PacketTypeClose
	PacketTypePing
	PacketTypePong
	PacketTypeMessage
	PacketTypeUpgrade
	PacketTypeNoop
)

func (t PacketType) String() string {
	switch t {
	case PacketTypeOpen:
		return "open"
	case PacketTypeClose:
		return "close"
	case PacketTypePing:
		return "ping"
	case PacketTypePong:
		return "pong"
	case PacketTypeMessage:
		return "message"
	case PacketTypeUpgrade:
		return "upgrade"
	case PacketTypeNoop:
		return "noop"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// Packet is a single Engine.IO frame: a type byte followed by an optional
// payload. Message packets carry, as Data, a compression marker byte followed
// by one text frame produced by parser.Encoder.Encode.
type Packet struct {
	Type PacketType
	Data []byte
}

// Encode renders the packet as the bytes written to the WebSocket frame.
func (p *Packet) Encode() []byte {
	out := make([]byte, 0, len(p.Data)+1)
	out = append(out, '0'+byte(p.Type))
	out = append(out, p.Data...)
	return out
}

// DecodePacket parses a single WebSocket text frame into an Engine.IO packet.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("engineio: empty packet")
	}
	t := data[0]
	if t < '0' || t > '6' {
		return nil, fmt.Errorf("engineio: invalid packet type %q", t)
	}
	p := &Packet{Type: PacketType(t - '0')}
	if len(data) > 1 {
		p.Data = data[1:]
	}
	return p, nil
}

// HandshakeData is the JSON payload of the initial "open" packet.
type HandshakeData struct {
	Sid          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}
