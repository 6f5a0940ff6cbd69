package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/go-sio/sio/events"
	iolog "github.com/go-sio/sio/internal/log"
)

var parserLog = iolog.New("sio:parser")

// Decoder turns wire frames back into Packets, emitting a "decoded" event
// for each complete packet (buffering internally while a BINARY_EVENT or
// BINARY_ACK packet's attachments are still arriving).
type Decoder interface {
	On(ev string, listeners ...events.Listener)
	Once(ev string, listeners ...events.Listener)
	Emit(ev string, args ...any)

	Add(any) error
	Destroy()
}

type decoder struct {
	*events.EventEmitter

	reconstructor *binaryreconstructor
	mu            sync.RWMutex
}

func NewDecoder() Decoder {
	return &decoder{EventEmitter: events.New()}
}

// Add feeds the decoder the next frame: a string for a leading packet
// frame, or a []byte/io.Reader for a trailing binary attachment.
func (d *decoder) Add(data any) error {
	switch frame := data.(type) {
	case string:
		d.mu.RLock()
		reconstructing := d.reconstructor != nil
		d.mu.RUnlock()
		if reconstructing {
			return errors.New("got plaintext data when reconstructing a packet")
		}
		return d.decodeAsString(frame)
	default:
		if !IsBinary(data) {
			return fmt.Errorf("unknown type: %v", data)
		}
		d.mu.RLock()
		reconstructing := d.reconstructor != nil
		d.mu.RUnlock()
		if !reconstructing {
			return errors.New("got binary data when not reconstructing a packet")
		}

		var buf []byte
		switch v := data.(type) {
		case []byte:
			buf = v
		case io.Reader:
			if c, ok := data.(io.Closer); ok {
				defer c.Close()
			}
			b, err := io.ReadAll(v)
			if err != nil {
				return err
			}
			buf = b
		}

		d.mu.Lock()
		packet, err := d.reconstructor.takeBinaryData(buf)
		d.mu.Unlock()
		if err != nil {
			return fmt.Errorf("decode error: %w", err)
		}
		if packet != nil {
			d.mu.Lock()
			d.reconstructor = nil
			d.mu.Unlock()
			d.Emit("decoded", packet)
		}
	}
	return nil
}

func (d *decoder) decodeAsString(str string) error {
	packet, err := d.decodeString(str)
	if err != nil {
		parserLog.Debug("decode err %v", err)
		return err
	}
	if packet.Type == BINARY_EVENT || packet.Type == BINARY_ACK {
		if packet.Attachments != nil && *packet.Attachments == 0 {
			d.Emit("decoded", packet)
		} else {
			d.mu.Lock()
			d.reconstructor = NewBinaryReconstructor(packet)
			d.mu.Unlock()
		}
	} else {
		d.Emit("decoded", packet)
	}
	return nil
}

// scanner is a minimal forward-scanning byte/rune reader over a string,
// supporting the one-byte-of-lookahead the wire format's grammar needs.
type scanner struct {
	s   string
	pos int
}

func (sc *scanner) ReadByte() (byte, error) {
	if sc.pos >= len(sc.s) {
		return 0, io.EOF
	}
	b := sc.s[sc.pos]
	sc.pos++
	return b, nil
}

func (sc *scanner) UnreadByte() error {
	if sc.pos == 0 {
		return errors.New("nothing to unread")
	}
	sc.pos--
	return nil
}

// ReadString reads up to and including delim, returning io.EOF (with the
// remainder read so far) if delim is never found.
func (sc *scanner) ReadString(delim byte) (string, error) {
	start := sc.pos
	for sc.pos < len(sc.s) {
		if sc.s[sc.pos] == delim {
			sc.pos++
			return sc.s[start:sc.pos], nil
		}
		sc.pos++
	}
	return sc.s[start:sc.pos], io.EOF
}

func (sc *scanner) Len() int {
	return len(sc.s) - sc.pos
}

func (sc *scanner) Rest() string {
	return sc.s[sc.pos:]
}

// decodeString parses a single non-attachment packet frame.
func (d *decoder) decodeString(raw string) (packet *Packet, err error) {
	defer func() {
		if err == nil {
			parserLog.Debug("decoded %s as %v", raw, packet)
		}
	}()

	sc := &scanner{s: raw}
	packet = &Packet{}

	msgType, err := sc.ReadByte()
	if err != nil {
		return nil, errors.New("invalid payload")
	}
	packet.Type = PacketType(msgType)
	if !packet.Type.Valid() {
		return nil, fmt.Errorf("unknown packet type %d", packet.Type)
	}

	if packet.Type == BINARY_EVENT || packet.Type == BINARY_ACK {
		buf, err := sc.ReadString('-')
		if err != nil {
			return nil, errors.New("illegal attachments")
		}
		l := len(buf)
		if l < 2 {
			return nil, errors.New("illegal attachments")
		}
		attachments, err := strconv.ParseUint(buf[:l-1], 10, 64)
		if err != nil {
			return nil, errors.New("illegal attachments")
		}
		packet.Attachments = &attachments
	}

	if nsp, err := sc.ReadByte(); err == nil {
		if nsp == '/' {
			rest, err := sc.ReadString(',')
			if err != nil {
				if err != io.EOF {
					return nil, errors.New("illegal namespace")
				}
				packet.Nsp = "/" + rest
			} else {
				l := len(rest)
				if l < 1 {
					return nil, errors.New("illegal namespace")
				}
				packet.Nsp = "/" + rest[:l-1]
			}
		} else {
			if err := sc.UnreadByte(); err != nil {
				return nil, errors.New("illegal namespace")
			}
			packet.Nsp = "/"
		}
	} else {
		if err != io.EOF {
			return nil, errors.New("illegal namespace")
		}
		packet.Nsp = "/"
	}

	if sc.Len() > 0 {
		var id strings.Builder
		for {
			b, err := sc.ReadByte()
			if err != nil {
				if err == io.EOF {
					break
				}
				return nil, err
			}
			if b >= '0' && b <= '9' {
				id.WriteByte(b)
			} else {
				if err := sc.UnreadByte(); err != nil {
					return nil, errors.New("illegal id")
				}
				break
			}
		}
		if id.Len() > 0 {
			n, err := strconv.ParseUint(id.String(), 10, 64)
			if err != nil {
				return nil, err
			}
			packet.Id = &n
		}
	}

	if sc.Len() > 0 {
		var payload any
		if json.Unmarshal([]byte(sc.Rest()), &payload) != nil {
			return nil, errors.New("invalid payload")
		}
		if !isPayloadValid(packet.Type, payload) {
			return nil, errors.New("invalid payload")
		}
		packet.Data = payload
	}

	return packet, nil
}

func isPayloadValid(t PacketType, payload any) bool {
	switch t {
	case CONNECT:
		_, ok := payload.(map[string]any)
		return ok
	case DISCONNECT:
		return payload == nil
	case ERROR:
		if _, ok := payload.(map[string]any); ok {
			return true
		}
		_, ok := payload.(string)
		return ok
	case EVENT, BINARY_EVENT:
		data, ok := payload.([]any)
		return ok && len(data) > 0
	case ACK, BINARY_ACK:
		_, ok := payload.([]any)
		return ok
	}
	return false
}

// Destroy abandons any in-progress binary reconstruction.
func (d *decoder) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reconstructor != nil {
		d.reconstructor.finishedReconstruction()
	}
}
