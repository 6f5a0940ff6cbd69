package engineio

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"

	"github.com/go-sio/sio/events"
	iolog "github.com/go-sio/sio/internal/log"
	"github.com/go-sio/sio/types"
)

var engineLog = iolog.New("sio:engine")

var (
	ErrSocketClosed = errors.New("engineio: socket closed")
	ErrSlowClient   = errors.New("engineio: slow client, outgoing buffer full")
)

// ReadyState mirrors the W3C WebSocket readyState vocabulary the rest of
// this module's packets reason about ("open" being the only one sockets
// spend meaningful time in).
type ReadyState string

const (
	ReadyStateOpening ReadyState = "opening"
	ReadyStateOpen    ReadyState = "open"
	ReadyStateClosing ReadyState = "closing"
	ReadyStateClosed  ReadyState = "closed"
)

// compressThreshold is the minimum payload size, in bytes, worth spending a
// compression pass on; small socket.io control frames never clear it.
const compressThreshold = 1024

// WriteOptions controls how a single Write call frames its payload.
type WriteOptions struct {
	Compress bool
}

// Socket is one live, WebSocket-backed Engine.IO connection. It owns the
// ping/pong keepalive loop and demultiplexes inbound frames into "data",
// "error" and "close" events for the socket.Client sitting on top of it.
type Socket struct {
	*events.EventEmitter

	id      string
	conn    *websocket.Conn
	request *http.Request

	readyState types.Atomic[ReadyState]
	outgoing   chan *Packet
	closed     chan struct{}
	closeOnce  sync.Once

	pingInterval time.Duration
	pingTimeout  time.Duration
	pingTimer    *types.Timer
	pongDeadline *types.Timer
}

func newSocket(id string, conn *websocket.Conn, request *http.Request, pingInterval, pingTimeout time.Duration) *Socket {
	s := &Socket{
		EventEmitter: events.New(),
		id:           id,
		conn:         conn,
		request:      request,
		outgoing:     make(chan *Packet, 256),
		closed:       make(chan struct{}),
		pingInterval: pingInterval,
		pingTimeout:  pingTimeout,
	}
	s.readyState.Store(ReadyStateOpening)
	return s
}

func (s *Socket) Id() string               { return s.id }
func (s *Socket) Request() *http.Request    { return s.request }
func (s *Socket) ReadyState() ReadyState    { return s.readyState.Load() }
func (s *Socket) Writable() bool            { return s.ReadyState() == ReadyStateOpen }
func (s *Socket) RemoteAddr() string        { return s.conn.RemoteAddr().String() }

// Write sends a text (socket.io packet) frame, brotli-compressing the
// payload first when opts asks for it and the payload clears
// compressThreshold — compression is skipped below that size since the
// framing overhead alone outweighs the saving.
func (s *Socket) Write(data []byte, opts *WriteOptions) error {
	if !s.Writable() {
		return ErrSocketClosed
	}
	payload := data
	marker := byte('N')
	if opts != nil && opts.Compress && len(data) >= compressThreshold {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		if _, err := bw.Write(data); err == nil && bw.Close() == nil {
			payload = buf.Bytes()
			marker = 'C'
		}
	}
	framed := append([]byte{marker}, payload...)
	return s.enqueue(&Packet{Type: PacketTypeMessage, Data: framed})
}

// WriteBinary sends a raw binary attachment frame (a deconstructed
// BINARY_EVENT/BINARY_ACK buffer), zstd-compressing it first when opts asks
// for it and it clears compressThreshold.
func (s *Socket) WriteBinary(data []byte, opts *WriteOptions) error {
	if !s.Writable() {
		return ErrSocketClosed
	}
	payload := data
	marker := byte(0)
	if opts != nil && opts.Compress && len(data) >= compressThreshold {
		if enc, err := zstd.NewWriter(nil); err == nil {
			payload = enc.EncodeAll(data, nil)
			enc.Close()
			marker = 1
		}
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, append([]byte{marker}, payload...))
}

func (s *Socket) enqueue(p *Packet) error {
	select {
	case s.outgoing <- p:
		return nil
	case <-s.closed:
		return ErrSocketClosed
	default:
		return ErrSlowClient
	}
}

// Close closes the socket, notifying listeners with reason exactly once.
func (s *Socket) Close(reason string) {
	s.closeOnce.Do(func() {
		s.readyState.Store(ReadyStateClosing)
		close(s.closed)
		types.ClearTimeout(s.pingTimer)
		types.ClearTimeout(s.pongDeadline)
		s.conn.WriteMessage(websocket.TextMessage, (&Packet{Type: PacketTypeClose}).Encode())
		s.conn.Close()
		s.readyState.Store(ReadyStateClosed)
		s.Emit("close", reason)
	})
}

func (s *Socket) start() {
	s.readyState.Store(ReadyStateOpen)
	go s.writeLoop()
	go s.readLoop()
	s.schedulePing()
}

func (s *Socket) writeLoop() {
	for {
		select {
		case p := <-s.outgoing:
			if err := s.conn.WriteMessage(websocket.TextMessage, p.Encode()); err != nil {
				s.Close("write error")
				return
			}
		case <-s.closed:
			return
		}
	}
}

func (s *Socket) readLoop() {
	defer s.Close("transport close")
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.Emit("error", err)
			}
			return
		}
		if msgType == websocket.BinaryMessage {
			s.Emit("data", decodeBinaryFrame(data))
			continue
		}
		packet, err := DecodePacket(data)
		if err != nil {
			s.Emit("error", err)
			continue
		}
		s.handlePacket(packet)
	}
}

func decodeBinaryFrame(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	marker, payload := data[0], data[1:]
	if marker == 1 {
		if dec, err := zstd.NewReader(nil); err == nil {
			if out, err := dec.DecodeAll(payload, nil); err == nil {
				dec.Close()
				return out
			}
			dec.Close()
		}
	}
	return payload
}

func decodeTextFrame(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	marker, payload := data[0], data[1:]
	if marker == 'C' {
		r := brotli.NewReader(bytes.NewReader(payload))
		if out, err := io.ReadAll(r); err == nil {
			return out
		}
	}
	return payload
}

func (s *Socket) handlePacket(p *Packet) {
	switch p.Type {
	case PacketTypePing:
		s.enqueue(&Packet{Type: PacketTypePong})
	case PacketTypePong:
		types.ClearTimeout(s.pongDeadline)
		s.schedulePing()
	case PacketTypeMessage:
		// Emitted as a string (vs. []byte for a binary attachment frame) so
		// the parser decoder that socket.Client.ondata feeds can tell the two
		// apart with a type switch.
		s.Emit("data", string(decodeTextFrame(p.Data)))
	case PacketTypeClose:
		s.Close("client namespace disconnect")
	}
}

func (s *Socket) schedulePing() {
	s.pingTimer = types.SetTimeout(func() {
		s.enqueue(&Packet{Type: PacketTypePing})
		s.pongDeadline = types.SetTimeout(func() {
			s.Close("ping timeout")
		}, s.pingTimeout)
	}, s.pingInterval)
}
