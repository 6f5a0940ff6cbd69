package socket

import (
	"net/http"
	"sync"

	"github.com/go-sio/sio/engineio"
	iolog "github.com/go-sio/sio/internal/log"
	"github.com/go-sio/sio/parser"
	"github.com/go-sio/sio/types"
)

var clientLog = iolog.New("sio:client")

// Client demultiplexes one Engine.IO transport into zero-or-more namespace
// Sockets. It owns the decoder for the life of the connection and
// orchestrates the fanned-out close of every Socket riding on it.
type Client struct {
	conn   *engineio.Socket
	id     string
	server *Server

	encoder parser.Encoder
	decoder parser.Decoder

	sockets    *types.Map[SocketId, *Socket]
	namespaces *types.Map[string, *Socket]

	// connectBuffer holds namespace names whose CONNECT was received before
	// the default namespace had admitted a socket — see spec §4.5's
	// connect-buffering rationale. Guarded by bufferMu since it's a plain
	// slice, unlike sockets/namespaces.
	connectBuffer []string
	bufferMu      sync.Mutex

	connectTimeout *types.Timer
}

func NewClient(server *Server, conn *engineio.Socket) *Client {
	c := &Client{
		server:     server,
		conn:       conn,
		id:         conn.Id(),
		sockets:    types.NewMap[SocketId, *Socket](),
		namespaces: types.NewMap[string, *Socket](),
	}
	c.encoder = server.Parser().Encoder()
	c.decoder = server.Parser().Decoder()
	c.setup()
	return c
}

func (c *Client) Id() string             { return c.id }
func (c *Client) Conn() *engineio.Socket { return c.conn }
func (c *Client) Request() *http.Request { return c.conn.Request() }

func (c *Client) setup() {
	c.decoder.On("decoded", c.ondecoded)
	c.conn.On("data", c.ondata)
	c.conn.On("error", c.onerror)
	c.conn.On("close", c.onclose)
	c.connectTimeout = types.SetTimeout(func() {
		if c.sockets.Len() == 0 {
			clientLog.Debug("no namespace joined yet, close the client")
			c.close()
		} else {
			clientLog.Debug("the client has already joined a namespace, nothing to do")
		}
	}, c.server.Options().ConnectTimeout())
}

// connect admits this client to namespace name. A non-default namespace
// requested before the default namespace has connected is buffered and
// replayed once "/" admits a socket.
func (c *Client) connect(name string, auth any) {
	nsp, ok := c.server.namespace(name)
	if !ok {
		clientLog.Debug("creation of namespace %s was denied", name)
		c.writePacket(&parser.Packet{
			Type: parser.ERROR,
			Nsp:  name,
			Data: map[string]string{"message": "Invalid namespace"},
		}, nil)
		return
	}

	if name != "/" {
		if _, hasDefault := c.namespaces.Load("/"); !hasDefault {
			c.bufferMu.Lock()
			c.connectBuffer = append(c.connectBuffer, name)
			c.bufferMu.Unlock()
			return
		}
	}

	clientLog.Debug("connecting to namespace %s", name)
	c.doConnect(nsp, auth)
}

func (c *Client) doConnect(nsp *Namespace, auth any) {
	nsp.Add(c, auth, func(socket *Socket) {
		c.sockets.Store(socket.Id(), socket)
		c.namespaces.Store(nsp.Name(), socket)

		if c.connectTimeout != nil {
			types.ClearTimeout(c.connectTimeout)
			c.connectTimeout = nil
		}

		if nsp.Name() == "/" {
			c.drainConnectBuffer()
		}
	})
}

func (c *Client) drainConnectBuffer() {
	c.bufferMu.Lock()
	pending := c.connectBuffer
	c.connectBuffer = nil
	c.bufferMu.Unlock()
	for _, name := range pending {
		c.connect(name, nil)
	}
}

// disconnect tears down every namespace socket on this client, then closes
// the underlying transport.
func (c *Client) disconnect() {
	c.sockets.Range(func(id SocketId, socket *Socket) bool {
		socket.Disconnect(false)
		return true
	})
	c.close()
}

// removeSocket is called by Socket.onclose to drop this client's indices
// for a departed socket.
func (c *Client) removeSocket(socket *Socket) {
	if _, ok := c.sockets.LoadAndDelete(socket.Id()); ok {
		c.namespaces.Delete(socket.Nsp().Name())
	} else {
		clientLog.Debug("ignoring remove for %s", socket.Id())
	}
}

func (c *Client) close() {
	if c.conn.ReadyState() == engineio.ReadyStateOpen {
		clientLog.Debug("forcing transport close")
		c.conn.Close("forced server close")
	}
}

// writePacket encodes packet and writes the resulting frames to the
// transport. Dropped silently if the transport isn't open.
func (c *Client) writePacket(packet *parser.Packet, opts *WriteOptions) {
	if c.conn.ReadyState() != engineio.ReadyStateOpen {
		clientLog.Debug("ignoring packet write %v", packet)
		return
	}
	if opts == nil {
		opts = &WriteOptions{}
	}
	c.WriteToEngine(c.encoder.Encode(packet), opts)
}

// WriteToEngine writes already-encoded frames (either just produced by
// writePacket, or pre-encoded once by Adapter.Broadcast and fanned out to
// many recipients) through to the transport.
func (c *Client) WriteToEngine(frames []any, opts *WriteOptions) {
	if opts.Volatile && !c.conn.Writable() {
		clientLog.Debug("volatile packet is discarded since the transport is not currently writable")
		return
	}
	for _, frame := range frames {
		switch payload := frame.(type) {
		case string:
			c.conn.Write([]byte(payload), &opts.WriteOptions)
		case []byte:
			c.conn.WriteBinary(payload, &opts.WriteOptions)
		}
	}
}

// ondata forwards one inbound transport frame to the decoder; a decoder
// error (malformed input) is a protocol violation routed to onerror.
func (c *Client) ondata(args ...any) {
	if err := c.decoder.Add(args[0]); err != nil {
		clientLog.Debug("invalid packet format: %v", err)
		c.onerror(err)
	}
}

// ondecoded is called once the decoder has reassembled a complete packet
// (including any binary attachments).
func (c *Client) ondecoded(args ...any) {
	packet, ok := args[0].(*parser.Packet)
	if !ok {
		return
	}
	if packet.Type == parser.CONNECT {
		c.connect(packet.Nsp, packet.Data)
		return
	}
	if socket, ok := c.namespaces.Load(packet.Nsp); ok {
		socket.onpacket(packet)
	}
}

func (c *Client) onerror(args ...any) {
	c.sockets.Range(func(_ SocketId, socket *Socket) bool {
		socket.onerror(args[0])
		return true
	})
	c.conn.Close("client error")
}

func (c *Client) onclose(args ...any) {
	var reason any
	if len(args) > 0 {
		reason = args[0]
	}
	clientLog.Debug("client close with reason %v", reason)
	c.destroy()
	c.sockets.Range(func(id SocketId, socket *Socket) bool {
		socket.onclose(reason)
		return true
	})
	c.decoder.Destroy()
}

func (c *Client) destroy() {
	c.conn.RemoveListener("data", c.ondata)
	c.conn.RemoveListener("error", c.onerror)
	c.conn.RemoveListener("close", c.onclose)
	if c.connectTimeout != nil {
		types.ClearTimeout(c.connectTimeout)
		c.connectTimeout = nil
	}
}
