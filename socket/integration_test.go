package socket_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/go-sio/sio/engineio"
	"github.com/go-sio/sio/parser"
	"github.com/go-sio/sio/socket"
)

// testClient drives a real websocket connection against a socket.Server,
// reusing the production parser.Encoder/Decoder so the frames it writes and
// reads are byte-identical to what a real client exchanges with Client.
type testClient struct {
	t       *testing.T
	conn    *websocket.Conn
	encoder parser.Encoder
	packets chan *parser.Packet
}

func newTestClient(t *testing.T, url string) *testClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read engine.io handshake: %v", err)
	}

	decoder := parser.NewDecoder()
	c := &testClient{
		t:       t,
		conn:    conn,
		encoder: parser.NewEncoder(),
		packets: make(chan *parser.Packet, 16),
	}
	decoder.On("decoded", func(args ...any) {
		c.packets <- args[0].(*parser.Packet)
	})
	go c.readLoop(decoder)
	t.Cleanup(func() { conn.Close() })
	return c
}

// readLoop strips the engine.io message type byte and the uncompressed
// content marker the server always sends (payloads in these tests never
// clear the compression threshold) before handing the rest to the decoder.
func (c *testClient) readLoop(decoder parser.Decoder) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if len(data) < 2 || data[0] != '4' {
			continue
		}
		if err := decoder.Add(string(data[2:])); err != nil {
			c.t.Errorf("decode: %v", err)
		}
	}
}

func (c *testClient) send(packet *parser.Packet) {
	c.t.Helper()
	for _, frame := range c.encoder.Encode(packet) {
		str, ok := frame.(string)
		if !ok {
			c.t.Fatalf("binary frames unsupported in this test client")
		}
		msg := append([]byte{'4', 'N'}, []byte(str)...)
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.t.Fatalf("write: %v", err)
		}
	}
}

func (c *testClient) next(timeout time.Duration) *parser.Packet {
	c.t.Helper()
	select {
	case p := <-c.packets:
		return p
	case <-time.After(timeout):
		c.t.Fatal("timed out waiting for packet")
		return nil
	}
}

func newTestServer(t *testing.T) (*socket.Server, string) {
	t.Helper()
	engine := engineio.NewServer(nil)
	server := socket.NewServer(engine, nil)
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	return server, "ws" + strings.TrimPrefix(ts.URL, "http") + "/socket.io/"
}

func TestConnectAndEmit(t *testing.T) {
	server, url := newTestServer(t)

	connected := make(chan *socket.Socket, 1)
	server.Sockets().On("connection", func(args ...any) {
		connected <- args[0].(*socket.Socket)
	})

	client := newTestClient(t, url)
	client.send(&parser.Packet{Type: parser.CONNECT})

	ack := client.next(2 * time.Second)
	if ack.Type != parser.CONNECT {
		t.Fatalf("expected CONNECT ack, got %v", ack.Type)
	}
	sid, _ := ack.Data.(map[string]any)["sid"].(string)
	if sid == "" {
		t.Fatal("expected a non-empty sid in the CONNECT ack")
	}

	select {
	case s := <-connected:
		if s.Nsp().Name() != "/" {
			t.Errorf("expected default namespace, got %s", s.Nsp().Name())
		}
		if string(s.Id()) != sid {
			t.Errorf("ack sid %q does not match socket id %q", sid, s.Id())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never observed the connection")
	}
}

func TestEventRoundTrip(t *testing.T) {
	server, url := newTestServer(t)

	received := make(chan []any, 1)
	server.Sockets().On("connection", func(args ...any) {
		s := args[0].(*socket.Socket)
		s.On("greet", func(args ...any) {
			received <- args
		})
	})

	client := newTestClient(t, url)
	client.send(&parser.Packet{Type: parser.CONNECT})
	client.next(2 * time.Second) // CONNECT ack

	client.send(&parser.Packet{Type: parser.EVENT, Data: []any{"greet", "hello"}})

	select {
	case args := <-received:
		if len(args) != 1 || args[0] != "hello" {
			t.Errorf("unexpected event args: %v", args)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the server")
	}
}

func TestAckCallback(t *testing.T) {
	server, url := newTestServer(t)

	server.Sockets().On("connection", func(args ...any) {
		s := args[0].(*socket.Socket)
		s.On("sum", func(args ...any) {
			a, _ := args[0].(float64)
			b, _ := args[1].(float64)
			ack := args[2].(func(...any))
			ack(a + b)
		})
	})

	client := newTestClient(t, url)
	client.send(&parser.Packet{Type: parser.CONNECT})
	client.next(2 * time.Second)

	id := uint64(7)
	client.send(&parser.Packet{Type: parser.EVENT, Id: &id, Data: []any{"sum", 2, 3}})

	ack := client.next(2 * time.Second)
	if ack.Type != parser.ACK || ack.Id == nil || *ack.Id != id {
		t.Fatalf("expected ACK id %d, got %+v", id, ack)
	}
	data, ok := ack.Data.([]any)
	if !ok || len(data) != 1 || data[0] != float64(5) {
		t.Errorf("unexpected ack payload: %v", ack.Data)
	}
}

func TestRoomBroadcast(t *testing.T) {
	server, url := newTestServer(t)

	joined := make(chan struct{}, 2)
	server.Sockets().On("connection", func(args ...any) {
		s := args[0].(*socket.Socket)
		s.Join("general")
		joined <- struct{}{}
	})

	a := newTestClient(t, url)
	b := newTestClient(t, url)

	a.send(&parser.Packet{Type: parser.CONNECT})
	a.next(2 * time.Second)
	b.send(&parser.Packet{Type: parser.CONNECT})
	b.next(2 * time.Second)

	for i := 0; i < 2; i++ {
		select {
		case <-joined:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for both sockets to join the room")
		}
	}

	server.To("general").Emit("ping", "pong")

	for _, c := range []*testClient{a, b} {
		p := c.next(2 * time.Second)
		data, ok := p.Data.([]any)
		if !ok || len(data) != 2 || data[0] != "ping" || data[1] != "pong" {
			t.Errorf("unexpected broadcast payload: %v", p.Data)
		}
	}
}

func TestDisconnectRemovesSocket(t *testing.T) {
	server, url := newTestServer(t)

	disconnected := make(chan any, 1)
	server.Sockets().On("connection", func(args ...any) {
		s := args[0].(*socket.Socket)
		s.On("disconnect", func(args ...any) {
			var reason any
			if len(args) > 0 {
				reason = args[0]
			}
			disconnected <- reason
		})
	})

	client := newTestClient(t, url)
	client.send(&parser.Packet{Type: parser.CONNECT})
	client.next(2 * time.Second)

	client.send(&parser.Packet{Type: parser.DISCONNECT})

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("server never observed the disconnect")
	}

	all, err := server.AllSockets()
	if err != nil {
		t.Fatalf("AllSockets: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for all.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		all, _ = server.AllSockets()
	}
	if all.Len() != 0 {
		t.Errorf("expected no sockets left after disconnect, got %v", all.Keys())
	}
}
