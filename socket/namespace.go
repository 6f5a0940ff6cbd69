package socket

import (
	"sync/atomic"

	"github.com/go-sio/sio/engineio"
	iolog "github.com/go-sio/sio/internal/log"
	"github.com/go-sio/sio/types"
)

var (
	namespaceLog = iolog.New("sio:namespace")

	// NamespaceReservedEvents names the events that Namespace.Emit delivers
	// to local listeners only, never as a wire packet.
	NamespaceReservedEvents = types.NewSet("connect", "connection", "newListener")
)

// Namespace is a communication channel splitting the logic of an
// application over a single shared connection: each one has its own event
// handlers, rooms, and middleware chain.
//
//	orders := server.Of("/orders")
//	orders.On("connection", func(args ...any) {
//		socket := args[0].(*socket.Socket)
//		socket.On("order:list", func(...any) {})
//	})
type Namespace struct {
	// ids must stay first in the struct to keep it 64-bit aligned for
	// atomic.AddUint64 on 32-bit platforms.
	ids uint64

	*StrictEventEmitter

	name    string
	sockets *types.Map[SocketId, *Socket]
	adapter Adapter
	server  *Server
	fns     *types.Map[int, func(*Socket, func(*types.ExtendedError))]
	fnSeq   int64
}

func NewNamespace(server *Server, name string) *Namespace {
	n := &Namespace{
		StrictEventEmitter: NewStrictEventEmitter(),
		sockets:            types.NewMap[SocketId, *Socket](),
		fns:                types.NewMap[int, func(*Socket, func(*types.ExtendedError))](),
		server:             server,
		name:               name,
	}
	n.initAdapter()
	return n
}

func (n *Namespace) Sockets() *types.Map[SocketId, *Socket] { return n.sockets }
func (n *Namespace) Server() *Server                        { return n.server }
func (n *Namespace) Adapter() Adapter                       { return n.adapter }
func (n *Namespace) Name() string                           { return n.name }

// nextAckId returns the next value of this namespace's monotonic ack id
// counter, shared by every socket in it.
func (n *Namespace) nextAckId() uint64 {
	return atomic.AddUint64(&n.ids, 1)
}

// initAdapter (re)builds this namespace's Adapter from the server's current
// adapter factory. Run at construction and again whenever Server.SetAdapter
// replaces the factory server-wide.
func (n *Namespace) initAdapter() {
	n.adapter = n.server.AdapterConstructor().New(n)
}

// Use registers a middleware, run for every incoming Socket before it is
// admitted to the namespace.
func (n *Namespace) Use(fn func(*Socket, func(*types.ExtendedError))) *Namespace {
	id := int(atomic.AddInt64(&n.fnSeq, 1))
	n.fns.Store(id, fn)
	return n
}

func (n *Namespace) run(socket *Socket, fn func(err *types.ExtendedError)) {
	var fns []func(*Socket, func(*types.ExtendedError))
	for id := 1; id <= int(atomic.LoadInt64(&n.fnSeq)); id++ {
		if mw, ok := n.fns.Load(id); ok {
			fns = append(fns, mw)
		}
	}
	if len(fns) == 0 {
		go fn(nil)
		return
	}
	var step func(i int)
	step = func(i int) {
		fns[i](socket, func(err *types.ExtendedError) {
			if err != nil {
				go fn(err)
				return
			}
			if i >= len(fns)-1 {
				go fn(nil)
				return
			}
			step(i + 1)
		})
	}
	step(0)
}

// To targets a room for the next emit.
func (n *Namespace) To(room ...Room) *BroadcastOperator {
	return NewBroadcastOperator(n.adapter, nil, nil, nil).To(room...)
}

// In is an alias for To.
func (n *Namespace) In(room ...Room) *BroadcastOperator {
	return NewBroadcastOperator(n.adapter, nil, nil, nil).In(room...)
}

// Except excludes a room from the next emit.
func (n *Namespace) Except(room ...Room) *BroadcastOperator {
	return NewBroadcastOperator(n.adapter, nil, nil, nil).Except(room...)
}

// Add admits client to this namespace: a Socket is created, the middleware
// chain runs over it, and on success it is registered and the connect/
// connection events fire. fn, if non-nil, runs between onconnect and those
// events so the caller (Client.doConnect) can record its own indices while
// the socket is already live.
func (n *Namespace) Add(client *Client, auth any, fn func(*Socket)) {
	namespaceLog.Debug("adding socket to nsp %s", n.name)
	socket := NewSocket(n, client, auth)

	n.run(socket, func(err *types.ExtendedError) {
		if client.Conn().ReadyState() != engineio.ReadyStateOpen {
			namespaceLog.Debug("next called after client was closed - ignoring socket")
			socket.cleanup()
			return
		}
		if err != nil {
			namespaceLog.Debug("middleware error, sending ERROR packet to the client")
			socket.cleanup()
			var payload any = err.Error()
			if data := err.Data(); data != nil {
				payload = data
			}
			socket.error(payload)
			return
		}
		n.doConnect(socket, fn)
	})
}

// doConnect finalizes admission: the socket is indexed, onconnect fires
// (joining its id room, sending CONNECT) before fn and the user-facing
// connect/connection events, so a handler that disconnects immediately
// still observes a fully connected socket.
func (n *Namespace) doConnect(socket *Socket, fn func(*Socket)) {
	n.sockets.Store(socket.Id(), socket)
	socket.onconnect()
	if fn != nil {
		fn(socket)
	}
	n.EmitReserved("connect", socket)
	n.EmitReserved("connection", socket)
}

// remove drops socket's index entry. Called by Socket.onclose.
func (n *Namespace) remove(socket *Socket) {
	if _, ok := n.sockets.LoadAndDelete(socket.Id()); !ok {
		namespaceLog.Debug("ignoring remove for %s", socket.Id())
	}
}

// Emit broadcasts ev to every socket in the namespace.
func (n *Namespace) Emit(ev string, args ...any) error {
	if NamespaceReservedEvents.Has(ev) {
		n.EmitReserved(ev, args...)
		return nil
	}
	return NewBroadcastOperator(n.adapter, nil, nil, nil).Emit(ev, args...)
}

// Send emits a "message" event to every socket in the namespace.
func (n *Namespace) Send(args ...any) *Namespace {
	n.Emit("message", args...)
	return n
}

// Write is an alias for Send.
func (n *Namespace) Write(args ...any) *Namespace {
	n.Emit("message", args...)
	return n
}

// AllSockets returns the ids of every socket in the namespace.
func (n *Namespace) AllSockets() (*types.Set[SocketId], error) {
	return NewBroadcastOperator(n.adapter, nil, nil, nil).AllSockets()
}

// Compress sets whether the next emit's payload may be compressed.
func (n *Namespace) Compress(compress bool) *BroadcastOperator {
	return NewBroadcastOperator(n.adapter, nil, nil, nil).Compress(compress)
}

// Volatile marks the next emit as droppable for any recipient that isn't
// ready.
func (n *Namespace) Volatile() *BroadcastOperator {
	return NewBroadcastOperator(n.adapter, nil, nil, nil).Volatile()
}

// Local marks the next emit as local-only (a no-op on this single-process
// adapter, kept for API parity with a networked adapter).
func (n *Namespace) Local() *BroadcastOperator {
	return NewBroadcastOperator(n.adapter, nil, nil, nil).Local()
}

// FetchSockets returns the read-only details of every socket in the
// namespace.
func (n *Namespace) FetchSockets() []SocketDetails {
	return NewBroadcastOperator(n.adapter, nil, nil, nil).FetchSockets()
}

// SocketsJoin makes every socket in the namespace join the given rooms.
func (n *Namespace) SocketsJoin(room ...Room) {
	NewBroadcastOperator(n.adapter, nil, nil, nil).SocketsJoin(room...)
}

// SocketsLeave makes every socket in the namespace leave the given rooms.
func (n *Namespace) SocketsLeave(room ...Room) {
	NewBroadcastOperator(n.adapter, nil, nil, nil).SocketsLeave(room...)
}

// DisconnectSockets disconnects every socket in the namespace.
func (n *Namespace) DisconnectSockets(status bool) {
	NewBroadcastOperator(n.adapter, nil, nil, nil).DisconnectSockets(status)
}
