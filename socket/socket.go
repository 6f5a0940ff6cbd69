package socket

import (
	"errors"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/go-sio/sio/engineio"
	"github.com/go-sio/sio/events"
	iolog "github.com/go-sio/sio/internal/log"
	"github.com/go-sio/sio/parser"
	"github.com/go-sio/sio/types"
)

var (
	// SocketReservedEvents names the events that Socket.Emit delivers to
	// local listeners only, never as a wire packet; BroadcastOperator.Emit
	// rejects them with an error.
	SocketReservedEvents = types.NewSet("error", "connect", "disconnect", "newListener", "removeListener")
	socketLog            = iolog.New("sio:socket")
)

// Socket is one connected client's view of a single namespace: an
// application talks to exactly one Socket per namespace it has joined,
// regardless of how many namespaces share the underlying Client/transport.
type Socket struct {
	*StrictEventEmitter

	nsp       *Namespace
	client    *Client
	id        SocketId
	handshake *Handshake

	data types.Atomic[any]

	connected types.Atomic[bool]
	canJoin   types.Atomic[bool]

	adapter Adapter
	acks    *types.Map[uint64, func(...any)]
	fns     *types.Map[int, func([]any, func(error))]
	fnSeq   int64
	flags   types.Atomic[*BroadcastFlags]

	anyListeners         *types.Map[int, events.Listener]
	anyOutgoingListeners *types.Map[int, events.Listener]
	listenerSeq          int64
}

func NewSocket(nsp *Namespace, client *Client, auth any) *Socket {
	s := &Socket{
		StrictEventEmitter:   NewStrictEventEmitter(),
		nsp:                  nsp,
		client:               client,
		acks:                 types.NewMap[uint64, func(...any)](),
		fns:                  types.NewMap[int, func([]any, func(error))](),
		anyListeners:         types.NewMap[int, events.Listener](),
		anyOutgoingListeners: types.NewMap[int, events.Listener](),
		adapter:              nsp.Adapter(),
	}
	s.canJoin.Store(true)
	s.flags.Store(&BroadcastFlags{})

	// A socket's id pairs its namespace with the client it rides on, so one
	// client has at most one socket per namespace and ids stay unique
	// across namespaces sharing the same underlying transport.
	s.id = SocketId(nsp.Name() + "#" + client.Id())

	s.handshake = s.buildHandshake(auth)
	return s
}

func (s *Socket) Nsp() *Namespace        { return s.nsp }
func (s *Socket) Id() SocketId           { return s.id }
func (s *Socket) Client() *Client        { return s.client }
func (s *Socket) Handshake() *Handshake  { return s.handshake }
func (s *Socket) Connected() bool        { return s.connected.Load() }
func (s *Socket) Disconnected() bool     { return !s.Connected() }
func (s *Socket) Data() any              { return s.data.Load() }
func (s *Socket) SetData(data any)       { s.data.Store(data) }

// Conn is the underlying Engine.IO transport this socket's client rides on.
func (s *Socket) Conn() *engineio.Socket { return s.client.Conn() }

func (s *Socket) buildHandshake(auth any) *Handshake {
	req := s.client.Request()
	headers := types.NewParameterBag(nil)
	var address, url string
	var secure bool
	if req != nil {
		for k, vs := range req.Header {
			for _, v := range vs {
				headers.Add(k, v)
			}
		}
		address = s.client.Conn().RemoteAddr()
		url = req.RequestURI
		secure = req.TLS != nil
	}
	query := types.NewParameterBag(nil)
	if req != nil {
		for k, vs := range req.URL.Query() {
			for _, v := range vs {
				query.Add(k, v)
			}
		}
	}
	return &Handshake{
		Headers: headers,
		Time:    time.Now().Format("2006-01-02 15:04:05"),
		Address: address,
		Xdomain: headers.Peek("Origin") != "",
		Secure:  secure,
		Issued:  time.Now().UnixMilli(),
		Url:     url,
		Query:   query,
		Auth:    auth,
	}
}

// Emit sends ev to this client. If the last argument is a func(...any), it
// is registered as the ack callback and receives the client's ack payload.
// When Timeout was set for this emit, the callback's first argument is
// instead nil (followed by the payload) or a timeout error.
func (s *Socket) Emit(ev string, args ...any) error {
	if SocketReservedEvents.Has(ev) {
		s.EmitReserved(ev, args...)
		return nil
	}
	data := append([]any{ev}, args...)
	packet := &parser.Packet{Type: parser.EVENT, Data: data}

	if fn, ok := data[len(data)-1].(func(...any)); ok {
		id := s.nsp.nextAckId()
		socketLog.Debug("emitting packet with ack id %d", id)
		packet.Data = data[:len(data)-1]
		s.registerAckCallback(id, fn)
		packet.Id = &id
	}

	flags := s.flags.Swap(&BroadcastFlags{})
	s.notifyOutgoingListeners(packet)
	s.writePacket(packet, flags)
	return nil
}

func (s *Socket) registerAckCallback(id uint64, ack func(...any)) {
	timeout := s.flags.Load().Timeout
	if timeout == nil {
		s.acks.Store(id, ack)
		return
	}
	timer := types.SetTimeout(func() {
		socketLog.Debug("event with ack id %d has timed out", id)
		s.acks.Delete(id)
		ack(errors.New("operation has timed out"))
	}, *timeout)
	s.acks.Store(id, func(args ...any) {
		types.ClearTimeout(timer)
		ack(append([]any{nil}, args...)...)
	})
}

// To targets a room for the next broadcast emit.
func (s *Socket) To(room ...Room) *BroadcastOperator {
	return s.newBroadcastOperator().To(room...)
}

// In is an alias for To.
func (s *Socket) In(room ...Room) *BroadcastOperator {
	return s.newBroadcastOperator().In(room...)
}

// Except excludes a room from the next broadcast emit.
func (s *Socket) Except(room ...Room) *BroadcastOperator {
	return s.newBroadcastOperator().Except(room...)
}

// Send emits a "message" event.
func (s *Socket) Send(args ...any) *Socket {
	s.Emit("message", args...)
	return s
}

// Write is an alias for Send.
func (s *Socket) Write(args ...any) *Socket {
	s.Emit("message", args...)
	return s
}

func (s *Socket) writePacket(packet *parser.Packet, opts *BroadcastFlags) {
	packet.Nsp = s.nsp.Name()
	if opts == nil {
		opts = &BroadcastFlags{}
	}
	s.client.writePacket(packet, &opts.WriteOptions)
}

// Join adds this socket to one or more rooms.
func (s *Socket) Join(rooms ...Room) {
	if !s.canJoin.Load() {
		return
	}
	socketLog.Debug("join room %v", rooms)
	s.adapter.AddAll(s.id, types.NewSet(rooms...))
}

// Leave removes this socket from room.
func (s *Socket) Leave(room Room) {
	socketLog.Debug("leave room %s", room)
	s.adapter.Del(s.id, room)
}

func (s *Socket) leaveAll() {
	s.adapter.DelAll(s.id)
}

// onconnect is called by Namespace once admission (middleware) succeeds.
// The socket is registered in the namespace before Join so the adapter
// observes it as a member of its own id-room from the start.
func (s *Socket) onconnect() {
	socketLog.Debug("socket connected - writing packet")
	s.connected.Store(true)
	s.Join(Room(s.id))
	s.writePacket(&parser.Packet{
		Type: parser.CONNECT,
		Data: map[string]any{"sid": s.id},
	}, nil)
}

// onpacket dispatches one decoded inbound packet addressed to this socket.
func (s *Socket) onpacket(packet *parser.Packet) {
	socketLog.Debug("got packet %v", packet)
	switch packet.Type {
	case parser.EVENT, parser.BINARY_EVENT:
		s.onevent(packet)
	case parser.ACK, parser.BINARY_ACK:
		s.onack(packet)
	case parser.DISCONNECT:
		s.ondisconnect()
	case parser.ERROR:
		s.onclose("parse error")
	}
}

func (s *Socket) onevent(packet *parser.Packet) {
	args, _ := packet.Data.([]any)
	socketLog.Debug("emitting event %v", args)
	if packet.Id != nil {
		args = append(args, s.ack(*packet.Id))
	}
	for _, listener := range s.anyListenersSnapshot() {
		listener(args...)
	}
	s.dispatch(args)
}

// ack builds the callback passed as the trailing argument of an event that
// carried an ack id; calling it (at most once) sends the ACK packet back.
func (s *Socket) ack(id uint64) func(...any) {
	var sent int32
	return func(args ...any) {
		if atomic.CompareAndSwapInt32(&sent, 0, 1) {
			socketLog.Debug("sending ack %v", args)
			s.writePacket(&parser.Packet{Id: &id, Type: parser.ACK, Data: args}, nil)
		}
	}
}

func (s *Socket) onack(packet *parser.Packet) {
	if packet.Id == nil {
		socketLog.Debug("bad ack: nil id")
		return
	}
	ack, ok := s.acks.LoadAndDelete(*packet.Id)
	if !ok {
		socketLog.Debug("bad ack %d", *packet.Id)
		return
	}
	args, _ := packet.Data.([]any)
	socketLog.Debug("calling ack %d with %v", *packet.Id, args)
	ack(args...)
}

func (s *Socket) ondisconnect() {
	socketLog.Debug("got disconnect packet")
	s.onclose("client namespace disconnect")
}

func (s *Socket) onerror(err any) {
	if s.ListenerCount("error") > 0 {
		s.EmitReserved("error", err)
		return
	}
	socketLog.Error("missing error handler on socket: %v", err)
}

// onclose is called once, either by a client DISCONNECT packet or by the
// underlying Client tearing down. It is idempotent.
func (s *Socket) onclose(reason any) *Socket {
	if !s.Connected() {
		return s
	}
	socketLog.Debug("closing socket - reason %v", reason)
	s.EmitReserved("disconnecting", reason)
	s.cleanup()
	s.nsp.remove(s)
	s.client.removeSocket(s)
	s.connected.Store(false)
	s.EmitReserved("disconnect", reason)
	return nil
}

func (s *Socket) cleanup() {
	s.leaveAll()
	s.canJoin.Store(false)
}

// error produces an ERROR packet, used when namespace admission fails.
func (s *Socket) error(err any) {
	s.writePacket(&parser.Packet{Type: parser.ERROR, Data: err}, nil)
}

// Disconnect closes this client's connection to the namespace. If status is
// true the whole Client (every namespace it has joined) is torn down.
func (s *Socket) Disconnect(status bool) *Socket {
	if !s.Connected() {
		return s
	}
	if status {
		s.client.disconnect()
	} else {
		s.writePacket(&parser.Packet{Type: parser.DISCONNECT}, nil)
		s.onclose("server namespace disconnect")
	}
	return s
}

// Compress sets whether the next emit's payload may be compressed.
func (s *Socket) Compress(compress bool) *Socket {
	s.updateFlags(func(f *BroadcastFlags) { f.Compress = compress })
	return s
}

// Volatile marks the next emit as droppable if the client isn't ready.
func (s *Socket) Volatile() *Socket {
	s.updateFlags(func(f *BroadcastFlags) { f.Volatile = true })
	return s
}

// Broadcast targets every other socket in the namespace for the next emit.
func (s *Socket) Broadcast() *BroadcastOperator {
	return s.newBroadcastOperator()
}

// Local restricts the next broadcast emit to this process (a no-op here,
// kept for parity with a networked adapter).
func (s *Socket) Local() *BroadcastOperator {
	return s.newBroadcastOperator().Local()
}

// Timeout bounds how long the next Emit's ack callback waits for the
// client's acknowledgement.
func (s *Socket) Timeout(timeout time.Duration) *Socket {
	s.updateFlags(func(f *BroadcastFlags) { f.Timeout = &timeout })
	return s
}

func (s *Socket) updateFlags(mutate func(*BroadcastFlags)) {
	flags := *s.flags.Load()
	mutate(&flags)
	s.flags.Store(&flags)
}

// dispatch runs the socket's middleware chain over an incoming event before
// handing it to the matching listener(s).
func (s *Socket) dispatch(event []any) {
	socketLog.Debug("dispatching an event %v", event)
	s.run(event, func(err error) {
		if err != nil {
			s.onerror(err)
			return
		}
		if !s.Connected() {
			socketLog.Debug("ignoring packet received after disconnection")
			return
		}
		ev, _ := event[0].(string)
		s.EmitUntyped(ev, event[1:]...)
	})
}

// Use registers incoming-event middleware, run in registration order before
// any event listener sees the event.
func (s *Socket) Use(fn func([]any, func(error))) *Socket {
	id := int(atomic.AddInt64(&s.fnSeq, 1))
	s.fns.Store(id, fn)
	return s
}

func (s *Socket) run(event []any, fn func(err error)) {
	var fns []func([]any, func(error))
	for id := 1; id <= int(atomic.LoadInt64(&s.fnSeq)); id++ {
		if mw, ok := s.fns.Load(id); ok {
			fns = append(fns, mw)
		}
	}
	if len(fns) == 0 {
		go fn(nil)
		return
	}
	var step func(i int)
	step = func(i int) {
		fns[i](event, func(err error) {
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

// Rooms returns every room this socket currently belongs to.
func (s *Socket) Rooms() *types.Set[Room] {
	if rooms := s.adapter.SocketRooms(s.id); rooms != nil {
		return rooms
	}
	return types.NewSet[Room]()
}

func (s *Socket) anyListenersSnapshot() []events.Listener {
	var out []events.Listener
	s.anyListeners.Range(func(_ int, l events.Listener) bool {
		out = append(out, l)
		return true
	})
	return out
}

// OnAny registers a listener invoked for every incoming event, with the
// event name as its first argument.
func (s *Socket) OnAny(listener events.Listener) *Socket {
	id := int(atomic.AddInt64(&s.listenerSeq, 1))
	s.anyListeners.Store(id, listener)
	return s
}

// OffAny removes every OnAny listener whose function pointer matches
// listener, or all of them when listener is nil.
func (s *Socket) OffAny(listener events.Listener) *Socket {
	if listener == nil {
		s.anyListeners = types.NewMap[int, events.Listener]()
		return s
	}
	target := reflect.ValueOf(listener).Pointer()
	s.anyListeners.Range(func(id int, l events.Listener) bool {
		if reflect.ValueOf(l).Pointer() == target {
			s.anyListeners.Delete(id)
		}
		return true
	})
	return s
}

// notifyOutgoingListeners invokes every OnAnyOutgoing listener for a packet
// about to be sent to this client (direct emit or broadcast fan-out).
func (s *Socket) notifyOutgoingListeners(packet *parser.Packet) {
	var listeners []events.Listener
	s.anyOutgoingListeners.Range(func(_ int, l events.Listener) bool {
		listeners = append(listeners, l)
		return true
	})
	for _, listener := range listeners {
		if args, ok := packet.Data.([]any); ok {
			listener(args...)
		} else {
			listener(packet.Data)
		}
	}
}

// OnAnyOutgoing registers a listener invoked for every event emitted to this
// client (direct or broadcast), with the event name as its first argument.
func (s *Socket) OnAnyOutgoing(listener events.Listener) *Socket {
	id := int(atomic.AddInt64(&s.listenerSeq, 1))
	s.anyOutgoingListeners.Store(id, listener)
	return s
}

// OffAnyOutgoing removes every OnAnyOutgoing listener whose function
// pointer matches listener, or all of them when listener is nil.
func (s *Socket) OffAnyOutgoing(listener events.Listener) *Socket {
	if listener == nil {
		s.anyOutgoingListeners = types.NewMap[int, events.Listener]()
		return s
	}
	target := reflect.ValueOf(listener).Pointer()
	s.anyOutgoingListeners.Range(func(id int, l events.Listener) bool {
		if reflect.ValueOf(l).Pointer() == target {
			s.anyOutgoingListeners.Delete(id)
		}
		return true
	})
	return s
}

func (s *Socket) newBroadcastOperator() *BroadcastOperator {
	flags := s.flags.Swap(&BroadcastFlags{})
	return NewBroadcastOperator(s.adapter, types.NewSet[Room](), types.NewSet(Room(s.id)), flags)
}
