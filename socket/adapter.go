package socket

import (
	"github.com/go-sio/sio/events"
	"github.com/go-sio/sio/parser"
	"github.com/go-sio/sio/types"
)

// adapter is the in-memory Adapter: room membership lives in two mirrored
// maps (rooms->sids and sids->rooms) so both "who's in this room" and
// "what rooms is this socket in" are O(1) lookups.
type adapter struct {
	*events.EventEmitter

	nsp     *Namespace
	rooms   *types.Map[Room, *types.Set[SocketId]]
	sids    *types.Map[SocketId, *types.Set[Room]]
	encoder parser.Encoder
}

func NewAdapter(nsp *Namespace) Adapter {
	return &adapter{
		EventEmitter: events.New(),
		nsp:          nsp,
		rooms:        types.NewMap[Room, *types.Set[SocketId]](),
		sids:         types.NewMap[SocketId, *types.Set[Room]](),
		encoder:      nsp.Server().Parser().Encoder(),
	}
}

func (a *adapter) Rooms() *types.Map[Room, *types.Set[SocketId]] { return a.rooms }
func (a *adapter) Sids() *types.Map[SocketId, *types.Set[Room]]  { return a.sids }
func (a *adapter) Nsp() *Namespace                               { return a.nsp }

func (a *adapter) Init()  {}
func (a *adapter) Close() {}

// AddAll adds id to every room in rooms, creating any room that doesn't
// exist yet.
func (a *adapter) AddAll(id SocketId, rooms *types.Set[Room]) {
	joined, _ := a.sids.LoadOrStore(id, types.NewSet[Room]())
	for _, room := range rooms.Keys() {
		joined.Add(room)
		ids, existed := a.rooms.LoadOrStore(room, types.NewSet[SocketId]())
		if !existed {
			a.Emit("create-room", room)
		}
		if !ids.Has(id) {
			ids.Add(id)
			a.Emit("join-room", room, id)
		}
	}
}

// Del removes id from room, deleting the room once it's empty.
func (a *adapter) Del(id SocketId, room Room) {
	if rooms, ok := a.sids.Load(id); ok {
		rooms.Delete(room)
	}
	a.removeFromRoom(room, id)
}

func (a *adapter) removeFromRoom(room Room, id SocketId) {
	ids, ok := a.rooms.Load(room)
	if !ok {
		return
	}
	if ids.Delete(id) {
		a.Emit("leave-room", room, id)
	}
	if ids.Len() == 0 {
		if _, ok := a.rooms.LoadAndDelete(room); ok {
			a.Emit("delete-room", room)
		}
	}
}

// DelAll removes id from every room it has joined.
func (a *adapter) DelAll(id SocketId) {
	if rooms, ok := a.sids.Load(id); ok {
		for _, room := range rooms.Keys() {
			a.removeFromRoom(room, id)
		}
		a.sids.Delete(id)
	}
}

// Broadcast encodes packet exactly once and fans the resulting frames out
// to every socket opts selects.
func (a *adapter) Broadcast(packet *parser.Packet, opts *BroadcastOptions) {
	flags := &BroadcastFlags{}
	if opts != nil && opts.Flags != nil {
		flags = opts.Flags
	}

	packetOpts := &WriteOptions{PreEncoded: true}
	packetOpts.Compress = flags.Compress
	packetOpts.Volatile = flags.Volatile

	packet.Nsp = a.nsp.Name()
	frames := a.encoder.Encode(packet)

	a.apply(opts, func(socket *Socket) {
		if notify := socket.notifyOutgoingListeners; notify != nil {
			notify(packet)
		}
		socket.client.WriteToEngine(frames, packetOpts)
	})
}

// Sockets returns the ids of every socket in any of rooms (or the whole
// namespace when rooms is empty).
func (a *adapter) Sockets(rooms *types.Set[Room]) *types.Set[SocketId] {
	ids := types.NewSet[SocketId]()
	a.apply(&BroadcastOptions{Rooms: rooms}, func(socket *Socket) {
		ids.Add(socket.Id())
	})
	return ids
}

// SocketRooms returns the rooms id has joined.
func (a *adapter) SocketRooms(id SocketId) *types.Set[Room] {
	if rooms, ok := a.sids.Load(id); ok {
		return rooms
	}
	return nil
}

// FetchSockets returns the sockets opts selects.
func (a *adapter) FetchSockets(opts *BroadcastOptions) []SocketDetails {
	var sockets []SocketDetails
	a.apply(opts, func(socket *Socket) {
		sockets = append(sockets, socket)
	})
	return sockets
}

// AddSockets makes every socket opts selects join rooms.
func (a *adapter) AddSockets(opts *BroadcastOptions, rooms []Room) {
	a.apply(opts, func(socket *Socket) {
		socket.Join(rooms...)
	})
}

// DelSockets makes every socket opts selects leave rooms.
func (a *adapter) DelSockets(opts *BroadcastOptions, rooms []Room) {
	a.apply(opts, func(socket *Socket) {
		for _, room := range rooms {
			socket.Leave(room)
		}
	})
}

// DisconnectSockets disconnects every socket opts selects.
func (a *adapter) DisconnectSockets(opts *BroadcastOptions, status bool) {
	a.apply(opts, func(socket *Socket) {
		socket.Disconnect(status)
	})
}

// apply resolves opts to a concrete socket set and invokes callback for
// each: the union of opts.Rooms' members when non-empty, else every socket
// in the namespace, always skipping anything opts.Except resolves to.
func (a *adapter) apply(opts *BroadcastOptions, callback func(*Socket)) {
	if opts == nil {
		opts = &BroadcastOptions{}
	}

	except := a.computeExceptSids(opts.Except)

	if opts.Rooms != nil && opts.Rooms.Len() > 0 {
		seen := types.NewSet[SocketId]()
		for _, room := range opts.Rooms.Keys() {
			ids, ok := a.rooms.Load(room)
			if !ok {
				continue
			}
			for _, id := range ids.Keys() {
				if seen.Has(id) || except.Has(id) {
					continue
				}
				if socket, ok := a.nsp.sockets.Load(id); ok {
					callback(socket)
					seen.Add(id)
				}
			}
		}
		return
	}

	a.sids.Range(func(id SocketId, _ *types.Set[Room]) bool {
		if except.Has(id) {
			return true
		}
		if socket, ok := a.nsp.sockets.Load(id); ok {
			callback(socket)
		}
		return true
	})
}

func (a *adapter) computeExceptSids(exceptRooms *types.Set[Room]) *types.Set[SocketId] {
	exceptSids := types.NewSet[SocketId]()
	if exceptRooms == nil || exceptRooms.Len() == 0 {
		return exceptSids
	}
	for _, room := range exceptRooms.Keys() {
		if ids, ok := a.rooms.Load(room); ok {
			exceptSids.Add(ids.Keys()...)
		}
	}
	return exceptSids
}
