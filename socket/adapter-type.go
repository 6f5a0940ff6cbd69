package socket

import (
	"github.com/go-sio/sio/parser"
	"github.com/go-sio/sio/types"
)

// Adapter tracks which sockets belong to which rooms within one namespace
// and fans packets out to them. The in-memory implementation in adapter.go
// is the only one this module ships, but the interface exists so a
// networked adapter (e.g. backed by a pub/sub broker) can be dropped in
// without touching Namespace.
type Adapter interface {
	Rooms() *types.Map[Room, *types.Set[SocketId]]
	Sids() *types.Map[SocketId, *types.Set[Room]]
	Nsp() *Namespace

	Init()
	Close()

	// AddAll adds a socket to the given set of rooms.
	AddAll(SocketId, *types.Set[Room])

	// Del removes a socket from a single room.
	Del(SocketId, Room)

	// DelAll removes a socket from every room it has joined.
	DelAll(SocketId)

	// Broadcast sends packet to every socket selected by opts.
	Broadcast(*parser.Packet, *BroadcastOptions)

	// Sockets returns the ids of the sockets currently in any of rooms (or
	// every socket in the namespace when rooms is empty).
	Sockets(*types.Set[Room]) *types.Set[SocketId]

	// SocketRooms returns the rooms a given socket has joined.
	SocketRooms(SocketId) *types.Set[Room]

	// FetchSockets returns the sockets selected by opts.
	FetchSockets(*BroadcastOptions) []SocketDetails

	// AddSockets makes every socket selected by opts join the given rooms.
	AddSockets(*BroadcastOptions, []Room)

	// DelSockets makes every socket selected by opts leave the given rooms.
	DelSockets(*BroadcastOptions, []Room)

	// DisconnectSockets disconnects every socket selected by opts.
	DisconnectSockets(*BroadcastOptions, bool)
}

// AdapterConstructor builds a fresh Adapter for a namespace. The Server
// holds one of these (see Server.AdapterConstructor) and calls it once per namespace (and again for every
// existing namespace whenever the server-wide adapter is replaced).
type AdapterConstructor interface {
	New(*Namespace) Adapter
}

type AdapterBuilder struct{}

func (AdapterBuilder) New(nsp *Namespace) Adapter {
	return NewAdapter(nsp)
}
