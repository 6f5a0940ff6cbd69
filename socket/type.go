package socket

import (
	"time"

	"github.com/go-sio/sio/engineio"
	"github.com/go-sio/sio/types"
)

// SocketId is a socket's opaque per-connection identity. Every socket also
// auto-joins a room of the same name, which is how Except-based
// self-exclusion works without any special case in the broadcast path.
type SocketId = string

// Room is a broadcast target: a named group of sockets within a namespace.
type Room = string

// WriteOptions controls how a single packet write reaches the wire.
type WriteOptions struct {
	engineio.WriteOptions

	// PreEncoded marks Data as already-encoded wire frames (produced once
	// by Adapter.Broadcast and fanned out to every recipient) rather than a
	// packet needing per-recipient encoding.
	PreEncoded bool

	// Volatile marks the write as droppable: Client.WriteToEngine discards
	// it rather than blocking/queuing when the transport isn't currently
	// writable (spec §4.2/§6's "volatile" flag).
	Volatile bool
}

// BroadcastFlags are the per-emit modifiers a BroadcastOperator accumulates
// via Compress/Volatile/Local/Timeout before an Emit call resolves and
// clears them.
type BroadcastFlags struct {
	WriteOptions

	Local     bool
	Broadcast bool
	Binary    bool
	Timeout   *time.Duration
}

// BroadcastOptions is the fully-resolved target selector an
// Adapter.Broadcast call receives: which rooms to reach, which sockets to
// skip, and which flags to honor.
type BroadcastOptions struct {
	Rooms  *types.Set[Room]
	Except *types.Set[Room]
	Flags  *BroadcastFlags
}

// SocketDetails is the read-only view of a socket a FetchSockets caller
// gets back.
type SocketDetails interface {
	Id() SocketId
	Handshake() *Handshake
	Rooms() *types.Set[Room]
	Data() any
}
