package socket

import (
	"errors"
	"fmt"

	"github.com/go-sio/sio/parser"
	"github.com/go-sio/sio/types"
)

// BroadcastOperator is the immutable builder To/In/Except/Compress/
// Volatile/Local return: each call produces a new operator carrying the
// accumulated room/except/flag state, so `io.To("a").To("b")` and
// `io.To("a", "b")` end up equivalent without either call mutating anything
// shared.
type BroadcastOperator struct {
	adapter     Adapter
	rooms       *types.Set[Room]
	exceptRooms *types.Set[Room]
	flags       *BroadcastFlags
}

func NewBroadcastOperator(adapter Adapter, rooms *types.Set[Room], exceptRooms *types.Set[Room], flags *BroadcastFlags) *BroadcastOperator {
	if rooms == nil {
		rooms = types.NewSet[Room]()
	}
	if exceptRooms == nil {
		exceptRooms = types.NewSet[Room]()
	}
	if flags == nil {
		flags = &BroadcastFlags{}
	}
	return &BroadcastOperator{adapter: adapter, rooms: rooms, exceptRooms: exceptRooms, flags: flags}
}

// To targets one or more rooms for the next emit.
func (b *BroadcastOperator) To(room ...Room) *BroadcastOperator {
	rooms := types.NewSet(b.rooms.Keys()...)
	rooms.Add(room...)
	return NewBroadcastOperator(b.adapter, rooms, b.exceptRooms, b.flags)
}

// In is an alias for To.
func (b *BroadcastOperator) In(room ...Room) *BroadcastOperator {
	return b.To(room...)
}

// Except excludes one or more rooms from the next emit.
func (b *BroadcastOperator) Except(room ...Room) *BroadcastOperator {
	except := types.NewSet(b.exceptRooms.Keys()...)
	except.Add(room...)
	return NewBroadcastOperator(b.adapter, b.rooms, except, b.flags)
}

// Compress sets whether the next emit's payload may be compressed.
func (b *BroadcastOperator) Compress(compress bool) *BroadcastOperator {
	flags := *b.flags
	flags.Compress = compress
	return NewBroadcastOperator(b.adapter, b.rooms, b.exceptRooms, &flags)
}

// Volatile marks the next emit as droppable if a recipient isn't ready.
func (b *BroadcastOperator) Volatile() *BroadcastOperator {
	flags := *b.flags
	flags.Volatile = true
	return NewBroadcastOperator(b.adapter, b.rooms, b.exceptRooms, &flags)
}

// Local marks the next emit as local-only (a no-op on this single-process
// adapter, kept for API parity with a networked adapter).
func (b *BroadcastOperator) Local() *BroadcastOperator {
	flags := *b.flags
	flags.Local = true
	return NewBroadcastOperator(b.adapter, b.rooms, b.exceptRooms, &flags)
}

// Emit broadcasts ev to every socket this operator resolves to. Unlike
// Socket.Emit, a broadcast has no single recipient to await an ack from, so
// the last argument is never treated as an ack callback; pass one to a
// specific Socket's Emit instead.
func (b *BroadcastOperator) Emit(ev string, args ...any) error {
	if SocketReservedEvents.Has(ev) {
		return fmt.Errorf("%q is a reserved event name", ev)
	}
	data := append([]any{ev}, args...)
	if _, ok := data[len(data)-1].(func(...any)); ok {
		return errors.New("Callbacks are not supported when broadcasting")
	}
	packet := &parser.Packet{Type: parser.EVENT, Data: data}
	b.adapter.Broadcast(packet, &BroadcastOptions{Rooms: b.rooms, Except: b.exceptRooms, Flags: b.flags})
	return nil
}

// AllSockets returns the ids of the sockets this operator resolves to.
func (b *BroadcastOperator) AllSockets() (*types.Set[SocketId], error) {
	if b.adapter == nil {
		return nil, errors.New("no adapter for this namespace")
	}
	ids := types.NewSet[SocketId]()
	for _, socket := range b.FetchSockets() {
		ids.Add(socket.Id())
	}
	return ids, nil
}

// FetchSockets returns the read-only details of every socket this operator
// resolves to.
func (b *BroadcastOperator) FetchSockets() []SocketDetails {
	return b.adapter.FetchSockets(&BroadcastOptions{Rooms: b.rooms, Except: b.exceptRooms, Flags: b.flags})
}

// SocketsJoin makes every targeted socket join the given rooms.
func (b *BroadcastOperator) SocketsJoin(room ...Room) {
	b.adapter.AddSockets(&BroadcastOptions{Rooms: b.rooms, Except: b.exceptRooms, Flags: b.flags}, room)
}

// SocketsLeave makes every targeted socket leave the given rooms.
func (b *BroadcastOperator) SocketsLeave(room ...Room) {
	b.adapter.DelSockets(&BroadcastOptions{Rooms: b.rooms, Except: b.exceptRooms, Flags: b.flags}, room)
}

// DisconnectSockets disconnects every targeted socket.
func (b *BroadcastOperator) DisconnectSockets(status bool) {
	b.adapter.DisconnectSockets(&BroadcastOptions{Rooms: b.rooms, Except: b.exceptRooms, Flags: b.flags}, status)
}
