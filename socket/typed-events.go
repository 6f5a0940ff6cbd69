package socket

import "github.com/go-sio/sio/events"

// StrictEventEmitter is the base every Socket, Namespace and Server embeds.
// EmitReserved and EmitUntyped are the same call as Emit; the distinction is
// vestigial (the TypeScript original used it to mark which emits a
// subclass, vs. an external caller, is allowed to make) but the names are
// kept since the rest of this package's code reads naturally with them.
type StrictEventEmitter struct {
	*events.EventEmitter
}

func NewStrictEventEmitter() *StrictEventEmitter {
	return &StrictEventEmitter{EventEmitter: events.New()}
}

func (s *StrictEventEmitter) EmitReserved(ev string, args ...any) {
	s.Emit(ev, args...)
}

func (s *StrictEventEmitter) EmitUntyped(ev string, args ...any) {
	s.Emit(ev, args...)
}
