// Package types holds small generic containers shared by the socket, parser
// and engineio packages: a thread-safe Set and Map, an atomic value box, and
// the ExtendedError used to carry structured middleware-rejection data.
package types

type Void = struct{}

var NULL Void

// noCopy may be embedded in structs which must not be copied after first use.
// See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
