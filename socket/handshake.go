package socket

import "github.com/go-sio/sio/types"

// Handshake is the read-only snapshot of a socket's connecting request,
// captured once in Namespace.Add and never mutated afterwards.
type Handshake struct {
	// Headers holds the upgrade request's HTTP headers.
	Headers *types.ParameterBag

	// Time is the handshake completion time, human-readable.
	Time string

	// Address is the remote address the request arrived from.
	Address string

	// Xdomain is true when the request carries a non-empty Origin header.
	Xdomain bool

	// Secure is true when the underlying transport is TLS.
	Secure bool

	// Issued is the handshake completion time as a Unix millisecond
	// timestamp.
	Issued int64

	// Url is the connecting request's raw URL.
	Url string

	// Query holds the connecting request's URL query parameters.
	Query *types.ParameterBag

	// Auth is the payload passed to `io(url, {auth})` on the client, or
	// supplied as the CONNECT packet's data.
	Auth any
}
