package socket

import (
	"time"

	"github.com/go-sio/sio/parser"
)

// ServerOptions configures a Server. The zero value is valid; every
// accessor falls back to a documented default when unset.
type ServerOptions struct {
	path string

	adapter AdapterConstructor
	parser  parser.Parser

	connectTimeout *time.Duration

	// serveClient mirrors the teacher's option gating whether the
	// client-side bundle would be served from the path prefix; this module
	// is server-only so it has no bundle to serve. The flag is kept for API
	// parity only: nothing reads it, and Server.Set has no "serveClient" key.
	serveClient *bool
}

func DefaultServerOptions() *ServerOptions {
	return &ServerOptions{}
}

func (o *ServerOptions) SetServeClient(serve bool) *ServerOptions {
	o.serveClient = &serve
	return o
}

func (o *ServerOptions) ServeClient() bool {
	if o.serveClient == nil {
		return true
	}
	return *o.serveClient
}

func (o *ServerOptions) SetPath(path string) *ServerOptions {
	o.path = path
	return o
}

func (o *ServerOptions) Path() string {
	if o.path == "" {
		return "/socket.io"
	}
	return o.path
}

func (o *ServerOptions) SetAdapter(adapter AdapterConstructor) *ServerOptions {
	o.adapter = adapter
	return o
}

func (o *ServerOptions) Adapter() AdapterConstructor {
	if o.adapter == nil {
		return AdapterBuilder{}
	}
	return o.adapter
}

func (o *ServerOptions) SetParser(p parser.Parser) *ServerOptions {
	o.parser = p
	return o
}

func (o *ServerOptions) Parser() parser.Parser {
	if o.parser == nil {
		return parser.NewParser()
	}
	return o.parser
}

func (o *ServerOptions) SetConnectTimeout(d time.Duration) *ServerOptions {
	o.connectTimeout = &d
	return o
}

func (o *ServerOptions) ConnectTimeout() time.Duration {
	if o.connectTimeout == nil {
		return 45 * time.Second
	}
	return *o.connectTimeout
}
