package socket

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-sio/sio/engineio"
	iolog "github.com/go-sio/sio/internal/log"
	"github.com/go-sio/sio/parser"
	"github.com/go-sio/sio/types"
)

var serverLog = iolog.New("sio:server")

// Server is the root of a socket.io deployment: it binds to an Engine.IO
// transport, owns the namespace registry, and proxies Emit/To/Use and the
// rest of the BroadcastOperator surface to the default "/" namespace.
type Server struct {
	*StrictEventEmitter

	nsps               *types.Map[string, *Namespace]
	adapterConstructor AdapterConstructor
	parser             parser.Parser
	encoder            parser.Encoder
	path               string
	connectTimeout     time.Duration

	engine  *engineio.Server
	sockets *Namespace
}

// NewServer builds a Server bound to engine (an already-constructed
// Engine.IO transport). Passing a nil engine is valid for tests that never
// serve HTTP traffic.
func NewServer(engine *engineio.Server, opts *ServerOptions) *Server {
	if opts == nil {
		opts = DefaultServerOptions()
	}

	s := &Server{
		nsps:               types.NewMap[string, *Namespace](),
		adapterConstructor: opts.Adapter(),
		parser:             opts.Parser(),
		path:               opts.Path(),
		connectTimeout:     opts.ConnectTimeout(),
	}
	s.encoder = s.parser.Encoder()
	s.sockets = s.Of("/")
	s.StrictEventEmitter = s.sockets.StrictEventEmitter

	if engine != nil {
		s.Bind(engine)
	}

	return s
}

// Engine returns the bound Engine.IO transport, or nil if this Server was
// constructed without one (a test double, typically).
func (s *Server) Engine() *engineio.Server { return s.engine }

func (s *Server) Sockets() *Namespace             { return s.sockets }
func (s *Server) Parser() parser.Parser           { return s.parser }
func (s *Server) Path() string                    { return s.path }
func (s *Server) ConnectTimeout() time.Duration   { return s.connectTimeout }
func (s *Server) AdapterConstructor() AdapterConstructor { return s.adapterConstructor }

// Options reconstructs a ServerOptions snapshot of the server's current
// settings, for code (such as Client) that only wants a read view.
func (s *Server) Options() *ServerOptions {
	timeout := s.connectTimeout
	return &ServerOptions{
		path:           s.path,
		adapter:        s.adapterConstructor,
		parser:         s.parser,
		connectTimeout: &timeout,
	}
}

// SetAdapter replaces the adapter factory and re-initializes every existing
// namespace's adapter against it.
func (s *Server) SetAdapter(constructor AdapterConstructor) *Server {
	s.adapterConstructor = constructor
	s.nsps.Range(func(_ string, nsp *Namespace) bool {
		nsp.initAdapter()
		return true
	})
	return s
}

// Set is the pre-options-object back-compat configuration entry point
// (spec §6 Configuration paragraph): "authorization" installs a middleware
// wrapping the supplied (req, cb) handshake hook; "origins" and "resource"
// forward to the bound engine's CORS origin and this server's path; the
// heartbeat/buffer keys forward straight to the engine, and "transports" is
// accepted and ignored. Unknown keys are ignored, matching the teacher's
// permissive key,value store.
func (s *Server) Set(key string, val any) *Server {
	switch key {
	case "authorization":
		if fn, ok := val.(func(*http.Request, func(error))); ok {
			s.Use(func(socket *Socket, next func(*types.ExtendedError)) {
				fn(socket.Client().Request(), func(err error) {
					if err != nil {
						next(types.NewExtendedError(err.Error(), nil))
						return
					}
					next(nil)
				})
			})
		}
	case "origins":
		if origins, ok := val.(string); ok && s.engine != nil {
			s.engine.SetOrigins(origins)
		}
	case "resource":
		if path, ok := val.(string); ok {
			s.path = path
		}
	case "heartbeat timeout":
		if d, ok := val.(time.Duration); ok && s.engine != nil {
			s.engine.SetPingTimeout(d)
		}
	case "heartbeat interval":
		if d, ok := val.(time.Duration); ok && s.engine != nil {
			s.engine.SetPingInterval(d)
		}
	case "destroy buffer size":
		if n, ok := val.(int64); ok && s.engine != nil {
			s.engine.SetMaxPayload(n)
		}
	case "transports":
		// A single WebSocket transport is all this module ships (spec §1
		// treats transport selection as the engine's concern); the key is
		// accepted and ignored rather than rejected outright.
		serverLog.Debug("transports option is a no-op on this single-transport engine")
	}
	return s
}

// Bind attaches socket.io's wire protocol to an Engine.IO server, handling
// every new transport connection as it arrives.
func (s *Server) Bind(engine *engineio.Server) *Server {
	s.engine = engine
	s.engine.On("connection", s.onconnection)
	return s
}

// ServeHTTP lets a Server be mounted directly as an http.Handler, e.g.
// http.Handle("/socket.io/", server).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// onconnection instantiates a Client for every new transport connection and
// admits it to the default namespace.
func (s *Server) onconnection(args ...any) {
	conn := args[0].(*engineio.Socket)
	serverLog.Debug("incoming connection with id %s", conn.Id())
	client := NewClient(s, conn)
	client.connect("/", nil)
}

// Of looks up (creating if necessary) the namespace named name, normalizing
// a missing leading slash.
func (s *Server) Of(name string) *Namespace {
	if name == "" {
		name = "/"
	} else if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}

	if nsp, ok := s.nsps.Load(name); ok {
		return nsp
	}

	serverLog.Debug("initializing namespace %s", name)
	nsp := NewNamespace(s, name)
	s.nsps.Store(name, nsp)
	return nsp
}

// namespace is Of's non-creating counterpart, used to decide whether an
// incoming CONNECT should be admitted or rejected.
func (s *Server) namespace(name string) (*Namespace, bool) {
	return s.nsps.Load(name)
}

// Close disconnects every socket across every namespace and shuts down the
// underlying transport.
func (s *Server) Close() {
	s.nsps.Range(func(_ string, nsp *Namespace) bool {
		nsp.Sockets().Range(func(_ SocketId, socket *Socket) bool {
			socket.onclose("server shutting down")
			return true
		})
		return true
	})
	if s.engine != nil {
		s.engine.Close()
	}
}

// Use registers namespace-level middleware on the default namespace.
func (s *Server) Use(fn func(*Socket, func(*types.ExtendedError))) *Server {
	s.sockets.Use(fn)
	return s
}

func (s *Server) To(room ...Room) *BroadcastOperator {
	return s.sockets.To(room...)
}

func (s *Server) In(room ...Room) *BroadcastOperator {
	return s.sockets.In(room...)
}

func (s *Server) Except(room ...Room) *BroadcastOperator {
	return s.sockets.Except(room...)
}

func (s *Server) Emit(ev string, args ...any) error {
	return s.sockets.Emit(ev, args...)
}

func (s *Server) Send(args ...any) *Server {
	s.sockets.Emit("message", args...)
	return s
}

func (s *Server) Write(args ...any) *Server {
	s.sockets.Emit("message", args...)
	return s
}

func (s *Server) AllSockets() (*types.Set[SocketId], error) {
	return s.sockets.AllSockets()
}

func (s *Server) Compress(compress bool) *BroadcastOperator {
	return s.sockets.Compress(compress)
}

func (s *Server) Volatile() *BroadcastOperator {
	return s.sockets.Volatile()
}

func (s *Server) Local() *BroadcastOperator {
	return s.sockets.Local()
}

func (s *Server) FetchSockets() []SocketDetails {
	return s.sockets.FetchSockets()
}

func (s *Server) SocketsJoin(room ...Room) {
	s.sockets.SocketsJoin(room...)
}

func (s *Server) SocketsLeave(room ...Room) {
	s.sockets.SocketsLeave(room...)
}

func (s *Server) DisconnectSockets(status bool) {
	s.sockets.DisconnectSockets(status)
}
