package engineio

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/go-sio/sio/events"
	"github.com/go-sio/sio/types"
)

// Config holds the Engine.IO transport's tunables.
type Config struct {
	PingInterval time.Duration
	PingTimeout  time.Duration
	MaxPayload   int64

	// Origins is the allowed CORS origin, "*" (the default) accepting any.
	// Mirrors the teacher's origins/Cors option, applied here instead of a
	// separate CORS middleware since this module's only transport is the
	// WebSocket upgrade itself.
	Origins string

	// AllowRequest vets the upgrade request before the handshake proceeds;
	// a non-nil error rejects the connection with 403. nil accepts every
	// request that already passed the Origins check.
	AllowRequest func(*http.Request) error
}

func DefaultConfig() *Config {
	return &Config{
		PingInterval: 25 * time.Second,
		PingTimeout:  20 * time.Second,
		MaxPayload:   1e6,
		Origins:      "*",
	}
}

// Server upgrades incoming HTTP requests to WebSocket, hands each one a
// Socket, and emits "connection" for socket.Server.Bind to pick up — the
// engine-level counterpart of socket.Server.
type Server struct {
	*events.EventEmitter

	config   *Config
	upgrader websocket.Upgrader
	sockets  sync.Map // id -> *Socket
}

func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	s := &Server{
		EventEmitter: events.New(),
		config:       config,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     s.checkOrigin,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	return s
}

// checkOrigin applies config.Origins: "*" (the default) accepts any
// request, otherwise the request's Origin header must match exactly.
func (s *Server) checkOrigin(r *http.Request) bool {
	origins := s.config.Origins
	if origins == "" || origins == "*" {
		return true
	}
	return r.Header.Get("Origin") == origins
}

// SetOrigins replaces the allowed CORS origin at runtime.
func (s *Server) SetOrigins(origins string) { s.config.Origins = origins }

// SetAllowRequest installs (or clears, with nil) the upgrade request
// gatekeeper described by Config.AllowRequest.
func (s *Server) SetAllowRequest(fn func(*http.Request) error) { s.config.AllowRequest = fn }

// SetPingInterval/SetPingTimeout/SetMaxPayload let a caller tune the
// keepalive and payload limits after construction — the back-compat
// counterpart of spec §6's "heartbeat timeout"/"heartbeat interval"/
// "destroy buffer size" Set() keys.
func (s *Server) SetPingInterval(d time.Duration) { s.config.PingInterval = d }
func (s *Server) SetPingTimeout(d time.Duration)  { s.config.PingTimeout = d }
func (s *Server) SetMaxPayload(n int64)           { s.config.MaxPayload = n }

// ServeHTTP upgrades the request, performs the Engine.IO handshake, and
// emits "connection" with the new Socket.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.config.AllowRequest != nil {
		if err := s.config.AllowRequest(r); err != nil {
			engineLog.Debug("request rejected by AllowRequest: %v", err)
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		engineLog.Debug("upgrade failed: %v", err)
		return
	}

	id, err := types.Base64Id().GenerateId()
	if err != nil {
		conn.Close()
		return
	}

	socket := newSocket(id, conn, r, s.config.PingInterval, s.config.PingTimeout)
	s.sockets.Store(id, socket)

	handshake, err := json.Marshal(HandshakeData{
		Sid:          id,
		Upgrades:     []string{},
		PingInterval: int(s.config.PingInterval / time.Millisecond),
		PingTimeout:  int(s.config.PingTimeout / time.Millisecond),
		MaxPayload:   int(s.config.MaxPayload),
	})
	if err != nil {
		conn.Close()
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, (&Packet{Type: PacketTypeOpen, Data: handshake}).Encode()); err != nil {
		conn.Close()
		return
	}

	socket.On("close", func(...any) { s.sockets.Delete(id) })

	socket.start()
	s.Emit("connection", socket)
}

// Socket looks up a still-connected socket by id.
func (s *Server) Socket(id string) (*Socket, bool) {
	v, ok := s.sockets.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Socket), true
}

// Close closes every connected socket.
func (s *Server) Close() {
	s.sockets.Range(func(_, v any) bool {
		v.(*Socket).Close("server shutdown")
		return true
	})
}
