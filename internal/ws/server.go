// Package ws handles WebSocket connection management: upgrading HTTP
// requests, tracking live connections and their room groupings, and
// dispatching incoming frames to registered handlers.
package ws

import (
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"

	"github.com/cryptchat/relay/internal/metrics"
)

// ServerConfig holds tunable parameters for the WebSocket server.
type ServerConfig struct {
	MaxConnections int           // hard cap on simultaneous connections
	ReadTimeout    time.Duration // per-frame read deadline; 0 disables
}

// DefaultServerConfig returns a ServerConfig with production defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		MaxConnections: 10000,
		ReadTimeout:    5 * time.Minute,
	}
}

// Server accepts WebSocket connections and runs one reader goroutine
// per connection. It is mounted on an HTTP router via HandleUpgrade;
// the relay's expected connection counts do not call for an event-loop
// architecture.
type Server struct {
	config       ServerConfig
	registry     *Registry
	onMessage    func(conn *Connection, data []byte)
	onDisconnect func(conn *Connection)
	startedAt    time.Time
	done         chan struct{}
	closeOnce    sync.Once
}

// NewServer creates a Server. onMessage is invoked from the reader
// goroutine for every complete text frame; onDisconnect fires once per
// connection after it is removed from the registry (nil to skip).
func NewServer(config ServerConfig, onMessage func(conn *Connection, data []byte), onDisconnect func(conn *Connection)) *Server {
	return &Server{
		config:       config,
		registry:     NewRegistry(),
		onMessage:    onMessage,
		onDisconnect: onDisconnect,
		startedAt:    time.Now(),
		done:         make(chan struct{}),
	}
}

// Close stops background workers such as the heartbeat. Safe to call
// more than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Registry returns the connection registry for room broadcasts.
func (s *Server) Registry() *Registry { return s.registry }

// Uptime reports how long the server has been accepting connections.
func (s *Server) Uptime() time.Duration { return time.Since(s.startedAt) }

// HandleUpgrade upgrades an HTTP request to a WebSocket connection,
// registers it, and starts its reader goroutine.
func (s *Server) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.registry.Count() >= s.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	c := &Connection{
		ID:        uuid.New().String(),
		Conn:      conn,
		CreatedAt: time.Now(),
	}
	s.registry.Add(c)
	metrics.ConnectionsTotal.Inc()

	log.Printf("ws: new connection conn=%s (total=%d)", c.ID, s.registry.Count())
	go s.readLoop(c)
}

// readLoop reads frames until the connection dies, forwarding text
// frames to the onMessage callback. Control frames (ping, pong, close)
// are handled here rather than inside the wsutil read helpers so they
// count as liveness: a browser answering heartbeat pings with automatic
// pongs must not be reaped as stale.
func (s *Server) readLoop(c *Connection) {
	defer s.drop(c)

	control := wsutil.ControlFrameHandler(c.Conn, ws.StateServerSide)
	rd := &wsutil.Reader{
		Source:         c.Conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: control,
	}

	for {
		if s.config.ReadTimeout > 0 {
			_ = c.Conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}
		hdr, err := rd.NextFrame()
		if err != nil {
			if err != io.EOF {
				log.Printf("ws: read error conn=%s: %v", c.ID, err)
			}
			return
		}
		if hdr.OpCode.IsControl() {
			c.Touch()
			if err := control(hdr, rd); err != nil {
				return
			}
			continue
		}
		data, err := io.ReadAll(rd)
		if err != nil {
			log.Printf("ws: read error conn=%s: %v", c.ID, err)
			return
		}
		c.Touch()
		if hdr.OpCode != ws.OpText {
			continue
		}
		s.onMessage(c, data)
	}
}

// drop removes a connection and notifies the disconnect callback.
func (s *Server) drop(c *Connection) {
	if s.registry.Remove(c.ID) {
		metrics.ConnectionsTotal.Dec()
		log.Printf("ws: connection closed conn=%s (total=%d)", c.ID, s.registry.Count())
		if s.onDisconnect != nil {
			s.onDisconnect(c)
		}
	}
}

// SendMessage writes data to the connection with the given ID. Returns
// false if the connection is gone or the write failed.
func (s *Server) SendMessage(connID string, data []byte) bool {
	conn := s.registry.Get(connID)
	if conn == nil {
		return false
	}
	if err := conn.WriteMessage(data); err != nil {
		log.Printf("ws: write failed conn=%s: %v", connID, err)
		return false
	}
	return true
}
