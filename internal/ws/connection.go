package ws

import (
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Connection is a single WebSocket client with its room binding and a
// write mutex serializing outbound frames.
type Connection struct {
	ID        string   // connection ID (UUID)
	Conn      net.Conn // underlying TCP connection
	CreatedAt time.Time

	mu           sync.Mutex
	username     string // set by join; empty until then
	room         string // current room; empty until join
	lastActivity time.Time
}

// Touch records read activity for staleness checks.
func (c *Connection) Touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// LastActivity returns the time of the most recent successful read, or
// CreatedAt if nothing has been read yet.
func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastActivity.IsZero() {
		return c.CreatedAt
	}
	return c.lastActivity
}

// WriteMessage sends a WebSocket text frame to this connection. The
// mutex ensures concurrent goroutines do not interleave frame bytes.
func (c *Connection) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wsutil.WriteServerMessage(c.Conn, ws.OpText, data)
}

// Bind records the room and username this connection joined as.
func (c *Connection) Bind(room, username string) {
	c.mu.Lock()
	c.room = room
	c.username = username
	c.mu.Unlock()
}

// Unbind clears the room binding, returning the previous values.
func (c *Connection) Unbind() (room, username string) {
	c.mu.Lock()
	room, username = c.room, c.username
	c.room, c.username = "", ""
	c.mu.Unlock()
	return room, username
}

// Identity returns the room and username bound by join. Both are empty
// for a connection that has not joined a room.
func (c *Connection) Identity() (room, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.username
}

// Close closes the underlying network connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// Registry is a thread-safe index of live connections, keyed by
// connection ID and grouped by room for broadcast.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Connection
	byRoom map[string]map[string]*Connection // room -> conn ID -> conn
}

// NewRegistry creates an empty Registry ready for use.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*Connection),
		byRoom: make(map[string]map[string]*Connection),
	}
}

// Add registers a new connection. The connection belongs to no room
// until Join is called.
func (r *Registry) Add(conn *Connection) {
	r.mu.Lock()
	r.byID[conn.ID] = conn
	r.mu.Unlock()
}

// Remove drops a connection from the registry and its room grouping,
// and closes the underlying socket. Returns true if it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	conn, ok := r.byID[id]
	if ok {
		delete(r.byID, id)
		for room, conns := range r.byRoom {
			if _, in := conns[id]; in {
				delete(conns, id)
				if len(conns) == 0 {
					delete(r.byRoom, room)
				}
			}
		}
	}
	r.mu.Unlock()

	if ok {
		conn.Close()
	}
	return ok
}

// Join moves the connection into a room's broadcast group, removing it
// from any previous room first. A connection is in at most one room.
func (r *Registry) Join(conn *Connection, room string) {
	r.mu.Lock()
	for name, conns := range r.byRoom {
		if _, in := conns[conn.ID]; in && name != room {
			delete(conns, conn.ID)
			if len(conns) == 0 {
				delete(r.byRoom, name)
			}
		}
	}
	conns, ok := r.byRoom[room]
	if !ok {
		conns = make(map[string]*Connection)
		r.byRoom[room] = conns
	}
	conns[conn.ID] = conn
	r.mu.Unlock()
}

// Leave removes the connection from its room's broadcast group without
// closing it.
func (r *Registry) Leave(conn *Connection, room string) {
	r.mu.Lock()
	if conns, ok := r.byRoom[room]; ok {
		delete(conns, conn.ID)
		if len(conns) == 0 {
			delete(r.byRoom, room)
		}
	}
	r.mu.Unlock()
}

// Get returns the connection for the given ID, or nil.
func (r *Registry) Get(id string) *Connection {
	r.mu.RLock()
	conn := r.byID[id]
	r.mu.RUnlock()
	return conn
}

// All returns a snapshot of every live connection.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*Connection, 0, len(r.byID))
	for _, conn := range r.byID {
		conns = append(conns, conn)
	}
	return conns
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	n := len(r.byID)
	r.mu.RUnlock()
	return n
}

// BroadcastRoom sends data to every connection in the room. Write
// errors on individual connections are ignored; dead connections are
// reaped when their read loop fails.
func (r *Registry) BroadcastRoom(room string, data []byte) {
	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.byRoom[room]))
	for _, conn := range r.byRoom[room] {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.WriteMessage(data)
	}
}
