package ws

import (
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws/wsutil"
)

func newTestConnection(id string) (*Connection, net.Conn) {
	server, client := net.Pipe()
	return &Connection{ID: id, Conn: server, CreatedAt: time.Now()}, client
}

func TestConnectionBinding(t *testing.T) {
	conn, peer := newTestConnection("c1")
	defer conn.Close()
	defer peer.Close()

	if room, user := conn.Identity(); room != "" || user != "" {
		t.Errorf("fresh connection identity = (%q, %q), want empty", room, user)
	}

	conn.Bind("general", "alice")
	if room, user := conn.Identity(); room != "general" || user != "alice" {
		t.Errorf("identity = (%q, %q), want (general, alice)", room, user)
	}

	room, user := conn.Unbind()
	if room != "general" || user != "alice" {
		t.Errorf("Unbind returned (%q, %q), want the previous binding", room, user)
	}
	if room, user := conn.Identity(); room != "" || user != "" {
		t.Errorf("identity after Unbind = (%q, %q), want empty", room, user)
	}
}

func TestRegistryAddRemove(t *testing.T) {
	reg := NewRegistry()
	conn, peer := newTestConnection("c1")
	defer peer.Close()

	reg.Add(conn)
	if reg.Count() != 1 {
		t.Errorf("Count = %d, want 1", reg.Count())
	}
	if reg.Get("c1") != conn {
		t.Error("Get did not return the added connection")
	}

	if !reg.Remove("c1") {
		t.Error("Remove returned false for a present connection")
	}
	if reg.Count() != 0 {
		t.Errorf("Count after Remove = %d, want 0", reg.Count())
	}
	if reg.Remove("c1") {
		t.Error("Remove returned true for an absent connection")
	}
}

func TestRegistryJoinMovesRooms(t *testing.T) {
	reg := NewRegistry()
	conn, peer := newTestConnection("c1")
	defer peer.Close()
	defer conn.Close()
	reg.Add(conn)

	reg.Join(conn, "general")
	reg.Join(conn, "security")

	// The connection must only be reachable through its current room.
	got := collectBroadcast(t, reg, peer, "security")
	if !got {
		t.Error("connection missing from its current room's broadcast group")
	}
	if inRoom(reg, "general", "c1") {
		t.Error("connection still grouped under its previous room")
	}
}

func TestRegistryLeave(t *testing.T) {
	reg := NewRegistry()
	conn, peer := newTestConnection("c1")
	defer peer.Close()
	defer conn.Close()
	reg.Add(conn)
	reg.Join(conn, "general")

	reg.Leave(conn, "general")
	if inRoom(reg, "general", "c1") {
		t.Error("connection still in room after Leave")
	}
	if reg.Count() != 1 {
		t.Errorf("Leave dropped the connection entirely: Count = %d", reg.Count())
	}
}

func inRoom(r *Registry, room, id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byRoom[room][id]
	return ok
}

// collectBroadcast broadcasts to room and reports whether peer received
// a complete frame within the deadline. The peer must consume the whole
// frame: header and payload arrive as separate writes on the pipe, and
// a partial read would leave the broadcasting side blocked.
func collectBroadcast(t *testing.T, reg *Registry, peer net.Conn, room string) bool {
	t.Helper()

	received := make(chan bool, 1)
	go func() {
		_ = peer.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		data, _, err := wsutil.ReadServerData(peer)
		received <- err == nil && string(data) == "ping"
	}()

	reg.BroadcastRoom(room, []byte("ping"))
	return <-received
}
