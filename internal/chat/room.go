package chat

import "sync"

// RoomHistoryLimit is the number of messages retained per room. Older
// messages are evicted FIFO when the limit is exceeded.
const RoomHistoryLimit = 100

// Room is a named channel holding bounded message history and a member
// set. All mutation is serialized by the room's own mutex, so
// operations on different rooms never contend with each other.
type Room struct {
	name string

	mu      sync.Mutex
	history ring
	members map[string]struct{}
}

func newRoom(name string) *Room {
	return &Room{
		name:    name,
		history: ring{items: make([]Message, RoomHistoryLimit)},
		members: make(map[string]struct{}),
	}
}

// Name returns the room's unique key.
func (r *Room) Name() string { return r.name }

// Append adds msg to the tail of the history, evicting the oldest entry
// when the room is at capacity. Append and eviction are one atomic step
// with respect to concurrent appends on the same room.
func (r *Room) Append(msg Message) {
	r.mu.Lock()
	r.history.add(msg)
	r.mu.Unlock()
}

// History returns a point-in-time copy of the room's messages, oldest
// first. Later appends do not show through, and taking the snapshot
// does not block them beyond the copy itself.
func (r *Room) History() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.snapshot()
}

// AddMember adds user to the member set. Idempotent.
func (r *Room) AddMember(user string) {
	r.mu.Lock()
	r.members[user] = struct{}{}
	r.mu.Unlock()
}

// RemoveMember removes user from the member set. Removing a user who
// never joined is a no-op.
func (r *Room) RemoveMember(user string) {
	r.mu.Lock()
	delete(r.members, user)
	r.mu.Unlock()
}

// Members returns a copy of the member set. No ordering is guaranteed.
func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]string, 0, len(r.members))
	for u := range r.members {
		users = append(users, u)
	}
	return users
}

// MemberCount returns the current number of members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// ring is a fixed-capacity circular buffer of messages. Writing over a
// full buffer overwrites the oldest slot, which gives FIFO eviction
// without reallocating on every trim.
type ring struct {
	items []Message
	pos   int
	count int
}

func (rb *ring) add(msg Message) {
	rb.items[rb.pos] = msg
	rb.pos = (rb.pos + 1) % len(rb.items)
	if rb.count < len(rb.items) {
		rb.count++
	}
}

func (rb *ring) snapshot() []Message {
	out := make([]Message, rb.count)
	// The oldest entry sits at (pos - count) mod capacity.
	start := (rb.pos - rb.count + len(rb.items)) % len(rb.items)
	for i := 0; i < rb.count; i++ {
		out[i] = rb.items[(start+i)%len(rb.items)]
	}
	return out
}
