package chat

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cryptchat/relay/internal/metrics"
	"github.com/cryptchat/relay/internal/security"
)

// Inbound is a raw message handed over by the transport layer, before
// identity assignment and scanning.
type Inbound struct {
	Username string
	Content  string
	Kind     Kind
	Room     string
}

// Processor drives each inbound message through the moderation pipeline
// and applies the verdict to room state. It is safe for concurrent use
// by any number of sessions.
type Processor struct {
	scanner *security.Scanner
	rooms   *Store
	nextID  atomic.Int64
}

// NewProcessor returns a Processor committing scanned messages to rooms.
func NewProcessor(scanner *security.Scanner, rooms *Store) *Processor {
	return &Processor{scanner: scanner, rooms: rooms}
}

// Process assigns a process-unique ID and timestamp, scans the content,
// and commits the message to its room unless the verdict blocks it. The
// returned message always carries the full scan result, so the caller
// can notify the sender of a block; a blocked message never reaches any
// room's history.
func (p *Processor) Process(ctx context.Context, in Inbound) Message {
	kind := in.Kind
	if kind == "" {
		kind = KindText
	}

	msg := Message{
		ID:        strconv.FormatInt(p.nextID.Add(1), 10),
		Username:  in.Username,
		Content:   in.Content,
		Kind:      kind,
		Room:      in.Room,
		Timestamp: time.Now(),
	}

	start := time.Now()
	result := p.scanner.Scan(ctx, in.Content)
	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	msg.Security = &result

	for _, threat := range result.Threats {
		metrics.ThreatsTotal.WithLabelValues(threat.Type).Inc()
	}
	metrics.MessagesTotal.WithLabelValues(verdictLabel(result.Status)).Inc()

	if !result.Blocked {
		p.room(in.Room).Append(msg)
	}
	return msg
}

// JoinRoom adds user to the room's member set, creating the room on
// first reference. Idempotent.
func (p *Processor) JoinRoom(room, user string) {
	p.room(room).AddMember(user)
}

// LeaveRoom removes user from the room's member set. Leaving a room
// that was never created, or never joined, is a no-op.
func (p *Processor) LeaveRoom(room, user string) {
	if r := p.rooms.Lookup(room); r != nil {
		r.RemoveMember(user)
	}
}

// RoomHistory returns a point-in-time copy of the room's history,
// bounded to the last RoomHistoryLimit messages. Referencing an unknown
// room creates it empty, matching room join semantics.
func (p *Processor) RoomHistory(room string) []Message {
	return p.room(room).History()
}

// ActiveRooms returns the names of every room created so far.
func (p *Processor) ActiveRooms() []string {
	return p.rooms.Names()
}

// SeedRooms creates the given rooms up front so clients see them before
// the first message arrives.
func (p *Processor) SeedRooms(names []string) {
	for _, name := range names {
		p.room(name)
	}
}

func (p *Processor) room(name string) *Room {
	room := p.rooms.GetOrCreate(name)
	metrics.ActiveRooms.Set(float64(p.rooms.Count()))
	return room
}

func verdictLabel(status security.ScanStatus) string {
	switch status {
	case security.StatusSafe:
		return "safe"
	case security.StatusThreatDetected:
		return "threat_detected"
	case security.StatusBlocked:
		return "blocked"
	case security.StatusError:
		return "error"
	default:
		return "unknown"
	}
}
