// Package chat owns the relay's room state and message processing. It
// maintains the concurrent room registry with bounded per-room history
// and drives every inbound message through the security scan before
// deciding whether it is committed.
package chat

import (
	"time"

	"github.com/cryptchat/relay/internal/security"
)

// Kind discriminates message payloads. The set is closed.
type Kind string

const (
	KindText   Kind = "TEXT"
	KindSystem Kind = "SYSTEM"
	KindFile   Kind = "FILE"
	KindImage  Kind = "IMAGE"
)

// validKinds is the closed set accepted from clients.
var validKinds = map[Kind]bool{
	KindText:   true,
	KindSystem: true,
	KindFile:   true,
	KindImage:  true,
}

// Message is one chat message. ID, Timestamp, and Security are assigned
// by the Processor; the rest comes from the sender. Once committed to a
// room's history a Message is never mutated.
type Message struct {
	ID        string               `json:"id"`
	Username  string               `json:"username"`
	Content   string               `json:"content"`
	Kind      Kind                 `json:"type"`
	Room      string               `json:"room"`
	Timestamp time.Time            `json:"timestamp"`
	Security  *security.ScanResult `json:"security,omitempty"`
}

// SystemNotice builds an uncommitted SYSTEM message for room events
// (joins, leaves, block notifications). System notices carry no scan
// result and are never written to history.
func SystemNotice(room, content string) Message {
	return Message{
		Username:  "system",
		Content:   content,
		Kind:      KindSystem,
		Room:      room,
		Timestamp: time.Now(),
	}
}
