// Package protocol defines the WebSocket message types exchanged
// between chat clients and the relay. All messages are JSON with a
// "type" discriminator in a consistent envelope.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/cryptchat/relay/internal/chat"
)

// Client -> Server message types.
const (
	TypeJoin    = "join"
	TypeMessage = "message"
	TypeLeave   = "leave"
	TypePing    = "ping"
)

// Server -> Client message types.
const (
	TypeChatMessage = "message"
	TypeSystem      = "system"
	TypeBlocked     = "blocked"
	TypeHistory     = "history"
	TypeRateLimited = "rate_limited"
	TypeError       = "error"
	TypePong        = "pong"
)

// Envelope holds the message type and the raw JSON payload for deferred
// decoding into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON captures the full raw bytes and extracts only the
// "type" field so the payload can be decoded later into the right
// concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// JoinMsg is sent by the client to enter a room under a username.
type JoinMsg struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	Username string `json:"username"`
}

// SendMsg is a chat message posted by the client to its current room.
// Kind is optional and defaults to TEXT.
type SendMsg struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Kind    string `json:"kind,omitempty"`
}

// LeaveMsg is sent by the client to leave its current room.
type LeaveMsg struct {
	Type string `json:"type"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// ChatMessageMsg relays a committed message, scan result included, to
// every member of the room.
type ChatMessageMsg struct {
	Type    string       `json:"type"`
	Message chat.Message `json:"message"`
}

// SystemMsg carries room lifecycle notices (joins and leaves).
type SystemMsg struct {
	Type    string       `json:"type"`
	Message chat.Message `json:"message"`
}

// BlockedMsg is returned only to the sender when their message was
// suppressed. It carries the processed message so the client can show
// which threats fired.
type BlockedMsg struct {
	Type    string       `json:"type"`
	Message chat.Message `json:"message"`
}

// HistoryMsg delivers the room's recent history on join.
type HistoryMsg struct {
	Type     string         `json:"type"`
	Room     string         `json:"room"`
	Messages []chat.Message `json:"messages"`
}

// RateLimitedMsg tells the client it is sending too fast.
type RateLimitedMsg struct {
	Type       string `json:"type"`
	RetryAfter int    `json:"retry_after"`
}

// ErrorMsg communicates an error condition to the client.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client
// message. It returns the type string, the decoded struct, and any
// parse error. Server-only and unknown types are rejected.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeJoin:
		var m JoinMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeMessage:
		var m SendMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeLeave:
		var m LeaveMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage JSON-encodes a server message, injecting msgType
// under the "type" key. The payload should be one of the *Msg structs
// above; encoding goes through a map so the type field always wins.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}
