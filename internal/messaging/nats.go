// Package messaging provides the NATS fan-out that keeps room
// broadcasts consistent when several relay instances serve the same
// rooms. Each instance publishes committed messages to room.<name> and
// rebroadcasts events originating from its peers.
package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects used by the relay.
const (
	SubjectRoomPrefix   = "room."
	SubjectRoomWildcard = "room.>"
)

// RoomEvent is the payload published to room.<name> subjects. Payload
// carries the already-encoded client frame so peers can rebroadcast it
// without re-marshalling.
type RoomEvent struct {
	Origin  string          `json:"origin"` // publishing instance name
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // instance name; also the event origin tag
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "cryptchat-relay",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// NATSClient wraps the NATS connection for room fan-out.
type NATSClient struct {
	conn *nats.Conn
	name string

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewNATSClient connects to NATS and returns a ready client, or an
// error if the initial connection fails.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &NATSClient{conn: nc, name: config.Name}, nil
}

// PublishRoomEvent publishes an already-encoded client frame for a room
// so peer instances can rebroadcast it locally.
func (c *NATSClient) PublishRoomEvent(room string, payload []byte) error {
	data, err := json.Marshal(RoomEvent{
		Origin:  c.name,
		Room:    room,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("nats: marshal room event: %w", err)
	}
	return c.conn.Publish(SubjectRoomPrefix+room, data)
}

// SubscribeRoomEvents registers a handler for events from peer
// instances on every room subject. Events this instance published are
// filtered out so local broadcasts are not doubled.
func (c *NATSClient) SubscribeRoomEvents(handler func(RoomEvent)) error {
	sub, err := c.conn.Subscribe(SubjectRoomWildcard, func(msg *nats.Msg) {
		var event RoomEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("[nats] bad room event on %s: %v", msg.Subject, err)
			return
		}
		if event.Origin == c.name {
			return
		}
		handler(event)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", SubjectRoomWildcard, err)
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return nil
}

// Close drains all subscriptions and the connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", sub.Subject, err)
		}
	}
	c.subs = nil

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}
	log.Printf("[nats] client closed")
}
