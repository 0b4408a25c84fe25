package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cryptchat/relay/internal/api"
	"github.com/cryptchat/relay/internal/audit"
	"github.com/cryptchat/relay/internal/chat"
	"github.com/cryptchat/relay/internal/config"
	"github.com/cryptchat/relay/internal/messaging"
	"github.com/cryptchat/relay/internal/protocol"
	"github.com/cryptchat/relay/internal/ratelimit"
	"github.com/cryptchat/relay/internal/security"
	"github.com/cryptchat/relay/internal/ws"
)

func main() {
	log.Println("Starting CryptChat relay...")

	cfg := config.Load()

	// --- Moderation pipeline ---
	var advisory *security.AdvisoryClient
	if cfg.AdvisoryURL != "" {
		advisory = security.NewAdvisoryClient(cfg.AdvisoryURL, cfg.AdvisoryTimeout)
	}
	scanner := security.NewScanner(security.NewCatalog(), advisory)

	rooms := chat.NewStore()
	proc := chat.NewProcessor(scanner, rooms)
	proc.SeedRooms(cfg.DefaultRooms)

	// --- Optional Redis rate limiting ---
	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		cancel()
		defer rdb.Close()
		limiter = ratelimit.NewLimiter(rdb)
	}

	// --- Optional NATS fan-out ---
	var natsClient *messaging.NATSClient
	if cfg.NATSURL != "" {
		natsConfig := messaging.DefaultNATSConfig()
		natsConfig.URL = cfg.NATSURL
		natsConfig.Name = cfg.ServerName

		var err error
		natsClient, err = messaging.NewNATSClient(natsConfig)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		defer natsClient.Close()
	}

	// --- Optional blocked-message audit log ---
	var auditStore *audit.Store
	if cfg.DatabaseURL != "" {
		var err error
		auditStore, err = audit.NewStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to open audit store: %v", err)
		}
		defer auditStore.Close()
	}

	// --- WebSocket server ---
	dispatcher := ws.NewMessageDispatcher()

	var server *ws.Server
	server = ws.NewServer(ws.ServerConfig{
		MaxConnections: cfg.MaxConnections,
		ReadTimeout:    5 * time.Minute,
	}, dispatcher.Dispatch, func(conn *ws.Connection) {
		leaveCurrentRoom(conn, server, proc, natsClient)
	})
	ws.StartHeartbeat(server, ws.DefaultHeartbeatConfig())

	// Peer instances rebroadcast each other's room events.
	if natsClient != nil {
		if err := natsClient.SubscribeRoomEvents(func(event messaging.RoomEvent) {
			server.Registry().BroadcastRoom(event.Room, event.Payload)
		}); err != nil {
			log.Fatalf("failed to subscribe to room events: %v", err)
		}
	}

	// broadcast fans a frame out to the room, locally and across peers.
	broadcast := func(room string, frame []byte) {
		server.Registry().BroadcastRoom(room, frame)
		if natsClient != nil {
			if err := natsClient.PublishRoomEvent(room, frame); err != nil {
				log.Printf("[relay] nats publish room=%s: %v", room, err)
			}
		}
	}

	// -----------------------------------------------------------------------
	// join — enter a room under a username
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeJoin, func(conn *ws.Connection, msg interface{}) {
		joinMsg, ok := msg.(protocol.JoinMsg)
		if !ok {
			return
		}
		if joinMsg.Room == "" || joinMsg.Username == "" {
			dispatcher.SendError(conn, "invalid_join", "room and username are required")
			return
		}

		if limiter != nil {
			allowed, _ := limiter.Allow(context.Background(), joinMsg.Username, ratelimit.RuleJoin)
			if !allowed {
				sendRateLimited(conn, int(ratelimit.RuleJoin.Window.Seconds()))
				return
			}
		}

		// One room per connection: joining a new room leaves the old one.
		leaveCurrentRoom(conn, server, proc, natsClient)

		conn.Bind(joinMsg.Room, joinMsg.Username)
		server.Registry().Join(conn, joinMsg.Room)
		proc.JoinRoom(joinMsg.Room, joinMsg.Username)

		if frame, err := protocol.NewServerMessage(protocol.TypeHistory, protocol.HistoryMsg{
			Room:     joinMsg.Room,
			Messages: proc.RoomHistory(joinMsg.Room),
		}); err == nil {
			_ = conn.WriteMessage(frame)
		}

		notice := chat.SystemNotice(joinMsg.Room, joinMsg.Username+" joined the room")
		if frame, err := protocol.NewServerMessage(protocol.TypeSystem, protocol.SystemMsg{Message: notice}); err == nil {
			broadcast(joinMsg.Room, frame)
		}

		log.Printf("[relay] join conn=%s room=%s user=%s", conn.ID, joinMsg.Room, joinMsg.Username)
	})

	// -----------------------------------------------------------------------
	// message — scan and relay a chat message
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeMessage, func(conn *ws.Connection, msg interface{}) {
		sendMsg, ok := msg.(protocol.SendMsg)
		if !ok {
			return
		}
		room, username := conn.Identity()
		if room == "" {
			dispatcher.SendError(conn, "not_joined", "join a room before sending messages")
			return
		}

		inbound := chat.Inbound{
			Username: username,
			Content:  sendMsg.Content,
			Kind:     chat.Kind(sendMsg.Kind),
			Room:     room,
		}
		if err := chat.ValidateInbound(inbound); err != nil {
			dispatcher.SendError(conn, "invalid_message", err.Error())
			return
		}

		if limiter != nil {
			allowed, _ := limiter.Allow(context.Background(), username, ratelimit.RuleMessage)
			if !allowed {
				sendRateLimited(conn, int(ratelimit.RuleMessage.Window.Seconds()))
				return
			}
		}

		processed := proc.Process(context.Background(), inbound)

		if processed.Security != nil && processed.Security.Blocked {
			// The sender learns why; nobody else sees anything.
			if frame, err := protocol.NewServerMessage(protocol.TypeBlocked, protocol.BlockedMsg{Message: processed}); err == nil {
				_ = conn.WriteMessage(frame)
			}
			log.Printf("[relay] BLOCKED message id=%s room=%s user=%s threats=%d",
				processed.ID, room, username, len(processed.Security.Threats))

			if auditStore != nil {
				go func(m chat.Message) {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := auditStore.RecordBlocked(ctx, m); err != nil {
						log.Printf("[relay] audit record failed id=%s: %v", m.ID, err)
					}
				}(processed)
			}
			return
		}

		if frame, err := protocol.NewServerMessage(protocol.TypeChatMessage, protocol.ChatMessageMsg{Message: processed}); err == nil {
			broadcast(room, frame)
		}
	})

	// -----------------------------------------------------------------------
	// leave — leave the current room
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeLeave, func(conn *ws.Connection, msg interface{}) {
		leaveCurrentRoom(conn, server, proc, natsClient)
	})

	// --- HTTP server ---
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewRouter(proc, server),
	}

	log.Printf("CryptChat relay running")
	log.Printf("  listen_addr:     %s", cfg.ListenAddr)
	log.Printf("  server_name:     %s", cfg.ServerName)
	log.Printf("  default_rooms:   %v", cfg.DefaultRooms)
	log.Printf("  advisory_url:    %s", orDisabled(cfg.AdvisoryURL))
	log.Printf("  nats_url:        %s", orDisabled(cfg.NATSURL))
	log.Printf("  redis_addr:      %s", orDisabled(cfg.RedisAddr))
	log.Printf("  audit_log:       %s", enabledWhen(cfg.DatabaseURL != ""))

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %v, shutting down...", sig)
	case err := <-errCh:
		log.Printf("http server error: %v, shutting down...", err)
	}

	server.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}

// leaveCurrentRoom tears down the connection's room binding: member
// set, broadcast group, and the departure notice. Safe to call for a
// connection that never joined.
func leaveCurrentRoom(conn *ws.Connection, server *ws.Server, proc *chat.Processor, natsClient *messaging.NATSClient) {
	room, username := conn.Unbind()
	if room == "" {
		return
	}

	proc.LeaveRoom(room, username)
	server.Registry().Leave(conn, room)

	notice := chat.SystemNotice(room, username+" left the room")
	if frame, err := protocol.NewServerMessage(protocol.TypeSystem, protocol.SystemMsg{Message: notice}); err == nil {
		server.Registry().BroadcastRoom(room, frame)
		if natsClient != nil {
			if err := natsClient.PublishRoomEvent(room, frame); err != nil {
				log.Printf("[relay] nats publish room=%s: %v", room, err)
			}
		}
	}
	log.Printf("[relay] leave conn=%s room=%s user=%s", conn.ID, room, username)
}

func sendRateLimited(conn *ws.Connection, retryAfter int) {
	if frame, err := protocol.NewServerMessage(protocol.TypeRateLimited, protocol.RateLimitedMsg{
		RetryAfter: retryAfter,
	}); err == nil {
		_ = conn.WriteMessage(frame)
	}
}

func orDisabled(v string) string {
	if v == "" {
		return "(disabled)"
	}
	return v
}

func enabledWhen(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
