package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/cryptchat/relay/internal/security"
)

func newTestProcessor() *Processor {
	scanner := security.NewScanner(security.NewCatalog(), nil)
	return NewProcessor(scanner, NewStore())
}

func TestProcessCommitsSafeMessage(t *testing.T) {
	p := newTestProcessor()

	msg := p.Process(context.Background(), Inbound{
		Username: "alice",
		Content:  "hello there",
		Room:     "general",
	})

	if msg.ID == "" {
		t.Error("message not assigned an ID")
	}
	if msg.Kind != KindText {
		t.Errorf("Kind = %q, want default %q", msg.Kind, KindText)
	}
	if msg.Timestamp.IsZero() {
		t.Error("message not timestamped")
	}
	if msg.Security == nil {
		t.Fatal("message has no scan result")
	}
	if msg.Security.Status != security.StatusSafe {
		t.Errorf("Status = %q, want %q", msg.Security.Status, security.StatusSafe)
	}

	history := p.RoomHistory("general")
	if len(history) != 1 || history[0].ID != msg.ID {
		t.Errorf("history = %v, want the processed message", history)
	}
}

func TestProcessWithholdsBlockedMessage(t *testing.T) {
	p := newTestProcessor()

	msg := p.Process(context.Background(), Inbound{
		Username: "mallory",
		Content:  "visit http://fake-login.com/verify",
		Room:     "general",
	})

	if msg.Security == nil || !msg.Security.Blocked {
		t.Fatal("expected a blocked verdict")
	}
	if msg.Security.Status != security.StatusBlocked {
		t.Errorf("Status = %q, want %q", msg.Security.Status, security.StatusBlocked)
	}
	// The sender still gets the full message back for notification.
	if msg.ID == "" || len(msg.Security.Threats) == 0 {
		t.Error("blocked message should carry ID and threat details")
	}
	if history := p.RoomHistory("general"); len(history) != 0 {
		t.Errorf("blocked message reached history: %v", history)
	}
}

func TestProcessCommitsSuspiciousMessage(t *testing.T) {
	p := newTestProcessor()

	msg := p.Process(context.Background(), Inbound{
		Username: "bob",
		Content:  "what's your login policy here?",
		Room:     "general",
	})

	if msg.Security.Status != security.StatusThreatDetected {
		t.Fatalf("Status = %q, want %q", msg.Security.Status, security.StatusThreatDetected)
	}
	// Suspicious but not malicious: delivered with the warning attached.
	if history := p.RoomHistory("general"); len(history) != 1 {
		t.Errorf("suspicious message should still reach history, got %d", len(history))
	}
}

func TestProcessAssignsUniqueIDs(t *testing.T) {
	p := newTestProcessor()

	const goroutines = 16
	const perGoroutine = 25
	ids := make(chan string, goroutines*perGoroutine)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				msg := p.Process(context.Background(), Inbound{
					Username: "alice",
					Content:  "hi",
					Room:     "general",
				})
				ids <- msg.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate message ID %q", id)
		}
		seen[id] = true
	}
	if len(seen) != goroutines*perGoroutine {
		t.Errorf("got %d unique IDs, want %d", len(seen), goroutines*perGoroutine)
	}
}

func TestJoinAndLeaveRoom(t *testing.T) {
	p := newTestProcessor()

	p.JoinRoom("general", "alice")
	p.JoinRoom("general", "alice") // idempotent
	p.JoinRoom("general", "bob")

	rooms := p.ActiveRooms()
	if len(rooms) != 1 || rooms[0] != "general" {
		t.Errorf("ActiveRooms = %v, want [general]", rooms)
	}

	p.LeaveRoom("general", "alice")
	p.LeaveRoom("ghost", "alice") // unknown room: no-op, no creation

	if len(p.ActiveRooms()) != 1 {
		t.Errorf("LeaveRoom created a room: %v", p.ActiveRooms())
	}
}

func TestSeedRooms(t *testing.T) {
	p := newTestProcessor()
	p.SeedRooms([]string{"general", "security", "random"})

	if n := len(p.ActiveRooms()); n != 3 {
		t.Errorf("ActiveRooms has %d rooms, want 3", n)
	}
	if history := p.RoomHistory("security"); len(history) != 0 {
		t.Errorf("seeded room history = %v, want empty", history)
	}
}
