// Package audit provides PostgreSQL-backed storage for blocked-message
// incidents. Each record captures who posted what in which room and the
// threats that triggered the block, so security staff can review what
// the relay suppressed. This is an operator audit trail, separate from
// chat history, which stays in memory.
package audit

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/cryptchat/relay/internal/chat"
	"github.com/cryptchat/relay/internal/security"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store manages blocked-message incidents in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore opens the database, applies pending migrations, and returns
// a ready store.
func NewStore(databaseURL string) (*Store, error) {
	if err := runMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ping database: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// RecordBlocked inserts the blocked message and its threat findings.
// The message must carry a scan result; threats are stored as JSONB.
func (s *Store) RecordBlocked(ctx context.Context, msg chat.Message) error {
	if msg.Security == nil {
		return fmt.Errorf("audit: message %s has no scan result", msg.ID)
	}

	threatsJSON, err := json.Marshal(msg.Security.Threats)
	if err != nil {
		return fmt.Errorf("audit: marshal threats: %w", err)
	}

	const query = `
		INSERT INTO blocked_messages
			(message_id, room_name, username, content, threats, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = s.db.ExecContext(ctx, query,
		msg.ID, msg.Room, msg.Username, msg.Content, threatsJSON, msg.Security.ScanTime)
	if err != nil {
		return fmt.Errorf("audit: insert incident: %w", err)
	}
	return nil
}

// RecentIncidents returns the most recent blocked-message incidents,
// newest first, up to limit.
func (s *Store) RecentIncidents(ctx context.Context, limit int) ([]Incident, error) {
	const query = `
		SELECT message_id, room_name, username, content, threats, detected_at
		FROM blocked_messages
		ORDER BY detected_at DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query incidents: %w", err)
	}
	defer rows.Close()

	var incidents []Incident
	for rows.Next() {
		var (
			inc         Incident
			threatsJSON []byte
		)
		if err := rows.Scan(&inc.MessageID, &inc.RoomName, &inc.Username,
			&inc.Content, &threatsJSON, &inc.DetectedAt); err != nil {
			return nil, fmt.Errorf("audit: scan incident: %w", err)
		}
		if err := json.Unmarshal(threatsJSON, &inc.Threats); err != nil {
			return nil, fmt.Errorf("audit: decode threats: %w", err)
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// Incident is one suppressed message as stored for review.
type Incident struct {
	MessageID  string
	RoomName   string
	Username   string
	Content    string
	Threats    []security.Threat
	DetectedAt time.Time
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
