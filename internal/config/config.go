// Package config loads the relay's runtime configuration from the
// environment, with an optional .env file for local development.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the relay reads at startup. Optional
// integrations (advisory, NATS, Redis, Postgres) stay disabled when
// their setting is empty.
type Config struct {
	// ListenAddr is the HTTP/WebSocket listen address.
	ListenAddr string

	// AdvisoryURL is the external URL-scoring service endpoint. Empty
	// disables advisory lookups; scanning then uses catalog + heuristics.
	AdvisoryURL string

	// AdvisoryTimeout bounds a single advisory lookup.
	AdvisoryTimeout time.Duration

	// NATSURL enables cross-instance room fan-out when set.
	NATSURL string

	// RedisAddr enables per-user message rate limiting when set.
	RedisAddr string

	// DatabaseURL enables the blocked-message audit log when set.
	DatabaseURL string

	// DefaultRooms are created at startup so clients see them before
	// the first message.
	DefaultRooms []string

	// MaxConnections caps simultaneous WebSocket connections.
	MaxConnections int

	// ServerName identifies this instance in cross-instance fan-out.
	ServerName string
}

// Load reads a .env file if present, then the environment, falling back
// to defaults for anything unset.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] no .env file found, using environment variables")
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "relay-1"
	}

	return &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		AdvisoryURL:     getEnv("ADVISORY_URL", ""),
		AdvisoryTimeout: getDuration("ADVISORY_TIMEOUT", 3*time.Second),
		NATSURL:         getEnv("NATS_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DefaultRooms:    getList("DEFAULT_ROOMS", []string{"general", "security", "random"}),
		MaxConnections:  getInt("MAX_CONNECTIONS", 10000),
		ServerName:      getEnv("SERVER_NAME", hostname),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
