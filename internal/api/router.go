// Package api exposes the relay's HTTP surface: the REST endpoints for
// room discovery and history, the health and metrics endpoints, and the
// WebSocket upgrade mount.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/cryptchat/relay/internal/chat"
	"github.com/cryptchat/relay/internal/metrics"
	"github.com/cryptchat/relay/internal/ws"
)

// NewRouter builds the chi router for the relay.
func NewRouter(proc *chat.Processor, server *ws.Server) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth(server))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws", server.HandleUpgrade)

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", handleActiveRooms(proc))
		r.Get("/rooms/{room}/history", handleRoomHistory(proc))
	})

	return r
}

// handleActiveRooms returns the names of every active room.
func handleActiveRooms(proc *chat.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, proc.ActiveRooms())
	}
}

// handleRoomHistory returns the room's bounded history, oldest first.
func handleRoomHistory(proc *chat.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := chi.URLParam(r, "room")
		if room == "" {
			http.Error(w, "room name required", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, proc.RoomHistory(room))
	}
}

// handleHealth reports liveness plus connection count and uptime.
func handleHealth(server *ws.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status      string `json:"status"`
			Connections int    `json:"connections"`
			Uptime      string `json:"uptime"`
		}{
			Status:      "ok",
			Connections: server.Registry().Count(),
			Uptime:      server.Uptime().Round(time.Second).String(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
