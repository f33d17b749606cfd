// Package api provides the HTTP API for observing and steering the kingdoms.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (player control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/veloria/internal/agents"
	"github.com/talgya/veloria/internal/chronicle"
	"github.com/talgya/veloria/internal/engine"
)

const maxWSConns = 8

// Server serves the shared snapshot and accepts player requests. It never
// touches the world directly: reads come from the published snapshot and the
// chronicle, writes are queued through engine.Shared.
type Server struct {
	Shared    *engine.Shared
	Chronicle *chronicle.Sink
	Port      int
	AdminKey  string   // Bearer token for POST endpoints. Empty = POST disabled.
	Origins   []string // extra CORS origins

	// Active websocket connection count.
	wsConns  atomic.Int32
	upgrader websocket.Upgrader
	quit     chan struct{}
}

// NewServer creates a server over the presentation boundary.
func NewServer(shared *engine.Shared, sink *chronicle.Sink) *Server {
	return &Server{
		Shared:    shared,
		Chronicle: sink,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		quit: make(chan struct{}),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	controlLimiter := NewRateLimiter(60, time.Minute)
	readLimiter := NewRateLimiter(600, time.Minute) // presentation polls the chronicle

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/v1/kingdom/", s.handleKingdom)
	mux.HandleFunc("/api/v1/chronicle", s.handleChronicle)

	// Websocket snapshot stream.
	mux.HandleFunc("/api/v1/ws", s.handleStream)

	// Control endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/policy", RateLimitMiddleware(controlLimiter, s.adminOnly(s.handlePolicy)))
	mux.HandleFunc("/api/v1/story", RateLimitMiddleware(controlLimiter, s.adminOnly(s.handleStory)))
	mux.HandleFunc("/api/v1/refresh", RateLimitMiddleware(controlLimiter, s.adminOnly(s.handleRefresh)))
	mux.HandleFunc("/api/v1/chronicle/read", RateLimitMiddleware(readLimiter, s.adminOnly(s.handleChronicleRead)))

	return corsMiddleware(s.Origins, mux)
}

// Start begins serving the HTTP API in a goroutine and shuts it down when
// ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		close(s.quit)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(extra []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range extra {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require a POST with bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "control endpoints disabled (no VELORIA_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Shared.Snapshot()
	active := 0
	for _, k := range snap.Kingdoms {
		if k.Active {
			active++
		}
	}
	writeJSON(w, map[string]any{
		"name":       "Veloria",
		"world_id":   snap.WorldID,
		"time":       snap.Time,
		"status":     snap.Status,
		"world_pop":  snap.WorldPop,
		"population": snap.Population,
		"kingdoms":   active,
		"story":      snap.Story,
		"version":    snap.Version,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Shared.Snapshot())
}

// handleKingdom serves GET /api/v1/kingdom/:id.
func (s *Server) handleKingdom(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/kingdom/")
	id, err := strconv.Atoi(raw)
	if err != nil || !validKingdom(id) {
		http.Error(w, "invalid kingdom id", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.Shared.Snapshot().Kingdoms[id])
}

// handleChronicle serves the chronicle ring. With ?unread=true it returns
// only entries the presentation has not yet consumed. Reading never moves
// the read cursor; POST /api/v1/chronicle/read does.
func (s *Server) handleChronicle(w http.ResponseWriter, r *http.Request) {
	var entries []chronicle.Entry
	if r.URL.Query().Get("unread") == "true" {
		entries = s.Chronicle.Unread()
	} else {
		entries = s.Chronicle.Entries()
	}
	writeJSON(w, tail(entries, r))
}

// handleChronicleRead consumes the unread entries: it returns them and
// advances the read cursor past them.
func (s *Server) handleChronicleRead(w http.ResponseWriter, r *http.Request) {
	entries := s.Chronicle.TakeUnread()
	if entries == nil {
		entries = []chronicle.Entry{}
	}
	writeJSON(w, entries)
}

// tail keeps the newest ?limit= entries (default 50, at most 500).
func tail(entries []chronicle.Entry, r *http.Request) []chronicle.Entry {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if entries == nil {
		return []chronicle.Entry{}
	}
	if len(entries) > limit {
		return entries[len(entries)-limit:]
	}
	return entries
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Policy  string `json:"policy"`
		Kingdom int    `json:"kingdom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if !validKingdom(req.Kingdom) {
		http.Error(w, "invalid kingdom id", http.StatusBadRequest)
		return
	}
	id := agents.KingdomID(req.Kingdom)

	// Cheap early refusal against the snapshot; the simulation re-checks
	// affordability against live state when it drains the request.
	if !s.Shared.Snapshot().Kingdoms[id].Active {
		http.Error(w, engine.ErrInactiveKingdom.Error(), http.StatusConflict)
		return
	}
	if err := s.Shared.RequestPolicy(req.Policy, id); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	slog.Info("policy requested", "policy", req.Policy, "kingdom", req.Kingdom)
	writeJSONStatus(w, http.StatusAccepted, map[string]any{"queued": true, "policy": req.Policy, "kingdom": req.Kingdom})
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	var pos engine.StoryPosition
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if pos.Chapter < 0 || pos.Paragraph < 0 {
		http.Error(w, "chapter and paragraph must not be negative", http.StatusBadRequest)
		return
	}
	s.Shared.SetStoryPosition(pos)
	slog.Info("story position set", "chapter", pos.Chapter, "paragraph", pos.Paragraph)
	writeJSON(w, pos)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.Shared.RequestRefresh()
	writeJSONStatus(w, http.StatusAccepted, map[string]bool{"queued": true})
}

// handleStream upgrades to a websocket and pushes every published snapshot.
// The current snapshot is sent on connect.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if n := s.wsConns.Add(1); n > maxWSConns {
		s.wsConns.Add(-1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer s.wsConns.Add(-1)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	updates, stop := s.Shared.Watch()
	defer stop()

	// Reader loop: only watches for the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	slog.Info("stream client connected", "remote", r.RemoteAddr)
	if err := writeSnapshot(conn, s.Shared.Snapshot()); err != nil {
		return
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case snap := <-updates:
			if err := writeSnapshot(conn, snap); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-gone:
			slog.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-s.quit:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
			return
		}
	}
}

func validKingdom(id int) bool {
	return id >= 0 && id < agents.NumKingdoms
}

func writeSnapshot(conn *websocket.Conn, snap engine.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(snap)
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
