// Package api provides the HTTP control API and the live log stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"actionrecorder/internal/app"
	"actionrecorder/internal/config"
	"actionrecorder/internal/protocol"
)

// Controller is the part of the application the API drives.
type Controller interface {
	Record() error
	Play(ctx context.Context) error
	Stop() error
	State() protocol.StatePayload
	Import(ctx context.Context, path string) <-chan error
	Export(ctx context.Context, path string) <-chan error
}

// Server provides HTTP API for remote control
type Server struct {
	configMgr *config.Manager
	ctrl      Controller
	hub       *Hub
}

// NewServer creates a new API server
func NewServer(configMgr *config.Manager, ctrl Controller) *Server {
	hub := NewHub()
	hub.state = ctrl.State
	return &Server{
		configMgr: configMgr,
		ctrl:      ctrl,
		hub:       hub,
	}
}

// Hub returns the WebSocket hub fed by the application's observers
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the routed and wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/record", s.handleRecord)
	mux.HandleFunc("/api/play", s.handlePlay)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/import", s.handleImport)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	return s.authMiddleware(s.recoverMiddleware(mux))
}

// Start serves the API on port until ctx is done.
func (s *Server) Start(ctx context.Context, port int) error {
	go s.hub.Run(ctx)

	// Loopback only: the API can drive the local mouse and keyboard.
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("API: Starting server on %s", addr)

	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		log.Printf("API: Failed to listen on %s: %v", addr, err)
		return err
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	// This is blocking
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Printf("API: Server stopped: %v", err)
		return err
	}
	return nil
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("API: PANIC RECOV: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks API token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("API: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

		if !allowedOrigin(r) {
			log.Printf("API: Rejected request from origin %q", r.Header.Get("Origin"))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		// Skip auth for health check
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		// The token is read per request so settings changes apply immediately.
		if token := s.configMgr.Get().API.Token; token != "" {
			ok := r.Header.Get("Authorization") == "Bearer "+token
			// Browsers cannot set headers on a WebSocket handshake.
			if !ok && r.URL.Path == "/ws" {
				ok = r.URL.Query().Get("token") == token
			}
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// allowedOrigin accepts requests without an Origin header and browser
// requests from a loopback page served on the same port.
func allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "http" {
		return false
	}
	switch u.Hostname() {
	case "127.0.0.1", "localhost":
	default:
		return false
	}
	_, port, err := net.SplitHostPort(r.Host)
	if err != nil {
		return false
	}
	return u.Port() == port
}

// handleRecord handles POST /api/record, toggling recording
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.ctrl.Record(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.ctrl.State())
}

// handlePlay handles POST /api/play
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Playback outlives the request.
	if err := s.ctrl.Play(context.WithoutCancel(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.ctrl.State())
}

// handleStop handles POST /api/stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.ctrl.Stop(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.ctrl.State())
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.ctrl.State())
}

// handleImport handles POST /api/import?path=<file>
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.handleFile(w, r, s.ctrl.Import)
}

// handleExport handles POST /api/export?path=<file>
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.handleFile(w, r, s.ctrl.Export)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request, op func(context.Context, string) <-chan error) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "Missing path parameter", http.StatusBadRequest)
		return
	}

	select {
	case err := <-op(r.Context(), path):
		if err != nil {
			writeError(w, err)
			return
		}
	case <-r.Context().Done():
		return
	}

	writeJSON(w, s.ctrl.State())
}

// handleSettings handles GET (read) and POST (update) of the settings.
// POST bodies are merged over the current settings, so partial updates work.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		writeJSON(w, s.configMgr.Get())

	case "POST":
		cfg := s.configMgr.Get()
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "Invalid settings data", http.StatusBadRequest)
			return
		}

		adjusted := cfg.Validate()
		log.Printf("API: Receiving settings update from %s (adjusted: %v)", r.RemoteAddr, adjusted)

		s.configMgr.Set(cfg)
		if err := s.configMgr.Save(); err != nil {
			log.Printf("API: Failed to save settings: %v", err)
			http.Error(w, "Failed to save settings", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]interface{}{
			"status":   "ok",
			"adjusted": adjusted,
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError maps application errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrStateConflict), errors.Is(err, app.ErrNothingToExport):
		status = http.StatusConflict
	case errors.Is(err, os.ErrNotExist):
		status = http.StatusNotFound
	case errors.As(err, new(*protocol.DecodeError)), errors.Is(err, protocol.ErrFormat):
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
