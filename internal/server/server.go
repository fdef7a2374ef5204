// Package server provides an HTTP preview of a running stabilization: an
// MJPEG stream of the rendered output and a WebSocket progress feed. It
// plugs into the pipeline through its preview hook; the pipeline itself
// never depends on this package.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Server caches the most recently rendered frame and serves it to HTTP
// and WebSocket clients.
type Server struct {
	mux   *http.ServeMux
	start time.Time

	mu     sync.RWMutex
	latest []byte
	index  int

	clientMu sync.RWMutex
	clients  map[clientConn]bool
}

// New creates a preview server with its routes configured.
func New() *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		start:   time.Now(),
		index:   -1,
		clients: make(map[clientConn]bool),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/stream", s.handleStream)
	s.mux.HandleFunc("/api/progress", s.handleProgress)
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts serving on the given address and blocks.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Show implements the pipeline's preview hook: it caches the frame as JPEG
// for the MJPEG stream and pushes a progress event to WebSocket clients.
// It never requests the pipeline to stop.
func (s *Server) Show(frame gocv.Mat, index int) bool {
	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return false
	}
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	buf.Close()

	s.mu.Lock()
	s.latest = data
	s.index = index
	s.mu.Unlock()

	s.broadcast(index)
	return false
}

// Close disconnects all WebSocket clients.
func (s *Server) Close() error {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	for c := range s.clients {
		c.Close()
	}
	s.clients = make(map[clientConn]bool)
	return nil
}

// frame returns the latest cached JPEG and its index.
func (s *Server) frame() ([]byte, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.index
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, index := s.frame()
	resp := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).Seconds(),
		"frame":  index,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
