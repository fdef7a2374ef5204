package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// clientConn is the subset of the WebSocket connection the server uses;
// tests substitute their own implementation.
type clientConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// progressEvent is pushed to WebSocket clients once per rendered frame.
type progressEvent struct {
	Frame     int   `json:"frame"`
	Timestamp int64 `json:"timestamp"`
}

// handleProgress upgrades to a WebSocket and keeps the client subscribed
// to progress events until it disconnects.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	s.clientMu.Lock()
	s.clients[conn] = true
	s.clientMu.Unlock()

	defer func() {
		s.clientMu.Lock()
		delete(s.clients, conn)
		s.clientMu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast pushes a progress event to every connected client, dropping
// clients whose writes fail.
func (s *Server) broadcast(index int) {
	event := progressEvent{Frame: index, Timestamp: time.Now().UnixMilli()}

	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	for c := range s.clients {
		if err := c.WriteJSON(event); err != nil {
			c.Close()
			delete(s.clients, c)
		}
	}
}
