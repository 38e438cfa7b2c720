package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for simplicity
	},
}

// handleWebSocket streams job snapshots to a client as an alternative to
// polling. The same {status, message, progress} contract applies.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		s.logger.Errorf("WebSocket connection missing job_id")
		return
	}

	updates := s.tracker.Subscribe(jobID)
	defer s.tracker.Unsubscribe(jobID, updates)

	// Send the current state first so the client never starts blind.
	if j, err := s.tracker.Get(jobID); err == nil {
		data, _ := json.Marshal(j)
		conn.WriteMessage(websocket.TextMessage, data)
		if j.Status.Terminal() {
			return
		}
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case j, ok := <-updates:
			if !ok {
				return
			}

			data, err := json.Marshal(j)
			if err != nil {
				s.logger.Errorf("Failed to marshal job: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Errorf("Failed to write WebSocket message: %v", err)
				return
			}

			if j.Status.Terminal() {
				return
			}

		case <-ticker.C:
			// Keepalive ping
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
