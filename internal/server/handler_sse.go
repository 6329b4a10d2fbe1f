package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type windowEvent struct {
	ID string `json:"id"`
}

// handleEvents opens a window for the lifetime of the request and streams
// job notifications addressed to it via Server-Sent Events.
// GET /api/v1/events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// Set headers for SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	win := s.hub.Open()
	defer func() {
		s.hub.Close(win.ID)
		s.gate.WindowRemoved()
	}()
	s.gate.WindowCreated(r.Context())

	if err := sendSSEEvent(w, flusher, "window", windowEvent{ID: win.ID}); err != nil {
		s.logger.Debug("sse client disconnected", "window", win.ID, "error", err)
		return
	}

	ticker := time.NewTicker(s.sseKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-win.Events():
			if !ok {
				return
			}
			if err := sendSSEEvent(w, flusher, n.Event(), n); err != nil {
				s.logger.Debug("sse client disconnected", "window", win.ID, "error", err)
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
	if err != nil {
		return err
	}

	flusher.Flush()
	return nil
}
