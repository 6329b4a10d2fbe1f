package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/me/ytdl-agent/pkg/model"
)

// handleFocusWindow makes a window the notification target.
// POST /api/v1/windows/{id}/focus
func (s *Server) handleFocusWindow(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if !s.hub.Focus(id) {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("window", id))
		return
	}
	respondOK(w, reqID, windowEvent{ID: id})
}
