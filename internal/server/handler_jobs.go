package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/me/ytdl-agent/internal/jobs"
	"github.com/me/ytdl-agent/pkg/model"
)

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req model.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid JSON: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.Link) == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("missing link", model.FieldError{Field: "link", Message: "required"}))
		return
	}

	key, err := s.jobs.Submit(r.Context(), req.Link, req.Name)
	if errors.Is(err, jobs.ErrInvalidLink) {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError(err.Error(), model.FieldError{Field: "link", Message: "no video or playlist id"}))
		return
	}
	if errors.Is(err, jobs.ErrShutdown) {
		respondError(w, reqID, http.StatusServiceUnavailable, model.NewShutdownError(err.Error()))
		return
	}
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	respondAccepted(w, reqID, model.SubmitResponse{Key: key})
}

// handleListJobs returns recorded jobs, newest first.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	records, err := s.jobs.Records(r.Context())
	if err != nil {
		s.logger.Error("list jobs", "error", err)
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	out := make([]model.Record, 0, len(records))
	for key, rec := range records {
		rec.ID = key
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	respondOK(w, reqID, out)
}

// handleJobStatus passes through the download service status record.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	key := jobs.Sanitize(chi.URLParam(r, "key"))
	if key == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("missing key"))
		return
	}

	rec, err := s.jobs.Status(r.Context(), key)
	if err != nil {
		respondError(w, reqID, http.StatusBadGateway, model.NewUpstreamError(err.Error()))
		return
	}
	respondOK(w, reqID, rec)
}
