package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "ytdl-agent",
		Version:     "v1",
		Description: "Local download agent: submits links to the download service and reports the outcome",
		Endpoints: []endpointInfo{
			{"/api/v1/jobs", []string{"GET", "POST"}, "List recorded jobs or submit a link"},
			{"/api/v1/jobs/{key}/status", []string{"GET"}, "Current status from the download service"},
			{"/api/v1/events", []string{"GET"}, "Open a window: SSE stream of job notifications"},
			{"/api/v1/windows/{id}/focus", []string{"POST"}, "Make a window the notification target"},
			{"/api/v1/alive", []string{"GET"}, "Websocket liveness channel used by the heartbeat"},
			{"/api/v1/health", []string{"GET"}, "Agent health, heartbeat and window state"},
		},
	})
}
