package server

import (
	"net/http"
	"runtime"
	"time"
)

type heartbeatHealth struct {
	Armed       bool   `json:"armed"`
	Interval    string `json:"interval"`
	Age         string `json:"age"`
	LastTick    string `json:"last_tick,omitempty"`
	ChannelOpen bool   `json:"channel_open"`
	Ticks       int    `json:"ticks"`
	Transitions int    `json:"transitions"`
}

type healthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	GoVersion string          `json:"go_version"`
	Uptime    string          `json:"uptime"`
	Heartbeat heartbeatHealth `json:"heartbeat"`
	Windows   int             `json:"windows"`
	Idle      bool            `json:"idle"`
	InFlight  int             `json:"in_flight"`
	RemoteURL string          `json:"remote_url"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	hb := s.heartbeat.State()

	var lastTick string
	if !hb.LastTick.IsZero() {
		lastTick = hb.LastTick.UTC().Format(time.RFC3339)
	}
	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Heartbeat: heartbeatHealth{
			Armed:       hb.Armed,
			Interval:    hb.Interval.String(),
			Age:         hb.Age.Round(time.Second).String(),
			LastTick:    lastTick,
			ChannelOpen: hb.ChannelOpen,
			Ticks:       hb.Ticks,
			Transitions: hb.Transitions,
		},
		Windows:   s.hub.Count(),
		Idle:      s.gate.Idle(),
		InFlight:  s.jobs.InFlight(),
		RemoteURL: s.config.RemoteURL,
	})
}
