package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// handleAlive accepts a liveness channel. Every inbound message counts as
// activity. Channels are closed normally once they reach the configured
// maximum age, and the heartbeat reopens on its next round.
// GET /api/v1/alive?name=<channel>
func (s *Server) handleAlive(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("alive upgrade failed", "channel", name, "error", err)
		return
	}
	defer conn.Close()
	s.logger.Debug("liveness channel accepted", "channel", name)

	if maxAge := s.config.Heartbeat.ChannelMaxAge; maxAge > 0 {
		reap := time.AfterFunc(maxAge, func() {
			s.logger.Debug("reaping liveness channel", "channel", name, "age", maxAge)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "channel expired"),
				time.Now().Add(time.Second))
		})
		defer reap.Stop()
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("liveness channel ended", "channel", name, "error", err)
			}
			return
		}
		s.activity.Touch()
	}
}
