// Package notify tracks open windows and delivers job outcomes to the
// active one.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/me/ytdl-agent/pkg/model"
)

// windowBuffer is how many undelivered notifications a window holds before
// new ones are dropped.
const windowBuffer = 16

// Window is one open observation context.
type Window struct {
	ID       string
	OpenedAt time.Time
	events   chan model.Notification
}

// Events returns the window's notification stream. It is closed when the
// window is closed.
func (w *Window) Events() <-chan model.Notification {
	return w.events
}

// Hub is the registry of open windows. The most recently opened or focused
// window is the active one.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	windows map[string]*Window
	order   []string // activation order, last is active
	sent    int
	dropped int
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "notify"),
		windows: make(map[string]*Window),
	}
}

// Open registers a new window and makes it active.
func (h *Hub) Open() *Window {
	w := &Window{
		ID:       "win_" + uuid.New().String(),
		OpenedAt: time.Now().UTC(),
		events:   make(chan model.Notification, windowBuffer),
	}
	h.mu.Lock()
	h.windows[w.ID] = w
	h.order = append(h.order, w.ID)
	h.mu.Unlock()
	h.logger.Debug("window opened", "window", w.ID)
	return w
}

// Close unregisters a window. Closing an unknown window is a no-op.
func (h *Hub) Close(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return
	}
	delete(h.windows, id)
	h.removeFromOrder(id)
	close(w.events)
	h.logger.Debug("window closed", "window", id)
}

// Focus makes the window active and reports whether it exists.
func (h *Hub) Focus(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.windows[id]; !ok {
		return false
	}
	h.removeFromOrder(id)
	h.order = append(h.order, id)
	return true
}

// Active returns the active window ID, or "" when no window is open.
func (h *Hub) Active() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.order) == 0 {
		return ""
	}
	return h.order[len(h.order)-1]
}

// Count returns the number of open windows.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.windows)
}

// CountWindows implements gate.Enumerator.
func (h *Hub) CountWindows(context.Context) (int, error) {
	return h.Count(), nil
}

// NotifySuccess tells the active window that key finished.
func (h *Hub) NotifySuccess(key string) {
	h.deliver(model.Notification{ID: key, Complete: true})
}

// NotifyFailure tells the active window that key did not finish.
func (h *Hub) NotifyFailure(key string) {
	h.deliver(model.Notification{ID: key, Error: true})
}

// Stats returns the number of delivered and dropped notifications.
func (h *Hub) Stats() (sent, dropped int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sent, h.dropped
}

// deliver is best effort: with no window open, or a window that is not
// draining its stream, the notification is dropped.
func (h *Hub) deliver(n model.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.order) == 0 {
		h.dropped++
		h.logger.Info("no window to notify", "key", n.ID, "event", n.Event())
		return
	}
	w := h.windows[h.order[len(h.order)-1]]
	select {
	case w.events <- n:
		h.sent++
		h.logger.Debug("notification sent", "window", w.ID, "key", n.ID, "event", n.Event())
	default:
		h.dropped++
		h.logger.Warn("window not reading, notification dropped", "window", w.ID, "key", n.ID)
	}
}

func (h *Hub) removeFromOrder(id string) {
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			return
		}
	}
}
