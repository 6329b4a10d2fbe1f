// Package idle suspends the agent after a period without activity.
package idle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/me/ytdl-agent/internal/clock"
)

// ErrIdle is returned by Run when the idle timeout elapses.
var ErrIdle = errors.New("idle timeout reached")

// Watchdog fires once no activity has been recorded for the timeout.
// A zero timeout disables it.
type Watchdog struct {
	timeout time.Duration
	clock   clock.Clock
	logger  *slog.Logger

	mu    sync.Mutex
	last  time.Time
	timer clock.Timer
	fired chan struct{}
	once  sync.Once
}

// New creates a Watchdog. Activity is counted from creation.
func New(timeout time.Duration, clk clock.Clock, logger *slog.Logger) *Watchdog {
	return &Watchdog{
		timeout: timeout,
		clock:   clk,
		logger:  logger.With("component", "idle"),
		last:    clk.Now(),
		fired:   make(chan struct{}),
	}
}

// Touch records activity.
func (w *Watchdog) Touch() {
	w.mu.Lock()
	w.last = w.clock.Now()
	w.mu.Unlock()
}

// LastActivity returns when Touch was last called.
func (w *Watchdog) LastActivity() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Run blocks until ctx is done or the agent has been idle for the timeout,
// in which case it returns ErrIdle.
func (w *Watchdog) Run(ctx context.Context) error {
	if w.timeout <= 0 {
		<-ctx.Done()
		return nil
	}

	w.mu.Lock()
	w.timer = w.clock.AfterFunc(w.timeout, w.check)
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return nil
	case <-w.fired:
		return ErrIdle
	}
}

// Fired is closed once the watchdog has fired.
func (w *Watchdog) Fired() <-chan struct{} {
	return w.fired
}

func (w *Watchdog) check() {
	w.mu.Lock()
	defer w.mu.Unlock()
	quiet := w.clock.Now().Sub(w.last)
	if quiet < w.timeout {
		w.timer = w.clock.AfterFunc(w.timeout-quiet, w.check)
		return
	}
	w.timer = nil
	w.once.Do(func() {
		w.logger.Info("no activity, suspending", "idle_for", quiet.Round(time.Millisecond))
		close(w.fired)
	})
}
