// Package gate decides when the heartbeat runs based on how many windows
// are open.
package gate

import (
	"context"
	"log/slog"
	"sync"
)

// Enumerator reports the authoritative number of open windows.
type Enumerator interface {
	CountWindows(ctx context.Context) (int, error)
}

// Heartbeat is the part of the heartbeat controller the gate drives.
type Heartbeat interface {
	Arm() bool
	Armed() bool
	Teardown()
}

// Options configure a Gate.
type Options struct {
	// TeardownOnIdle stops the heartbeat once the last window closes.
	// When false the gate only records that the heartbeat could be stopped.
	TeardownOnIdle bool
}

// Gate tracks window lifecycle and arms the heartbeat when the first
// window appears.
type Gate struct {
	windows   Enumerator
	heartbeat Heartbeat
	opts      Options
	logger    *slog.Logger

	mu    sync.Mutex
	count int
	idle  bool
}

// New creates a Gate.
func New(windows Enumerator, hb Heartbeat, opts Options, logger *slog.Logger) *Gate {
	return &Gate{
		windows:   windows,
		heartbeat: hb,
		opts:      opts,
		logger:    logger.With("component", "gate"),
	}
}

// WindowCreated recounts the open windows and arms the heartbeat when
// exactly one is open. Enumeration failures are logged and otherwise ignored.
func (g *Gate) WindowCreated(ctx context.Context) {
	n, err := g.windows.CountWindows(ctx)
	if err != nil {
		g.logger.Warn("count windows", "error", err)
		return
	}

	g.mu.Lock()
	g.count = n
	if n > 0 {
		g.idle = false
	}
	g.mu.Unlock()

	g.logger.Debug("window created", "count", n)
	if n == 1 && !g.heartbeat.Armed() {
		if g.heartbeat.Arm() {
			g.logger.Info("heartbeat armed by first window")
		}
	}
}

// WindowRemoved decrements the tracked count.
func (g *Gate) WindowRemoved() {
	g.mu.Lock()
	if g.count > 0 {
		g.count--
	}
	n := g.count
	becameIdle := n == 0 && !g.idle
	if n == 0 {
		g.idle = true
	}
	g.mu.Unlock()

	g.logger.Debug("window removed", "count", n)
	if !becameIdle {
		return
	}
	if g.opts.TeardownOnIdle {
		g.heartbeat.Teardown()
		g.logger.Info("heartbeat stopped, no windows open")
		return
	}
	g.logger.Debug("no windows open, heartbeat left running")
}

// Count returns the tracked window count.
func (g *Gate) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Idle reports whether the last window has closed since the count was
// last positive.
func (g *Gate) Idle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.idle
}
