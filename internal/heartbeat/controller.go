// Package heartbeat keeps the agent observably active with a single
// self-rescheduling timer that pings a liveness channel.
//
// At most one timer and one channel exist per Controller at any time. A
// Controller starts with a short startup interval and, shortly after its
// first round, switches once to a long steady interval.
package heartbeat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/me/ytdl-agent/internal/clock"
)

// Config holds heartbeat timing.
type Config struct {
	StartupInterval time.Duration
	SteadyInterval  time.Duration
	TransitionDelay time.Duration
	ChannelName     string
	// IOTimeout bounds each channel open and send.
	IOTimeout time.Duration
}

// DefaultConfig returns the keep-alive cadence used by the agent.
func DefaultConfig() Config {
	return Config{
		StartupInterval: 300 * time.Millisecond,
		SteadyInterval:  25 * time.Second,
		TransitionDelay: 100 * time.Millisecond,
		ChannelName:     "ytdl_internal_alive",
		IOTimeout:       5 * time.Second,
	}
}

// Snapshot is a point-in-time view of the controller state.
type Snapshot struct {
	Armed        bool          `json:"armed"`
	Interval     time.Duration `json:"interval"`
	FirstTick    time.Time     `json:"first_tick"`
	LastTick     time.Time     `json:"last_tick"`
	Age          time.Duration `json:"age"`
	ChannelOpen  bool          `json:"channel_open"`
	Ticks        int           `json:"ticks"`
	ChannelOpens int           `json:"channel_opens"`
	Transitions  int           `json:"transitions"`
	Disconnects  int           `json:"disconnects"`
	SendFailures int           `json:"send_failures"`
	OpenFailures int           `json:"open_failures"`
}

// Controller owns the heartbeat timer and the liveness channel.
type Controller struct {
	cfg    Config
	clock  clock.Clock
	dialer Dialer
	logger *slog.Logger

	mu               sync.Mutex
	armed            bool
	gen              uint64 // bumped whenever the timer is replaced; stale callbacks compare against it
	timer            clock.Timer
	interval         time.Duration
	firstTick        time.Time
	lastTick         time.Time
	firstTickPending bool
	channel          Channel
	openSeq          uint64 // identifies the open that produced channel
	stats            Snapshot
}

// New creates a dormant Controller.
func New(cfg Config, clk clock.Clock, dialer Dialer, logger *slog.Logger) *Controller {
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = DefaultConfig().IOTimeout
	}
	return &Controller{
		cfg:    cfg,
		clock:  clk,
		dialer: dialer,
		logger: logger.With("component", "heartbeat"),
	}
}

// Arm starts the heartbeat if it is dormant and reports whether it did.
// Calling Arm on an armed controller is a no-op.
func (c *Controller) Arm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.armed {
		return false
	}

	now := c.clock.Now()
	c.armed = true
	c.firstTick = now
	c.lastTick = now
	c.interval = c.cfg.StartupInterval
	c.firstTickPending = true
	c.schedule()

	c.logger.Info("heartbeat started", "at", now.UTC().Format(time.TimeOnly), "interval", c.interval)
	return true
}

// Armed reports whether the heartbeat timer is running.
func (c *Controller) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Teardown stops the timer and closes the liveness channel. A later Arm
// starts a fresh cycle with the startup interval.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	wasArmed := c.armed
	c.armed = false
	c.firstTickPending = false

	c.dropChannel()
	if wasArmed {
		c.logger.Info("heartbeat stopped", "ticks", c.stats.Ticks)
	}
}

// State returns a snapshot of the controller.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Armed = c.armed
	s.Interval = c.interval
	s.FirstTick = c.firstTick
	s.LastTick = c.lastTick
	if !c.firstTick.IsZero() {
		s.Age = c.lastTick.Sub(c.firstTick)
	}
	s.ChannelOpen = c.channel != nil
	return s
}

// schedule installs a new timer at the current interval. Callers must hold c.mu.
func (c *Controller) schedule() {
	c.gen++
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.interval, func() { c.fire(gen) })
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.armed || gen != c.gen {
		return
	}

	c.tick(gen)

	// Re-arm for the next round unless the round replaced the timer.
	if c.armed && gen == c.gen {
		c.timer = c.clock.AfterFunc(c.interval, func() { c.fire(gen) })
	}
}

// tick runs one heartbeat round. Callers must hold c.mu.
func (c *Controller) tick(gen uint64) {
	now := c.clock.Now()
	age := now.Sub(c.firstTick)
	c.lastTick = now
	c.stats.Ticks++
	c.logger.Debug("heartbeat round", "age", age.Round(time.Millisecond).String(), "interval", c.interval)

	if c.channel == nil {
		c.openChannel()
	}

	if c.channel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.IOTimeout)
		err := c.channel.Send(ctx, Ping)
		cancel()
		if err != nil {
			c.stats.SendFailures++
			c.logger.Warn("ping failed, dropping channel", "channel", c.channel.Name(), "error", err)
			c.dropChannel()
		}
	}

	if c.firstTickPending {
		c.firstTickPending = false
		c.clock.AfterFunc(c.cfg.TransitionDelay, func() { c.nextRound(gen) })
	}
}

// openChannel opens the liveness channel. Callers must hold c.mu.
func (c *Controller) openChannel() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.IOTimeout)
	defer cancel()

	c.openSeq++
	seq := c.openSeq
	ch, err := c.dialer.Open(ctx, c.cfg.ChannelName, func(err error) {
		c.onDisconnect(seq, err)
	})
	if err != nil {
		c.stats.OpenFailures++
		c.logger.Warn("open liveness channel", "channel", c.cfg.ChannelName, "error", err)
		return
	}
	c.channel = ch
	c.stats.ChannelOpens++
	c.logger.Debug("liveness channel open", "channel", ch.Name())
}

// onDisconnect drops the channel reference. The host reaps idle channels
// routinely, so a disconnect is never an error for the controller; the next
// round reopens.
//
// seq names the open the report belongs to. A report that arrives while
// that open is still in progress waits on c.mu and then applies.
func (c *Controller) onDisconnect(seq uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil || c.openSeq != seq {
		return
	}
	ch := c.channel
	c.channel = nil
	c.stats.Disconnects++
	if err != nil {
		c.logger.Warn("liveness channel dropped", "channel", ch.Name(), "error", err)
		return
	}
	c.logger.Debug("liveness channel disconnected", "channel", ch.Name())
}

// dropChannel closes and forgets the current channel. Callers must hold c.mu.
func (c *Controller) dropChannel() {
	if c.channel == nil {
		return
	}
	ch := c.channel
	c.channel = nil
	if err := ch.Close(); err != nil {
		c.logger.Debug("close liveness channel", "error", err)
	}
}

// nextRound swaps the startup timer for the steady one.
func (c *Controller) nextRound(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.armed || gen != c.gen {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.interval = c.cfg.SteadyInterval
	c.stats.Transitions++
	c.schedule()
	c.logger.Debug("heartbeat interval changed", "interval", c.interval)
}
