package heartbeat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/me/ytdl-agent/internal/clock"
	"github.com/me/ytdl-agent/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeChannel struct {
	name       string
	sent       []Message
	sendErr    error
	closed     bool
	disconnect func(error)
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(_ context.Context, msg Message) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

type fakeDialer struct {
	mu       sync.Mutex
	failNext int
	channels []*fakeChannel
	// dropOnOpen reports a disconnect from another goroutine as soon as
	// Open returns, racing the controller's bookkeeping.
	dropOnOpen bool
}

func (d *fakeDialer) Open(_ context.Context, name string, onDisconnect func(error)) (Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failNext > 0 {
		d.failNext--
		return nil, errors.New("connection refused")
	}
	ch := &fakeChannel{name: name, disconnect: onDisconnect}
	d.channels = append(d.channels, ch)
	if d.dropOnOpen {
		go onDisconnect(nil)
	}
	return ch, nil
}

func (d *fakeDialer) opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.channels)
}

func (d *fakeDialer) last() *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channels[len(d.channels)-1]
}

func newTestController(t *testing.T) (*Controller, *clock.Fake, *fakeDialer) {
	t.Helper()
	clk := clock.NewFake(epoch)
	dialer := &fakeDialer{}
	return New(DefaultConfig(), clk, dialer, logging.Discard()), clk, dialer
}

func TestArm_Idempotent(t *testing.T) {
	c, clk, _ := newTestController(t)

	assert.True(t, c.Arm())
	assert.False(t, c.Arm())
	assert.False(t, c.Arm())
	assert.True(t, c.Armed())
	assert.Equal(t, 1, clk.Pending(), "only one timer may exist")

	s := c.State()
	assert.Equal(t, DefaultConfig().StartupInterval, s.Interval)
	assert.Equal(t, epoch, s.FirstTick)
	assert.Zero(t, s.Ticks)
}

func TestDormantController_DoesNothing(t *testing.T) {
	c, clk, dialer := newTestController(t)
	clk.Advance(time.Hour)
	assert.False(t, c.Armed())
	assert.Zero(t, dialer.opened())
	assert.Zero(t, c.State().Ticks)
}

func TestStartupThenSteadyCadence(t *testing.T) {
	c, clk, dialer := newTestController(t)
	cfg := DefaultConfig()
	require.Less(t, cfg.StartupInterval, cfg.SteadyInterval)
	c.Arm()

	clk.Advance(cfg.StartupInterval)
	s := c.State()
	assert.Equal(t, 1, s.Ticks)
	assert.Equal(t, 1, dialer.opened())
	assert.Equal(t, []Message{Ping}, dialer.last().sent)
	assert.Zero(t, s.Transitions, "transition waits for its own delay")

	clk.Advance(cfg.TransitionDelay)
	s = c.State()
	assert.Equal(t, 1, s.Transitions)
	assert.Equal(t, cfg.SteadyInterval, s.Interval)
	assert.Equal(t, 1, s.Ticks, "startup timer was cancelled before its second round")
	assert.Equal(t, 1, clk.Pending())

	clk.Advance(cfg.SteadyInterval)
	assert.Equal(t, 2, c.State().Ticks)

	clk.Advance(4 * cfg.SteadyInterval)
	s = c.State()
	assert.Equal(t, 6, s.Ticks)
	assert.Equal(t, 1, s.Transitions, "exactly one transition per arm cycle")
	assert.Equal(t, 1, s.ChannelOpens, "open channel is reused")
	assert.Len(t, dialer.last().sent, 6)
	assert.Equal(t, 1, clk.Pending())
}

func TestTickRecordsAge(t *testing.T) {
	c, clk, _ := newTestController(t)
	cfg := DefaultConfig()
	c.Arm()
	clk.Advance(cfg.StartupInterval + cfg.TransitionDelay + cfg.SteadyInterval)

	s := c.State()
	assert.Equal(t, epoch.Add(cfg.StartupInterval+cfg.TransitionDelay+cfg.SteadyInterval), s.LastTick)
	assert.Equal(t, s.LastTick.Sub(epoch), s.Age)
}

func TestDisconnect_ReopensOnNextTick(t *testing.T) {
	c, clk, dialer := newTestController(t)
	cfg := DefaultConfig()
	c.Arm()
	clk.Advance(cfg.StartupInterval + cfg.TransitionDelay)
	require.True(t, c.State().ChannelOpen)

	first := dialer.last()
	first.disconnect(nil)
	s := c.State()
	assert.False(t, s.ChannelOpen)
	assert.Equal(t, 1, s.Disconnects)

	clk.Advance(cfg.SteadyInterval)
	s = c.State()
	assert.True(t, s.ChannelOpen)
	assert.Equal(t, 2, dialer.opened())
	assert.Equal(t, 2, s.ChannelOpens)
	assert.Len(t, dialer.last().sent, 1)
}

func TestDisconnectWithError_IsNotEscalated(t *testing.T) {
	c, clk, dialer := newTestController(t)
	c.Arm()
	clk.Advance(DefaultConfig().StartupInterval)

	dialer.last().disconnect(errors.New("unexpected EOF"))
	assert.True(t, c.Armed())
	assert.False(t, c.State().ChannelOpen)
}

func TestStaleDisconnect_KeepsNewerChannel(t *testing.T) {
	c, clk, dialer := newTestController(t)
	cfg := DefaultConfig()
	c.Arm()
	clk.Advance(cfg.StartupInterval + cfg.TransitionDelay)
	first := dialer.last()
	first.disconnect(nil)
	clk.Advance(cfg.SteadyInterval)
	require.Equal(t, 2, dialer.opened())

	// A late second notification for the old channel must not drop the new one.
	first.disconnect(nil)
	assert.True(t, c.State().ChannelOpen)
	assert.Equal(t, 1, c.State().Disconnects)
}

func TestOpenFailure_RetriedNextTick(t *testing.T) {
	c, clk, dialer := newTestController(t)
	cfg := DefaultConfig()
	dialer.failNext = 1
	c.Arm()

	clk.Advance(cfg.StartupInterval)
	s := c.State()
	assert.Equal(t, 1, s.OpenFailures)
	assert.False(t, s.ChannelOpen)
	assert.True(t, s.Armed)

	clk.Advance(cfg.TransitionDelay + cfg.SteadyInterval)
	s = c.State()
	assert.True(t, s.ChannelOpen)
	assert.Equal(t, 1, dialer.opened())
}

func TestSendFailure_DropsChannel(t *testing.T) {
	c, clk, dialer := newTestController(t)
	cfg := DefaultConfig()
	c.Arm()
	clk.Advance(cfg.StartupInterval)
	first := dialer.last()
	first.sendErr = errors.New("broken pipe")

	clk.Advance(cfg.TransitionDelay + cfg.SteadyInterval)
	s := c.State()
	assert.Equal(t, 1, s.SendFailures)
	assert.False(t, s.ChannelOpen)
	assert.True(t, first.closed)

	clk.Advance(cfg.SteadyInterval)
	s = c.State()
	assert.True(t, s.ChannelOpen)
	assert.Equal(t, 2, dialer.opened())
	assert.Len(t, dialer.last().sent, 1)
}

func TestDisconnectDuringOpen_IsApplied(t *testing.T) {
	c, clk, dialer := newTestController(t)
	cfg := DefaultConfig()
	dialer.dropOnOpen = true
	c.Arm()

	clk.Advance(cfg.StartupInterval)
	require.Eventually(t, func() bool {
		s := c.State()
		return !s.ChannelOpen && s.Disconnects == 1
	}, time.Second, 5*time.Millisecond)

	clk.Advance(cfg.TransitionDelay + cfg.SteadyInterval)
	assert.Equal(t, 2, dialer.opened())
}

func TestTeardown_StopsAndAllowsNewCycle(t *testing.T) {
	c, clk, dialer := newTestController(t)
	cfg := DefaultConfig()
	c.Arm()
	clk.Advance(cfg.StartupInterval + cfg.TransitionDelay)

	c.Teardown()
	assert.False(t, c.Armed())
	assert.True(t, dialer.last().closed)
	assert.False(t, c.State().ChannelOpen)
	assert.Zero(t, clk.Pending())

	clk.Advance(time.Hour)
	assert.Equal(t, 1, c.State().Ticks)

	require.True(t, c.Arm())
	assert.Equal(t, cfg.StartupInterval, c.State().Interval)
	clk.Advance(cfg.StartupInterval + cfg.TransitionDelay)
	s := c.State()
	assert.Equal(t, 2, s.Ticks)
	assert.Equal(t, 2, s.Transitions)
	assert.Equal(t, cfg.SteadyInterval, s.Interval)
	assert.Equal(t, 2, dialer.opened())
}

func TestTeardownBeforeTransition_CancelsIt(t *testing.T) {
	c, clk, _ := newTestController(t)
	cfg := DefaultConfig()
	c.Arm()
	clk.Advance(cfg.StartupInterval)
	c.Teardown()

	clk.Advance(cfg.TransitionDelay)
	assert.Zero(t, c.State().Transitions)
	assert.Zero(t, clk.Pending())
}

func TestTeardown_Dormant(t *testing.T) {
	c, _, _ := newTestController(t)
	c.Teardown()
	assert.False(t, c.Armed())
}
