package idle

import (
	"context"
	"testing"
	"time"

	"github.com/me/ytdl-agent/internal/clock"
	"github.com/me/ytdl-agent/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runAsync(w *Watchdog, ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return done
}

// waitArmed waits for Run to install its timer.
func waitArmed(t *testing.T, clk *clock.Fake) {
	t.Helper()
	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
}

func TestWatchdog_FiresAfterInactivity(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	w := New(30*time.Second, clk, logging.Discard())
	done := runAsync(w, context.Background())
	waitArmed(t, clk)

	clk.Advance(29 * time.Second)
	select {
	case <-w.Fired():
		t.Fatal("fired early")
	default:
	}

	clk.Advance(time.Second)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrIdle)
	case <-time.After(time.Second):
		t.Fatal("watchdog did not fire")
	}
}

func TestWatchdog_TouchPostpones(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	w := New(30*time.Second, clk, logging.Discard())
	done := runAsync(w, context.Background())
	waitArmed(t, clk)

	clk.Advance(20 * time.Second)
	w.Touch()
	clk.Advance(20 * time.Second)
	select {
	case <-w.Fired():
		t.Fatal("fired despite activity")
	default:
	}
	assert.Equal(t, time.Unix(20, 0), w.LastActivity())

	clk.Advance(10 * time.Second)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrIdle)
	case <-time.After(time.Second):
		t.Fatal("watchdog did not fire")
	}
}

func TestWatchdog_ContextCancel(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	w := New(30*time.Second, clk, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(w, ctx)
	waitArmed(t, clk)

	cancel()
	assert.NoError(t, <-done)
	assert.Zero(t, clk.Pending())
}

func TestWatchdog_Disabled(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	w := New(0, clk, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(w, ctx)

	clk.Advance(time.Hour)
	cancel()
	assert.NoError(t, <-done)
}
