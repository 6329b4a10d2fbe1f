// Package poller drives a submitted job to a terminal outcome by checking
// its status on a fixed cadence until it completes, fails, or times out.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/ytdl-agent/internal/clock"
	"github.com/me/ytdl-agent/pkg/model"
)

var (
	// ErrTimeout is returned when a job is still running after the poll timeout.
	ErrTimeout = errors.New("poll timed out")
	// ErrJobFailed is returned when the remote service reports the job failed.
	ErrJobFailed = errors.New("job failed")
)

// StatusFetcher looks up the current status record for a job.
type StatusFetcher interface {
	Status(ctx context.Context, key string) (model.StatusRecord, error)
}

// Config holds poll timing.
type Config struct {
	InitialDelay time.Duration
	StepDelay    time.Duration
	Timeout      time.Duration
}

// DefaultConfig returns the cadence used against the download service.
func DefaultConfig() Config {
	return Config{
		InitialDelay: 7500 * time.Millisecond,
		StepDelay:    5 * time.Second,
		Timeout:      120 * time.Second,
	}
}

// Result describes how a poll loop ended.
type Result struct {
	Key     string
	Steps   int
	Elapsed time.Duration
	Err     error
}

// Poller schedules status checks. A Poller has no per-job state and can
// run any number of loops concurrently.
type Poller struct {
	cfg     Config
	clock   clock.Clock
	fetcher StatusFetcher
	logger  *slog.Logger
}

// New creates a Poller.
func New(cfg Config, clk clock.Clock, fetcher StatusFetcher, logger *slog.Logger) *Poller {
	return &Poller{
		cfg:     cfg,
		clock:   clk,
		fetcher: fetcher,
		logger:  logger.With("component", "poller"),
	}
}

// Start begins polling key and returns immediately. done is called exactly
// once with the outcome: nil on completion, ErrJobFailed, ErrTimeout, or
// the context error if ctx is cancelled first.
func (p *Poller) Start(ctx context.Context, key string, done func(Result)) {
	l := &loop{
		p:     p,
		ctx:   ctx,
		key:   key,
		start: p.clock.Now(),
		done:  done,
	}
	p.logger.Debug("polling started", "key", key, "first_check_in", p.cfg.InitialDelay)
	l.schedule(p.cfg.InitialDelay)
}

// Poll runs a loop for key and blocks until it ends.
func (p *Poller) Poll(ctx context.Context, key string) Result {
	ch := make(chan Result, 1)
	p.Start(ctx, key, func(r Result) { ch <- r })
	return <-ch
}

type loop struct {
	p     *Poller
	ctx   context.Context
	key   string
	start time.Time
	steps int
	done  func(Result)
}

func (l *loop) schedule(d time.Duration) {
	l.p.clock.AfterFunc(d, l.step)
}

func (l *loop) step() {
	l.steps++
	elapsed := l.p.clock.Now().Sub(l.start)

	if err := l.ctx.Err(); err != nil {
		l.finish(elapsed, err)
		return
	}
	if elapsed > l.p.cfg.Timeout {
		l.finish(elapsed, fmt.Errorf("%w after %s", ErrTimeout, elapsed.Round(time.Millisecond)))
		return
	}

	rec, err := l.p.fetcher.Status(l.ctx, l.key)
	if err != nil {
		if ctxErr := l.ctx.Err(); ctxErr != nil {
			l.finish(elapsed, ctxErr)
			return
		}
		l.p.logger.Warn("status check failed", "key", l.key, "step", l.steps, "error", err)
		l.schedule(l.p.cfg.StepDelay)
		return
	}

	switch rec.Status {
	case model.JobStatusComplete:
		l.finish(elapsed, nil)
	case model.JobStatusFailed:
		l.finish(elapsed, ErrJobFailed)
	default:
		l.p.logger.Debug("job not finished", "key", l.key, "step", l.steps, "status", rec.Status,
			"tracks_done", rec.PlaylistTrackDone, "tracks", rec.PlaylistTrackCount)
		l.schedule(l.p.cfg.StepDelay)
	}
}

func (l *loop) finish(elapsed time.Duration, err error) {
	r := Result{Key: l.key, Steps: l.steps, Elapsed: elapsed, Err: err}
	if err != nil {
		l.p.logger.Info("polling ended", "key", l.key, "steps", l.steps, "error", err)
	} else {
		l.p.logger.Info("job complete", "key", l.key, "steps", l.steps, "elapsed", elapsed)
	}
	l.done(r)
}
