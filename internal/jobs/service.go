// Package jobs accepts download submissions and sees each one through to a
// single notification.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/me/ytdl-agent/internal/clock"
	"github.com/me/ytdl-agent/internal/poller"
	"github.com/me/ytdl-agent/internal/store"
	"github.com/me/ytdl-agent/pkg/model"
)

// ErrInvalidLink is returned when a link sanitizes to an empty key.
var ErrInvalidLink = errors.New("link does not contain a job key")

// ErrShutdown is returned by Submit once Shutdown has begun.
var ErrShutdown = errors.New("job service is shut down")

// Remote is the download service.
type Remote interface {
	Download(ctx context.Context, key string) (model.Ack, error)
	Status(ctx context.Context, key string) (model.StatusRecord, error)
}

// Notifier delivers job outcomes to the user.
type Notifier interface {
	NotifySuccess(key string)
	NotifyFailure(key string)
}

// Options tune submission behaviour.
type Options struct {
	// NotifySubmitFailure sends a failure notification when the download
	// service rejects a submission. By default rejections are only logged.
	NotifySubmitFailure bool
}

// Service runs submissions in the background. Background work is bound to
// the service lifetime, not to the caller's context.
type Service struct {
	remote   Remote
	store    store.Store
	poller   *poller.Poller
	notifier Notifier
	clock    clock.Clock
	opts     Options
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	recordsMu sync.Mutex // serializes read-modify-write of the record map

	mu     sync.Mutex // guards closed and wg.Add
	closed bool

	wg        sync.WaitGroup
	inFlight  atomic.Int64
}

// NewService creates a Service.
func NewService(remote Remote, st store.Store, p *poller.Poller, n Notifier, clk clock.Clock, opts Options, logger *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		remote:   remote,
		store:    st,
		poller:   p,
		notifier: n,
		clock:    clk,
		opts:     opts,
		logger:   logger.With("component", "jobs"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Submit records a pending job for raw and starts it in the background.
// It returns the job key without waiting for the download service.
func (s *Service) Submit(ctx context.Context, raw, name string) (string, error) {
	key := Sanitize(raw)
	if key == "" {
		return "", ErrInvalidLink
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrShutdown
	}
	s.wg.Add(1)
	s.inFlight.Add(1)
	s.mu.Unlock()

	if err := s.upsertPending(ctx, key, raw, name); err != nil {
		// The record only feeds the job list; the download still goes ahead.
		s.logger.Warn("record pending job", "key", key, "error", err)
	}
	go s.run(key)

	s.logger.Info("job submitted", "key", key, "name", name)
	return key, nil
}

// Wait blocks until every submitted job has resolved.
func (s *Service) Wait() {
	s.wg.Wait()
}

// InFlight returns the number of unresolved submissions.
func (s *Service) InFlight() int {
	return int(s.inFlight.Load())
}

// Shutdown cancels outstanding polls and waits for them to resolve. Later
// submissions fail with ErrShutdown.
func (s *Service) Shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// Records returns every persisted job record.
func (s *Service) Records(ctx context.Context) (map[string]model.Record, error) {
	return s.store.GetAll(ctx)
}

// Status fetches the current status of key from the download service.
func (s *Service) Status(ctx context.Context, key string) (model.StatusRecord, error) {
	return s.remote.Status(ctx, key)
}

func (s *Service) run(key string) {
	ack, err := s.remote.Download(s.ctx, key)
	if err != nil {
		s.logger.Error("submit download", "key", key, "error", err)
		if s.opts.NotifySubmitFailure {
			s.notifier.NotifyFailure(key)
		}
		s.release()
		return
	}
	s.logger.Debug("download acknowledged", "key", key, "state", ack.State)

	s.poller.Start(s.ctx, key, func(r poller.Result) {
		defer s.release()
		s.deliver(key, r)
	})
}

func (s *Service) release() {
	s.inFlight.Add(-1)
	s.wg.Done()
}

// deliver sends the single notification for a job that reached the poll loop.
func (s *Service) deliver(key string, r poller.Result) {
	if r.Err != nil {
		s.logger.Warn("job did not complete", "key", key, "steps", r.Steps, "error", r.Err)
		s.notifier.NotifyFailure(key)
		return
	}

	// A detached context lets a job that completed just before shutdown
	// still be confirmed and recorded.
	ctx := context.WithoutCancel(s.ctx)
	rec, err := s.remote.Status(ctx, key)
	if err != nil || rec.Status != model.JobStatusComplete {
		s.logger.Warn("completion not confirmed", "key", key, "status", rec.Status, "error", err)
		s.notifier.NotifyFailure(key)
		return
	}

	if err := s.markDone(ctx, key); err != nil {
		s.logger.Warn("record finished job", "key", key, "error", err)
	}
	s.notifier.NotifySuccess(key)
}

func (s *Service) upsertPending(ctx context.Context, key, raw, name string) error {
	s.recordsMu.Lock()
	defer s.recordsMu.Unlock()

	records, err := s.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	now := s.clock.Now().UTC()
	rec, ok := records[key]
	if !ok {
		rec = model.Record{ID: key, CreatedAt: now}
	}
	rec.Link = raw
	if name != "" {
		rec.Name = name
	}
	rec.State = model.RecordStatePending
	rec.UpdatedAt = now
	records[key] = rec

	if err := s.store.SetAll(ctx, records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}

// markDone flips an existing record to done. A key with no record is left
// alone.
func (s *Service) markDone(ctx context.Context, key string) error {
	s.recordsMu.Lock()
	defer s.recordsMu.Unlock()

	records, err := s.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	rec, ok := records[key]
	if !ok {
		s.logger.Debug("no record for finished job", "key", key)
		return nil
	}
	rec.State = model.RecordStateDone
	rec.UpdatedAt = s.clock.Now().UTC()
	records[key] = rec

	if err := s.store.SetAll(ctx, records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}
