// Package agent wires the daemon together and runs it until shutdown or
// idle suspension.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/me/ytdl-agent/internal/clock"
	"github.com/me/ytdl-agent/internal/config"
	"github.com/me/ytdl-agent/internal/gate"
	"github.com/me/ytdl-agent/internal/heartbeat"
	"github.com/me/ytdl-agent/internal/idle"
	"github.com/me/ytdl-agent/internal/jobs"
	"github.com/me/ytdl-agent/internal/notify"
	"github.com/me/ytdl-agent/internal/poller"
	"github.com/me/ytdl-agent/internal/remote"
	"github.com/me/ytdl-agent/internal/server"
	"github.com/me/ytdl-agent/internal/store"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Agent is one running daemon.
type Agent struct {
	cfg    config.Config
	logger *slog.Logger

	store     *store.SQLiteStore
	dialer    *heartbeat.WebSocketDialer
	heartbeat *heartbeat.Controller
	hub       *notify.Hub
	gate      *gate.Gate
	jobs      *jobs.Service
	watchdog  *idle.Watchdog
	server    *server.Server

	addr  string
	ready chan struct{}
}

// New builds an Agent: it opens and migrates the record store and creates
// every component. Nothing runs until Run.
func New(cfg config.Config, logger *slog.Logger) (*Agent, error) {
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, err
	}
	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database ready", "path", dbPath)

	clk := clock.Real()
	a := &Agent{
		cfg:    cfg,
		logger: logger.With("component", "agent"),
		store:  st,
		dialer: heartbeat.NewWebSocketDialer(heartbeat.AliveURL(cfg.Listen)),
		hub:    notify.NewHub(logger),
		ready:  make(chan struct{}),
	}

	a.heartbeat = heartbeat.New(heartbeat.Config{
		StartupInterval: cfg.Heartbeat.StartupInterval,
		SteadyInterval:  cfg.Heartbeat.SteadyInterval,
		TransitionDelay: cfg.Heartbeat.TransitionDelay,
		ChannelName:     cfg.Heartbeat.ChannelName,
	}, clk, a.dialer, logger)
	a.gate = gate.New(a.hub, a.heartbeat, gate.Options{TeardownOnIdle: cfg.Heartbeat.TeardownOnIdle}, logger)

	client := remote.NewClient(cfg.RemoteURL, cfg.Poll.RequestTimeout)
	p := poller.New(poller.Config{
		InitialDelay: cfg.Poll.InitialDelay,
		StepDelay:    cfg.Poll.StepDelay,
		Timeout:      cfg.Poll.Timeout,
	}, clk, client, logger)
	a.jobs = jobs.NewService(client, st, p, a.hub, clk, jobs.Options{NotifySubmitFailure: cfg.NotifySubmitFailure}, logger)
	a.watchdog = idle.New(cfg.IdleTimeout, clk, logger)

	a.server = server.New(cfg, a.jobs, a.hub, a.gate, a.heartbeat, logger, server.WithActivity(a.watchdog))
	return a, nil
}

// Ready is closed once the agent is accepting requests.
func (a *Agent) Ready() <-chan struct{} {
	return a.ready
}

// Addr returns the bound listen address. Valid after Ready.
func (a *Agent) Addr() string {
	return a.addr
}

// Heartbeat returns the heartbeat controller.
func (a *Agent) Heartbeat() *heartbeat.Controller {
	return a.heartbeat
}

// Run serves the API until ctx is cancelled or the agent goes idle, then
// shuts everything down. Idle suspension is a normal exit.
func (a *Agent) Run(ctx context.Context) error {
	defer a.store.Close()

	ln, err := net.Listen("tcp", a.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Listen, err)
	}
	a.addr = ln.Addr().String()
	a.dialer.URL = heartbeat.AliveURL(a.addr)

	g, gctx := errgroup.WithContext(ctx)
	httpServer := &http.Server{
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with the agent so SSE windows close on shutdown.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		a.logger.Info("agent listening", "addr", a.addr, "remote", a.cfg.RemoteURL)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.watchdog.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")

		// Stop keep-alive traffic before the server goes away.
		a.heartbeat.Teardown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			err = httpServer.Close()
		}

		a.jobs.Shutdown()
		return err
	})

	if a.cfg.Heartbeat.ArmOnStart {
		a.heartbeat.Arm()
	}
	close(a.ready)

	err = g.Wait()
	if errors.Is(err, idle.ErrIdle) {
		a.logger.Info("agent suspended after inactivity", "idle_timeout", a.cfg.IdleTimeout)
		return nil
	}
	if err != nil {
		return err
	}
	a.logger.Info("agent stopped")
	return nil
}
