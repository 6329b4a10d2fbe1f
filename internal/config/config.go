// Package config loads agent settings from defaults, an optional YAML file,
// YTDL_AGENT_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds configuration for the agent daemon.
type Config struct {
	Listen    string `mapstructure:"listen" validate:"required,hostname_port"`
	RemoteURL string `mapstructure:"remote_url" validate:"required,url"`
	DBPath    string `mapstructure:"db_path"` // empty resolves to ~/.ytdl-agent/agent.db; ":memory:" for testing
	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`

	// IdleTimeout stops the daemon after this long without any request or
	// liveness ping. Zero disables idle suspension.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`

	// NotifySubmitFailure surfaces rejected remote submissions as error
	// notifications. Off by default: only poll failures and timeouts notify.
	NotifySubmitFailure bool `mapstructure:"notify_submit_failure"`

	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	Poll      PollConfig      `mapstructure:"poll"`
}

// HeartbeatConfig tunes the keep-alive loop and its liveness channel.
type HeartbeatConfig struct {
	ArmOnStart      bool          `mapstructure:"arm_on_start"`
	TeardownOnIdle  bool          `mapstructure:"teardown_on_idle"`
	StartupInterval time.Duration `mapstructure:"startup_interval" validate:"gt=0"`
	SteadyInterval  time.Duration `mapstructure:"steady_interval" validate:"gtfield=StartupInterval"`
	TransitionDelay time.Duration `mapstructure:"transition_delay" validate:"gt=0"`
	ChannelName     string        `mapstructure:"channel_name" validate:"required"`
	ChannelMaxAge   time.Duration `mapstructure:"channel_max_age" validate:"gte=0"`
}

// PollConfig tunes the per-job status poll loop.
type PollConfig struct {
	InitialDelay   time.Duration `mapstructure:"initial_delay" validate:"gt=0"`
	StepDelay      time.Duration `mapstructure:"step_delay" validate:"gt=0"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Listen:      "127.0.0.1:50998",
		RemoteURL:   "http://localhost:50999",
		LogLevel:    "info",
		LogFormat:   "text",
		IdleTimeout: 30 * time.Second,
		Heartbeat: HeartbeatConfig{
			ArmOnStart:      true,
			StartupInterval: 300 * time.Millisecond,
			SteadyInterval:  25 * time.Second,
			TransitionDelay: 100 * time.Millisecond,
			ChannelName:     "ytdl_internal_alive",
			ChannelMaxAge:   5 * time.Minute,
		},
		Poll: PollConfig{
			InitialDelay:   7500 * time.Millisecond,
			StepDelay:      5 * time.Second,
			Timeout:        120 * time.Second,
			RequestTimeout: 10 * time.Second,
		},
	}
}

// ResolveDBPath returns DBPath, defaulting to ~/.ytdl-agent/agent.db and
// creating its directory.
func (c Config) ResolveDBPath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".ytdl-agent")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", dir, err)
	}
	return filepath.Join(dir, "agent.db"), nil
}
