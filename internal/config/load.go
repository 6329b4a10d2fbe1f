package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. YTDL_AGENT_POLL_TIMEOUT.
const EnvPrefix = "YTDL_AGENT"

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"listen":     "listen",
	"remote":     "remote_url",
	"db":         "db_path",
	"log-level":  "log_level",
	"log-format": "log_format",
}

// Load reads configuration. file may be empty, in which case
// ytdl-agent.yaml is looked up in the working directory and in
// ~/.ytdl-agent; a missing file is not an error. flags may be nil.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("ytdl-agent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.ytdl-agent")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and reports every failing field.
func Validate(cfg Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	var msgs []string
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	// The heartbeat only keeps the host awake if it fires inside the idle window.
	if cfg.IdleTimeout > 0 && cfg.Heartbeat.SteadyInterval >= cfg.IdleTimeout {
		msgs = append(msgs, fmt.Sprintf("Config.Heartbeat.SteadyInterval: must be below idle_timeout %s (value %s)",
			cfg.IdleTimeout, cfg.Heartbeat.SteadyInterval))
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("listen", d.Listen)
	v.SetDefault("remote_url", d.RemoteURL)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("idle_timeout", d.IdleTimeout)
	v.SetDefault("notify_submit_failure", d.NotifySubmitFailure)

	v.SetDefault("heartbeat.arm_on_start", d.Heartbeat.ArmOnStart)
	v.SetDefault("heartbeat.teardown_on_idle", d.Heartbeat.TeardownOnIdle)
	v.SetDefault("heartbeat.startup_interval", d.Heartbeat.StartupInterval)
	v.SetDefault("heartbeat.steady_interval", d.Heartbeat.SteadyInterval)
	v.SetDefault("heartbeat.transition_delay", d.Heartbeat.TransitionDelay)
	v.SetDefault("heartbeat.channel_name", d.Heartbeat.ChannelName)
	v.SetDefault("heartbeat.channel_max_age", d.Heartbeat.ChannelMaxAge)

	v.SetDefault("poll.initial_delay", d.Poll.InitialDelay)
	v.SetDefault("poll.step_delay", d.Poll.StepDelay)
	v.SetDefault("poll.timeout", d.Poll.Timeout)
	v.SetDefault("poll.request_timeout", d.Poll.RequestTimeout)
}
