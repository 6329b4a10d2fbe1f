package cli

import (
	"log/slog"
	"os"

	"github.com/me/ytdl-agent/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagAgent     string
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultAgent returns the default agent URL, checking YTDL_AGENT_URL first.
func defaultAgent() string {
	if s := os.Getenv("YTDL_AGENT_URL"); s != "" {
		return s
	}
	return "http://127.0.0.1:50998"
}

// NewRootCmd creates the root cobra command for the ytdl-agent CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ytdl-agent",
		Short: "Local agent for the YouTube download service",
		Long: "ytdl-agent runs a background daemon that hands links to the download service,\n" +
			"follows each job to completion and notifies open windows of the outcome.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(flagLogLevel, flagLogFormat)
			client = NewClient(flagAgent, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagAgent, "agent", defaultAgent(), "Agent URL (or YTDL_AGENT_URL env)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ./ytdl-agent.yaml or ~/.ytdl-agent/ytdl-agent.yaml)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newServeCmd(),
		newSubmitCmd(),
		newJobsCmd(),
		newStatusCmd(),
		newHealthCmd(),
		newSanitizeCmd(),
	)

	return root
}
