package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/me/ytdl-agent/internal/agent"
	"github.com/me/ytdl-agent/internal/config"
	"github.com/me/ytdl-agent/internal/logging"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	d := config.Default()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent daemon",
		Long: "Run the agent in the foreground. The daemon keeps itself alive with a heartbeat,\n" +
			"accepts submissions and stops on SIGINT/SIGTERM or after the idle timeout.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig, cmd.Flags())
			if err != nil {
				return err
			}
			if flagDebug {
				cfg.LogLevel = "debug"
			}
			logger = logging.New(cfg.LogLevel, cfg.LogFormat)

			a, err := agent.New(*cfg, logger)
			if err != nil {
				return fmt.Errorf("start agent: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx)
		},
	}

	cmd.Flags().String("listen", d.Listen, "Listen address")
	cmd.Flags().String("remote", d.RemoteURL, "Download service URL")
	cmd.Flags().String("db", d.DBPath, "Database path (default ~/.ytdl-agent/agent.db)")
	return cmd
}
