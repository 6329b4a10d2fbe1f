package cli

import (
	"fmt"

	"github.com/me/ytdl-agent/internal/jobs"
	"github.com/spf13/cobra"
)

func newSanitizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize <link>...",
		Short: "Print the job key for each link",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, link := range args {
				fmt.Fprintln(cmd.OutOrStdout(), jobs.Sanitize(link))
			}
			return nil
		},
	}
}
