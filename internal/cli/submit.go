package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/me/ytdl-agent/pkg/model"
	"github.com/spf13/cobra"
)

// errJobFailed is returned by submit --wait when the agent reports an error.
var errJobFailed = errors.New("download failed")

func newSubmitCmd() *cobra.Command {
	var name string
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "submit <link>",
		Short: "Submit a YouTube or YouTube Music link for download",
		Long: "Submit a link to the agent. With --wait the command opens a window first and\n" +
			"blocks until the agent reports the outcome for this job.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var win *Window
			if wait {
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()
				var err error
				win, err = client.OpenWindow(ctx)
				if err != nil {
					return err
				}
				defer win.Close()
			}

			resp, err := client.Post("/api/v1/jobs/", model.SubmitRequest{Link: args[0], Name: name})
			if err != nil {
				return fmt.Errorf("submit: %w", err)
			}
			var data model.SubmitResponse
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			fmt.Fprintf(out, "Submitted: %s\n", data.Key)

			if !wait {
				return nil
			}
			return waitForOutcome(cmd, win, data.Key)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name stored with the job")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the job outcome")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "Maximum time to wait with --wait")
	return cmd
}

func waitForOutcome(cmd *cobra.Command, win *Window, key string) error {
	out := cmd.OutOrStdout()
	for ev := range win.Events {
		var n model.Notification
		if err := json.Unmarshal(ev.Data, &n); err != nil || n.ID != key {
			continue
		}
		if n.Complete {
			fmt.Fprintf(out, "Complete: %s\n", key)
			return nil
		}
		fmt.Fprintf(out, "Failed: %s\n", key)
		return fmt.Errorf("%w: %s", errJobFailed, key)
	}
	return fmt.Errorf("window closed before %s finished", key)
}
