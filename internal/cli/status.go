package cli

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/me/ytdl-agent/internal/jobs"
	"github.com/me/ytdl-agent/pkg/model"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <link|key>",
		Short: "Show the download service status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := jobs.Sanitize(args[0])
			if key == "" {
				return fmt.Errorf("no job key in %q", args[0])
			}

			resp, err := client.Get("/api/v1/jobs/" + url.PathEscape(key) + "/status")
			if err != nil {
				return fmt.Errorf("get status: %w", err)
			}

			var rec model.StatusRecord
			if err := json.Unmarshal(resp.Data, &rec); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job:    %s\n", key)
			st := newStyles(out)
			fmt.Fprintf(out, "Status: %s\n", st.status(rec.Status.String()))
			if rec.IsPlaylist() {
				fmt.Fprintf(out, "Tracks: %s of %s done\n",
					humanize.Comma(int64(rec.PlaylistTrackDone)), humanize.Comma(int64(rec.PlaylistTrackCount)))
			}
			return nil
		},
	}
}
