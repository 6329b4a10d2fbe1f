package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show agent health and heartbeat state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/health")
			if err != nil {
				return fmt.Errorf("get health: %w", err)
			}

			var data struct {
				Status    string `json:"status"`
				Uptime    string `json:"uptime"`
				Heartbeat struct {
					Armed       bool   `json:"armed"`
					Interval    string `json:"interval"`
					LastTick    string `json:"last_tick"`
					ChannelOpen bool   `json:"channel_open"`
					Ticks       int    `json:"ticks"`
				} `json:"heartbeat"`
				Windows  int    `json:"windows"`
				InFlight int    `json:"in_flight"`
				Remote   string `json:"remote_url"`
			}
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			out := cmd.OutOrStdout()
			st := newStyles(out)
			fmt.Fprintf(out, "Agent:     %s (up %s)\n", st.status(data.Status), data.Uptime)
			fmt.Fprintf(out, "Remote:    %s\n", data.Remote)
			hb := data.Heartbeat
			if hb.Armed {
				fmt.Fprintf(out, "Heartbeat: every %s, %s rounds", hb.Interval, humanize.Comma(int64(hb.Ticks)))
				if t, err := time.Parse(time.RFC3339, hb.LastTick); err == nil {
					fmt.Fprintf(out, ", last %s", humanize.Time(t))
				}
				fmt.Fprintln(out)
			} else {
				fmt.Fprintf(out, "Heartbeat: %s\n", st.status("dormant"))
			}
			channel := "closed"
			if hb.ChannelOpen {
				channel = "open"
			}
			fmt.Fprintf(out, "Channel:   %s\n", st.status(channel))
			fmt.Fprintf(out, "Windows:   %d\n", data.Windows)
			fmt.Fprintf(out, "In flight: %d\n", data.InFlight)
			return nil
		},
	}
}
