package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/me/ytdl-agent/pkg/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newJobsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recorded jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/jobs/")
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}

			var records []model.Record
			if err := json.Unmarshal(resp.Data, &records); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			out := cmd.OutOrStdout()
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(records)
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			case "table", "":
			default:
				return fmt.Errorf("unknown output format %q (table, yaml, json)", output)
			}

			if len(records) == 0 {
				fmt.Fprintln(out, "No jobs found.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tSTATE\tNAME\tSUBMITTED")
			for _, r := range records {
				name := r.Name
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.State, name, humanize.Time(r.CreatedAt))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, yaml, json)")
	return cmd
}
