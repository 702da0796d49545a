package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show tracker counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.newClient()
			if err != nil {
				return err
			}

			stats, err := c.Stats(cmd.Context())
			if err != nil {
				return callError("failed to fetch stats", err)
			}

			return rootOpts.formatter(cmd).Success(stats, func(w io.Writer) {
				fmt.Fprintf(w, "Opens:            %d (%d unsynced)\n", stats.TotalOpens, stats.UnsyncedOpens)
				fmt.Fprintf(w, "Clicks:           %d (%d unsynced)\n", stats.TotalClicks, stats.UnsyncedClicks)
				fmt.Fprintf(w, "Opens, last 24h:  %d\n", stats.RecentOpens24h)
			})
		},
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tracker status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.newClient()
			if err != nil {
				return err
			}

			status, err := c.Status(cmd.Context())
			if err != nil {
				return callError("failed to fetch status", err)
			}

			return rootOpts.formatter(cmd).Success(status, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s: %s on %s\n", status.Service, status.Version, status.Status, status.Database)
				fmt.Fprintf(w, "Opens: %d (%d unsynced), clicks: %d\n",
					status.TotalOpens, status.UnsyncedOpens, status.TotalClicks)
			})
		},
	}
}
