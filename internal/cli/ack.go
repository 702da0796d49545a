package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// AckOptions holds flags for the ack command.
type AckOptions struct {
	*RootOptions
	OpenIDs  []int64
	ClickIDs []int64
}

// NewAckCommand creates the ack command.
func NewAckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ack",
		Short: "Mark events as synced",
		Long: `Acknowledge events by id. Acknowledging an id twice is harmless; the
reported count only includes rows that were not yet synced.

Examples:
  trackctl ack --opens 1,2,3
  trackctl ack --opens 4 --clicks 7,8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAck(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().Int64SliceVar(&opts.OpenIDs, "opens", nil, "open ids to acknowledge")
	cmd.Flags().Int64SliceVar(&opts.ClickIDs, "clicks", nil, "click ids to acknowledge")

	return cmd
}

func runAck(ctx context.Context, opts *AckOptions, cmd *cobra.Command) error {
	if len(opts.OpenIDs) == 0 && len(opts.ClickIDs) == 0 {
		return NewExitError(ExitCommandError, "nothing to acknowledge: pass --opens and/or --clicks")
	}

	c, err := opts.newClient()
	if err != nil {
		return err
	}

	response, err := c.MarkSynced(ctx, opts.OpenIDs, opts.ClickIDs)
	if err != nil {
		return callError("failed to acknowledge", err)
	}

	return opts.formatter(cmd).Success(response, func(w io.Writer) {
		fmt.Fprintf(w, "Marked %d event(s) as synced\n", response.Marked)
		for _, r := range response.Rejected {
			fmt.Fprintf(w, "  rejected %s %s: %s\n", r.Table, r.Value, r.Reason)
		}
	})
}
