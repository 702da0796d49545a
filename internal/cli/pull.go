package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
)

// PullOptions holds flags for the pull command.
type PullOptions struct {
	*RootOptions
	Kind  string
	Limit int
	All   bool
}

// NewPullCommand creates the pull command.
func NewPullCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PullOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "List unsynced opens or clicks",
		Long: `List events without acknowledging them.

By default only unsynced events are listed, oldest first. With --all every
event is listed newest first regardless of sync state.

Examples:
  trackctl pull
  trackctl pull --kind clicks --limit 50
  trackctl pull --all --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "opens", "event table (opens|clicks)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows (server default when 0)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "ignore sync state")

	return cmd
}

func runPull(ctx context.Context, opts *PullOptions, cmd *cobra.Command) error {
	table, err := domain.ParseTable(opts.Kind)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --kind", err)
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must not be negative")
	}

	c, err := opts.newClient()
	if err != nil {
		return err
	}
	out := opts.formatter(cmd)

	switch table {
	case domain.TableClicks:
		response, err := c.ListClicks(ctx, opts.Limit, opts.All)
		if err != nil {
			return callError("failed to list clicks", err)
		}
		return out.Success(response, func(w io.Writer) {
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUID\tTIMESTAMP\tIP\tSYNCED\tURL")
			for _, r := range response.Clicks {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n", r.ID, r.UID, r.Timestamp, r.IP, r.Synced, r.URL)
			}
			_ = tw.Flush()
			fmt.Fprintf(w, "%d click(s)\n", response.Count)
		})
	default:
		response, err := c.ListOpens(ctx, opts.Limit, opts.All)
		if err != nil {
			return callError("failed to list opens", err)
		}
		return out.Success(response, func(w io.Writer) {
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUID\tTIMESTAMP\tIP\tSYNCED\tUSER AGENT")
			for _, r := range response.Opens {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n", r.ID, r.UID, r.Timestamp, r.IP, r.Synced, r.UserAgent)
			}
			_ = tw.Flush()
			fmt.Fprintf(w, "%d open(s)\n", response.Count)
		})
	}
}
