package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/client"
	"github.com/Wenjie0329/email-pitch-tool/internal/config"
	"github.com/Wenjie0329/email-pitch-tool/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server  string
	Timeout time.Duration
	Format  string // "json" | "text"
	Verbose bool

	// Defaults comes from TRACKER_* variables; flags override it.
	Defaults config.ClientConfig

	log *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for trackctl.
func NewRootCommand(defaults config.ClientConfig) *cobra.Command {
	return newRootCommand(&RootOptions{Defaults: defaults})
}

// Execute runs trackctl with args and returns the process exit code.
func Execute(defaults config.ClientConfig, args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{Defaults: defaults}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		opts.formatter(cmd).Error(err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	defaults := opts.Defaults

	cmd := &cobra.Command{
		Use:   "trackctl",
		Short: "Operate an email tracker from the downstream side",
		Long: `trackctl pulls unsynced opens and clicks from an email tracker,
acknowledges them, and reports tracker statistics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Timeout <= 0 {
				return NewExitError(ExitCommandError, "timeout must be positive")
			}
			return opts.initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.PersistentFlags().StringVar(&opts.Server, "server", defaults.ServerURL, "tracker base URL (env TRACKER_URL)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", defaults.Timeout(), "per request timeout")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log requests to stderr")

	cmd.AddCommand(NewPullCommand(opts))
	cmd.AddCommand(NewAckCommand(opts))
	cmd.AddCommand(NewDrainCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

func (o *RootOptions) initLogger() error {
	if !o.Verbose {
		o.log = zap.NewNop()
		return nil
	}
	log, err := logger.New("development")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize logger", err)
	}
	o.log = log
	return nil
}

// Logger returns the command logger; a no-op logger before flags are parsed.
func (o *RootOptions) Logger() *zap.Logger {
	if o.log == nil {
		return zap.NewNop()
	}
	return o.log
}

func (o *RootOptions) newClient() (*client.Client, error) {
	c, err := client.New(o.Server, o.Timeout, o.Logger())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid server", err)
	}
	return c, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
