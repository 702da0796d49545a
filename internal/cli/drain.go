package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/consumer"
	"github.com/Wenjie0329/email-pitch-tool/internal/queue/sqs"
	"github.com/Wenjie0329/email-pitch-tool/internal/repository/clickhouse"
)

// DrainOptions holds flags for the drain command.
type DrainOptions struct {
	*RootOptions
	Follow   bool
	Interval time.Duration
	Batch    int
	Out      string
	Sink     string
	QueueURL string
}

// Drain sinks
const (
	SinkJSONLines  = "jsonl"
	SinkClickHouse = "clickhouse"
)

// DrainSummary is the drain result as printed.
type DrainSummary struct {
	Batches int    `json:"batches"`
	Opens   int    `json:"opens"`
	Clicks  int    `json:"clicks"`
	Marked  int64  `json:"marked"`
	Output  string `json:"output"`
}

// NewDrainCommand creates the drain command.
func NewDrainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DrainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Export the unsynced backlog as JSON lines and acknowledge it",
		Long: `Pull unsynced opens and clicks in batches, append them as JSON lines
to --out (stdout by default), and acknowledge each batch only after it
was written. Interrupted runs may write a batch twice; they never lose one.

With --follow the drain repeats every --interval until interrupted. When
a notification queue is configured (--queue-url or TRACKER_SQS_QUEUE_URL)
new events also trigger a drain straight away.

With --sink clickhouse batches go to the tracking_events table of the
warehouse named by TRACKER_CLICKHOUSE_* instead.

Examples:
  trackctl drain --out events.jsonl
  trackctl drain --follow --interval 1m --out events.jsonl
  trackctl drain --sink clickhouse --follow`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrain(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Follow, "follow", false, "keep draining until interrupted")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 30*time.Second, "pause between drains with --follow")
	cmd.Flags().IntVar(&opts.Batch, "batch", rootOpts.Defaults.BatchSize, "events per pull and table (env TRACKER_BATCH_SIZE)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "append JSON lines to this file instead of stdout")
	cmd.Flags().StringVar(&opts.Sink, "sink", SinkJSONLines, "where drained events go (jsonl|clickhouse)")
	cmd.Flags().StringVar(&opts.QueueURL, "queue-url", rootOpts.Defaults.SQS.QueueURL, "SQS queue carrying append notifications")

	return cmd
}

func runDrain(ctx context.Context, opts *DrainOptions, cmd *cobra.Command) error {
	if opts.Batch <= 0 {
		return NewExitError(ExitCommandError, "--batch must be positive")
	}
	if opts.Follow && opts.Interval <= 0 {
		return NewExitError(ExitCommandError, "--interval must be positive")
	}
	if opts.Sink != SinkJSONLines && opts.Sink != SinkClickHouse {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid --sink %q: must be %s or %s", opts.Sink, SinkJSONLines, SinkClickHouse))
	}
	if opts.Sink == SinkClickHouse && opts.Out != "" {
		return NewExitError(ExitCommandError, "--out only applies to --sink jsonl")
	}

	c, err := opts.newClient()
	if err != nil {
		return err
	}
	log := opts.Logger()

	var (
		sink    consumer.Sink
		summary = cmd.ErrOrStderr()
		output  = "stdout"
	)
	switch opts.Sink {
	case SinkClickHouse:
		repo, err := openWarehouse(ctx, opts, log)
		if err != nil {
			return err
		}
		defer repo.Close()
		sink, summary, output = repo, cmd.OutOrStdout(), SinkClickHouse
	default:
		var w io.Writer = cmd.OutOrStdout()
		if opts.Out != "" {
			f, err := os.OpenFile(opts.Out, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open output file", err)
			}
			defer f.Close()
			w, summary, output = f, cmd.OutOrStdout(), opts.Out
		}

		buffered := bufio.NewWriter(w)
		defer buffered.Flush()
		sink = &flushingSink{sink: consumer.NewJSONLinesSink(buffered), w: buffered}
	}

	drainer := consumer.NewDrainer(c, sink, consumer.DrainerConfig{BatchSize: opts.Batch}, log)

	if opts.Follow {
		return runFollow(ctx, opts, drainer, log)
	}

	result, err := drainer.Drain(ctx)
	if err != nil {
		return callError("drain failed", err)
	}

	out := opts.formatter(cmd)
	out.Writer = summary
	return out.Success(DrainSummary{
		Batches: result.Batches,
		Opens:   result.Opens,
		Clicks:  result.Clicks,
		Marked:  result.Marked,
		Output:  output,
	}, func(w io.Writer) {
		fmt.Fprintf(w, "Drained %d open(s) and %d click(s) in %d batch(es), %d marked synced\n",
			result.Opens, result.Clicks, result.Batches, result.Marked)
	})
}

func openWarehouse(ctx context.Context, opts *DrainOptions, log *zap.Logger) (*clickhouse.Repository, error) {
	client, err := clickhouse.NewClient(ctx, opts.Defaults.ClickHouse, log)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to connect to warehouse", err)
	}

	repo := clickhouse.NewRepository(client, log)
	if err := repo.InitSchema(ctx); err != nil {
		_ = repo.Close()
		return nil, WrapExitError(ExitFailure, "failed to initialize warehouse schema", err)
	}
	return repo, nil
}

func runFollow(ctx context.Context, opts *DrainOptions, drainer *consumer.Drainer, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wake chan struct{}
	if opts.QueueURL != "" {
		sqsConfig := opts.Defaults.SQS
		sqsConfig.QueueURL = opts.QueueURL
		subscriber, err := sqs.NewSubscriber(ctx, sqsConfig, log)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create SQS subscriber", err)
		}
		wake = make(chan struct{}, 1)
		go consumer.NewWatcher(subscriber, log).Start(ctx, wake)
	}

	log.Info("Following tracker backlog",
		zap.Duration("interval", opts.Interval),
		zap.Bool("notifications", wake != nil))

	if err := drainer.Run(ctx, opts.Interval, wake); err != nil {
		return WrapExitError(ExitCommandError, "drain loop failed", err)
	}
	return nil
}

// flushingSink flushes after every batch so nothing is acknowledged while
// still sitting in a buffer.
type flushingSink struct {
	sink consumer.Sink
	w    *bufio.Writer
}

func (s *flushingSink) Write(ctx context.Context, batch consumer.Batch) error {
	if err := s.sink.Write(ctx, batch); err != nil {
		return err
	}
	return s.w.Flush()
}
