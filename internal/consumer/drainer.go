package consumer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/dto"
)

// Batch is one pull of unsynced events from both tables
type Batch struct {
	Opens  []dto.OpenRecord
	Clicks []dto.ClickRecord
}

func (b Batch) Len() int {
	return len(b.Opens) + len(b.Clicks)
}

func (b Batch) openIDs() []int64 {
	ids := make([]int64, len(b.Opens))
	for i, o := range b.Opens {
		ids[i] = o.ID
	}
	return ids
}

func (b Batch) clickIDs() []int64 {
	ids := make([]int64, len(b.Clicks))
	for i, c := range b.Clicks {
		ids[i] = c.ID
	}
	return ids
}

// DrainResult totals one Drain call
type DrainResult struct {
	Batches int
	Opens   int
	Clicks  int
	Marked  int64
}

// DrainerConfig configures the drainer
type DrainerConfig struct {
	BatchSize int
}

// Drainer moves the unsynced backlog from a SyncSource into a Sink
type Drainer struct {
	source SyncSource
	sink   Sink
	config DrainerConfig
	log    *zap.Logger
}

// NewDrainer creates a new drainer
func NewDrainer(source SyncSource, sink Sink, config DrainerConfig, log *zap.Logger) *Drainer {
	return &Drainer{
		source: source,
		sink:   sink,
		config: config,
		log:    log,
	}
}

// Drain pulls, delivers and acknowledges batches until the backlog is empty.
// A failed delivery stops the drain with the batch left unacknowledged.
func (d *Drainer) Drain(ctx context.Context) (DrainResult, error) {
	var result DrainResult

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := d.pull(ctx)
		if err != nil {
			return result, err
		}
		if batch.Len() == 0 {
			return result, nil
		}

		if err := d.sink.Write(ctx, batch); err != nil {
			d.log.Error("Failed to deliver batch, leaving it unacknowledged",
				zap.Error(err),
				zap.Int("opens", len(batch.Opens)),
				zap.Int("clicks", len(batch.Clicks)))
			return result, fmt.Errorf("failed to deliver batch: %w", err)
		}

		ack, err := d.source.MarkSynced(ctx, batch.openIDs(), batch.clickIDs())
		if err != nil {
			// Delivered but not acknowledged: the next drain sees it again.
			d.log.Error("Failed to acknowledge delivered batch",
				zap.Error(err),
				zap.Int("opens", len(batch.Opens)),
				zap.Int("clicks", len(batch.Clicks)))
			return result, fmt.Errorf("failed to acknowledge batch: %w", err)
		}

		result.Batches++
		result.Opens += len(batch.Opens)
		result.Clicks += len(batch.Clicks)
		result.Marked += ack.Marked

		d.log.Info("Batch drained",
			zap.Int("opens", len(batch.Opens)),
			zap.Int("clicks", len(batch.Clicks)),
			zap.Int64("marked", ack.Marked),
			zap.Int("rejected", len(ack.Rejected)))

		// A short page is not the end: the server may clamp the limit below
		// BatchSize. Only an empty pull or a no-op ack ends the drain.
		if ack.Marked == 0 {
			d.log.Warn("Acknowledgment flipped no rows, another consumer may be draining")
			return result, nil
		}
	}
}

func (d *Drainer) pull(ctx context.Context) (Batch, error) {
	opens, err := d.source.ListOpens(ctx, d.config.BatchSize, false)
	if err != nil {
		return Batch{}, fmt.Errorf("failed to pull opens: %w", err)
	}

	clicks, err := d.source.ListClicks(ctx, d.config.BatchSize, false)
	if err != nil {
		return Batch{}, fmt.Errorf("failed to pull clicks: %w", err)
	}

	return Batch{Opens: opens.Opens, Clicks: clicks.Clicks}, nil
}

// Run drains immediately, then on every tick and on every signal from wake
// until ctx is cancelled. wake may be nil.
func (d *Drainer) Run(ctx context.Context, interval time.Duration, wake <-chan struct{}) error {
	if interval <= 0 {
		return fmt.Errorf("drain interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Drainer shutting down")
			return nil
		case <-ticker.C:
			d.runOnce(ctx)
		case <-wake:
			d.log.Debug("Woken by notification")
			d.runOnce(ctx)
			ticker.Reset(interval)
		}
	}
}

func (d *Drainer) runOnce(ctx context.Context) {
	result, err := d.Drain(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		d.log.Warn("Drain attempt failed, retrying on next tick", zap.Error(err))
		return
	}
	if result.Batches > 0 {
		d.log.Info("Backlog drained",
			zap.Int("batches", result.Batches),
			zap.Int("opens", result.Opens),
			zap.Int("clicks", result.Clicks),
			zap.Int64("marked", result.Marked))
	}
}
