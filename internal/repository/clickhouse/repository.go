// Package clickhouse exports drained tracking events into a ClickHouse
// warehouse table.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/consumer"
	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS tracking_events (
		kind LowCardinality(String),
		event_id Int64,
		uid String,
		url String,
		ip String,
		user_agent String,
		timestamp DateTime,
		exported_at DateTime64(3) DEFAULT now64(3),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	ORDER BY (kind, event_id)
	PARTITION BY toYYYYMM(timestamp)
	SETTINGS index_granularity = 8192
	`

const insertRows = `INSERT INTO tracking_events (kind, event_id, uid, url, ip, user_agent, timestamp, version)`

// Repository writes drained batches. Rows are keyed by (kind, event_id),
// so a batch delivered twice collapses to one row per event on merge.
type Repository struct {
	client *Client
	log    *zap.Logger
	now    func() time.Time
}

// NewRepository creates a new ClickHouse repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{client: client, log: log, now: time.Now}
}

// InitSchema creates the export table if it does not exist
func (r *Repository) InitSchema(ctx context.Context) error {
	if err := r.client.Conn().Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create tracking_events table: %w", err)
	}
	r.log.Info("ClickHouse schema initialized")
	return nil
}

// Write implements consumer.Sink
func (r *Repository) Write(ctx context.Context, batch consumer.Batch) error {
	rows, err := eventRows(batch, uint64(r.now().UnixNano()))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	b, err := r.client.Conn().PrepareBatch(ctx, insertRows)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, row := range rows {
		if err := b.Append(row.Kind, row.EventID, row.UID, row.URL, row.IP, row.UserAgent, row.Timestamp, row.Version); err != nil {
			_ = b.Abort()
			return fmt.Errorf("failed to append %s %d: %w", row.Kind, row.EventID, err)
		}
	}

	if err := b.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	r.log.Debug("Exported batch to ClickHouse",
		zap.Int("opens", len(batch.Opens)),
		zap.Int("clicks", len(batch.Clicks)))
	return nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}

type eventRow struct {
	Kind      string
	EventID   int64
	UID       string
	URL       string
	IP        string
	UserAgent string
	Timestamp time.Time
	Version   uint64
}

// eventRows flattens a batch, opens first. Every row of one batch shares
// version so a later export of the same event replaces it.
func eventRows(batch consumer.Batch, version uint64) ([]eventRow, error) {
	rows := make([]eventRow, 0, len(batch.Opens)+len(batch.Clicks))

	for _, o := range batch.Opens {
		ts, err := eventTime(o.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("open %d: %w", o.ID, err)
		}
		rows = append(rows, eventRow{
			Kind:      consumer.KindOpen,
			EventID:   o.ID,
			UID:       o.UID,
			IP:        o.IP,
			UserAgent: o.UserAgent,
			Timestamp: ts,
			Version:   version,
		})
	}

	for _, c := range batch.Clicks {
		ts, err := eventTime(c.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("click %d: %w", c.ID, err)
		}
		rows = append(rows, eventRow{
			Kind:      consumer.KindClick,
			EventID:   c.ID,
			UID:       c.UID,
			URL:       c.URL,
			IP:        c.IP,
			Timestamp: ts,
			Version:   version,
		})
	}

	return rows, nil
}

// eventTime parses a stored timestamp. Rows written without one come back
// blank and land on the DateTime epoch rather than blocking the batch.
func eventTime(s string) (time.Time, error) {
	if s == "" {
		return time.Unix(0, 0), nil
	}
	return domain.ParseTimestamp(s)
}
