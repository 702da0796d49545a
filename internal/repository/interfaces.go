package repository

import (
	"context"
	"time"

	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
)

// EventRepository defines the interface for event storage operations.
// Implementations must behave identically regardless of the backing engine.
type EventRepository interface {
	// AppendOpen inserts an unsynced open stamped with the store clock and returns its id
	AppendOpen(ctx context.Context, event *domain.OpenEvent) (int64, error)

	// AppendClick inserts an unsynced click stamped with the store clock and returns its id
	AppendClick(ctx context.Context, event *domain.ClickEvent) (int64, error)

	CountAll(ctx context.Context, table domain.Table) (int64, error)
	CountUnsynced(ctx context.Context, table domain.Table) (int64, error)

	// CountSince counts rows whose timestamp is strictly after cutoff
	CountSince(ctx context.Context, table domain.Table, cutoff time.Time) (int64, error)

	// QueryUnsyncedOpens returns unsynced opens oldest first
	QueryUnsyncedOpens(ctx context.Context, limit int) ([]domain.OpenEvent, error)

	// QueryAllOpens returns the newest opens regardless of sync state
	QueryAllOpens(ctx context.Context, limit int) ([]domain.OpenEvent, error)

	QueryUnsyncedClicks(ctx context.Context, limit int) ([]domain.ClickEvent, error)
	QueryAllClicks(ctx context.Context, limit int) ([]domain.ClickEvent, error)

	// MarkSynced flips synced for every listed id that exists and is still
	// unsynced, returning how many rows actually changed
	MarkSynced(ctx context.Context, table domain.Table, ids []int64) (int64, error)

	// InitSchema creates tables and indexes if they don't exist
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Backend names the engine, e.g. "PostgreSQL"
	Backend() string

	// Close closes the repository and releases resources
	Close() error
}
