package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
	"github.com/Wenjie0329/email-pitch-tool/internal/repository"
)

const defaultQueryTimeout = 10 * time.Second

// Repository implements EventRepository for any supported SQL dialect
type Repository struct {
	db           *sql.DB
	dialect      Dialect
	log          *zap.Logger
	now          func() time.Time
	queryTimeout time.Duration
}

// Option customises a Repository
type Option func(*Repository)

// WithClock replaces the clock used to stamp appended events
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// WithQueryTimeout bounds every backend call
func WithQueryTimeout(d time.Duration) Option {
	return func(r *Repository) {
		r.queryTimeout = d
	}
}

// NewRepository wraps an open database handle
func NewRepository(db *sql.DB, dialect Dialect, log *zap.Logger, opts ...Option) *Repository {
	r := &Repository{
		db:           db,
		dialect:      dialect,
		log:          log,
		now:          time.Now,
		queryTimeout: defaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ repository.EventRepository = (*Repository)(nil)

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

func (r *Repository) timestamp() time.Time {
	return r.now().Truncate(time.Second)
}

// InitSchema creates the event tables and their indexes
func (r *Repository) InitSchema(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	for _, stmt := range r.dialect.Schema() {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return repository.NewStorageError("initialize schema", "", err)
		}
	}

	r.log.Info("Database schema initialized successfully", zap.String("backend", r.dialect.Name()))
	return nil
}

// AppendOpen inserts an open event; ID, Timestamp and Synced are set on event
func (r *Repository) AppendOpen(ctx context.Context, event *domain.OpenEvent) (int64, error) {
	ts := r.timestamp()
	id, err := r.insert(ctx, domain.TableOpens,
		`INSERT INTO opens (uid, timestamp, ip, user_agent, synced) VALUES (?, ?, ?, ?, 0)`,
		event.UID, domain.FormatTimestamp(ts), event.IP, event.UserAgent)
	if err != nil {
		return 0, err
	}

	event.ID = id
	event.Timestamp = ts
	event.Synced = false
	return id, nil
}

// AppendClick inserts a click event; ID, Timestamp and Synced are set on event
func (r *Repository) AppendClick(ctx context.Context, event *domain.ClickEvent) (int64, error) {
	ts := r.timestamp()
	id, err := r.insert(ctx, domain.TableClicks,
		`INSERT INTO clicks (uid, url, timestamp, ip, synced) VALUES (?, ?, ?, ?, 0)`,
		event.UID, event.URL, domain.FormatTimestamp(ts), event.IP)
	if err != nil {
		return 0, err
	}

	event.ID = id
	event.Timestamp = ts
	event.Synced = false
	return id, nil
}

func (r *Repository) insert(ctx context.Context, table domain.Table, query string, args ...any) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if r.dialect.InsertReturnsID() {
		var id int64
		err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query+" RETURNING id"), args...).Scan(&id)
		if err != nil {
			return 0, repository.NewStorageError("insert into", table, err)
		}
		return id, nil
	}

	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return 0, repository.NewStorageError("insert into", table, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, repository.NewStorageError("read inserted id from", table, err)
	}
	return id, nil
}

func (r *Repository) CountAll(ctx context.Context, table domain.Table) (int64, error) {
	if !table.Valid() {
		return 0, fmt.Errorf("%w: %q", repository.ErrUnknownTable, table)
	}
	return r.count(ctx, table, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
}

func (r *Repository) CountUnsynced(ctx context.Context, table domain.Table) (int64, error) {
	if !table.Valid() {
		return 0, fmt.Errorf("%w: %q", repository.ErrUnknownTable, table)
	}
	return r.count(ctx, table, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE synced = 0", table))
}

func (r *Repository) CountSince(ctx context.Context, table domain.Table, cutoff time.Time) (int64, error) {
	if !table.Valid() {
		return 0, fmt.Errorf("%w: %q", repository.ErrUnknownTable, table)
	}
	return r.count(ctx, table, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE timestamp > ?", table),
		domain.FormatTimestamp(cutoff))
}

// count treats an absent row as zero; any other failure propagates.
func (r *Repository) count(ctx context.Context, table domain.Table, query string, args ...any) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var n sql.NullInt64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), args...).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, repository.NewStorageError("count", table, err)
	}
	return n.Int64, nil
}

const (
	openColumns  = "id, uid, timestamp, ip, user_agent, synced"
	clickColumns = "id, uid, url, timestamp, ip, synced"
)

func (r *Repository) QueryUnsyncedOpens(ctx context.Context, limit int) ([]domain.OpenEvent, error) {
	return r.queryOpens(ctx, "SELECT "+openColumns+" FROM opens WHERE synced = 0 ORDER BY id ASC LIMIT ?", limit)
}

func (r *Repository) QueryAllOpens(ctx context.Context, limit int) ([]domain.OpenEvent, error) {
	return r.queryOpens(ctx, "SELECT "+openColumns+" FROM opens ORDER BY id DESC LIMIT ?", limit)
}

func (r *Repository) QueryUnsyncedClicks(ctx context.Context, limit int) ([]domain.ClickEvent, error) {
	return r.queryClicks(ctx, "SELECT "+clickColumns+" FROM clicks WHERE synced = 0 ORDER BY id ASC LIMIT ?", limit)
}

func (r *Repository) QueryAllClicks(ctx context.Context, limit int) ([]domain.ClickEvent, error) {
	return r.queryClicks(ctx, "SELECT "+clickColumns+" FROM clicks ORDER BY id DESC LIMIT ?", limit)
}

func (r *Repository) queryOpens(ctx context.Context, query string, limit int) ([]domain.OpenEvent, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", repository.ErrInvalidLimit, limit)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), limit)
	if err != nil {
		return nil, repository.NewStorageError("query", domain.TableOpens, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error("Failed to close opens rows", zap.Error(err))
		}
	}(rows)

	events := make([]domain.OpenEvent, 0)
	for rows.Next() {
		var row openRow
		if err := rows.Scan(&row.ID, &row.UID, &row.Timestamp, &row.IP, &row.UserAgent, &row.Synced); err != nil {
			return nil, repository.NewStorageError("scan", domain.TableOpens, err)
		}
		event, err := row.toEvent()
		if err != nil {
			return nil, repository.NewStorageError("decode", domain.TableOpens, err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.NewStorageError("iterate", domain.TableOpens, err)
	}

	return events, nil
}

func (r *Repository) queryClicks(ctx context.Context, query string, limit int) ([]domain.ClickEvent, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", repository.ErrInvalidLimit, limit)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), limit)
	if err != nil {
		return nil, repository.NewStorageError("query", domain.TableClicks, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error("Failed to close clicks rows", zap.Error(err))
		}
	}(rows)

	events := make([]domain.ClickEvent, 0)
	for rows.Next() {
		var row clickRow
		if err := rows.Scan(&row.ID, &row.UID, &row.URL, &row.Timestamp, &row.IP, &row.Synced); err != nil {
			return nil, repository.NewStorageError("scan", domain.TableClicks, err)
		}
		event, err := row.toEvent()
		if err != nil {
			return nil, repository.NewStorageError("decode", domain.TableClicks, err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.NewStorageError("iterate", domain.TableClicks, err)
	}

	return events, nil
}

// MarkSynced flips synced=1 for each id inside one transaction. The
// synced = 0 guard makes repeats count zero, so the call is idempotent.
func (r *Repository) MarkSynced(ctx context.Context, table domain.Table, ids []int64) (int64, error) {
	if !table.Valid() {
		return 0, fmt.Errorf("%w: %q", repository.ErrUnknownTable, table)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, repository.NewStorageError("begin mark synced on", table, err)
	}
	defer func(tx *sql.Tx) {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.log.Error("Failed to roll back mark synced", zap.String("table", table.String()), zap.Error(err))
		}
	}(tx)

	query := r.dialect.Rebind(fmt.Sprintf("UPDATE %s SET synced = 1 WHERE id = ? AND synced = 0", table))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, repository.NewStorageError("prepare mark synced on", table, err)
	}
	defer func(stmt *sql.Stmt) {
		if err := stmt.Close(); err != nil {
			r.log.Error("Failed to close mark synced statement", zap.Error(err))
		}
	}(stmt)

	var marked int64
	for _, id := range ids {
		result, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return 0, repository.NewStorageError("mark synced on", table, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, repository.NewStorageError("read rows affected on", table, err)
		}
		marked += n
	}

	if err := tx.Commit(); err != nil {
		return 0, repository.NewStorageError("commit mark synced on", table, err)
	}

	return marked, nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return repository.NewStorageError("ping", "", r.db.PingContext(ctx))
}

func (r *Repository) Backend() string {
	return r.dialect.Name()
}

// Close closes the database connection
func (r *Repository) Close() error {
	r.log.Info("Closing database connection", zap.String("backend", r.dialect.Name()))
	if err := r.db.Close(); err != nil {
		r.log.Error("Error closing database connection", zap.Error(err))
		return err
	}
	return nil
}
