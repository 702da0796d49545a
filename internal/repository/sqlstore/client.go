package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/config"
)

const pingTimeout = 5 * time.Second

// Open connects to the configured backend and returns a repository bound to
// it. The dialect is chosen here, once; callers only see the repository.
func Open(ctx context.Context, cfg config.Database, log *zap.Logger, opts ...Option) (*Repository, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.URL
	if cfg.Driver == config.DriverSQLite {
		dsn = sqliteDSN(cfg.SQLitePath)
	}

	log.Info("Connecting to database",
		zap.String("backend", dialect.Name()),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("query_timeout_sec", cfg.QueryTimeoutSec))

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		log.Error("Failed to open database", zap.Error(err))
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Name(), err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime())
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Error("Failed to ping database", zap.String("backend", dialect.Name()), zap.Error(err))
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect.Name(), err)
	}

	log.Info("Database connection established successfully", zap.String("backend", dialect.Name()))

	if cfg.QueryTimeoutSec > 0 {
		opts = append([]Option{WithQueryTimeout(cfg.QueryTimeout())}, opts...)
	}

	return NewRepository(db, dialect, log, opts...), nil
}
