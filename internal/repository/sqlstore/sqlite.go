package sqlstore

import (
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "SQLite" }

func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) InsertReturnsID() bool { return false }

func (sqliteDialect) Rebind(query string) string { return query }

// AUTOINCREMENT keeps ids from being reused after the highest row is removed.
func (sqliteDialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS opens (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			uid        TEXT,
			timestamp  TEXT,
			ip         TEXT,
			user_agent TEXT,
			synced     INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS clicks (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			uid       TEXT,
			url       TEXT,
			timestamp TEXT,
			ip        TEXT,
			synced    INTEGER DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_opens_uid ON opens(uid)`,
		`CREATE INDEX IF NOT EXISTS idx_opens_synced ON opens(synced)`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_synced ON clicks(synced)`,
	}
}

// sqliteDSN builds a URI with WAL, a busy timeout and immediate write
// transactions so concurrent MarkSynced calls queue instead of failing.
func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?mode=rwc&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate",
		url.PathEscape(path))
}
