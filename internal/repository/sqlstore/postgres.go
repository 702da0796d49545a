package sqlstore

import (
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type postgresDialect struct{}

func (postgresDialect) Name() string { return "PostgreSQL" }

func (postgresDialect) DriverName() string { return "pgx" }

func (postgresDialect) InsertReturnsID() bool { return true }

// Rebind turns each '?' into $1, $2, ... in order of appearance.
// Queries in this package never carry '?' inside string literals.
func (postgresDialect) Rebind(query string) string {
	var (
		sb strings.Builder
		n  int
	)
	sb.Grow(len(query) + 8)
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

func (postgresDialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS opens (
			id         BIGSERIAL PRIMARY KEY,
			uid        TEXT,
			timestamp  TEXT,
			ip         TEXT,
			user_agent TEXT,
			synced     INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS clicks (
			id        BIGSERIAL PRIMARY KEY,
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
