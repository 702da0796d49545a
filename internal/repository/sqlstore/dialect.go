// Package sqlstore implements repository.EventRepository on database/sql.
// Engine differences (driver, placeholders, id assignment, DDL) live behind
// Dialect, so the query logic is shared by every backend.
package sqlstore

import (
	"fmt"

	"github.com/Wenjie0329/email-pitch-tool/internal/config"
)

// Dialect captures what differs between relational engines
type Dialect interface {
	// Name is the human readable engine name
	Name() string

	// DriverName is the database/sql driver to open
	DriverName() string

	// Rebind rewrites '?' placeholders into the engine's syntax
	Rebind(query string) string

	// InsertReturnsID reports whether inserts use RETURNING id instead of LastInsertId
	InsertReturnsID() bool

	// Schema lists idempotent DDL statements
	Schema() []string
}

// DialectFor maps a configured driver onto its dialect
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPostgres:
		return postgresDialect{}, nil
	case config.DriverSQLite:
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
