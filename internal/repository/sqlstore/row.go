package sqlstore

import (
	"database/sql"
	"time"

	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
)

// openRow mirrors the opens table. Text columns are nullable because rows
// written by older deployments may lack them.
type openRow struct {
	ID        int64
	UID       sql.NullString
	Timestamp sql.NullString
	IP        sql.NullString
	UserAgent sql.NullString
	Synced    sql.NullInt64
}

func (r *openRow) toEvent() (domain.OpenEvent, error) {
	ts, err := parseNullTimestamp(r.Timestamp)
	if err != nil {
		return domain.OpenEvent{}, err
	}
	return domain.OpenEvent{
		ID:        r.ID,
		UID:       r.UID.String,
		Timestamp: ts,
		IP:        r.IP.String,
		UserAgent: r.UserAgent.String,
		Synced:    r.Synced.Int64 != 0,
	}, nil
}

type clickRow struct {
	ID        int64
	UID       sql.NullString
	URL       sql.NullString
	Timestamp sql.NullString
	IP        sql.NullString
	Synced    sql.NullInt64
}

func (r *clickRow) toEvent() (domain.ClickEvent, error) {
	ts, err := parseNullTimestamp(r.Timestamp)
	if err != nil {
		return domain.ClickEvent{}, err
	}
	return domain.ClickEvent{
		ID:        r.ID,
		UID:       r.UID.String,
		URL:       r.URL.String,
		Timestamp: ts,
		IP:        r.IP.String,
		Synced:    r.Synced.Int64 != 0,
	}, nil
}

func parseNullTimestamp(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return domain.ParseTimestamp(s.String)
}
