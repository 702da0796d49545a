package domain

import (
	"fmt"
	"time"
)

// TimestampLayout is the on-disk timestamp format. It is fixed width, so
// comparing stored strings orders them chronologically.
const TimestampLayout = "2006-01-02 15:04:05"

// UnknownUID is recorded when a request carries no uid.
const UnknownUID = "unknown"

// MaxUserAgentLength caps the stored user agent, in characters.
const MaxUserAgentLength = 500

// Table names one of the event tables
type Table string

const (
	TableOpens  Table = "opens"
	TableClicks Table = "clicks"
)

// Valid reports whether t is a known event table
func (t Table) Valid() bool {
	return t == TableOpens || t == TableClicks
}

func (t Table) String() string {
	return string(t)
}

// ParseTable maps a user supplied name onto a Table
func ParseTable(name string) (Table, error) {
	t := Table(name)
	if !t.Valid() {
		return "", fmt.Errorf("unknown table %q (supported: opens, clicks)", name)
	}
	return t, nil
}

// OpenEvent represents a tracking pixel fetch
type OpenEvent struct {
	ID        int64
	UID       string
	Timestamp time.Time
	IP        string
	UserAgent string
	Synced    bool
}

// ClickEvent represents a tracked link redirect
type ClickEvent struct {
	ID        int64
	UID       string
	URL       string
	Timestamp time.Time
	IP        string
	Synced    bool
}

// Notification announces a freshly appended event to queue subscribers
type Notification struct {
	Table     Table     `json:"table"`
	ID        int64     `json:"id"`
	UID       string    `json:"uid"`
	Timestamp time.Time `json:"timestamp"`
}

// FormatTimestamp renders t in the storage layout using the local clock.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// ParseTimestamp reads a stored timestamp back in local time.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
