package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wenjie0329/email-pitch-tool/internal/config"
	"github.com/Wenjie0329/email-pitch-tool/internal/consumer"
	"github.com/Wenjie0329/email-pitch-tool/internal/dto"
)

func TestEventRows(t *testing.T) {
	batch := consumer.Batch{
		Opens: []dto.OpenRecord{
			{ID: 1, UID: "a", Timestamp: "2026-01-02 15:04:05", IP: "203.0.113.7", UserAgent: "Mail/1.0"},
		},
		Clicks: []dto.ClickRecord{
			{ID: 9, UID: "b", URL: "https://x", Timestamp: "2026-01-02 15:05:00", IP: "198.51.100.1"},
		},
	}

	rows, err := eventRows(batch, 42)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, consumer.KindOpen, rows[0].Kind)
	assert.Equal(t, int64(1), rows[0].EventID)
	assert.Equal(t, "Mail/1.0", rows[0].UserAgent)
	assert.Empty(t, rows[0].URL)
	assert.Equal(t, time.Date(2026, 1, 2, 15, 4, 5, 0, time.Local), rows[0].Timestamp)

	assert.Equal(t, consumer.KindClick, rows[1].Kind)
	assert.Equal(t, int64(9), rows[1].EventID)
	assert.Equal(t, "https://x", rows[1].URL)
	assert.Empty(t, rows[1].UserAgent)

	for _, row := range rows {
		assert.Equal(t, uint64(42), row.Version)
	}
}

func TestEventRows_Empty(t *testing.T) {
	rows, err := eventRows(consumer.Batch{}, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEventRows_BadTimestamp(t *testing.T) {
	_, err := eventRows(consumer.Batch{
		Clicks: []dto.ClickRecord{{ID: 3, Timestamp: "yesterday"}},
	}, 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "click 3")
}

func TestEventRows_MissingTimestamp(t *testing.T) {
	rows, err := eventRows(consumer.Batch{
		Opens: []dto.OpenRecord{
			{ID: 1, Timestamp: ""},
			{ID: 2, Timestamp: "2026-01-02 15:04:05"},
		},
		Clicks: []dto.ClickRecord{{ID: 3, URL: "https://x"}},
	}, 1)

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, time.Unix(0, 0), rows[0].Timestamp)
	assert.Equal(t, time.Date(2026, 1, 2, 15, 4, 5, 0, time.Local), rows[1].Timestamp)
	assert.Equal(t, time.Unix(0, 0), rows[2].Timestamp)
}

func TestOptions(t *testing.T) {
	opts := options(config.ClickHouse{
		Host:               "warehouse",
		Port:               "9440",
		Database:           "tracking",
		User:               "exporter",
		Password:           "secret",
		UseTLS:             true,
		MaxOpenConns:       5,
		MaxIdleConns:       2,
		ConnMaxLifetimeSec: 60,
	})

	assert.Equal(t, []string{"warehouse:9440"}, opts.Addr)
	assert.Equal(t, "tracking", opts.Auth.Database)
	assert.Equal(t, "exporter", opts.Auth.Username)
	require.NotNil(t, opts.TLS)
	assert.Equal(t, time.Minute, opts.ConnMaxLifetime)

	opts = options(config.ClickHouse{Host: "warehouse", Port: "9000"})
	assert.Nil(t, opts.TLS)
}
