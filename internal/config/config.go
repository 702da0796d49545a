package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Database backend kinds
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Service   Service
	Database  Database
	Sync      Sync
	SQS       SQS
	CORS      CORS
	RateLimit RateLimit `envconfig:"RATE_LIMIT"`

	// PlatformPort is set by hosting platforms and wins over Service.APIPort.
	PlatformPort string `envconfig:"PORT"`
}

type Service struct {
	Environment        string `envconfig:"ENVIRONMENT" default:"development"`
	APIPort            string `envconfig:"API_PORT" default:"5000"`
	ShutdownTimeoutSec int    `envconfig:"SHUTDOWN_TIMEOUT_SEC" default:"10"`
}

type Database struct {
	Driver             string `envconfig:"DRIVER"`
	URL                string `envconfig:"URL"`
	SQLitePath         string `envconfig:"SQLITE_PATH" default:"tracker.db"`
	MaxOpenConns       int    `envconfig:"MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns       int    `envconfig:"MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetimeSec int    `envconfig:"CONN_MAX_LIFETIME_SEC" default:"3600"`
	QueryTimeoutSec    int    `envconfig:"QUERY_TIMEOUT_SEC" default:"10"`
}

type Sync struct {
	DefaultLimit int `envconfig:"DEFAULT_LIMIT" default:"1000"`
	MaxLimit     int `envconfig:"MAX_LIMIT" default:"10000"`
}

type SQS struct {
	QueueURL string `envconfig:"QUEUE_URL"`
	Region   string `envconfig:"REGION" default:"us-east-1"`
	Endpoint string `envconfig:"ENDPOINT"`
}

type CORS struct {
	AllowOrigins []string `envconfig:"ALLOW_ORIGINS" default:"*"`
}

type RateLimit struct {
	Enabled bool    `envconfig:"ENABLED" default:"true"`
	RPS     float64 `envconfig:"RPS" default:"20"`
	Burst   int     `envconfig:"BURST" default:"40"`

	// TrustedProxies may set X-Forwarded-For for the limiter key. Empty
	// means the peer address is the key.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
}

// ClientConfig configures trackctl and other sync API clients.
type ClientConfig struct {
	ServerURL  string `envconfig:"URL" default:"http://localhost:5000"`
	TimeoutSec int    `envconfig:"TIMEOUT_SEC" default:"30"`
	BatchSize  int    `envconfig:"BATCH_SIZE" default:"500"`

	// SQS, when QueueURL is set, lets drain --follow wake on append
	// notifications instead of waiting for the next tick.
	SQS SQS

	// ClickHouse is the warehouse behind drain --sink clickhouse.
	ClickHouse ClickHouse
}

type ClickHouse struct {
	Host               string `envconfig:"HOST"`
	Port               string `envconfig:"PORT" default:"9000"`
	Database           string `envconfig:"DB" default:"default"`
	User               string `envconfig:"USER" default:"default"`
	Password           string `envconfig:"PASSWORD"`
	UseTLS             bool   `envconfig:"USE_TLS" default:"false"`
	MaxOpenConns       int    `envconfig:"MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns       int    `envconfig:"MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetimeSec int    `envconfig:"CONN_MAX_LIFETIME_SEC" default:"3600"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadClient reads TRACKER_* variables.
func LoadClient() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.Process("TRACKER", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process client config: %w", err)
	}
	return &cfg, nil
}

// resolve fixes the backend kind once; nothing downstream inspects the
// environment again.
func (c *Config) resolve() error {
	driver := strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if driver == "" {
		if c.Database.URL != "" {
			driver = DriverPostgres
		} else {
			driver = DriverSQLite
		}
	}

	switch driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for driver %q", driver)
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("DATABASE_SQLITE_PATH is required for driver %q", driver)
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (supported: postgres, sqlite)", c.Database.Driver)
	}
	c.Database.Driver = driver

	if c.Sync.DefaultLimit <= 0 {
		return fmt.Errorf("SYNC_DEFAULT_LIMIT must be positive, got %d", c.Sync.DefaultLimit)
	}
	if c.Sync.MaxLimit < c.Sync.DefaultLimit {
		return fmt.Errorf("SYNC_MAX_LIMIT (%d) must not be below SYNC_DEFAULT_LIMIT (%d)", c.Sync.MaxLimit, c.Sync.DefaultLimit)
	}

	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	if c.PlatformPort != "" {
		return ":" + c.PlatformPort
	}
	return ":" + c.Service.APIPort
}

func (d Database) QueryTimeout() time.Duration {
	return time.Duration(d.QueryTimeoutSec) * time.Second
}

func (d Database) ConnMaxLifetime() time.Duration {
	return time.Duration(d.ConnMaxLifetimeSec) * time.Second
}

func (s Service) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSec) * time.Second
}

func (c ClickHouse) Addr() string {
	return c.Host + ":" + c.Port
}

func (c ClickHouse) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeSec) * time.Second
}

func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
