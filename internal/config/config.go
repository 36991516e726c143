package config

import "time"

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// LedgerConfig holds repository settings.
type LedgerConfig struct {
	// MaxPageSize caps paged reads; larger requests are clamped.
	MaxPageSize int `yaml:"max_page_size" env:"LEDGER_MAX_PAGE_SIZE" env-default:"100"`
	// NotifyBuffer is the notification backlog above which a warning is logged.
	NotifyBuffer    int           `yaml:"notify_buffer"    env:"LEDGER_NOTIFY_BUFFER"    env-default:"256"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"LEDGER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	Addr    string `yaml:"addr"    env:"METRICS_ADDR"    env-default:":9090"`
	Path    string `yaml:"path"    env:"METRICS_PATH"    env-default:"/metrics"`
}
