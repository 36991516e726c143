package config

import (
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("database.max_conns must be > 0 (got %d)", c.Database.MaxConns)
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns must be between 0 and max_conns (got %d)", c.Database.MinConns)
	}

	if err := c.Log.validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if c.Ledger.MaxPageSize <= 0 {
		return fmt.Errorf("ledger.max_page_size must be > 0 (got %d)", c.Ledger.MaxPageSize)
	}
	if c.Ledger.NotifyBuffer <= 0 {
		return fmt.Errorf("ledger.notify_buffer must be > 0 (got %d)", c.Ledger.NotifyBuffer)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with / (got %q)", c.Metrics.Path)
	}
	if c.Metrics.Path == "/livez" || c.Metrics.Path == "/readyz" {
		return fmt.Errorf("metrics.path %q is reserved for health checks", c.Metrics.Path)
	}

	return nil
}

func (l LogConfig) validate() error {
	switch strings.ToLower(l.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("format must be json or text (got %q)", l.Format)
	}
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error (got %q)", l.Level)
	}
	return nil
}
