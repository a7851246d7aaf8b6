package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGraph(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateGraph() error {
	if c.Graph.ClientID == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/notedump/config.toml"
		}
		return fmt.Errorf("graph.client_id is required. Set NOTEDUMP_CLIENT_ID env var or edit %s (create with 'notedump config init')", defaultPath)
	}
	if c.Graph.BaseURL == "" {
		return errors.New("graph.base_url must be set")
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.Concurrency > 16 {
		return errors.New("export.concurrency must be at most 16 to respect Graph API rate limits")
	}
	if c.Export.MaxRetries > 20 {
		return errors.New("export.max_retries must be at most 20")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
