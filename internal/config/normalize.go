package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGraph()
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TokenPath) == "" {
		c.Paths.TokenPath = defaultTokenPath
	}
	if c.Paths.TokenPath, err = expandPath(c.Paths.TokenPath); err != nil {
		return fmt.Errorf("paths.token_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeGraph() {
	if c.Graph.ClientID == "" {
		if value, ok := os.LookupEnv("NOTEDUMP_CLIENT_ID"); ok {
			c.Graph.ClientID = strings.TrimSpace(value)
		}
	}
	c.Graph.ClientID = strings.TrimSpace(c.Graph.ClientID)
	c.Graph.BaseURL = strings.TrimRight(strings.TrimSpace(c.Graph.BaseURL), "/")
	if c.Graph.BaseURL == "" {
		c.Graph.BaseURL = defaultGraphBaseURL
	}
	c.Graph.AuthURL = strings.TrimSpace(c.Graph.AuthURL)
	if c.Graph.AuthURL == "" {
		c.Graph.AuthURL = defaultAuthURL
	}
	c.Graph.TokenURL = strings.TrimSpace(c.Graph.TokenURL)
	if c.Graph.TokenURL == "" {
		c.Graph.TokenURL = defaultTokenURL
	}
	c.Graph.RedirectURL = strings.TrimSpace(c.Graph.RedirectURL)
	if c.Graph.RedirectURL == "" {
		c.Graph.RedirectURL = defaultRedirectURL
	}
	if c.Graph.RequestTimeout <= 0 {
		c.Graph.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeExport() {
	if c.Export.Concurrency <= 0 {
		c.Export.Concurrency = defaultConcurrency
	}
	if c.Export.MaxRetries <= 0 {
		c.Export.MaxRetries = defaultMaxRetries
	}
	if c.Export.MaxRateLimitWait <= 0 {
		c.Export.MaxRateLimitWait = defaultMaxRateLimitWait
	}
	if c.Export.QueueDepthFactor <= 0 {
		c.Export.QueueDepthFactor = defaultQueueDepthFactor
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
