package testsupport

import (
	"path/filepath"
	"testing"

	"notedump/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Graph.ClientID = "test-client"
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.TokenPath = filepath.Join(base, "token.json")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithGraphBaseURL points the config at a test server.
func WithGraphBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Graph.BaseURL = url
	}
}
