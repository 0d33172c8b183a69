// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"viva/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.TemplateDir = ""
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Voice.APIKey = "test"
	cfg.Voice.WebhookSecret = "test-secret"
	cfg.Scorer.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMinCallSeconds overrides the exclusion threshold on the test config.
func WithMinCallSeconds(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Grading.MinCallSeconds = seconds
	}
}

// WithGracePeriodSeconds overrides the recovery grace window.
func WithGracePeriodSeconds(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Recovery.GracePeriodSeconds = seconds
	}
}
