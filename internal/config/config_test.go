package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultsVersion, cfg.Version)
	assert.Equal(t, 4000, cfg.Fuzzy.WindowTokens)
	assert.Equal(t, 0.85, cfg.Fuzzy.MinAccept)
	assert.Equal(t, 0.78, cfg.Fuzzy.WarnAccept)
	assert.Equal(t, 0.50, cfg.Fuzzy.Weights.TokenSim)
	assert.Equal(t, 1000, cfg.Fuzzy.Fallback.ExpandWindow)
	assert.False(t, cfg.Remote.Enabled)
	assert.Equal(t, 5, cfg.Remote.MaxWorkers)
	assert.Equal(t, 3, cfg.Remote.MaxRetries)
	assert.Equal(t, int64(100), cfg.PadMS)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero window", func(c *Config) { c.Fuzzy.WindowTokens = 0 }, "window_tokens"},
		{"min_accept above one", func(c *Config) { c.Fuzzy.MinAccept = 1.2 }, "min_accept"},
		{"warn above min", func(c *Config) { c.Fuzzy.WarnAccept = 0.9 }, "warn_accept"},
		{"ratio above 100", func(c *Config) { c.Fuzzy.TokenRatio = 120 }, "token_ratio"},
		{"negative weight", func(c *Config) { c.Fuzzy.Weights.Coverage = -0.1 }, "coverage"},
		{"all weights zero", func(c *Config) { c.Fuzzy.Weights = Weights{} }, "sum to zero"},
		{"zero workers", func(c *Config) { c.Remote.MaxWorkers = 0 }, "max_workers"},
		{"zero retries", func(c *Config) { c.Remote.MaxRetries = 0 }, "max_retries"},
		{"floor above one", func(c *Config) { c.Remote.ConfidenceFloor = 2 }, "confidence_floor"},
		{"negative pad", func(c *Config) { c.PadMS = -1 }, "pad_ms"},
		{
			"enabled without context window",
			func(c *Config) { c.Remote.Enabled = true; c.Remote.ContextWords = 0 },
			"context_words",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readalign.yaml")
	body := `
fuzzy:
  min_accept: 0.9
  warn_accept: 0.8
remote:
  enabled: true
  model: grok-3-mini
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Fuzzy.MinAccept)
	assert.Equal(t, 0.8, cfg.Fuzzy.WarnAccept)
	assert.True(t, cfg.Remote.Enabled)
	assert.Equal(t, "grok-3-mini", cfg.Remote.Model)
	assert.Equal(t, 4000, cfg.Fuzzy.WindowTokens, "untouched fields keep defaults")
	assert.Equal(t, "https://api.x.ai/v1", cfg.Remote.BaseURL)
}

func TestLoadRejectsInvalidOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readalign.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fuzzy:\n  min_accept: 1.5\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_accept")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
