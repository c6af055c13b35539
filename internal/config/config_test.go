package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 390, cfg.Browser.ViewportWidth)
	assert.Equal(t, 60*time.Second, cfg.Network.NavigationTimeout)
	assert.Equal(t, 3, cfg.Audit.Concurrency)
	assert.Equal(t, "markdown", cfg.Report.Format)
}

func TestNewConfigFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("logger.level", "debug")
	v.Set("audit.concurrency", 8)
	v.Set("report.format", "junit")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 8, cfg.Audit.Concurrency)
	assert.Equal(t, "junit", cfg.Report.Format)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		mutate func(c *Config)
	}{
		{"zero concurrency", func(c *Config) { c.Audit.Concurrency = 0 }},
		{"zero viewport", func(c *Config) { c.Browser.ViewportWidth = 0 }},
		{"zero navigation timeout", func(c *Config) { c.Network.NavigationTimeout = 0 }},
		{"zero visit rate", func(c *Config) { c.Network.VisitsPerSecond = 0 }},
		{"unknown report format", func(c *Config) { c.Report.Format = "pdf" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabasePath(t *testing.T) {
	s := StoreConfig{Path: "/tmp/custom.db"}
	path, err := s.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", path)

	s = StoreConfig{DataDir: "/var/lib/navlens"}
	path, err = s.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/var/lib/navlens", "navlens.db"), path)
}
