// Package config defines the navlens configuration surface: defaults,
// file/env loading via viper, and validation.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the root configuration, one section per subsystem.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Audit   AuditConfig   `mapstructure:"audit" yaml:"audit"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the console color for each log level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls the Chrome instances driving the audits.
type BrowserConfig struct {
	Headless        bool   `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool   `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	UserAgent       string `mapstructure:"user_agent" yaml:"user_agent"`
	// Mobile audits run in a phone-sized viewport; the mobile-nav
	// classifier depends on the page rendering its small-screen layout.
	ViewportWidth  int  `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int  `mapstructure:"viewport_height" yaml:"viewport_height"`
	Debug          bool `mapstructure:"debug" yaml:"debug"`
}

// NetworkConfig bounds page loading and visit pacing.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	// VisitsPerSecond rate-limits page visits across all sessions.
	VisitsPerSecond float64 `mapstructure:"visits_per_second" yaml:"visits_per_second"`
	VisitBurst      int     `mapstructure:"visit_burst" yaml:"visit_burst"`
}

// AuditConfig controls the audit run itself.
type AuditConfig struct {
	// Concurrency is the number of pages audited in parallel, one
	// browser session each.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// TargetsFile is a YAML file listing pages to audit, merged with
	// positional arguments.
	TargetsFile string `mapstructure:"targets_file" yaml:"targets_file"`
}

// StoreConfig locates the findings database.
type StoreConfig struct {
	// Path is the SQLite database file. Empty selects
	// <data_dir>/navlens.db.
	Path    string `mapstructure:"path" yaml:"path"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// ReportConfig controls report emission after a run.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// DatabasePath resolves the effective SQLite path, expanding a leading ~.
func (s StoreConfig) DatabasePath() (string, error) {
	if s.Path != "" {
		return homedir.Expand(s.Path)
	}
	dir, err := homedir.Expand(s.DataDir)
	if err != nil {
		return "", fmt.Errorf("resolving data directory: %w", err)
	}
	return filepath.Join(dir, "navlens.db"), nil
}

// SetDefaults initializes default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "navlens")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.viewport_width", 390)
	v.SetDefault("browser.viewport_height", 844)
	v.SetDefault("browser.debug", false)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "60s")
	v.SetDefault("network.post_load_wait", "2s")
	v.SetDefault("network.visits_per_second", 1.0)
	v.SetDefault("network.visit_burst", 2)

	// -- Audit --
	v.SetDefault("audit.concurrency", 3)

	// -- Store --
	v.SetDefault("store.data_dir", "~/.navlens")

	// -- Report --
	v.SetDefault("report.format", "markdown")
	v.SetDefault("report.output", "stdout")
}

// NewDefaultConfig returns a configuration populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper unmarshals and validates a configuration from the
// given viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Audit.Concurrency <= 0 {
		return fmt.Errorf("audit.concurrency must be a positive integer")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport dimensions must be positive")
	}
	if c.Network.NavigationTimeout <= 0 {
		return fmt.Errorf("network.navigation_timeout must be a positive duration")
	}
	if c.Network.VisitsPerSecond <= 0 {
		return fmt.Errorf("network.visits_per_second must be positive")
	}
	switch c.Report.Format {
	case "markdown", "md", "json", "junit":
	default:
		return fmt.Errorf("report.format must be one of markdown, json, junit")
	}
	return nil
}
