// Package config holds the runtime configuration of the pagekeeper agent:
// which page to open, which URLs count as the target application, and how
// the browser is started.
//
// The feature toggles are not part of this configuration. They live in the
// settings store, where the options editor and the running agent share them.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoURL is returned by Validate when no start URL is configured.
var ErrNoURL = errors.New("url is required")

// DefaultMatch is the URL pattern of the target application.
const DefaultMatch = "https://*.piyovi.io/**"

// Config is the agent configuration, usually read from a YAML file.
type Config struct {
	// URL is the page the agent opens.
	URL string `yaml:"url" json:"url"`

	// Match lists the glob patterns of the pages the agent patches. '/'
	// separates segments: '*' stays within one, '**' crosses them.
	Match []string `yaml:"match" json:"match"`

	// Exclude lists patterns of pages to leave alone even when they match.
	Exclude []string `yaml:"exclude" json:"exclude"`

	// SettingsPath is the settings file. Empty means ~/.pagekeeper/settings.json.
	SettingsPath string `yaml:"settings_path" json:"settings_path"`

	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// MetricsAddr is the listen address of the Prometheus endpoint. Empty
	// disables it.
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig controls the browser the agent drives.
type BrowserConfig struct {
	Headless bool           `yaml:"headless" json:"headless"`
	Viewport ViewportConfig `yaml:"viewport" json:"viewport"`

	// Timeout bounds navigation and page calls.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// StorageState is a playwright storage state file used to start the
	// browser already logged in.
	StorageState string `yaml:"storage_state" json:"storage_state"`
}

// ViewportConfig is the page size in CSS pixels.
type ViewportConfig struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// DefaultConfig returns a configuration with default values. URL is left
// empty; there is no sensible default page.
func DefaultConfig() *Config {
	return &Config{
		Match: []string{DefaultMatch},
		Browser: BrowserConfig{
			Headless: false,
			Viewport: ViewportConfig{Width: 1440, Height: 900},
			Timeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// LoadFile reads a YAML configuration file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrNoURL
	}

	if len(c.Match) == 0 {
		return fmt.Errorf("at least one match pattern is required")
	}
	if _, err := c.Matcher(); err != nil {
		return err
	}

	if c.Browser.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.Browser.Viewport.Width < 0 || c.Browser.Viewport.Height < 0 {
		return fmt.Errorf("viewport cannot be negative")
	}

	switch c.Logging.Verbosity {
	case "":
		c.Logging.Verbosity = "normal"
	case "quiet", "normal", "debug":
	default:
		return fmt.Errorf("invalid verbosity: %s (must be 'quiet', 'normal' or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// Matcher compiles the match and exclude patterns.
func (c *Config) Matcher() (*URLMatcher, error) {
	return NewURLMatcher(c.Match, c.Exclude)
}
