// Package config loads the static application configuration from
// ~/.geminidesk/config.toml (or config.yaml). User-facing preferences
// live in the settings package instead.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultHomeURL is the canonical page the app opens and returns to
const DefaultHomeURL = "https://gemini.google.com/app"

// Config is the static application configuration
type Config struct {
	Webview WebviewConfig `toml:"webview" yaml:"webview"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Window  WindowConfig  `toml:"window" yaml:"window"`
}

// WebviewConfig holds the hosted page URL and controller timings
type WebviewConfig struct {
	HomeURL string `toml:"home_url" yaml:"home_url"`

	// PollIntervalMs is how often readiness polling queries the page
	PollIntervalMs int `toml:"poll_interval_ms" yaml:"poll_interval_ms"`

	// ReadinessTimeoutMs bounds a readiness polling run
	ReadinessTimeoutMs int `toml:"readiness_timeout_ms" yaml:"readiness_timeout_ms"`

	QueryTimeoutMs      int `toml:"query_timeout_ms" yaml:"query_timeout_ms"`
	RedispatchDelayMs   int `toml:"redispatch_delay_ms" yaml:"redispatch_delay_ms"`
	CompositionWindowMs int `toml:"composition_window_ms" yaml:"composition_window_ms"`

	// RedispatchGuardMs is the longest a synthetic Enter stays marked as ours
	RedispatchGuardMs int `toml:"redispatch_guard_ms" yaml:"redispatch_guard_ms"`

	// NavigationTimeoutMs is how long a load may take before it is reported failed
	NavigationTimeoutMs int `toml:"navigation_timeout_ms" yaml:"navigation_timeout_ms"`
}

// LoggingConfig controls the log file
type LoggingConfig struct {
	Dir         string `toml:"dir" yaml:"dir"`
	Level       string `toml:"level" yaml:"level"`
	MaxAgeHours int    `toml:"max_age_hours" yaml:"max_age_hours"`
	JSON        bool   `toml:"json" yaml:"json"`
	Dev         bool   `toml:"dev" yaml:"dev"`
}

// WindowConfig holds the initial window size
type WindowConfig struct {
	Width       int  `toml:"width" yaml:"width"`
	Height      int  `toml:"height" yaml:"height"`
	StartHidden bool `toml:"start_hidden" yaml:"start_hidden"`
}

// Dir returns ~/.geminidesk
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".geminidesk"), nil
}

// Default returns the built-in configuration
func Default() *Config {
	logDir := ""
	if dir, err := Dir(); err == nil {
		logDir = filepath.Join(dir, "logs")
	}
	return &Config{
		Webview: WebviewConfig{
			HomeURL:             DefaultHomeURL,
			PollIntervalMs:      200,
			ReadinessTimeoutMs:  30000,
			QueryTimeoutMs:      1000,
			RedispatchDelayMs:   50,
			CompositionWindowMs: 500,
			RedispatchGuardMs:   250,
			NavigationTimeoutMs: 45000,
		},
		Logging: LoggingConfig{
			Dir:         logDir,
			Level:       "info",
			MaxAgeHours: 72,
			JSON:        true,
		},
		Window: WindowConfig{
			Width:  1000,
			Height: 760,
		},
	}
}

// Duration converts a millisecond setting
func Duration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// ApplyEnvOverrides applies GEMINIDESK_* environment variables
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("GEMINIDESK_HOME_URL"); v != "" {
		c.Webview.HomeURL = v
	}
	if v := os.Getenv("GEMINIDESK_DEV"); v != "" {
		if dev, err := strconv.ParseBool(v); err == nil {
			c.Logging.Dev = dev
			if dev {
				c.Logging.Level = "debug"
			}
		}
	}
	if v := os.Getenv("GEMINIDESK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// ValidationError lists the values that were replaced by defaults
type ValidationError struct {
	Warnings []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Warnings, "; ")
}

// Validate replaces invalid values with defaults and reports what it changed
func (c *Config) Validate() *ValidationError {
	def := Default()
	var warnings []string

	if u, err := url.Parse(c.Webview.HomeURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		warnings = append(warnings, fmt.Sprintf("invalid home_url %q, using %s", c.Webview.HomeURL, def.Webview.HomeURL))
		c.Webview.HomeURL = def.Webview.HomeURL
	}

	clamp := func(name string, v *int, lo, hi, fallback int) {
		if *v < lo || *v > hi {
			warnings = append(warnings, fmt.Sprintf("invalid %s %d (must be %d-%d), using %d", name, *v, lo, hi, fallback))
			*v = fallback
		}
	}
	w := &c.Webview
	clamp("poll_interval_ms", &w.PollIntervalMs, 20, 5000, def.Webview.PollIntervalMs)
	clamp("readiness_timeout_ms", &w.ReadinessTimeoutMs, 1000, 300000, def.Webview.ReadinessTimeoutMs)
	clamp("query_timeout_ms", &w.QueryTimeoutMs, 50, 30000, def.Webview.QueryTimeoutMs)
	clamp("redispatch_delay_ms", &w.RedispatchDelayMs, 0, 1000, def.Webview.RedispatchDelayMs)
	clamp("redispatch_guard_ms", &w.RedispatchGuardMs, 50, 5000, def.Webview.RedispatchGuardMs)
	clamp("composition_window_ms", &w.CompositionWindowMs, 50, 5000, def.Webview.CompositionWindowMs)
	clamp("navigation_timeout_ms", &w.NavigationTimeoutMs, 5000, 600000, def.Webview.NavigationTimeoutMs)
	clamp("logging.max_age_hours", &c.Logging.MaxAgeHours, 1, 24*90, def.Logging.MaxAgeHours)
	clamp("window.width", &c.Window.Width, 400, 10000, def.Window.Width)
	clamp("window.height", &c.Window.Height, 300, 10000, def.Window.Height)

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("invalid logging.level %q, using info", c.Logging.Level))
		c.Logging.Level = "info"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = def.Logging.Dir
	}

	if len(warnings) > 0 {
		return &ValidationError{Warnings: warnings}
	}
	return nil
}
