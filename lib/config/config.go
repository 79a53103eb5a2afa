// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "CHECKIN_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development against a local API.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for devices at the door.
	Production Environment = "production"
)

// Config is the master configuration.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// API configures the event REST API.
	API APIConfig `yaml:"api"`

	// Realtime configures the check-in notification channel.
	Realtime RealtimeConfig `yaml:"realtime"`

	// Sync configures background ticket refreshes.
	Sync SyncConfig `yaml:"sync"`

	// Checkin configures check-in attempts.
	Checkin CheckinConfig `yaml:"checkin"`

	// Logging configures the process logger.
	Logging LoggingConfig `yaml:"logging"`

	// Per-environment overrides, applied after the base config.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per
// environment. Zero values leave the base value in place.
type ConfigOverrides struct {
	API      *APIConfig      `yaml:"api,omitempty"`
	Realtime *RealtimeConfig `yaml:"realtime,omitempty"`
	Sync     *SyncConfig     `yaml:"sync,omitempty"`
	Checkin  *CheckinConfig  `yaml:"checkin,omitempty"`
	Logging  *LoggingConfig  `yaml:"logging,omitempty"`
}

// APIConfig configures the event REST API.
type APIConfig struct {
	// BaseURL is the API root, e.g. https://events.example.edu/api.
	BaseURL string `yaml:"base_url"`

	// Token is the bearer token. Usually "${CHECKIN_TOKEN}".
	Token string `yaml:"token"`

	// Timeout bounds each request. Default: 15s
	Timeout time.Duration `yaml:"timeout"`
}

// RealtimeConfig configures the realtime channel.
type RealtimeConfig struct {
	// URL is the realtime service base URL.
	URL string `yaml:"url"`

	// Namespace is the endpoint path on the service. Default: /checkin
	Namespace string `yaml:"namespace"`

	// Encoding is the frame encoding: json or cbor. Default: json
	Encoding string `yaml:"encoding"`

	// InitialBackoff is the wait after the first failure. Default: 1s
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// MaxBackoff caps the doubling backoff. Default: 5s
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// MaxAttempts is the number of consecutive failed dials before
	// the client stays disconnected. Default: 5 (production: 10)
	MaxAttempts int `yaml:"max_attempts"`

	// OutboundQueue is the per-connection outbound frame buffer.
	// Default: 64
	OutboundQueue int `yaml:"outbound_queue"`

	// HandshakeTimeout bounds the WebSocket upgrade. Default: 10s
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// SyncConfig configures ticket refreshes.
type SyncConfig struct {
	// RefreshInterval is the period of background refreshes.
	// Default: 60s
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// MinRefreshInterval limits on-demand refreshes. Default: 5s
	MinRefreshInterval time.Duration `yaml:"min_refresh_interval"`
}

// CheckinConfig configures check-in attempts.
type CheckinConfig struct {
	// AttemptTimeout bounds one attempt. Default: 15s
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error. Default: info
	Level string `yaml:"level"`
}

// Default returns the default configuration. The defaults point at a
// local development API.
func Default() *Config {
	return &Config{
		Environment: Development,
		API: APIConfig{
			BaseURL: "http://localhost:3000/api",
			Timeout: 15 * time.Second,
		},
		Realtime: RealtimeConfig{
			URL:              "http://localhost:3000",
			Namespace:        "/checkin",
			Encoding:         "json",
			InitialBackoff:   1 * time.Second,
			MaxBackoff:       5 * time.Second,
			MaxAttempts:      5,
			OutboundQueue:    64,
			HandshakeTimeout: 10 * time.Second,
		},
		Sync: SyncConfig{
			RefreshInterval:    60 * time.Second,
			MinRefreshInterval: 5 * time.Second,
		},
		Checkin: CheckinConfig{
			AttemptTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the CHECKIN_CONFIG environment
// variable. There are no fallbacks: if it is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your checkin.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current
// config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so the same decoder (and its
		// duration handling) serves both once comments are stripped.
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: quieter logs, more patient reconnects.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Realtime: &RealtimeConfig{MaxAttempts: 10},
				Logging:  &LoggingConfig{Level: "warn"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.API != nil {
		setString(&c.API.BaseURL, overrides.API.BaseURL)
		setString(&c.API.Token, overrides.API.Token)
		setDuration(&c.API.Timeout, overrides.API.Timeout)
	}

	if overrides.Realtime != nil {
		setString(&c.Realtime.URL, overrides.Realtime.URL)
		setString(&c.Realtime.Namespace, overrides.Realtime.Namespace)
		setString(&c.Realtime.Encoding, overrides.Realtime.Encoding)
		setDuration(&c.Realtime.InitialBackoff, overrides.Realtime.InitialBackoff)
		setDuration(&c.Realtime.MaxBackoff, overrides.Realtime.MaxBackoff)
		setInt(&c.Realtime.MaxAttempts, overrides.Realtime.MaxAttempts)
		setInt(&c.Realtime.OutboundQueue, overrides.Realtime.OutboundQueue)
		setDuration(&c.Realtime.HandshakeTimeout, overrides.Realtime.HandshakeTimeout)
	}

	if overrides.Sync != nil {
		setDuration(&c.Sync.RefreshInterval, overrides.Sync.RefreshInterval)
		setDuration(&c.Sync.MinRefreshInterval, overrides.Sync.MinRefreshInterval)
	}

	if overrides.Checkin != nil {
		setDuration(&c.Checkin.AttemptTimeout, overrides.Checkin.AttemptTimeout)
	}

	if overrides.Logging != nil {
		setString(&c.Logging.Level, overrides.Logging.Level)
	}
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func setDuration(target *time.Duration, value time.Duration) {
	if value != 0 {
		*target = value
	}
}

func setInt(target *int, value int) {
	if value != 0 {
		*target = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in the token and
// service URLs.
func (c *Config) expandVariables() {
	c.API.BaseURL = expandVars(c.API.BaseURL)
	c.API.Token = expandVars(c.API.Token)
	c.Realtime.URL = expandVars(c.Realtime.URL)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration for errors. Every problem found is
// reported, not just the first.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if err := validateURL(c.API.BaseURL, "http", "https"); err != nil {
		errs = append(errs, fmt.Errorf("api.base_url: %w", err))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}

	if err := validateURL(c.Realtime.URL, "http", "https", "ws", "wss"); err != nil {
		errs = append(errs, fmt.Errorf("realtime.url: %w", err))
	}
	if c.Realtime.Encoding != "json" && c.Realtime.Encoding != "cbor" {
		errs = append(errs, fmt.Errorf("realtime.encoding must be json or cbor, got %q", c.Realtime.Encoding))
	}
	if c.Realtime.InitialBackoff <= 0 {
		errs = append(errs, errors.New("realtime.initial_backoff must be positive"))
	}
	if c.Realtime.MaxBackoff < c.Realtime.InitialBackoff {
		errs = append(errs, fmt.Errorf("realtime.max_backoff (%s) is less than realtime.initial_backoff (%s)",
			c.Realtime.MaxBackoff, c.Realtime.InitialBackoff))
	}
	if c.Realtime.MaxAttempts <= 0 {
		errs = append(errs, errors.New("realtime.max_attempts must be positive"))
	}
	if c.Realtime.OutboundQueue <= 0 {
		errs = append(errs, errors.New("realtime.outbound_queue must be positive"))
	}

	if c.Sync.RefreshInterval <= 0 {
		errs = append(errs, errors.New("sync.refresh_interval must be positive"))
	}
	if c.Sync.MinRefreshInterval <= 0 || c.Sync.MinRefreshInterval > c.Sync.RefreshInterval {
		errs = append(errs, errors.New("sync.min_refresh_interval must be positive and at most sync.refresh_interval"))
	}

	if c.Checkin.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("checkin.attempt_timeout must be positive"))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateURL(raw string, schemes ...string) error {
	if raw == "" {
		return errors.New("required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, scheme := range schemes {
		if parsed.Scheme == scheme {
			if parsed.Host == "" {
				return fmt.Errorf("%q has no host", raw)
			}
			return nil
		}
	}
	return fmt.Errorf("%q must use one of %v", raw, schemes)
}

// LogLevel parses logging.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
