// Package config loads the server configuration from a YAML file and
// supplies defaults for anything left unset.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lotboard/lotboard/internal/engine"
)

// Config is the full server configuration. All durations are expressed
// in whole seconds in the file.
type Config struct {
	// Listen is the HTTP listen address (host:port).
	Listen string `yaml:"listen"`

	// DBPath is the SQLite database file. Created on first start.
	DBPath string `yaml:"db_path"`

	// IdleTimeoutSeconds is how long a round may sit without a bid
	// before it auto-closes.
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`

	// Increments is the set of bid deltas the server accepts.
	Increments []int64 `yaml:"increments"`

	// PresenceExpirySeconds is how long a participant stays listed
	// after their last contact.
	PresenceExpirySeconds int `yaml:"presence_expiry_seconds"`

	// RefreshThrottleSeconds bounds how often a participant's presence
	// timestamp is rewritten.
	RefreshThrottleSeconds int `yaml:"refresh_throttle_seconds"`

	// CheckThrottleSeconds bounds how often polling reads run idle
	// close and presence sweep housekeeping.
	CheckThrottleSeconds int `yaml:"check_throttle_seconds"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:                 ":8700",
		DBPath:                 "lotboard.db",
		IdleTimeoutSeconds:     30,
		Increments:             []int64{1, 5, 10, 50, 100},
		PresenceExpirySeconds:  30,
		RefreshThrottleSeconds: 5,
		CheckThrottleSeconds:   1,
	}
}

// Load reads and parses a config YAML file. Missing fields fall back to
// Default values; unknown fields (typos) are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations that cannot run.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.IdleTimeoutSeconds <= 0 {
		return fmt.Errorf("idle_timeout_seconds must be positive, got %d", c.IdleTimeoutSeconds)
	}
	if len(c.Increments) == 0 {
		return fmt.Errorf("increments must not be empty")
	}
	for _, inc := range c.Increments {
		if inc <= 0 {
			return fmt.Errorf("increments must be positive, got %d", inc)
		}
	}
	if c.PresenceExpirySeconds <= 0 {
		return fmt.Errorf("presence_expiry_seconds must be positive, got %d", c.PresenceExpirySeconds)
	}
	if c.RefreshThrottleSeconds <= 0 {
		return fmt.Errorf("refresh_throttle_seconds must be positive, got %d", c.RefreshThrottleSeconds)
	}
	if c.CheckThrottleSeconds <= 0 {
		return fmt.Errorf("check_throttle_seconds must be positive, got %d", c.CheckThrottleSeconds)
	}
	return nil
}

// EngineConfig converts the file representation into engine tunables.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		IdleTimeout:     time.Duration(c.IdleTimeoutSeconds) * time.Second,
		Increments:      c.Increments,
		PresenceExpiry:  time.Duration(c.PresenceExpirySeconds) * time.Second,
		RefreshThrottle: time.Duration(c.RefreshThrottleSeconds) * time.Second,
		CheckThrottle:   time.Duration(c.CheckThrottleSeconds) * time.Second,
	}
}
