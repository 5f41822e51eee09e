// Package config loads the protofito service configuration.
//
// Precedence, lowest to highest: built-in defaults, the YAML file,
// environment variables, command-line flags (applied by the caller).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hiral-chawra/Protofito/pkg/exercise"
	"github.com/hiral-chawra/Protofito/pkg/publish"
	"github.com/hiral-chawra/Protofito/pkg/reps"
	"github.com/hiral-chawra/Protofito/pkg/source"
	"github.com/hiral-chawra/Protofito/pkg/web"
)

// Environment variables read by ApplyEnv.
const (
	EnvPort       = "PORT"
	EnvLogLevel   = "LOG_LEVEL"
	EnvMQTTBroker = "MQTT_BROKER"
	EnvSource     = "PROTOFITO_SOURCE"
)

// Config is the full service configuration.
type Config struct {
	Server  web.Config     `yaml:"server"`
	Log     LogConfig      `yaml:"log"`
	Session SessionConfig  `yaml:"session"`
	Source  source.Config  `yaml:"source"`
	Publish publish.Config `yaml:"publish"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`

	// Format is text or json. Empty picks by GO_ENV.
	Format string `yaml:"format"`
}

// SessionConfig selects what is being tracked.
type SessionConfig struct {
	// Movement is a built-in movement name. Default: pushup
	Movement string `yaml:"movement"`

	// Variation is a catalog id shown to the user. Default: standard
	Variation string `yaml:"variation"`

	// Thresholds overrides the movement's classification angles.
	Thresholds *reps.Thresholds `yaml:"thresholds"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: web.DefaultConfig(),
		Log:    LogConfig{Level: "info"},
		Session: SessionConfig{
			Movement:  exercise.PushUp,
			Variation: "standard",
		},
		Source:  source.DefaultConfig(),
		Publish: publish.DefaultConfig(),
	}
}

// Load reads a YAML config file on top of the defaults. An empty path
// returns the defaults. Unknown fields are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := decode(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		// An empty document leaves the defaults in place.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document.
	var trailing yaml.Node
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config yaml: unexpected trailing document")
	}
	return nil
}

// ApplyEnv overrides fields from environment variables. getenv is
// normally os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvPort); v != "" {
		c.Server.Port = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvMQTTBroker); v != "" {
		c.Source.MQTT.Broker = v
		c.Publish.Broker = v
	}
	if v := getenv(EnvSource); v != "" {
		c.Source.Kind = source.Kind(v)
	}
}

// Movement resolves the configured movement with any threshold override.
func (c *Config) Movement() (exercise.Movement, error) {
	m, err := exercise.LookupMovement(c.Session.Movement)
	if err != nil {
		return exercise.Movement{}, err
	}
	if c.Session.Thresholds != nil {
		m = m.WithThresholds(*c.Session.Thresholds)
	}
	return m, nil
}

// Validate checks every section. Threshold errors wrap
// reps.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}

	m, err := c.Movement()
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if _, err := reps.NewTracker(m.Thresholds); err != nil {
		return fmt.Errorf("session: movement %s: %w", m.Name, err)
	}

	if c.Session.Variation != "" {
		catalog, err := exercise.DefaultCatalog()
		if err != nil {
			return fmt.Errorf("session: %w", err)
		}
		if _, err := catalog.Lookup(c.Session.Variation); err != nil {
			return fmt.Errorf("session: %w", err)
		}
	}

	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Publish.Validate(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
