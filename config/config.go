package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki"`
}

// TelemetryConfig selects the metrics backend.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider,omitempty"`
	Listen   string `yaml:"listen,omitempty"`
}

// ConnectionConfig describes one broker connection. Each entry gets its own
// connection factory.
type ConnectionConfig struct {
	Name         string   `yaml:"name"`
	Driver       string   `yaml:"driver"`
	OpenTimeout  Duration `yaml:"open_timeout,omitempty"`
	CloseTimeout Duration `yaml:"close_timeout,omitempty"`
	// Settings holds the driver specific block, decoded by the driver.
	Settings yaml.Node `yaml:"settings,omitempty"`
}

// DecodeSettings decodes the driver specific settings into out. Missing
// settings leave out untouched.
func (c ConnectionConfig) DecodeSettings(out any) error {
	if c.Settings.Kind == 0 {
		return nil
	}
	if err := c.Settings.Decode(out); err != nil {
		return fmt.Errorf("connection %s: decode %s settings: %w", c.Name, c.Driver, err)
	}
	return nil
}

// Config is the root configuration structure.
type Config struct {
	Logging     LoggingConfig      `yaml:"logging"`
	Telemetry   TelemetryConfig    `yaml:"telemetry"`
	HotReload   bool               `yaml:"hot_reload"`
	Connections []ConnectionConfig `yaml:"connections"`
}

// Load reads, decodes and validates the configuration file from disk.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates configuration from YAML bytes.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
