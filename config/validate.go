package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	if c.Logging.Loki.Enabled && c.Logging.Loki.URL == "" {
		return errors.New("logging.loki.url is required when loki is enabled")
	}
	if c.Telemetry.Enabled {
		switch strings.ToLower(c.Telemetry.Provider) {
		case "", "prometheus":
		default:
			return fmt.Errorf("unsupported telemetry provider %q", c.Telemetry.Provider)
		}
	}
	if len(c.Connections) == 0 {
		return errors.New("at least one connection is required")
	}
	seen := make(map[string]struct{}, len(c.Connections))
	for i, conn := range c.Connections {
		prefix := fmt.Sprintf("connections[%d]", i)
		if conn.Name == "" {
			return fmt.Errorf("%s.name is required", prefix)
		}
		if _, dup := seen[conn.Name]; dup {
			return fmt.Errorf("%s.name %q is not unique", prefix, conn.Name)
		}
		seen[conn.Name] = struct{}{}
		if conn.Driver == "" {
			return fmt.Errorf("%s.driver is required", prefix)
		}
		if conn.OpenTimeout.Duration < 0 {
			return fmt.Errorf("%s.open_timeout must be >= 0", prefix)
		}
		if conn.CloseTimeout.Duration < 0 {
			return fmt.Errorf("%s.close_timeout must be >= 0", prefix)
		}
	}
	return nil
}
