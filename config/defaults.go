package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultProvider      = "prometheus"
	DefaultMetricsListen = ":9102"
	DefaultCloseTimeout  = 30 * time.Second
)

// Drivers understood by the bundled transports.
const (
	DriverAMQP = "amqp"
	DriverMQTT = "mqtt"
)

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.Provider == "" {
			c.Telemetry.Provider = DefaultProvider
		}
		if c.Telemetry.Listen == "" {
			c.Telemetry.Listen = DefaultMetricsListen
		}
	}
	for i := range c.Connections {
		if c.Connections[i].CloseTimeout.Duration == 0 {
			c.Connections[i].CloseTimeout.Duration = DefaultCloseTimeout
		}
	}
}
