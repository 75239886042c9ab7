package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `telemetry:
  enabled: true
connections:
  - name: orders
    driver: amqp
    open_timeout: 5s
    settings:
      host: rabbit.internal
      port: 5673
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	require.Equal(t, DefaultLogFormat, cfg.Logging.Format)
	require.Equal(t, DefaultProvider, cfg.Telemetry.Provider)
	require.Equal(t, DefaultMetricsListen, cfg.Telemetry.Listen)
	require.Len(t, cfg.Connections, 1)

	conn := cfg.Connections[0]
	require.Equal(t, "orders", conn.Name)
	require.Equal(t, DriverAMQP, conn.Driver)
	require.Equal(t, 5*time.Second, conn.OpenTimeout.Duration)
	require.Equal(t, DefaultCloseTimeout, conn.CloseTimeout.Duration)

	var settings struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	}
	require.NoError(t, conn.DecodeSettings(&settings))
	require.Equal(t, "rabbit.internal", settings.Host)
	require.Equal(t, 5673, settings.Port)
}

func TestDecodeSettingsWithoutBlock(t *testing.T) {
	cfg, err := Parse([]byte(`connections:
  - name: telemetry
    driver: mqtt
`))
	require.NoError(t, err)
	settings := struct {
		Broker string `yaml:"broker"`
	}{Broker: "tcp://localhost:1883"}
	require.NoError(t, cfg.Connections[0].DecodeSettings(&settings))
	require.Equal(t, "tcp://localhost:1883", settings.Broker)
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"no connections": `logging:
  level: debug
`,
		"missing name": `connections:
  - driver: amqp
`,
		"duplicate name": `connections:
  - name: a
    driver: amqp
  - name: a
    driver: mqtt
`,
		"missing driver": `connections:
  - name: a
`,
		"bad duration": `connections:
  - name: a
    driver: amqp
    close_timeout: soon
`,
		"negative timeout": `connections:
  - name: a
    driver: amqp
    open_timeout: -1s
`,
		"bad format": `logging:
  format: xml
connections:
  - name: a
    driver: amqp
`,
		"loki without url": `logging:
  loki:
    enabled: true
connections:
  - name: a
    driver: amqp
`,
		"bad provider": `telemetry:
  enabled: true
  provider: statsd
connections:
  - name: a
    driver: amqp
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(content))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDurationRoundTripsAsString(t *testing.T) {
	value, err := Duration{Duration: 1500 * time.Millisecond}.MarshalYAML()
	require.NoError(t, err)
	require.Equal(t, "1.5s", value)
}
