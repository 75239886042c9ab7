package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/brokerconn/config"
	"github.com/timzifer/brokerconn/internal/reload"
	"github.com/timzifer/brokerconn/runtime/connections"
	"github.com/timzifer/brokerconn/telemetry"
)

const sampleConfig = `hot_reload: true
connections:
  - name: orders
    driver: amqp
    settings:
      host: rabbit.internal
  - name: sensors
    driver: mqtt
    settings:
      broker: tcp://127.0.0.1:1
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunCheckListsConnections(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	var out bytes.Buffer
	require.NoError(t, runCheck(&out, path))
	require.Contains(t, out.String(), `Connection "orders" (amqp)`)
	require.Contains(t, out.String(), `Connection "sensors" (mqtt)`)
}

func TestRunCheckRejectsInvalidSettings(t *testing.T) {
	path := writeConfig(t, `connections:
  - name: orders
    driver: amqp
    settings:
      port: -1
`)

	var out bytes.Buffer
	err := runCheck(&out, path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "configuration invalid")
}

func TestRunProbeReportsFailures(t *testing.T) {
	cfg, err := config.Parse([]byte(`connections:
  - name: sensors
    driver: mqtt
    settings:
      broker: tcp://127.0.0.1:1
      connect_timeout: 200ms
`))
	require.NoError(t, err)
	manager, err := connections.NewManager(cfg.Connections, transportBuilders(), zerolog.Nop(), telemetry.Noop())
	require.NoError(t, err)
	defer manager.Close()

	var out bytes.Buffer
	err = runProbe(context.Background(), &out, manager, time.Second)
	require.Error(t, err)
	require.Contains(t, out.String(), "sensors: failed")
}

func TestSuperviseReturnsNewConfigOnChange(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	watcher, err := reload.NewWatcher(path)
	require.NoError(t, err)

	updated := sampleConfig + `  - name: audit
    driver: amqp
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	tick := make(chan time.Time, 1)
	tick <- time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	next, changed, err := supervise(ctx, path, cfg, watcher, tick, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, changed, 1)
	require.Len(t, next.Connections, 3)
}

func TestSuperviseStopsOnCancel(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.HotReload = false
	watcher, err := reload.NewWatcher(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = supervise(ctx, path, cfg, watcher, make(chan time.Time), zerolog.Nop())
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewTelemetryCollectorRejectsUnknownProvider(t *testing.T) {
	collector, err := newTelemetryCollector(config.TelemetryConfig{Enabled: true, Provider: "statsd"})
	require.Error(t, err)
	require.NotNil(t, collector)

	collector, err = newTelemetryCollector(config.TelemetryConfig{})
	require.NoError(t, err)
	require.Equal(t, telemetry.Noop(), collector)
}
