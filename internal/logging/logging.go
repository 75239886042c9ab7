package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/timzifer/brokerconn/config"
)

// Setup builds the process logger: JSON or console output on stdout, plus
// Loki shipping when enabled. The returned cleanup stops the Loki client.
func Setup(cfg config.LoggingConfig) (zerolog.Logger, func(), error) {
	return setup(cfg, os.Stdout)
}

func setup(cfg config.LoggingConfig, out io.Writer) (zerolog.Logger, func(), error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	if strings.EqualFold(cfg.Format, "text") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	}
	if !cfg.Loki.Enabled {
		return zerolog.New(out).With().Timestamp().Logger().Level(level), func() {}, nil
	}

	client, err := newLokiClient(cfg.Loki)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	shipper := &lokiWriter{handler: client, labels: lokiLabels(cfg.Loki.Labels)}
	logger := zerolog.New(zerolog.MultiLevelWriter(out, shipper)).With().Timestamp().Logger().Level(level)
	return logger, client.Stop, nil
}

// parseLevel defaults to info when level is empty.
func parseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return parsed, nil
}

func newLokiClient(cfg config.LokiConfig) (*loki.Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, fmt.Errorf("loki client: %w", err)
	}
	return client, nil
}

func lokiLabels(raw map[string]string) model.LabelSet {
	labels := model.LabelSet{}
	for k, v := range raw {
		labels[model.LabelName(k)] = model.LabelValue(v)
	}
	if len(labels) == 0 {
		labels["app"] = "brokerconn"
	}
	return labels
}

// lokiHandler is the part of *loki.Client the writer needs.
type lokiHandler interface {
	Handle(labels model.LabelSet, ts time.Time, line string) error
}

// lokiWriter ships each zerolog event as one Loki line.
type lokiWriter struct {
	handler lokiHandler
	labels  model.LabelSet
}

func (w *lokiWriter) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	if line == "" {
		return len(p), nil
	}
	if err := w.handler.Handle(w.labels, time.Now(), line); err != nil {
		return len(p), fmt.Errorf("ship log line: %w", err)
	}
	return len(p), nil
}
