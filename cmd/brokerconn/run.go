package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/timzifer/brokerconn/config"
	"github.com/timzifer/brokerconn/internal/logging"
	"github.com/timzifer/brokerconn/internal/reload"
	"github.com/timzifer/brokerconn/runtime/connections"
	"github.com/timzifer/brokerconn/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open every configured connection and keep it until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		collector, err := newTelemetryCollector(cfg.Telemetry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
			collector = telemetry.Noop()
		}
		if cfg.Telemetry.Enabled {
			stop := serveMetrics(cfg.Telemetry.Listen)
			defer stop()
		}
		err = runService(ctx, cfgPath, cfg, collector)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func newTelemetryCollector(cfg config.TelemetryConfig) (telemetry.Collector, error) {
	if !cfg.Enabled {
		return telemetry.Noop(), nil
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", "prometheus":
		collector, err := telemetry.NewPrometheusCollector(nil)
		if err != nil {
			return nil, err
		}
		return collector, nil
	default:
		return telemetry.Noop(), fmt.Errorf("unsupported telemetry provider %q", cfg.Provider)
	}
}

func serveMetrics(listen string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("listen", listen).Msg("metrics server stopped")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// runService opens all connections and holds them until ctx is done. With hot
// reload enabled, a change to the configuration file destroys every factory and
// rebuilds them from the new configuration.
func runService(ctx context.Context, path string, cfg *config.Config, collector telemetry.Collector) error {
	watcher, err := reload.NewWatcher(path)
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		logger, cleanup, err := logging.Setup(cfg.Logging)
		if err != nil {
			return err
		}
		log.Logger = logger

		manager, err := connections.NewManager(cfg.Connections, transportBuilders(), logger, collector, lifecycleLogger(logger))
		if err != nil {
			cleanup()
			return err
		}
		openAll(ctx, manager, logger)

		next, changed, err := supervise(ctx, path, cfg, watcher, ticker.C, logger)
		if cerr := manager.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("failed to close connections")
		}
		cleanup()
		if err != nil {
			return err
		}
		for _, file := range changed {
			collector.IncHotReload(file)
		}
		cfg = next
	}
}

// openAll opens every connection eagerly. Failures are logged; the factory
// retries on the next channel request.
func openAll(ctx context.Context, manager *connections.Manager, logger zerolog.Logger) {
	for _, name := range manager.Names() {
		factory, err := manager.Connection(name)
		if err != nil {
			continue
		}
		if _, err := factory.CreateConnection(ctx); err != nil {
			logger.Error().Err(err).Str("factory", name).Msg("failed to open connection")
		}
	}
}

// supervise blocks until ctx is done or, with hot reload enabled, a valid
// new configuration is available.
func supervise(ctx context.Context, path string, cfg *config.Config, watcher *reload.Watcher, tick <-chan time.Time, logger zerolog.Logger) (*config.Config, []string, error) {
	if !cfg.HotReload {
		tick = nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-tick:
			changes, err := watcher.Check()
			if err != nil {
				logger.Error().Err(err).Msg("failed to check configuration changes")
				continue
			}
			if len(changes) == 0 {
				continue
			}
			newCfg, err := config.Load(path)
			if err != nil {
				logger.Error().Err(err).Msg("failed to reload configuration")
				if uerr := watcher.Update(path); uerr != nil {
					logger.Error().Err(uerr).Msg("failed to update watcher state")
				}
				continue
			}
			if err := watcher.Update(path); err != nil {
				logger.Error().Err(err).Msg("failed to update watcher state")
			}
			logger.Info().Strs("files", changes).Msg("configuration changed, reconnecting")
			return newCfg, changes, nil
		}
	}
}
