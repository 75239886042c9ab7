package connections

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/timzifer/brokerconn/config"
	"github.com/timzifer/brokerconn/connection"
	"github.com/timzifer/brokerconn/telemetry"
)

// Manager owns one connection factory per configured connection.
type Manager struct {
	mu        sync.RWMutex
	factories map[string]*connection.Factory
}

// NewManager builds a factory for every configured connection using the
// builder registered for its driver. Listeners are registered on each factory.
func NewManager(cfgs []config.ConnectionConfig, builders map[string]TransportBuilder, logger zerolog.Logger, collector telemetry.Collector, listeners ...connection.Listener) (*Manager, error) {
	manager := &Manager{factories: make(map[string]*connection.Factory, len(cfgs))}
	for _, connCfg := range cfgs {
		if connCfg.Name == "" {
			continue
		}
		if _, dup := manager.factories[connCfg.Name]; dup {
			manager.Close()
			return nil, fmt.Errorf("connection %s: configured twice", connCfg.Name)
		}
		build := builders[connCfg.Driver]
		if build == nil {
			manager.Close()
			return nil, fmt.Errorf("connection %s: no transport registered for driver %s", connCfg.Name, connCfg.Driver)
		}
		connLogger := logger.With().Str("driver", connCfg.Driver).Logger()
		transport, err := build(connCfg, connLogger)
		if err != nil {
			manager.Close()
			return nil, fmt.Errorf("connection %s: %w", connCfg.Name, err)
		}
		factory, err := connection.NewFactory(transport,
			connection.WithName(connCfg.Name),
			connection.WithLogger(connLogger),
			connection.WithTelemetry(collector),
			connection.WithOpenTimeout(connCfg.OpenTimeout.Duration),
			connection.WithCloseTimeout(connCfg.CloseTimeout.Duration),
			connection.WithListeners(listeners...),
		)
		if err != nil {
			manager.Close()
			return nil, fmt.Errorf("connection %s: %w", connCfg.Name, err)
		}
		manager.factories[connCfg.Name] = factory
	}
	return manager, nil
}

// Connection returns the factory registered under name.
func (m *Manager) Connection(name string) (*connection.Factory, error) {
	if m == nil {
		return nil, fmt.Errorf("connection %s: manager not initialised", name)
	}
	m.mu.RLock()
	factory, ok := m.factories[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("connection %s: not found", name)
	}
	return factory, nil
}

// Names lists the configured connections in sorted order.
func (m *Manager) Names() []string {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.factories))
	for name := range m.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close destroys every factory. The manager cannot be used afterwards.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for name, factory := range m.factories {
		if factory == nil {
			continue
		}
		if err := factory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection %s: %w", name, err))
		}
	}
	m.factories = nil
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
