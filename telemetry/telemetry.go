package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by connection factories.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They should be inexpensive to call because hooks are
// executed while the factory lock is held.
type Collector interface {
	IncConnectionCreated(factory string)
	IncConnectionClosed(factory string)
	IncConnectionRecovered(factory string)
	IncConnectionFailure(factory, stage string)
	IncHotReload(file string)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncConnectionCreated(string)         {}
func (noopCollector) IncConnectionClosed(string)          {}
func (noopCollector) IncConnectionRecovered(string)       {}
func (noopCollector) IncConnectionFailure(string, string) {}
func (noopCollector) IncHotReload(string)                 {}

// PrometheusCollector exposes connection lifecycle counters via Prometheus.
type PrometheusCollector struct {
	created    *prometheus.CounterVec
	closed     *prometheus.CounterVec
	recovered  *prometheus.CounterVec
	failures   *prometheus.CounterVec
	hotReloads *prometheus.CounterVec
}

var (
	countersLock sync.Mutex
	counters     = map[string]*prometheus.CounterVec{}
)

const (
	createdMetric   = "brokerconn_connections_created_total"
	closedMetric    = "brokerconn_connections_closed_total"
	recoveredMetric = "brokerconn_connections_recovered_total"
	failureMetric   = "brokerconn_connection_failures_total"
	hotReloadMetric = "brokerconn_config_hot_reload_total"
)

// NewPrometheusCollector registers the required metrics with the provided registerer.
// Calling it again with the same registerer reuses the registered counters.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	countersLock.Lock()
	defer countersLock.Unlock()

	created, err := registerCounter(reg, createdMetric, "Number of transport connections opened per factory.", "factory")
	if err != nil {
		return nil, err
	}
	closed, err := registerCounter(reg, closedMetric, "Number of transport connections closed or discarded per factory.", "factory")
	if err != nil {
		return nil, err
	}
	recovered, err := registerCounter(reg, recoveredMetric, "Number of dead connections transparently replaced per factory.", "factory")
	if err != nil {
		return nil, err
	}
	failures, err := registerCounter(reg, failureMetric, "Number of connection failures per factory and stage.", "factory", "stage")
	if err != nil {
		return nil, err
	}
	hotReloads, err := registerCounter(reg, hotReloadMetric, "Number of hot reload operations triggered per configuration source file.", "file")
	if err != nil {
		return nil, err
	}
	return &PrometheusCollector{
		created:    created,
		closed:     closed,
		recovered:  recovered,
		failures:   failures,
		hotReloads: hotReloads,
	}, nil
}

func registerCounter(reg prometheus.Registerer, name, help string, labels ...string) (*prometheus.CounterVec, error) {
	if existing := counters[name]; existing != nil {
		return existing, nil
	}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	if err := reg.Register(counter); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		counter = existing
	}
	counters[name] = counter
	return counter, nil
}

// IncConnectionCreated counts a newly opened transport connection.
func (p *PrometheusCollector) IncConnectionCreated(factory string) {
	if p == nil || p.created == nil {
		return
	}
	p.created.WithLabelValues(factory).Inc()
}

// IncConnectionClosed counts a transport connection that was closed or discarded.
func (p *PrometheusCollector) IncConnectionClosed(factory string) {
	if p == nil || p.closed == nil {
		return
	}
	p.closed.WithLabelValues(factory).Inc()
}

// IncConnectionRecovered counts a dead connection replaced by a fresh one.
func (p *PrometheusCollector) IncConnectionRecovered(factory string) {
	if p == nil || p.recovered == nil {
		return
	}
	p.recovered.WithLabelValues(factory).Inc()
}

// IncConnectionFailure counts a failure at the given stage (open, close, channel, listener).
func (p *PrometheusCollector) IncConnectionFailure(factory, stage string) {
	if p == nil || p.failures == nil {
		return
	}
	p.failures.WithLabelValues(factory, stage).Inc()
}

// IncHotReload increments the counter for the provided file path.
func (p *PrometheusCollector) IncHotReload(file string) {
	if p == nil || p.hotReloads == nil {
		return
	}
	p.hotReloads.WithLabelValues(file).Inc()
}
