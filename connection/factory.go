package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/brokerconn/telemetry"
)

// Factory caches a single shared broker connection.
//
// CreateConnection opens the transport connection on first use and returns
// the same shared Connection to every later caller. Calling Close on that
// Connection does not close the transport; only Destroy does. A Factory is
// safe for concurrent use and may be reused after Destroy.
type Factory struct {
	transport    Transport
	name         string
	logger       zerolog.Logger
	collector    telemetry.Collector
	closeTimeout time.Duration
	openTimeout  time.Duration
	executor     Executor

	// mu guards the cached connection, the listener registry and recreation.
	mu        sync.Mutex
	listeners listenerRegistry
	shared    *sharedConnection
}

// NewFactory builds a factory on top of transport. No connection is opened
// until CreateConnection is called.
func NewFactory(transport Transport, opts ...Option) (*Factory, error) {
	if transport == nil {
		return nil, errors.New("connection: transport is required")
	}
	f := &Factory{
		transport:    transport,
		name:         "default",
		logger:       zerolog.Nop(),
		collector:    telemetry.Noop(),
		closeTimeout: DefaultCloseTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	f.logger = f.logger.With().Str("factory", f.name).Logger()
	f.listeners.logger = f.logger
	f.listeners.onFailure = func() {
		f.collector.IncConnectionFailure(f.name, "listener")
	}
	return f, nil
}

// Name returns the label given with WithName.
func (f *Factory) Name() string {
	return f.name
}

func (f *Factory) String() string {
	return fmt.Sprintf("Factory[%s]", f.name)
}

// CreateConnection returns the shared connection, opening it first if nothing
// is cached. Listeners are told about a new transport connection exactly once.
// If the transport fails to open, nothing is cached and the error wraps
// ErrTransportOpen.
func (f *Factory) CreateConnection(ctx context.Context) (Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shared != nil {
		return f.shared, nil
	}
	target, err := f.openLocked(ctx)
	if err != nil {
		return nil, err
	}
	f.shared = &sharedConnection{factory: f, target: target, state: StateOpen}
	return f.shared, nil
}

func (f *Factory) openLocked(ctx context.Context) (*simpleConnection, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if f.openTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.openTimeout)
		defer cancel()
	}
	raw, err := f.transport.Open(ctx, f.executor)
	if err == nil && raw == nil {
		err = errors.New("transport returned no connection")
	}
	if err != nil {
		f.collector.IncConnectionFailure(f.name, "open")
		return nil, fmt.Errorf("%w: %s: %w", ErrTransportOpen, f.name, err)
	}
	target := newSimpleConnection(f, raw)
	f.listeners.notifyCreate(target)
	f.collector.IncConnectionCreated(f.name)
	f.logger.Info().Str("connection", target.id).Msg("Created new connection: " + target.String())
	return target, nil
}

// liveTarget returns the transport connection behind s, replacing it first
// when the broker has dropped it.
func (f *Factory) liveTarget(s *sharedConnection) (*simpleConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.state == StateClosed || f.shared != s {
		return nil, ErrConnectionClosed
	}
	if s.target.IsOpen() {
		return s.target, nil
	}
	return f.recreateLocked(s)
}

// recreateLocked swaps the dead target of s for a fresh connection. The dead
// connection is discarded without another transport close; listeners see
// OnClose for it followed by OnCreate for the replacement.
func (f *Factory) recreateLocked(s *sharedConnection) (*simpleConnection, error) {
	old := s.target
	s.state = StateStale
	f.logger.Debug().Str("connection", old.id).Msg("Detected closed connection. Opening a new one before creating channel.")
	old.discardLocked()

	s.state = StateRecreating
	target, err := f.openLocked(context.Background())
	if err != nil {
		s.state = StateStale
		return nil, fmt.Errorf("%w: %w", ErrDeadConnection, err)
	}
	s.target = target
	s.state = StateOpen
	f.collector.IncConnectionRecovered(f.name)
	return target, nil
}

// SetConnectionListeners replaces the registered listeners. When a connection
// is cached and open, listeners that have not yet seen it receive OnCreate
// before this method returns.
func (f *Factory) SetConnectionListeners(listeners []Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners.replace(listeners)
	f.catchUpLocked()
}

// AddConnectionListener registers one more listener, notifying it right away
// when a connection is already open.
func (f *Factory) AddConnectionListener(listener Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners.add(listener)
	f.catchUpLocked()
}

func (f *Factory) catchUpLocked() {
	if f.shared == nil || !f.shared.target.IsOpen() {
		return
	}
	f.listeners.catchUp(f.shared.target)
}

// Destroy closes the cached transport connection, if any, and notifies
// listeners. Close failures are logged and never returned. Destroy never opens
// a connection.
func (f *Factory) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.shared
	if s == nil {
		return
	}
	f.shared = nil
	s.state = StateClosed
	_ = s.target.closeLocked()
}

// Close destroys the factory's connection. It always returns nil.
func (f *Factory) Close() error {
	f.Destroy()
	return nil
}

// State reports the lifecycle state of the cached connection.
func (f *Factory) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shared == nil {
		return StateUnopened
	}
	return f.shared.state
}
