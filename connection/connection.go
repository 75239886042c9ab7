package connection

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Connection is a broker connection handed out by a Factory.
type Connection interface {
	// CreateChannel opens a channel, in transactional mode when requested.
	CreateChannel(transactional bool) (Channel, error)
	// Close on the shared handle from CreateConnection only releases it; the
	// transport stays open until Factory.Destroy. Close on the connection a
	// Listener receives closes the transport.
	Close() error
	IsOpen() bool
	// ID identifies the underlying transport connection for diagnostics.
	ID() string
	// Delegate returns the raw transport connection currently in use.
	Delegate() RawConnection
	String() string
}

// simpleConnection wraps exactly one raw transport connection. Once closed it
// never reopens; the factory creates a new one instead.
type simpleConnection struct {
	factory *Factory
	raw     RawConnection
	id      string
	closed  atomic.Bool
}

func newSimpleConnection(factory *Factory, raw RawConnection) *simpleConnection {
	return &simpleConnection{factory: factory, raw: raw, id: uuid.NewString()}
}

func (c *simpleConnection) ID() string {
	return c.id
}

func (c *simpleConnection) Delegate() RawConnection {
	return c.raw
}

func (c *simpleConnection) String() string {
	return fmt.Sprintf("SimpleConnection@%s [delegate=%s]", c.id, c.raw)
}

// IsOpen does not take the factory lock, so listeners may call it.
func (c *simpleConnection) IsOpen() bool {
	return !c.closed.Load() && c.raw.IsOpen()
}

// Close closes the transport connection and notifies listeners. It must not
// be called from inside a listener callback.
func (c *simpleConnection) Close() error {
	c.factory.mu.Lock()
	defer c.factory.mu.Unlock()
	return c.closeLocked()
}

func (c *simpleConnection) closeLocked() error {
	if c.closed.Swap(true) {
		return nil
	}
	f := c.factory
	var closeErr error
	if err := c.raw.Close(f.closeTimeout); err != nil {
		closeErr = fmt.Errorf("%w: %s: %w", ErrTransportClose, c.id, err)
		f.logger.Warn().Err(closeErr).Str("connection", c.id).Msg("failed to close connection")
		f.collector.IncConnectionFailure(f.name, "close")
	}
	f.collector.IncConnectionClosed(f.name)
	f.listeners.notifyClose(c)
	return closeErr
}

// discardLocked retires a connection that already died without touching the
// transport again.
func (c *simpleConnection) discardLocked() {
	if c.closed.Swap(true) {
		return
	}
	c.factory.collector.IncConnectionClosed(c.factory.name)
	c.factory.listeners.notifyClose(c)
}

func (c *simpleConnection) CreateChannel(transactional bool) (Channel, error) {
	f := c.factory
	ch, err := c.raw.CreateChannel()
	if err != nil {
		f.collector.IncConnectionFailure(f.name, "channel")
		return nil, fmt.Errorf("%w: %s: %w", ErrChannelCreate, c.id, err)
	}
	if ch == nil {
		f.collector.IncConnectionFailure(f.name, "channel")
		return nil, fmt.Errorf("%w: %s: transport returned no channel", ErrChannelCreate, c.id)
	}
	if transactional {
		if err := ch.Tx(); err != nil {
			_ = ch.Close()
			f.collector.IncConnectionFailure(f.name, "channel")
			return nil, fmt.Errorf("%w: %s: select transactions: %w", ErrChannelCreate, c.id, err)
		}
	}
	return ch, nil
}

// sharedConnection is the handle returned by Factory.CreateConnection. All
// callers share it while it is cached; Close is a reference release and the
// transport connection behind it is only closed by Factory.Destroy.
type sharedConnection struct {
	factory *Factory
	target  *simpleConnection // guarded by factory.mu
	state   State             // guarded by factory.mu
}

func (s *sharedConnection) CreateChannel(transactional bool) (Channel, error) {
	target, err := s.factory.liveTarget(s)
	if err != nil {
		return nil, err
	}
	return target.CreateChannel(transactional)
}

// Close does not close the transport connection; it stays cached for reuse.
func (s *sharedConnection) Close() error {
	return nil
}

func (s *sharedConnection) IsOpen() bool {
	s.factory.mu.Lock()
	defer s.factory.mu.Unlock()
	return s.state != StateClosed && s.target.IsOpen()
}

func (s *sharedConnection) ID() string {
	s.factory.mu.Lock()
	defer s.factory.mu.Unlock()
	return s.target.id
}

func (s *sharedConnection) Delegate() RawConnection {
	s.factory.mu.Lock()
	defer s.factory.mu.Unlock()
	return s.target.raw
}

func (s *sharedConnection) String() string {
	s.factory.mu.Lock()
	defer s.factory.mu.Unlock()
	return fmt.Sprintf("Shared %s (%s)", s.target, s.state)
}
