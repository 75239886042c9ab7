package connections

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/brokerconn/config"
	"github.com/timzifer/brokerconn/connection"
	"github.com/timzifer/brokerconn/telemetry"
)

type stubTransport struct {
	opens atomic.Int32
	raw   *stubRaw
}

func (s *stubTransport) Open(context.Context, connection.Executor) (connection.RawConnection, error) {
	s.opens.Add(1)
	s.raw = &stubRaw{}
	s.raw.open.Store(true)
	return s.raw, nil
}

type stubRaw struct {
	open    atomic.Bool
	closes  atomic.Int32
	timeout time.Duration
}

func (r *stubRaw) IsOpen() bool { return r.open.Load() }

func (r *stubRaw) Close(timeout time.Duration) error {
	r.closes.Add(1)
	r.timeout = timeout
	r.open.Store(false)
	return nil
}

func (r *stubRaw) CreateChannel() (connection.Channel, error) {
	return nil, errors.New("not supported")
}

func (r *stubRaw) String() string { return "stub" }

func TestNewManagerBuildsLazyFactories(t *testing.T) {
	transports := map[string]*stubTransport{}
	builders := map[string]TransportBuilder{
		"stub": func(cfg config.ConnectionConfig, _ zerolog.Logger) (connection.Transport, error) {
			transport := &stubTransport{}
			transports[cfg.Name] = transport
			return transport, nil
		},
	}
	cfgs := []config.ConnectionConfig{
		{Name: "orders", Driver: "stub", CloseTimeout: config.Duration{Duration: time.Second}},
		{Name: "audit", Driver: "stub"},
		{Driver: "stub"},
	}
	var created atomic.Int32
	listener := &connection.ListenerFuncs{Create: func(connection.Connection) { created.Add(1) }}

	manager, err := NewManager(cfgs, builders, zerolog.Nop(), telemetry.Noop(), listener)
	require.NoError(t, err)
	require.Equal(t, []string{"audit", "orders"}, manager.Names())
	require.Zero(t, transports["orders"].opens.Load())

	factory, err := manager.Connection("orders")
	require.NoError(t, err)
	require.Equal(t, "orders", factory.Name())

	_, err = factory.CreateConnection(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, created.Load())

	_, err = manager.Connection("missing")
	require.Error(t, err)

	require.NoError(t, manager.Close())
	require.EqualValues(t, 1, transports["orders"].raw.closes.Load())
	require.Equal(t, time.Second, transports["orders"].raw.timeout)
	require.Zero(t, transports["audit"].opens.Load())
	require.Empty(t, manager.Names())
}

func TestNewManagerRejectsUnknownDriver(t *testing.T) {
	_, err := NewManager([]config.ConnectionConfig{{Name: "a", Driver: "kafka"}}, nil, zerolog.Nop(), telemetry.Noop())
	require.ErrorContains(t, err, "no transport registered for driver kafka")
}

func TestNewManagerPropagatesBuilderErrors(t *testing.T) {
	builders := map[string]TransportBuilder{
		"stub": func(config.ConnectionConfig, zerolog.Logger) (connection.Transport, error) {
			return nil, errors.New("bad settings")
		},
	}
	_, err := NewManager([]config.ConnectionConfig{{Name: "a", Driver: "stub"}}, builders, zerolog.Nop(), telemetry.Noop())
	require.ErrorContains(t, err, "connection a: bad settings")
}

func TestNilManager(t *testing.T) {
	var manager *Manager
	_, err := manager.Connection("a")
	require.Error(t, err)
	require.Nil(t, manager.Names())
	require.NoError(t, manager.Close())
}
