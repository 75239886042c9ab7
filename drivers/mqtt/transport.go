package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/timzifer/brokerconn/config"
	"github.com/timzifer/brokerconn/connection"
	"github.com/timzifer/brokerconn/runtime/connections"
)

// ErrNotConnected is returned when a session is requested from a client that
// lost its connection.
var ErrNotConnected = errors.New("mqtt: not connected")

// Transport opens MQTT client connections.
type Transport struct {
	settings       Settings
	connectTimeout time.Duration
	publishTimeout time.Duration
	logger         zerolog.Logger
}

// NewTransport validates settings. No connection is opened.
func NewTransport(settings Settings, logger zerolog.Logger) (*Transport, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	t := &Transport{
		settings:       settings,
		connectTimeout: defaultConnectTimeout,
		publishTimeout: defaultPublishTimeout,
		logger:         logger,
	}
	if settings.ConnectTimeout != nil && settings.ConnectTimeout.Duration > 0 {
		t.connectTimeout = settings.ConnectTimeout.Duration
	}
	if settings.PublishTimeout != nil && settings.PublishTimeout.Duration > 0 {
		t.publishTimeout = settings.PublishTimeout.Duration
	}
	return t, nil
}

// Open connects a new paho client. Connection-loss callbacks are dispatched
// through exec when it is set.
func (t *Transport) Open(ctx context.Context, exec connection.Executor) (connection.RawConnection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts, err := buildOptions(t.settings, t.logger, exec)
	if err != nil {
		return nil, err
	}
	client := mqtt.NewClient(opts)
	if err := connect(ctx, client, t.connectTimeout); err != nil {
		return nil, err
	}
	reader := client.OptionsReader()
	return &rawConnection{
		client:   client,
		clientID: reader.ClientID(),
		broker:   t.settings.Broker,
		timeout:  t.publishTimeout,
	}, nil
}

type rawConnection struct {
	client   mqtt.Client
	clientID string
	broker   string
	timeout  time.Duration
}

func (c *rawConnection) IsOpen() bool {
	return c.client.IsConnectionOpen()
}

// Close disconnects, allowing in-flight work up to timeout to complete.
func (c *rawConnection) Close(timeout time.Duration) error {
	if !c.client.IsConnected() {
		return nil
	}
	c.client.Disconnect(uint(timeout.Milliseconds()))
	return nil
}

// CreateChannel returns a *Session bound to this client.
func (c *rawConnection) CreateChannel() (connection.Channel, error) {
	if !c.client.IsConnectionOpen() {
		return nil, ErrNotConnected
	}
	return newSession(c.client, c.timeout), nil
}

func (c *rawConnection) String() string {
	return fmt.Sprintf("%s (client %s)", c.broker, c.clientID)
}

// NewTransportBuilder returns a builder that can be registered with
// connections.NewManager for the mqtt driver.
func NewTransportBuilder() connections.TransportBuilder {
	return func(cfg config.ConnectionConfig, logger zerolog.Logger) (connection.Transport, error) {
		var settings Settings
		if err := cfg.DecodeSettings(&settings); err != nil {
			return nil, err
		}
		if settings.Broker == "" {
			return nil, fmt.Errorf("mqtt: connection %s: settings.broker is required", cfg.Name)
		}
		transport, err := NewTransport(settings, logger)
		if err != nil {
			return nil, fmt.Errorf("mqtt: connection %s: %w", cfg.Name, err)
		}
		return transport, nil
	}
}
