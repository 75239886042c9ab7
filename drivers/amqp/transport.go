package amqp

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/timzifer/brokerconn/config"
	"github.com/timzifer/brokerconn/connection"
	"github.com/timzifer/brokerconn/drivers/tlsconfig"
	"github.com/timzifer/brokerconn/runtime/connections"
)

const defaultConnectTimeout = 30 * time.Second

// Transport opens AMQP 0-9-1 connections.
type Transport struct {
	settings Settings
	url      string
	config   amqp.Config
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewTransport validates settings and prepares the dial configuration. No
// connection is opened.
func NewTransport(settings Settings, logger zerolog.Logger) (*Transport, error) {
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	url, err := settings.URL()
	if err != nil {
		return nil, fmt.Errorf("amqp: %w", err)
	}
	tlsCfg, err := tlsconfig.Build(settings.TLS)
	if err != nil {
		return nil, fmt.Errorf("amqp: %w", err)
	}

	props := amqp.NewConnectionProperties()
	if settings.ConnectionName != "" {
		props.SetClientConnectionName(settings.ConnectionName)
	}
	cfg := amqp.Config{
		TLSClientConfig: tlsCfg,
		FrameSize:       settings.FrameSize,
		Locale:          settings.Locale,
		Properties:      props,
	}
	if settings.Heartbeat != nil {
		cfg.Heartbeat = settings.Heartbeat.Duration
	}
	timeout := defaultConnectTimeout
	if settings.ConnectTimeout != nil && settings.ConnectTimeout.Duration > 0 {
		timeout = settings.ConnectTimeout.Duration
	}
	return &Transport{
		settings: settings,
		url:      url,
		config:   cfg,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Settings returns the effective settings.
func (t *Transport) Settings() Settings {
	return t.settings
}

// Open dials the broker. The dial is bounded by the connect timeout and the
// context deadline, whichever is shorter. Broker initiated closes are logged
// from a watcher started through exec, or a goroutine when exec is nil.
func (t *Transport) Open(ctx context.Context, exec connection.Executor) (connection.RawConnection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	cfg := t.config
	cfg.Dial = amqp.DefaultDial(timeout)

	conn, err := amqp.DialConfig(t.url, cfg)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial %s: %w", t.settings.String(), err)
	}
	raw := &rawConnection{conn: conn, address: t.settings.String()}

	closes := conn.NotifyClose(make(chan *amqp.Error, 1))
	watch := func() {
		if err, ok := <-closes; ok && err != nil {
			t.logger.Warn().Err(err).Bool("server", err.Server).Str("delegate", raw.address).Msg("amqp: connection closed")
		}
	}
	if exec != nil {
		exec(watch)
	} else {
		go watch()
	}
	return raw, nil
}

type rawConnection struct {
	conn    *amqp.Connection
	address string
}

func (c *rawConnection) IsOpen() bool {
	return !c.conn.IsClosed()
}

func (c *rawConnection) Close(timeout time.Duration) error {
	return c.conn.CloseDeadline(time.Now().Add(timeout))
}

// CreateChannel returns an *amqp091.Channel.
func (c *rawConnection) CreateChannel() (connection.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *rawConnection) String() string {
	return c.address
}

// NewTransportBuilder returns a builder that can be registered with
// connections.NewManager for the amqp driver.
func NewTransportBuilder() connections.TransportBuilder {
	return func(cfg config.ConnectionConfig, logger zerolog.Logger) (connection.Transport, error) {
		var settings Settings
		if err := cfg.DecodeSettings(&settings); err != nil {
			return nil, err
		}
		transport, err := NewTransport(settings, logger)
		if err != nil {
			return nil, fmt.Errorf("connection %s: %w", cfg.Name, err)
		}
		return transport, nil
	}
}
