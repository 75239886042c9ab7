package mqtt

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/timzifer/brokerconn/connection"
	"github.com/timzifer/brokerconn/drivers/tlsconfig"
)

const (
	defaultConnectTimeout = 30 * time.Second
	defaultPublishTimeout = 5 * time.Second
)

// buildOptions translates settings into paho client options. Automatic
// reconnects stay off: replacing dead connections is the factory's job.
func buildOptions(settings Settings, logger zerolog.Logger, exec connection.Executor) (*mqtt.ClientOptions, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(settings.Broker)
	clientID := settings.ClientID
	if clientID == "" {
		clientID = "brokerconn-" + uuid.NewString()[:8]
	}
	opts.SetClientID(clientID)
	if settings.CleanSession != nil {
		opts.SetCleanSession(*settings.CleanSession)
	}
	if settings.Auth != nil {
		opts.SetUsername(settings.Auth.Username)
		opts.SetPassword(settings.Auth.Password)
	}
	if settings.KeepAlive != nil {
		opts.SetKeepAlive(settings.KeepAlive.Duration)
	}
	if settings.ConnectTimeout != nil {
		opts.SetConnectTimeout(settings.ConnectTimeout.Duration)
	}
	opts.SetAutoReconnect(false)

	tlsConfig, err := tlsconfig.Build(settings.TLS)
	if err != nil {
		return nil, fmt.Errorf("mqtt: %w", err)
	}
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}

	if settings.Will != nil && settings.Will.Topic != "" {
		qos := byte(0)
		if settings.Will.QoS != nil {
			qos = *settings.Will.QoS
		}
		retain := false
		if settings.Will.Retain != nil {
			retain = *settings.Will.Retain
		}
		opts.SetBinaryWill(settings.Will.Topic, []byte(settings.Will.Payload), qos, retain)
	}

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		report := func() {
			logger.Warn().Err(err).Str("client_id", clientID).Msg("mqtt: connection lost")
		}
		if exec != nil {
			exec(report)
			return
		}
		report()
	})
	return opts, nil
}

// connect establishes the initial connection, giving up after timeout or when
// ctx is done.
func connect(ctx context.Context, client mqtt.Client, timeout time.Duration) error {
	token := client.Connect()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(0)
		return ctx.Err()
	case <-timer.C:
		client.Disconnect(0)
		return fmt.Errorf("mqtt: connect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: connect failed: %w", err)
	}
	return nil
}
