package mqtt

import (
	"fmt"
	"net/url"

	"github.com/timzifer/brokerconn/config"
	"github.com/timzifer/brokerconn/drivers/tlsconfig"
)

// Settings describe how to reach the MQTT broker.
type Settings struct {
	Broker         string              `yaml:"broker"`
	ClientID       string              `yaml:"client_id,omitempty"`
	CleanSession   *bool               `yaml:"clean_session,omitempty"`
	KeepAlive      *config.Duration    `yaml:"keep_alive,omitempty"`
	ConnectTimeout *config.Duration    `yaml:"connect_timeout,omitempty"`
	PublishTimeout *config.Duration    `yaml:"publish_timeout,omitempty"`
	Auth           *AuthSettings       `yaml:"auth,omitempty"`
	TLS            *tlsconfig.Settings `yaml:"tls,omitempty"`
	Will           *WillSettings       `yaml:"will,omitempty"`
}

// AuthSettings capture username/password authentication for MQTT.
type AuthSettings struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WillSettings describe a last will message for the MQTT client.
type WillSettings struct {
	Topic   string `yaml:"topic"`
	Payload string `yaml:"payload"`
	QoS     *byte  `yaml:"qos,omitempty"`
	Retain  *bool  `yaml:"retain,omitempty"`
}

// Validate reports settings that cannot produce a client.
func (s *Settings) Validate() error {
	if s.Broker == "" {
		return fmt.Errorf("mqtt: broker address is required")
	}
	if _, err := url.Parse(s.Broker); err != nil {
		return fmt.Errorf("mqtt: parse broker address: %w", err)
	}
	if s.Will != nil && s.Will.QoS != nil && *s.Will.QoS > 2 {
		return fmt.Errorf("mqtt: will qos must be 0, 1 or 2")
	}
	return nil
}
