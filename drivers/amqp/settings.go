package amqp

import (
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/timzifer/brokerconn/config"
	"github.com/timzifer/brokerconn/drivers/tlsconfig"
)

// Default connection parameters, matching a stock RabbitMQ installation.
const (
	DefaultHost        = "localhost"
	DefaultPort        = 5672
	DefaultTLSPort     = 5671
	DefaultUsername    = "guest"
	DefaultPassword    = "guest"
	DefaultVirtualHost = "/"
)

// Settings describe how to reach an AMQP 0-9-1 broker.
type Settings struct {
	// URI, when set, takes precedence over the individual address fields.
	URI            string              `yaml:"uri,omitempty"`
	Host           string              `yaml:"host,omitempty"`
	Port           int                 `yaml:"port,omitempty"`
	Username       string              `yaml:"username,omitempty"`
	Password       string              `yaml:"password,omitempty"`
	VirtualHost    string              `yaml:"virtual_host,omitempty"`
	ConnectionName string              `yaml:"connection_name,omitempty"`
	Heartbeat      *config.Duration    `yaml:"heartbeat,omitempty"`
	ConnectTimeout *config.Duration    `yaml:"connect_timeout,omitempty"`
	FrameSize      int                 `yaml:"frame_size,omitempty"`
	Locale         string              `yaml:"locale,omitempty"`
	TLS            *tlsconfig.Settings `yaml:"tls,omitempty"`
}

// ApplyDefaults fills in the address fields left empty.
func (s *Settings) ApplyDefaults() {
	if s.URI != "" {
		return
	}
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port == 0 {
		s.Port = DefaultPort
		if s.TLS != nil && s.TLS.Enabled {
			s.Port = DefaultTLSPort
		}
	}
	if s.Username == "" {
		s.Username = DefaultUsername
		if s.Password == "" {
			s.Password = DefaultPassword
		}
	}
	if s.VirtualHost == "" {
		s.VirtualHost = DefaultVirtualHost
	}
}

// Validate reports settings the broker would reject.
func (s *Settings) Validate() error {
	if s.URI != "" {
		if _, err := amqp.ParseURI(s.URI); err != nil {
			return fmt.Errorf("amqp: parse uri: %w", err)
		}
		return nil
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("amqp: port must be between 1 and 65535, got %d", s.Port)
	}
	if s.FrameSize < 0 {
		return fmt.Errorf("amqp: frame_size must be >= 0")
	}
	return nil
}

func (s *Settings) uri() (amqp.URI, error) {
	if s.URI != "" {
		return amqp.ParseURI(s.URI)
	}
	scheme := "amqp"
	if s.TLS != nil && s.TLS.Enabled {
		scheme = "amqps"
	}
	return amqp.URI{
		Scheme:   scheme,
		Host:     s.Host,
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		Vhost:    s.VirtualHost,
	}, nil
}

// URL renders the AMQP URI used to dial the broker, including credentials.
func (s *Settings) URL() (string, error) {
	uri, err := s.uri()
	if err != nil {
		return "", err
	}
	return uri.String(), nil
}

// String renders the broker address without the password.
func (s *Settings) String() string {
	uri, err := s.uri()
	if err != nil {
		return "amqp://invalid"
	}
	vhost := uri.Vhost
	if !strings.HasPrefix(vhost, "/") {
		vhost = "/" + vhost
	}
	return fmt.Sprintf("%s://%s@%s:%d%s", uri.Scheme, uri.Username, uri.Host, uri.Port, vhost)
}
