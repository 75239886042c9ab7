// Package tlsconfig builds crypto/tls configurations from driver settings.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Settings allow TLS connections to be configured.
type Settings struct {
	Enabled            bool     `yaml:"enabled"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
	CAFile             string   `yaml:"ca_file,omitempty"`
	CertFile           string   `yaml:"cert_file,omitempty"`
	KeyFile            string   `yaml:"key_file,omitempty"`
	ServerName         string   `yaml:"server_name,omitempty"`
	ALPN               []string `yaml:"alpn,omitempty"`
}

// Build returns nil when TLS is disabled.
func Build(settings *Settings) (*tls.Config, error) {
	if settings == nil || !settings.Enabled {
		return nil, nil
	}
	cfg := &tls.Config{InsecureSkipVerify: settings.InsecureSkipVerify, MinVersion: tls.VersionTLS12}
	if settings.ServerName != "" {
		cfg.ServerName = settings.ServerName
	}
	if len(settings.ALPN) > 0 {
		cfg.NextProtos = append([]string(nil), settings.ALPN...)
	}

	if settings.CAFile != "" {
		ca, err := os.ReadFile(settings.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(ca); !ok {
			return nil, fmt.Errorf("parse ca file %s", settings.CAFile)
		}
		cfg.RootCAs = pool
	}

	if settings.CertFile != "" && settings.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(settings.CertFile, settings.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// Files lists the certificate files referenced by the settings.
func (s *Settings) Files() []string {
	if s == nil || !s.Enabled {
		return nil
	}
	var files []string
	for _, path := range []string{s.CAFile, s.CertFile, s.KeyFile} {
		if path != "" {
			files = append(files, path)
		}
	}
	return files
}
