package tlsconfig

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDisabled(t *testing.T) {
	cfg, err := Build(nil)
	require.NoError(t, err)
	require.Nil(t, cfg)

	cfg, err = Build(&Settings{CAFile: "/does/not/matter"})
	require.NoError(t, err)
	require.Nil(t, cfg)
}

func TestBuildEnabled(t *testing.T) {
	cfg, err := Build(&Settings{Enabled: true, ServerName: "rabbit.internal", ALPN: []string{"amqp"}, InsecureSkipVerify: true})
	require.NoError(t, err)
	require.Equal(t, "rabbit.internal", cfg.ServerName)
	require.Equal(t, []string{"amqp"}, cfg.NextProtos)
	require.True(t, cfg.InsecureSkipVerify)
	require.EqualValues(t, tls.VersionTLS12, cfg.MinVersion)
}

func TestBuildRejectsBadCA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

	_, err := Build(&Settings{Enabled: true, CAFile: path})
	require.ErrorContains(t, err, "parse ca file")

	_, err = Build(&Settings{Enabled: true, CAFile: filepath.Join(t.TempDir(), "missing.pem")})
	require.ErrorContains(t, err, "read ca file")
}

func TestFiles(t *testing.T) {
	settings := &Settings{Enabled: true, CAFile: "ca.pem", KeyFile: "key.pem"}
	require.Equal(t, []string{"ca.pem", "key.pem"}, settings.Files())
	settings.Enabled = false
	require.Nil(t, settings.Files())
}
