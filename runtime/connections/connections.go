package connections

import (
	"github.com/rs/zerolog"

	"github.com/timzifer/brokerconn/config"
	"github.com/timzifer/brokerconn/connection"
)

// TransportBuilder constructs the transport for one configured connection.
//
// Builders decode the driver specific settings block and must not open a
// network connection; the factory opens lazily on first use.
type TransportBuilder func(cfg config.ConnectionConfig, logger zerolog.Logger) (connection.Transport, error)

// Provider exposes previously configured connection factories by name.
type Provider interface {
	Connection(name string) (*connection.Factory, error)
}
