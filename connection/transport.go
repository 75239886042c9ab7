package connection

import (
	"context"
	"time"
)

// Executor runs a task asynchronously. Transports use it to dispatch their
// background work such as connection-loss callbacks. A nil Executor means the
// transport picks its own default threading.
type Executor func(task func())

// Transport opens raw connections to a broker.
type Transport interface {
	Open(ctx context.Context, exec Executor) (RawConnection, error)
}

// RawConnection is one network session to the broker as provided by the
// underlying client library.
type RawConnection interface {
	// IsOpen reports whether the session is still usable.
	IsOpen() bool
	// Close shuts the session down, waiting at most timeout.
	Close(timeout time.Duration) error
	// CreateChannel opens a new channel on the session.
	CreateChannel() (Channel, error)
	String() string
}

// Channel is a lightweight session multiplexed over a RawConnection.
type Channel interface {
	// Tx puts the channel into transactional mode.
	Tx() error
	Close() error
}
