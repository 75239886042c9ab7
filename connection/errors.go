package connection

import "errors"

var (
	// ErrTransportOpen reports that the transport could not open a new connection.
	ErrTransportOpen = errors.New("connection: transport open failed")
	// ErrDeadConnection reports that a dead connection could not be replaced.
	ErrDeadConnection = errors.New("connection: dead connection could not be recreated")
	// ErrTransportClose reports a failure while closing a transport connection.
	// It is only ever logged.
	ErrTransportClose = errors.New("connection: transport close failed")
	// ErrListenerNotification reports a listener that panicked during a
	// notification. It is only ever logged.
	ErrListenerNotification = errors.New("connection: listener notification failed")
	// ErrChannelCreate reports that a channel could not be created on a healthy connection.
	ErrChannelCreate = errors.New("connection: channel creation failed")
	// ErrConnectionClosed is returned when a channel is requested from a
	// connection whose factory has been destroyed.
	ErrConnectionClosed = errors.New("connection: connection closed")
)
