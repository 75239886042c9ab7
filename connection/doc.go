// Package connection provides a caching factory for a single shared broker
// connection.
//
// A Factory opens at most one transport connection at a time and hands the
// same shared Connection to every caller. Closing that Connection only
// releases the caller's reference; the transport connection stays open until
// Factory.Destroy is invoked. When a channel is requested on a connection the
// broker has silently dropped, the factory replaces the dead connection with a
// fresh one before creating the channel.
//
// Transports for concrete brokers live in the drivers directory.
package connection
