// Package stream defines the polled byte interfaces the autopilot core talks
// to, and a Pipe that adapts blocking transports (serial ports, sockets) to
// them.
//
// Core code never blocks on I/O: it asks how many bytes are available, reads
// or writes one byte at a time and moves on to the next tick when the
// transport is not ready.
package stream

// Source is a non-blocking byte source.
type Source interface {
	// Available returns the number of bytes that can be read without blocking.
	Available() int
	// Read returns the next byte, or false when none is buffered.
	Read() (byte, bool)
}

// Sink is a non-blocking byte sink.
type Sink interface {
	// AvailableForWrite returns how many bytes Write will currently accept.
	AvailableForWrite() int
	// Write queues one byte and returns the number of bytes accepted (0 or 1).
	Write(c byte) int
}

// Port is a bidirectional link such as a telemetry radio.
type Port interface {
	Source
	Sink
}

// Flusher is implemented by datagram ports that batch written bytes until
// the end of a tick.
type Flusher interface {
	Flush() error
}
