// Package udp carries MAVLink to a ground station over UDP datagrams.
package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"autopilot-ng/internal/stream"
)

const (
	// One datagram per tick. Large enough for a few full MAVLink frames.
	maxDatagram  = 1024
	rxBufferSize = 4096
)

type udpConn interface {
	ReadFrom(p []byte) (int, net.Addr, error)
	WriteTo(p []byte, addr net.Addr) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type listenFunc func(network string, laddr *net.UDPAddr) (udpConn, error)

// Link is a stream.Port over a UDP socket. Written bytes are batched and
// sent as one datagram by Flush; received datagrams are buffered for Read.
//
// With no fixed destination the link answers whoever sent the most recent
// datagram, which is how ground stations expect a vehicle to behave.
type Link struct {
	conn udpConn
	rx   *stream.Pipe
	tx   []byte

	mu      sync.Mutex
	dest    net.Addr
	fixed   bool
	sent    uint64
	dropped uint64
}

// Stats counts outbound datagrams.
type Stats struct {
	Sent    uint64
	Dropped uint64
}

// NewLink listens on listen (e.g. ":14550"). dest may be empty.
func NewLink(listen, dest string) (*Link, error) {
	return newLink(listen, dest, net.ResolveUDPAddr, func(network string, laddr *net.UDPAddr) (udpConn, error) {
		return net.ListenUDP(network, laddr)
	})
}

func newLink(listen, dest string, resolve resolveFunc, listenUDP listenFunc) (*Link, error) {
	var laddr *net.UDPAddr
	if listen != "" {
		a, err := resolve("udp", listen)
		if err != nil {
			return nil, fmt.Errorf("resolve listen: %w", err)
		}
		laddr = a
	}

	l := &Link{
		rx: stream.NewPipe(rxBufferSize, 1),
		tx: make([]byte, 0, maxDatagram),
	}
	if dest != "" {
		a, err := resolve("udp", dest)
		if err != nil {
			return nil, fmt.Errorf("resolve dest: %w", err)
		}
		l.dest = a
		l.fixed = true
	}

	conn, err := listenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}
	l.conn = conn
	return l, nil
}

func (l *Link) Available() int         { return l.rx.Available() }
func (l *Link) Read() (byte, bool)     { return l.rx.Read() }
func (l *Link) AvailableForWrite() int { return cap(l.tx) - len(l.tx) }

func (l *Link) Write(c byte) int {
	if len(l.tx) == cap(l.tx) {
		return 0
	}
	l.tx = append(l.tx, c)
	return 1
}

// Flush sends the bytes written since the last Flush. Without a known peer
// they are discarded.
func (l *Link) Flush() error {
	if len(l.tx) == 0 {
		return nil
	}
	defer func() { l.tx = l.tx[:0] }()

	l.mu.Lock()
	dest := l.dest
	if dest == nil {
		l.dropped++
	}
	l.mu.Unlock()
	if dest == nil {
		return nil
	}

	if _, err := l.conn.WriteTo(l.tx, dest); err != nil {
		return err
	}
	l.mu.Lock()
	l.sent++
	l.mu.Unlock()
	return nil
}

// Serve receives datagrams until ctx is cancelled or the socket fails.
func (l *Link) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = l.conn.Close()
	}()

	buf := make([]byte, 65535)
	for {
		n, from, err := l.conn.ReadFrom(buf)
		if n > 0 {
			if from != nil {
				l.mu.Lock()
				if !l.fixed {
					l.dest = from
				}
				l.mu.Unlock()
			}
			l.rx.Push(buf[:n])
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			return err
		}
	}
}

func (l *Link) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{Sent: l.sent, Dropped: l.dropped}
}

func (l *Link) Close() error {
	if l.conn == nil {
		return nil
	}
	return l.conn.Close()
}
