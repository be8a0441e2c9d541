package stream

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"time"
)

// DialFunc opens a transport. Hello, when non-nil, is written right after a
// successful dial (e.g. a gpsd ?WATCH command).
type DialFunc func(ctx context.Context) (io.ReadWriteCloser, error)

const (
	minBackoff = 250 * time.Millisecond
	maxBackoff = 10 * time.Second
)

// Redial keeps a transport attached to p until ctx is cancelled, dialing
// again with a doubling backoff whenever the connection drops. name only
// labels log lines.
func (p *Pipe) Redial(ctx context.Context, name string, dial DialFunc, hello []byte) {
	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := dial(ctx)
		if err != nil {
			log.Printf("%s dial failed: %v", name, err)
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = minBackoff
		log.Printf("%s connected", name)

		err = p.serveConn(ctx, conn, hello)
		_ = conn.Close()
		if err != nil && ctx.Err() == nil {
			log.Printf("%s link stopped: %v", name, err)
		}
	}
}

func (p *Pipe) serveConn(ctx context.Context, conn io.ReadWriteCloser, hello []byte) error {
	if len(hello) > 0 {
		if _, err := conn.Write(hello); err != nil {
			return err
		}
	}
	return p.Serve(ctx, conn)
}

// ServeListener accepts one connection at a time on ln and attaches it to p,
// the way a telemetry radio only ever has one peer. It returns when ctx is
// cancelled or the listener fails.
func (p *Pipe) ServeListener(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			return err
		}
		log.Printf("mavlink peer connected addr=%s", conn.RemoteAddr())
		p.Reset()
		err = p.Serve(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("mavlink peer disconnected addr=%s err=%v", conn.RemoteAddr(), err)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
