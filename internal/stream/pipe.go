package stream

import (
	"context"
	"io"
	"sync"
)

// Pipe buffers bytes between a blocking transport and the polled Port
// interface. The receive side is filled by Push (or Serve) and drained by
// Read; the transmit side is filled by Write and drained by Pull (or Serve).
//
// Received bytes that do not fit are dropped and counted as overruns, the
// same as a UART FIFO would.
type Pipe struct {
	mu       sync.Mutex
	rx       ring
	tx       ring
	overruns uint64

	txReady chan struct{}
}

func NewPipe(rxCap, txCap int) *Pipe {
	return &Pipe{
		rx:      newRing(rxCap),
		tx:      newRing(txCap),
		txReady: make(chan struct{}, 1),
	}
}

func (p *Pipe) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rx.len()
}

func (p *Pipe) Read() (byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rx.pop()
}

func (p *Pipe) AvailableForWrite() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tx.free()
}

func (p *Pipe) Write(c byte) int {
	p.mu.Lock()
	ok := p.tx.push(c)
	p.mu.Unlock()
	if !ok {
		return 0
	}
	select {
	case p.txReady <- struct{}{}:
	default:
	}
	return 1
}

// Push appends received bytes. It returns how many were stored.
func (p *Pipe) Push(b []byte) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range b {
		if !p.rx.push(c) {
			p.overruns += uint64(len(b) - n)
			break
		}
		n++
	}
	return n
}

// Pull moves pending transmit bytes into dst.
func (p *Pipe) Pull(dst []byte) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tx.popInto(dst)
}

// Overruns returns the number of received bytes dropped so far.
func (p *Pipe) Overruns() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overruns
}

// Reset discards buffered bytes in both directions.
func (p *Pipe) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx.reset()
	p.tx.reset()
}

// Serve pumps bytes between rw and the pipe until either direction fails or
// ctx is cancelled. The caller owns rw and must close it after Serve
// returns so the blocked reader goroutine exits.
func (p *Pipe) Serve(ctx context.Context, rw io.ReadWriter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	go func() { errc <- p.pumpIn(rw) }()
	go func() { errc <- p.pumpOut(ctx, rw) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errc:
		return err
	}
}

func (p *Pipe) pumpIn(r io.Reader) error {
	var buf [256]byte
	for {
		n, err := r.Read(buf[:])
		if n > 0 {
			p.Push(buf[:n])
		}
		if err != nil {
			return err
		}
	}
}

func (p *Pipe) pumpOut(ctx context.Context, w io.Writer) error {
	var buf [256]byte
	for {
		n := p.Pull(buf[:])
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.txReady:
		}
	}
}
