// Package autopilot runs the vehicle's control loop: it moves MAVLink
// traffic between the link and the components and gives every component a
// slice of each tick.
package autopilot

import (
	"context"
	"log"
	"time"

	"autopilot-ng/internal/clock"
	"autopilot-ng/internal/mavlink"
	"autopilot-ng/internal/metrics"
	"autopilot-ng/internal/stream"
)

// Component is one piece of vehicle logic attached to the MAVLink bus.
type Component interface {
	// Recv is called for every frame decoded from the link. The frame is
	// only valid for the duration of the call.
	Recv(f *mavlink.Frame)
	// Loop runs once per tick. dt is the time since the previous tick.
	Loop(bus *mavlink.Bus, dt time.Duration)
}

// Program owns the link, the bus and the components.
type Program struct {
	port       stream.Port
	clk        clock.Clock
	sw         clock.Stopwatch
	bus        *mavlink.Bus
	dec        *mavlink.Decoder
	components []Component
	metrics    *metrics.Metrics
}

// NewProgram starts the tick stopwatch at the clock's current time. m may
// be nil.
func NewProgram(port stream.Port, clk clock.Clock, version uint8, m *metrics.Metrics, components ...Component) *Program {
	p := &Program{
		port:       port,
		clk:        clk,
		bus:        mavlink.NewBus(version),
		dec:        mavlink.NewDecoder(),
		components: components,
		metrics:    m,
	}
	p.sw.Begin(clk)
	return p
}

func (p *Program) Bus() *mavlink.Bus { return p.bus }

func (p *Program) DecoderStats() mavlink.DecoderStats { return p.dec.Stats() }

// Loop runs one tick: stream pending output, dispatch every complete
// inbound frame, then step the components. Frames queued by components go
// out from the next tick on.
func (p *Program) Loop() error {
	dt := p.sw.Lap(p.clk)
	start := p.clk.Now()

	p.bus.ProcessOutput(p.port)
	var flushErr error
	if f, ok := p.port.(stream.Flusher); ok {
		flushErr = f.Flush()
	}

	for {
		f, ok := p.dec.Read(p.port)
		if !ok {
			break
		}
		p.metrics.FrameReceived()
		for _, c := range p.components {
			c.Recv(f)
		}
	}

	for _, c := range p.components {
		c.Loop(p.bus, dt)
	}

	s := p.bus.Stats()
	p.metrics.ObserveBus(metrics.BusTotals{Sent: s.Sent, Rejected: s.Rejected, BytesWritten: s.BytesWritten})
	p.metrics.ObserveTick(p.clk.Now().Sub(start))
	return flushErr
}

// Run ticks every interval until ctx is cancelled. Link errors are logged
// and do not stop the loop.
func (p *Program) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	var lastErr string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if err := p.Loop(); err != nil {
			if err.Error() != lastErr {
				log.Printf("mavlink link write failed: %v", err)
				lastErr = err.Error()
			}
		} else {
			lastErr = ""
		}
	}
}

// bootClock accumulates tick durations into whole milliseconds since boot.
type bootClock struct {
	ms   uint32
	frac time.Duration
}

func (b *bootClock) advance(dt time.Duration) {
	b.frac += dt
	ms := b.frac / time.Millisecond
	b.frac -= ms * time.Millisecond
	b.ms += uint32(ms)
}
