package sim

import (
	"time"

	"autopilot-ng/internal/clock"
	"autopilot-ng/internal/gps"
	"autopilot-ng/internal/rng"
)

// GPS is a gps.Sensor that reports the simulated ownship. Each sample is
// encoded as GGA and VTG sentences and run through the same NMEA decoder a
// real receiver uses.
type GPS struct {
	Ownship Ownship
	// Jitter adds uniform noise of up to this many metres to each position.
	Jitter float64

	clk      clock.Clock
	interval time.Duration
	last     time.Time
	started  bool
	rng      *rng.Minstd
	dec      *gps.Decoder
	buf      []byte
}

// NewGPS samples the ownship every interval (1 s when zero).
func NewGPS(o Ownship, clk clock.Clock, interval time.Duration, seed uint32) *GPS {
	if interval <= 0 {
		interval = time.Second
	}
	return &GPS{
		Ownship:  o,
		clk:      clk,
		interval: interval,
		rng:      rng.New(seed),
		dec:      gps.NewDecoder(gps.Callbacks{}),
	}
}

func (g *GPS) Setup(cb gps.Callbacks) { g.dec.SetCallbacks(cb) }

// Read emits one sample when the interval has passed since the previous
// one. The first Read always emits.
func (g *GPS) Read() (bool, error) {
	now := g.clk.Now()
	if g.started && now.Sub(g.last) < g.interval {
		return false, nil
	}
	g.started = true
	g.last = now

	st := g.Ownship.At(now)
	if g.Jitter > 0 {
		j := float32(g.Jitter)
		dn := float64(g.rng.Float(-j, j))
		de := float64(g.rng.Float(-j, j))
		st = offset(st, dn, de)
	}

	g.buf = appendGGA(g.buf[:0], now, st, 8, 0.9)
	g.buf = appendVTG(g.buf, st)

	got := false
	for _, c := range g.buf {
		done, err := g.dec.Feed(c)
		if err != nil {
			return got, err
		}
		got = got || done
	}
	return got, nil
}

// Stats exposes the decoder counters.
func (g *GPS) Stats() gps.Stats { return g.dec.Stats() }
