package autopilot

import (
	"log"
	"math"
	"time"

	"autopilot-ng/internal/clock"
	"autopilot-ng/internal/mavlink"
	"autopilot-ng/internal/sensors/bmp280"
)

const DefaultBaroInterval = 500 * time.Millisecond

// Barometer is satisfied by *bmp280.Device.
type Barometer interface {
	Read() (bmp280.Sample, error)
}

// BaroComponent samples a barometer and reports SCALED_PRESSURE. The sample
// is taken when the report is about to be sent, so a full bus delays the
// read rather than sending a stale value.
type BaroComponent struct {
	systemID uint8
	baro     Barometer

	timer clock.Timer
	due   bool
	boot  bootClock

	last    bmp280.Sample
	readErr error
	errors  uint64
}

func NewBaro(systemID uint8, baro Barometer, interval time.Duration) *BaroComponent {
	if interval <= 0 {
		interval = DefaultBaroInterval
	}
	return &BaroComponent{systemID: systemID, baro: baro, timer: clock.NewTimer(interval)}
}

func (c *BaroComponent) Recv(*mavlink.Frame) {}

func (c *BaroComponent) Loop(bus *mavlink.Bus, dt time.Duration) {
	c.boot.advance(dt)
	if c.timer.Step(dt) > 0 {
		c.due = true
	}
	if !c.due || !bus.ReadyToSend() {
		return
	}

	s, err := c.baro.Read()
	if err != nil {
		if c.errors == 0 {
			log.Printf("baro read failed: %v", err)
		}
		c.errors++
		c.readErr = err
		c.due = false
		return
	}
	c.last, c.readErr = s, nil
	msg := mavlink.ScaledPressure{
		TimeBootMs:  c.boot.ms,
		PressAbs:    float32(s.PressPa / 100),
		Temperature: int16(math.Round(s.TempC * 100)),
	}
	c.due = !bus.Send(mavlink.NewFrame(c.systemID, mavlink.CompIDAutopilot1, msg))
}

// Last returns the most recent successful sample.
func (c *BaroComponent) Last() bmp280.Sample { return c.last }

// ReadErr returns the error of the latest read.
func (c *BaroComponent) ReadErr() error { return c.readErr }

// ReadErrors counts failed reads.
func (c *BaroComponent) ReadErrors() uint64 { return c.errors }
