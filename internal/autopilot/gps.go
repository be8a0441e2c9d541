package autopilot

import (
	"math"
	"time"

	"autopilot-ng/internal/clock"
	"autopilot-ng/internal/gps"
	"autopilot-ng/internal/mavlink"
)

const (
	DefaultGPSReadInterval    = 100 * time.Millisecond
	DefaultGPSPublishInterval = time.Second

	hdgUnknown = math.MaxUint16
)

// GPSComponent polls a GPS sensor and reports the position to the ground
// station as GLOBAL_POSITION_INT.
//
// Only fixed GGA reports update the position. The first of them also sets
// the home altitude that relative altitude is measured from. Nothing is
// published until a fix has been seen.
type GPSComponent struct {
	systemID uint8
	sensor   gps.Sensor

	readTimer    clock.Timer
	publishTimer clock.Timer
	publishDue   bool

	gga     gps.GGA
	haveFix bool
	vtg     gps.VTG
	haveVTG bool
	homeAlt float64

	boot bootClock

	readErr error
}

// NewGPS returns a GPS component reading from sensor. A nil sensor means
// no GPS is fitted: the component then only keeps time.
func NewGPS(systemID uint8, sensor gps.Sensor, readInterval, publishInterval time.Duration) *GPSComponent {
	if readInterval <= 0 {
		readInterval = DefaultGPSReadInterval
	}
	if publishInterval <= 0 {
		publishInterval = DefaultGPSPublishInterval
	}
	c := &GPSComponent{
		systemID:     systemID,
		sensor:       sensor,
		readTimer:    clock.NewTimer(readInterval),
		publishTimer: clock.NewTimer(publishInterval),
	}
	if sensor != nil {
		sensor.Setup(gps.Callbacks{GGA: c.onGGA, VTG: c.onVTG})
	}
	return c
}

func (c *GPSComponent) Recv(*mavlink.Frame) {}

func (c *GPSComponent) Loop(bus *mavlink.Bus, dt time.Duration) {
	c.boot.advance(dt)

	if c.readTimer.Step(dt) > 0 && c.sensor != nil {
		_, c.readErr = c.sensor.Read()
	}

	if c.publishTimer.Step(dt) > 0 && c.haveFix {
		c.publishDue = true
	}
	if c.publishDue && bus.ReadyToSend() {
		c.publishDue = !bus.Send(mavlink.NewFrame(c.systemID, mavlink.CompIDGPS, c.Report()))
	}
}

func (c *GPSComponent) onGGA(g gps.GGA) {
	if !g.HasFix || !g.PosOK {
		return
	}
	if !c.haveFix {
		c.homeAlt = g.AltM
	}
	c.gga = g
	c.haveFix = true
}

func (c *GPSComponent) onVTG(v gps.VTG) {
	c.vtg = v
	c.haveVTG = true
}

// Report builds the position report from the latest fix.
func (c *GPSComponent) Report() mavlink.GlobalPositionInt {
	r := mavlink.GlobalPositionInt{
		TimeBootMs:  c.boot.ms,
		Lat:         int32(math.Round(c.gga.LatDeg * 1e7)),
		Lon:         int32(math.Round(c.gga.LonDeg * 1e7)),
		Alt:         int32(math.Round(c.gga.AltM * 1e3)),
		RelativeAlt: int32(math.Round((c.gga.AltM - c.homeAlt) * 1e3)),
		Hdg:         hdgUnknown,
	}
	if c.haveVTG && c.vtg.CourseOK {
		deg := math.Mod(c.vtg.CourseRad*180/math.Pi, 360)
		if deg < 0 {
			deg += 360
		}
		r.Hdg = uint16(math.Round(deg*100)) % 36000
		if c.vtg.SpeedOK {
			cms := c.vtg.SpeedMS * 100
			r.Vx = clampInt16(cms * math.Cos(c.vtg.CourseRad))
			r.Vy = clampInt16(cms * math.Sin(c.vtg.CourseRad))
		}
	}
	return r
}

// HomeAltitude returns the MSL altitude of the first fix.
func (c *GPSComponent) HomeAltitude() (float64, bool) { return c.homeAlt, c.haveFix }

// ReadErr returns the error from the most recent sensor read.
func (c *GPSComponent) ReadErr() error { return c.readErr }

func clampInt16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
