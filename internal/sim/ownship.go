// Package sim flies a simulated vehicle for bench testing without a GPS
// receiver attached.
package sim

import (
	"math"
	"time"
)

// metersPerDegLat uses 60 NM per degree of latitude.
const metersPerDegLat = 60 * 1852.0

// Ownship flies a figure-eight around a centre point with a slow altitude
// oscillation. The path is a pure function of time.
type Ownship struct {
	CenterLatDeg float64
	CenterLonDeg float64
	AltM         float64
	RadiusM      float64
	Period       time.Duration
}

// State is the ownship at one instant.
type State struct {
	LatDeg        float64
	LonDeg        float64
	AltM          float64
	TrackDeg      float64
	GroundSpeedMS float64
	ClimbMS       float64
}

func (s Ownship) withDefaults() Ownship {
	if s.Period <= 0 {
		s.Period = 120 * time.Second
	}
	if s.RadiusM <= 0 {
		s.RadiusM = 500
	}
	if s.AltM == 0 {
		s.AltM = 100
	}
	return s
}

// At returns the ownship state at now.
func (s Ownship) At(now time.Time) State {
	s = s.withDefaults()
	period := s.Period.Seconds()
	phase := float64(now.UnixNano()%s.Period.Nanoseconds()) / float64(s.Period.Nanoseconds())

	// x = cos(w) east, y = 0.5*sin(2w) north, in units of RadiusM.
	w := 2 * math.Pi * phase
	x := math.Cos(w)
	y := 0.5 * math.Sin(2*w)

	radiusDeg := s.RadiusM / metersPerDegLat
	st := State{
		LatDeg: s.CenterLatDeg + radiusDeg*y,
		LonDeg: s.CenterLonDeg + (radiusDeg*x)/math.Cos(s.CenterLatDeg*math.Pi/180.0),
	}

	dw := 2 * math.Pi / period
	ve := -s.RadiusM * math.Sin(w) * dw
	vn := s.RadiusM * math.Cos(2*w) * dw
	st.GroundSpeedMS = math.Hypot(ve, vn)
	st.TrackDeg = math.Mod(math.Atan2(ve, vn)*180/math.Pi+360, 360)

	// Altitude cycles at half the horizontal period, never faster than 30 s.
	vp := s.Period / 2
	if vp < 30*time.Second {
		vp = 30 * time.Second
	}
	const amp = 20.0
	vphase := float64(now.UnixNano()%vp.Nanoseconds()) / float64(vp.Nanoseconds())
	vw := 2 * math.Pi * vphase
	st.AltM = s.AltM + amp*math.Sin(vw)
	st.ClimbMS = amp * (2 * math.Pi / vp.Seconds()) * math.Cos(vw)
	return st
}

// offset moves st by dn metres north and de metres east.
func offset(st State, dn, de float64) State {
	st.LatDeg += dn / metersPerDegLat
	st.LonDeg += de / (metersPerDegLat * math.Cos(st.LatDeg*math.Pi/180.0))
	return st
}
