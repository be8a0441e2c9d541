package gps

import (
	"bytes"
	"math"
	"strconv"

	"autopilot-ng/internal/nmea"
)

// GGA is a Global Positioning System Fix Data report.
type GGA struct {
	// TimeOfDayMs is the UTC time of day in milliseconds; valid if TimeOK.
	TimeOfDayMs int32
	TimeOK      bool

	LatDeg float64
	LonDeg float64
	// PosOK is set when both latitude and longitude parsed.
	PosOK bool

	// Quality is the fix quality indicator (0 = no fix).
	Quality    int
	HasFix     bool
	Satellites int
	HDOP       float64

	// AltM is the antenna altitude above mean sea level.
	AltM float64
	// GeoidSepM is the geoid separation.
	GeoidSepM float64
}

// VTG is a course and speed over ground report.
type VTG struct {
	// CourseRad is the course over ground in radians from true north.
	CourseRad float64
	CourseOK  bool
	SpeedMS   float64
	SpeedOK   bool
}

// RMC is a Recommended Minimum Specific GNSS Data report.
type RMC struct {
	TimeOfDayMs int32
	TimeOK      bool
	// Active is true for status 'A', false for void fixes.
	Active   bool
	LatDeg   float64
	LonDeg   float64
	PosOK    bool
	GroundKt float64
	GSOK     bool
	TrackDeg float64
	TrkOK    bool
}

// Callbacks receive decoded reports. Reports are only delivered for
// sentences whose checksum passed. Any callback may be nil.
type Callbacks struct {
	GGA func(GGA)
	VTG func(VTG)
	RMC func(RMC)
	// Sentence is called at the end of every sentence, valid or not.
	Sentence func(checksumOK bool)
}

type sentenceKind uint8

const (
	kindOther sentenceKind = iota
	kindGGA
	kindVTG
	kindRMC
)

// Stats counts parser outcomes since the decoder was created.
type Stats struct {
	Sentences      uint64
	ChecksumErrors uint64
	Overflows      uint64
}

// Decoder implements nmea.Handler and assembles typed reports from field
// events. It must be fed from a single goroutine.
type Decoder struct {
	parser *nmea.Parser
	cb     Callbacks

	kind sentenceKind
	gga  GGA
	vtg  VTG
	rmc  RMC

	knots float64
	kphOK bool

	latOK bool
	lonOK bool

	stats Stats
}

func NewDecoder(cb Callbacks) *Decoder {
	d := &Decoder{cb: cb}
	d.parser = nmea.NewParser(d)
	return d
}

// SetCallbacks replaces the report callbacks.
func (d *Decoder) SetCallbacks(cb Callbacks) { d.cb = cb }

// Feed consumes one byte and reports whether it completed a sentence.
func (d *Decoder) Feed(c byte) (bool, error) {
	done, err := d.parser.Feed(c)
	if err != nil {
		d.stats.Overflows++
	}
	return done, err
}

func (d *Decoder) Stats() Stats { return d.stats }

func (d *Decoder) MessageBegin() {
	d.kind = kindOther
	d.latOK = false
	d.lonOK = false
}

func (d *Decoder) Talker([]byte) {}

func (d *Decoder) Type(typ []byte) {
	switch string(typ) {
	case "GGA":
		d.kind = kindGGA
		d.gga = GGA{}
	case "VTG":
		d.kind = kindVTG
		d.vtg = VTG{}
		d.kphOK = false
		d.knots = 0
	case "RMC":
		d.kind = kindRMC
		d.rmc = RMC{}
	default:
		d.kind = kindOther
	}
}

func (d *Decoder) Field(field []byte, index int) {
	switch d.kind {
	case kindGGA:
		d.ggaField(field, index)
	case kindVTG:
		d.vtgField(field, index)
	case kindRMC:
		d.rmcField(field, index)
	}
}

func (d *Decoder) MessageEnd(checksumOK bool) {
	d.stats.Sentences++
	if !checksumOK {
		d.stats.ChecksumErrors++
	}
	if d.cb.Sentence != nil {
		d.cb.Sentence(checksumOK)
	}
	if !checksumOK {
		return
	}

	switch d.kind {
	case kindGGA:
		d.gga.PosOK = d.latOK && d.lonOK
		if d.cb.GGA != nil {
			d.cb.GGA(d.gga)
		}
	case kindVTG:
		if !d.kphOK && d.knots > 0 {
			d.vtg.SpeedMS = d.knots * knotsToMS
			d.vtg.SpeedOK = true
		}
		if d.cb.VTG != nil {
			d.cb.VTG(d.vtg)
		}
	case kindRMC:
		d.rmc.PosOK = d.latOK && d.lonOK
		if d.cb.RMC != nil {
			d.cb.RMC(d.rmc)
		}
	}
}

// GGA fields:
//
//	0: UTC time (hhmmss.sss)
//	1: latitude (ddmm.mmmm)
//	2: N/S
//	3: longitude (dddmm.mmmm)
//	4: E/W
//	5: fix quality (0=invalid)
//	6: satellites in use
//	7: HDOP
//	8: MSL altitude
//	9: altitude units (M)
//	10: geoid separation
//	11: separation units (M)
//	12: age of differential data
//	13: reference station ID
func (d *Decoder) ggaField(f []byte, index int) {
	g := &d.gga
	switch index {
	case 0:
		g.TimeOfDayMs, g.TimeOK = parseTimeOfDay(f)
	case 1:
		g.LatDeg, d.latOK = parseDegreeMinutes(f)
	case 2:
		g.LatDeg = applyHemisphere(g.LatDeg, f)
	case 3:
		g.LonDeg, d.lonOK = parseDegreeMinutes(f)
	case 4:
		g.LonDeg = applyHemisphere(g.LonDeg, f)
	case 5:
		if q, err := strconv.Atoi(string(f)); err == nil {
			g.Quality = q
			g.HasFix = q != 0
		}
	case 6:
		g.Satellites, _ = strconv.Atoi(string(f))
	case 7:
		g.HDOP, _ = parseFloat(f)
	case 8:
		g.AltM, _ = parseFloat(f)
	case 10:
		g.GeoidSepM, _ = parseFloat(f)
	}
}

// VTG fields:
//
//	0: course over ground, true (deg)
//	1: T
//	2: course over ground, magnetic (deg)
//	3: M
//	4: speed (knots)
//	5: N
//	6: speed (km/h)
//	7: K
//	8: mode indicator
func (d *Decoder) vtgField(f []byte, index int) {
	v := &d.vtg
	switch index {
	case 0:
		if deg, ok := parseFloat(f); ok {
			v.CourseRad = math.Mod(deg+360, 360) * math.Pi / 180
			v.CourseOK = true
		}
	case 4:
		d.knots, _ = parseFloat(f)
	case 6:
		if kph, ok := parseFloat(f); ok {
			v.SpeedMS = kph / 3.6
			v.SpeedOK = true
			d.kphOK = true
		}
	}
}

// RMC fields:
//
//	0: UTC time
//	1: status (A=active, V=void)
//	2: latitude
//	3: N/S
//	4: longitude
//	5: E/W
//	6: speed over ground (knots)
//	7: course over ground (deg)
//	8: date (ddmmyy)
func (d *Decoder) rmcField(f []byte, index int) {
	r := &d.rmc
	switch index {
	case 0:
		r.TimeOfDayMs, r.TimeOK = parseTimeOfDay(f)
	case 1:
		r.Active = bytes.Equal(bytes.TrimSpace(f), []byte("A"))
	case 2:
		r.LatDeg, d.latOK = parseDegreeMinutes(f)
	case 3:
		r.LatDeg = applyHemisphere(r.LatDeg, f)
	case 4:
		r.LonDeg, d.lonOK = parseDegreeMinutes(f)
	case 5:
		r.LonDeg = applyHemisphere(r.LonDeg, f)
	case 6:
		r.GroundKt, r.GSOK = parseFloat(f)
	case 7:
		if trk, ok := parseFloat(f); ok {
			r.TrackDeg = math.Mod(trk+360.0, 360.0)
			r.TrkOK = true
		}
	}
}

const knotsToMS = 0.514444

func parseFloat(f []byte) (float64, bool) {
	f = bytes.TrimSpace(f)
	if len(f) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseDegreeMinutes converts ddmm.mmmm / dddmm.mmmm into decimal degrees.
// The last two digits of the integer part are minutes; whatever precedes
// them is degrees.
func parseDegreeMinutes(f []byte) (float64, bool) {
	f = bytes.TrimSpace(f)
	intPart := f
	if dot := bytes.IndexByte(f, '.'); dot != -1 {
		intPart = f[:dot]
	}
	if len(intPart) < 3 {
		return 0, false
	}

	deg, err := strconv.Atoi(string(intPart[:len(intPart)-2]))
	if err != nil || deg < 0 {
		return 0, false
	}
	mins, err := strconv.ParseFloat(string(f[len(intPart)-2:]), 64)
	if err != nil || mins < 0 || mins >= 60 {
		return 0, false
	}
	return float64(deg) + mins/60.0, true
}

func applyHemisphere(v float64, f []byte) float64 {
	if len(f) == 0 {
		return v
	}
	switch f[0] {
	case 'S', 's', 'W', 'w':
		return -v
	}
	return v
}

// parseTimeOfDay parses hhmmss[.fff] into milliseconds since 00:00 UTC.
// Fractions shorter than three digits are scaled; longer ones truncated.
func parseTimeOfDay(f []byte) (int32, bool) {
	if len(f) < 6 {
		return 0, false
	}
	var hms [6]int32
	for i := 0; i < 6; i++ {
		c := f[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		hms[i] = int32(c - '0')
	}
	hour := hms[0]*10 + hms[1]
	minute := hms[2]*10 + hms[3]
	sec := hms[4]*10 + hms[5]
	if hour > 23 || minute > 59 || sec > 60 {
		return 0, false
	}

	var ms int32
	if len(f) > 6 {
		if f[6] != '.' {
			return 0, false
		}
		scale := int32(100)
		for _, c := range f[7:] {
			if c < '0' || c > '9' {
				return 0, false
			}
			ms += int32(c-'0') * scale
			scale /= 10
		}
	}
	return ((hour*60+minute)*60+sec)*1000 + ms, true
}
