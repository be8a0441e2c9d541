package gps

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"autopilot-ng/internal/nmea"
	"autopilot-ng/internal/stream"
)

func feedString(t *testing.T, d *Decoder, s string) int {
	t.Helper()
	done := 0
	for i := 0; i < len(s); i++ {
		ok, err := d.Feed(s[i])
		if err != nil {
			t.Fatalf("Feed(%q) err=%v", s[i], err)
		}
		if ok {
			done++
		}
	}
	return done
}

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestDecodeGGA(t *testing.T) {
	var got []GGA
	d := NewDecoder(Callbacks{GGA: func(g GGA) { got = append(got, g) }})

	n := feedString(t, d, "$GPGGA,092750.000,5321.6802,N,00630.3372,W,1,8,1.03,61.7,M,55.2,M,,*76\r\n")
	if n != 1 {
		t.Fatalf("sentences=%d want 1", n)
	}
	if len(got) != 1 {
		t.Fatalf("GGA callbacks=%d want 1", len(got))
	}
	g := got[0]
	if !approx(g.LatDeg, 53.361337, 1e-5) {
		t.Fatalf("lat=%f want ~53.361337", g.LatDeg)
	}
	if !approx(g.LonDeg, -6.50562, 1e-5) {
		t.Fatalf("lon=%f want ~-6.50562", g.LonDeg)
	}
	if !approx(g.AltM, 61.7, 1e-9) {
		t.Fatalf("alt=%f want 61.7", g.AltM)
	}
	if !approx(g.GeoidSepM, 55.2, 1e-9) {
		t.Fatalf("geoid=%f want 55.2", g.GeoidSepM)
	}
	if !g.HasFix || !g.PosOK || g.Quality != 1 || g.Satellites != 8 {
		t.Fatalf("fix=%v pos=%v quality=%d sats=%d", g.HasFix, g.PosOK, g.Quality, g.Satellites)
	}
	if !g.TimeOK || g.TimeOfDayMs != (9*3600+27*60+50)*1000 {
		t.Fatalf("time=%d ok=%v", g.TimeOfDayMs, g.TimeOK)
	}
}

func TestDecodeGGA_BadChecksumNotDelivered(t *testing.T) {
	calls := 0
	var results []bool
	d := NewDecoder(Callbacks{
		GGA:      func(GGA) { calls++ },
		Sentence: func(ok bool) { results = append(results, ok) },
	})

	feedString(t, d, "$GPGGA,092750.000,5321.6802,N,00630.3372,W,1,8,1.03,61.7,M,55.2,M,,*77\r\n")
	if calls != 0 {
		t.Fatalf("GGA callbacks=%d want 0", calls)
	}
	if len(results) != 1 || results[0] {
		t.Fatalf("sentence results=%v want [false]", results)
	}
	if st := d.Stats(); st.Sentences != 1 || st.ChecksumErrors != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestDecodeVTG(t *testing.T) {
	var got VTG
	d := NewDecoder(Callbacks{VTG: func(v VTG) { got = v }})
	feedString(t, d, withChecksum("GPVTG,90.0,T,,M,10.0,N,18.52,K,A"))

	if !got.CourseOK || !approx(got.CourseRad, math.Pi/2, 1e-9) {
		t.Fatalf("course=%f ok=%v", got.CourseRad, got.CourseOK)
	}
	if !got.SpeedOK || !approx(got.SpeedMS, 18.52/3.6, 1e-9) {
		t.Fatalf("speed=%f ok=%v", got.SpeedMS, got.SpeedOK)
	}
}

func TestDecodeVTG_KnotsFallback(t *testing.T) {
	var got VTG
	d := NewDecoder(Callbacks{VTG: func(v VTG) { got = v }})
	feedString(t, d, withChecksum("GPVTG,0.0,T,,M,10.0,N,,K,A"))

	if !got.SpeedOK || !approx(got.SpeedMS, 10*knotsToMS, 1e-9) {
		t.Fatalf("speed=%f ok=%v", got.SpeedMS, got.SpeedOK)
	}
}

func TestDecodeRMC(t *testing.T) {
	var got RMC
	d := NewDecoder(Callbacks{RMC: func(r RMC) { got = r }})
	feedString(t, d, withChecksum("GNRMC,123519.00,A,4807.038,N,01131.000,E,022.4,084.4,230394,,,A"))

	if !got.Active || !got.PosOK {
		t.Fatalf("active=%v pos=%v", got.Active, got.PosOK)
	}
	if !approx(got.LatDeg, 48.1173, 1e-4) || !approx(got.LonDeg, 11.516667, 1e-4) {
		t.Fatalf("lat=%f lon=%f", got.LatDeg, got.LonDeg)
	}
	if !got.GSOK || got.GroundKt != 22.4 || !got.TrkOK || !approx(got.TrackDeg, 84.4, 1e-9) {
		t.Fatalf("gs=%f trk=%f", got.GroundKt, got.TrackDeg)
	}
}

func TestDecodeGGA_NoFixHasNoPosition(t *testing.T) {
	var got GGA
	d := NewDecoder(Callbacks{GGA: func(g GGA) { got = g }})
	feedString(t, d, withChecksum("GPGGA,000001.00,,,,,0,00,99.99,,,,,,"))

	if got.HasFix || got.PosOK {
		t.Fatalf("fix=%v pos=%v want false", got.HasFix, got.PosOK)
	}
}

func TestDecoderOverflowCounted(t *testing.T) {
	d := NewDecoder(Callbacks{})
	var firstErr error
	s := "$GP" + strings.Repeat("A", 100)
	for i := 0; i < len(s); i++ {
		if _, err := d.Feed(s[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if !errors.Is(firstErr, nmea.ErrSentenceTooLong) {
		t.Fatalf("err=%v want ErrSentenceTooLong", firstErr)
	}
	if d.Stats().Overflows == 0 {
		t.Fatalf("overflows=0")
	}
}

func TestParseDegreeMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"5321.6802", 53.36133667, true},
		{"00630.3372", 6.50562, true},
		{"4807", 48.116667, true},
		{"", 0, false},
		{"21", 0, false},
		{"5399.0", 0, false},
		{"ab21.0", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseDegreeMinutes([]byte(tc.in))
		if ok != tc.ok {
			t.Fatalf("parseDegreeMinutes(%q) ok=%v want %v", tc.in, ok, tc.ok)
		}
		if ok && !approx(got, tc.want, 1e-5) {
			t.Fatalf("parseDegreeMinutes(%q)=%f want %f", tc.in, got, tc.want)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want int32
		ok   bool
	}{
		{"000000", 0, true},
		{"092750.000", 33470000, true},
		{"092750.5", 33470500, true},
		{"235959.99", 86399990, true},
		{"245959", 0, false},
		{"0927", 0, false},
		{"092750,000", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseTimeOfDay([]byte(tc.in))
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("parseTimeOfDay(%q)=(%d,%v) want (%d,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestStreamSensorReadsFromPipe(t *testing.T) {
	p := stream.NewPipe(256, 16)
	p.Push([]byte("junk$GPGGA,092750.000,5321.6802,N,00630.3372,W,1,8,1.03,61.7,M,55.2,M,,*76\r\n"))

	s := NewStreamSensor(p)
	var alt float64
	s.Setup(Callbacks{GGA: func(g GGA) { alt = g.AltM }})

	got, err := s.Read()
	if err != nil || !got {
		t.Fatalf("Read()=(%v,%v) want (true,nil)", got, err)
	}
	if alt != 61.7 {
		t.Fatalf("alt=%f want 61.7", alt)
	}

	got, err = s.Read()
	if err != nil || got {
		t.Fatalf("second Read()=(%v,%v) want (false,nil)", got, err)
	}
}

func TestFixStateSnapshot(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st := fixState{source: "nmea", device: "/dev/ttyACM0", baud: 9600}

	st.applyGGA(now, GGA{LatDeg: 1.5, LonDeg: -2.5, PosOK: true, HasFix: true, Quality: 1, Satellites: 7, HDOP: 0.9, AltM: 100})
	st.applyVTG(VTG{CourseRad: math.Pi, CourseOK: true, SpeedMS: 3, SpeedOK: true})
	st.countSentence(true)
	st.countSentence(false)

	snap := st.snapshot(now.Add(time.Second))
	if !snap.Valid || snap.FixStale {
		t.Fatalf("valid=%v stale=%v", snap.Valid, snap.FixStale)
	}
	if snap.LatDeg != 1.5 || snap.LonDeg != -2.5 {
		t.Fatalf("lat=%f lon=%f", snap.LatDeg, snap.LonDeg)
	}
	if snap.AltM == nil || *snap.AltM != 100 {
		t.Fatalf("alt=%v", snap.AltM)
	}
	if snap.TrackDeg == nil || !approx(*snap.TrackDeg, 180, 1e-9) {
		t.Fatalf("track=%v", snap.TrackDeg)
	}
	if snap.GroundSpeedMS == nil || *snap.GroundSpeedMS != 3 {
		t.Fatalf("gs=%v", snap.GroundSpeedMS)
	}
	if snap.Satellites == nil || *snap.Satellites != 7 {
		t.Fatalf("sats=%v", snap.Satellites)
	}
	if snap.Sentences != 2 || snap.ChecksumErrors != 1 {
		t.Fatalf("sentences=%d checksum_errors=%d", snap.Sentences, snap.ChecksumErrors)
	}

	if stale := st.snapshot(now.Add(10 * time.Second)); !stale.FixStale {
		t.Fatalf("expected stale fix")
	}

	st.applyGGA(now, GGA{Quality: 0})
	if snap := st.snapshot(now); snap.Valid {
		t.Fatalf("valid after lost fix")
	}
}

// withChecksum wraps payload into a complete sentence.
func withChecksum(payload string) string {
	var cs byte
	for i := 0; i < len(payload); i++ {
		cs ^= payload[i]
	}
	const hex = "0123456789ABCDEF"
	return "$" + payload + "*" + string([]byte{hex[cs>>4], hex[cs&0x0F]}) + "\r\n"
}
