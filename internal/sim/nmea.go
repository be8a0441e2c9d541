package sim

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// appendSentence frames body as $body*CS\r\n.
func appendSentence(dst []byte, body string) []byte {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	dst = append(dst, '$')
	dst = append(dst, body...)
	return fmt.Appendf(dst, "*%02X\r\n", cs)
}

// degreeMinutes formats |deg| as ddmm.mmmm (or dddmm.mmmm with degDigits 3).
func degreeMinutes(deg float64, degDigits int) string {
	deg = math.Abs(deg)
	d := math.Floor(deg)
	m := (deg - d) * 60
	// Rounding can carry into a full minute.
	if math.Round(m*1e4) >= 60e4 {
		d++
		m = 0
	}
	return fmt.Sprintf("%0*d%07.4f", degDigits, int(d), m)
}

func hemisphere(v float64, pos, neg byte) string {
	if v < 0 {
		return string(neg)
	}
	return string(pos)
}

func appendGGA(dst []byte, now time.Time, st State, sats int, hdop float64) []byte {
	now = now.UTC()
	body := fmt.Sprintf("GPGGA,%02d%02d%02d.%03d,%s,%s,%s,%s,1,%02d,%s,%s,M,0.0,M,,",
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond()/int(time.Millisecond),
		degreeMinutes(st.LatDeg, 2), hemisphere(st.LatDeg, 'N', 'S'),
		degreeMinutes(st.LonDeg, 3), hemisphere(st.LonDeg, 'E', 'W'),
		sats,
		strconv.FormatFloat(hdop, 'f', 1, 64),
		strconv.FormatFloat(st.AltM, 'f', 1, 64),
	)
	return appendSentence(dst, body)
}

func appendVTG(dst []byte, st State) []byte {
	knots := st.GroundSpeedMS / 0.514444
	body := fmt.Sprintf("GPVTG,%.1f,T,,M,%.2f,N,%.2f,K,A", st.TrackDeg, knots, st.GroundSpeedMS*3.6)
	return appendSentence(dst, body)
}
