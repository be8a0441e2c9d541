package gps

import (
	"math"
	"time"
)

// Snapshot is the last known receiver state, safe to copy.
type Snapshot struct {
	Enabled  bool `json:"enabled"`
	Valid    bool `json:"valid"`
	FixStale bool `json:"fix_stale"`

	Source   string `json:"source,omitempty"`
	GPSDAddr string `json:"gpsd_addr,omitempty"`
	Device   string `json:"device,omitempty"`
	Baud     int    `json:"baud,omitempty"`

	LatDeg        float64  `json:"lat_deg,omitempty"`
	LonDeg        float64  `json:"lon_deg,omitempty"`
	AltM          *float64 `json:"alt_m,omitempty"`
	GroundSpeedMS *float64 `json:"ground_speed_ms,omitempty"`
	TrackDeg      *float64 `json:"track_deg,omitempty"`
	FixQuality    *int     `json:"fix_quality,omitempty"`
	Satellites    *int     `json:"satellites,omitempty"`
	HDOP          *float64 `json:"hdop,omitempty"`
	FixAgeSec     float64  `json:"fix_age_sec,omitempty"`

	Sentences      uint64 `json:"sentences"`
	ChecksumErrors uint64 `json:"checksum_errors"`

	LastFixUTC string `json:"last_fix_utc,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

// fixStaleAfter marks a fix as stale when no valid position arrived in time.
const fixStaleAfter = 3 * time.Second

// fixState merges GGA, VTG and RMC reports into one picture of the receiver.
type fixState struct {
	source   string
	gpsdAddr string
	device   string
	baud     int

	latDeg float64
	lonDeg float64

	altM  float64
	altOK bool

	speedMS float64
	speedOK bool

	trackDeg float64
	trkOK    bool

	quality   int
	qualityOK bool
	sats      int
	satsOK    bool
	hdop      float64
	hdopOK    bool

	valid   bool
	lastFix time.Time

	sentences      uint64
	checksumErrors uint64
}

func (st *fixState) applyGGA(now time.Time, g GGA) {
	st.quality = g.Quality
	st.qualityOK = true
	st.sats = g.Satellites
	st.satsOK = true
	if g.HDOP > 0 {
		st.hdop = g.HDOP
		st.hdopOK = true
	}
	if !g.HasFix || !g.PosOK {
		st.valid = false
		return
	}
	st.latDeg = g.LatDeg
	st.lonDeg = g.LonDeg
	st.altM = g.AltM
	st.altOK = true
	st.valid = true
	st.lastFix = now
}

func (st *fixState) applyVTG(v VTG) {
	if v.CourseOK {
		st.trackDeg = v.CourseRad * 180 / math.Pi
		st.trkOK = true
	}
	if v.SpeedOK {
		st.speedMS = v.SpeedMS
		st.speedOK = true
	}
}

func (st *fixState) applyRMC(now time.Time, r RMC) {
	if !r.Active || !r.PosOK {
		st.valid = false
		return
	}
	st.latDeg = r.LatDeg
	st.lonDeg = r.LonDeg
	if r.GSOK {
		st.speedMS = r.GroundKt * knotsToMS
		st.speedOK = true
	}
	if r.TrkOK {
		st.trackDeg = r.TrackDeg
		st.trkOK = true
	}
	st.valid = true
	st.lastFix = now
}

func (st *fixState) countSentence(checksumOK bool) {
	st.sentences++
	if !checksumOK {
		st.checksumErrors++
	}
}

func (st *fixState) snapshot(now time.Time) Snapshot {
	out := Snapshot{
		Enabled:        true,
		Valid:          st.valid,
		Source:         st.source,
		GPSDAddr:       st.gpsdAddr,
		Device:         st.device,
		Baud:           st.baud,
		Sentences:      st.sentences,
		ChecksumErrors: st.checksumErrors,
	}
	if !st.lastFix.IsZero() {
		out.LatDeg = st.latDeg
		out.LonDeg = st.lonDeg
		out.LastFixUTC = st.lastFix.UTC().Format(time.RFC3339Nano)
		age := now.Sub(st.lastFix)
		out.FixAgeSec = age.Seconds()
		out.FixStale = age > fixStaleAfter
	}
	if st.altOK {
		v := st.altM
		out.AltM = &v
	}
	if st.speedOK {
		v := st.speedMS
		out.GroundSpeedMS = &v
	}
	if st.trkOK {
		v := st.trackDeg
		out.TrackDeg = &v
	}
	if st.qualityOK {
		v := st.quality
		out.FixQuality = &v
	}
	if st.satsOK {
		v := st.sats
		out.Satellites = &v
	}
	if st.hdopOK {
		v := st.hdop
		out.HDOP = &v
	}
	return out
}
