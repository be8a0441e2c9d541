package autopilot

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autopilot-ng/internal/clock"
	"autopilot-ng/internal/gps"
	"autopilot-ng/internal/mavlink"
	"autopilot-ng/internal/metrics"
	"autopilot-ng/internal/stream"
)

type countingBlinker struct {
	toggles int
	err     error
}

func (b *countingBlinker) Toggle() error {
	b.toggles++
	return b.err
}

type recordingComponent struct {
	frames []mavlink.Frame
	loops  []time.Duration
}

func (r *recordingComponent) Recv(f *mavlink.Frame) {
	cp := *f
	cp.Payload = append([]byte(nil), f.Payload...)
	r.frames = append(r.frames, cp)
}

func (r *recordingComponent) Loop(_ *mavlink.Bus, dt time.Duration) {
	r.loops = append(r.loops, dt)
}

type fakeSensor struct {
	cb    gps.Callbacks
	ggas  []gps.GGA
	vtgs  []gps.VTG
	reads int
	err   error
}

func (s *fakeSensor) Setup(cb gps.Callbacks) { s.cb = cb }

func (s *fakeSensor) Read() (bool, error) {
	s.reads++
	got := len(s.ggas)+len(s.vtgs) > 0
	for _, g := range s.ggas {
		s.cb.GGA(g)
	}
	for _, v := range s.vtgs {
		s.cb.VTG(v)
	}
	s.ggas, s.vtgs = nil, nil
	return got, s.err
}

// decodeAll parses every frame in b.
func decodeAll(t *testing.T, b []byte) []mavlink.Frame {
	t.Helper()
	src := stream.NewPipe(len(b)+1, 1)
	require.Equal(t, len(b), src.Push(b))
	dec := mavlink.NewDecoder()
	var out []mavlink.Frame
	for {
		f, ok := dec.Read(src)
		if !ok {
			return out
		}
		cp := *f
		cp.Payload = append([]byte(nil), f.Payload...)
		out = append(out, cp)
	}
}

// drain streams everything queued on bus and decodes it. Each
// ProcessOutput call flushes at most one frame.
func drain(t *testing.T, bus *mavlink.Bus) []mavlink.Frame {
	t.Helper()
	sink := stream.NewPipe(1, 4*mavlink.MaxFrameLen)
	for i := 0; i < 4; i++ {
		bus.ProcessOutput(sink)
	}
	buf := make([]byte, 4*mavlink.MaxFrameLen)
	return decodeAll(t, buf[:sink.Pull(buf)])
}

func heartbeatFrame(t *testing.T, sys uint8, typ uint8) []byte {
	t.Helper()
	f := mavlink.NewFrame(sys, 190, mavlink.Heartbeat{Type: typ, Autopilot: mavlink.AutopilotInvalid})
	f.Version = 2
	b, err := f.Marshal()
	require.NoError(t, err)
	return b
}

func TestProgramSendsHeartbeatEverySecond(t *testing.T) {
	link := stream.NewPipe(512, 512)
	clk := clock.NewManual(time.Unix(1000, 0))
	led := &countingBlinker{}
	hb := NewHeartbeat(1, time.Second, led)
	p := NewProgram(link, clk, 2, metrics.New(), hb)

	clk.Advance(500 * time.Millisecond)
	require.NoError(t, p.Loop())
	assert.Equal(t, uint64(0), p.Bus().Stats().Sent)

	clk.Advance(500 * time.Millisecond)
	require.NoError(t, p.Loop())
	assert.Equal(t, uint64(1), p.Bus().Stats().Sent)
	assert.Equal(t, 1, led.toggles)

	// Queued this tick, streamed on the next.
	require.NoError(t, p.Loop())
	buf := make([]byte, 512)
	frames := decodeAll(t, buf[:link.Pull(buf)])
	require.Len(t, frames, 1)
	f := frames[0]
	assert.Equal(t, uint8(2), f.Version)
	assert.Equal(t, uint8(1), f.SystemID)
	assert.Equal(t, mavlink.CompIDAutopilot1, f.ComponentID)
	hbMsg, err := mavlink.UnmarshalHeartbeat(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, mavlink.TypeGeneric, hbMsg.Type)
	assert.Equal(t, mavlink.AutopilotGeneric, hbMsg.Autopilot)
	assert.Equal(t, mavlink.ModeAutoDisarmed, hbMsg.BaseMode)
	assert.Equal(t, mavlink.StateActive, hbMsg.SystemStatus)
	assert.Equal(t, uint8(3), hbMsg.MavlinkVersion)
}

func TestProgramForwardsInboundFrames(t *testing.T) {
	link := stream.NewPipe(512, 512)
	clk := clock.NewManual(time.Unix(0, 0))
	rec := &recordingComponent{}
	hb := NewHeartbeat(1, time.Second, nil)
	p := NewProgram(link, clk, 2, nil, hb, rec)

	link.Push(heartbeatFrame(t, 255, mavlink.TypeGCS))
	link.Push([]byte{0x00, 0x13}) // noise
	link.Push(heartbeatFrame(t, 254, mavlink.TypeGeneric))

	clk.Advance(20 * time.Millisecond)
	require.NoError(t, p.Loop())

	require.Len(t, rec.frames, 2)
	assert.Equal(t, uint8(255), rec.frames[0].SystemID)
	assert.Equal(t, uint8(254), rec.frames[1].SystemID)
	assert.Equal(t, []time.Duration{20 * time.Millisecond}, rec.loops)

	n, last := hb.GCSHeartbeats()
	assert.Equal(t, uint64(1), n)
	assert.Equal(t, uint8(255), last)
	assert.Equal(t, uint64(2), p.DecoderStats().Frames)
}

type flushingPort struct {
	*stream.Pipe
	flushes int
	err     error
}

func (f *flushingPort) Flush() error {
	f.flushes++
	return f.err
}

func TestProgramFlushesDatagramPorts(t *testing.T) {
	boom := errors.New("boom")
	port := &flushingPort{Pipe: stream.NewPipe(16, 16), err: boom}
	p := NewProgram(port, clock.NewManual(time.Unix(0, 0)), 1, nil)

	err := p.Loop()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, port.flushes)
}

func TestHeartbeatStaysDueWhileBusFull(t *testing.T) {
	bus := mavlink.NewBus(2)
	filler := mavlink.NewFrame(9, 9, mavlink.Heartbeat{})
	require.True(t, bus.Send(filler))
	require.True(t, bus.Send(filler))

	led := &countingBlinker{}
	hb := NewHeartbeat(1, time.Second, led)
	hb.Loop(bus, time.Second)
	assert.True(t, hb.Due())
	assert.Equal(t, 0, led.toggles)

	// Flush one buffer; the heartbeat goes out without waiting another
	// interval.
	sink := stream.NewPipe(1, mavlink.MaxFrameLen)
	bus.ProcessOutput(sink)
	require.True(t, bus.ReadyToSend())
	hb.Loop(bus, 0)
	assert.False(t, hb.Due())
	assert.Equal(t, 1, led.toggles)
	assert.Equal(t, uint64(3), bus.Stats().Sent)

	// The interval restarts at the send.
	hb.Loop(bus, 999*time.Millisecond)
	assert.False(t, hb.Due())
}

func TestHeartbeatLEDErrorDoesNotBlockSend(t *testing.T) {
	bus := mavlink.NewBus(1)
	led := &countingBlinker{err: errors.New("gpio gone")}
	hb := NewHeartbeat(1, time.Second, led)

	hb.Loop(bus, time.Second)
	assert.False(t, hb.Due())
	assert.Equal(t, uint64(1), bus.Stats().Sent)
}

func fixAt(lat, lon, alt float64) gps.GGA {
	return gps.GGA{LatDeg: lat, LonDeg: lon, PosOK: true, AltM: alt, HasFix: true, Quality: 1, Satellites: 8}
}

func positionReports(t *testing.T, frames []mavlink.Frame) []mavlink.GlobalPositionInt {
	t.Helper()
	var out []mavlink.GlobalPositionInt
	for _, f := range frames {
		if f.MsgID != mavlink.MsgIDGlobalPositionInt {
			continue
		}
		assert.Equal(t, mavlink.CompIDGPS, f.ComponentID)
		r, err := mavlink.UnmarshalGlobalPositionInt(f.Payload)
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func TestGPSComponentPublishesPosition(t *testing.T) {
	s := &fakeSensor{
		ggas: []gps.GGA{fixAt(53.361337, -6.50562, 61.7)},
		vtgs: []gps.VTG{{CourseRad: math.Pi / 2, CourseOK: true, SpeedMS: 10, SpeedOK: true}},
	}
	c := NewGPS(1, s, 100*time.Millisecond, time.Second)
	bus := mavlink.NewBus(2)

	for i := 0; i < 10; i++ {
		c.Loop(bus, 100*time.Millisecond)
	}
	assert.Equal(t, 10, s.reads)

	reports := positionReports(t, drain(t, bus))
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, uint32(1000), r.TimeBootMs)
	assert.Equal(t, int32(533613370), r.Lat)
	assert.Equal(t, int32(-65056200), r.Lon)
	assert.Equal(t, int32(61700), r.Alt)
	assert.Equal(t, int32(0), r.RelativeAlt)
	assert.Equal(t, uint16(9000), r.Hdg)
	assert.Equal(t, int16(0), r.Vx)
	assert.Equal(t, int16(1000), r.Vy)

	// Relative altitude is measured from the first fix.
	s.ggas = []gps.GGA{fixAt(53.36, -6.5, 71.7)}
	for i := 0; i < 10; i++ {
		c.Loop(bus, 100*time.Millisecond)
	}
	reports = positionReports(t, drain(t, bus))
	require.Len(t, reports, 1)
	assert.Equal(t, int32(10000), reports[0].RelativeAlt)
	assert.Equal(t, uint32(2000), reports[0].TimeBootMs)
	home, ok := c.HomeAltitude()
	assert.True(t, ok)
	assert.InDelta(t, 61.7, home, 1e-9)
}

func TestGPSComponentWaitsForFix(t *testing.T) {
	noFix := gps.GGA{PosOK: true, LatDeg: 1, LonDeg: 2}
	s := &fakeSensor{ggas: []gps.GGA{noFix}, err: errors.New("serial gone")}
	c := NewGPS(1, s, 0, 0)
	bus := mavlink.NewBus(2)

	for i := 0; i < 30; i++ {
		c.Loop(bus, 100*time.Millisecond)
	}
	assert.Equal(t, uint64(0), bus.Stats().Sent)
	_, ok := c.HomeAltitude()
	assert.False(t, ok)
	assert.EqualError(t, c.ReadErr(), "serial gone")
}

func TestGPSComponentWithoutSensorKeepsTime(t *testing.T) {
	c := NewGPS(1, nil, 0, 0)
	bus := mavlink.NewBus(2)
	for i := 0; i < 7; i++ {
		c.Loop(bus, 1500*time.Microsecond)
	}
	assert.Equal(t, uint64(0), bus.Stats().Sent)
	assert.Equal(t, uint32(10), c.Report().TimeBootMs)
	assert.Equal(t, uint16(math.MaxUint16), c.Report().Hdg)
}

func TestGPSComponentRetriesWhenBusFull(t *testing.T) {
	s := &fakeSensor{ggas: []gps.GGA{fixAt(10, 20, 100)}}
	c := NewGPS(1, s, 100*time.Millisecond, time.Second)
	bus := mavlink.NewBus(2)
	filler := mavlink.NewFrame(9, 9, mavlink.Heartbeat{})
	require.True(t, bus.Send(filler))
	require.True(t, bus.Send(filler))

	c.Loop(bus, time.Second)
	assert.Equal(t, uint64(2), bus.Stats().Sent)

	sink := stream.NewPipe(1, mavlink.MaxFrameLen)
	bus.ProcessOutput(sink)
	c.Loop(bus, 0)
	assert.Equal(t, uint64(3), bus.Stats().Sent)
}

func TestGPSComponentDecodesStreamSensor(t *testing.T) {
	src := stream.NewPipe(256, 1)
	src.Push([]byte("$GPGGA,092750.000,5321.6802,N,00630.3372,W,1,8,1.03,61.7,M,55.2,M,,*76\r\n"))
	c := NewGPS(1, gps.NewStreamSensor(src), 100*time.Millisecond, time.Second)

	c.Loop(mavlink.NewBus(2), 100*time.Millisecond)
	require.NoError(t, c.ReadErr())
	home, ok := c.HomeAltitude()
	require.True(t, ok)
	assert.InDelta(t, 61.7, home, 1e-6)
	r := c.Report()
	assert.InDelta(t, 533613367, float64(r.Lat), 1)
	assert.InDelta(t, -65056200, float64(r.Lon), 1)
}
