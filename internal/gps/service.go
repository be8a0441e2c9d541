package gps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"autopilot-ng/internal/i2c"
	"autopilot-ng/internal/serial"
	"autopilot-ng/internal/stream"
)

// Config controls the GPS source.
//
// Device may be empty to auto-detect a USB receiver. The u-blox DDC source
// reads I2CBus (e.g. /dev/i2c-1) at I2CAddr, defaulting to 0x42.
type Config struct {
	Enable bool

	// Source is "nmea" (direct serial), "gpsd" or "ublox". Empty means "nmea".
	Source string

	GPSDAddr string

	Device string
	Baud   int

	I2CBus       string
	I2CAddr      uint16
	PollInterval time.Duration
}

// rxBufferSize holds roughly one second of 9600 baud NMEA.
const rxBufferSize = 1024

// Service owns the transport goroutines of a GPS source and publishes a
// Snapshot of the latest fix. The control loop reads it through Sensor().
type Service struct {
	cfg    Config
	source string
	pipe   *stream.Pipe

	cancel context.CancelFunc
	wg     sync.WaitGroup

	last atomic.Value // Snapshot

	mu     sync.Mutex
	closer io.Closer

	sensor *serviceSensor
}

func New(cfg Config) *Service {
	src := strings.ToLower(strings.TrimSpace(cfg.Source))
	if src == "" {
		src = "nmea"
	}
	s := &Service{
		cfg:    cfg,
		source: src,
		pipe:   stream.NewPipe(rxBufferSize, 64),
	}
	s.sensor = newServiceSensor(s)
	s.last.Store(Snapshot{Enabled: cfg.Enable, Source: src, GPSDAddr: strings.TrimSpace(cfg.GPSDAddr), Device: cfg.Device, Baud: cfg.Baud})
	return s
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	switch s.source {
	case "nmea":
		return s.startSerialLocked(ctx)
	case "gpsd":
		return s.startGPSDLocked(ctx)
	case "ublox":
		return s.startUbloxLocked(ctx)
	default:
		return fmt.Errorf("gps: unknown source %q", s.source)
	}
}

func (s *Service) startSerialLocked(ctx context.Context) error {
	device := strings.TrimSpace(s.cfg.Device)
	if device == "" {
		device = serial.AutoDetect()
		if device == "" {
			s.setErrorLocked("gps auto-detect failed: no /dev/ttyACM* or /dev/ttyUSB* found")
			return fmt.Errorf("gps auto-detect failed")
		}
	}
	baud := s.cfg.Baud
	if baud == 0 {
		baud = 9600
	}

	f, err := serial.Open(device, baud)
	if err != nil {
		s.setErrorLocked(fmt.Sprintf("gps open failed device=%s baud=%d: %v", device, baud, err))
		return err
	}
	s.closer = f

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.sensor.st.device = device
	s.sensor.st.baud = baud

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { _ = f.Close() }()

		log.Printf("gps enabled device=%s baud=%d", device, baud)
		err := s.pipe.Serve(childCtx, f)
		if err != nil && childCtx.Err() == nil {
			s.setError(fmt.Sprintf("gps read stopped: %v", err))
		}
	}()

	s.last.Store(Snapshot{Enabled: true, Source: "nmea", Device: device, Baud: baud})
	return nil
}

func (s *Service) startGPSDLocked(ctx context.Context) error {
	addr := strings.TrimSpace(s.cfg.GPSDAddr)
	if addr == "" {
		addr = gpsdDefaultAddr
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.sensor.st.gpsdAddr = addr
	s.sensor.st.device = "gpsd"

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("gps enabled source=gpsd addr=%s", addr)
		s.pipe.Redial(childCtx, "gpsd", dialGPSD(addr), gpsdWatchNMEA)
	}()

	s.last.Store(Snapshot{Enabled: true, Source: "gpsd", GPSDAddr: addr, Device: "gpsd"})
	return nil
}

func (s *Service) startUbloxLocked(ctx context.Context) error {
	busPath := strings.TrimSpace(s.cfg.I2CBus)
	if busPath == "" {
		busPath = "/dev/i2c-1"
	}
	addr := s.cfg.I2CAddr
	if addr == 0 {
		addr = UbloxDefaultAddr
	}

	bus, err := i2c.Open(busPath)
	if err != nil {
		s.setErrorLocked(fmt.Sprintf("gps i2c open failed bus=%s: %v", busPath, err))
		return err
	}
	s.closer = bus

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	device := fmt.Sprintf("%s@0x%02X", busPath, addr)
	s.sensor.st.device = device

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { _ = bus.Close() }()

		log.Printf("gps enabled source=ublox bus=%s addr=0x%02X", busPath, addr)
		err := pollDDC(childCtx, bus.Dev(addr), s.pipe, s.cfg.PollInterval)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.setError(fmt.Sprintf("gps ublox poll stopped: %v", err))
		}
	}()

	s.last.Store(Snapshot{Enabled: true, Source: "ublox", Device: device})
	return nil
}

// Sensor returns the polled view of this source for the control loop. It
// must only be read from one goroutine.
func (s *Service) Sensor() Sensor { return s.sensor }

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.cancel = nil
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	v := s.last.Load()
	if v == nil {
		return Snapshot{}
	}
	return v.(Snapshot)
}

func (s *Service) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErrorLocked(msg)
}

func (s *Service) setErrorLocked(msg string) {
	cur := s.Snapshot()
	cur.LastError = msg
	s.last.Store(cur)
}

// serviceSensor decodes the service's receive pipe, keeps the fix state
// current and forwards reports to the caller's callbacks.
type serviceSensor struct {
	svc   *Service
	inner *StreamSensor
	user  Callbacks
	st    fixState
	now   func() time.Time
}

func newServiceSensor(svc *Service) *serviceSensor {
	ss := &serviceSensor{
		svc:   svc,
		inner: NewStreamSensor(svc.pipe),
		now:   time.Now,
	}
	ss.st.source = svc.source
	ss.st.gpsdAddr = strings.TrimSpace(svc.cfg.GPSDAddr)
	ss.st.device = svc.cfg.Device
	ss.st.baud = svc.cfg.Baud
	ss.inner.Setup(ss.callbacks())
	return ss
}

func (ss *serviceSensor) Setup(cb Callbacks) { ss.user = cb }

func (ss *serviceSensor) Read() (bool, error) {
	got, err := ss.inner.Read()
	if got {
		snap := ss.st.snapshot(ss.now())
		ss.svc.mu.Lock()
		snap.LastError = ss.svc.Snapshot().LastError
		ss.svc.last.Store(snap)
		ss.svc.mu.Unlock()
	}
	return got, err
}

func (ss *serviceSensor) callbacks() Callbacks {
	return Callbacks{
		GGA: func(g GGA) {
			ss.st.applyGGA(ss.now().UTC(), g)
			if ss.user.GGA != nil {
				ss.user.GGA(g)
			}
		},
		VTG: func(v VTG) {
			ss.st.applyVTG(v)
			if ss.user.VTG != nil {
				ss.user.VTG(v)
			}
		},
		RMC: func(r RMC) {
			ss.st.applyRMC(ss.now().UTC(), r)
			if ss.user.RMC != nil {
				ss.user.RMC(r)
			}
		},
		Sentence: func(ok bool) {
			ss.st.countSentence(ok)
			if ss.user.Sentence != nil {
				ss.user.Sentence(ok)
			}
		},
	}
}
