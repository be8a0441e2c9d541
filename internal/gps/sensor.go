package gps

import (
	"autopilot-ng/internal/stream"
)

// Sensor is a GNSS receiver polled from the control loop.
//
// Setup installs the callbacks that decoded reports are delivered to. Read
// consumes whatever the receiver has buffered without blocking and reports
// whether at least one complete sentence was parsed.
type Sensor interface {
	Setup(cb Callbacks)
	Read() (bool, error)
}

// StreamSensor decodes NMEA from a polled byte source.
type StreamSensor struct {
	src stream.Source
	dec *Decoder

	// MaxBytes bounds the bytes consumed per Read; 0 means everything
	// available when Read was called.
	MaxBytes int
}

func NewStreamSensor(src stream.Source) *StreamSensor {
	return &StreamSensor{src: src, dec: NewDecoder(Callbacks{})}
}

func (s *StreamSensor) Setup(cb Callbacks) { s.dec.SetCallbacks(cb) }

// Read drains the source into the decoder. A sentence that overflows the
// parser is dropped and reported after the remaining bytes are consumed.
func (s *StreamSensor) Read() (bool, error) {
	n := s.src.Available()
	if s.MaxBytes > 0 && n > s.MaxBytes {
		n = s.MaxBytes
	}

	got := false
	var firstErr error
	for i := 0; i < n; i++ {
		c, ok := s.src.Read()
		if !ok {
			break
		}
		done, err := s.dec.Feed(c)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		got = got || done
	}
	return got, firstErr
}

// Stats exposes the decoder counters.
func (s *StreamSensor) Stats() Stats { return s.dec.Stats() }
