package mavlink

import (
	"errors"

	"autopilot-ng/internal/stream"
)

// DecoderStats counts frames and rejected bytes seen by a Decoder.
type DecoderStats struct {
	Frames        uint64
	BadChecksums  uint64
	UnknownFrames uint64
	Incompatible  uint64
}

// Decoder pulls bytes from a polled source into a Parser.
type Decoder struct {
	parser *Parser
	stats  DecoderStats
}

func NewDecoder() *Decoder {
	return &Decoder{parser: NewParser()}
}

// Read feeds bytes from src until one frame completes or src runs dry.
// The returned frame is only valid until the next call.
func (d *Decoder) Read(src stream.Source) (*Frame, bool) {
	for src.Available() > 0 {
		c, ok := src.Read()
		if !ok {
			break
		}
		done, err := d.parser.Feed(c)
		if err != nil {
			d.count(err)
			continue
		}
		if done {
			d.stats.Frames++
			return d.parser.Frame(), true
		}
	}
	return nil, false
}

func (d *Decoder) count(err error) {
	switch {
	case errors.Is(err, ErrBadChecksum):
		d.stats.BadChecksums++
	case errors.Is(err, ErrUnknownMessage):
		d.stats.UnknownFrames++
	case errors.Is(err, ErrIncompatible):
		d.stats.Incompatible++
	}
}

func (d *Decoder) Stats() DecoderStats { return d.stats }
