// Package nmea implements a byte-at-a-time NMEA 0183 sentence parser.
//
// The parser never allocates and never blocks: each byte advances a small
// state machine and sentence pieces are handed to a Handler as they complete.
// Decoding of individual sentence types lives in the gps package.
package nmea

import "errors"

// MaxSentence is the longest sentence body (excluding the terminating
// "\r\n") an NMEA 0183 receiver may emit.
const MaxSentence = 82

// ErrSentenceTooLong is returned by Feed when a sentence exceeds the read
// buffer. The partial sentence is dropped and the parser returns to idle,
// unless the overflowing byte is a '$' that starts the next sentence.
var ErrSentenceTooLong = errors.New("nmea: sentence too long")

// Handler receives parse events. Byte slices passed to Talker, Type and
// Field alias the parser's internal buffer and are only valid for the
// duration of the call.
type Handler interface {
	// MessageBegin is called when a '$' starts a new sentence.
	MessageBegin()
	// Talker is called with the two character talker ID (e.g. "GP").
	Talker(talker []byte)
	// Type is called with the sentence type (e.g. "GGA").
	Type(typ []byte)
	// Field is called for every comma separated field, index starting at 0.
	Field(field []byte, index int)
	// MessageEnd is called on the terminating '\n' with the checksum result.
	MessageEnd(checksumOK bool)
}

type state uint8

const (
	stateIdle state = iota
	stateTalker
	stateType
	stateFields
	stateChecksum
)

// Parser is the sentence state machine. The zero value is not usable; use
// NewParser. A Parser must not be fed from more than one goroutine.
type Parser struct {
	h Handler

	state      state
	checksum   byte
	buf        [MaxSentence + 1]byte
	size       int
	fieldIndex int
}

func NewParser(h Handler) *Parser {
	return &Parser{h: h}
}

// Feed consumes one byte. It reports true when the byte completed a sentence
// (MessageEnd has been called). Bytes outside a sentence are ignored.
func (p *Parser) Feed(c byte) (bool, error) {
	if p.size >= len(p.buf)-1 {
		p.Reset()
		// The overflowing byte may already start the next sentence.
		if c == '$' {
			p.h.MessageBegin()
			p.state = stateTalker
		}
		return false, ErrSentenceTooLong
	}

	switch p.state {
	case stateIdle:
		if c != '$' {
			return false, nil
		}
		p.h.MessageBegin()
		p.state = stateTalker

	case stateTalker:
		p.checksum ^= c
		p.buf[p.size] = c
		p.size++
		if p.size == 2 {
			p.h.Talker(p.buf[:p.size])
			p.size = 0
			p.state = stateType
		}

	case stateType:
		p.checksum ^= c
		if c != ',' {
			p.buf[p.size] = c
			p.size++
			break
		}
		p.h.Type(p.buf[:p.size])
		p.size = 0
		p.fieldIndex = 0
		p.state = stateFields

	case stateFields:
		switch c {
		case ',', '*':
			p.h.Field(p.buf[:p.size], p.fieldIndex)
			p.size = 0
			p.fieldIndex++
			if c == '*' {
				p.fieldIndex = 0
				p.state = stateChecksum
				break
			}
			p.checksum ^= c
		default:
			p.checksum ^= c
			p.buf[p.size] = c
			p.size++
		}

	case stateChecksum:
		switch c {
		case '\n':
			p.h.MessageEnd(p.checksumOK())
			p.Reset()
			return true, nil
		case '\r':
		default:
			p.buf[p.size] = c
			p.size++
		}
	}
	return false, nil
}

// Write feeds every byte of b. It implements io.Writer so a parser can sit
// at the end of an io.Copy; sentence overflow is not reported as an error
// here since the parser already resynchronised on the next '$'.
func (p *Parser) Write(b []byte) (int, error) {
	for _, c := range b {
		_, _ = p.Feed(c)
	}
	return len(b), nil
}

// Reset drops any partial sentence.
func (p *Parser) Reset() {
	p.state = stateIdle
	p.checksum = 0
	p.size = 0
	p.fieldIndex = 0
}

func (p *Parser) checksumOK() bool {
	if p.size != 2 {
		return false
	}
	hi, ok := hexNibble(p.buf[0])
	if !ok {
		return false
	}
	lo, ok := hexNibble(p.buf[1])
	if !ok {
		return false
	}
	return p.checksum == hi<<4|lo
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
