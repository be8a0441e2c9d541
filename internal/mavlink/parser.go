package mavlink

import "encoding/binary"

type parseState uint8

const (
	stateMagic parseState = iota
	stateLen
	stateIncompat
	stateCompat
	stateSeq
	stateSysID
	stateCompID
	stateMsgID
	statePayload
	stateCRC1
	stateCRC2
	stateSignature
)

// Parser is a byte-at-a-time MAVLink frame decoder. It accepts both v1 and
// v2 framing and resynchronises on the next magic byte after any error.
// Signed v2 frames are accepted; the signature is skipped, not verified.
type Parser struct {
	state parseState

	version  uint8
	incompat byte
	length   int
	msgIDLen int

	payload [MaxPayloadLen]byte
	index   int

	crc     uint16
	crcLow  byte
	sigLeft int

	frame Frame
}

func NewParser() *Parser {
	return &Parser{}
}

// Feed consumes one byte. It returns true when a frame with a valid
// checksum completed; the frame is then available from Frame until the
// next call to Feed.
func (p *Parser) Feed(b byte) (bool, error) {
	switch p.state {
	case stateMagic:
		switch b {
		case MagicV1:
			p.begin(1)
		case MagicV2:
			p.begin(2)
		}

	case stateLen:
		p.length = int(b)
		p.push(b)
		if p.version == 1 {
			p.state = stateSeq
		} else {
			p.state = stateIncompat
		}

	case stateIncompat:
		p.incompat = b
		p.push(b)
		if b&^incompatSigned != 0 {
			p.state = stateMagic
			return false, ErrIncompatible
		}
		p.state = stateCompat

	case stateCompat:
		p.push(b)
		p.state = stateSeq

	case stateSeq:
		p.frame.Seq = b
		p.push(b)
		p.state = stateSysID

	case stateSysID:
		p.frame.SystemID = b
		p.push(b)
		p.state = stateCompID

	case stateCompID:
		p.frame.ComponentID = b
		p.push(b)
		p.state = stateMsgID
		p.frame.MsgID = 0
		p.msgIDLen = 0

	case stateMsgID:
		p.frame.MsgID |= uint32(b) << (8 * p.msgIDLen)
		p.msgIDLen++
		p.push(b)
		if p.version == 1 || p.msgIDLen == 3 {
			if p.length == 0 {
				p.state = stateCRC1
			} else {
				p.state = statePayload
			}
		}

	case statePayload:
		p.payload[p.index] = b
		p.crc = crcAccumulate(b, p.crc)
		p.index++
		if p.index == p.length {
			p.state = stateCRC1
		}

	case stateCRC1:
		p.crcLow = b
		p.state = stateCRC2

	case stateCRC2:
		got := binary.LittleEndian.Uint16([]byte{p.crcLow, b})
		return p.finish(got)

	case stateSignature:
		p.sigLeft--
		if p.sigLeft == 0 {
			p.state = stateMagic
			return true, nil
		}
	}
	return false, nil
}

func (p *Parser) begin(version uint8) {
	p.state = stateLen
	p.version = version
	p.incompat = 0
	p.index = 0
	p.crc = crcInit
	p.frame = Frame{Version: version}
}

// push adds a header byte to the running checksum.
func (p *Parser) push(b byte) {
	p.crc = crcAccumulate(b, p.crc)
}

func (p *Parser) finish(got uint16) (bool, error) {
	p.state = stateMagic

	info, ok := lookup(p.frame.MsgID)
	if !ok {
		return false, ErrUnknownMessage
	}
	if crcAccumulate(info.crcExtra, p.crc) != got {
		return false, ErrBadChecksum
	}

	// Restore the zero bytes v2 senders truncate.
	n := p.length
	if n < info.length {
		clear(p.payload[n:info.length])
		n = info.length
	}
	p.frame.Payload = p.payload[:n]

	if p.incompat&incompatSigned != 0 {
		p.sigLeft = signatureLen
		p.state = stateSignature
		return false, nil
	}
	return true, nil
}

// Frame returns the most recently completed frame. Its payload aliases the
// parser's buffer.
func (p *Parser) Frame() *Frame { return &p.frame }

// Reset drops any partial frame.
func (p *Parser) Reset() { p.state = stateMagic }
