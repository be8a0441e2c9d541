// Package mavlink implements the MAVLink v1/v2 wire framing the autopilot
// speaks to ground stations, a byte-at-a-time frame parser, and the small
// fixed pool of output buffers (Bus) that streams frames out over a polled
// byte sink.
package mavlink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	MagicV1 = 0xFE
	MagicV2 = 0xFD

	v1HeaderLen  = 6
	v2HeaderLen  = 10
	checksumLen  = 2
	signatureLen = 13

	MaxPayloadLen = 255
	// MaxFrameLen is the largest encoded frame: v2 header, payload,
	// checksum and signature.
	MaxFrameLen = v2HeaderLen + MaxPayloadLen + checksumLen + signatureLen

	incompatSigned = 0x01
)

var (
	ErrPayloadTooLarge = errors.New("mavlink: payload too large")
	ErrUnknownMessage  = errors.New("mavlink: unknown message id")
	ErrBadChecksum     = errors.New("mavlink: bad checksum")
	ErrIncompatible    = errors.New("mavlink: unsupported incompat flags")
)

// Frame is one MAVLink packet. Version is 1 or 2; 0 encodes as 2.
type Frame struct {
	Version     uint8
	Seq         uint8
	SystemID    uint8
	ComponentID uint8
	MsgID       uint32
	Payload     []byte
}

// msgInfo carries the per-message constants needed to checksum a frame.
type msgInfo struct {
	crcExtra byte
	length   int
}

var messages = map[uint32]msgInfo{
	MsgIDHeartbeat:         {crcExtra: 50, length: heartbeatLen},
	MsgIDScaledPressure:    {crcExtra: 115, length: scaledPressureLen},
	MsgIDGlobalPositionInt: {crcExtra: 104, length: globalPositionIntLen},
}

// RegisterMessage adds a message definition so frames carrying it can be
// encoded and verified. It is not safe to call concurrently with encoding
// or parsing.
func RegisterMessage(id uint32, crcExtra byte, length int) {
	messages[id] = msgInfo{crcExtra: crcExtra, length: length}
}

func lookup(id uint32) (msgInfo, bool) {
	m, ok := messages[id]
	return m, ok
}

// MarshalTo encodes f into dst and returns the number of bytes written.
func (f *Frame) MarshalTo(dst []byte) (int, error) {
	info, ok := lookup(f.MsgID)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownMessage, f.MsgID)
	}
	payload := f.Payload
	if len(payload) > MaxPayloadLen {
		return 0, ErrPayloadTooLarge
	}

	var hdr int
	if f.Version == 1 {
		if f.MsgID > 0xFF {
			return 0, fmt.Errorf("mavlink: message %d requires v2 framing", f.MsgID)
		}
		hdr = v1HeaderLen
	} else {
		// v2 drops trailing zero bytes, keeping at least one.
		for len(payload) > 1 && payload[len(payload)-1] == 0 {
			payload = payload[:len(payload)-1]
		}
		hdr = v2HeaderLen
	}

	n := hdr + len(payload) + checksumLen
	if len(dst) < n {
		return 0, io.ErrShortBuffer
	}

	if f.Version == 1 {
		dst[0] = MagicV1
		dst[1] = byte(len(payload))
		dst[2] = f.Seq
		dst[3] = f.SystemID
		dst[4] = f.ComponentID
		dst[5] = byte(f.MsgID)
	} else {
		dst[0] = MagicV2
		dst[1] = byte(len(payload))
		dst[2] = 0
		dst[3] = 0
		dst[4] = f.Seq
		dst[5] = f.SystemID
		dst[6] = f.ComponentID
		dst[7] = byte(f.MsgID)
		dst[8] = byte(f.MsgID >> 8)
		dst[9] = byte(f.MsgID >> 16)
	}
	copy(dst[hdr:], payload)

	crc := crcCalculate(dst[1 : hdr+len(payload)])
	crc = crcAccumulate(info.crcExtra, crc)
	binary.LittleEndian.PutUint16(dst[hdr+len(payload):], crc)
	return n, nil
}

// Marshal returns the encoded frame.
func (f *Frame) Marshal() ([]byte, error) {
	buf := make([]byte, MaxFrameLen)
	n, err := f.MarshalTo(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
