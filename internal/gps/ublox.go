package gps

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"autopilot-ng/internal/stream"
)

// u-blox DDC (I2C) register map.
const (
	UbloxDefaultAddr = 0x42

	ubloxRegCount  = 0xFD // big-endian byte count, 0xFD:0xFE
	ubloxRegStream = 0xFF
	ubloxMaxRead   = 255
)

// ddcDevice is the slice of i2c.Dev the DDC reader needs.
type ddcDevice interface {
	ReadReg(reg byte, dst []byte) error
}

// readDDC moves pending stream bytes from the receiver into buf. It returns
// 0 when the receiver has nothing queued.
func readDDC(dev ddcDevice, buf []byte) (int, error) {
	var cnt [2]byte
	if err := dev.ReadReg(ubloxRegCount, cnt[:]); err != nil {
		return 0, fmt.Errorf("ublox: read count: %w", err)
	}
	n := int(binary.BigEndian.Uint16(cnt[:]))
	if n == 0 || n == 0xFFFF {
		return 0, nil
	}
	if n > ubloxMaxRead {
		n = ubloxMaxRead
	}
	if n > len(buf) {
		n = len(buf)
	}
	if err := dev.ReadReg(ubloxRegStream, buf[:n]); err != nil {
		return 0, fmt.Errorf("ublox: read stream: %w", err)
	}

	// 0xFF is what the port returns once its buffer ran dry.
	out := buf[:0]
	for _, c := range buf[:n] {
		if c != 0xFF {
			out = append(out, c)
		}
	}
	return len(out), nil
}

// pollDDC reads the receiver every interval and pushes its output into p
// until ctx is cancelled or a bus error occurs.
func pollDDC(ctx context.Context, dev ddcDevice, p *stream.Pipe, interval time.Duration) error {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	var buf [ubloxMaxRead]byte
	for {
		// Drain in bursts; the receiver refills its 4 KiB buffer once per epoch.
		for {
			n, err := readDDC(dev, buf[:])
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
			p.Push(buf[:n])
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
