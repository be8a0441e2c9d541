// Package bmp280 reads pressure and temperature from a Bosch BMP280 over I2C.
package bmp280

import (
	"encoding/binary"
	"fmt"
	"time"

	"autopilot-ng/internal/i2c"
)

var sleep = time.Sleep

const (
	// AddrPrimary is the address with SDO tied high; AddrSecondary with SDO low.
	AddrPrimary   = 0x77
	AddrSecondary = 0x76

	regID        = 0xD0
	chipIDBMP280 = 0x58

	regReset = 0xE0
	resetCmd = 0xB6

	regCalib00 = 0x88
	calibLen   = 24

	regCtrlMeas = 0xF4
	regConfig   = 0xF5
	regPressMsb = 0xF7
	dataLen     = 6
)

type regIO interface {
	ReadRegU8(reg byte) (byte, error)
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

type calibration struct {
	t1         uint16
	t2, t3     int16
	p1         uint16
	p2, p3, p4 int16
	p5, p6, p7 int16
	p8, p9     int16
}

// Sample is one compensated measurement.
type Sample struct {
	TempC   float64
	PressPa float64
}

type Device struct {
	dev   regIO
	bus   *i2c.Bus
	cal   calibration
	frame [dataLen]byte
}

// Open opens the I2C bus at path and probes a BMP280 at addr. The returned
// device owns the bus.
func Open(path string, addr uint16) (*Device, error) {
	bus, err := i2c.Open(path)
	if err != nil {
		return nil, err
	}
	d, err := newWithIO(bus.Dev(addr))
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	d.bus = bus
	return d, nil
}

func newWithIO(dev regIO) (*Device, error) {
	d := &Device{dev: dev}

	id, err := dev.ReadRegU8(regID)
	if err != nil {
		return nil, fmt.Errorf("bmp280: id read failed: %w", err)
	}
	if id != chipIDBMP280 {
		return nil, fmt.Errorf("bmp280: chip id=0x%02X want 0x%02X", id, chipIDBMP280)
	}

	// The NVM coefficients are reloaded after reset; reading too early
	// returns zeros.
	_ = dev.WriteReg(regReset, resetCmd)
	sleep(5 * time.Millisecond)

	var calErr error
	for i := 0; i < 3; i++ {
		if calErr = d.readCalibration(); calErr == nil {
			break
		}
		sleep(5 * time.Millisecond)
	}
	if calErr != nil {
		return nil, calErr
	}

	// Standby 0.5 ms, IIR filter x4.
	if err := dev.WriteReg(regConfig, 0x02<<2); err != nil {
		return nil, fmt.Errorf("bmp280: config write failed: %w", err)
	}
	// Temperature x2, pressure x16, normal mode.
	if err := dev.WriteReg(regCtrlMeas, 0x02<<5|0x05<<2|0x03); err != nil {
		return nil, fmt.Errorf("bmp280: ctrl_meas write failed: %w", err)
	}
	return d, nil
}

func (d *Device) readCalibration() error {
	var buf [calibLen]byte
	if err := d.dev.ReadReg(regCalib00, buf[:]); err != nil {
		return fmt.Errorf("bmp280: read calib failed: %w", err)
	}
	le := binary.LittleEndian
	s := func(i int) int16 { return int16(le.Uint16(buf[i:])) }
	c := calibration{
		t1: le.Uint16(buf[0:]), t2: s(2), t3: s(4),
		p1: le.Uint16(buf[6:]), p2: s(8), p3: s(10), p4: s(12),
		p5: s(14), p6: s(16), p7: s(18), p8: s(20), p9: s(22),
	}
	if c.t1 == 0 || c.p1 == 0 {
		return fmt.Errorf("bmp280: calibration invalid (t1=%d p1=%d)", c.t1, c.p1)
	}
	d.cal = c
	return nil
}

// Read burst-reads the latest conversion and compensates it.
func (d *Device) Read() (Sample, error) {
	if err := d.dev.ReadReg(regPressMsb, d.frame[:]); err != nil {
		return Sample{}, fmt.Errorf("bmp280: read data failed: %w", err)
	}
	b := d.frame
	adcP := int32(b[0])<<12 | int32(b[1])<<4 | int32(b[2])>>4
	adcT := int32(b[3])<<12 | int32(b[4])<<4 | int32(b[5])>>4

	tFine, centi := d.cal.temperature(adcT)
	q8 := d.cal.pressure(adcP, tFine)
	return Sample{TempC: float64(centi) / 100, PressPa: float64(q8) / 256}, nil
}

func (d *Device) Close() error {
	if d == nil || d.bus == nil {
		return nil
	}
	return d.bus.Close()
}

// temperature returns t_fine and the temperature in 0.01 °C, using the
// datasheet's 32-bit fixed point routine.
func (c *calibration) temperature(adcT int32) (tFine, centi int32) {
	t1 := int32(c.t1)
	var1 := (((adcT >> 3) - t1<<1) * int32(c.t2)) >> 11
	x := (adcT >> 4) - t1
	var2 := (((x * x) >> 12) * int32(c.t3)) >> 14
	tFine = var1 + var2
	return tFine, (tFine*5 + 128) >> 8
}

// pressure returns Pa in Q24.8, using the datasheet's 64-bit routine.
func (c *calibration) pressure(adcP, tFine int32) int64 {
	var1 := int64(tFine) - 128000
	var2 := var1 * var1 * int64(c.p6)
	var2 += (var1 * int64(c.p5)) << 17
	var2 += int64(c.p4) << 35
	var1 = (var1*var1*int64(c.p3))>>8 + (var1*int64(c.p2))<<12
	var1 = ((int64(1)<<47 + var1) * int64(c.p1)) >> 33
	if var1 == 0 {
		return 0
	}
	p := int64(1048576 - adcP)
	p = ((p<<31 - var2) * 3125) / var1
	var1 = (int64(c.p9) * (p >> 13) * (p >> 13)) >> 25
	var2 = (int64(c.p8) * p) >> 19
	return (p+var1+var2)>>8 + int64(c.p7)<<4
}
