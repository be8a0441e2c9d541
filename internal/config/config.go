package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	MAVLink   MAVLinkConfig   `yaml:"mavlink"`
	GPS       GPSConfig       `yaml:"gps"`
	Baro      BaroConfig      `yaml:"baro"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	StatusLED StatusLEDConfig `yaml:"status_led"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// MAVLinkConfig selects the telemetry link to the ground station.
//
// transport is "serial" (a telemetry radio), "udp" or "tcp". Over UDP the
// vehicle listens on udp_listen and sends to udp_dest, or to the last peer
// heard from when udp_dest is empty. Over TCP it accepts one ground station
// at a time on tcp_listen.
type MAVLinkConfig struct {
	Transport string        `yaml:"transport"`
	Device    string        `yaml:"device"`
	Baud      int           `yaml:"baud"`
	UDPDest   string        `yaml:"udp_dest"`
	UDPListen string        `yaml:"udp_listen"`
	TCPListen string        `yaml:"tcp_listen"`
	SystemID  int           `yaml:"system_id"`
	Version   int           `yaml:"version"`
	Tick      time.Duration `yaml:"tick"`
}

type GPSConfig struct {
	Enable bool `yaml:"enable"`

	// Source is "nmea" (direct serial), "gpsd", "ublox" (I2C DDC) or "sim".
	Source   string `yaml:"source"`
	Device   string `yaml:"device"`
	Baud     int    `yaml:"baud"`
	GPSDAddr string `yaml:"gpsd_addr"`
	I2CBus   string `yaml:"i2c_bus"`
	I2CAddr  int    `yaml:"i2c_addr"`

	Sim SimGPSConfig `yaml:"sim"`

	ReadInterval    time.Duration `yaml:"read_interval"`
	PublishInterval time.Duration `yaml:"publish_interval"`
}

// SimGPSConfig flies a figure-eight around a fixed point, for bench work
// without a receiver.
type SimGPSConfig struct {
	CenterLatDeg float64       `yaml:"center_lat_deg"`
	CenterLonDeg float64       `yaml:"center_lon_deg"`
	AltM         float64       `yaml:"alt_m"`
	RadiusM      float64       `yaml:"radius_m"`
	Period       time.Duration `yaml:"period"`
	JitterM      float64       `yaml:"jitter_m"`
}

// BaroConfig enables a BMP280 barometer reported as SCALED_PRESSURE.
type BaroConfig struct {
	Enable   bool          `yaml:"enable"`
	I2CBus   string        `yaml:"i2c_bus"`
	I2CAddr  int           `yaml:"i2c_addr"`
	Interval time.Duration `yaml:"interval"`
}

type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type StatusLEDConfig struct {
	Enable bool `yaml:"enable"`
	GPIO   int  `yaml:"gpio"`
}

type MetricsConfig struct {
	// Listen is the address /metrics is served on; empty disables it.
	Listen string `yaml:"listen"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes, defaults and validates a YAML document. An empty
// document is valid: the vehicle then talks MAVLink over UDP.
func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) && unknownFieldsOnly(te) {
			return Config{}, fmt.Errorf("config contains unknown fields: %s", strings.Join(stripLines(te.Errors), "; "))
		}
		return Config{}, err
	}

	if err := cfg.applyMAVLink(); err != nil {
		return Config{}, err
	}
	if err := cfg.applyGPS(); err != nil {
		return Config{}, err
	}

	if err := cfg.applyBaro(); err != nil {
		return Config{}, err
	}

	if cfg.Heartbeat.Interval <= 0 {
		cfg.Heartbeat.Interval = 1 * time.Second
	}

	if cfg.StatusLED.Enable && cfg.StatusLED.GPIO <= 0 {
		return Config{}, fmt.Errorf("status_led.gpio is required when status_led.enable is true")
	}

	cfg.Metrics.Listen = strings.TrimSpace(cfg.Metrics.Listen)
	return cfg, nil
}

func (cfg *Config) applyMAVLink() error {
	m := &cfg.MAVLink
	m.Transport = strings.ToLower(strings.TrimSpace(m.Transport))
	if m.Transport == "" {
		m.Transport = "udp"
	}
	switch m.Transport {
	case "serial":
		if strings.TrimSpace(m.Device) == "" {
			return fmt.Errorf("mavlink.device is required when mavlink.transport is 'serial'")
		}
		if m.Baud <= 0 {
			m.Baud = 57600
		}
	case "udp":
		if m.UDPListen == "" {
			m.UDPListen = ":14550"
		}
	case "tcp":
		if m.TCPListen == "" {
			m.TCPListen = ":5760"
		}
	default:
		return fmt.Errorf("mavlink.transport must be one of: serial, udp, tcp")
	}

	if m.SystemID == 0 {
		m.SystemID = 1
	}
	if m.SystemID < 1 || m.SystemID > 255 {
		return fmt.Errorf("mavlink.system_id must be in 1..255")
	}
	if m.Version == 0 {
		m.Version = 2
	}
	if m.Version != 1 && m.Version != 2 {
		return fmt.Errorf("mavlink.version must be 1 or 2")
	}
	if m.Tick <= 0 {
		m.Tick = 10 * time.Millisecond
	}
	return nil
}

func (cfg *Config) applyGPS() error {
	g := &cfg.GPS
	g.Source = strings.ToLower(strings.TrimSpace(g.Source))
	if g.Source == "" {
		g.Source = "nmea"
	}
	switch g.Source {
	case "nmea":
		if g.Baud <= 0 {
			g.Baud = 9600
		}
	case "gpsd":
		if strings.TrimSpace(g.GPSDAddr) == "" {
			g.GPSDAddr = "127.0.0.1:2947"
		}
	case "ublox":
		if g.I2CBus == "" {
			g.I2CBus = "/dev/i2c-1"
		}
		if g.I2CAddr == 0 {
			g.I2CAddr = 0x42
		}
		if g.I2CAddr < 0x03 || g.I2CAddr > 0x77 {
			return fmt.Errorf("gps.i2c_addr must be a 7-bit address in 0x03..0x77")
		}
	case "sim":
		s := &g.Sim
		if s.CenterLatDeg < -89 || s.CenterLatDeg > 89 {
			return fmt.Errorf("gps.sim.center_lat_deg must be in -89..89")
		}
		if s.CenterLonDeg < -180 || s.CenterLonDeg > 180 {
			return fmt.Errorf("gps.sim.center_lon_deg must be in -180..180")
		}
		if s.AltM == 0 {
			s.AltM = 100
		}
		if s.RadiusM <= 0 {
			s.RadiusM = 500
		}
		if s.Period <= 0 {
			s.Period = 120 * time.Second
		}
		if s.JitterM < 0 {
			return fmt.Errorf("gps.sim.jitter_m must not be negative")
		}
	default:
		return fmt.Errorf("gps.source must be one of: nmea, gpsd, ublox, sim")
	}

	if g.ReadInterval <= 0 {
		g.ReadInterval = 100 * time.Millisecond
	}
	if g.PublishInterval <= 0 {
		g.PublishInterval = 1 * time.Second
	}
	if g.PublishInterval < g.ReadInterval {
		return fmt.Errorf("gps.publish_interval must not be shorter than gps.read_interval")
	}
	return nil
}

func (cfg *Config) applyBaro() error {
	b := &cfg.Baro
	if b.I2CBus == "" {
		b.I2CBus = "/dev/i2c-1"
	}
	if b.I2CAddr == 0 {
		b.I2CAddr = 0x77
	}
	if b.I2CAddr != 0x76 && b.I2CAddr != 0x77 {
		return fmt.Errorf("baro.i2c_addr must be 0x76 or 0x77")
	}
	if b.Interval <= 0 {
		b.Interval = 500 * time.Millisecond
	}
	return nil
}

func unknownFieldsOnly(te *yaml.TypeError) bool {
	for _, e := range te.Errors {
		if !strings.Contains(e, "not found in type") {
			return false
		}
	}
	return len(te.Errors) > 0
}

// stripLines drops the "line N: " prefix yaml puts on each error.
func stripLines(errs []string) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		if j := strings.Index(e, ": "); j >= 0 && strings.HasPrefix(e, "line ") {
			e = e[j+2:]
		}
		out[i] = e
	}
	return out
}
