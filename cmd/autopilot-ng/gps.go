package main

import (
	"context"
	"log"
	"time"

	"autopilot-ng/internal/clock"
	"autopilot-ng/internal/config"
	"autopilot-ng/internal/gps"
	"autopilot-ng/internal/metrics"
	"autopilot-ng/internal/sim"
)

// openGPS starts the configured GPS source. A nil sensor means the vehicle
// flies without one; the close func is always safe to call.
func openGPS(ctx context.Context, cfg config.GPSConfig, m *metrics.Metrics) (gps.Sensor, func()) {
	if !cfg.Enable {
		return nil, func() {}
	}

	if cfg.Source == "sim" {
		s := cfg.Sim
		g := sim.NewGPS(sim.Ownship{
			CenterLatDeg: s.CenterLatDeg,
			CenterLonDeg: s.CenterLonDeg,
			AltM:         s.AltM,
			RadiusM:      s.RadiusM,
			Period:       s.Period,
		}, clock.System{}, time.Second, uint32(time.Now().UnixNano()))
		g.Jitter = s.JitterM
		log.Printf("gps simulated center=%.5f,%.5f radius_m=%.0f", s.CenterLatDeg, s.CenterLonDeg, s.RadiusM)
		return &observedSensor{simGPS: g, m: m}, func() {}
	}

	svc := gps.New(gps.Config{
		Enable:   cfg.Enable,
		Source:   cfg.Source,
		GPSDAddr: cfg.GPSDAddr,
		Device:   cfg.Device,
		Baud:     cfg.Baud,
		I2CBus:   cfg.I2CBus,
		I2CAddr:  uint16(cfg.I2CAddr),
	})
	if err := svc.Start(ctx); err != nil {
		log.Printf("gps start failed: %v", err)
		svc.Close()
		return nil, func() {}
	}
	go observeGPS(ctx, svc, m)
	return svc.Sensor(), svc.Close
}

type simGPS interface {
	gps.Sensor
	Stats() gps.Stats
}

// observedSensor publishes parser counters after every read. It runs on the
// control loop goroutine, the only one touching the sensor.
type observedSensor struct {
	simGPS
	m *metrics.Metrics
}

func (o *observedSensor) Read() (bool, error) {
	got, err := o.simGPS.Read()
	st := o.simGPS.Stats()
	o.m.ObserveNMEA(st.Sentences, st.ChecksumErrors)
	return got, err
}

// observeGPS copies the GPS parser counters into metrics once a second.
func observeGPS(ctx context.Context, svc *gps.Service, m *metrics.Metrics) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		snap := svc.Snapshot()
		m.ObserveNMEA(snap.Sentences, snap.ChecksumErrors)
	}
}
