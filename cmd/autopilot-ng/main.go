package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autopilot-ng/internal/autopilot"
	"autopilot-ng/internal/clock"
	"autopilot-ng/internal/config"
	"autopilot-ng/internal/led"
	"autopilot-ng/internal/metrics"
	"autopilot-ng/internal/sensors/bmp280"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./autopilot.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("autopilot-ng starting")

	m := metrics.New()
	if cfg.Metrics.Listen != "" {
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: metricsMux(m), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Printf("metrics listening addr=%s", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	port, closeLink, err := openLink(ctx, cfg.MAVLink)
	if err != nil {
		log.Fatalf("mavlink link init failed: %v", err)
	}
	defer closeLink()

	sensor, closeGPS := openGPS(ctx, cfg.GPS, m)
	defer closeGPS()

	var status autopilot.Blinker
	if cfg.StatusLED.Enable {
		l, err := led.Open(cfg.StatusLED.GPIO)
		if err != nil {
			log.Printf("status led disabled: %v", err)
		} else {
			defer l.Close()
			status = l
			log.Printf("status led gpio=%d", cfg.StatusLED.GPIO)
		}
	}

	sysID := uint8(cfg.MAVLink.SystemID)
	components := []autopilot.Component{
		autopilot.NewHeartbeat(sysID, cfg.Heartbeat.Interval, status),
		autopilot.NewGPS(sysID, sensor, cfg.GPS.ReadInterval, cfg.GPS.PublishInterval),
	}
	if cfg.Baro.Enable {
		baro, err := bmp280.Open(cfg.Baro.I2CBus, uint16(cfg.Baro.I2CAddr))
		if err != nil {
			log.Printf("baro disabled: %v", err)
		} else {
			defer baro.Close()
			components = append(components, autopilot.NewBaro(sysID, baro, cfg.Baro.Interval))
			log.Printf("baro enabled bus=%s addr=0x%02X", cfg.Baro.I2CBus, cfg.Baro.I2CAddr)
		}
	}
	program := autopilot.NewProgram(port, clock.System{}, uint8(cfg.MAVLink.Version), m, components...)

	log.Printf("mavlink system_id=%d version=%d tick=%s", sysID, cfg.MAVLink.Version, cfg.MAVLink.Tick)
	if err := program.Run(ctx, cfg.MAVLink.Tick); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("control loop stopped: %v", err)
	}
	log.Printf("autopilot-ng stopping")
}

func metricsMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}
