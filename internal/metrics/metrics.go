// Package metrics exports autopilot counters to Prometheus.
//
// Every method is safe on a nil *Metrics so components can be built
// without a registry.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autopilot"

// Totals the link counters are driven from. The mavlink bus and decoder
// keep running totals; Metrics turns them into counter increments.
type BusTotals struct {
	Sent         uint64
	Rejected     uint64
	BytesWritten uint64
}

type Metrics struct {
	reg *prometheus.Registry

	nmeaSentences  *prometheus.CounterVec
	framesReceived prometheus.Counter
	framesSent     prometheus.Counter
	sendRejected   prometheus.Counter
	bytesWritten   prometheus.Counter
	optimSteps     *prometheus.CounterVec
	optimBestLoss  prometheus.Gauge
	tickDuration   prometheus.Histogram

	mu       sync.Mutex
	lastBus  BusTotals
	lastNMEA [2]uint64
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		nmeaSentences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nmea",
			Name:      "sentences_total",
			Help:      "NMEA sentences parsed, by checksum result.",
		}, []string{"result"}),
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mavlink",
			Name:      "frames_received_total",
			Help:      "MAVLink frames decoded from the link.",
		}),
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mavlink",
			Name:      "frames_sent_total",
			Help:      "MAVLink frames queued on the bus.",
		}),
		sendRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mavlink",
			Name:      "send_rejected_total",
			Help:      "MAVLink sends rejected because the bus was full.",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mavlink",
			Name:      "bytes_written_total",
			Help:      "Bytes streamed from the bus to the link.",
		}),
		optimSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optim",
			Name:      "steps_total",
			Help:      "Local search steps, by outcome.",
		}, []string{"result"}),
		optimBestLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "optim",
			Name:      "best_loss",
			Help:      "Penalized best loss of the running optimizer.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent in one control loop tick.",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.nmeaSentences,
		m.framesReceived,
		m.framesSent,
		m.sendRejected,
		m.bytesWritten,
		m.optimSteps,
		m.optimBestLoss,
		m.tickDuration,
	)
	return m
}

// Registry returns the underlying registry, nil for a nil Metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) FrameReceived() {
	if m == nil {
		return
	}
	m.framesReceived.Inc()
}

// ObserveBus records the growth of the bus totals since the last call.
func (m *Metrics) ObserveBus(t BusTotals) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.framesSent.Add(float64(delta(t.Sent, m.lastBus.Sent)))
	m.sendRejected.Add(float64(delta(t.Rejected, m.lastBus.Rejected)))
	m.bytesWritten.Add(float64(delta(t.BytesWritten, m.lastBus.BytesWritten)))
	m.lastBus = t
}

// ObserveNMEA records the growth of a GPS decoder's sentence and checksum
// error totals since the last call.
func (m *Metrics) ObserveNMEA(sentences, checksumErrors uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nmeaSentences.WithLabelValues("ok").Add(float64(delta(sentences, m.lastNMEA[0])))
	m.nmeaSentences.WithLabelValues("bad_checksum").Add(float64(delta(checksumErrors, m.lastNMEA[1])))
	m.lastNMEA = [2]uint64{sentences, checksumErrors}
}

func (m *Metrics) OptimStep(accepted bool, bestLoss float32) {
	if m == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.optimSteps.WithLabelValues(result).Inc()
	m.optimBestLoss.Set(float64(bestLoss))
}

func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}

// delta tolerates a source whose totals restarted.
func delta(cur, last uint64) uint64 {
	if cur < last {
		return cur
	}
	return cur - last
}
