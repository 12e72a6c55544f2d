// SPDX-License-Identifier: MIT
package metrics

import (
	"net/http"
	"sync"
	"time"

	"micpipe/internal/audio"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the Prometheus metrics of the capture pipeline. It is an
// audio.Observer and is updated on the processing goroutine.
type Metrics struct {
	BlocksProcessed prometheus.Counter
	BlocksDropped   prometheus.Counter
	SpeechSegments  prometheus.Counter

	Volume         prometheus.Gauge
	AveragePowerDB prometheus.Gauge
	PeakPowerDB    prometheus.Gauge
	Speaking       prometheus.Gauge
	Capturing      prometheus.Gauge

	BlockLatency prometheus.Histogram

	gatherer prometheus.Gatherer
	now      func() time.Time

	mu          sync.Mutex
	lastDropped uint64
	speaking    bool
}

// New creates and registers all metrics with reg. A nil reg uses a fresh
// registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		BlocksProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "micpipe_blocks_processed_total",
			Help: "Total number of audio blocks measured",
		}),
		BlocksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "micpipe_blocks_dropped_total",
			Help: "Total number of blocks discarded because processing fell behind",
		}),
		SpeechSegments: factory.NewCounter(prometheus.CounterOpts{
			Name: "micpipe_speech_segments_total",
			Help: "Total number of detected speech starts",
		}),
		Volume: factory.NewGauge(prometheus.GaugeOpts{
			Name: "micpipe_volume",
			Help: "Gated envelope volume of the latest block",
		}),
		AveragePowerDB: factory.NewGauge(prometheus.GaugeOpts{
			Name: "micpipe_average_power_dbfs",
			Help: "RMS level of the latest block in dBFS",
		}),
		PeakPowerDB: factory.NewGauge(prometheus.GaugeOpts{
			Name: "micpipe_peak_power_dbfs",
			Help: "Peak level of the latest block in dBFS",
		}),
		Speaking: factory.NewGauge(prometheus.GaugeOpts{
			Name: "micpipe_speaking",
			Help: "1 while speech is detected",
		}),
		Capturing: factory.NewGauge(prometheus.GaugeOpts{
			Name: "micpipe_capturing",
			Help: "1 while the capture engine is running",
		}),
		BlockLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "micpipe_block_latency_seconds",
			Help:    "Time from block completion on the audio thread to measurement",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~200ms
		}),
		gatherer: reg,
		now:      time.Now,
	}
}

// Observe records a published snapshot.
func (m *Metrics) Observe(s *audio.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.Capturing {
		m.BlocksProcessed.Inc()
		if !s.Timestamp.HostTime.IsZero() {
			m.BlockLatency.Observe(m.now().Sub(s.Timestamp.HostTime).Seconds())
		}
	}
	if s.Dropped > m.lastDropped {
		m.BlocksDropped.Add(float64(s.Dropped - m.lastDropped))
	}
	m.lastDropped = s.Dropped

	if s.Speaking && !m.speaking {
		m.SpeechSegments.Inc()
	}
	m.speaking = s.Speaking

	m.Volume.Set(float64(s.Volume))
	m.AveragePowerDB.Set(s.AveragePowerDB)
	m.PeakPowerDB.Set(s.PeakPowerDB)
	m.Speaking.Set(boolToFloat(s.Speaking))
	m.Capturing.Set(boolToFloat(s.Capturing))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var _ audio.Observer = (*Metrics)(nil)
