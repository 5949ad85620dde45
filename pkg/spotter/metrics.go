package spotter

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds loop and announcer counters. Counters are plain atomics so the
// hot path never takes a lock; the Prometheus collectors read them on Gather.
type Metrics struct {
	Frames        atomic.Uint64
	Detections    atomic.Uint64
	Announcements atomic.Uint64
	Suppressed    atomic.Uint64
	EngineResets  atomic.Uint64
	SpeechErrors  atomic.Uint64

	inference prometheus.Histogram
	render    prometheus.Histogram
	labels    *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a Metrics instance backed by a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spotter_inference_seconds",
			Help:    "Detector latency per frame",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		}),
		render: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spotter_speech_render_seconds",
			Help:    "Time spent rendering one announcement",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 6),
		}),
		labels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spotter_label_frames_total",
			Help: "Frames in which each label was detected",
		}, []string{"label"}),
	}

	counter := func(name, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: name, Help: help},
			func() float64 { return float64(v.Load()) },
		)
	}

	m.registry.MustRegister(
		counter("spotter_frames_total", "Frames read from the capture device", &m.Frames),
		counter("spotter_detections_total", "Detections kept after postprocessing", &m.Detections),
		counter("spotter_announcements_total", "Announcements handed to the speech engine", &m.Announcements),
		counter("spotter_announcements_suppressed_total", "Announcements dropped because speech was in flight", &m.Suppressed),
		counter("spotter_engine_resets_total", "Speech engine resets before a new utterance", &m.EngineResets),
		counter("spotter_speech_errors_total", "Utterances that failed to render", &m.SpeechErrors),
		m.inference,
		m.render,
		m.labels,
	)
	return m
}

// ObserveInference records detector latency.
func (m *Metrics) ObserveInference(d time.Duration) {
	m.inference.Observe(d.Seconds())
}

// ObserveRender records how long an utterance took.
func (m *Metrics) ObserveRender(d time.Duration) {
	m.render.Observe(d.Seconds())
}

// CountLabels increments the per-label frame counter for every label in s.
func (m *Metrics) CountLabels(s LabelSet) {
	for l := range s {
		m.labels.WithLabelValues(l).Inc()
	}
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Summary is a point-in-time copy of the counters.
type Summary struct {
	Frames        uint64
	Detections    uint64
	Announcements uint64
	Suppressed    uint64
	EngineResets  uint64
	SpeechErrors  uint64
}

// Summary snapshots the counters.
func (m *Metrics) Summary() Summary {
	return Summary{
		Frames:        m.Frames.Load(),
		Detections:    m.Detections.Load(),
		Announcements: m.Announcements.Load(),
		Suppressed:    m.Suppressed.Load(),
		EngineResets:  m.EngineResets.Load(),
		SpeechErrors:  m.SpeechErrors.Load(),
	}
}

// LogArgs returns the summary as slog key/value pairs.
func (s Summary) LogArgs() []any {
	return []any{
		"frames", s.Frames,
		"detections", s.Detections,
		"announcements", s.Announcements,
		"suppressed", s.Suppressed,
		"engine_resets", s.EngineResets,
		"speech_errors", s.SpeechErrors,
	}
}
