package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// Extractions counts finished extractions by source kind and outcome.
	Extractions *prometheus.CounterVec

	// Images counts embedded/uploaded images by outcome (processed, skipped, budget).
	Images *prometheus.CounterVec

	// VisionCalls counts vision model calls by provider and outcome.
	VisionCalls *prometheus.CounterVec

	// VisionDuration measures vision model latency; buckets span cache hits to slow generations.
	VisionDuration *prometheus.HistogramVec

	// TranscriptAttempts counts locale attempts by locale and outcome.
	TranscriptAttempts *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "source_ingest_extractions_total",
				Help: "Total number of extraction requests by source kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		Images: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "source_ingest_images_total",
				Help: "Total number of images seen by outcome",
			},
			[]string{"outcome"},
		),
		VisionCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "source_ingest_vision_calls_total",
				Help: "Total number of vision model calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		VisionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "source_ingest_vision_duration_seconds",
				Help:    "Duration of vision model calls in seconds",
				Buckets: []float64{0.005, 0.05, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),
		TranscriptAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "source_ingest_transcript_attempts_total",
				Help: "Total number of transcript locale attempts by locale and outcome",
			},
			[]string{"locale", "outcome"},
		),
	}
}

// ObserveExtraction records a finished extraction.
func (m *Metrics) ObserveExtraction(kind string, err error) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(kind, outcome(err)).Inc()
}

// ObserveImage records an image outcome.
func (m *Metrics) ObserveImage(result string) {
	if m == nil {
		return
	}
	m.Images.WithLabelValues(result).Inc()
}

// ObserveVision records one vision call.
func (m *Metrics) ObserveVision(provider string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.VisionCalls.WithLabelValues(provider, outcome(err)).Inc()
	m.VisionDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

// ObserveTranscriptAttempt records one locale attempt.
func (m *Metrics) ObserveTranscriptAttempt(locale string, err error) {
	if m == nil {
		return
	}
	m.TranscriptAttempts.WithLabelValues(locale, outcome(err)).Inc()
}

// WriteToTextfile dumps the registry in text exposition format.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
