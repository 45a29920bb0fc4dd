// Package metrics provides Prometheus metrics for pipeline runs.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chunkscribe"

const (
	OutcomeCompleted = "completed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"

	OutcomeSuccess = "success"
)

// Metrics is registered on its own registry. The CLI is short-lived, so the registry is
// written to a node_exporter textfile at exit instead of being scraped.
type Metrics struct {
	registry *prometheus.Registry

	StreamsTotal        *prometheus.CounterVec
	StreamDuration      prometheus.Histogram
	ChunksCreated       prometheus.Counter
	ShortCircuits       prometheus.Counter
	ChunkTranscriptions *prometheus.CounterVec
	ProviderLatency     *prometheus.HistogramVec
	TranscriptChars     prometheus.Counter
	NotifyErrors        prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		StreamsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_total",
			Help:      "Streams processed by outcome",
		}, []string{"outcome"}),
		StreamDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_processing_seconds",
			Help:      "Wall time spent on one stream",
			Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		}),
		ChunksCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_created_total",
			Help:      "Chunk files written by the segmenter",
		}),
		ShortCircuits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segmentation_skipped_total",
			Help:      "Sources small enough to send to the provider without segmenting",
		}),
		ChunkTranscriptions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_transcriptions_total",
			Help:      "Provider calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Time for one provider transcription call",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"provider"}),
		TranscriptChars: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_characters_total",
			Help:      "Characters in written full transcripts",
		}),
		NotifyErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_errors_total",
			Help:      "Transcript notifications that failed",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordStream(outcome string, seconds float64) {
	m.StreamsTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSkipped && outcome != OutcomeCanceled {
		m.StreamDuration.Observe(seconds)
	}
}

func (m *Metrics) RecordChunks(n int) {
	m.ChunksCreated.Add(float64(n))
}

func (m *Metrics) RecordShortCircuit() {
	m.ShortCircuits.Inc()
}

// RecordTranscription records one provider call. outcome is OutcomeSuccess or a failure reason.
func (m *Metrics) RecordTranscription(provider, outcome string, seconds float64) {
	m.ChunkTranscriptions.WithLabelValues(provider, outcome).Inc()
	m.ProviderLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *Metrics) RecordTranscript(chars int) {
	m.TranscriptChars.Add(float64(chars))
}

func (m *Metrics) RecordNotifyError() {
	m.NotifyErrors.Inc()
}

// WriteTextfile is a no-op for an empty path.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
