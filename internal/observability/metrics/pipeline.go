// Package metrics provides custom Prometheus metrics for the detection
// pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains all Prometheus metrics related to the detection
// pipeline.
type PipelineMetrics struct {
	DetectionCounter *prometheus.CounterVec

	// Performance metrics
	InferenceDuration  *prometheus.HistogramVec
	ModelLoadDuration  prometheus.Histogram
	RefinementDuration prometheus.Histogram

	// Operation counters
	InferenceTotal      *prometheus.CounterVec
	InferenceErrors     *prometheus.CounterVec
	FallbackActivations prometheus.Counter
	TaxonomyMisses      *prometheus.CounterVec
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	PixelReadRetries    prometheus.Counter

	// Current state gauges
	ModelLoadedGauge prometheus.Gauge

	registry *prometheus.Registry
}

// NewPipelineMetrics creates a new instance of PipelineMetrics registered on
// the given registry.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.DetectionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomlens_detections_total",
			Help: "Total number of furniture detections partitioned by class name.",
		},
		[]string{"class"},
	)
	m.InferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roomlens_inference_duration_seconds",
			Help:    "Inference duration including preprocessing.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"model"},
	)
	m.ModelLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roomlens_model_load_duration_seconds",
			Help:    "Time spent fetching and initializing the detection model.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
	m.RefinementDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roomlens_refinement_duration_seconds",
			Help:    "Time spent in the storage-furniture refinement pass.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
	m.InferenceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomlens_inference_total",
			Help: "Total number of inference runs.",
		},
		[]string{"model"},
	)
	m.InferenceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomlens_inference_errors_total",
			Help: "Total number of failed inference runs.",
		},
		[]string{"model"},
	)
	m.FallbackActivations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roomlens_fallback_activations_total",
			Help: "Times the top-K fallback replaced an empty threshold result.",
		},
	)
	m.TaxonomyMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomlens_taxonomy_misses_total",
			Help: "Detections that could not be mapped to a commerce category.",
		},
		[]string{"reason"},
	)
	m.CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roomlens_detection_cache_hits_total",
			Help: "Detection cache hits keyed by image identity.",
		},
	)
	m.CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roomlens_detection_cache_misses_total",
			Help: "Detection cache misses keyed by image identity.",
		},
	)
	m.PixelReadRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roomlens_pixel_read_retries_total",
			Help: "Image decode failures recovered via out-of-band refetch.",
		},
	)
	m.ModelLoadedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "roomlens_model_loaded",
			Help: "1 when the detection model is loaded and ready.",
		},
	)
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DetectionCounter.Describe(ch)
	m.InferenceDuration.Describe(ch)
	m.ModelLoadDuration.Describe(ch)
	m.RefinementDuration.Describe(ch)
	m.InferenceTotal.Describe(ch)
	m.InferenceErrors.Describe(ch)
	m.FallbackActivations.Describe(ch)
	m.TaxonomyMisses.Describe(ch)
	m.CacheHits.Describe(ch)
	m.CacheMisses.Describe(ch)
	m.PixelReadRetries.Describe(ch)
	m.ModelLoadedGauge.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DetectionCounter.Collect(ch)
	m.InferenceDuration.Collect(ch)
	m.ModelLoadDuration.Collect(ch)
	m.RefinementDuration.Collect(ch)
	m.InferenceTotal.Collect(ch)
	m.InferenceErrors.Collect(ch)
	m.FallbackActivations.Collect(ch)
	m.TaxonomyMisses.Collect(ch)
	m.CacheHits.Collect(ch)
	m.CacheMisses.Collect(ch)
	m.PixelReadRetries.Collect(ch)
	m.ModelLoadedGauge.Collect(ch)
}

// ObserveInference records one inference run.
func (m *PipelineMetrics) ObserveInference(model string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.InferenceTotal.WithLabelValues(model).Inc()
	if err != nil {
		m.InferenceErrors.WithLabelValues(model).Inc()
		return
	}
	m.InferenceDuration.WithLabelValues(model).Observe(d.Seconds())
}
