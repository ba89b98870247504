// Package metrics provides the Prometheus collectors of via2coco.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "via2coco"

// ConverterMetrics contains the Prometheus metrics of conversion runs.
type ConverterMetrics struct {
	Images      prometheus.Counter
	Annotations *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	RunDuration *prometheus.HistogramVec
	LastRun     prometheus.Gauge
	registry    *prometheus.Registry
}

// NewConverterMetrics creates and registers the conversion metrics.
func NewConverterMetrics(registry *prometheus.Registry) (*ConverterMetrics, error) {
	m := &ConverterMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register converter metrics: %w", err)
	}
	return m, nil
}

func (m *ConverterMetrics) initMetrics() {
	m.Images = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "images_total",
		Help:      "Total number of images added to datasets.",
	})

	m.Annotations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "annotations_total",
		Help:      "Total number of annotations written, by category.",
	}, []string{"category"})

	m.Rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_regions_total",
		Help:      "Total number of regions skipped because their category is unknown.",
	}, []string{"category"})

	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_cache_hits_total",
		Help:      "Total number of image dimension cache hits.",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_cache_misses_total",
		Help:      "Total number of image dimension cache misses.",
	})

	m.RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of conversion runs in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"status"})

	m.LastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time at which the last run finished.",
	})
}

// ObserveImage counts an image added to the dataset.
func (m *ConverterMetrics) ObserveImage() {
	m.Images.Inc()
}

// ObserveAnnotation counts an annotation of category.
func (m *ConverterMetrics) ObserveAnnotation(category string) {
	m.Annotations.WithLabelValues(category).Inc()
}

// ObserveRejection counts a region skipped for an unknown category.
func (m *ConverterMetrics) ObserveRejection(category string) {
	m.Rejections.WithLabelValues(category).Inc()
}

// IncrementCacheHits increases the cache hit counter by one.
func (m *ConverterMetrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

// IncrementCacheMisses increases the cache miss counter by one.
func (m *ConverterMetrics) IncrementCacheMisses() {
	m.CacheMisses.Inc()
}

// ObserveDuration records the duration of a run ending with status.
func (m *ConverterMetrics) ObserveDuration(seconds float64, status string) {
	m.RunDuration.WithLabelValues(status).Observe(seconds)
	m.LastRun.SetToCurrentTime()
}

// Collect implements the prometheus.Collector interface.
func (m *ConverterMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Images.Collect(ch)
	m.Annotations.Collect(ch)
	m.Rejections.Collect(ch)
	m.CacheHits.Collect(ch)
	m.CacheMisses.Collect(ch)
	m.RunDuration.Collect(ch)
	m.LastRun.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *ConverterMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Images.Describe(ch)
	m.Annotations.Describe(ch)
	m.Rejections.Describe(ch)
	m.CacheHits.Describe(ch)
	m.CacheMisses.Describe(ch)
	m.RunDuration.Describe(ch)
	m.LastRun.Describe(ch)
}
