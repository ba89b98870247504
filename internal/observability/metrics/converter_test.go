package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/via2coco/internal/converter"
	"github.com/tphakala/via2coco/internal/imagemeta"
)

var (
	_ converter.Recorder         = (*ConverterMetrics)(nil)
	_ converter.DurationRecorder = (*ConverterMetrics)(nil)
	_ imagemeta.CacheRecorder    = (*ConverterMetrics)(nil)
)

func newTestMetrics(t *testing.T) *ConverterMetrics {
	t.Helper()
	m, err := NewConverterMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestConverterMetricsCounters(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveImage()
	m.ObserveImage()
	m.ObserveAnnotation("balloon")
	m.ObserveAnnotation("balloon")
	m.ObserveAnnotation("kite")
	m.ObserveRejection("bird")
	m.IncrementCacheHits()
	m.IncrementCacheMisses()
	m.IncrementCacheMisses()

	assert.InDelta(t, 2, testutil.ToFloat64(m.Images), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Annotations.WithLabelValues("balloon")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Annotations.WithLabelValues("kite")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Rejections.WithLabelValues("bird")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheHits), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.CacheMisses), 0)
}

func TestConverterMetricsDuration(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveDuration(0.5, "success")
	m.ObserveDuration(1.5, "success")
	m.ObserveDuration(0.1, "error")

	var metric dto.Metric
	hist, ok := m.RunDuration.WithLabelValues("success").(prometheus.Metric)
	require.True(t, ok)
	require.NoError(t, hist.Write(&metric))
	assert.Equal(t, uint64(2), metric.GetHistogram().GetSampleCount())
	assert.InDelta(t, 2.0, metric.GetHistogram().GetSampleSum(), 1e-9)

	assert.Equal(t, 2, testutil.CollectAndCount(m.RunDuration))
	assert.Positive(t, testutil.ToFloat64(m.LastRun))
}

func TestConverterMetricsDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewConverterMetrics(registry)
	require.NoError(t, err)

	_, err = NewConverterMetrics(registry)
	assert.Error(t, err)
}
