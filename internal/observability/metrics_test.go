package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.Converter.ObserveImage()
	m.Converter.ObserveAnnotation("balloon")
	m.Converter.ObserveDuration(0.25, "success")

	path := filepath.Join(t.TempDir(), "textfiles", "via2coco.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "via2coco_images_total 1")
	assert.Contains(t, text, `via2coco_annotations_total{category="balloon"} 1`)
	assert.Contains(t, text, `via2coco_run_duration_seconds_count{status="success"} 1`)
}

func TestRegistryGathers(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	// vectors without observations are not gathered
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "via2coco_images_total")
	assert.NotContains(t, names, "via2coco_annotations_total")
}
