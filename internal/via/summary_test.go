package via

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeInvalidLabels(t *testing.T) {
	doc := `{"a": {"filename": "a.jpg", "regions": {
		"0": {"region_attributes": {"label": null}, "shape_attributes": {"all_points_x": [], "all_points_y": []}},
		"1": {"region_attributes": {"label": false}, "shape_attributes": {"all_points_x": [], "all_points_y": []}},
		"2": {"region_attributes": {"label": "cat"}, "shape_attributes": {"all_points_x": [], "all_points_y": []}}
	}}}`

	project, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)

	s := Summarize(project)
	assert.Equal(t, 3, s.Regions)
	assert.Equal(t, 2, s.InvalidLabels)
	assert.Zero(t, s.Unlabeled)
	assert.Equal(t, []LabelCount{{Name: "cat", Count: 1}}, s.Labels)
}

func TestSummarize(t *testing.T) {
	doc := `{
		"a": {"filename": "a.jpg", "regions": {
			"0": {"region_attributes": {"label": "cat"}, "shape_attributes": {"all_points_x": [], "all_points_y": []}},
			"1": {"region_attributes": {"label": "dog"}, "shape_attributes": {"all_points_x": [], "all_points_y": []}},
			"2": {"region_attributes": {}, "shape_attributes": {"all_points_x": [], "all_points_y": []}}
		}},
		"b": {"filename": "b.jpg", "regions": {
			"0": {"region_attributes": {"label": "dog"}, "shape_attributes": {"all_points_x": [], "all_points_y": []}}
		}},
		"c": {"filename": "c.jpg", "regions": {}}
	}`

	project, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)

	s := Summarize(project)
	assert.Equal(t, 3, s.Entries)
	assert.Equal(t, 4, s.Regions)
	assert.Equal(t, 1, s.Unlabeled)
	assert.Equal(t, []LabelCount{{Name: "cat", Count: 1}, {Name: "dog", Count: 2}}, s.Labels)

	assert.Equal(t, []string{"cat"}, s.Unknown([]string{"dog", "bird"}))
	assert.Empty(t, s.Unknown([]string{"cat", "dog"}))
}

func TestSummarizeNil(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}
