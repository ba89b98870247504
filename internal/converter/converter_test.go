package converter

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/via2coco/internal/coco"
	"github.com/tphakala/via2coco/internal/errors"
	"github.com/tphakala/via2coco/internal/imagemeta"
	"github.com/tphakala/via2coco/internal/logger"
	"github.com/tphakala/via2coco/internal/via"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writePNG(t *testing.T, fs afero.Fs, path string, width, height int) {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, width, height))))
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0o644))
}

func squareVIA(label string) string {
	attrs := `{}`
	if label != "" {
		attrs = `{"label": "` + label + `"}`
	}
	return `{
		"a.jpg1234": {
			"filename": "a.jpg",
			"size": 1234,
			"regions": {
				"0": {
					"shape_attributes": {"name": "polygon", "all_points_x": [0, 10, 10, 0], "all_points_y": [0, 0, 10, 10]},
					"region_attributes": ` + attrs + `
				}
			}
		}
	}`
}

type fixture struct {
	fs   afero.Fs
	opts Options
}

func newFixture(t *testing.T, viaDoc string, names ...string) *fixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/data/val/a.jpg", 100, 50)
	require.NoError(t, afero.WriteFile(fs, "/data/val/via_region_data.json", []byte(viaDoc), 0o644))

	opts := NewOptions("/data/val", "/data/val/via_region_data.json", "/data/val/coco.json", names)
	opts.Fs = fs
	opts.Logger = logger.NewDiscard()
	return &fixture{fs: fs, opts: opts}
}

func (f *fixture) output(t *testing.T) string {
	t.Helper()
	data, err := afero.ReadFile(f.fs, f.opts.OutputPath)
	require.NoError(t, err)
	return string(data)
}

func TestRunBalloonSquare(t *testing.T) {
	f := newFixture(t, squareVIA("balloon"), "balloon")

	dataset, err := Run(f.opts)
	require.NoError(t, err)

	assert.Equal(t, []coco.Category{{ID: 1, Name: "balloon"}}, dataset.Categories)
	assert.Equal(t, []coco.Image{{ID: 0, FileName: "a.jpg", Height: 50, Width: 100}}, dataset.Images)
	require.Len(t, dataset.Annotations, 1)

	ann := dataset.Annotations[0]
	assert.Equal(t, 0, ann.ID)
	assert.Equal(t, 0, ann.ImageID)
	assert.Equal(t, 1, ann.CategoryID)
	assert.Equal(t, 0, ann.IsCrowd)
	assert.Equal(t, []json.Number{"0", "0", "10", "10"}, ann.BBox)
	assert.InDelta(t, 100.0, float64(ann.Area), 0)
	assert.Equal(t, []json.Number{"0", "0", "10", "0", "10", "10", "0", "10"}, ann.Segmentation)

	want := `{"images": [{"id": 0, "file_name": "a.jpg", "height": 50, "width": 100}],
		"categories": [{"id": 1, "name": "balloon"}],
		"annotations": [{"id": 0, "image_id": 0, "category_id": 1, "iscrowd": 0,
			"bbox": [0, 0, 10, 10], "area": 100.0, "segmentation": [0, 0, 10, 0, 10, 10, 0, 10]}]}`
	out := f.output(t)
	assert.JSONEq(t, want, out)
	assert.Contains(t, out, `"area": 100.0`)
}

func TestRunUnknownLabelIsRejected(t *testing.T) {
	f := newFixture(t, squareVIA("unknown"), "balloon")

	var rejections []Rejection
	f.opts.Reporter = ReporterFunc(func(r Rejection) { rejections = append(rejections, r) })

	result, err := RunWithResult(f.opts)
	require.NoError(t, err)

	assert.Empty(t, result.Dataset.Annotations)
	assert.Len(t, result.Dataset.Images, 1)
	assert.Equal(t, 1, result.Regions)
	assert.Equal(t, 1, result.Rejected)

	require.Len(t, rejections, 1)
	assert.Equal(t, Rejection{Category: "unknown", ImageFile: "a.jpg", RegionKey: "0", Known: []string{"balloon"}}, rejections[0])

	assert.Contains(t, f.output(t), `"annotations": []`)
}

func TestLogReporterWarning(t *testing.T) {
	var buf bytes.Buffer
	rep := NewLogReporter(logger.NewSlogLogger(&buf, logger.LogLevelInfo, nil))

	rep.Reject(Rejection{Category: "kite", ImageFile: "b.jpg", RegionKey: "3", Known: []string{"balloon", "bird"}})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "Ignore because category_name kite from image_file_name b.jpg not in category_names [balloon, bird]", rec["msg"])
	assert.Equal(t, "kite", rec["category"])
	assert.Equal(t, "b.jpg", rec["image_file"])
	assert.Equal(t, []any{"balloon", "bird"}, rec["known_categories"])
}

func TestUnlabeledRegionUsesFirstCategory(t *testing.T) {
	f := newFixture(t, squareVIA(""), "balloon", "kite")

	dataset, err := Run(f.opts)
	require.NoError(t, err)
	require.Len(t, dataset.Annotations, 1)
	assert.Equal(t, 1, dataset.Annotations[0].CategoryID)
}

const mixedVIA = `{
	"a.jpg1": {
		"filename": "a.jpg",
		"regions": {
			"0": {"shape_attributes": {"all_points_x": [0, 4, 0], "all_points_y": [0, 0, 3]}, "region_attributes": {"label": "cat"}},
			"1": {"shape_attributes": {"all_points_x": [1, 2, 2], "all_points_y": [1, 1, 2]}, "region_attributes": {"label": "LABEL"}},
			"2": {"shape_attributes": {"all_points_x": [5.5, 7.25, 7.25, 5.5], "all_points_y": [1, 1, 3, 3]}, "region_attributes": {"label": "dog"}}
		}
	},
	"b.jpg1": {
		"filename": "sub/b.jpg",
		"regions": {
			"7": {"shape_attributes": {"all_points_x": [], "all_points_y": []}, "region_attributes": {"label": "dog"}}
		}
	},
	"c.jpg1": {
		"filename": "c.jpg",
		"regions": {}
	}
}`

func newMixedFixture(t *testing.T, label string) *fixture {
	t.Helper()

	f := newFixture(t, strings.Replace(mixedVIA, "LABEL", label, 1), "cat", "dog")
	writePNG(t, f.fs, "/data/val/sub/b.jpg", 20, 30)
	writePNG(t, f.fs, "/data/val/c.jpg", 8, 8)
	return f
}

func TestRejectionKeepsIDsContiguous(t *testing.T) {
	kept := newMixedFixture(t, "cat")
	keptSet, err := Run(kept.opts)
	require.NoError(t, err)

	rejected := newMixedFixture(t, "zebra")
	rejected.opts.Reporter = ReporterFunc(func(Rejection) {})
	rejectedSet, err := Run(rejected.opts)
	require.NoError(t, err)

	assert.Len(t, keptSet.Annotations, 4)
	assert.Len(t, rejectedSet.Annotations, len(keptSet.Annotations)-1)

	for i, ann := range rejectedSet.Annotations {
		assert.Equal(t, i, ann.ID)
	}
	assert.Equal(t, []int{0, 0, 1}, imageIDs(rejectedSet))
}

func imageIDs(d *coco.Dataset) []int {
	ids := make([]int, 0, len(d.Annotations))
	for _, a := range d.Annotations {
		ids = append(ids, a.ImageID)
	}
	return ids
}

func TestImagesFollowSourceOrder(t *testing.T) {
	f := newMixedFixture(t, "cat")

	dataset, err := Run(f.opts)
	require.NoError(t, err)

	assert.Equal(t, []coco.Image{
		{ID: 0, FileName: "a.jpg", Height: 50, Width: 100},
		{ID: 1, FileName: "b.jpg", Height: 30, Width: 20},
		{ID: 2, FileName: "c.jpg", Height: 8, Width: 8},
	}, dataset.Images)
}

func TestGeometryKeepsSourceLiterals(t *testing.T) {
	f := newMixedFixture(t, "cat")

	dataset, err := Run(f.opts)
	require.NoError(t, err)
	require.Len(t, dataset.Annotations, 4)

	triangle := dataset.Annotations[0]
	assert.InDelta(t, 6.0, float64(triangle.Area), 1e-12)

	rect := dataset.Annotations[2]
	assert.Equal(t, []json.Number{"5.5", "1", "7.25", "3"}, rect.BBox)
	assert.InDelta(t, 3.5, float64(rect.Area), 1e-12)
	assert.Len(t, rect.Segmentation, 8)

	empty := dataset.Annotations[3]
	assert.Equal(t, []json.Number{"0", "0", "0", "0"}, empty.BBox)
	assert.Zero(t, float64(empty.Area))
	assert.Empty(t, empty.Segmentation)
	assert.Equal(t, 2, empty.CategoryID)

	out := f.output(t)
	assert.Contains(t, out, "5.5,")
	assert.Contains(t, out, `"area": 6.0`)
	assert.Contains(t, out, `"area": 0.0`)
}

func TestRunIsDeterministic(t *testing.T) {
	f := newMixedFixture(t, "cat")

	_, err := Run(f.opts)
	require.NoError(t, err)
	first := f.output(t)

	_, err = Run(f.opts)
	require.NoError(t, err)
	assert.Equal(t, first, f.output(t))
}

func TestCategoryOffsetAndDuplicates(t *testing.T) {
	f := newFixture(t, squareVIA("balloon"), "balloon", "kite", "balloon")
	f.opts.FirstCategoryID = 0

	dataset, err := Run(f.opts)
	require.NoError(t, err)

	assert.Equal(t, []coco.Category{
		{ID: 0, Name: "balloon"},
		{ID: 1, Name: "kite"},
		{ID: 2, Name: "balloon"},
	}, dataset.Categories)
	require.Len(t, dataset.Annotations, 1)
	assert.Equal(t, 2, dataset.Annotations[0].CategoryID)
}

func TestRunFatalErrors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(t *testing.T, f *fixture)
		category errors.ErrorCategory
	}{
		{
			name:     "empty category list",
			mutate:   func(_ *testing.T, f *fixture) { f.opts.CategoryNames = nil },
			category: errors.CategoryValidation,
		},
		{
			name:     "missing annotations",
			mutate:   func(_ *testing.T, f *fixture) { f.opts.AnnotationsPath = "/data/val/none.json" },
			category: errors.CategoryFileIO,
		},
		{
			name: "missing image",
			mutate: func(t *testing.T, f *fixture) {
				require.NoError(t, f.fs.Remove("/data/val/a.jpg"))
			},
			category: errors.CategoryFileIO,
		},
		{
			name: "unreadable image",
			mutate: func(t *testing.T, f *fixture) {
				require.NoError(t, afero.WriteFile(f.fs, "/data/val/a.jpg", []byte("GIF?"), 0o644))
			},
			category: errors.CategoryImageDecode,
		},
		{
			name: "malformed annotations",
			mutate: func(t *testing.T, f *fixture) {
				require.NoError(t, afero.WriteFile(f.fs, f.opts.AnnotationsPath, []byte(`{"a": {"filename": "a.jpg"}}`), 0o644))
			},
			category: errors.CategoryFileParsing,
		},
		{
			name:     "unwritable output",
			mutate:   func(_ *testing.T, f *fixture) { f.opts.Fs = afero.NewReadOnlyFs(f.fs) },
			category: errors.CategoryFileIO,
		},
		{
			name:     "no output path",
			mutate:   func(_ *testing.T, f *fixture) { f.opts.OutputPath = "" },
			category: errors.CategoryValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, squareVIA("balloon"), "balloon")
			tt.mutate(t, f)

			_, err := Run(f.opts)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)

			exists, _ := afero.Exists(f.fs, "/data/val/coco.json")
			assert.False(t, exists, "no output on failure")
		})
	}
}

type recorder struct {
	images      int
	annotations map[string]int
	rejections  map[string]int
	hits        int
	misses      int
	durations   []string
}

func newRecorder() *recorder {
	return &recorder{annotations: map[string]int{}, rejections: map[string]int{}}
}

func (r *recorder) ObserveImage()                       { r.images++ }
func (r *recorder) ObserveAnnotation(c string)          { r.annotations[c]++ }
func (r *recorder) ObserveRejection(c string)           { r.rejections[c]++ }
func (r *recorder) IncrementCacheHits()                 { r.hits++ }
func (r *recorder) IncrementCacheMisses()               { r.misses++ }
func (r *recorder) ObserveDuration(_ float64, s string) { r.durations = append(r.durations, s) }

func TestRunRecordsProgress(t *testing.T) {
	doc := `{
		"a1": {"filename": "a.jpg", "regions": {"0": {"shape_attributes": {"all_points_x": [0], "all_points_y": [0]}, "region_attributes": {"label": "x"}}}},
		"a2": {"filename": "a.jpg", "regions": {"0": {"shape_attributes": {"all_points_x": [0], "all_points_y": [0]}, "region_attributes": {"label": "y"}}}}
	}`
	f := newFixture(t, doc, "x")
	f.opts.Reporter = ReporterFunc(func(Rejection) {})
	rec := newRecorder()
	f.opts.Recorder = rec

	_, err := Run(f.opts)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.images)
	assert.Equal(t, map[string]int{"x": 1}, rec.annotations)
	assert.Equal(t, map[string]int{"y": 1}, rec.rejections)
	assert.Equal(t, 1, rec.misses)
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, []string{"success"}, rec.durations)

	f.opts.AnnotationsPath = "/missing.json"
	_, err = Run(f.opts)
	require.Error(t, err)
	assert.Equal(t, []string{"success", "error"}, rec.durations)
}

type fixedProvider struct{ paths []string }

func (p *fixedProvider) Dimensions(path string) (imagemeta.Size, error) {
	p.paths = append(p.paths, path)
	return imagemeta.Size{Width: 1, Height: 2}, nil
}

func TestConvertResolvesImagePaths(t *testing.T) {
	doc := `{
		"a": {"filename": "a.jpg", "regions": {}},
		"b": {"filename": "/abs/b.jpg", "regions": {}},
		"c": {"filename": "nested\\win\\c.jpg", "regions": {}}
	}`
	project, err := via.Decode(strings.NewReader(doc))
	require.NoError(t, err)

	categories, err := NewCategories([]string{"x"}, 1)
	require.NoError(t, err)

	provider := &fixedProvider{}
	result, err := New(categories, "/images", provider).Convert(project)
	require.NoError(t, err)

	assert.Equal(t, "/images/a.jpg", provider.paths[0])
	assert.Equal(t, "/abs/b.jpg", provider.paths[1])
	assert.Equal(t, "b.jpg", result.Dataset.Images[1].FileName)
	assert.Equal(t, "c.jpg", result.Dataset.Images[2].FileName)
}

type countingReporter struct {
	reports int
}

func (r *countingReporter) ReportError(ee *errors.EnhancedError) {
	r.reports++
	ee.MarkReported()
}

func (r *countingReporter) IsEnabled() bool { return true }

func TestMissingImageReportedOnce(t *testing.T) {
	rep := &countingReporter{}
	errors.SetTelemetryReporter(rep)
	t.Cleanup(func() { errors.SetTelemetryReporter(nil) })

	f := newFixture(t, squareVIA("balloon"), "balloon")
	require.NoError(t, f.fs.Remove("/data/val/a.jpg"))

	_, err := Run(f.opts)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))

	key, ok := errors.EntryOf(err)
	require.True(t, ok)
	assert.Equal(t, "a.jpg1234", key)
	assert.Equal(t, 1, rep.reports)
}

func TestScalarLabelIsRejected(t *testing.T) {
	doc := `{
		"a.jpg1234": {
			"filename": "a.jpg",
			"regions": {
				"0": {
					"shape_attributes": {"all_points_x": [0, 4, 4], "all_points_y": [0, 0, 3]},
					"region_attributes": {"label": null}
				},
				"1": {
					"shape_attributes": {"all_points_x": [0, 10, 10, 0], "all_points_y": [0, 0, 10, 10]},
					"region_attributes": {"label": "balloon"}
				},
				"2": {
					"shape_attributes": {"all_points_x": [1, 2, 2], "all_points_y": [1, 1, 2]},
					"region_attributes": {"label": 7}
				}
			}
		}
	}`
	f := newFixture(t, doc, "balloon")

	var rejections []Rejection
	f.opts.Reporter = ReporterFunc(func(r Rejection) { rejections = append(rejections, r) })

	result, err := RunWithResult(f.opts)
	require.NoError(t, err)

	require.Len(t, result.Dataset.Annotations, 1)
	assert.Equal(t, 0, result.Dataset.Annotations[0].ID)
	assert.Equal(t, 1, result.Dataset.Annotations[0].CategoryID)
	assert.Equal(t, 2, result.Rejected)

	require.Len(t, rejections, 2)
	assert.Equal(t, "null", rejections[0].Category)
	assert.Equal(t, "0", rejections[0].RegionKey)
	assert.Equal(t, "7", rejections[1].Category)
}
