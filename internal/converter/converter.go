// Package converter turns VIA polygon annotations into a COCO dataset.
//
// Image ids follow the order of the annotation file, annotation ids count
// only converted regions, and a region whose category is unknown is handed
// to a Reporter and skipped. Any other problem aborts the conversion.
package converter

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/tphakala/via2coco/internal/coco"
	"github.com/tphakala/via2coco/internal/errors"
	"github.com/tphakala/via2coco/internal/geometry"
	"github.com/tphakala/via2coco/internal/imagemeta"
	"github.com/tphakala/via2coco/internal/logger"
	"github.com/tphakala/via2coco/internal/via"
)

const componentConverter = "converter"

// Recorder observes conversion progress.
type Recorder interface {
	ObserveImage()
	ObserveAnnotation(category string)
	ObserveRejection(category string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveImage()            {}
func (nopRecorder) ObserveAnnotation(string) {}
func (nopRecorder) ObserveRejection(string)  {}

// Result is the outcome of one conversion.
type Result struct {
	Dataset *coco.Dataset
	// Regions counts every region in the source, Rejected those skipped.
	Regions  int
	Rejected int
}

// Converter holds the collaborators of a conversion.
type Converter struct {
	categories *Categories
	imageDir   string
	images     imagemeta.Provider
	reporter   Reporter
	recorder   Recorder
	log        logger.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithReporter sets the receiver of rejected regions. The default logs a
// warning per rejection.
func WithReporter(r Reporter) Option {
	return func(c *Converter) {
		c.reporter = r
	}
}

// WithRecorder sets the progress recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Converter) {
		c.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Converter) {
		c.log = l
	}
}

// New returns a converter resolving image files against imageDir.
func New(categories *Categories, imageDir string, images imagemeta.Provider, opts ...Option) *Converter {
	c := &Converter{
		categories: categories,
		imageDir:   imageDir,
		images:     images,
		recorder:   nopRecorder{},
		log:        logger.NewDiscard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.reporter == nil {
		c.reporter = NewLogReporter(c.log)
	}
	return c
}

// Convert builds the dataset for project.
func (c *Converter) Convert(project *via.Project) (*Result, error) {
	result := &Result{Dataset: coco.NewDataset()}
	result.Dataset.Categories = c.categories.Records()

	known := c.categories.Names()
	defaultName := c.categories.Default()

	for imageID, entry := range project.Entries {
		imagePath := c.resolve(entry.Filename)
		size, err := c.images.Dimensions(imagePath)
		if err != nil {
			return nil, errors.New(fmt.Errorf("entry %q: %w", entry.Key, err)).
				Component(componentConverter).
				Entry(entry.Key).
				Build()
		}

		result.Dataset.Images = append(result.Dataset.Images, coco.Image{
			ID:       imageID,
			FileName: baseName(entry.Filename),
			Height:   size.Height,
			Width:    size.Width,
		})
		c.recorder.ObserveImage()

		for i := range entry.Regions {
			region := &entry.Regions[i]
			result.Regions++

			name := region.LabelOr(defaultName)
			categoryID, ok := c.categories.Lookup(name)
			if region.InvalidLabel != "" {
				name, ok = region.InvalidLabel, false
			}
			if !ok {
				result.Rejected++
				c.recorder.ObserveRejection(name)
				c.reporter.Reject(Rejection{
					Category:  name,
					ImageFile: entry.Filename,
					RegionKey: region.Key,
					Known:     known,
				})
				continue
			}

			ann := annotate(region)
			ann.ID = len(result.Dataset.Annotations)
			ann.ImageID = imageID
			ann.CategoryID = categoryID
			result.Dataset.Annotations = append(result.Dataset.Annotations, ann)
			c.recorder.ObserveAnnotation(name)
		}

		c.log.Debug("converted entry",
			logger.String("entry", entry.Key),
			logger.Int("image_id", imageID),
			logger.Int("regions", len(entry.Regions)))
	}

	return result, nil
}

// annotate computes the geometry of region. The bbox reuses the source
// literals of the extremal vertices.
func annotate(region *via.Region) coco.Annotation {
	poly := geometry.NewPolygon(region.Xs(), region.Ys())

	bbox := []json.Number{"0", "0", "0", "0"}
	if ext, ok := poly.Extent(); ok {
		bbox = []json.Number{
			region.AllPointsX[ext.MinX],
			region.AllPointsY[ext.MinY],
			region.AllPointsX[ext.MaxX],
			region.AllPointsY[ext.MaxY],
		}
	}

	return coco.Annotation{
		IsCrowd:      0,
		BBox:         bbox,
		Area:         coco.Area(poly.Area()),
		Segmentation: geometry.Flatten(region.AllPointsX, region.AllPointsY),
	}
}

func (c *Converter) resolve(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(c.imageDir, filename)
}

// baseName strips directories written with either separator, since
// annotation files are often produced on another platform.
func baseName(filename string) string {
	return path.Base(strings.ReplaceAll(filename, `\`, "/"))
}
