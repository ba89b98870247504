package converter

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tphakala/via2coco/internal/coco"
	"github.com/tphakala/via2coco/internal/errors"
	"github.com/tphakala/via2coco/internal/imagemeta"
	"github.com/tphakala/via2coco/internal/logger"
	"github.com/tphakala/via2coco/internal/via"
)

// Options describes one conversion run.
type Options struct {
	ImageDir        string
	AnnotationsPath string
	OutputPath      string
	CategoryNames   []string
	FirstCategoryID int

	// RunID tags log records of this run; generated when empty.
	RunID string

	// Fs defaults to the operating system filesystem.
	Fs afero.Fs
	// Images defaults to a cached file provider on Fs.
	Images   imagemeta.Provider
	Reporter Reporter
	// Recorder may also implement imagemeta.CacheRecorder and
	// DurationRecorder to receive cache and timing events.
	Recorder Recorder
	Logger   logger.Logger
}

// DurationRecorder observes how long a run took.
type DurationRecorder interface {
	ObserveDuration(seconds float64, status string)
}

// NewOptions returns options for the required inputs with the default
// first category id.
func NewOptions(imageDir, annotationsPath, outputPath string, categoryNames []string) Options {
	return Options{
		ImageDir:        imageDir,
		AnnotationsPath: annotationsPath,
		OutputPath:      outputPath,
		CategoryNames:   categoryNames,
		FirstCategoryID: DefaultFirstCategoryID,
	}
}

// Run loads the annotations, converts them and writes the dataset to
// OutputPath. The output file is only replaced when the whole run
// succeeds.
func Run(opts Options) (*coco.Dataset, error) {
	result, err := run(&opts)
	if err != nil {
		return nil, err
	}
	return result.Dataset, nil
}

// RunWithResult is Run returning the region counters as well.
func RunWithResult(opts Options) (*Result, error) {
	return run(&opts)
}

func run(opts *Options) (result *Result, err error) {
	start := time.Now()
	opts.applyDefaults()

	log := opts.Logger.With(logger.RunID(opts.RunID))

	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		if dr, ok := opts.Recorder.(DurationRecorder); ok {
			dr.ObserveDuration(time.Since(start).Seconds(), status)
		}
	}()

	if opts.OutputPath == "" {
		return nil, errors.ValidationError("output path is required")
	}

	categories, err := NewCategories(opts.CategoryNames, opts.FirstCategoryID)
	if err != nil {
		return nil, err
	}
	if dups := categories.Duplicates(); len(dups) > 0 {
		log.Warn("duplicate category names resolve to their last id",
			logger.Strings("names", dups))
	}

	log.Info("starting conversion",
		logger.String("annotations", opts.AnnotationsPath),
		logger.String("image_dir", opts.ImageDir),
		logger.Strings("categories", categories.Names()),
		logger.Int("first_category_id", opts.FirstCategoryID))

	project, err := via.Load(opts.Fs, opts.AnnotationsPath)
	if err != nil {
		return nil, err
	}

	conv := New(categories, opts.ImageDir, opts.Images,
		WithLogger(log),
		WithReporter(opts.Reporter),
		WithRecorder(opts.Recorder))

	result, err = conv.Convert(project)
	if err != nil {
		return nil, err
	}

	if err := coco.Write(opts.Fs, opts.OutputPath, result.Dataset); err != nil {
		return nil, fmt.Errorf("write %s: %w", opts.OutputPath, err)
	}

	fields := []logger.Field{
		logger.String("output", opts.OutputPath),
		logger.Int("images", len(result.Dataset.Images)),
		logger.Int("annotations", len(result.Dataset.Annotations)),
		logger.Int("rejected", result.Rejected),
		logger.Duration("elapsed", time.Since(start)),
	}
	if cached, ok := opts.Images.(*imagemeta.CachedProvider); ok {
		hits, misses := cached.Stats()
		fields = append(fields, logger.Int64("cache_hits", hits), logger.Int64("cache_misses", misses))
	}
	log.Info("conversion finished", fields...)

	return result, nil
}

func (o *Options) applyDefaults() {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Logger == nil {
		o.Logger = logger.NewDiscard()
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	if o.Images == nil {
		var cacheOpts []imagemeta.CacheOption
		if cr, ok := o.Recorder.(imagemeta.CacheRecorder); ok {
			cacheOpts = append(cacheOpts, imagemeta.WithRecorder(cr))
		}
		o.Images = imagemeta.NewCachedProvider(imagemeta.NewFileProvider(o.Fs), cacheOpts...)
	}
	if o.Reporter == nil {
		o.Reporter = NewLogReporter(o.Logger.With(logger.RunID(o.RunID)))
	}
}
