// Package datastore exports converted COCO datasets to SQLite so several
// runs can be queried side by side.
package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/via2coco/internal/coco"
	"github.com/tphakala/via2coco/internal/errors"
	"github.com/tphakala/via2coco/internal/logger"
)

const (
	componentDatastore = "datastore"

	// batchSize is the batch size for bulk inserts.
	batchSize = 500
)

// Store is an SQLite database of exported runs.
type Store struct {
	db   *gorm.DB
	path string
	log  logger.Logger
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewDiscard()
	}
	log = log.Module(componentDatastore)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(fmt.Errorf("failed to create database directory: %w", err)).
				Component(componentDatastore).
				Category(errors.CategoryFileIO).
				FileContext(path).
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: NewGormLogger(log, DefaultSlowQueryThreshold, gormlogger.Warn),
	})
	if err != nil {
		return nil, dbError(err, "open", path)
	}

	if err := db.AutoMigrate(&Run{}, &Image{}, &Category{}, &Annotation{}); err != nil {
		closeDB(db)
		return nil, dbError(err, "migrate", path)
	}

	log.Debug("database ready", logger.String("path", path))
	return &Store{db: db, path: path, log: log}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "close", s.path)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", s.path)
	}
	return nil
}

// Export stores d under runID in a single transaction. An earlier export with
// the same run id is replaced.
func (s *Store) Export(ctx context.Context, runID, source string, d *coco.Dataset) (*Run, error) {
	if runID == "" {
		return nil, errors.ValidationError("run id is required")
	}
	if d == nil {
		return nil, errors.ValidationError("dataset is required")
	}

	run := &Run{
		RunID:           runID,
		Source:          source,
		ImageCount:      len(d.Images),
		CategoryCount:   len(d.Categories),
		AnnotationCount: len(d.Annotations),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteRun(tx, runID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(run).Error; err != nil {
			return err
		}
		return saveRecords(tx, run.ID, d)
	})
	if err != nil {
		return nil, dbError(err, "export", s.path)
	}

	s.log.Info("dataset exported",
		logger.RunID(runID),
		logger.String("path", s.path),
		logger.Int("images", run.ImageCount),
		logger.Int("annotations", run.AnnotationCount))
	return run, nil
}

// Dataset rebuilds the dataset stored under runID.
func (s *Store) Dataset(ctx context.Context, runID string) (*coco.Dataset, error) {
	db := s.db.WithContext(ctx)

	var run Run
	if err := db.Where("run_id = ?", runID).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("run %s not found", runID).
				Component(componentDatastore).
				Category(errors.CategoryDatabase).
				Context("run_id", runID).
				Build()
		}
		return nil, dbError(err, "load", s.path)
	}

	var (
		images      []Image
		categories  []Category
		annotations []Annotation
	)
	if err := db.Where("run_ref = ?", run.ID).Order("coco_id").Find(&images).Error; err != nil {
		return nil, dbError(err, "load", s.path)
	}
	if err := db.Where("run_ref = ?", run.ID).Order("id").Find(&categories).Error; err != nil {
		return nil, dbError(err, "load", s.path)
	}
	if err := db.Where("run_ref = ?", run.ID).Order("coco_id").Find(&annotations).Error; err != nil {
		return nil, dbError(err, "load", s.path)
	}

	d := coco.NewDataset()
	for _, img := range images {
		d.Images = append(d.Images, coco.Image{ID: img.CocoID, FileName: img.FileName, Height: img.Height, Width: img.Width})
	}
	for _, c := range categories {
		d.Categories = append(d.Categories, coco.Category{ID: c.CocoID, Name: c.Name})
	}
	for _, a := range annotations {
		d.Annotations = append(d.Annotations, coco.Annotation{
			ID:           a.CocoID,
			ImageID:      a.ImageID,
			CategoryID:   a.CategoryID,
			IsCrowd:      a.IsCrowd,
			BBox:         a.BBox,
			Area:         coco.Area(a.Area),
			Segmentation: a.Segmentation,
		})
	}
	return d, nil
}

// Runs lists the exported runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	var runs []Run
	if err := s.db.WithContext(ctx).Order("id").Find(&runs).Error; err != nil {
		return nil, dbError(err, "list", s.path)
	}
	return runs, nil
}

// deleteRun removes a run and its rows. SQLite only enforces the cascade
// with foreign keys enabled, so children are deleted explicitly.
func deleteRun(tx *gorm.DB, runID string) error {
	var existing Run
	err := tx.Where("run_id = ?", runID).Limit(1).Find(&existing).Error
	if err != nil || existing.ID == 0 {
		return err
	}

	for _, model := range []any{&Image{}, &Category{}, &Annotation{}} {
		if err := tx.Where("run_ref = ?", existing.ID).Delete(model).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&existing).Error
}

func saveRecords(tx *gorm.DB, runRef uint, d *coco.Dataset) error {
	images := make([]Image, 0, len(d.Images))
	for _, img := range d.Images {
		images = append(images, Image{RunRef: runRef, CocoID: img.ID, FileName: img.FileName, Width: img.Width, Height: img.Height})
	}

	categories := make([]Category, 0, len(d.Categories))
	for _, c := range d.Categories {
		categories = append(categories, Category{RunRef: runRef, CocoID: c.ID, Name: c.Name})
	}

	annotations := make([]Annotation, 0, len(d.Annotations))
	for _, a := range d.Annotations {
		annotations = append(annotations, Annotation{
			RunRef:       runRef,
			CocoID:       a.ID,
			ImageID:      a.ImageID,
			CategoryID:   a.CategoryID,
			IsCrowd:      a.IsCrowd,
			BBox:         a.BBox,
			Area:         float64(a.Area),
			Segmentation: a.Segmentation,
		})
	}

	if len(images) > 0 {
		if err := tx.CreateInBatches(images, batchSize).Error; err != nil {
			return err
		}
	}
	if len(categories) > 0 {
		if err := tx.CreateInBatches(categories, batchSize).Error; err != nil {
			return err
		}
	}
	if len(annotations) > 0 {
		if err := tx.CreateInBatches(annotations, batchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func dbError(err error, operation, path string) error {
	return errors.New(fmt.Errorf("database %s failed: %w", operation, err)).
		Component(componentDatastore).
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		FileContext(path).
		Build()
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
