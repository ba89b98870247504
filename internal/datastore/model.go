package datastore

import (
	"encoding/json"
	"time"
)

// Run is one exported conversion. Child rows cascade with it.
type Run struct {
	ID              uint      `gorm:"primaryKey"`
	RunID           string    `gorm:"uniqueIndex;size:36;not null"`
	Source          string    // annotation file the dataset was converted from
	CreatedAt       time.Time `gorm:"index"`
	ImageCount      int
	CategoryCount   int
	AnnotationCount int

	Images      []Image      `gorm:"foreignKey:RunRef;constraint:OnDelete:CASCADE"`
	Categories  []Category   `gorm:"foreignKey:RunRef;constraint:OnDelete:CASCADE"`
	Annotations []Annotation `gorm:"foreignKey:RunRef;constraint:OnDelete:CASCADE"`
}

// Image is a COCO image record of a run.
type Image struct {
	ID       uint `gorm:"primaryKey"`
	RunRef   uint `gorm:"index:idx_images_run_coco,unique;not null"`
	CocoID   int  `gorm:"index:idx_images_run_coco,unique"`
	FileName string
	Width    int
	Height   int
}

// Category is a COCO category record of a run. Names may repeat.
type Category struct {
	ID     uint `gorm:"primaryKey"`
	RunRef uint `gorm:"index;not null"`
	CocoID int
	Name   string `gorm:"index"`
}

// Annotation is a COCO annotation record of a run. Coordinates keep the
// literals of the source file.
type Annotation struct {
	ID           uint          `gorm:"primaryKey"`
	RunRef       uint          `gorm:"index:idx_annotations_run_coco,unique;not null"`
	CocoID       int           `gorm:"index:idx_annotations_run_coco,unique"`
	ImageID      int           `gorm:"index"`
	CategoryID   int           `gorm:"index"`
	IsCrowd      int
	BBox         []json.Number `gorm:"column:bbox;type:text;serializer:json"`
	Area         float64
	Segmentation []json.Number `gorm:"type:text;serializer:json"`
}
