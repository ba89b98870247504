// Package coco defines the COCO detection dataset records and writes them.
package coco

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Image is one entry of the images collection.
type Image struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Height   int    `json:"height"`
	Width    int    `json:"width"`
}

// Category is one entry of the categories collection.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Annotation is one polygon instance. BBox is stored as
// [min_x, min_y, max_x, max_y]; coordinates keep their source literals.
type Annotation struct {
	ID           int           `json:"id"`
	ImageID      int           `json:"image_id"`
	CategoryID   int           `json:"category_id"`
	IsCrowd      int           `json:"iscrowd"`
	BBox         []json.Number `json:"bbox"`
	Area         Area          `json:"area"`
	Segmentation []json.Number `json:"segmentation"`
}

// Dataset is the top-level COCO document.
type Dataset struct {
	Images      []Image      `json:"images"`
	Categories  []Category   `json:"categories"`
	Annotations []Annotation `json:"annotations"`
}

// NewDataset returns a dataset with empty, non-nil collections.
func NewDataset() *Dataset {
	return &Dataset{
		Images:      []Image{},
		Categories:  []Category{},
		Annotations: []Annotation{},
	}
}

// normalize replaces nil slices so they encode as [] instead of null.
func (d *Dataset) normalize() {
	if d.Images == nil {
		d.Images = []Image{}
	}
	if d.Categories == nil {
		d.Categories = []Category{}
	}
	if d.Annotations == nil {
		d.Annotations = []Annotation{}
	}
	for i := range d.Annotations {
		if d.Annotations[i].BBox == nil {
			d.Annotations[i].BBox = []json.Number{}
		}
		if d.Annotations[i].Segmentation == nil {
			d.Annotations[i].Segmentation = []json.Number{}
		}
	}
}

// Area is a polygon area. It always encodes as a floating point literal:
// integral values get a ".0" suffix and magnitudes outside [1e-4, 1e16)
// use exponent notation.
type Area float64

// MarshalJSON implements json.Marshaler.
func (a Area) MarshalJSON() ([]byte, error) {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("area %v is not a finite number", f)
	}

	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return []byte(strconv.FormatFloat(f, 'e', -1, 64)), nil
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return []byte(s), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Area) UnmarshalJSON(data []byte) error {
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("area: %w", err)
	}
	*a = Area(f)
	return nil
}
