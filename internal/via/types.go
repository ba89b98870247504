// Package via reads region annotations exported by the VGG Image Annotator.
//
// The decoder keeps the key order of the annotation object and of every
// region mapping, since image and annotation ids downstream are assigned in
// that order. Coordinates are kept as json.Number so integer and float
// literals survive unchanged into the output.
package via

import "encoding/json"

// Project is the decoded annotation file: one entry per top-level key.
type Project struct {
	Entries []Entry
}

// Entry describes one annotated image.
type Entry struct {
	// Key is the top-level key, by convention the file name followed by
	// the file size in bytes.
	Key      string
	Filename string
	Regions  []Region
}

// Region is one polygon with an optional label.
type Region struct {
	Key string
	// Label is nil when region_attributes carries no "label".
	Label *string
	// InvalidLabel is the JSON literal of a null, number or boolean label.
	// Such a region matches no category.
	InvalidLabel string
	AllPointsX   []json.Number
	AllPointsY   []json.Number
}

// Xs returns the x coordinates as floats. The literals were validated on
// decode so conversion does not fail.
func (r *Region) Xs() []float64 {
	return toFloats(r.AllPointsX)
}

// Ys returns the y coordinates as floats.
func (r *Region) Ys() []float64 {
	return toFloats(r.AllPointsY)
}

// LabelOr returns the label, or fallback when the region is unlabeled.
func (r *Region) LabelOr(fallback string) string {
	if r.Label == nil {
		return fallback
	}
	return *r.Label
}

func toFloats(nums []json.Number) []float64 {
	out := make([]float64, len(nums))
	for i, n := range nums {
		out[i], _ = n.Float64()
	}
	return out
}
