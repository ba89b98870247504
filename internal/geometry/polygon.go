// Package geometry computes the bounding box, area and flat outline of
// polygon regions.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Extent holds vertex indices of the extremal coordinates of a polygon.
// Callers that keep the original coordinate literals use the indices to
// pick them without reformatting the numbers.
type Extent struct {
	MinX, MinY int
	MaxX, MaxY int
}

// Polygon is an ordered vertex list given as parallel coordinate slices.
type Polygon struct {
	X []float64
	Y []float64
}

// NewPolygon pairs xs and ys by index. Extra coordinates on the longer
// slice are ignored.
func NewPolygon(xs, ys []float64) Polygon {
	n := min(len(xs), len(ys))
	return Polygon{X: xs[:n], Y: ys[:n]}
}

// Len returns the vertex count.
func (p Polygon) Len() int {
	return min(len(p.X), len(p.Y))
}

// Extent returns the indices of the min and max vertex per axis. The first
// occurrence wins on ties. ok is false for a polygon without vertices.
func (p Polygon) Extent() (ext Extent, ok bool) {
	if p.Len() == 0 {
		return Extent{}, false
	}

	return Extent{
		MinX: floats.MinIdx(p.X),
		MinY: floats.MinIdx(p.Y),
		MaxX: floats.MaxIdx(p.X),
		MaxY: floats.MaxIdx(p.Y),
	}, true
}

// Bounds returns [min_x, min_y, max_x, max_y]. An empty polygon has
// all-zero bounds.
func (p Polygon) Bounds() [4]float64 {
	ext, ok := p.Extent()
	if !ok {
		return [4]float64{}
	}
	return [4]float64{p.X[ext.MinX], p.Y[ext.MinY], p.X[ext.MaxX], p.Y[ext.MaxY]}
}

// Area returns the unsigned shoelace area. The ring is closed implicitly
// and x is taken relative to the first vertex to limit cancellation on
// large coordinates. Fewer than three vertices give zero.
func (p Polygon) Area() float64 {
	n := p.Len()
	if n < 3 {
		return 0
	}

	x0 := p.X[0]
	var sum float64
	for i := 1; i < n; i++ {
		next := (i + 1) % n
		sum += (p.X[i] - x0) * (p.Y[i-1] - p.Y[next])
	}

	return math.Abs(sum / 2)
}

// Flatten interleaves xs and ys as [x1, y1, x2, y2, ...]. The result is
// never nil.
func Flatten[T any](xs, ys []T) []T {
	n := min(len(xs), len(ys))
	out := make([]T, 0, 2*n)
	for i := range n {
		out = append(out, xs[i], ys[i])
	}
	return out
}
