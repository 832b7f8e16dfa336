package mot

import (
	"math"
)

// Rect is an axis-aligned bounding box in pixel coordinates with X1 < X2 and
// Y1 < Y2.
type Rect struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// NewRect creates a Rect from corner coordinates.
func NewRect(x1, y1, x2, y2 float64) Rect {
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns horizontal extent of the box.
func (r Rect) Width() float64 {
	return r.X2 - r.X1
}

// Height returns vertical extent of the box.
func (r Rect) Height() float64 {
	return r.Y2 - r.Y1
}

// Area returns box area.
func (r Rect) Area() float64 {
	return r.Width() * r.Height()
}

// Center returns the box center point.
func (r Rect) Center() Point {
	return Point{
		X: (r.X1 + r.X2) / 2.0,
		Y: (r.Y1 + r.Y2) / 2.0,
	}
}

// Contains reports whether the given point lies strictly inside the box.
func (r Rect) Contains(p Point) bool {
	return p.X > r.X1 && p.X < r.X2 && p.Y > r.Y1 && p.Y < r.Y2
}

// IsFinite reports whether every coordinate is a finite number.
func (r Rect) IsFinite() bool {
	for _, v := range [4]float64{r.X1, r.Y1, r.X2, r.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Point struct {
	X float64
	Y float64
}

// IoU calculates Intersection over Union between two boxes. Returns 0 when
// the boxes do not overlap.
func IoU(a, b Rect) float64 {
	xA := math.Max(a.X1, b.X1)
	yA := math.Max(a.Y1, b.Y1)
	xB := math.Min(a.X2, b.X2)
	yB := math.Min(a.Y2, b.Y2)

	interArea := math.Max(0, xB-xA) * math.Max(0, yB-yA)
	if interArea == 0 {
		return 0.0
	}
	return interArea / (a.Area() + b.Area() - interArea)
}

// boxToMeasurement converts a box to the [cx, cy, area, aspect] measurement
// vector observed by the motion model.
func boxToMeasurement(r Rect) [4]float64 {
	w := r.Width()
	h := r.Height()
	return [4]float64{
		r.X1 + w/2.0,
		r.Y1 + h/2.0,
		w * h,
		w / h,
	}
}

// measurementToBox converts [cx, cy, area, aspect] back to corner form.
// Width is recovered as sqrt(area*aspect) and height as area/width.
func measurementToBox(cx, cy, area, aspect float64) Rect {
	w := math.Sqrt(area * aspect)
	h := area / w
	return Rect{
		X1: cx - w/2.0,
		Y1: cy - h/2.0,
		X2: cx + w/2.0,
		Y2: cy + h/2.0,
	}
}
