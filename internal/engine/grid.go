package engine

import "math"

// AbsoluteMinSize is the minimum item extent when no grid is configured.
const AbsoluteMinSize = 5

// Grid quantizes coordinates to multiples of Size. A zero or negative Size
// disables snapping.
type Grid struct {
	Size float64
}

// Snap rounds v to the nearest grid line.
func (g Grid) Snap(v float64) float64 {
	if g.Size <= 0 {
		return v
	}
	return math.Round(v/g.Size) * g.Size
}

// MinSize is the smallest width or height a resize may produce.
func (g Grid) MinSize() float64 {
	return max(g.Size, AbsoluteMinSize)
}
