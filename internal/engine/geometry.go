package engine

import "math"

// Rect is an axis-aligned box in scene units.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}

// Edges is a box expressed by its four sides. Resize math works on edges so
// that the anchored side is never recomputed from a width.
type Edges struct {
	L, T, R, B float64
}

// Edges converts the rect to its sides.
func (r Rect) Edges() Edges {
	return Edges{L: r.X, T: r.Y, R: r.X + r.Width, B: r.Y + r.Height}
}

// Rect converts the sides back to a position and size.
func (e Edges) Rect() Rect {
	return Rect{X: e.L, Y: e.T, Width: e.R - e.L, Height: e.B - e.T}
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// BoundingBox returns the smallest rect containing every rect in rs.
// Zero-size rects still contribute their position. An empty input yields Rect{}.
func BoundingBox(rs []Rect) Rect {
	if len(rs) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, r := range rs {
		minX = min(minX, r.X)
		minY = min(minY, r.Y)
		maxX = max(maxX, r.X+r.Width)
		maxY = max(maxY, r.Y+r.Height)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// finite maps NaN and ±Inf to 0 so a bad pointer sample cannot poison geometry.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
