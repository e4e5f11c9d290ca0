package engine

import "math"

// Matrix2D represents a 2D affine transformation matrix.
// Layout: [a, b, c, d, e, f] representing:
// | a  c  e |
// | b  d  f |
// | 0  0  1 |
type Matrix2D [6]float64

// Identity returns the identity matrix.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// TranslateMatrix returns a translation matrix.
func TranslateMatrix(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

// ScaleMatrix returns a scale matrix.
func ScaleMatrix(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// Multiply returns m * other, which applies other first.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

// TransformPoint applies the matrix to a point.
func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// TransformVector applies the linear part of the matrix only.
func (m Matrix2D) TransformVector(dx, dy float64) (float64, float64) {
	return m[0]*dx + m[2]*dy, m[1]*dx + m[3]*dy
}

// Invert returns the inverse of the matrix, or Identity if not invertible.
func (m Matrix2D) Invert() Matrix2D {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 {
		return Identity()
	}

	invDet := 1.0 / det
	return Matrix2D{
		m[3] * invDet,
		-m[1] * invDet,
		-m[2] * invDet,
		m[0] * invDet,
		(m[2]*m[5] - m[3]*m[4]) * invDet,
		(m[1]*m[4] - m[0]*m[5]) * invDet,
	}
}

// Viewport maps scene units to display units. Zoom is the presentation scale
// factor; PanX/PanY are the display offset of the scene origin.
type Viewport struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

// DefaultViewport shows the scene at 1:1 with no pan.
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 || math.IsNaN(v.Zoom) || math.IsInf(v.Zoom, 0) {
		return 1
	}
	return v.Zoom
}

// Matrix returns the scene-to-display transform.
func (v Viewport) Matrix() Matrix2D {
	z := v.zoom()
	return TranslateMatrix(finite(v.PanX), finite(v.PanY)).Multiply(ScaleMatrix(z, z))
}

// ToScene converts a display point to scene units.
func (v Viewport) ToScene(x, y float64) (float64, float64) {
	return v.Matrix().Invert().TransformPoint(x, y)
}

// DeltaToScene converts a display-space pointer delta to scene units.
func (v Viewport) DeltaToScene(dx, dy float64) (float64, float64) {
	return v.Matrix().Invert().TransformVector(finite(dx), finite(dy))
}

// ToDisplay converts a scene rect to display units.
func (v Viewport) ToDisplay(r Rect) Rect {
	m := v.Matrix()
	x, y := m.TransformPoint(r.X, r.Y)
	w, h := m.TransformVector(r.Width, r.Height)
	return Rect{X: x, Y: y, Width: w, Height: h}
}
