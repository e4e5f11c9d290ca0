package engine

// HitTest returns the index of the topmost rect containing (x, y), or -1.
// Higher z wins; for equal z the later index is on top, matching paint order.
func HitTest(bounds []Rect, z []float64, x, y float64) int {
	hit := -1
	for i, r := range bounds {
		if !r.Contains(x, y) {
			continue
		}
		if hit == -1 || z[i] >= z[hit] {
			hit = i
		}
	}
	return hit
}
