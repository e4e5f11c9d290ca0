package engine

import "strings"

// Handle names the resize affordance being dragged.
type Handle string

const (
	HandleN  Handle = "n"
	HandleS  Handle = "s"
	HandleE  Handle = "e"
	HandleW  Handle = "w"
	HandleNE Handle = "ne"
	HandleNW Handle = "nw"
	HandleSE Handle = "se"
	HandleSW Handle = "sw"
)

// ParseHandle validates a handle name.
func ParseHandle(s string) (Handle, bool) {
	switch h := Handle(s); h {
	case HandleN, HandleS, HandleE, HandleW, HandleNE, HandleNW, HandleSE, HandleSW:
		return h, true
	}
	return "", false
}

func (h Handle) north() bool { return strings.ContainsRune(string(h), 'n') }
func (h Handle) south() bool { return strings.ContainsRune(string(h), 's') }
func (h Handle) east() bool  { return strings.ContainsRune(string(h), 'e') }
func (h Handle) west() bool  { return strings.ContainsRune(string(h), 'w') }

// Translate moves r by (dx, dy), snapping the resulting position. Size is kept.
func Translate(r Rect, dx, dy float64, g Grid) Rect {
	r.X = g.Snap(r.X + finite(dx))
	r.Y = g.Snap(r.Y + finite(dy))
	return r
}

// Move translates every start rect by the same delta. Each result is snapped
// from its own start position, never accumulated across calls.
func Move(starts []Rect, dx, dy float64, g Grid) []Rect {
	out := make([]Rect, len(starts))
	for i, r := range starts {
		out[i] = Translate(r, dx, dy, g)
	}
	return out
}

// ResizeAnchored resizes a single box from handle h. Only the edges named by
// the handle move; the others keep their start value exactly.
//
// A west or north edge snaps its own coordinate. An east or south edge snaps
// the extent measured from the opposite, anchored edge, so the resulting
// width or height lies on the grid. If the box would shrink below the grid's
// minimum size the moving edge is pushed back; the anchor never moves.
func ResizeAnchored(start Edges, h Handle, dx, dy float64, g Grid) Rect {
	dx, dy = finite(dx), finite(dy)
	minSize := g.MinSize()
	e := start

	switch {
	case h.west():
		e.L = g.Snap(start.L + dx)
		if e.R-e.L < minSize {
			e.L = e.R - minSize
		}
	case h.east():
		e.R = start.L + g.Snap(start.R-start.L+dx)
		if e.R-e.L < minSize {
			e.R = e.L + minSize
		}
	}

	switch {
	case h.north():
		e.T = g.Snap(start.T + dy)
		if e.B-e.T < minSize {
			e.T = e.B - minSize
		}
	case h.south():
		e.B = start.T + g.Snap(start.B-start.T+dy)
		if e.B-e.T < minSize {
			e.B = e.T + minSize
		}
	}

	return e.Rect()
}

// ResizeBox applies a handle drag to a group bounding box without snapping.
// Moving edges stop minSize short of their anchor.
func ResizeBox(box Rect, h Handle, dx, dy, minSize float64) Rect {
	dx, dy = finite(dx), finite(dy)
	e := box.Edges()

	switch {
	case h.west():
		e.L = min(e.L+dx, e.R-minSize)
	case h.east():
		e.R = max(e.R+dx, e.L+minSize)
	}
	switch {
	case h.north():
		e.T = min(e.T+dy, e.B-minSize)
	case h.south():
		e.B = max(e.B+dy, e.T+minSize)
	}

	return e.Rect()
}

// ScaleGroup maps every start rect from box from into box to, keeping each
// rect's position and size as the same fraction of the box. Results are
// snapped and sizes clamped to the grid minimum. An axis on which from has
// zero extent is left untouched.
func ScaleGroup(starts []Rect, from, to Rect, g Grid) []Rect {
	minSize := g.MinSize()
	out := make([]Rect, len(starts))
	for i, r := range starts {
		n := r
		if from.Width > 0 {
			relX := (r.X - from.X) / from.Width
			relW := r.Width / from.Width
			n.X = g.Snap(to.X + relX*to.Width)
			n.Width = max(g.Snap(relW*to.Width), minSize)
		}
		if from.Height > 0 {
			relY := (r.Y - from.Y) / from.Height
			relH := r.Height / from.Height
			n.Y = g.Snap(to.Y + relY*to.Height)
			n.Height = max(g.Snap(relH*to.Height), minSize)
		}
		out[i] = n
	}
	return out
}

// ResizeGroup resizes the shared bounding box of starts from handle h and
// scales every member proportionally. It returns the new box and the member
// rects in input order.
func ResizeGroup(starts []Rect, h Handle, dx, dy float64, g Grid) (Rect, []Rect) {
	from := BoundingBox(starts)
	to := ResizeBox(from, h, dx, dy, g.MinSize())
	return to, ScaleGroup(starts, from, to, g)
}
