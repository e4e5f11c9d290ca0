package editor

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/inamate/stepcanvas/internal/command"
	"github.com/inamate/stepcanvas/internal/engine"
	"github.com/inamate/stepcanvas/internal/history"
)

// AlignMode selects an alignment or distribution rule.
type AlignMode string

const (
	AlignLeft              AlignMode = "left"
	AlignRight             AlignMode = "right"
	AlignCenter            AlignMode = "center"
	AlignTop               AlignMode = "top"
	AlignBottom            AlignMode = "bottom"
	AlignMiddle            AlignMode = "middle"
	DistributeHorizontally AlignMode = "distribute-horizontal"
	DistributeVertically   AlignMode = "distribute-vertical"
)

// Arrange computes target rects for at least two rects. Sizes never change.
// Distribution keeps the outermost rects in place and makes the gaps
// between neighbours equal.
func Arrange(rects []engine.Rect, mode AlignMode) ([]engine.Rect, error) {
	if len(rects) < 2 {
		return nil, ErrTooFewItems
	}
	n := len(rects)
	xs, ys := make([]float64, n), make([]float64, n)
	rights, bottoms := make([]float64, n), make([]float64, n)
	for i, r := range rects {
		xs[i], ys[i] = r.X, r.Y
		rights[i], bottoms[i] = r.X+r.Width, r.Y+r.Height
	}

	out := slices.Clone(rects)
	switch mode {
	case AlignLeft:
		left := floats.Min(xs)
		for i := range out {
			out[i].X = left
		}
	case AlignRight:
		right := floats.Max(rights)
		for i := range out {
			out[i].X = right - out[i].Width
		}
	case AlignCenter:
		cx := (floats.Min(xs) + floats.Max(rights)) / 2
		for i := range out {
			out[i].X = cx - out[i].Width/2
		}
	case AlignTop:
		top := floats.Min(ys)
		for i := range out {
			out[i].Y = top
		}
	case AlignBottom:
		bottom := floats.Max(bottoms)
		for i := range out {
			out[i].Y = bottom - out[i].Height
		}
	case AlignMiddle:
		cy := (floats.Min(ys) + floats.Max(bottoms)) / 2
		for i := range out {
			out[i].Y = cy - out[i].Height/2
		}
	case DistributeHorizontally:
		distribute(out, xs, rights,
			func(r engine.Rect) float64 { return r.Width },
			func(r *engine.Rect, v float64) { r.X = v })
	case DistributeVertically:
		distribute(out, ys, bottoms,
			func(r engine.Rect) float64 { return r.Height },
			func(r *engine.Rect, v float64) { r.Y = v })
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlign, mode)
	}
	return out, nil
}

// distribute spaces rects evenly along one axis, ordered by their start
// coordinate. starts and ends are the rects' extents on that axis.
func distribute(out []engine.Rect, starts, ends []float64, size func(engine.Rect) float64, set func(*engine.Rect, float64)) {
	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case starts[a] < starts[b]:
			return -1
		case starts[a] > starts[b]:
			return 1
		}
		return 0
	})

	sizes := make([]float64, len(out))
	for i, r := range out {
		sizes[i] = size(r)
	}
	span := floats.Max(ends) - floats.Min(starts)
	gap := (span - floats.Sum(sizes)) / float64(len(out)-1)

	pos := starts[order[0]]
	for _, idx := range order {
		set(&out[idx], pos)
		pos += sizes[idx] + gap
	}
}

// Align arranges the selection and commits the result as one batch command.
// It returns a nil command when nothing would move.
func (e *Editor) Align(mode AlignMode) (history.Command, error) {
	e.CancelGesture()
	items := e.active.Selection()
	if len(items) < 2 {
		return nil, ErrTooFewItems
	}

	rects := make([]engine.Rect, len(items))
	for i, it := range items {
		rects[i] = rectOf(it)
	}
	targets, err := Arrange(rects, mode)
	if err != nil {
		return nil, err
	}

	before := make([]command.Geometry, len(items))
	after := make([]command.Geometry, len(items))
	changed := false
	for i, it := range items {
		before[i] = command.PositionOf(it)
		after[i] = command.Geometry{Item: it, X: targets[i].X, Y: targets[i].Y}
		if after[i] != before[i] {
			changed = true
		}
	}
	if !changed {
		return nil, nil
	}

	cmd, err := command.NewBatchGeometry(before, after)
	if err != nil {
		return nil, fmt.Errorf("align %s: %w", mode, err)
	}
	e.execute(cmd)
	return cmd, nil
}
