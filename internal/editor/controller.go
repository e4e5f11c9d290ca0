package editor

import (
	"fmt"
	"log/slog"

	"github.com/inamate/stepcanvas/internal/command"
	"github.com/inamate/stepcanvas/internal/document"
	"github.com/inamate/stepcanvas/internal/engine"
	"github.com/inamate/stepcanvas/internal/history"
	"github.com/inamate/stepcanvas/internal/scene"
)

// Mode is the kind of direct manipulation a gesture performs.
type Mode string

const (
	ModeMove   Mode = "move"
	ModeResize Mode = "resize"
)

// gesture is the state captured at pointer-down. starts never changes
// during the gesture; every recomputation starts from it.
type gesture struct {
	mode    Mode
	handle  engine.Handle
	scene   *scene.Scene
	items   []*document.Item
	starts  []engine.Rect
	originX float64
	originY float64
}

// Gesturing reports whether a pointer gesture is live.
func (e *Editor) Gesturing() bool { return e.gesture != nil }

// BeginMove starts dragging the selection from display point (px, py). With
// an empty selection the topmost item under the pointer is selected and
// dragged.
func (e *Editor) BeginMove(px, py float64) error {
	if e.gesture != nil {
		return ErrGestureActive
	}
	items := e.active.Selection()
	if len(items) == 0 {
		hit := e.HitTest(px, py)
		if hit == nil {
			return ErrNothingSelected
		}
		e.active.Select(hit)
		items = []*document.Item{hit}
	}
	e.begin(ModeMove, "", items, px, py)
	return nil
}

// BeginResize starts resizing the selection from handle h. A single item is
// resized with its opposite edges anchored; several items are scaled as a
// group inside their shared bounding box.
func (e *Editor) BeginResize(h engine.Handle, px, py float64) error {
	if e.gesture != nil {
		return ErrGestureActive
	}
	if _, ok := engine.ParseHandle(string(h)); !ok {
		return fmt.Errorf("unknown resize handle %q", h)
	}
	items := e.active.Selection()
	if len(items) == 0 {
		return ErrNothingSelected
	}
	e.begin(ModeResize, h, items, px, py)
	return nil
}

func (e *Editor) begin(mode Mode, h engine.Handle, items []*document.Item, px, py float64) {
	starts := make([]engine.Rect, len(items))
	for i, it := range items {
		starts[i] = rectOf(it)
	}
	e.gesture = &gesture{
		mode:    mode,
		handle:  h,
		scene:   e.active,
		items:   items,
		starts:  starts,
		originX: px,
		originY: py,
	}
}

// PointerMove recomputes the live geometry for the pointer at display point
// (px, py). Items are updated in place for feedback; nothing reaches the
// history until EndGesture.
func (e *Editor) PointerMove(px, py float64) error {
	g := e.gesture
	if g == nil {
		return ErrNoGesture
	}
	dx, dy := e.viewport.DeltaToScene(px-g.originX, py-g.originY)

	var next []engine.Rect
	switch {
	case g.mode == ModeMove:
		next = engine.Move(g.starts, dx, dy, e.grid)
	case len(g.starts) == 1:
		next = []engine.Rect{engine.ResizeAnchored(g.starts[0].Edges(), g.handle, dx, dy, e.grid)}
	default:
		_, next = engine.ResizeGroup(g.starts, g.handle, dx, dy, e.grid)
	}

	for i, it := range g.items {
		setRect(it, next[i])
	}
	for _, it := range g.items {
		e.emitPreview(g.scene, it)
	}
	g.scene.NotifySelection()
	return nil
}

// EndGesture commits the gesture as one batch command. A gesture that left
// every item where it started commits nothing and returns a nil command.
func (e *Editor) EndGesture() (history.Command, error) {
	g := e.gesture
	if g == nil {
		return nil, ErrNoGesture
	}
	e.gesture = nil

	before := make([]command.Geometry, len(g.items))
	after := make([]command.Geometry, len(g.items))
	changed := false
	for i, it := range g.items {
		if rectOf(it) != g.starts[i] {
			changed = true
		}
		after[i] = snapshotOf(g.mode, it)
		setRect(it, g.starts[i])
		before[i] = snapshotOf(g.mode, it)
	}
	if !changed {
		return nil, nil
	}

	cmd, err := command.NewBatchGeometry(before, after)
	if err != nil {
		return nil, fmt.Errorf("commit %s gesture: %w", g.mode, err)
	}
	e.history.Execute(cmd)
	slog.Debug("gesture committed", "mode", g.mode, "handle", g.handle, "items", len(g.items), "cursor", e.history.Cursor())
	return cmd, nil
}

// CancelGesture abandons a live gesture and restores every item to its
// pre-gesture geometry. No command is recorded. It is a no-op when idle.
func (e *Editor) CancelGesture() {
	g := e.gesture
	if g == nil {
		return
	}
	e.gesture = nil
	for i, it := range g.items {
		setRect(it, g.starts[i])
		e.emitPreview(g.scene, it)
	}
	g.scene.NotifySelection()
	slog.Debug("gesture cancelled", "mode", g.mode, "items", len(g.items))
}

func snapshotOf(mode Mode, it *document.Item) command.Geometry {
	if mode == ModeMove {
		return command.PositionOf(it)
	}
	return command.BoundsOf(it)
}
