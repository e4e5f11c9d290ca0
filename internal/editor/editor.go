// Package editor ties a document to its live scenes, the command history and
// the pointer-gesture controller. One Editor is one editing session; loading
// another project means constructing a new Editor.
package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/inamate/stepcanvas/internal/command"
	"github.com/inamate/stepcanvas/internal/document"
	"github.com/inamate/stepcanvas/internal/engine"
	"github.com/inamate/stepcanvas/internal/history"
	"github.com/inamate/stepcanvas/internal/scene"
)

var (
	ErrUnknownStep     = errors.New("unknown step")
	ErrUnknownItem     = errors.New("unknown item")
	ErrNothingSelected = errors.New("nothing selected")
	ErrGestureActive   = errors.New("a gesture is already in progress")
	ErrNoGesture       = errors.New("no gesture in progress")
	ErrTooFewItems     = errors.New("at least two items are required")
	ErrUnknownAlign    = errors.New("unknown align mode")
)

// Preview is the payload of a geometry-preview event: an item's bounds after
// an uncommitted recomputation.
type Preview struct {
	StepID string      `json:"stepId"`
	ItemID string      `json:"itemId"`
	Bounds engine.Rect `json:"bounds"`
}

type previewHandler struct {
	id uint32
	fn func(Preview)
}

type selectionHandler struct {
	id uint32
	fn func(stepID string, sel []*document.Item)
}

// Editor is the editing-session context. It is not safe for concurrent use;
// callers serialize access.
type Editor struct {
	doc     *document.Document
	scenes  map[string]*scene.Scene
	active  *scene.Scene
	history *history.History

	grid     engine.Grid
	viewport engine.Viewport
	gesture  *gesture

	previewHandlers   []previewHandler
	selectionHandlers []selectionHandler
	nextID            uint32
}

// New creates an editor for doc with a fresh history. The first step is active.
func New(doc *document.Document, grid engine.Grid) *Editor {
	e := &Editor{
		doc:      doc,
		scenes:   make(map[string]*scene.Scene, len(doc.Steps)),
		history:  history.New(),
		grid:     grid,
		viewport: engine.DefaultViewport(),
	}
	for _, step := range doc.Steps {
		sc := scene.New(step)
		stepID := step.ID
		sc.OnSelectionChanged(func(sel []*document.Item) {
			for _, h := range e.selectionHandlers {
				h.fn(stepID, sel)
			}
		})
		e.scenes[step.ID] = sc
		if e.active == nil {
			e.active = sc
		}
	}
	return e
}

// --- Accessors ---

func (e *Editor) Document() *document.Document { return e.doc }
func (e *Editor) History() *history.History    { return e.history }
func (e *Editor) Scene() *scene.Scene          { return e.active }
func (e *Editor) Grid() engine.Grid            { return e.grid }
func (e *Editor) Viewport() engine.Viewport    { return e.viewport }

// SetGrid changes the snap grid. It takes effect from the next gesture.
func (e *Editor) SetGrid(g engine.Grid) { e.grid = g }

// SetViewport changes zoom and pan. A live gesture is cancelled first since
// its origin was captured in the old display space.
func (e *Editor) SetViewport(v engine.Viewport) {
	e.CancelGesture()
	e.viewport = v
}

// MarshalDocument serializes the document in its persistence shape.
func (e *Editor) MarshalDocument() ([]byte, error) {
	return json.Marshal(e.doc)
}

// --- Events ---

// Subscription allows removing an editor-level callback.
type Subscription struct {
	remove func()
}

// Remove unregisters the callback.
func (s Subscription) Remove() {
	if s.remove != nil {
		s.remove()
	}
}

// OnPreview registers fn for geometry-preview events. They are purely
// observational and never signal a commit.
func (e *Editor) OnPreview(fn func(Preview)) Subscription {
	e.nextID++
	id := e.nextID
	e.previewHandlers = append(e.previewHandlers, previewHandler{id: id, fn: fn})
	return Subscription{remove: func() {
		e.previewHandlers = slices.DeleteFunc(slices.Clone(e.previewHandlers), func(h previewHandler) bool { return h.id == id })
	}}
}

// OnSelectionChanged registers fn for selection-changed events of any step.
func (e *Editor) OnSelectionChanged(fn func(stepID string, sel []*document.Item)) Subscription {
	e.nextID++
	id := e.nextID
	e.selectionHandlers = append(e.selectionHandlers, selectionHandler{id: id, fn: fn})
	return Subscription{remove: func() {
		e.selectionHandlers = slices.DeleteFunc(slices.Clone(e.selectionHandlers), func(h selectionHandler) bool { return h.id == id })
	}}
}

func (e *Editor) emitPreview(sc *scene.Scene, item *document.Item) {
	p := Preview{StepID: sc.ID(), ItemID: item.ID, Bounds: rectOf(item)}
	for _, h := range e.previewHandlers {
		h.fn(p)
	}
}

// --- Steps and selection ---

// SelectStep makes another step the active one.
func (e *Editor) SelectStep(stepID string) error {
	sc, ok := e.scenes[stepID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStep, stepID)
	}
	e.CancelGesture()
	e.active = sc
	return nil
}

// Select replaces the active step's selection with the given item IDs.
func (e *Editor) Select(ids ...string) error {
	items, err := e.lookup(ids)
	if err != nil {
		return err
	}
	e.active.Select(items...)
	return nil
}

// HitTest returns the topmost item of the active step under a display
// point, or nil.
func (e *Editor) HitTest(px, py float64) *document.Item {
	x, y := e.viewport.ToScene(px, py)
	items := e.active.Items()
	bounds := make([]engine.Rect, len(items))
	z := make([]float64, len(items))
	for i, it := range items {
		bounds[i] = rectOf(it)
		z[i] = it.Z()
	}
	if i := engine.HitTest(bounds, z, x, y); i >= 0 {
		return items[i]
	}
	return nil
}

func (e *Editor) lookup(ids []string) ([]*document.Item, error) {
	items := make([]*document.Item, 0, len(ids))
	for _, id := range ids {
		it := e.active.Find(id)
		if it == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownItem, id)
		}
		items = append(items, it)
	}
	return items, nil
}

// targets resolves ids, falling back to the selection when ids is empty.
func (e *Editor) targets(ids []string) ([]*document.Item, error) {
	if len(ids) == 0 {
		sel := e.active.Selection()
		if len(sel) == 0 {
			return nil, ErrNothingSelected
		}
		return sel, nil
	}
	return e.lookup(ids)
}

// --- Item commands ---

// AddItem adds item to the active step on top of the existing items and
// selects it.
func (e *Editor) AddItem(item *document.Item) history.Command {
	e.CancelGesture()
	if item.Props == nil {
		item.Props = map[string]any{}
	}
	if _, ok := item.Props[document.PropZ]; !ok {
		top := -1.0
		for _, it := range e.active.Items() {
			top = max(top, it.Z())
		}
		item.Props[document.PropZ] = top + 1
	}
	cmd := command.NewAddItem(e.active, item)
	e.execute(cmd)
	e.active.Select(item)
	return cmd
}

// RemoveItems deletes the given items, or the selection when ids is empty.
func (e *Editor) RemoveItems(ids ...string) (history.Command, error) {
	e.CancelGesture()
	items, err := e.targets(ids)
	if err != nil {
		return nil, err
	}
	cmd := command.NewRemoveItems(e.active, items)
	e.execute(cmd)
	return cmd, nil
}

// UpdateProperty sets a props key on the given items, or on the selection
// when ids is empty.
func (e *Editor) UpdateProperty(key string, value any, ids ...string) (history.Command, error) {
	e.CancelGesture()
	items, err := e.targets(ids)
	if err != nil {
		return nil, err
	}
	cmd := command.NewUpdateProperty(items, key, value)
	e.execute(cmd)
	return cmd, nil
}

// --- History ---

// Undo cancels any live gesture, then reverts the last command.
func (e *Editor) Undo() bool {
	e.CancelGesture()
	return e.history.Undo()
}

// Redo cancels any live gesture, then re-applies the last undone command.
func (e *Editor) Redo() bool {
	e.CancelGesture()
	return e.history.Redo()
}

// JumpTo cancels any live gesture, then replays history to index.
func (e *Editor) JumpTo(index int) int {
	e.CancelGesture()
	return e.history.JumpTo(index)
}

// Timeline returns display summaries for every command and the cursor.
func (e *Editor) Timeline() ([]command.Summary, int) {
	tl := e.history.Timeline()
	out := make([]command.Summary, len(tl.List))
	for i, c := range tl.List {
		out[i] = command.Summarize(c)
	}
	return out, tl.Cursor
}

func (e *Editor) execute(cmd history.Command) {
	e.history.Execute(cmd)
	slog.Debug("command executed", "kind", cmd.Kind(), "label", cmd.Describe(), "cursor", e.history.Cursor())
}

func rectOf(it *document.Item) engine.Rect {
	return engine.Rect{X: it.X, Y: it.Y, Width: it.W, Height: it.H}
}

func setRect(it *document.Item, r engine.Rect) {
	it.X, it.Y, it.W, it.H = r.X, r.Y, r.Width, r.Height
}
