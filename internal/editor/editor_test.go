package editor

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/inamate/stepcanvas/internal/command"
	"github.com/inamate/stepcanvas/internal/document"
	"github.com/inamate/stepcanvas/internal/engine"
)

const epsilon = 1e-9

func assertRect(t *testing.T, name string, it *document.Item, want engine.Rect) {
	t.Helper()
	got := rectOf(it)
	if math.Abs(got.X-want.X) > epsilon || math.Abs(got.Y-want.Y) > epsilon ||
		math.Abs(got.Width-want.Width) > epsilon || math.Abs(got.Height-want.Height) > epsilon {
		t.Errorf("%s = %+v, want %+v", name, got, want)
	}
}

// newEditor builds a one-step document holding one item per rect.
func newEditor(grid float64, rects ...engine.Rect) (*Editor, []*document.Item) {
	doc := document.NewEmptyDocument("proj_test", "Test", "step_one")
	items := make([]*document.Item, len(rects))
	for i, r := range rects {
		items[i] = document.NewItem(document.ItemTypeShape, r.X, r.Y, r.Width, r.Height)
		items[i].Props[document.PropZ] = float64(i)
		doc.Steps[0].Items = append(doc.Steps[0].Items, items[i])
	}
	return New(doc, engine.Grid{Size: grid}), items
}

func TestResizeScenarioAndUndo(t *testing.T) {
	ed, items := newEditor(16, engine.Rect{X: 100, Y: 100, Width: 180, Height: 40})
	ed.Scene().Select(items[0])

	if err := ed.BeginResize(engine.HandleSE, 500, 500); err != nil {
		t.Fatalf("BeginResize: %v", err)
	}
	if err := ed.PointerMove(525, 509); err != nil {
		t.Fatalf("PointerMove: %v", err)
	}
	cmd, err := ed.EndGesture()
	if err != nil || cmd == nil {
		t.Fatalf("EndGesture = %v, %v", cmd, err)
	}
	assertRect(t, "resized", items[0], engine.Rect{X: 100, Y: 100, Width: 208, Height: 48})
	if got := cmd.Describe(); got != "Resize shape" {
		t.Errorf("label = %q", got)
	}

	ed.Undo()
	assertRect(t, "undone", items[0], engine.Rect{X: 100, Y: 100, Width: 180, Height: 40})
	ed.Redo()
	assertRect(t, "redone", items[0], engine.Rect{X: 100, Y: 100, Width: 208, Height: 48})
}

func TestLiveUpdatesStayOutOfHistory(t *testing.T) {
	ed, items := newEditor(0, engine.Rect{X: 0, Y: 0, Width: 50, Height: 50})
	ed.Scene().Select(items[0])

	if err := ed.BeginMove(10, 10); err != nil {
		t.Fatalf("BeginMove: %v", err)
	}
	for i := 1; i <= 5; i++ {
		if err := ed.PointerMove(10+float64(i*10), 10); err != nil {
			t.Fatalf("PointerMove: %v", err)
		}
		if ed.History().Len() != 0 {
			t.Fatalf("tick %d touched history", i)
		}
	}
	assertRect(t, "live", items[0], engine.Rect{X: 50, Y: 0, Width: 50, Height: 50})

	if _, err := ed.EndGesture(); err != nil {
		t.Fatalf("EndGesture: %v", err)
	}
	if ed.History().Len() != 1 {
		t.Errorf("history len = %d, want 1", ed.History().Len())
	}
}

func TestCancelGestureRestoresWithoutCommand(t *testing.T) {
	ed, items := newEditor(8,
		engine.Rect{X: 0, Y: 0, Width: 40, Height: 40},
		engine.Rect{X: 80, Y: 0, Width: 40, Height: 40},
	)
	ed.Scene().Select(items...)

	var previews []Preview
	ed.OnPreview(func(p Preview) { previews = append(previews, p) })

	if err := ed.BeginResize(engine.HandleE, 0, 0); err != nil {
		t.Fatalf("BeginResize: %v", err)
	}
	ed.PointerMove(120, 0)
	ed.CancelGesture()

	assertRect(t, "a", items[0], engine.Rect{X: 0, Y: 0, Width: 40, Height: 40})
	assertRect(t, "b", items[1], engine.Rect{X: 80, Y: 0, Width: 40, Height: 40})
	if ed.History().Len() != 0 {
		t.Error("cancel recorded a command")
	}
	if ed.Gesturing() {
		t.Error("gesture still live after cancel")
	}
	last := previews[len(previews)-1]
	if last.ItemID != items[1].ID || last.Bounds != rectOf(items[1]) {
		t.Errorf("last preview = %+v", last)
	}
	if _, err := ed.EndGesture(); !errors.Is(err, ErrNoGesture) {
		t.Errorf("EndGesture after cancel err = %v", err)
	}
}

func TestMoveUsesViewportScale(t *testing.T) {
	ed, items := newEditor(0,
		engine.Rect{X: 10, Y: 10, Width: 20, Height: 20},
		engine.Rect{X: 100, Y: 50, Width: 20, Height: 20},
	)
	ed.SetViewport(engine.Viewport{Zoom: 2, PanX: 300, PanY: 100})
	ed.Scene().Select(items...)

	ed.BeginMove(0, 0)
	ed.PointerMove(40, -20)
	cmd, err := ed.EndGesture()
	if err != nil {
		t.Fatalf("EndGesture: %v", err)
	}

	assertRect(t, "a", items[0], engine.Rect{X: 30, Y: 0, Width: 20, Height: 20})
	assertRect(t, "b", items[1], engine.Rect{X: 120, Y: 40, Width: 20, Height: 20})
	if got := cmd.(*command.BatchGeometry).Op(); got != command.OpMove {
		t.Errorf("op = %s", got)
	}
}

func TestBeginMoveHitTestsWhenNothingSelected(t *testing.T) {
	ed, items := newEditor(0,
		engine.Rect{X: 0, Y: 0, Width: 100, Height: 100},
		engine.Rect{X: 50, Y: 50, Width: 100, Height: 100},
	)

	if err := ed.BeginMove(75, 75); err != nil {
		t.Fatalf("BeginMove: %v", err)
	}
	if sel := ed.Scene().Selection(); len(sel) != 1 || sel[0] != items[1] {
		t.Fatalf("hit test selected %v", ed.Scene().SelectionIDs())
	}
	ed.CancelGesture()

	ed.Scene().ClearSelection()
	if err := ed.BeginMove(900, 900); !errors.Is(err, ErrNothingSelected) {
		t.Errorf("BeginMove on empty space err = %v", err)
	}
}

func TestGroupResizeGesture(t *testing.T) {
	ed, items := newEditor(0,
		engine.Rect{X: 0, Y: 0, Width: 50, Height: 50},
		engine.Rect{X: 50, Y: 0, Width: 50, Height: 50},
	)
	ed.Scene().Select(items...)

	ed.BeginResize(engine.HandleE, 100, 25)
	ed.PointerMove(150, 25)
	if _, err := ed.EndGesture(); err != nil {
		t.Fatalf("EndGesture: %v", err)
	}
	assertRect(t, "a", items[0], engine.Rect{X: 0, Y: 0, Width: 75, Height: 50})
	assertRect(t, "b", items[1], engine.Rect{X: 75, Y: 0, Width: 75, Height: 50})

	ed.Undo()
	assertRect(t, "a undone", items[0], engine.Rect{X: 0, Y: 0, Width: 50, Height: 50})
	assertRect(t, "b undone", items[1], engine.Rect{X: 50, Y: 0, Width: 50, Height: 50})
}

func TestSelectionChangedOncePerTick(t *testing.T) {
	ed, items := newEditor(0,
		engine.Rect{X: 0, Y: 0, Width: 50, Height: 50},
		engine.Rect{X: 60, Y: 0, Width: 50, Height: 50},
	)
	ed.Scene().Select(items...)

	events := 0
	previews := 0
	ed.OnSelectionChanged(func(string, []*document.Item) { events++ })
	ed.OnPreview(func(Preview) { previews++ })

	ed.BeginMove(0, 0)
	ed.PointerMove(5, 5)
	ed.PointerMove(10, 10)
	ed.PointerMove(15, 15)

	if events != 3 {
		t.Errorf("selection-changed fired %d times for 3 ticks", events)
	}
	if previews != 6 {
		t.Errorf("previews = %d, want one per item per tick", previews)
	}
}

func TestCancelGestureAnnouncesRestoredSelection(t *testing.T) {
	ed, items := newEditor(0, engine.Rect{X: 0, Y: 0, Width: 50, Height: 50})
	ed.Scene().Select(items[0])

	var seen []engine.Rect
	ed.OnSelectionChanged(func(_ string, sel []*document.Item) {
		seen = append(seen, rectOf(sel[0]))
	})

	ed.BeginMove(0, 0)
	ed.PointerMove(20, 30)
	ed.CancelGesture()

	want := []engine.Rect{
		{X: 20, Y: 30, Width: 50, Height: 50},
		{X: 0, Y: 0, Width: 50, Height: 50},
	}
	if !slices.Equal(seen, want) {
		t.Errorf("selection events saw %+v, want %+v", seen, want)
	}
}

func TestPreviewHandlerRemovingItself(t *testing.T) {
	ed, items := newEditor(0,
		engine.Rect{X: 0, Y: 0, Width: 50, Height: 50},
		engine.Rect{X: 60, Y: 0, Width: 50, Height: 50},
	)
	ed.Scene().Select(items...)

	var once, rest int
	var sub Subscription
	sub = ed.OnPreview(func(Preview) {
		once++
		sub.Remove()
	})
	ed.OnPreview(func(Preview) { rest++ })

	var selSub Subscription
	selSub = ed.OnSelectionChanged(func(string, []*document.Item) { selSub.Remove() })

	ed.BeginMove(0, 0)
	ed.PointerMove(5, 0)
	ed.PointerMove(10, 0)

	if once != 1 {
		t.Errorf("self-removing handler calls = %d, want 1", once)
	}
	if rest != 4 {
		t.Errorf("remaining handler calls = %d, want 4", rest)
	}
}

func TestGestureStateErrors(t *testing.T) {
	ed, items := newEditor(0, engine.Rect{X: 0, Y: 0, Width: 50, Height: 50})

	if err := ed.PointerMove(1, 1); !errors.Is(err, ErrNoGesture) {
		t.Errorf("PointerMove idle err = %v", err)
	}
	if err := ed.BeginResize(engine.HandleN, 0, 0); !errors.Is(err, ErrNothingSelected) {
		t.Errorf("BeginResize empty err = %v", err)
	}

	ed.Scene().Select(items[0])
	if err := ed.BeginResize("q", 0, 0); err == nil {
		t.Error("BeginResize accepted unknown handle")
	}
	ed.BeginMove(0, 0)
	if err := ed.BeginMove(0, 0); !errors.Is(err, ErrGestureActive) {
		t.Errorf("second BeginMove err = %v", err)
	}
}

func TestEndWithoutMovementCommitsNothing(t *testing.T) {
	ed, items := newEditor(16, engine.Rect{X: 32, Y: 32, Width: 64, Height: 64})
	ed.Scene().Select(items[0])

	ed.BeginMove(0, 0)
	ed.PointerMove(3, 2) // snaps back onto the start position
	cmd, err := ed.EndGesture()
	if err != nil || cmd != nil {
		t.Errorf("EndGesture = %v, %v; want nil, nil", cmd, err)
	}
	if ed.History().Len() != 0 {
		t.Error("no-op gesture recorded a command")
	}
}

func TestUndoCancelsLiveGesture(t *testing.T) {
	ed, items := newEditor(0, engine.Rect{X: 0, Y: 0, Width: 50, Height: 50})
	ed.Scene().Select(items[0])

	ed.BeginMove(0, 0)
	ed.PointerMove(30, 0)
	ed.EndGesture()

	ed.BeginMove(0, 0)
	ed.PointerMove(0, 40)
	ed.Undo()

	assertRect(t, "after undo", items[0], engine.Rect{X: 0, Y: 0, Width: 50, Height: 50})
	if ed.Gesturing() {
		t.Error("gesture survived undo")
	}
}

func TestItemCommandsAndTimeline(t *testing.T) {
	ed, items := newEditor(0, engine.Rect{X: 0, Y: 0, Width: 50, Height: 50})

	added := document.NewItem(document.ItemTypeText, 10, 10, 100, 20)
	ed.AddItem(added)
	if added.Z() != 1 {
		t.Errorf("new item z = %v, want 1", added.Z())
	}
	if sel := ed.Scene().Selection(); len(sel) != 1 || sel[0] != added {
		t.Error("added item not selected")
	}

	if _, err := ed.UpdateProperty("text", "Hello"); err != nil {
		t.Fatalf("UpdateProperty: %v", err)
	}
	if _, err := ed.RemoveItems(items[0].ID); err != nil {
		t.Fatalf("RemoveItems: %v", err)
	}
	if _, err := ed.RemoveItems("item_missing"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("RemoveItems(missing) err = %v", err)
	}

	ed.Undo()
	list, cursor := ed.Timeline()
	kinds := make([]string, len(list))
	for i, s := range list {
		kinds[i] = string(s.Kind)
	}
	want := []string{"add-item", "update-property", "remove-items"}
	if !slices.Equal(kinds, want) || cursor != 1 {
		t.Errorf("timeline = %v cursor %d", kinds, cursor)
	}

	if got := ed.JumpTo(-1); got != -1 {
		t.Errorf("JumpTo(-1) = %d", got)
	}
	if ed.Scene().Contains(added) {
		t.Error("full rewind left added item live")
	}
	if _, ok := added.Props["text"]; ok {
		t.Error("full rewind left text property")
	}
}

func TestHistorySpansSteps(t *testing.T) {
	doc := document.NewSampleDocument("proj_sample")
	ed := New(doc, engine.Grid{})
	intro, outro := doc.Steps[0], doc.Steps[1]

	title := intro.Items[0]
	ed.Scene().Select(title)
	ed.BeginMove(0, 0)
	ed.PointerMove(10, 0)
	ed.EndGesture()

	if err := ed.SelectStep(outro.ID); err != nil {
		t.Fatalf("SelectStep: %v", err)
	}
	if err := ed.SelectStep("step_missing"); !errors.Is(err, ErrUnknownStep) {
		t.Errorf("SelectStep(missing) err = %v", err)
	}

	ed.Undo()
	if title.X != 96 {
		t.Errorf("undo on another step left title at x=%v", title.X)
	}
	if ed.Scene().ID() != outro.ID {
		t.Error("undo changed the active step")
	}
}
