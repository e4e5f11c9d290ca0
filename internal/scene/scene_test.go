package scene

import (
	"slices"
	"testing"

	"github.com/inamate/stepcanvas/internal/document"
)

func newScene(n int) (*Scene, []*document.Item) {
	step := &document.Step{ID: "step_test"}
	sc := New(step)
	items := make([]*document.Item, n)
	for i := range items {
		items[i] = document.NewItem(document.ItemTypeShape, float64(i*20), 0, 10, 10)
		sc.Attach(items[i])
	}
	return sc, items
}

func TestAttachDetach(t *testing.T) {
	sc, items := newScene(3)

	if got := sc.Detach(items[1]); got != 1 {
		t.Fatalf("Detach = %d, want 1", got)
	}
	if sc.Contains(items[1]) {
		t.Error("detached item still live")
	}
	if got := sc.Detach(items[1]); got != -1 {
		t.Errorf("second Detach = %d, want -1", got)
	}

	sc.Insert(items[1], 1)
	if !slices.Equal(sc.Items(), items) {
		t.Error("Insert did not restore original order")
	}

	sc.Attach(items[0])
	if len(sc.Items()) != 3 {
		t.Errorf("attaching a live item duplicated it: %d items", len(sc.Items()))
	}
}

func TestSelectionOrderAndFiltering(t *testing.T) {
	sc, items := newScene(3)
	stranger := document.NewItem(document.ItemTypeShape, 0, 0, 10, 10)

	sc.Select(items[2], items[0], stranger, items[2])
	if got := sc.Selection(); !slices.Equal(got, []*document.Item{items[2], items[0]}) {
		t.Errorf("selection = %v", sc.SelectionIDs())
	}

	sc.AddToSelection(items[1])
	sc.AddToSelection(items[1])
	if got := sc.SelectionIDs(); !slices.Equal(got, []string{items[2].ID, items[0].ID, items[1].ID}) {
		t.Errorf("selection ids = %v", got)
	}
}

func TestDetachRemovesFromSelection(t *testing.T) {
	sc, items := newScene(2)
	sc.Select(items...)

	var events [][]*document.Item
	sc.OnSelectionChanged(func(sel []*document.Item) { events = append(events, sel) })

	sc.Detach(items[0])
	if sc.IsSelected(items[0]) {
		t.Error("detached item still selected")
	}
	if len(events) != 1 || !slices.Equal(events[0], []*document.Item{items[1]}) {
		t.Errorf("events = %v", events)
	}
}

func TestSelectionSubscriptionRemove(t *testing.T) {
	sc, items := newScene(1)
	calls := 0
	sub := sc.OnSelectionChanged(func([]*document.Item) { calls++ })

	sc.Select(items[0])
	sub.Remove()
	sc.ClearSelection()

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSelectionHandlerRemovingItself(t *testing.T) {
	sc, items := newScene(2)
	var first, second int
	var sub Subscription
	sub = sc.OnSelectionChanged(func([]*document.Item) {
		first++
		sub.Remove()
	})
	sc.OnSelectionChanged(func([]*document.Item) { second++ })

	sc.Select(items[0])
	sc.Select(items[1])

	if first != 1 {
		t.Errorf("self-removing handler calls = %d, want 1", first)
	}
	if second != 2 {
		t.Errorf("remaining handler calls = %d, want 2", second)
	}
}
