package command

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/inamate/stepcanvas/internal/document"
	"github.com/inamate/stepcanvas/internal/history"
	"github.com/inamate/stepcanvas/internal/scene"
)

func newScene(rects ...[4]float64) (*scene.Scene, []*document.Item) {
	sc := scene.New(&document.Step{ID: "step_test"})
	items := make([]*document.Item, len(rects))
	for i, r := range rects {
		items[i] = document.NewItem(document.ItemTypeShape, r[0], r[1], r[2], r[3])
		sc.Attach(items[i])
	}
	return sc, items
}

// snapshot deep-copies every item so states can be compared after replay.
func snapshot(sc *scene.Scene) []document.Item {
	out := make([]document.Item, len(sc.Items()))
	for i, it := range sc.Items() {
		cp := *it
		cp.Props = make(map[string]any, len(it.Props))
		for k, v := range it.Props {
			cp.Props[k] = v
		}
		out[i] = cp
	}
	return out
}

func TestAddItemReusesInstance(t *testing.T) {
	sc, _ := newScene()
	h := history.New()
	item := document.NewItem(document.ItemTypeText, 0, 0, 50, 20)

	h.Execute(NewAddItem(sc, item))
	sc.Select(item)
	h.Undo()

	if sc.Contains(item) || sc.IsSelected(item) {
		t.Fatal("undo left item live or selected")
	}

	h.Redo()
	if sc.Find(item.ID) != item {
		t.Error("redo did not re-attach the same instance")
	}
}

func TestRemoveItemsRestoresOrderAndSelection(t *testing.T) {
	sc, items := newScene([4]float64{0, 0, 10, 10}, [4]float64{20, 0, 10, 10}, [4]float64{40, 0, 10, 10}, [4]float64{60, 0, 10, 10})
	sc.Select(items[3], items[1])
	h := history.New()

	h.Execute(NewRemoveItems(sc, []*document.Item{items[3], items[1]}))
	if got := sc.Items(); !slices.Equal(got, []*document.Item{items[0], items[2]}) {
		t.Fatalf("items after remove = %d", len(got))
	}
	if len(sc.Selection()) != 0 {
		t.Error("removed items still selected")
	}

	h.Undo()
	if !slices.Equal(sc.Items(), items) {
		t.Error("undo did not restore original order")
	}
	if !sc.IsSelected(items[1]) || !sc.IsSelected(items[3]) {
		t.Error("undo did not restore selection")
	}
}

func TestBatchGeometryMoveKeepsSize(t *testing.T) {
	_, items := newScene([4]float64{0, 0, 40, 40})
	item := items[0]

	before := []Geometry{PositionOf(item)}
	item.X, item.Y = 30, 50
	item.W = 999 // size changes outside the batch must not be reverted
	after := []Geometry{PositionOf(item)}

	cmd, err := NewBatchGeometry(before, after)
	if err != nil {
		t.Fatalf("NewBatchGeometry: %v", err)
	}
	cmd.Undo()
	if item.X != 0 || item.Y != 0 || item.W != 999 {
		t.Errorf("after undo item = %+v", *item)
	}
	cmd.Do()
	if item.X != 30 || item.Y != 50 {
		t.Errorf("after do item = %+v", *item)
	}
	if cmd.Op() != OpMove || cmd.Describe() != "Move shape" {
		t.Errorf("op = %s, label = %q", cmd.Op(), cmd.Describe())
	}
}

func TestBatchGeometryClassification(t *testing.T) {
	_, items := newScene([4]float64{0, 0, 40, 40}, [4]float64{50, 0, 40, 40})
	a, b := items[0], items[1]

	tests := []struct {
		name   string
		before []Geometry
		after  []Geometry
		op     Op
		label  string
	}{
		{
			"resize",
			[]Geometry{BoundsOf(a), BoundsOf(b)},
			[]Geometry{{Item: a, W: 80, H: 40, HasSize: true}, {Item: b, X: 80, W: 80, H: 40, HasSize: true}},
			OpResize, "Resize 2 items",
		},
		{
			"edit",
			[]Geometry{BoundsOf(a)},
			[]Geometry{BoundsOf(a)},
			OpEdit, "Edit shape",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := NewBatchGeometry(tt.before, tt.after)
			if err != nil {
				t.Fatalf("NewBatchGeometry: %v", err)
			}
			if cmd.Op() != tt.op || cmd.Describe() != tt.label {
				t.Errorf("op = %s, label = %q; want %s, %q", cmd.Op(), cmd.Describe(), tt.op, tt.label)
			}
		})
	}
}

func TestBatchGeometryRejectsIncompleteSnapshots(t *testing.T) {
	_, items := newScene([4]float64{0, 0, 40, 40}, [4]float64{50, 0, 40, 40})
	a, b := items[0], items[1]

	tests := []struct {
		name   string
		before []Geometry
		after  []Geometry
		want   error
	}{
		{"empty", nil, nil, ErrEmptyBatch},
		{"length", []Geometry{BoundsOf(a), BoundsOf(b)}, []Geometry{BoundsOf(a)}, ErrSnapshotMismatch},
		{"order", []Geometry{BoundsOf(a), BoundsOf(b)}, []Geometry{BoundsOf(b), BoundsOf(a)}, ErrSnapshotMismatch},
		{"size capture", []Geometry{PositionOf(a)}, []Geometry{BoundsOf(a)}, ErrSnapshotMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBatchGeometry(tt.before, tt.after); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpdatePropertyRestoresPerTargetValues(t *testing.T) {
	_, items := newScene([4]float64{0, 0, 10, 10}, [4]float64{0, 0, 10, 10}, [4]float64{0, 0, 10, 10})
	items[0].Props["color"] = "red"
	items[1].Props["color"] = "blue"

	cmd := NewUpdateProperty(items, "color", "green")
	cmd.Do()
	for i, it := range items {
		if it.Props["color"] != "green" {
			t.Errorf("item %d color = %v", i, it.Props["color"])
		}
	}

	cmd.Undo()
	if items[0].Props["color"] != "red" || items[1].Props["color"] != "blue" {
		t.Errorf("colors = %v, %v", items[0].Props["color"], items[1].Props["color"])
	}
	if _, ok := items[2].Props["color"]; ok {
		t.Error("undo left a key the item never had")
	}
	if cmd.Describe() != "Set color on 3 items" {
		t.Errorf("label = %q", cmd.Describe())
	}
}

func TestUpdatePropertyFromExternalSnapshot(t *testing.T) {
	_, items := newScene([4]float64{0, 0, 10, 10})
	item := items[0]
	item.Props["text"] = "draft"

	old := []PropertySnapshot{{Item: item, Value: "draft", Present: true}}
	item.Props["text"] = "typing..." // live edit before commit
	cmd := NewUpdatePropertyFrom(old, "text", "final")

	cmd.Do()
	cmd.Undo()
	if item.Props["text"] != "draft" {
		t.Errorf("text = %v, want draft", item.Props["text"])
	}
}

func TestHistoryRoundTripIsExact(t *testing.T) {
	sc, items := newScene([4]float64{0, 0, 40, 40}, [4]float64{100, 0, 40, 40})
	h := history.New()
	added := document.NewItem(document.ItemTypeButton, 10, 10, 80, 30)

	var states [][]document.Item
	states = append(states, snapshot(sc))

	h.Execute(NewAddItem(sc, added))
	states = append(states, snapshot(sc))

	move, _ := NewBatchGeometry(
		[]Geometry{PositionOf(items[0]), PositionOf(added)},
		[]Geometry{{Item: items[0], X: 16, Y: 32}, {Item: added, X: 26, Y: 42}},
	)
	h.Execute(move)
	states = append(states, snapshot(sc))

	h.Execute(NewUpdateProperty([]*document.Item{items[1], added}, document.PropZ, 7.0))
	states = append(states, snapshot(sc))

	h.Execute(NewRemoveItems(sc, []*document.Item{items[0]}))
	states = append(states, snapshot(sc))

	for i := len(states) - 2; i >= 0; i-- {
		h.Undo()
		if got := snapshot(sc); !reflect.DeepEqual(got, states[i]) {
			t.Fatalf("undo to %d: state mismatch", i)
		}
	}
	for i := 1; i < len(states); i++ {
		h.Redo()
		if got := snapshot(sc); !reflect.DeepEqual(got, states[i]) {
			t.Fatalf("redo to %d: state mismatch", i)
		}
	}

	h.JumpTo(1)
	if got := snapshot(sc); !reflect.DeepEqual(got, states[2]) {
		t.Error("JumpTo(1) did not reproduce the state after the second command")
	}
}

func TestSummarize(t *testing.T) {
	sc, items := newScene([4]float64{0, 0, 10, 10})
	tests := []struct {
		cmd  history.Command
		kind history.Kind
	}{
		{NewAddItem(sc, items[0]), KindAddItem},
		{NewRemoveItems(sc, items), KindRemoveItems},
		{NewUpdateProperty(items, "k", 1), KindUpdateProperty},
	}
	for _, tt := range tests {
		s := Summarize(tt.cmd)
		if s.Kind != tt.kind {
			t.Errorf("kind = %s, want %s", s.Kind, tt.kind)
		}
		if !slices.Equal(s.ItemIDs, []string{items[0].ID}) {
			t.Errorf("%s item ids = %v", tt.kind, s.ItemIDs)
		}
	}
}
