// Package command contains the concrete, reversible scene edits executed
// through a history.History.
package command

import (
	"errors"
	"fmt"

	"github.com/inamate/stepcanvas/internal/document"
	"github.com/inamate/stepcanvas/internal/history"
	"github.com/inamate/stepcanvas/internal/scene"
)

const (
	KindAddItem        history.Kind = "add-item"
	KindRemoveItems    history.Kind = "remove-items"
	KindBatchGeometry  history.Kind = "batch-geometry"
	KindUpdateProperty history.Kind = "update-property"
)

var (
	ErrSnapshotMismatch = errors.New("before and after snapshots do not describe the same items")
	ErrEmptyBatch       = errors.New("batch has no entries")
)

// --- AddItem ---

// AddItem attaches one item to a scene. The same *Item is re-attached on
// redo, so references to it stay valid.
type AddItem struct {
	scene *scene.Scene
	item  *document.Item
}

func NewAddItem(sc *scene.Scene, item *document.Item) *AddItem {
	return &AddItem{scene: sc, item: item}
}

func (c *AddItem) Kind() history.Kind   { return KindAddItem }
func (c *AddItem) Item() *document.Item { return c.item }
func (c *AddItem) Do()                  { c.scene.Attach(c.item) }
func (c *AddItem) Undo()                { c.scene.Detach(c.item) }
func (c *AddItem) Describe() string     { return fmt.Sprintf("Add %s", c.item.Type) }

// --- RemoveItems ---

type removedItem struct {
	item     *document.Item
	index    int
	selected bool
}

// RemoveItems detaches a set of items. Undo puts every item back at its
// original list index and restores its selection membership.
type RemoveItems struct {
	scene   *scene.Scene
	removed []removedItem // ascending index
}

// NewRemoveItems captures where each live item sits. Items that are not
// live members of sc are ignored.
func NewRemoveItems(sc *scene.Scene, items []*document.Item) *RemoveItems {
	c := &RemoveItems{scene: sc}
	for i, it := range sc.Items() {
		for _, target := range items {
			if it == target {
				c.removed = append(c.removed, removedItem{item: it, index: i, selected: sc.IsSelected(it)})
				break
			}
		}
	}
	return c
}

func (c *RemoveItems) Kind() history.Kind { return KindRemoveItems }

func (c *RemoveItems) Items() []*document.Item {
	out := make([]*document.Item, len(c.removed))
	for i, r := range c.removed {
		out[i] = r.item
	}
	return out
}

func (c *RemoveItems) Do() {
	for i := len(c.removed) - 1; i >= 0; i-- {
		c.scene.Detach(c.removed[i].item)
	}
}

func (c *RemoveItems) Undo() {
	for _, r := range c.removed {
		c.scene.Insert(r.item, r.index)
	}
	for _, r := range c.removed {
		if r.selected {
			c.scene.AddToSelection(r.item)
		}
	}
}

func (c *RemoveItems) Describe() string {
	if len(c.removed) == 1 {
		return fmt.Sprintf("Delete %s", c.removed[0].item.Type)
	}
	return fmt.Sprintf("Delete %d items", len(c.removed))
}

// --- BatchGeometry ---

// Geometry is a position snapshot of one item, optionally with its size.
type Geometry struct {
	Item    *document.Item
	X, Y    float64
	W, H    float64
	HasSize bool
}

// PositionOf snapshots the item's position only.
func PositionOf(item *document.Item) Geometry {
	return Geometry{Item: item, X: item.X, Y: item.Y}
}

// BoundsOf snapshots the item's position and size.
func BoundsOf(item *document.Item) Geometry {
	return Geometry{Item: item, X: item.X, Y: item.Y, W: item.W, H: item.H, HasSize: true}
}

func (g Geometry) apply() {
	g.Item.X = g.X
	g.Item.Y = g.Y
	if g.HasSize {
		g.Item.W = g.W
		g.Item.H = g.H
	}
}

// Op is the display classification of a geometry batch.
type Op string

const (
	OpMove   Op = "move"
	OpResize Op = "resize"
	OpEdit   Op = "edit"
)

// BatchGeometry sets position, and size where captured, for several items
// at once. Do applies the after snapshots, Undo the before snapshots.
type BatchGeometry struct {
	before []Geometry
	after  []Geometry
	op     Op
}

// NewBatchGeometry requires parallel, non-empty snapshot lists naming the
// same items in the same order.
func NewBatchGeometry(before, after []Geometry) (*BatchGeometry, error) {
	if len(before) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(before) != len(after) {
		return nil, fmt.Errorf("%w: %d before, %d after", ErrSnapshotMismatch, len(before), len(after))
	}
	for i := range before {
		if before[i].Item == nil || before[i].Item != after[i].Item || before[i].HasSize != after[i].HasSize {
			return nil, fmt.Errorf("%w: entry %d", ErrSnapshotMismatch, i)
		}
	}
	return &BatchGeometry{before: before, after: after, op: classify(before[0], after[0])}, nil
}

// classify only looks at the first pair; it labels the command and nothing else.
func classify(b, a Geometry) Op {
	if a.HasSize && (a.W != b.W || a.H != b.H) {
		return OpResize
	}
	if a.X != b.X || a.Y != b.Y {
		return OpMove
	}
	return OpEdit
}

func (c *BatchGeometry) Kind() history.Kind { return KindBatchGeometry }
func (c *BatchGeometry) Op() Op             { return c.op }

func (c *BatchGeometry) Items() []*document.Item {
	out := make([]*document.Item, len(c.after))
	for i, g := range c.after {
		out[i] = g.Item
	}
	return out
}

func (c *BatchGeometry) Do() {
	for _, g := range c.after {
		g.apply()
	}
}

func (c *BatchGeometry) Undo() {
	for _, g := range c.before {
		g.apply()
	}
}

func (c *BatchGeometry) Describe() string {
	verb := map[Op]string{OpMove: "Move", OpResize: "Resize", OpEdit: "Edit"}[c.op]
	if len(c.after) == 1 {
		return fmt.Sprintf("%s %s", verb, c.after[0].Item.Type)
	}
	return fmt.Sprintf("%s %d items", verb, len(c.after))
}

// --- UpdateProperty ---

// PropertySnapshot is one target's value for a property before an update.
// Present is false when the key was absent from the item's props.
type PropertySnapshot struct {
	Item    *document.Item
	Value   any
	Present bool
}

// UpdateProperty sets one props key to the same value on every target.
// Undo restores each target's own previous value, or removes the key if
// the target did not have it.
type UpdateProperty struct {
	key   string
	value any
	old   []PropertySnapshot
}

// NewUpdateProperty snapshots the current value of key on every item.
func NewUpdateProperty(items []*document.Item, key string, value any) *UpdateProperty {
	old := make([]PropertySnapshot, len(items))
	for i, it := range items {
		v, ok := it.Props[key]
		old[i] = PropertySnapshot{Item: it, Value: v, Present: ok}
	}
	return NewUpdatePropertyFrom(old, key, value)
}

// NewUpdatePropertyFrom uses snapshots captured by the caller, for edits
// that already mutated the items live before being committed.
func NewUpdatePropertyFrom(old []PropertySnapshot, key string, value any) *UpdateProperty {
	return &UpdateProperty{key: key, value: value, old: old}
}

func (c *UpdateProperty) Kind() history.Kind { return KindUpdateProperty }
func (c *UpdateProperty) Key() string        { return c.key }

func (c *UpdateProperty) Items() []*document.Item {
	out := make([]*document.Item, len(c.old))
	for i, s := range c.old {
		out[i] = s.Item
	}
	return out
}

func (c *UpdateProperty) Do() {
	for _, s := range c.old {
		if s.Item.Props == nil {
			s.Item.Props = map[string]any{}
		}
		s.Item.Props[c.key] = c.value
	}
}

func (c *UpdateProperty) Undo() {
	for _, s := range c.old {
		if s.Present {
			s.Item.Props[c.key] = s.Value
		} else {
			delete(s.Item.Props, c.key)
		}
	}
}

func (c *UpdateProperty) Describe() string {
	if len(c.old) == 1 {
		return fmt.Sprintf("Set %s", c.key)
	}
	return fmt.Sprintf("Set %s on %d items", c.key, len(c.old))
}

// --- Summaries ---

// Summary is the display form of a command on the timeline.
type Summary struct {
	Kind    history.Kind `json:"kind"`
	Label   string       `json:"label"`
	Op      Op           `json:"op,omitempty"`
	ItemIDs []string     `json:"itemIds"`
}

// Summarize describes any command from this package. Unknown commands keep
// their label but carry no item IDs.
func Summarize(cmd history.Command) Summary {
	s := Summary{Kind: cmd.Kind(), Label: cmd.Describe()}
	switch c := cmd.(type) {
	case *AddItem:
		s.ItemIDs = []string{c.item.ID}
	case *RemoveItems:
		s.ItemIDs = itemIDs(c.Items())
	case *BatchGeometry:
		s.Op = c.op
		s.ItemIDs = itemIDs(c.Items())
	case *UpdateProperty:
		s.ItemIDs = itemIDs(c.Items())
	default:
		s.ItemIDs = []string{}
	}
	return s
}

func itemIDs(items []*document.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
