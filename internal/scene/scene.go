// Package scene holds the live, editable state of one step: its item list
// and the current selection.
package scene

import (
	"slices"

	"github.com/inamate/stepcanvas/internal/document"
)

type selectionHandler struct {
	id uint32
	fn func([]*document.Item)
}

// Scene wraps a document step. Items are owned by the step's item list;
// the selection only references live members of that list.
type Scene struct {
	step      *document.Step
	selection []*document.Item
	handlers  []selectionHandler
	nextID    uint32
}

func New(step *document.Step) *Scene {
	if step.Items == nil {
		step.Items = []*document.Item{}
	}
	return &Scene{step: step}
}

func (s *Scene) ID() string                    { return s.step.ID }
func (s *Scene) Step() *document.Step          { return s.step }
func (s *Scene) Items() []*document.Item       { return s.step.Items }
func (s *Scene) Find(id string) *document.Item { return s.step.FindItem(id) }

// Contains reports whether item is a live member of the scene.
func (s *Scene) Contains(item *document.Item) bool {
	return s.step.IndexOf(item) >= 0
}

// Attach appends item to the item list. Attaching a live item is a no-op.
func (s *Scene) Attach(item *document.Item) {
	s.Insert(item, len(s.step.Items))
}

// Insert places item at index, clamped to the list bounds.
func (s *Scene) Insert(item *document.Item, index int) {
	if s.Contains(item) {
		return
	}
	index = max(0, min(index, len(s.step.Items)))
	s.step.Items = slices.Insert(s.step.Items, index, item)
}

// Detach removes item from the item list and from the selection. It returns
// the index the item occupied, or -1 if it was not live.
func (s *Scene) Detach(item *document.Item) int {
	idx := s.step.IndexOf(item)
	if idx < 0 {
		return -1
	}
	s.step.Items = slices.Delete(s.step.Items, idx, idx+1)

	if i := slices.Index(s.selection, item); i >= 0 {
		s.selection = slices.Delete(s.selection, i, i+1)
		s.NotifySelection()
	}
	return idx
}

// Selection returns the selected items in selection order.
func (s *Scene) Selection() []*document.Item {
	return slices.Clone(s.selection)
}

// SelectionIDs returns the IDs of the selected items in selection order.
func (s *Scene) SelectionIDs() []string {
	ids := make([]string, len(s.selection))
	for i, it := range s.selection {
		ids[i] = it.ID
	}
	return ids
}

func (s *Scene) IsSelected(item *document.Item) bool {
	return slices.Contains(s.selection, item)
}

// Select replaces the selection. Items that are not live, and duplicates,
// are dropped.
func (s *Scene) Select(items ...*document.Item) {
	s.selection = s.selection[:0]
	for _, it := range items {
		if s.Contains(it) && !slices.Contains(s.selection, it) {
			s.selection = append(s.selection, it)
		}
	}
	s.NotifySelection()
}

// AddToSelection appends item to the selection if it is live and not
// already selected.
func (s *Scene) AddToSelection(item *document.Item) {
	if !s.Contains(item) || s.IsSelected(item) {
		return
	}
	s.selection = append(s.selection, item)
	s.NotifySelection()
}

// ClearSelection empties the selection.
func (s *Scene) ClearSelection() {
	if len(s.selection) == 0 {
		return
	}
	s.selection = s.selection[:0]
	s.NotifySelection()
}

// Subscription allows removing a selection-changed callback.
type Subscription struct {
	id uint32
	s  *Scene
}

// Remove unregisters the callback.
func (h Subscription) Remove() {
	if h.s == nil {
		return
	}
	// A fresh slice leaves a NotifySelection loop in progress untouched.
	h.s.handlers = slices.DeleteFunc(slices.Clone(h.s.handlers), func(sh selectionHandler) bool {
		return sh.id == h.id
	})
}

// OnSelectionChanged registers fn for selection-changed events. fn receives
// a copy of the selection.
func (s *Scene) OnSelectionChanged(fn func([]*document.Item)) Subscription {
	s.nextID++
	s.handlers = append(s.handlers, selectionHandler{id: s.nextID, fn: fn})
	return Subscription{id: s.nextID, s: s}
}

// NotifySelection fires selection-changed. The editor also calls it after
// each move or resize tick, since selected geometry changed.
func (s *Scene) NotifySelection() {
	for _, h := range s.handlers {
		h.fn(s.Selection())
	}
}
