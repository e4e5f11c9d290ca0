// Package history implements the linear undo/redo manager. Every change to a
// scene goes through a Command so that any earlier or later state can be
// reached again by replaying commands.
package history

import "log/slog"

// Kind tags a command variant.
type Kind string

// Command is a reversible unit of work. Do applies the effect from whatever
// state precedes it; Undo restores that state exactly. Both must tolerate
// repeated Do/Undo cycling. Describe has no side effects.
type Command interface {
	Kind() Kind
	Do()
	Undo()
	Describe() string
}

// State is the payload delivered to change listeners.
type State struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// Timeline is the executed commands followed by the undone ones, oldest
// first. Cursor is the index of the last applied command, -1 before the first.
type Timeline struct {
	List   []Command
	Cursor int
}

type listener struct {
	id uint32
	fn func(State)
}

// History owns the undo and redo stacks of one editing session. A new
// project gets a new History; there is no in-place reset.
type History struct {
	undo      []Command // oldest -> newest
	redo      []Command // most recently undone -> oldest undone
	listeners []listener
	nextID    uint32
}

// New creates an empty history.
func New() *History {
	return &History{}
}

// Subscription allows removing a change listener.
type Subscription struct {
	id uint32
	h  *History
}

// Remove unregisters the listener so it no longer fires.
func (s Subscription) Remove() {
	if s.h == nil {
		return
	}
	// Rebuilt rather than shifted so a notify loop in progress is unaffected.
	kept := make([]listener, 0, len(s.h.listeners))
	for _, l := range s.h.listeners {
		if l.id != s.id {
			kept = append(kept, l)
		}
	}
	s.h.listeners = kept
}

// OnChange registers fn to be called after every execute, undo and redo.
func (h *History) OnChange(fn func(State)) Subscription {
	h.nextID++
	h.listeners = append(h.listeners, listener{id: h.nextID, fn: fn})
	return Subscription{id: h.nextID, h: h}
}

// Execute applies cmd and records it. Anything that was redoable is discarded.
func (h *History) Execute(cmd Command) {
	cmd.Do()
	h.undo = append(h.undo, cmd)
	clear(h.redo)
	h.redo = h.redo[:0]
	h.notify()
}

// Undo reverts the most recent command. It reports false when there was
// nothing to undo.
func (h *History) Undo() bool {
	if len(h.undo) == 0 {
		return false
	}
	cmd := h.undo[len(h.undo)-1]
	h.undo[len(h.undo)-1] = nil
	h.undo = h.undo[:len(h.undo)-1]

	cmd.Undo()
	h.redo = append(h.redo, cmd)
	h.notify()
	return true
}

// Redo re-applies the most recently undone command. It reports false when
// there was nothing to redo.
func (h *History) Redo() bool {
	if len(h.redo) == 0 {
		return false
	}
	cmd := h.redo[len(h.redo)-1]
	h.redo[len(h.redo)-1] = nil
	h.redo = h.redo[:len(h.redo)-1]

	cmd.Do()
	h.undo = append(h.undo, cmd)
	h.notify()
	return true
}

// JumpTo moves the cursor to target by undoing or redoing one command at a
// time, so every intermediate Do/Undo runs. target is clamped to
// [-1, len(timeline)-1]. It returns the resulting cursor.
func (h *History) JumpTo(target int) int {
	target = max(-1, min(target, h.Len()-1))
	cursor := h.Cursor()
	steps := 0
	for cursor > target && h.Undo() {
		cursor--
		steps++
	}
	for cursor < target && h.Redo() {
		cursor++
		steps++
	}
	if steps > 0 {
		slog.Debug("history jump", "cursor", cursor, "replayed", steps)
	}
	return cursor
}

// Cursor is the index of the last applied command, or -1.
func (h *History) Cursor() int {
	return len(h.undo) - 1
}

// Len is the number of commands on the timeline.
func (h *History) Len() int {
	return len(h.undo) + len(h.redo)
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// State returns the current undo/redo availability.
func (h *History) State() State {
	return State{CanUndo: h.CanUndo(), CanRedo: h.CanRedo()}
}

// Timeline returns a copy of the timeline for display.
func (h *History) Timeline() Timeline {
	list := make([]Command, 0, h.Len())
	list = append(list, h.undo...)
	for i := len(h.redo) - 1; i >= 0; i-- {
		list = append(list, h.redo[i])
	}
	return Timeline{List: list, Cursor: h.Cursor()}
}

func (h *History) notify() {
	st := h.State()
	for _, l := range h.listeners {
		l.fn(st)
	}
}
