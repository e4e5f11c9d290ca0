package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inamate/stepcanvas/internal/document"
	"github.com/inamate/stepcanvas/internal/editor"
	"github.com/inamate/stepcanvas/internal/engine"
	"github.com/inamate/stepcanvas/internal/history"
)

var ErrUnknownMessage = errors.New("unknown message type")

// Session is one editing session over a loaded project. Messages are
// applied to the editor one at a time; every resulting event goes to the
// sink.
type Session struct {
	mu        sync.Mutex
	projectID string
	editor    *editor.Editor
	sink      func(*Message)

	dirty          bool
	historyChanged bool
}

// NewSession builds a fresh editor over doc. Events are delivered to sink
// while the session lock is held.
func NewSession(projectID string, doc *document.Document, grid engine.Grid, sink func(*Message)) *Session {
	s := &Session{
		projectID: projectID,
		editor:    editor.New(doc, grid),
		sink:      sink,
	}

	s.editor.OnPreview(func(p editor.Preview) {
		s.emit(TypeGeometryPreview, GeometryPreviewPayload{StepID: p.StepID, ItemID: p.ItemID, Bounds: p.Bounds})
	})
	s.editor.OnSelectionChanged(func(stepID string, sel []*document.Item) {
		ids := make([]string, len(sel))
		for i, it := range sel {
			ids[i] = it.ID
		}
		s.emit(TypeSelectionChanged, SelectionChangedPayload{StepID: stepID, ItemIDs: ids})
	})
	s.editor.History().OnChange(func(history.State) {
		s.dirty = true
		s.historyChanged = true
	})
	return s
}

func (s *Session) ProjectID() string { return s.projectID }

// Dirty reports whether the document changed since the last MarkSaved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Document serializes the current document.
func (s *Session) Document() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.MarshalDocument()
}

// Snapshot serializes the document and clears the dirty flag. The flag is
// set again by any later change, so a failed save should call MarkDirty.
func (s *Session) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.editor.MarshalDocument()
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	s.dirty = false
	return data, nil
}

func (s *Session) MarkDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Welcome sends the initial state to a newly attached client.
func (s *Session) Welcome(clientID, editorName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit(TypeWelcome, WelcomePayload{
		ClientID:  clientID,
		ProjectID: s.projectID,
		Editor:    editorName,
		StepID:    s.editor.Scene().ID(),
		Grid:      s.editor.Grid().Size,
		Viewport:  s.editor.Viewport(),
	})
	s.syncDocument()
	s.emitHistoryState()
}

// Dispatch applies one client message. Failures are reported to the client
// as error messages and never end the session.
func (s *Session) Dispatch(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.apply(msg); err != nil {
		slog.Debug("message rejected", "project", s.projectID, "type", msg.Type, "error", err)
		s.emit(TypeError, ErrorPayload{Reason: err.Error()})
	}

	// History navigation can fire many change notifications; the client
	// gets one summary per message.
	if s.historyChanged {
		s.historyChanged = false
		s.emitHistoryState()
		s.syncDocument()
	}
}

func (s *Session) apply(msg *Message) error {
	ed := s.editor
	switch msg.Type {
	case TypeGestureBegin:
		var p GestureBeginPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		if len(p.ItemIDs) > 0 {
			if err := ed.Select(p.ItemIDs...); err != nil {
				return err
			}
		}
		switch editor.Mode(p.Mode) {
		case editor.ModeMove:
			return ed.BeginMove(p.X, p.Y)
		case editor.ModeResize:
			return ed.BeginResize(engine.Handle(p.Handle), p.X, p.Y)
		default:
			return fmt.Errorf("unknown gesture mode %q", p.Mode)
		}

	case TypeGestureMove:
		var p PointerPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		return ed.PointerMove(p.X, p.Y)

	case TypeGestureEnd:
		_, err := ed.EndGesture()
		return err

	case TypeGestureCancel:
		ed.CancelGesture()
		return nil

	case TypeSelectionSet:
		var p ItemIDsPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		return ed.Select(p.ItemIDs...)

	case TypeItemAdd:
		var p ItemAddPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		item, err := document.DecodeItem(p.Item)
		if err != nil {
			return err
		}
		if ed.Scene().Find(item.ID) != nil {
			return fmt.Errorf("item %s already exists", item.ID)
		}
		ed.AddItem(item)
		return nil

	case TypeItemRemove:
		var p ItemIDsPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		_, err := ed.RemoveItems(p.ItemIDs...)
		return err

	case TypeItemUpdate:
		var p ItemUpdatePayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		if p.Key == "" {
			return errors.New("property key is required")
		}
		_, err := ed.UpdateProperty(p.Key, p.Value, p.ItemIDs...)
		return err

	case TypeAlign:
		var p AlignPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		_, err := ed.Align(editor.AlignMode(p.Mode))
		return err

	case TypeHistoryUndo:
		ed.Undo()
		return nil

	case TypeHistoryRedo:
		ed.Redo()
		return nil

	case TypeHistoryJump:
		var p HistoryJumpPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		ed.JumpTo(p.Index)
		return nil

	case TypeHistoryTimeline:
		list, cursor := ed.Timeline()
		s.emit(TypeTimeline, TimelinePayload{List: list, Cursor: cursor})
		return nil

	case TypeStepSelect:
		var p StepSelectPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		return ed.SelectStep(p.StepID)

	case TypeViewportSet:
		var v engine.Viewport
		if err := decodePayload(msg.Payload, &v); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		ed.SetViewport(v)
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownMessage, msg.Type)
	}
}

func (s *Session) emitHistoryState() {
	st := s.editor.History().State()
	s.emit(TypeHistoryChanged, HistoryChangedPayload{CanUndo: st.CanUndo, CanRedo: st.CanRedo})
}

func (s *Session) syncDocument() {
	data, err := s.editor.MarshalDocument()
	if err != nil {
		slog.Error("marshal document", "project", s.projectID, "error", err)
		return
	}
	s.emit(TypeDocSync, DocSyncPayload{Document: data})
}

func (s *Session) emit(typ string, payload any) {
	msg, err := newMessage(typ, payload)
	if err != nil {
		slog.Error("marshal message", "type", typ, "error", err)
		return
	}
	s.sink(msg)
}
