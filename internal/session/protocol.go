package session

import (
	"bytes"
	"encoding/json"

	"github.com/inamate/stepcanvas/internal/command"
	"github.com/inamate/stepcanvas/internal/engine"
)

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client to server
	TypeGestureBegin    = "gesture.begin"
	TypeGestureMove     = "gesture.move"
	TypeGestureEnd      = "gesture.end"
	TypeGestureCancel   = "gesture.cancel"
	TypeSelectionSet    = "selection.set"
	TypeItemAdd         = "item.add"
	TypeItemRemove      = "item.remove"
	TypeItemUpdate      = "item.update"
	TypeAlign           = "align"
	TypeHistoryUndo     = "history.undo"
	TypeHistoryRedo     = "history.redo"
	TypeHistoryJump     = "history.jump"
	TypeHistoryTimeline = "history.timeline"
	TypeStepSelect      = "step.select"
	TypeViewportSet     = "viewport.set"

	// Server to client
	TypeWelcome          = "welcome"
	TypeDocSync          = "doc.sync"
	TypeSelectionChanged = "selection.changed"
	TypeGeometryPreview  = "geometry.preview"
	TypeHistoryChanged   = "history.changed"
	TypeTimeline         = "timeline"
	TypeError            = "error"
)

// --- Client payloads ---

type GestureBeginPayload struct {
	Mode    string   `json:"mode"`
	Handle  string   `json:"handle,omitempty"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	ItemIDs []string `json:"itemIds,omitempty"`
}

type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ItemIDsPayload struct {
	ItemIDs []string `json:"itemIds"`
}

type ItemAddPayload struct {
	Item json.RawMessage `json:"item"`
}

type ItemUpdatePayload struct {
	ItemIDs []string `json:"itemIds,omitempty"`
	Key     string   `json:"key"`
	Value   any      `json:"value"`
}

type AlignPayload struct {
	Mode string `json:"mode"`
}

type HistoryJumpPayload struct {
	Index int `json:"index"`
}

type StepSelectPayload struct {
	StepID string `json:"stepId"`
}

// --- Server payloads ---

type WelcomePayload struct {
	ClientID  string          `json:"clientId"`
	ProjectID string          `json:"projectId"`
	Editor    string          `json:"editor"`
	StepID    string          `json:"stepId"`
	Grid      float64         `json:"grid"`
	Viewport  engine.Viewport `json:"viewport"`
}

type DocSyncPayload struct {
	Document json.RawMessage `json:"document"`
}

type SelectionChangedPayload struct {
	StepID  string   `json:"stepId"`
	ItemIDs []string `json:"itemIds"`
}

type GeometryPreviewPayload struct {
	StepID string      `json:"stepId"`
	ItemID string      `json:"itemId"`
	Bounds engine.Rect `json:"bounds"`
}

type HistoryChangedPayload struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

type TimelinePayload struct {
	List   []command.Summary `json:"list"`
	Cursor int               `json:"cursor"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
}

func newMessage(typ string, payload any) (*Message, error) {
	if payload == nil {
		return &Message{Type: typ}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}

// decodePayload keeps numbers as json.Number so property values are stored
// exactly as sent.
func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
