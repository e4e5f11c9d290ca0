package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inamate/stepcanvas/internal/typeid"
)

// ErrMalformed marks a document whose JSON parses but whose shape cannot be
// edited, such as null steps or items.
var ErrMalformed = errors.New("malformed document")

// MinItemSize is the smallest width or height an item is created with.
const MinItemSize = 10

// PropZ is the property-bag key holding an item's stacking order.
const PropZ = "z"

type Document struct {
	Project Project `json:"project"`
	Steps   []*Step `json:"steps"`
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Step struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Background string  `json:"background"`
	Items      []*Item `json:"items"`
}

type ItemType string

const (
	ItemTypeText   ItemType = "text"
	ItemTypeImage  ItemType = "image"
	ItemTypeButton ItemType = "button"
	ItemTypeShape  ItemType = "shape"
	ItemTypeVideo  ItemType = "video"
)

// Item is a placeable widget. X and Y are the top-left corner in scene units.
// The same *Item is kept for the item's whole lifetime so that selections and
// commands can hold it by identity.
type Item struct {
	ID    string         `json:"id"`
	Type  ItemType       `json:"type"`
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	W     float64        `json:"w"`
	H     float64        `json:"h"`
	Props map[string]any `json:"props"`
}

// NewItem creates an item with a fresh ID, clamping its size to MinItemSize.
func NewItem(itemType ItemType, x, y, w, h float64) *Item {
	return &Item{
		ID:    typeid.NewItemID(),
		Type:  itemType,
		X:     x,
		Y:     y,
		W:     max(w, MinItemSize),
		H:     max(h, MinItemSize),
		Props: map[string]any{},
	}
}

// Z returns the stacking order stored in the property bag, or 0.
func (it *Item) Z() float64 {
	switch v := it.Props[PropZ].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// IndexOf returns the position of item in the step's item list, or -1.
func (s *Step) IndexOf(item *Item) int {
	for i, it := range s.Items {
		if it == item {
			return i
		}
	}
	return -1
}

// FindItem looks an item up by ID.
func (s *Step) FindItem(id string) *Item {
	for _, it := range s.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// Step returns the step with the given ID, or nil.
func (d *Document) Step(id string) *Step {
	for _, s := range d.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Decode parses a document. Numbers inside item props are kept as json.Number
// so they re-encode exactly as they were read.
func Decode(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if err := doc.normalize(); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// DecodeItem parses a single item in the persistence shape and assigns an ID
// when the payload carries none.
func DecodeItem(data []byte) (*Item, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var item Item
	if err := dec.Decode(&item); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	if item.ID == "" {
		item.ID = typeid.NewItemID()
	}
	item.normalize()
	return &item, nil
}

func (d *Document) normalize() error {
	for i, s := range d.Steps {
		if s == nil {
			return fmt.Errorf("%w: step %d is null", ErrMalformed, i)
		}
		if s.Items == nil {
			s.Items = []*Item{}
		}
		for j, it := range s.Items {
			if it == nil {
				return fmt.Errorf("%w: item %d of step %s is null", ErrMalformed, j, s.ID)
			}
			it.normalize()
		}
	}
	return nil
}

func (it *Item) normalize() {
	if it.Props == nil {
		it.Props = map[string]any{}
	}
	it.W = max(it.W, MinItemSize)
	it.H = max(it.H, MinItemSize)
}

// NewEmptyDocument creates an empty document for a new project
func NewEmptyDocument(projectID, projectName, stepID string) *Document {
	return &Document{
		Project: Project{
			ID:      projectID,
			Name:    projectName,
			Version: 1,
		},
		Steps: []*Step{
			{
				ID:         stepID,
				Name:       "Step 1",
				Width:      1280,
				Height:     720,
				Background: "#ffffff",
				Items:      []*Item{},
			},
		},
	}
}
