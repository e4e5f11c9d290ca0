package document

import (
	"time"

	"github.com/inamate/stepcanvas/internal/typeid"
)

func NewSampleDocument(projectID string) *Document {
	now := time.Now().UTC().Format(time.RFC3339)

	title := NewItem(ItemTypeText, 96, 64, 480, 48)
	title.Props["text"] = "Welcome"
	title.Props["fontSize"] = 32.0
	title.Props[PropZ] = 1.0

	hero := NewItem(ItemTypeImage, 96, 144, 320, 208)
	hero.Props["src"] = "assets/hero.png"
	hero.Props[PropZ] = 0.0

	next := NewItem(ItemTypeButton, 96, 384, 160, 48)
	next.Props["label"] = "Next"
	next.Props["action"] = "next-step"
	next.Props[PropZ] = 2.0

	outro := NewItem(ItemTypeText, 96, 64, 480, 48)
	outro.Props["text"] = "Thanks!"
	outro.Props[PropZ] = 0.0

	return &Document{
		Project: Project{
			ID:        projectID,
			Name:      "Untitled",
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Steps: []*Step{
			{
				ID:         typeid.NewStepID(),
				Name:       "Intro",
				Width:      1280,
				Height:     720,
				Background: "#ffffff",
				Items:      []*Item{title, hero, next},
			},
			{
				ID:         typeid.NewStepID(),
				Name:       "Outro",
				Width:      1280,
				Height:     720,
				Background: "#f5f5f5",
				Items:      []*Item{outro},
			},
		},
	}
}
