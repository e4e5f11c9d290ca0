package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inamate/stepcanvas/internal/auth"
	"github.com/inamate/stepcanvas/internal/document"
	"github.com/inamate/stepcanvas/internal/store"
	"github.com/inamate/stepcanvas/internal/typeid"
)

var (
	ErrNotFound    = errors.New("project not found")
	ErrInvalidName = errors.New("invalid project name")
	ErrProjectOpen = errors.New("project has an open editing session")
)

const maxNameLength = 200

// SessionChecker reports whether a project is being edited. Deleting an open
// project is refused.
type SessionChecker interface {
	IsOpen(projectID string) bool
}

type Service struct {
	store    store.Store
	sessions SessionChecker
}

func NewService(st store.Store, sessions SessionChecker) *Service {
	return &Service{store: st, sessions: sessions}
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Create stores a new project whose first snapshot holds one empty step.
func (s *Service) Create(ctx context.Context, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return nil, ErrInvalidName
	}

	projectID := typeid.NewProjectID()
	emptyDoc := document.NewEmptyDocument(projectID, name, typeid.NewStepID())
	docJSON, err := json.Marshal(emptyDoc)
	if err != nil {
		return nil, fmt.Errorf("marshal empty document: %w", err)
	}

	p, err := s.store.CreateProject(ctx, projectID, name, docJSON)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	slog.Info("project created", "project", projectID, "name", name, "editor", auth.EditorFromContext(ctx))
	return toProject(p), nil
}

func (s *Service) Get(ctx context.Context, projectID string) (*Project, error) {
	if !validID(projectID) {
		return nil, ErrNotFound
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, mapStoreError(err, "get project")
	}
	return toProject(p), nil
}

func (s *Service) List(ctx context.Context) ([]Project, error) {
	stored, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]Project, len(stored))
	for i := range stored {
		projects[i] = *toProject(&stored[i])
	}
	return projects, nil
}

func (s *Service) Delete(ctx context.Context, projectID string) error {
	if !validID(projectID) {
		return ErrNotFound
	}
	if s.sessions != nil && s.sessions.IsOpen(projectID) {
		return ErrProjectOpen
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return mapStoreError(err, "delete project")
	}
	slog.Info("project deleted", "project", projectID, "editor", auth.EditorFromContext(ctx))
	return nil
}

// GetLatestSnapshot returns the newest stored document, normalized.
func (s *Service) GetLatestSnapshot(ctx context.Context, projectID string) (*document.Document, error) {
	if !validID(projectID) {
		return nil, ErrNotFound
	}
	snap, err := s.store.LatestSnapshot(ctx, projectID)
	if err != nil {
		return nil, mapStoreError(err, "get snapshot")
	}
	doc, err := document.Decode(snap.Document)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	return doc, nil
}

func validID(projectID string) bool {
	return typeid.Validate(projectID, typeid.PrefixProject) == nil
}

func mapStoreError(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toProject(p *store.Project) *Project {
	return &Project{
		ID:        p.ID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt: p.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
