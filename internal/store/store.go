// Package store persists projects and their document snapshots. A snapshot
// is the JSON-encoded document at one point in time; the newest version is
// what an editing session loads.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Snapshot struct {
	ID        string
	ProjectID string
	Version   int
	Document  json.RawMessage
	CreatedAt time.Time
}

// Store is implemented by the Postgres and SQLite backends.
type Store interface {
	// CreateProject inserts a project together with its first snapshot.
	CreateProject(ctx context.Context, id, name string, doc json.RawMessage) (*Project, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	// DeleteProject removes a project and every snapshot of it.
	DeleteProject(ctx context.Context, id string) error
	LatestSnapshot(ctx context.Context, projectID string) (*Snapshot, error)
	// SaveSnapshot stores doc as the next version of the project.
	SaveSnapshot(ctx context.Context, projectID string, doc json.RawMessage) (*Snapshot, error)
	Close()
}

// Documents exposes a Store as a document source for editing sessions.
type Documents struct {
	Store Store
}

func (d Documents) Load(ctx context.Context, projectID string) (json.RawMessage, error) {
	snap, err := d.Store.LatestSnapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return snap.Document, nil
}

func (d Documents) Save(ctx context.Context, projectID string, doc json.RawMessage) (int, error) {
	snap, err := d.Store.SaveSnapshot(ctx, projectID, doc)
	if err != nil {
		return 0, err
	}
	return snap.Version, nil
}
