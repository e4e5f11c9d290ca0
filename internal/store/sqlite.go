package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/inamate/stepcanvas/internal/typeid"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS projects (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
    id         TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id),
    version    INTEGER NOT NULL,
    document   TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (project_id, version)
);
`

// Fixed width so that timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database file at path and applies
// the schema.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() { s.db.Close() }

func (s *SQLite) CreateProject(ctx context.Context, id, name string, doc json.RawMessage) (*Project, error) {
	now := time.Now().UTC()
	stamp := now.Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO projects (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
    `, id, name, stamp, stamp)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO snapshots (id, project_id, version, document, created_at) VALUES (?, ?, 1, ?, ?)
    `, typeid.NewSnapshotID(), id, string(doc), stamp)
	if err != nil {
		return nil, fmt.Errorf("insert initial snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	created, _ := time.Parse(timeLayout, stamp)
	return &Project{ID: id, Name: name, CreatedAt: created, UpdatedAt: created}, nil
}

func (s *SQLite) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, name, created_at, updated_at FROM projects WHERE id = ?
    `, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *SQLite) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, name, created_at, updated_at FROM projects ORDER BY created_at, id
    `)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *SQLite) DeleteProject(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *SQLite) LatestSnapshot(ctx context.Context, projectID string) (*Snapshot, error) {
	var snap Snapshot
	var doc, created string
	err := s.db.QueryRowContext(ctx, `
        SELECT id, project_id, version, document, created_at
        FROM snapshots WHERE project_id = ?
        ORDER BY version DESC LIMIT 1
    `, projectID).Scan(&snap.ID, &snap.ProjectID, &snap.Version, &doc, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	snap.Document = json.RawMessage(doc)
	if snap.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse snapshot time: %w", err)
	}
	return &snap, nil
}

func (s *SQLite) SaveSnapshot(ctx context.Context, projectID string, doc json.RawMessage) (*Snapshot, error) {
	stamp := time.Now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, stamp, projectID)
	if err != nil {
		return nil, fmt.Errorf("touch project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	snap := Snapshot{ID: typeid.NewSnapshotID(), ProjectID: projectID, Document: doc}
	err = tx.QueryRowContext(ctx, `
        SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots WHERE project_id = ?
    `, projectID).Scan(&snap.Version)
	if err != nil {
		return nil, fmt.Errorf("next version: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO snapshots (id, project_id, version, document, created_at) VALUES (?, ?, ?, ?, ?)
    `, snap.ID, projectID, snap.Version, string(doc), stamp)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	snap.CreatedAt, _ = time.Parse(timeLayout, stamp)
	return &snap, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	var created, updated string
	if err := row.Scan(&p.ID, &p.Name, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if p.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, err
	}
	return &p, nil
}
