package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/stepcanvas/internal/document"
	"github.com/inamate/stepcanvas/internal/engine"
)

var ErrSessionBusy = errors.New("project is already open in another editor")

const storeTimeout = 10 * time.Second

// DocumentStore loads the newest document of a project and saves new
// versions of it.
type DocumentStore interface {
	Load(ctx context.Context, projectID string) (json.RawMessage, error)
	Save(ctx context.Context, projectID string, doc json.RawMessage) (version int, err error)
}

type registration struct {
	client *Client
	doc    *document.Document
	result chan error
}

type entry struct {
	session *Session
	client  *Client
}

// Hub owns the open sessions, at most one per project and one client per
// session. Dirty sessions are saved on an interval, when their client leaves
// and when the hub stops.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*entry // projectID -> entry

	store    DocumentStore
	grid     engine.Grid
	autosave time.Duration

	register   chan registration
	unregister chan registration
	stop       chan struct{}
	done       chan struct{}
}

func NewHub(st DocumentStore, grid engine.Grid, autosave time.Duration) *Hub {
	return &Hub{
		sessions:   make(map[string]*entry),
		store:      st,
		grid:       grid,
		autosave:   autosave,
		register:   make(chan registration),
		unregister: make(chan registration),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	var tick <-chan time.Time
	if h.autosave > 0 {
		ticker := time.NewTicker(h.autosave)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case reg := <-h.register:
			reg.result <- h.addClient(reg.client, reg.doc)
		case reg := <-h.unregister:
			h.removeClient(reg.client)
			reg.result <- nil
		case <-tick:
			h.saveDirty()
		case <-h.stop:
			h.saveDirty()
			return
		}
	}
}

// Register opens a session for the client's project and attaches the
// client to it. It fails with ErrSessionBusy when the project is already
// being edited. The document is loaded on the caller's goroutine so a slow
// store never stalls the hub loop.
func (h *Hub) Register(client *Client) error {
	if h.IsOpen(client.ProjectID) {
		return ErrSessionBusy
	}
	doc, err := h.load(client.ProjectID)
	if err != nil {
		return err
	}

	result := make(chan error, 1)
	select {
	case h.register <- registration{client: client, doc: doc, result: result}:
	case <-h.done:
		return errors.New("hub stopped")
	}
	return <-result
}

// Unregister detaches a client; its session is saved if dirty and closed.
// It returns once the session is gone.
func (h *Hub) Unregister(client *Client) {
	result := make(chan error, 1)
	select {
	case h.unregister <- registration{client: client, result: result}:
		<-result
	case <-h.done:
	}
}

// Stop saves every dirty session and stops the hub loop.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

// IsOpen reports whether projectID has a live session.
func (h *Hub) IsOpen(projectID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[projectID]
	return ok
}

func (h *Hub) addClient(client *Client, doc *document.Document) error {
	// Re-checked here since two loads for one project can race.
	h.mu.RLock()
	_, busy := h.sessions[client.ProjectID]
	h.mu.RUnlock()
	if busy {
		return ErrSessionBusy
	}

	sess := NewSession(client.ProjectID, doc, h.grid, client.Send)
	client.session = sess

	h.mu.Lock()
	h.sessions[client.ProjectID] = &entry{session: sess, client: client}
	h.mu.Unlock()

	sess.Welcome(client.ClientID, client.Editor)
	slog.Info("session opened", "project", client.ProjectID, "editor", client.Editor, "client", client.ClientID)
	return nil
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	e, ok := h.sessions[client.ProjectID]
	if !ok || e.client != client {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, client.ProjectID)
	h.mu.Unlock()

	close(client.send)
	h.save(e.session)
	slog.Info("session closed", "project", client.ProjectID, "client", client.ClientID)
}

func (h *Hub) load(projectID string) (*document.Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	data, err := h.store.Load(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}
	doc, err := document.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}
	if len(doc.Steps) == 0 {
		return nil, fmt.Errorf("load project %s: document has no steps", projectID)
	}
	return doc, nil
}

func (h *Hub) saveDirty() {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, e := range h.sessions {
		sessions = append(sessions, e.session)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		h.save(s)
	}
}

func (h *Hub) save(s *Session) {
	if !s.Dirty() {
		return
	}
	data, err := s.Snapshot()
	if err != nil {
		slog.Error("snapshot session", "project", s.ProjectID(), "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	version, err := h.store.Save(ctx, s.ProjectID(), data)
	if err != nil {
		s.MarkDirty()
		slog.Error("save session", "project", s.ProjectID(), "error", err)
		return
	}
	slog.Info("session saved", "project", s.ProjectID(), "version", version)
}
