package project

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/inamate/stepcanvas/internal/document"
	"github.com/inamate/stepcanvas/internal/store"
)

type openSet map[string]bool

func (o openSet) IsOpen(id string) bool { return o[id] }

func newTestRouter(t *testing.T, open openSet) (*mux.Router, *Service) {
	t.Helper()
	st, err := store.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "projects.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(st.Close)

	svc := NewService(st, open)
	h := NewHandler(svc)
	r := mux.NewRouter()
	r.HandleFunc("/projects", h.List).Methods("GET")
	r.HandleFunc("/projects", h.Create).Methods("POST")
	r.HandleFunc("/projects/{projectId}", h.Get).Methods("GET")
	r.HandleFunc("/projects/{projectId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/projects/{projectId}/snapshots/latest", h.GetLatestSnapshot).Methods("GET")
	return r, svc
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestProjectRoutes(t *testing.T) {
	r, _ := newTestRouter(t, openSet{})

	rec := do(r, "POST", "/projects", `{"name":"  Onboarding  "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created Project
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Name != "Onboarding" || !strings.HasPrefix(created.ID, "proj_") {
		t.Errorf("created = %+v", created)
	}

	rec = do(r, "GET", "/projects", "")
	var list []Project
	json.NewDecoder(rec.Body).Decode(&list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("list = %+v", list)
	}

	rec = do(r, "GET", "/projects/"+created.ID+"/snapshots/latest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", rec.Code)
	}
	doc, err := document.Decode(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if doc.Project.ID != created.ID || len(doc.Steps) != 1 || len(doc.Steps[0].Items) != 0 {
		t.Errorf("initial document = %+v", doc)
	}

	if rec := do(r, "DELETE", "/projects/"+created.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(r, "GET", "/projects/"+created.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestProjectErrors(t *testing.T) {
	r, svc := newTestRouter(t, openSet{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"blank name", "POST", "/projects", `{"name":"   "}`, http.StatusBadRequest},
		{"bad body", "POST", "/projects", `nope`, http.StatusBadRequest},
		{"missing get", "GET", "/projects/proj_missing", "", http.StatusNotFound},
		{"missing delete", "DELETE", "/projects/proj_missing", "", http.StatusNotFound},
		{"missing snapshot", "GET", "/projects/proj_missing/snapshots/latest", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(r, tt.method, tt.path, tt.body); rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}

	p, err := svc.Create(context.Background(), "Busy")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc.sessions = openSet{p.ID: true}
	if rec := do(r, "DELETE", "/projects/"+p.ID, ""); rec.Code != http.StatusConflict {
		t.Errorf("delete open project status = %d", rec.Code)
	}
}
