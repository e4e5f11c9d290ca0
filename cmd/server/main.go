package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/stepcanvas/internal/asset"
	"github.com/inamate/stepcanvas/internal/auth"
	"github.com/inamate/stepcanvas/internal/config"
	"github.com/inamate/stepcanvas/internal/engine"
	mw "github.com/inamate/stepcanvas/internal/middleware"
	"github.com/inamate/stepcanvas/internal/project"
	"github.com/inamate/stepcanvas/internal/session"
	"github.com/inamate/stepcanvas/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	authService, err := auth.NewService(cfg.JWTSecret, cfg.EditorPassword)
	if err != nil {
		slog.Error("init auth", "error", err)
		os.Exit(1)
	}
	authHandler := auth.NewHandler(authService)

	hub := session.NewHub(store.Documents{Store: st}, engine.Grid{Size: cfg.GridSize}, cfg.AutosaveInterval)
	go hub.Run()

	projectService := project.NewService(st, hub)
	projectHandler := project.NewHandler(projectService)

	assetHandler, err := asset.NewHandler(cfg.AssetDir)
	if err != nil {
		slog.Error("init assets", "error", err)
		os.Exit(1)
	}

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.AllowedOrigins))

	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Uploaded images, public so that <img> tags can load them
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/projects", projectHandler.List).Methods("GET")
	api.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	api.HandleFunc("/projects/{projectId}", projectHandler.Get).Methods("GET")
	api.HandleFunc("/projects/{projectId}", projectHandler.Delete).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/snapshots/latest", projectHandler.GetLatestSnapshot).Methods("GET")
	api.HandleFunc("/assets", assetHandler.Upload).Methods("POST")

	// WebSocket endpoint, authenticated by query token
	r.HandleFunc("/ws/project/{projectId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, cfg.AllowedOrigins)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty sessions
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", cfg.StoreDriver, "grid", cfg.GridSize)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		return store.NewSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, origins []string) {
	projectID := mux.Vars(r)["projectId"]

	editorName, err := authSvc.EditorFromRequest(r)
	if err != nil {
		slog.Debug("websocket rejected", "project", projectID, "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Refuse early so the client gets an HTTP status instead of a closed socket.
	if hub.IsOpen(projectID) {
		http.Error(w, session.ErrSessionBusy.Error(), http.StatusConflict)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := session.NewClient(hub, conn, editorName, projectID, clientID)

	if err := hub.Register(client); err != nil {
		slog.Warn("session refused", "project", projectID, "editor", editorName, "error", err)
		reason := "could not open project"
		if errors.Is(err, session.ErrSessionBusy) {
			reason = "project is open elsewhere"
		}
		conn.Close(websocket.StatusPolicyViolation, reason)
		return
	}

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
