// Package devhost is a development host for the file explorer: it serves a
// local directory as the workspace over the bridge protocol on a WebSocket.
package devhost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/fileexplorer/internal/bridge"
	"github.com/codefionn/fileexplorer/internal/config"
	"github.com/codefionn/fileexplorer/internal/logger"
)

// Server is the development host
type Server struct {
	cfg      config.DevHostConfig
	router   *httprouter.Router
	hub      *Hub
	upgrader websocket.Upgrader
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	vfs    *VFS
	opened []string
}

// NewServer creates a server. Call Start before serving.
func NewServer(cfg config.DevHostConfig) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		router: httprouter.New(),
		hub:    NewHub(),
		log:    logger.Global().WithPrefix("devhost"),
		ctx:    ctx,
		cancel: cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/bridge", s.handleBridge)
	s.router.GET("/workspace", s.handleGetWorkspace)
	s.router.POST("/workspace", s.handleOpenWorkspace)
	s.router.DELETE("/workspace", s.handleCloseWorkspace)
	s.router.GET("/healthz", s.handleHealth)
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the hub
func (s *Server) Start() {
	go s.hub.Run()
}

// Stop disconnects every plugin and closes the workspace without
// broadcasting the change.
func (s *Server) Stop() {
	s.cancel()
	s.hub.Stop()

	s.mu.Lock()
	v := s.vfs
	s.vfs = nil
	s.mu.Unlock()
	if v != nil {
		_ = v.Close()
	}
}

// ListenAndServe serves on the configured address until ctx ends
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.NewStdLogger(s.log.WithPrefix("http"), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", s.cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve on %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
		return nil
	}
}

// checkOrigin accepts any origin unless allowed origins are configured.
// Requests without an Origin header come from non-browser plugins and are
// always accepted.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	s.log.Warn("rejecting connection from origin %s", origin)
	return false
}

// OpenWorkspace makes dir the workspace and tells every plugin.
func (s *Server) OpenWorkspace(dir string) error {
	v, err := NewVFS(dir, s.cfg.CacheTTLDuration(), s.cfg.MaxFileBytes)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.vfs
	s.vfs = v
	s.opened = nil
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	s.log.Info("workspace opened: %s", v.Root())
	s.broadcastChange()

	go s.watchRoot(v)
	return nil
}

// CloseWorkspace closes the workspace and tells every plugin. It reports
// whether a workspace was open.
func (s *Server) CloseWorkspace() bool {
	s.mu.Lock()
	v := s.vfs
	s.vfs = nil
	s.mu.Unlock()

	if v == nil {
		return false
	}
	_ = v.Close()
	s.log.Info("workspace closed: %s", v.Root())
	s.broadcastChange()
	return true
}

// watchRoot closes the workspace when its directory disappears
func (s *Server) watchRoot(v *VFS) {
	select {
	case <-v.RootRemoved():
	case <-v.stopWatch:
		return
	}

	s.mu.Lock()
	current := s.vfs == v
	if current {
		s.vfs = nil
	}
	s.mu.Unlock()

	if current {
		_ = v.Close()
		s.log.Warn("workspace root %s disappeared, closing workspace", v.Root())
		s.broadcastChange()
	}
}

// Details describes the current workspace
func (s *Server) Details() bridge.WorkspaceDetails {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vfs == nil {
		return bridge.WorkspaceDetails{}
	}
	return bridge.WorkspaceDetails{IsOpen: true, Name: s.vfs.Name(), Root: s.vfs.Root()}
}

// OpenedFiles lists the files plugins asked to open since the workspace opened
func (s *Server) OpenedFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.opened...)
}

// Sessions returns the number of connected plugins
func (s *Server) Sessions() int {
	return s.hub.SessionCount()
}

func (s *Server) workspace() *VFS {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vfs
}

func (s *Server) broadcastChange() {
	details := s.Details()
	s.hub.NotifyWorkspaceChange(bridge.WorkspaceChange{
		IsOpen: details.IsOpen,
		Name:   details.Name,
		Root:   details.Root,
	})
}

// handleBridge upgrades a plugin connection
func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("failed to upgrade connection: %v", err)
		return
	}

	session := newSession(s.hub, conn, s.handleRequest)
	s.hub.Register(session)
	s.log.Info("plugin connected: %s", session.ID)

	go session.WritePump()
	go session.ReadPump(s.ctx)
}

type openWorkspaceRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleOpenWorkspace(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req openWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	if err := s.OpenWorkspace(req.Path); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, s.Details())
}

func (s *Server) handleCloseWorkspace(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !s.CloseWorkspace() {
		http.Error(w, "no workspace open", http.StatusNotFound)
		return
	}
	writeJSON(w, s.Details())
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, s.Details())
}

// handleHealth returns health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, map[string]interface{}{
		"status":   "ok",
		"sessions": s.Sessions(),
		"time":     time.Now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
