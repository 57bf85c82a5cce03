// Package server provides the HTTP server for the insideout canvas.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/insideout/internal/app"
	"github.com/ayusman/insideout/internal/log"
	"github.com/ayusman/insideout/internal/server/api"
	"github.com/ayusman/insideout/internal/store"
	"gocv.io/x/gocv"
)

// Canvas is the running render loop the server exposes.
type Canvas interface {
	api.Canvas
	Subscribe(buffer int) (<-chan app.Event, func())
	LatestFrame() (*gocv.Mat, bool)
	Subscribers() int
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Canvas    Canvas
}

// Server represents the HTTP server for the insideout application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	hub    *CanvasHandler

	mu   sync.Mutex
	http *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		var live api.LiveSession
		if s.config.Canvas != nil {
			live = s.config.Canvas
		}
		sessions := api.NewSessionHandler(s.config.Store, live)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.Canvas != nil {
		emotions := api.NewEmotionHandler(s.config.Canvas, app.ErrDrawingDisabled)
		for _, p := range []string{"/api/state", "/api/profiles", "/api/brushes", "/api/drawing", "/api/paint"} {
			s.mux.Handle(p, emotions)
		}

		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Canvas))

		s.hub = NewCanvasHandler(s.config.Canvas)
		s.mux.Handle("/api/canvas", s.hub)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.hub != nil {
		response["clients"] = s.hub.Clients()
	}
	if s.config.Canvas != nil {
		response["emotion"] = s.config.Canvas.State().Emotion()
		response["drawing"] = s.config.Canvas.IsEnabled()
		response["subscribers"] = s.config.Canvas.Subscribers()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns nil after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	log.Info("http server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes websocket clients and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}

	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
