// Package http serves the lobo control API and the /ws event stream.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/brianly1003/lobo/internal/registry"
	"github.com/brianly1003/lobo/internal/security"
	"github.com/brianly1003/lobo/internal/server/websocket"
	"github.com/brianly1003/lobo/internal/session"
	"github.com/gorilla/mux"
)

// Controller is the application surface exposed over HTTP.
type Controller interface {
	Directories() []registry.WatchedDirectory
	AddDirectory(path string) (registry.WatchedDirectory, error)
	RemoveDirectory(path string) (string, error)
	StartWatching() error
	StopWatching() error
	State() session.State
	StatusText() string
	Version() string
}

// Server is the HTTP API server.
type Server struct {
	ctrl   Controller
	hub    ports.EventHub
	logger *slog.Logger

	addr       string
	router     *mux.Router
	ws         *websocket.Handler
	origins    *security.OriginChecker
	httpServer *http.Server
	listener   net.Listener
	startTime  time.Time
}

// New creates a server and registers its routes. hub may be nil, in which
// case /ws only accepts commands.
func New(host string, port int, ctrl Controller, hub ports.EventHub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		ctrl:      ctrl,
		hub:       hub,
		logger:    logger,
		addr:      net.JoinHostPort(host, fmt.Sprint(port)),
		startTime: time.Now(),
	}
	s.origins = security.NewOriginChecker(nil)
	s.ws = websocket.NewHandler(hub, s.handleCommand)
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/directories", s.handleListDirectories).Methods(http.MethodGet)
	api.HandleFunc("/directories", s.handleAddDirectory).Methods(http.MethodPost)
	api.HandleFunc("/directories", s.handleRemoveDirectory).Methods(http.MethodDelete)
	api.HandleFunc("/watching/start", s.handleStartWatching).Methods(http.MethodPost)
	api.HandleFunc("/watching/stop", s.handleStopWatching).Methods(http.MethodPost)

	router.Handle("/ws", s.ws)

	return router
}

// AllowOrigins lets browser pages served from origins use the API and the
// WebSocket stream. Localhost and same-host pages are always allowed.
func (s *Server) AllowOrigins(origins []string) {
	s.origins = security.NewOriginChecker(origins)
	s.ws.SetOriginChecker(s.origins)
}

// Handler returns the root handler, including CORS handling.
func (s *Server) Handler() http.Handler {
	return s.cors(s.router)
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Start binds the listen address and serves in the background. Bind
// failures are returned directly.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

// Stop disconnects WebSocket clients and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Stopping HTTP server")
	s.ws.CloseAll()
	return s.httpServer.Shutdown(ctx)
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	return s.ws.ClientCount()
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// cors adds CORS headers for origins the origin policy accepts.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.origins.Allowed(origin, r.Host) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
