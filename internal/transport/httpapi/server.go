// Package httpapi is the admin/health HTTP surface that sits alongside the
// primary websocket event channel: readiness, liveness, and a manual
// snapshot trigger, built on the same chi middleware stack used elsewhere
// in this tree.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ov-vocsdb/vocsdb/internal/persistence"
	"github.com/ov-vocsdb/vocsdb/internal/store"
)

// Server is the HTTP server for the admin/health surface.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	store      *store.Store
	bridge     *persistence.Bridge
	adminToken string
	logger     *slog.Logger
}

func NewServer(s *store.Store, bridge *persistence.Bridge, adminToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		router:     chi.NewRouter(),
		store:      s,
		bridge:     bridge,
		adminToken: adminToken,
		logger:     logger,
	}
	srv.setupMiddleware()
	srv.setupRoutes()
	return srv
}

func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleLiveness)
	s.router.Get("/readyz", s.handleReadiness)

	s.router.Route("/admin", func(r chi.Router) {
		r.Use(s.authMiddleware(s.adminToken))
		r.Post("/snapshot", s.handleTriggerSnapshot)
		r.Get("/dump", s.handleDump)
	})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReadiness confirms the entity store will still accept a
// lock-bounded call; a store wedged under its own try-lock answers with a
// lock-timeout error here rather than hanging the probe.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Export(); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleTriggerSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.bridge == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no persistence backend configured"})
		return
	}
	if err := s.bridge.Save(r.Context()); err != nil {
		s.logger.Error("manual snapshot failed", slog.String("error", err.Error()))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleDump writes the whole auth tree as JSON for operator debugging.
// Every user is replaced by its stripped copy before encoding, so password
// hashes never appear in the output.
func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	tree, err := s.store.Export()
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	for _, d := range tree {
		for id, u := range d.Users {
			d.Users[id] = u.Stripped()
		}
		for _, p := range d.Projects {
			for id, u := range p.Users {
				p.Users[id] = u.Stripped()
			}
		}
	}
	s.writeJSON(w, http.StatusOK, tree)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
