// Package api exposes the local control surface: blocked-state queries,
// focus-change ingress from the browser extension, and settings and
// usage management. It binds to loopback by default; there is no
// authentication layer because the daemon is single-user.
package api

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/goodtune/sitewarden/internal/policy"
	"github.com/goodtune/sitewarden/internal/storage"
	"github.com/goodtune/sitewarden/internal/tracking"
)

// Server represents the control API server.
type Server struct {
	store    storage.Store
	policy   *policy.Engine
	tracker  *tracking.Engine
	clock    policy.Clock
	server   *http.Server
	router   *mux.Router
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new API server.
func NewServer(addr string, store storage.Store, policyEngine *policy.Engine, tracker *tracking.Engine, logger zerolog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		store:   store,
		policy:  policyEngine,
		tracker: tracker,
		clock:   policy.RealClock{},
		router:  router,
		logger:  logger.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetClock replaces the wall clock, for tests.
func (s *Server) SetClock(clock policy.Clock) {
	s.clock = clock
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/query", s.handleQuery).Methods(http.MethodGet)
	v1.HandleFunc("/focus", s.handleFocus).Methods(http.MethodPost)
	v1.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	v1.HandleFunc("/settings", s.handlePutSettings).Methods(http.MethodPut)
	v1.HandleFunc("/usage", s.handleGetUsage).Methods(http.MethodGet)
	v1.HandleFunc("/usage", s.handleResetUsage).Methods(http.MethodDelete)
}

// Handler returns the configured router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting API server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated API listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
	return nil
}

// Stop stops the API server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping API server")
	return s.server.Close()
}

// LoggingMiddleware logs each request with method, path and status.
func LoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", wrapped.statusCode).
				Dur("duration", duration).
				Msg("API request")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
