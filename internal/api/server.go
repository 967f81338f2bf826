package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/MJE43/rps-gauntlet/internal/game"
)

// Server handles HTTP requests
type Server struct {
	svc          *game.Service
	hub          *Hub
	errorHandler *ErrorHandler
	logger       zerolog.Logger
	startTime    time.Time
	httpServer   *http.Server
}

// NewServer creates a new API server. hub should be the publisher the
// service was built with.
func NewServer(svc *game.Service, hub *Hub, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "api").Logger()
	s := &Server{
		svc:          svc,
		hub:          hub,
		errorHandler: NewErrorHandler(logger),
		logger:       logger,
		startTime:    time.Now(),
	}

	logger.Info().
		Int("levels", svc.Catalog().Len()).
		Int("strategies", len(svc.Strategies())).
		Str("version", Version).
		Msg("server initialised")
	return s
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(s.CORSMiddleware)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/health", s.handleHealthCheck)
		r.Get("/health/ready", s.handleReadiness)
		r.Get("/health/live", s.handleLiveness)
		r.Get("/version", s.handleVersion)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Long-lived websocket stream, outside the request timeout.
		r.Get("/sessions/{id}/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/levels", s.handleListLevels)
			r.Post("/levels/unlock-all", s.handleUnlockAll)
			r.Delete("/progress", s.handleClearAll)
			r.Get("/strategies", s.handleListStrategies)

			r.Post("/sessions", s.handleStartSession)
			r.Get("/sessions/{id}", s.handleGetSession)
			r.Delete("/sessions/{id}", s.handleAbandonSession)
			r.Post("/sessions/{id}/moves", s.handleSubmitMove)
			r.Get("/sessions/{id}/history", s.handleHistory)

			r.Get("/runs", s.handleListRuns)
			r.Get("/stats/{levelID}", s.handleStats)
			r.Post("/verify", s.handleVerify)
		})
	})

	return r
}

// Start binds addr and serves in the background. It returns once the socket
// is bound.
func (s *Server) Start(addr string) (net.Addr, error) {
	s.httpServer = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("server stopped")
		}
	}()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return ln.Addr(), nil
}

// Shutdown gracefully stops the HTTP server and disconnects subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Gauntlet-Version", Version)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// CORSMiddleware allows the local UI to call the API.
func (s *Server) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
