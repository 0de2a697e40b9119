package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/service"
)

// Server handles HTTP requests
type Server struct {
	reels          *service.Reels
	errorHandler   *ErrorHandler
	logger         *zap.Logger
	allowedOrigins []string
	hub            *Hub
	startTime      time.Time
}

// NewServer creates a new API server over reels. A nil logger discards.
func NewServer(reels *service.Reels, logger *zap.Logger, allowedOrigins []string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")

	s := &Server{
		reels:          reels,
		errorHandler:   NewErrorHandler(logger),
		logger:         logger,
		allowedOrigins: allowedOrigins,
		hub:            NewHub(logger),
		startTime:      time.Now(),
	}
	reels.Subscribe(s.hub.Broadcast)

	logger.Info("api server created",
		zap.String("engine_version", engine.Version),
		zap.Strings("allowed_origins", allowedOrigins))
	return s
}

// Routes sets up the HTTP routes with middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Engine-Version", "X-Error-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/api/v1", func(r chi.Router) {
		// The stream is long-lived and must not sit behind the timeout.
		r.Get("/stream", s.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/state", s.handleState)
			r.Post("/start", s.handleStart)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/rows/{row}/rotate", s.handleRotate)
			r.Get("/sessions", s.handleListSessions)
			r.Get("/sessions/{id}", s.handleGetSession)
			r.Get("/sessions/{id}/results", s.handleSessionResults)
			r.Get("/sessions/{id}/export", s.handleSessionExport)
			r.Post("/verify", s.handleVerify)
			r.Post("/seed/hash", s.handleSeedHash)
		})
	})

	return r
}

// Close disconnects stream clients.
func (s *Server) Close() {
	s.hub.Close()
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", engine.Version)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// decodeJSON reads a request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
