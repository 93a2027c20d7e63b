// Package server exposes the game engine over HTTP with JSON bodies.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"draftosaurus-server/internal/config"
	"draftosaurus-server/internal/pkg/db"
	"draftosaurus-server/internal/repository"
	"draftosaurus-server/internal/service"
)

// Server is the HTTP front of the game engine.
type Server struct {
	httpServer *http.Server
	pool       *db.Pool
	users      *repository.UserRepository
	play       *service.PlayService
	recovery   *service.RecoveryService
}

// New wires the routes and returns a ready-to-start server.
func New(
	cfg config.ServerConfig,
	pool *db.Pool,
	users *repository.UserRepository,
	play *service.PlayService,
	recovery *service.RecoveryService,
) *Server {
	s := &Server{
		pool:     pool,
		users:    users,
		play:     play,
		recovery: recovery,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/users", s.handleCreateUser)
	mux.HandleFunc("GET /api/users/{id}", s.handleGetUser)

	mux.HandleFunc("POST /api/games", s.handleStartGame)
	mux.HandleFunc("GET /api/games/pending", s.handlePendingGames)
	mux.HandleFunc("GET /api/games/{id}", s.handleGameSnapshot)
	mux.HandleFunc("POST /api/games/{id}/turns", s.handleProcessTurn)
	mux.HandleFunc("POST /api/games/{id}/rolls", s.handleRollDie)
	mux.HandleFunc("POST /api/games/{id}/expire", s.handleExpireTurn)
	mux.HandleFunc("GET /api/games/{id}/enclosures", s.handleEnclosures)
	mux.HandleFunc("GET /api/games/{id}/targets", s.handleLegalTargets)
	mux.HandleFunc("GET /api/games/{id}/scores", s.handleScores)
	mux.HandleFunc("GET /api/games/{id}/bag", s.handlePlayerBag)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      logRequests(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.HealthCheck(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("database unreachable: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
