// Package server exposes the read API over the mined data plus the refresh
// trigger. The surface is deliberately thin: everything interesting happens
// in the background jobs.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/config"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/constants"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/service/cache"
)

type GameReader interface {
	Find(ctx context.Context, gameID int64) (*domain.Game, error)
	Upsert(ctx context.Context, gameID int64, steamApp json.RawMessage) error
	RequestRefresh(ctx context.Context, gameID int64, rescrape, regenerate bool) error
}

type ReportReader interface {
	ListByGame(ctx context.Context, gameID int64) ([]domain.GameReport, error)
}

type Server struct {
	httpServer *http.Server
	games      GameReader
	reports    ReportReader
	cache      *cache.CacheService
	logger     *zap.Logger
}

func New(cfg config.ServerConfig, games GameReader, reports ReportReader, cacheService *cache.CacheService, logger *zap.Logger) *Server {
	s := &Server{
		games:   games,
		reports: reports,
		cache:   cacheService,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /games/{id}", s.handleGetGame)
	mux.HandleFunc("GET /games/{id}/reports", s.handleGetReports)
	mux.HandleFunc("POST /games/{id}/refresh", s.handleRefresh)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.logRequests(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the routed handler; tests drive it directly.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := s.gameID(w, r)
	if !ok {
		return
	}

	game, err := s.games.Find(r.Context(), gameID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load game")
		return
	}
	if game == nil {
		s.writeError(w, http.StatusNotFound, "game not found")
		return
	}
	s.writeJSON(w, http.StatusOK, game)
}

func (s *Server) handleGetReports(w http.ResponseWriter, r *http.Request) {
	gameID, ok := s.gameID(w, r)
	if !ok {
		return
	}

	cacheKey := fmt.Sprintf("api:reports:%d", gameID)
	if s.cache != nil {
		var cached []domain.GameReport
		if found, err := s.cache.Get(r.Context(), cacheKey, &cached); err == nil && found {
			s.writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	reports, err := s.reports.ListByGame(r.Context(), gameID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load reports")
		return
	}
	if reports == nil {
		reports = []domain.GameReport{}
	}

	if s.cache != nil {
		if err := s.cache.Set(r.Context(), cacheKey, reports, constants.CacheTTL.GameReports); err != nil {
			s.logger.Debug("Failed to cache reports", zap.Int64("game_id", gameID), zap.Error(err))
		}
	}
	s.writeJSON(w, http.StatusOK, reports)
}

// handleRefresh flags a game for the next queue pass, creating its row first
// when the game has never been seen.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	gameID, ok := s.gameID(w, r)
	if !ok {
		return
	}

	game, err := s.games.Find(r.Context(), gameID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load game")
		return
	}
	if game == nil {
		if err := s.games.Upsert(r.Context(), gameID, nil); err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to register game")
			return
		}
	}

	if err := s.games.RequestRefresh(r.Context(), gameID, true, true); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to request refresh")
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"game_id": gameID,
		"status":  "queued",
	})
}

func (s *Server) gameID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid game id")
		return 0, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)),
		)
	})
}
