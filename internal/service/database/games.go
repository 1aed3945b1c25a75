package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
)

type GameRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewGameRepository(postgres *PostgresService, logger *zap.Logger) *GameRepository {
	return &GameRepository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

// Find retrieves a game by its Steam app id. A missing game is (nil, nil).
func (r *GameRepository) Find(ctx context.Context, gameID int64) (*domain.Game, error) {
	query := `
		SELECT game_id, steam_app, performance_summary, rating, verified,
		       rescrape_requested, regenerate_requested, generated_at,
		       created_at, updated_at
		FROM games
		WHERE game_id = $1
		LIMIT 1
	`

	var (
		game        domain.Game
		steamApp    []byte
		verified    sql.NullBool
		generatedAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, gameID).Scan(
		&game.GameID, &steamApp, &game.PerformanceSummary, &game.Rating, &verified,
		&game.RescrapeRequested, &game.RegenerateRequested, &generatedAt,
		&game.CreatedAt, &game.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query game %d: %w", gameID, err)
	}

	if len(steamApp) > 0 {
		game.SteamApp = json.RawMessage(steamApp)
	}
	if verified.Valid {
		game.Verified = &verified.Bool
	}
	if generatedAt.Valid {
		t := generatedAt.Time
		game.GeneratedAt = &t
	}
	return &game, nil
}

// Upsert creates the game row or refreshes its Steam catalog entry.
func (r *GameRepository) Upsert(ctx context.Context, gameID int64, steamApp json.RawMessage) error {
	query := `
		INSERT INTO games (game_id, steam_app, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (game_id)
		DO UPDATE SET steam_app = COALESCE(EXCLUDED.steam_app, games.steam_app),
		              updated_at = NOW()
	`

	var app any
	if len(steamApp) > 0 {
		app = []byte(steamApp)
	}
	if _, err := r.db.ExecContext(ctx, query, gameID, app); err != nil {
		return fmt.Errorf("failed to upsert game %d: %w", gameID, err)
	}
	return nil
}

// SaveGenerated stores the output of a generation pass: the composed summary
// plus the merged page-level rating and verified flag.
func (r *GameRepository) SaveGenerated(ctx context.Context, gameID int64, summary, rating string, verified *bool, generatedAt time.Time) error {
	query := `
		UPDATE games
		SET performance_summary = $2,
		    rating = $3,
		    verified = $4,
		    generated_at = $5,
		    regenerate_requested = FALSE,
		    updated_at = NOW()
		WHERE game_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, gameID, summary, rating, verified, generatedAt); err != nil {
		return fmt.Errorf("failed to save generated data for game %d: %w", gameID, err)
	}
	return nil
}

// RequestRefresh marks a game for the next queue pass.
func (r *GameRepository) RequestRefresh(ctx context.Context, gameID int64, rescrape, regenerate bool) error {
	query := `
		UPDATE games
		SET rescrape_requested = rescrape_requested OR $2,
		    regenerate_requested = regenerate_requested OR $3,
		    updated_at = NOW()
		WHERE game_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, gameID, rescrape, regenerate)
	if err != nil {
		return fmt.Errorf("failed to request refresh for game %d: %w", gameID, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("game %d not found", gameID)
	}
	return nil
}

// ClearRefreshFlags resets the request flags after the game is queued.
func (r *GameRepository) ClearRefreshFlags(ctx context.Context, gameID int64) error {
	query := `
		UPDATE games
		SET rescrape_requested = FALSE,
		    regenerate_requested = FALSE,
		    updated_at = NOW()
		WHERE game_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, gameID); err != nil {
		return fmt.Errorf("failed to clear refresh flags for game %d: %w", gameID, err)
	}
	return nil
}

// FindRefreshCandidates lists games whose data is stale or explicitly flagged
// for a refresh, oldest first.
func (r *GameRepository) FindRefreshCandidates(ctx context.Context, staleBefore time.Time, limit int) ([]domain.Game, error) {
	query := `
		SELECT game_id, rescrape_requested, regenerate_requested, generated_at
		FROM games
		WHERE rescrape_requested
		   OR regenerate_requested
		   OR generated_at IS NULL
		   OR generated_at < $1
		ORDER BY generated_at ASC NULLS FIRST
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh candidates: %w", err)
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		var (
			game        domain.Game
			generatedAt sql.NullTime
		)
		if err := rows.Scan(&game.GameID, &game.RescrapeRequested, &game.RegenerateRequested, &generatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan refresh candidate: %w", err)
		}
		if generatedAt.Valid {
			t := generatedAt.Time
			game.GeneratedAt = &t
		}
		games = append(games, game)
	}
	return games, rows.Err()
}
