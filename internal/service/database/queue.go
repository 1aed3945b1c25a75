package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
)

type QueueRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewQueueRepository(postgres *PostgresService, logger *zap.Logger) *QueueRepository {
	return &QueueRepository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

// Enqueue inserts or refreshes a queue entry. Re-enqueueing an existing entry
// widens what it asks for instead of overwriting it.
func (r *QueueRepository) Enqueue(ctx context.Context, gameID int64, rescrape, regenerate bool) error {
	query := `
		INSERT INTO games_queue (game_id, rescrape, regenerate)
		VALUES ($1, $2, $3)
		ON CONFLICT (game_id)
		DO UPDATE SET rescrape = games_queue.rescrape OR EXCLUDED.rescrape,
		              regenerate = games_queue.regenerate OR EXCLUDED.regenerate,
		              regenerate_failed = FALSE,
		              updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, gameID, rescrape, regenerate); err != nil {
		return fmt.Errorf("failed to enqueue game %d: %w", gameID, err)
	}
	return nil
}

// NextBatch returns the oldest pending entries. Entries whose last generation
// failed stay queued but only surface again once re-enqueued.
func (r *QueueRepository) NextBatch(ctx context.Context, limit int) ([]domain.QueueItem, error) {
	query := `
		SELECT game_id, rescrape, regenerate, regenerate_failed,
		       rescraped_at, regenerated_at, created_at, updated_at
		FROM games_queue
		WHERE (rescrape OR regenerate) AND NOT regenerate_failed
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue batch: %w", err)
	}
	defer rows.Close()

	var items []domain.QueueItem
	for rows.Next() {
		var (
			item          domain.QueueItem
			rescrapedAt   sql.NullTime
			regeneratedAt sql.NullTime
		)
		if err := rows.Scan(
			&item.GameID, &item.Rescrape, &item.Regenerate, &item.RegenerateFailed,
			&rescrapedAt, &regeneratedAt, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		if rescrapedAt.Valid {
			t := rescrapedAt.Time
			item.RescrapedAt = &t
		}
		if regeneratedAt.Valid {
			t := regeneratedAt.Time
			item.RegeneratedAt = &t
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkRescraped clears the rescrape flag after a successful scrape pass.
func (r *QueueRepository) MarkRescraped(ctx context.Context, gameID int64) error {
	query := `
		UPDATE games_queue
		SET rescrape = FALSE, rescraped_at = NOW(), updated_at = NOW()
		WHERE game_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, gameID); err != nil {
		return fmt.Errorf("failed to mark game %d rescraped: %w", gameID, err)
	}
	return nil
}

// MarkRegenerated clears the regenerate flag after a successful generation.
func (r *QueueRepository) MarkRegenerated(ctx context.Context, gameID int64) error {
	query := `
		UPDATE games_queue
		SET regenerate = FALSE, regenerate_failed = FALSE,
		    regenerated_at = NOW(), updated_at = NOW()
		WHERE game_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, gameID); err != nil {
		return fmt.Errorf("failed to mark game %d regenerated: %w", gameID, err)
	}
	return nil
}

// MarkRegenerateFailed records a generation pass that produced no data. The
// entry stays queued for inspection but stops surfacing in batches.
func (r *QueueRepository) MarkRegenerateFailed(ctx context.Context, gameID int64) error {
	query := `
		UPDATE games_queue
		SET regenerate_failed = TRUE, updated_at = NOW()
		WHERE game_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, gameID); err != nil {
		return fmt.Errorf("failed to mark game %d regenerate-failed: %w", gameID, err)
	}
	r.logger.Warn("Generation produced no data", zap.Int64("game_id", gameID))
	return nil
}

// Remove deletes a fully processed entry.
func (r *QueueRepository) Remove(ctx context.Context, gameID int64) error {
	query := `DELETE FROM games_queue WHERE game_id = $1 AND NOT rescrape AND NOT regenerate AND NOT regenerate_failed`
	if _, err := r.db.ExecContext(ctx, query, gameID); err != nil {
		return fmt.Errorf("failed to remove game %d from queue: %w", gameID, err)
	}
	return nil
}
