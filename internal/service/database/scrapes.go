package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
)

type ScrapeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewScrapeRepository(postgres *PostgresService, logger *zap.Logger) *ScrapeRepository {
	return &ScrapeRepository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

// Save stores a raw scrape for later re-polishing. The content hash lets a
// subsequent scrape of the same page short-circuit when nothing changed.
func (r *ScrapeRepository) Save(ctx context.Context, scrape *domain.Scrape) error {
	content, err := json.Marshal(scrape.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal scraped content: %w", err)
	}

	query := `
		INSERT INTO game_scrapes (game_id, source, content, hash)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, scrape.GameID, scrape.Source, content, scrape.Hash); err != nil {
		return fmt.Errorf("failed to save %s scrape for game %d: %w", scrape.Source, scrape.GameID, err)
	}
	return nil
}

// Latest returns the most recent stored scrape of a (game, source) pair, or
// (nil, nil) when the pair has never been scraped.
func (r *ScrapeRepository) Latest(ctx context.Context, gameID int64, source domain.Source) (*domain.Scrape, error) {
	query := `
		SELECT game_id, source, content, hash, created_at
		FROM game_scrapes
		WHERE game_id = $1 AND source = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var (
		scrape  domain.Scrape
		src     string
		content []byte
	)
	err := r.db.QueryRowContext(ctx, query, gameID, source).Scan(
		&scrape.GameID, &src, &content, &scrape.Hash, &scrape.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest %s scrape for game %d: %w", source, gameID, err)
	}

	if err := json.Unmarshal(content, &scrape.Content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scraped content: %w", err)
	}
	scrape.Source = domain.Source(src)
	return &scrape, nil
}

// Prune deletes all but the newest keep scrapes of each (game, source) pair.
func (r *ScrapeRepository) Prune(ctx context.Context, keep int) (int64, error) {
	query := `
		DELETE FROM game_scrapes
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY game_id, source ORDER BY created_at DESC
				) AS rank
				FROM game_scrapes
			) ranked
			WHERE ranked.rank > $1
		)
	`

	result, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune scrapes: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	if deleted > 0 {
		r.logger.Info("Old scrapes pruned", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
