package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
)

type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewReportRepository(postgres *PostgresService, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

// ListByGame returns all stored reports for a game across every source.
func (r *ReportRepository) ListByGame(ctx context.Context, gameID int64) ([]domain.GameReport, error) {
	query := `
		SELECT game_id, source, body, content_hash, created_at, updated_at
		FROM game_reports
		WHERE game_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports for game %d: %w", gameID, err)
	}
	defer rows.Close()

	return scanReports(rows)
}

// ListByGameSource returns the stored reports of one source for a game.
func (r *ReportRepository) ListByGameSource(ctx context.Context, gameID int64, source domain.Source) ([]domain.GameReport, error) {
	query := `
		SELECT game_id, source, body, content_hash, created_at, updated_at
		FROM game_reports
		WHERE game_id = $1 AND source = $2
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, gameID, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s reports for game %d: %w", source, gameID, err)
	}
	defer rows.Close()

	return scanReports(rows)
}

// ReplaceForSource swaps the stored report set of one (game, source) pair for
// the freshly mined one in a single transaction. Reports of other sources are
// untouched; callers must not invoke this with an empty mined set, since a
// failed scrape must never erase previously stored reports.
func (r *ReportRepository) ReplaceForSource(ctx context.Context, gameID int64, source domain.Source, reports []domain.ReportBody) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin report replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM game_reports WHERE game_id = $1 AND source = $2`,
		gameID, source,
	); err != nil {
		return fmt.Errorf("failed to delete %s reports for game %d: %w", source, gameID, err)
	}

	insert := `
		INSERT INTO game_reports (game_id, source, body, content_hash)
		VALUES ($1, $2, $3, $4)
	`
	for i := range reports {
		body, err := json.Marshal(&reports[i])
		if err != nil {
			return fmt.Errorf("failed to marshal report body: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert, gameID, source, body, reports[i].Hash()); err != nil {
			return fmt.Errorf("failed to insert %s report for game %d: %w", source, gameID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report replace: %w", err)
	}

	r.logger.Debug("Reports replaced",
		zap.Int64("game_id", gameID),
		zap.String("source", string(source)),
		zap.Int("count", len(reports)),
	)
	return nil
}

// DedupeByHash deletes duplicate rows sharing a content hash for a game,
// keeping the oldest row of each hash.
func (r *ReportRepository) DedupeByHash(ctx context.Context, gameID int64) (int64, error) {
	query := `
		DELETE FROM game_reports
		WHERE game_id = $1
		  AND id NOT IN (
			SELECT MIN(id) FROM game_reports
			WHERE game_id = $1
			GROUP BY content_hash
		  )
	`

	result, err := r.db.ExecContext(ctx, query, gameID)
	if err != nil {
		return 0, fmt.Errorf("failed to dedupe reports for game %d: %w", gameID, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	if deleted > 0 {
		r.logger.Debug("Duplicate reports removed",
			zap.Int64("game_id", gameID),
			zap.Int64("deleted", deleted),
		)
	}
	return deleted, nil
}

func scanReports(rows *sql.Rows) ([]domain.GameReport, error) {
	var reports []domain.GameReport
	for rows.Next() {
		var (
			report domain.GameReport
			source string
			body   []byte
		)
		if err := rows.Scan(&report.GameID, &source, &body, &report.ContentHash, &report.CreatedAt, &report.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		if err := json.Unmarshal(body, &report.ReportBody); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report body: %w", err)
		}
		report.Source = domain.Source(source)
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
