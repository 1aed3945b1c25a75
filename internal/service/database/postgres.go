package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type PostgresService struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresService(dsn string, logger *zap.Logger) (*PostgresService, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("PostgreSQL connected")

	return &PostgresService{
		db:     db,
		logger: logger,
	}, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS games (
		game_id              BIGINT PRIMARY KEY,
		steam_app            JSONB,
		performance_summary  TEXT NOT NULL DEFAULT '',
		rating               TEXT NOT NULL DEFAULT '',
		verified             BOOLEAN,
		rescrape_requested   BOOLEAN NOT NULL DEFAULT FALSE,
		regenerate_requested BOOLEAN NOT NULL DEFAULT FALSE,
		generated_at         TIMESTAMPTZ,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS game_reports (
		id           BIGSERIAL PRIMARY KEY,
		game_id      BIGINT NOT NULL,
		source       TEXT NOT NULL,
		body         JSONB NOT NULL,
		content_hash TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_game_reports_game_source ON game_reports (game_id, source)`,
	`CREATE INDEX IF NOT EXISTS idx_game_reports_hash ON game_reports (game_id, content_hash)`,
	`CREATE TABLE IF NOT EXISTS game_scrapes (
		id         BIGSERIAL PRIMARY KEY,
		game_id    BIGINT NOT NULL,
		source     TEXT NOT NULL,
		content    JSONB NOT NULL,
		hash       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_game_scrapes_game_source ON game_scrapes (game_id, source, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS games_queue (
		game_id           BIGINT PRIMARY KEY,
		rescrape          BOOLEAN NOT NULL DEFAULT TRUE,
		regenerate        BOOLEAN NOT NULL DEFAULT TRUE,
		regenerate_failed BOOLEAN NOT NULL DEFAULT FALSE,
		rescraped_at      TIMESTAMPTZ,
		regenerated_at    TIMESTAMPTZ,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
// Statements are idempotent so startup can always run this.
func (ps *PostgresService) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := ps.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	ps.logger.Info("Database schema ensured")
	return nil
}

func (ps *PostgresService) GetDB() *sql.DB {
	return ps.db
}

func (ps *PostgresService) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}

func (ps *PostgresService) Ping(ctx context.Context) error {
	return ps.db.PingContext(ctx)
}
