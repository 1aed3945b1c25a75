// Package jobs holds the background pipeline: queueing stale games, scraping
// their source pages and regenerating their merged report set and summary.
package jobs

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/config"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/mining"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/service/steam"
)

type GameStore interface {
	Find(ctx context.Context, gameID int64) (*domain.Game, error)
	Upsert(ctx context.Context, gameID int64, steamApp json.RawMessage) error
	SaveGenerated(ctx context.Context, gameID int64, summary, rating string, verified *bool, generatedAt time.Time) error
	ClearRefreshFlags(ctx context.Context, gameID int64) error
	FindRefreshCandidates(ctx context.Context, staleBefore time.Time, limit int) ([]domain.Game, error)
}

type QueueStore interface {
	Enqueue(ctx context.Context, gameID int64, rescrape, regenerate bool) error
	NextBatch(ctx context.Context, limit int) ([]domain.QueueItem, error)
	MarkRescraped(ctx context.Context, gameID int64) error
	MarkRegenerated(ctx context.Context, gameID int64) error
	MarkRegenerateFailed(ctx context.Context, gameID int64) error
	Remove(ctx context.Context, gameID int64) error
}

type ReportStore interface {
	ReplaceForSource(ctx context.Context, gameID int64, source domain.Source, reports []domain.ReportBody) error
	DedupeByHash(ctx context.Context, gameID int64) (int64, error)
}

type ScrapeStore interface {
	Save(ctx context.Context, scrape *domain.Scrape) error
	Latest(ctx context.Context, gameID int64, source domain.Source) (*domain.Scrape, error)
}

// Catalog is the Steam storefront boundary used to refresh catalog entries
// and read the official Deck compatibility flag.
type Catalog interface {
	GetAppDetails(ctx context.Context, gameID int64) (*steam.AppDetails, error)
	GetDeckVerified(ctx context.Context, gameID int64) *bool
}

type Summarizer interface {
	Summarize(ctx context.Context, reports []domain.ReportBody) (string, error)
}

type Jobs struct {
	games      GameStore
	queue      QueueStore
	reports    ReportStore
	scrapes    ScrapeStore
	catalog    Catalog
	summarizer Summarizer
	miners     []mining.Miner
	cfg        config.JobsConfig
	logger     *zap.Logger
}

func New(
	games GameStore,
	queue QueueStore,
	reports ReportStore,
	scrapes ScrapeStore,
	catalog Catalog,
	summarizer Summarizer,
	miners []mining.Miner,
	cfg config.JobsConfig,
	logger *zap.Logger,
) *Jobs {
	return &Jobs{
		games:      games,
		queue:      queue,
		reports:    reports,
		scrapes:    scrapes,
		catalog:    catalog,
		summarizer: summarizer,
		miners:     miners,
		cfg:        cfg,
		logger:     logger,
	}
}
