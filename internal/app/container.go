package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/config"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/constants"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/jobs"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/mining"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/server"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/service/ai"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/service/cache"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/service/database"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/service/scraper"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/service/steam"
)

// Container bundles the assembled services. Both binaries build the same
// graph; the API binary uses Server, the worker uses Jobs.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Cache    *cache.CacheService
	Postgres *database.PostgresService

	Games   *database.GameRepository
	Reports *database.ReportRepository
	Scrapes *database.ScrapeRepository
	Queue   *database.QueueRepository

	Steam   *steam.Client
	Scraper *scraper.StructuredScraper
	Miners  []mining.Miner

	Summarizer *ai.Summarizer
	Jobs       *jobs.Jobs
	Server     *server.Server

	closers []func()
}

// Build assembles the full dependency graph. All heavy-weight initialization
// (DB/cache/AI clients) happens here so the binaries stay thin.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	c := &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	// Cache and database
	cacheSvc, err := cache.NewCacheService(cache.CacheConfig{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache service: %w", err)
	}
	c.Cache = cacheSvc
	c.closers = append(c.closers, func() { _ = cacheSvc.Close() })

	if err := cacheSvc.WaitUntilReady(ctx, constants.RedisDefaults.ReadyTimeout); err != nil {
		return nil, fmt.Errorf("redis not ready: %w", err)
	}

	postgresSvc, err := database.NewPostgresService(cfg.Database.DSN(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres service: %w", err)
	}
	c.Postgres = postgresSvc
	c.closers = append(c.closers, func() { _ = postgresSvc.Close() })

	if err := postgresSvc.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	c.Games = database.NewGameRepository(postgresSvc, logger)
	c.Reports = database.NewReportRepository(postgresSvc, logger)
	c.Scrapes = database.NewScrapeRepository(postgresSvc, logger)
	c.Queue = database.NewQueueRepository(postgresSvc, logger)

	// Fetch boundary
	c.Steam = steam.NewClient(cacheSvc, logger)
	c.Scraper = scraper.NewStructuredScraper(cacheSvc, cfg.Scraper.UserAgent, logger)
	c.Miners = []mining.Miner{
		mining.NewProtonDBMiner(c.Scraper),
		mining.NewShareDeckMiner(c.Scraper),
		mining.NewSteamDeckHQMiner(c.Scraper, c.Steam),
	}

	// Summarization
	gemini, err := ai.NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini provider: %w", err)
	}

	var primary, fallback ai.SummaryProvider
	if gemini != nil {
		primary = gemini
	}
	if cfg.OpenAI.EnableFallback || primary == nil {
		if openaiProvider := ai.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger); openaiProvider != nil {
			if primary == nil {
				primary = openaiProvider
			} else {
				fallback = openaiProvider
			}
		}
	}
	c.Summarizer = ai.NewSummarizer(primary, fallback, logger)

	c.Jobs = jobs.New(c.Games, c.Queue, c.Reports, c.Scrapes, c.Steam, c.Summarizer, c.Miners, cfg.Jobs, logger)
	c.Server = server.New(cfg.Server, c.Games, c.Reports, cacheSvc, logger)

	logger.Info("Container built",
		zap.Int("miners", len(c.Miners)),
		zap.Bool("summary_fallback", fallback != nil),
	)
	return c, nil
}

// Close tears the graph down in reverse build order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
