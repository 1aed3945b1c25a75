package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
)

// ScrapeGame fetches all source pages for a game concurrently and stores
// each scrape. A source failing or returning nothing is logged and skipped;
// the pass succeeds as long as it ran. Unchanged pages (same content hash as
// the stored scrape) are not stored again.
func (j *Jobs) ScrapeGame(ctx context.Context, gameID int64) error {
	p := pool.New().WithMaxGoroutines(len(j.miners))

	var (
		mu      sync.Mutex
		scraped int
		skipped int
	)

	for _, miner := range j.miners {
		miner := miner
		p.Go(func() {
			source := miner.Source()

			content, err := miner.Mine(ctx, gameID)
			if err != nil {
				j.logger.Warn("Source scrape failed",
					zap.Int64("game_id", gameID),
					zap.String("source", string(source)),
					zap.Error(err),
				)
				return
			}
			if content == nil {
				return
			}

			hash := content.Hash()
			if latest, err := j.scrapes.Latest(ctx, gameID, source); err == nil && latest != nil && latest.Hash == hash {
				j.logger.Debug("Page unchanged since last scrape",
					zap.Int64("game_id", gameID),
					zap.String("source", string(source)),
				)
				mu.Lock()
				skipped++
				mu.Unlock()
				return
			}

			if err := j.scrapes.Save(ctx, &domain.Scrape{
				GameID:    gameID,
				Source:    source,
				Content:   *content,
				Hash:      hash,
				CreatedAt: time.Now(),
			}); err != nil {
				j.logger.Error("Failed to save scrape",
					zap.Int64("game_id", gameID),
					zap.String("source", string(source)),
					zap.Error(err),
				)
				return
			}

			mu.Lock()
			scraped++
			mu.Unlock()
		})
	}

	p.Wait()

	j.logger.Info("Scrape pass finished",
		zap.Int64("game_id", gameID),
		zap.Int("scraped", scraped),
		zap.Int("unchanged", skipped),
	)
	return ctx.Err()
}
