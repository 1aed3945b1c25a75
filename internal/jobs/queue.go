package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// QueueGames moves stale or explicitly flagged games into the work queue.
// A game qualifies when its generated data is older than the configured
// window, has never been generated, or a refresh was requested through the
// API. Queued games get their request flags cleared so they are not picked
// up twice.
func (j *Jobs) QueueGames(ctx context.Context) error {
	staleBefore := time.Now().Add(-j.cfg.RegenerateAfter)

	candidates, err := j.games.FindRefreshCandidates(ctx, staleBefore, j.cfg.GamesPerRun)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		j.logger.Debug("No games to queue")
		return nil
	}

	queued := 0
	for _, game := range candidates {
		rescrape := game.RescrapeRequested || game.GeneratedAt == nil ||
			time.Since(*game.GeneratedAt) > j.cfg.RescrapeAfter

		if err := j.queue.Enqueue(ctx, game.GameID, rescrape, true); err != nil {
			j.logger.Error("Failed to enqueue game", zap.Int64("game_id", game.GameID), zap.Error(err))
			continue
		}
		if err := j.games.ClearRefreshFlags(ctx, game.GameID); err != nil {
			j.logger.Warn("Failed to clear refresh flags", zap.Int64("game_id", game.GameID), zap.Error(err))
		}
		queued++
	}

	j.logger.Info("Games queued", zap.Int("queued", queued), zap.Int("candidates", len(candidates)))
	return nil
}

// ProcessQueue works through the oldest pending queue entries. Each entry
// gets its requested passes; a game whose generation found no data anywhere
// is marked failed and stops surfacing until re-enqueued.
func (j *Jobs) ProcessQueue(ctx context.Context) error {
	items, err := j.queue.NextBatch(ctx, j.cfg.GamesPerRun)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		j.logger.Debug("Queue is empty")
		return nil
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		j.processItem(ctx, item.GameID, item.Rescrape, item.Regenerate)
	}

	j.logger.Info("Queue batch processed", zap.Int("items", len(items)))
	return nil
}

func (j *Jobs) processItem(ctx context.Context, gameID int64, rescrape, regenerate bool) {
	if rescrape {
		j.refreshCatalogEntry(ctx, gameID)

		if err := j.ScrapeGame(ctx, gameID); err != nil {
			j.logger.Error("Scrape pass failed", zap.Int64("game_id", gameID), zap.Error(err))
			return
		}
		if err := j.queue.MarkRescraped(ctx, gameID); err != nil {
			j.logger.Warn("Failed to mark rescraped", zap.Int64("game_id", gameID), zap.Error(err))
		}
	}

	if regenerate {
		if err := j.GenerateGame(ctx, gameID); err != nil {
			j.markGenerationFailure(ctx, gameID, err)
			return
		}
		if err := j.queue.MarkRegenerated(ctx, gameID); err != nil {
			j.logger.Warn("Failed to mark regenerated", zap.Int64("game_id", gameID), zap.Error(err))
		}
	}

	if err := j.queue.Remove(ctx, gameID); err != nil {
		j.logger.Warn("Failed to remove queue entry", zap.Int64("game_id", gameID), zap.Error(err))
	}
}

func (j *Jobs) refreshCatalogEntry(ctx context.Context, gameID int64) {
	details, err := j.catalog.GetAppDetails(ctx, gameID)
	if err != nil {
		j.logger.Warn("Catalog lookup failed", zap.Int64("game_id", gameID), zap.Error(err))
		return
	}

	if details == nil {
		if err := j.games.Upsert(ctx, gameID, nil); err != nil {
			j.logger.Warn("Failed to upsert game", zap.Int64("game_id", gameID), zap.Error(err))
		}
		return
	}
	if err := j.games.Upsert(ctx, gameID, details.Raw); err != nil {
		j.logger.Warn("Failed to upsert game", zap.Int64("game_id", gameID), zap.Error(err))
	}
}
