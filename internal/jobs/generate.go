package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/pkg/errors"
)

// GenerateGame polishes the latest stored scrape of every source into
// reports, merges them into the persisted set and recomposes the game's
// summary. The stored report set of a source is only replaced when that
// source yielded at least one report this pass; sources that yielded nothing
// keep whatever was stored before. When every source comes up empty the pass
// fails with ErrNoMinedData so the caller flags the game instead of marking
// it generated.
func (j *Jobs) GenerateGame(ctx context.Context, gameID int64) error {
	var (
		allReports []domain.ReportBody
		rating     domain.Rating
		verified   *bool
		mined      int
	)

	for _, miner := range j.miners {
		source := miner.Source()

		scrape, err := j.scrapes.Latest(ctx, gameID, source)
		if err != nil {
			j.logger.Warn("Failed to load scrape",
				zap.Int64("game_id", gameID),
				zap.String("source", string(source)),
				zap.Error(err),
			)
			continue
		}
		if scrape == nil {
			continue
		}

		data := miner.Polish(&scrape.Content)
		if data.Rating != "" {
			rating = data.Rating
		}
		if data.Verified != nil {
			verified = data.Verified
		}

		if len(data.Reports) == 0 {
			continue
		}

		if err := j.reports.ReplaceForSource(ctx, gameID, source, data.Reports); err != nil {
			j.logger.Error("Failed to replace reports",
				zap.Int64("game_id", gameID),
				zap.String("source", string(source)),
				zap.Error(err),
			)
			continue
		}

		allReports = append(allReports, data.Reports...)
		mined++
	}

	if len(allReports) == 0 {
		return errors.ErrNoMinedData
	}

	if _, err := j.reports.DedupeByHash(ctx, gameID); err != nil {
		j.logger.Warn("Failed to dedupe reports", zap.Int64("game_id", gameID), zap.Error(err))
	}

	if verified == nil {
		verified = j.catalog.GetDeckVerified(ctx, gameID)
	}

	summary := j.composeSummary(ctx, gameID, allReports)

	if err := j.games.SaveGenerated(ctx, gameID, summary, string(rating), verified, time.Now()); err != nil {
		return err
	}

	j.logger.Info("Game generated",
		zap.Int64("game_id", gameID),
		zap.Int("sources", mined),
		zap.Int("reports", len(allReports)),
		zap.String("rating", string(rating)),
	)
	return nil
}

// composeSummary runs the summarizer, keeping the previously stored summary
// when the model call fails. Summarization is an enrichment; its failure
// never fails the generation pass.
func (j *Jobs) composeSummary(ctx context.Context, gameID int64, reports []domain.ReportBody) string {
	summary, err := j.summarizer.Summarize(ctx, reports)
	if err == nil {
		return summary
	}

	j.logger.Warn("Summary generation failed", zap.Int64("game_id", gameID), zap.Error(err))

	if game, findErr := j.games.Find(ctx, gameID); findErr == nil && game != nil {
		return game.PerformanceSummary
	}
	return ""
}

func (j *Jobs) markGenerationFailure(ctx context.Context, gameID int64, err error) {
	if err == errors.ErrNoMinedData {
		if markErr := j.queue.MarkRegenerateFailed(ctx, gameID); markErr != nil {
			j.logger.Warn("Failed to mark generation failure", zap.Int64("game_id", gameID), zap.Error(markErr))
		}
		return
	}
	j.logger.Error("Generate pass failed", zap.Int64("game_id", gameID), zap.Error(err))
}
