// Package ai composes the per-game performance summary: it selects the notes
// worth summarizing, prompts an external model and cleans the response.
// Gemini is the primary backend with OpenAI as an optional fallback.
package ai

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
)

var errNoProvider = errors.New("no summary provider configured")

type Summarizer struct {
	primary  SummaryProvider
	fallback SummaryProvider
	logger   *zap.Logger
}

func NewSummarizer(primary, fallback SummaryProvider, logger *zap.Logger) *Summarizer {
	return &Summarizer{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Summarize builds and runs the summary for a game's mined reports. When no
// report carries usable notes the summary is empty, which is a valid outcome
// rather than an error; provider failures surface so the caller can decide
// to keep the previous summary.
func (s *Summarizer) Summarize(ctx context.Context, reports []domain.ReportBody) (string, error) {
	input := BuildSummaryInput(reports)
	if input == "" {
		s.logger.Debug("No summarizable notes")
		return "", nil
	}

	prompt := SummaryPrompt(input)

	text, err := s.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return CleanSummary(text), nil
}

func (s *Summarizer) generate(ctx context.Context, prompt string) (string, error) {
	if s.primary != nil {
		text, err := s.primary.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		s.logger.Warn("Primary summary provider failed",
			zap.String("provider", s.primary.Name()),
			zap.Error(err),
		)
		if s.fallback == nil {
			return "", err
		}
	}

	if s.fallback == nil {
		return "", errNoProvider
	}

	s.logger.Info("Falling back to secondary summary provider",
		zap.String("provider", s.fallback.Name()),
	)
	return s.fallback.Generate(ctx, prompt)
}
