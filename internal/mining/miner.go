// Package mining converts raw scraped page content into structured game
// compatibility reports. Each supported site gets one Miner; the polish step
// of every miner is a pure function of its ScrapedContent input.
package mining

import (
	"context"
	"regexp"
	"strings"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
)

// Fetcher is the external page-fetch boundary that produces structured
// content for a URL. A result with nil Sections is a valid empty scrape.
type Fetcher interface {
	Scrape(ctx context.Context, url string) (*domain.ScrapedContent, error)
	Close() error
}

// GameCatalog resolves a game id to its catalog display name. Only the
// SteamDeckHQ miner needs it, since that site keys review pages by slug.
type GameCatalog interface {
	GameName(ctx context.Context, gameID int64) (string, error)
}

// Miner is the per-source contract. Mine drives the fetch boundary; Polish is
// pure and must never fail on missing or malformed content.
type Miner interface {
	Source() domain.Source
	URL(ctx context.Context, gameID int64) (string, error)
	Mine(ctx context.Context, gameID int64) (*domain.ScrapedContent, error)
	Polish(content *domain.ScrapedContent) *domain.MinedData
	Close() error
}

// ForSource returns the miner matching the given source tag, or nil.
func ForSource(miners []Miner, source domain.Source) Miner {
	for _, m := range miners {
		if m.Source() == source {
			return m
		}
	}
	return nil
}

func emptyMinedData() *domain.MinedData {
	return &domain.MinedData{Reports: []domain.ReportBody{}}
}

// joinParagraphs renders paragraphs the way the sites display them: blocks
// separated by a blank line.
func joinParagraphs(paragraphs []string) string {
	return strings.Join(paragraphs, "\n\n")
}

// valueAfterLabel scans entries for the first one matching label and returns
// the entry that follows it. A missing label, or a label sitting at the end
// of the array, yields "" rather than an error: label/value pairs are flat
// positional data and absence is an expected outcome.
func valueAfterLabel(entries []string, label *regexp.Regexp) string {
	for i, entry := range entries {
		if label.MatchString(entry) {
			if i+1 < len(entries) {
				return entries[i+1]
			}
			return ""
		}
	}
	return ""
}

var leadingNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// extractNumber pulls the first integer or decimal out of a unit-qualified
// value ("45FPS" -> "45", "1600MHz" -> "1600"). No digits means no value.
func extractNumber(text string) string {
	return leadingNumber.FindString(text)
}
