package domain

import (
	"encoding/json"
	"time"
)

// Game is the per-game record composed by the generate job: Steam catalog
// details, page-level compatibility signals and the AI performance summary.
// The mined reports live in their own collection keyed by game id.
type Game struct {
	GameID              int64           `json:"game_id"`
	SteamApp            json.RawMessage `json:"steam_app,omitempty"`
	PerformanceSummary  string          `json:"game_performance_summary,omitempty"`
	Rating              Rating          `json:"steamdeck_rating,omitempty"`
	Verified            *bool           `json:"steamdeck_verified,omitempty"`
	RescrapeRequested   bool            `json:"rescrape_requested,omitempty"`
	RegenerateRequested bool            `json:"regenerate_requested,omitempty"`
	GeneratedAt         *time.Time      `json:"generated_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// QueueItem is one unit of pending work for the scrape/generate jobs.
type QueueItem struct {
	GameID           int64      `json:"game_id"`
	Rescrape         bool       `json:"rescrape"`
	Regenerate       bool       `json:"regenerate"`
	RegenerateFailed bool       `json:"regenerate_failed"`
	RescrapedAt      *time.Time `json:"rescraped_at,omitempty"`
	RegeneratedAt    *time.Time `json:"regenerated_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
