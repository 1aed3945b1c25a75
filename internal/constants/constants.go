package constants

import "time"

var CacheTTL = struct {
	SteamAppDetails time.Duration
	SteamDeckStatus time.Duration
	ScrapedPage     time.Duration
	GameReports     time.Duration
}{
	SteamAppDetails: 24 * time.Hour,
	SteamDeckStatus: 12 * time.Hour,
	ScrapedPage:     30 * time.Minute,
	GameReports:     5 * time.Minute,
}

var ScraperConfig = struct {
	RequestTimeout time.Duration
	UserAgent      string
}{
	RequestTimeout: 15 * time.Second,
	UserAgent:      "Mozilla/5.0 (compatible; SteamdeckDBBot/1.0)",
}

var SummaryConfig = struct {
	MaxTokens   int
	Temperature float32
}{
	MaxTokens:   300,
	Temperature: 0.3,
}

var RedisDefaults = struct {
	ReadyTimeout time.Duration
}{
	ReadyTimeout: 5 * time.Second,
}
