package mining

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/util"
)

const (
	steamdeckhqBaseURL  = "https://steamdeckhq.com"
	steamdeckhqSiteName = "Steam Deck HQ"
)

// SteamDeckHQ review pages expose three anchored sections.
const (
	steamdeckhqReviewSection      = "review"
	steamdeckhqRecommendedSection = "recommended"
	steamdeckhqTimeSection        = "entry-time"
)

// Fixed positions of the Deck settings inside the recommended section's
// otherText. One mapping, so an upstream layout shift is a one-line fix.
const (
	steamdeckhqFrameRateCapIndex  = 0
	steamdeckhqRefreshRateIndex   = 3
	steamdeckhqTDPLimitIndex      = 8
	steamdeckhqScalingFilterIndex = 10
	steamdeckhqGPUClockIndex      = 12
)

// Battery figures are interleaved inconsistently with the positional data,
// so they are found by shape instead of position.
var (
	steamdeckhqConsumption = regexp.MustCompile(`(?i)\d+W\s-\s\d+W`)
	steamdeckhqTemps       = regexp.MustCompile(`(?i)\d+C\s-\s\d+C`)
	steamdeckhqLifeSpan    = regexp.MustCompile(`(?i)\d+\sHours`)
)

var steamdeckhqPlaceholder = regexp.MustCompile(`(?i)^(?:n/a|unknown)$`)

// Accepted formats of the entry-time date, most common first.
var steamdeckhqDateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
}

const steamdeckhqAuthorPathSegment = "/author/"

// SteamDeckHQMiner mines the single editorial review a SteamDeckHQ game page
// carries. Review pages are keyed by game name slug, so building the URL
// first resolves the display name through the catalog.
type SteamDeckHQMiner struct {
	fetcher Fetcher
	catalog GameCatalog
}

func NewSteamDeckHQMiner(fetcher Fetcher, catalog GameCatalog) *SteamDeckHQMiner {
	return &SteamDeckHQMiner{fetcher: fetcher, catalog: catalog}
}

func (m *SteamDeckHQMiner) Source() domain.Source {
	return domain.SourceSteamDeckHQ
}

func (m *SteamDeckHQMiner) URL(ctx context.Context, gameID int64) (string, error) {
	name, err := m.catalog.GameName(ctx, gameID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve game name for %d: %w", gameID, err)
	}
	return fmt.Sprintf("%s/game-reviews/%s/", steamdeckhqBaseURL, util.Slugify(name)), nil
}

func (m *SteamDeckHQMiner) Mine(ctx context.Context, gameID int64) (*domain.ScrapedContent, error) {
	url, err := m.URL(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return m.fetcher.Scrape(ctx, url)
}

func (m *SteamDeckHQMiner) Close() error {
	if m.fetcher != nil {
		return m.fetcher.Close()
	}
	return nil
}

// Polish returns at most one report: the site publishes a single review per
// game. The review, recommended-settings and entry-time sections exist
// independently of each other; any of them may be absent.
func (m *SteamDeckHQMiner) Polish(content *domain.ScrapedContent) *domain.MinedData {
	if content == nil || content.Sections == nil {
		return emptyMinedData()
	}

	review := sectionByID(content.Sections, steamdeckhqReviewSection)
	recommended := sectionByID(content.Sections, steamdeckhqRecommendedSection)
	entryTime := sectionByID(content.Sections, steamdeckhqTimeSection)

	report := domain.ReportBody{
		Source:             domain.SourceSteamDeckHQ,
		URL:                content.URL,
		Reporter:           steamdeckhqReporter(review),
		GameSettings:       steamdeckhqGameSettings(recommended),
		SteamDeckSettings:  steamdeckhqDeckSettings(recommended),
		BatteryPerformance: steamdeckhqBattery(recommended),
		PostedAt:           steamdeckhqPostedAt(entryTime),
	}
	if review != nil {
		report.Title = review.Title
		report.Notes = joinParagraphs(review.Paragraphs)
	}

	return &domain.MinedData{Reports: []domain.ReportBody{report}}
}

func sectionByID(sections []domain.Section, id string) *domain.Section {
	for i := range sections {
		if sections[i].ID == id {
			return &sections[i]
		}
	}
	return nil
}

// steamdeckhqReporter picks the author byline link. The avatar is the last
// image of the review block; earlier images are screenshots.
func steamdeckhqReporter(review *domain.Section) domain.Reporter {
	reporter := domain.Reporter{
		Username:   steamdeckhqSiteName,
		ProfileURL: steamdeckhqBaseURL + "/",
	}
	if review == nil {
		return reporter
	}

	for _, link := range review.Links {
		if strings.Contains(link.Href, steamdeckhqAuthorPathSegment) {
			reporter.Username = link.Text
			reporter.ProfileURL = link.Href
			break
		}
	}
	if n := len(review.Images); n > 0 {
		reporter.AvatarURL = review.Images[n-1].Src
	}
	return reporter
}

// steamdeckhqGameSettings parses the "Label: Value" paragraphs. The first
// paragraph is the proton version and is reported through the Deck settings
// instead, so it is dropped here.
func steamdeckhqGameSettings(recommended *domain.Section) map[string]string {
	if recommended == nil {
		return nil
	}

	settings := make(map[string]string)
	for _, paragraph := range dropFirst(recommended.Paragraphs) {
		key, value, found := strings.Cut(paragraph, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		settings[key] = value
	}
	return settings
}

func steamdeckhqDeckSettings(recommended *domain.Section) *domain.SteamDeckSettings {
	if recommended == nil {
		return nil
	}

	protonVersion := ""
	if len(recommended.Paragraphs) > 0 {
		protonVersion = strings.TrimSpace(recommended.Paragraphs[0])
	}

	return &domain.SteamDeckSettings{
		FrameRateCap:      steamdeckhqScrub(extractNumber(recommended.OtherTextAt(steamdeckhqFrameRateCapIndex))),
		ScreenRefreshRate: steamdeckhqScrub(extractNumber(recommended.OtherTextAt(steamdeckhqRefreshRateIndex))),
		TDPLimit:          steamdeckhqScrub(extractNumber(recommended.OtherTextAt(steamdeckhqTDPLimitIndex))),
		ScalingFilter:     steamdeckhqScrub(strings.TrimSpace(recommended.OtherTextAt(steamdeckhqScalingFilterIndex))),
		GPUClockSpeed:     steamdeckhqScrub(extractNumber(recommended.OtherTextAt(steamdeckhqGPUClockIndex))),
		ProtonVersion:     steamdeckhqScrub(protonVersion),
		// SteamOSVersion has no slot on this site's layout.
	}
}

func steamdeckhqBattery(recommended *domain.Section) *domain.BatteryPerformance {
	if recommended == nil {
		return nil
	}

	return &domain.BatteryPerformance{
		Consumption: findByPattern(recommended.OtherText, steamdeckhqConsumption),
		Temps:       findByPattern(recommended.OtherText, steamdeckhqTemps),
		LifeSpan:    findByPattern(recommended.OtherText, steamdeckhqLifeSpan),
	}
}

func steamdeckhqPostedAt(entryTime *domain.Section) *time.Time {
	if entryTime == nil {
		return nil
	}
	raw := strings.TrimSpace(entryTime.OtherTextAt(0))
	if raw == "" {
		return nil
	}

	for _, layout := range steamdeckhqDateLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return &parsed
		}
	}
	return nil
}

// steamdeckhqScrub turns the site's placeholder values into empty strings.
func steamdeckhqScrub(value string) string {
	if steamdeckhqPlaceholder.MatchString(value) {
		return ""
	}
	return value
}

// findByPattern returns the first (trimmed) entry matching the pattern.
func findByPattern(entries []string, pattern *regexp.Regexp) string {
	for _, entry := range entries {
		if pattern.MatchString(entry) {
			return strings.TrimSpace(entry)
		}
	}
	return ""
}

func dropFirst(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	return items[1:]
}
