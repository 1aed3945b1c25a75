package mining

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/util"
)

const sharedeckBaseURL = "https://sharedeck.games"

// ShareDeck flattens each report into a single otherText array. The head of
// the array has fixed meanings; everything after it is label/value pairs.
// Keep these as one mapping so an upstream layout shift is a one-line fix.
const (
	sharedeckLifeSpanIndex    = 0
	sharedeckConsumptionIndex = 1
	sharedeckFrameRateIndex   = 2
	sharedeckHardwareIndex    = 4
)

// Labels whose following array element carries the value.
var (
	sharedeckVotePrompt     = regexp.MustCompile(`(?i)to be able to vote`)
	sharedeckRefreshRate    = regexp.MustCompile(`(?i)screen refresh rate`)
	sharedeckTDPLimit       = regexp.MustCompile(`(?i)tdp limit`)
	sharedeckProtonVersion  = regexp.MustCompile(`(?i)proton version`)
	sharedeckSteamOSVersion = regexp.MustCompile(`(?i)steamos version`)
	sharedeckGraphicsPreset = regexp.MustCompile(`(?i)graphics preset`)
	sharedeckFramerateLimit = regexp.MustCompile(`(?i)framerate limit`)
	sharedeckResolution     = regexp.MustCompile(`(?i)resolution`)
)

// Notes sit between these two literal strings in the flat text. If the site's
// copy ever changes, notes silently come back empty; that fragility is kept
// on purpose so re-scrapes stay byte-compatible with historic behavior.
const (
	sharedeckNotesStart = "Note"
	sharedeckNotesEnd   = "Sign in with Steam"
)

const sharedeckAnonymous = "Anonymous"

var (
	sharedeckNAValue    = regexp.MustCompile(`(?i)^(?:n/a|unknown)$`)
	sharedeckUnitSuffix = regexp.MustCompile(`(?i)(\d)\s*(?:fps|w)\b`)
)

// ShareDeckMiner mines the per-user report cards from ShareDeck app pages.
type ShareDeckMiner struct {
	fetcher Fetcher
}

func NewShareDeckMiner(fetcher Fetcher) *ShareDeckMiner {
	return &ShareDeckMiner{fetcher: fetcher}
}

func (m *ShareDeckMiner) Source() domain.Source {
	return domain.SourceShareDeck
}

func (m *ShareDeckMiner) URL(_ context.Context, gameID int64) (string, error) {
	return fmt.Sprintf("%s/apps/%d", sharedeckBaseURL, gameID), nil
}

func (m *ShareDeckMiner) Mine(ctx context.Context, gameID int64) (*domain.ScrapedContent, error) {
	url, err := m.URL(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return m.fetcher.Scrape(ctx, url)
}

func (m *ShareDeckMiner) Close() error {
	if m.fetcher != nil {
		return m.fetcher.Close()
	}
	return nil
}

func (m *ShareDeckMiner) Polish(content *domain.ScrapedContent) *domain.MinedData {
	if content == nil || content.Sections == nil {
		return emptyMinedData()
	}

	reports := make([]domain.ReportBody, 0, len(content.Sections))
	for i := range content.Sections {
		section := &content.Sections[i]
		if len(section.OtherText) == 0 {
			continue
		}
		reports = append(reports, m.report(section, content.URL))
	}

	return &domain.MinedData{Reports: reports}
}

func (m *ShareDeckMiner) report(section *domain.Section, pageURL string) domain.ReportBody {
	items := section.OtherText

	return domain.ReportBody{
		Title:    nil,
		Source:   domain.SourceShareDeck,
		URL:      fmt.Sprintf("%s#%s", pageURL, section.ID),
		Reporter: m.reporter(section),
		Hardware: sharedeckHardware(section.OtherTextAt(sharedeckHardwareIndex)),
		BatteryPerformance: &domain.BatteryPerformance{
			LifeSpan:    strings.TrimSpace(strings.ReplaceAll(section.OtherTextAt(sharedeckLifeSpanIndex), "\n", "")),
			Consumption: section.OtherTextAt(sharedeckConsumptionIndex),
		},
		SteamDeckSettings: &domain.SteamDeckSettings{
			FrameRateCap:      sharedeckClean(valueAfterLabel(items, sharedeckFramerateLimit)),
			ScreenRefreshRate: sharedeckClean(valueAfterLabel(items, sharedeckRefreshRate)),
			TDPLimit:          sharedeckClean(valueAfterLabel(items, sharedeckTDPLimit)),
			ProtonVersion:     sharedeckClean(valueAfterLabel(items, sharedeckProtonVersion)),
			SteamOSVersion:    sharedeckClean(valueAfterLabel(items, sharedeckSteamOSVersion)),
		},
		GameSettings: map[string]string{
			"graphics_preset":  sharedeckClean(valueAfterLabel(items, sharedeckGraphicsPreset)),
			"frame_rate_limit": sharedeckClean(valueAfterLabel(items, sharedeckFramerateLimit)),
			"resolution":       util.StripWhitespace(valueAfterLabel(items, sharedeckResolution)),
		},
		Experience: &domain.Experience{
			AverageFrameRate: section.OtherTextAt(sharedeckFrameRateIndex),
		},
		Notes:    sharedeckNotes(items),
		PostedAt: nil, // the site exposes no submission dates
	}
}

// reporter reads the username that follows the sign-in-to-vote prompt. Pages
// viewed logged-out always carry that prompt right before the handle.
func (m *ShareDeckMiner) reporter(section *domain.Section) domain.Reporter {
	username := strings.TrimSpace(valueAfterLabel(section.OtherText, sharedeckVotePrompt))
	if username == "" {
		username = sharedeckAnonymous
	}

	reporter := domain.Reporter{Username: username}
	if len(section.Links) > 0 {
		reporter.ProfileURL = section.Links[0].Href
	}
	if len(section.Images) > 0 {
		reporter.AvatarURL = section.Images[0].Src
	}
	return reporter
}

// sharedeckHardware checks OLED before LCD; a text mentioning both resolves
// to OLED on this source.
func sharedeckHardware(text string) domain.Hardware {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "oled") {
		return domain.HardwareOLED
	}
	if strings.Contains(lower, "lcd") {
		return domain.HardwareLCD
	}
	return ""
}

// sharedeckClean normalizes a mined value: placeholder values become empty,
// and a trailing fps/W unit is dropped from numbers. "12W" -> "12",
// "60fps" -> "60"; "60 Hz" keeps its unit.
func sharedeckClean(value string) string {
	value = strings.TrimSpace(value)
	if sharedeckNAValue.MatchString(value) {
		return ""
	}
	return sharedeckUnitSuffix.ReplaceAllString(value, "$1")
}

// sharedeckNotes slices the free-text block out of the flat array. A missing
// start or end delimiter yields empty notes rather than an error.
func sharedeckNotes(items []string) string {
	start, end := -1, -1
	for i, item := range items {
		trimmed := strings.TrimSpace(item)
		if start == -1 && trimmed == sharedeckNotesStart {
			start = i
			continue
		}
		if start != -1 && trimmed == sharedeckNotesEnd {
			end = i
			break
		}
	}
	if start == -1 || end == -1 || end <= start+1 {
		return ""
	}
	return strings.Join(items[start+1:end], "\n\n")
}
