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

const protondbBaseURL = "https://www.protondb.com"

// The first two sections of a ProtonDB page are page-level summaries, not
// user reports: the compatibility tier badge and the Deck Verified badge.
const (
	protondbRatingSection   = 0
	protondbVerifiedSection = 1
)

// Positions of the reporter fields inside each report section.
const (
	protondbHandleIndex   = 0
	protondbProfileLink   = 0
	protondbPermalinkLink = 1
	protondbAvatarImage   = 0
)

// ProtonDB reports are free prose, so numeric settings are pattern-matched
// out of the notes. Each setting has a value-then-label form ("40 fps"), a
// label-then-value form ("fps capped at 40"), and an off-phrase that
// suppresses extraction entirely. The suppression check runs before value
// extraction; swapping that order changes results for notes that carry both.
var (
	fpsOffPhrase  = regexp.MustCompile(`(?i)\bfps(?:\s+limit)?\s+(?:off|disabled)\b`)
	fpsValueFirst = regexp.MustCompile(`(?i)\b(\d{1,3})\s*fps\b`)
	fpsLabelFirst = regexp.MustCompile(`(?i)\bfps\b[^.\d]{0,40}?(\d{1,3})\b`)

	hzOffPhrase  = regexp.MustCompile(`(?i)\bhz(?:\s+limit)?\s+(?:off|disabled)\b`)
	hzValueFirst = regexp.MustCompile(`(?i)\b(\d{1,3})\s*hz\b`)
	hzLabelFirst = regexp.MustCompile(`(?i)\bhz\b[^.\d]{0,40}?(\d{1,3})\b`)

	// Watt matches must anchor to a watt/TDP context so a bare "w" inside an
	// unrelated word never counts.
	tdpOffPhrase  = regexp.MustCompile(`(?i)\btdp(?:\s+limit)?\s+(?:off|disabled)\b`)
	tdpValueFirst = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:w|watts?)\b`)
	tdpLabelFirst = regexp.MustCompile(`(?i)\btdp\b[^.\d]{0,40}?(\d{1,2})\b`)

	relativeDateHint = "ago"
)

// ProtonDBMiner mines user-submitted Deck reports from ProtonDB game pages.
type ProtonDBMiner struct {
	fetcher Fetcher
}

func NewProtonDBMiner(fetcher Fetcher) *ProtonDBMiner {
	return &ProtonDBMiner{fetcher: fetcher}
}

func (m *ProtonDBMiner) Source() domain.Source {
	return domain.SourceProtonDB
}

func (m *ProtonDBMiner) URL(_ context.Context, gameID int64) (string, error) {
	return fmt.Sprintf("%s/app/%d?device=steamDeck", protondbBaseURL, gameID), nil
}

func (m *ProtonDBMiner) Mine(ctx context.Context, gameID int64) (*domain.ScrapedContent, error) {
	url, err := m.URL(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return m.fetcher.Scrape(ctx, url)
}

func (m *ProtonDBMiner) Close() error {
	if m.fetcher != nil {
		return m.fetcher.Close()
	}
	return nil
}

func (m *ProtonDBMiner) Polish(content *domain.ScrapedContent) *domain.MinedData {
	if content == nil || content.Sections == nil {
		return emptyMinedData()
	}

	reports := make([]domain.ReportBody, 0, len(content.Sections))
	for i := range content.Sections {
		section := &content.Sections[i]
		notes := joinParagraphs(section.Paragraphs)
		if strings.TrimSpace(notes) == "" {
			// Summary badges and layout chrome have no paragraphs; only
			// sections with narrative text are real reports.
			continue
		}

		reports = append(reports, domain.ReportBody{
			Title:             section.Title,
			Source:            domain.SourceProtonDB,
			URL:               m.permalink(section, content.URL),
			Reporter:          m.reporter(section),
			Hardware:          hardwareFromNotes(notes),
			SteamDeckSettings: deckSettingsFromNotes(notes),
			Notes:             notes,
			PostedAt:          m.postedAt(section.Links),
		})
	}

	domain.SortReportsByPostedAt(reports)

	return &domain.MinedData{
		Reports:  reports,
		Rating:   pageRating(content.Sections),
		Verified: pageVerified(content.Sections),
	}
}

func (m *ProtonDBMiner) reporter(section *domain.Section) domain.Reporter {
	reporter := domain.Reporter{
		Username: strings.TrimSpace(section.OtherTextAt(protondbHandleIndex)),
	}
	if len(section.Links) > protondbProfileLink {
		reporter.ProfileURL = section.Links[protondbProfileLink].Href
	}
	if len(section.Images) > protondbAvatarImage {
		reporter.AvatarURL = section.Images[protondbAvatarImage].Src
	}
	return reporter
}

func (m *ProtonDBMiner) permalink(section *domain.Section, pageURL string) string {
	if len(section.Links) > protondbPermalinkLink {
		if href := section.Links[protondbPermalinkLink].Href; href != "" {
			return href
		}
	}
	return pageURL
}

// postedAt resolves the report date from the link whose text reads like
// "2 months ago". Time of day carries no meaning on ProtonDB, so the result
// is truncated to midnight UTC. No date link means no date, not an error.
func (m *ProtonDBMiner) postedAt(links []domain.Link) *time.Time {
	for _, link := range links {
		if !strings.Contains(link.Text, relativeDateHint) {
			continue
		}
		if resolved := util.ParseRelativeDate(strings.TrimSpace(link.Text)); resolved != nil {
			day := util.TruncateToUTCDay(*resolved)
			return &day
		}
	}
	return nil
}

// hardwareFromNotes tags the report by substring search. LCD is checked
// first, so notes mentioning both variants resolve to LCD.
func hardwareFromNotes(notes string) domain.Hardware {
	lower := strings.ToLower(notes)
	if strings.Contains(lower, "lcd") {
		return domain.HardwareLCD
	}
	if strings.Contains(lower, "oled") {
		return domain.HardwareOLED
	}
	return ""
}

func deckSettingsFromNotes(notes string) *domain.SteamDeckSettings {
	settings := domain.SteamDeckSettings{
		FrameRateCap:      settingFromProse(notes, fpsOffPhrase, fpsValueFirst, fpsLabelFirst),
		ScreenRefreshRate: settingFromProse(notes, hzOffPhrase, hzValueFirst, hzLabelFirst),
		TDPLimit:          settingFromProse(notes, tdpOffPhrase, tdpValueFirst, tdpLabelFirst),
	}
	if settings == (domain.SteamDeckSettings{}) {
		return nil
	}
	return &settings
}

func settingFromProse(notes string, offPhrase, valueFirst, labelFirst *regexp.Regexp) string {
	if offPhrase.MatchString(notes) {
		return ""
	}
	if match := valueFirst.FindStringSubmatch(notes); match != nil {
		return match[1]
	}
	if match := labelFirst.FindStringSubmatch(notes); match != nil {
		return match[1]
	}
	return ""
}

func pageRating(sections []domain.Section) domain.Rating {
	if len(sections) <= protondbRatingSection {
		return ""
	}
	return domain.ParseRating(summaryLabel(&sections[protondbRatingSection]))
}

func pageVerified(sections []domain.Section) *bool {
	if len(sections) <= protondbVerifiedSection {
		return nil
	}
	label := strings.ToLower(summaryLabel(&sections[protondbVerifiedSection]))
	verified := strings.Contains(label, "verified")
	return &verified
}

// summaryLabel reads the badge text of a page-level summary section.
func summaryLabel(section *domain.Section) string {
	for _, text := range section.OtherText {
		if strings.TrimSpace(text) != "" {
			return text
		}
	}
	if section.Title != nil {
		return *section.Title
	}
	return ""
}
