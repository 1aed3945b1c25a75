package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Source identifies which site a scrape or report came from.
type Source string

const (
	SourceProtonDB    Source = "protondb"
	SourceSteamDeckHQ Source = "steamdeckhq"
	SourceShareDeck   Source = "sharedeck"
)

// AllSources lists every mining source in the order the generate job polls them.
func AllSources() []Source {
	return []Source{SourceProtonDB, SourceSteamDeckHQ, SourceShareDeck}
}

func (s Source) Valid() bool {
	switch s {
	case SourceProtonDB, SourceSteamDeckHQ, SourceShareDeck:
		return true
	}
	return false
}

// Link is an anchor extracted from a scraped page section.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Image is an <img> extracted from a scraped page section.
type Image struct {
	Src   string `json:"src"`
	Alt   string `json:"alt"`
	Title string `json:"title"`
}

// List is an ordered or unordered list extracted from a scraped page section.
type List struct {
	Type  string   `json:"type"` // "ul" or "ol"
	Items []string `json:"items"`
}

// Section is one logical block of a scraped page. The slices may be empty but
// are never nil when produced by the scraper; miners must tolerate short
// OtherText arrays since the meaning of its entries is positional.
type Section struct {
	ID         string              `json:"id"`
	Title      *string             `json:"title"`
	Headings   map[string][]string `json:"headings"`
	Paragraphs []string            `json:"paragraphs"`
	OtherText  []string            `json:"otherText"`
	Links      []Link              `json:"links"`
	Images     []Image             `json:"images"`
	Lists      []List              `json:"lists"`
}

// OtherTextAt returns the positional entry at index i, or "" when the array
// is too short. Positional extraction never fails on missing indexes.
func (s *Section) OtherTextAt(i int) string {
	if i < 0 || i >= len(s.OtherText) {
		return ""
	}
	return s.OtherText[i]
}

// ScrapedContent is the structured result of scraping one source page for one
// game. A nil Sections slice is a valid "nothing found on this page" outcome.
type ScrapedContent struct {
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Sections []Section `json:"sections,omitempty"`
}

// Hash is the sha256 of the content's JSON encoding. Two scrapes of an
// unchanged page hash identically, which lets the scrape job skip work.
func (c *ScrapedContent) Hash() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Scrape is a persisted raw scrape of one (game, source) pair.
type Scrape struct {
	GameID    int64          `json:"game_id"`
	Source    Source         `json:"source"`
	Content   ScrapedContent `json:"scraped_content"`
	Hash      string         `json:"hash,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
