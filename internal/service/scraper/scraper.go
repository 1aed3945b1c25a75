// Package scraper fetches source pages and flattens them into the structured
// content the miners consume. Extraction is split from fetching so it can be
// exercised against static HTML.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/constants"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/service/cache"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/util"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/pkg/errors"
)

const (
	breakerFailureThreshold = 5
	breakerResetTimeout     = 10 * time.Minute
)

type StructuredScraper struct {
	httpClient *http.Client
	cache      *cache.CacheService
	logger     *zap.Logger
	userAgent  string

	// one breaker per upstream host, so one flaky site doesn't stop the rest
	breakers   map[string]*util.CircuitBreaker
	breakersMu sync.Mutex
}

func NewStructuredScraper(cacheService *cache.CacheService, userAgent string, logger *zap.Logger) *StructuredScraper {
	if userAgent == "" {
		userAgent = constants.ScraperConfig.UserAgent
	}
	return &StructuredScraper{
		httpClient: &http.Client{
			Timeout: constants.ScraperConfig.RequestTimeout,
		},
		cache:     cacheService,
		logger:    logger,
		userAgent: userAgent,
		breakers:  make(map[string]*util.CircuitBreaker),
	}
}

func (s *StructuredScraper) breakerFor(rawURL string) *util.CircuitBreaker {
	host := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}

	s.breakersMu.Lock()
	defer s.breakersMu.Unlock()

	breaker, ok := s.breakers[host]
	if !ok {
		breaker = util.NewCircuitBreaker(breakerFailureThreshold, breakerResetTimeout, s.logger.With(zap.String("host", host)))
		s.breakers[host] = breaker
	}
	return breaker
}

// Scrape fetches the page and extracts its structured content. Results are
// cached briefly so the three miners of one game don't refetch shared pages
// inside a single job run.
func (s *StructuredScraper) Scrape(ctx context.Context, url string) (*domain.ScrapedContent, error) {
	cacheKey := fmt.Sprintf("scraper:page:%s", url)
	if s.cache != nil {
		var cached domain.ScrapedContent
		if found, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			s.logger.Debug("Scraper cache hit", zap.String("url", url))
			return &cached, nil
		}
	}

	breaker := s.breakerFor(url)
	if !breaker.CanExecute() {
		return nil, errors.NewScrapeError("host temporarily disabled after repeated failures", "", url, nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewScrapeError("failed to build request", "", url, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		breaker.RecordFailure()
		return nil, errors.NewScrapeError("HTTP request failed", "", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// The page simply doesn't exist for this game.
		breaker.RecordSuccess()
		s.logger.Debug("Page not found", zap.String("url", url))
		return &domain.ScrapedContent{URL: url}, nil
	}
	if resp.StatusCode != http.StatusOK {
		breaker.RecordFailure()
		return nil, errors.NewScrapeError(
			fmt.Sprintf("unexpected status code: %d", resp.StatusCode), "", url, nil)
	}
	breaker.RecordSuccess()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.NewScrapeError("HTML parse failed", "", url, err)
	}

	content := Extract(doc, url)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, content, constants.CacheTTL.ScrapedPage); err != nil {
			s.logger.Debug("Failed to cache scraped page", zap.String("url", url), zap.Error(err))
		}
	}

	s.logger.Info("Page scraped",
		zap.String("url", url),
		zap.Int("sections", len(content.Sections)),
	)
	return content, nil
}

func (s *StructuredScraper) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// Extract flattens a parsed document into sections. Pages with <section>
// elements get one Section per element; pages without any are treated as a
// single section spanning the whole body.
func Extract(doc *goquery.Document, url string) *domain.ScrapedContent {
	content := &domain.ScrapedContent{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		URL:   url,
	}

	sections := doc.Find("section")
	if sections.Length() == 0 {
		if body := doc.Find("body"); body.Length() > 0 && strings.TrimSpace(body.Text()) != "" {
			content.Sections = []domain.Section{extractSection(body)}
		}
		return content
	}

	content.Sections = make([]domain.Section, 0, sections.Length())
	sections.Each(func(_ int, sel *goquery.Selection) {
		content.Sections = append(content.Sections, extractSection(sel))
	})
	return content
}

func extractSection(sel *goquery.Selection) domain.Section {
	section := domain.Section{
		ID:         sel.AttrOr("id", ""),
		Headings:   map[string][]string{},
		Paragraphs: []string{},
		OtherText:  []string{},
		Links:      []domain.Link{},
		Images:     []domain.Image{},
		Lists:      []domain.List{},
	}

	for _, level := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		sel.Find(level).Each(func(_ int, h *goquery.Selection) {
			text := strings.TrimSpace(h.Text())
			if text == "" {
				return
			}
			if section.Title == nil {
				title := text
				section.Title = &title
			}
			section.Headings[level] = append(section.Headings[level], text)
		})
	}

	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			section.Paragraphs = append(section.Paragraphs, text)
		}
	})

	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		section.Links = append(section.Links, domain.Link{
			Href: a.AttrOr("href", ""),
			Text: strings.TrimSpace(a.Text()),
		})
	})

	sel.Find("img").Each(func(_ int, img *goquery.Selection) {
		section.Images = append(section.Images, domain.Image{
			Src:   img.AttrOr("src", ""),
			Alt:   img.AttrOr("alt", ""),
			Title: img.AttrOr("title", ""),
		})
	})

	sel.Find("ul, ol").Each(func(_ int, list *goquery.Selection) {
		items := []string{}
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			items = append(items, strings.TrimSpace(li.Text()))
		})
		section.Lists = append(section.Lists, domain.List{
			Type:  goquery.NodeName(list),
			Items: items,
		})
	})

	// Everything the typed buckets above didn't claim lands in OtherText in
	// document order. The miners read these entries positionally.
	sel.Find("div, span, td, th, dt, dd, label, time").Each(func(_ int, el *goquery.Selection) {
		if el.Children().Length() > 0 {
			return
		}
		section.OtherText = append(section.OtherText, strings.TrimSpace(el.Text()))
	})

	return section
}
