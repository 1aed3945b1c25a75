package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/config"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/mining"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/service/steam"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/pkg/errors"
)

type fakeMiner struct {
	source  domain.Source
	content *domain.ScrapedContent
	mineErr error
	reports []domain.ReportBody
	rating  domain.Rating
	deck    *bool
}

func (f *fakeMiner) Source() domain.Source { return f.source }

func (f *fakeMiner) URL(context.Context, int64) (string, error) {
	return "https://example.com/" + string(f.source), nil
}

func (f *fakeMiner) Mine(context.Context, int64) (*domain.ScrapedContent, error) {
	return f.content, f.mineErr
}

func (f *fakeMiner) Polish(*domain.ScrapedContent) *domain.MinedData {
	return &domain.MinedData{Reports: f.reports, Rating: f.rating, Verified: f.deck}
}

func (f *fakeMiner) Close() error { return nil }

type fakeGameStore struct {
	game      *domain.Game
	generated []struct {
		summary  string
		rating   string
		verified *bool
	}
	cleared []int64
}

func (f *fakeGameStore) Find(context.Context, int64) (*domain.Game, error) {
	return f.game, nil
}

func (f *fakeGameStore) Upsert(context.Context, int64, json.RawMessage) error { return nil }

func (f *fakeGameStore) SaveGenerated(_ context.Context, _ int64, summary, rating string, verified *bool, _ time.Time) error {
	f.generated = append(f.generated, struct {
		summary  string
		rating   string
		verified *bool
	}{summary, rating, verified})
	return nil
}

func (f *fakeGameStore) ClearRefreshFlags(_ context.Context, gameID int64) error {
	f.cleared = append(f.cleared, gameID)
	return nil
}

func (f *fakeGameStore) FindRefreshCandidates(context.Context, time.Time, int) ([]domain.Game, error) {
	if f.game == nil {
		return nil, nil
	}
	return []domain.Game{*f.game}, nil
}

type fakeQueueStore struct {
	enqueued    []int64
	rescraped   []int64
	regenerated []int64
	failed      []int64
	removed     []int64
	batch       []domain.QueueItem
}

func (f *fakeQueueStore) Enqueue(_ context.Context, gameID int64, _, _ bool) error {
	f.enqueued = append(f.enqueued, gameID)
	return nil
}

func (f *fakeQueueStore) NextBatch(context.Context, int) ([]domain.QueueItem, error) {
	return f.batch, nil
}

func (f *fakeQueueStore) MarkRescraped(_ context.Context, gameID int64) error {
	f.rescraped = append(f.rescraped, gameID)
	return nil
}

func (f *fakeQueueStore) MarkRegenerated(_ context.Context, gameID int64) error {
	f.regenerated = append(f.regenerated, gameID)
	return nil
}

func (f *fakeQueueStore) MarkRegenerateFailed(_ context.Context, gameID int64) error {
	f.failed = append(f.failed, gameID)
	return nil
}

func (f *fakeQueueStore) Remove(_ context.Context, gameID int64) error {
	f.removed = append(f.removed, gameID)
	return nil
}

type fakeReportStore struct {
	replaced map[domain.Source][]domain.ReportBody
	deduped  int
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{replaced: map[domain.Source][]domain.ReportBody{}}
}

func (f *fakeReportStore) ReplaceForSource(_ context.Context, _ int64, source domain.Source, reports []domain.ReportBody) error {
	f.replaced[source] = reports
	return nil
}

func (f *fakeReportStore) DedupeByHash(context.Context, int64) (int64, error) {
	f.deduped++
	return 0, nil
}

type fakeScrapeStore struct {
	latest map[domain.Source]*domain.Scrape
	saved  []*domain.Scrape
}

func newFakeScrapeStore() *fakeScrapeStore {
	return &fakeScrapeStore{latest: map[domain.Source]*domain.Scrape{}}
}

func (f *fakeScrapeStore) Save(_ context.Context, scrape *domain.Scrape) error {
	f.saved = append(f.saved, scrape)
	f.latest[scrape.Source] = scrape
	return nil
}

func (f *fakeScrapeStore) Latest(_ context.Context, _ int64, source domain.Source) (*domain.Scrape, error) {
	return f.latest[source], nil
}

type fakeCatalog struct {
	verified *bool
}

func (f *fakeCatalog) GetAppDetails(context.Context, int64) (*steam.AppDetails, error) {
	return &steam.AppDetails{Name: "Some Game", Raw: json.RawMessage(`{"name":"Some Game"}`)}, nil
}

func (f *fakeCatalog) GetDeckVerified(context.Context, int64) *bool {
	return f.verified
}

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (f *fakeSummarizer) Summarize(context.Context, []domain.ReportBody) (string, error) {
	f.calls++
	return f.summary, f.err
}

func testJobs(games *fakeGameStore, queue *fakeQueueStore, reports *fakeReportStore, scrapes *fakeScrapeStore, catalog *fakeCatalog, summarizer *fakeSummarizer, miners ...mining.Miner) *Jobs {
	cfg := config.JobsConfig{
		GamesPerRun:     10,
		RescrapeAfter:   7 * 24 * time.Hour,
		RegenerateAfter: 7 * 24 * time.Hour,
	}
	return New(games, queue, reports, scrapes, catalog, summarizer, miners, cfg, zap.NewNop())
}

func storedScrape(source domain.Source) *domain.Scrape {
	content := domain.ScrapedContent{Title: string(source), URL: "https://example.com/" + string(source)}
	return &domain.Scrape{
		GameID:    1,
		Source:    source,
		Content:   content,
		Hash:      content.Hash(),
		CreatedAt: time.Now(),
	}
}

func TestGenerateGameReplacesOnlyYieldingSources(t *testing.T) {
	games := &fakeGameStore{}
	reports := newFakeReportStore()
	scrapes := newFakeScrapeStore()
	scrapes.latest[domain.SourceProtonDB] = storedScrape(domain.SourceProtonDB)
	scrapes.latest[domain.SourceShareDeck] = storedScrape(domain.SourceShareDeck)

	verified := true
	protondb := &fakeMiner{
		source:  domain.SourceProtonDB,
		reports: []domain.ReportBody{{Source: domain.SourceProtonDB, Notes: "Good."}},
		rating:  domain.RatingGold,
		deck:    &verified,
	}
	sharedeck := &fakeMiner{source: domain.SourceShareDeck} // scrape exists but polish yields nothing

	j := testJobs(games, &fakeQueueStore{}, reports, scrapes, &fakeCatalog{}, &fakeSummarizer{summary: "Fine."}, protondb, sharedeck)

	if err := j.GenerateGame(context.Background(), 1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, ok := reports.replaced[domain.SourceProtonDB]; !ok {
		t.Fatalf("protondb reports must be replaced")
	}
	if _, ok := reports.replaced[domain.SourceShareDeck]; ok {
		t.Fatalf("an empty source must not touch its stored reports")
	}
	if reports.deduped != 1 {
		t.Fatalf("expected one dedupe pass, got %d", reports.deduped)
	}

	if len(games.generated) != 1 {
		t.Fatalf("expected one generated save, got %d", len(games.generated))
	}
	saved := games.generated[0]
	if saved.rating != string(domain.RatingGold) {
		t.Fatalf("unexpected rating: %q", saved.rating)
	}
	if saved.verified == nil || !*saved.verified {
		t.Fatalf("unexpected verified flag: %v", saved.verified)
	}
	if saved.summary != "Fine." {
		t.Fatalf("unexpected summary: %q", saved.summary)
	}
}

func TestGenerateGameNoDataAnywhere(t *testing.T) {
	games := &fakeGameStore{}
	reports := newFakeReportStore()
	scrapes := newFakeScrapeStore()
	scrapes.latest[domain.SourceProtonDB] = storedScrape(domain.SourceProtonDB)

	j := testJobs(games, &fakeQueueStore{}, reports, scrapes, &fakeCatalog{}, &fakeSummarizer{},
		&fakeMiner{source: domain.SourceProtonDB},
		&fakeMiner{source: domain.SourceShareDeck},
	)

	err := j.GenerateGame(context.Background(), 1)
	if err != errors.ErrNoMinedData {
		t.Fatalf("expected ErrNoMinedData, got %v", err)
	}
	if len(games.generated) != 0 {
		t.Fatalf("an empty pass must not persist anything")
	}
	if reports.deduped != 0 {
		t.Fatalf("an empty pass must not dedupe")
	}
}

func TestGenerateGameIdempotentReportSet(t *testing.T) {
	games := &fakeGameStore{}
	reports := newFakeReportStore()
	scrapes := newFakeScrapeStore()
	scrapes.latest[domain.SourceProtonDB] = storedScrape(domain.SourceProtonDB)

	miner := &fakeMiner{
		source: domain.SourceProtonDB,
		reports: []domain.ReportBody{
			{Source: domain.SourceProtonDB, Notes: "First."},
			{Source: domain.SourceProtonDB, Notes: "Second."},
		},
	}
	j := testJobs(games, &fakeQueueStore{}, reports, scrapes, &fakeCatalog{}, &fakeSummarizer{}, miner)

	for i := 0; i < 2; i++ {
		if err := j.GenerateGame(context.Background(), 1); err != nil {
			t.Fatalf("run %d: expected no error, got %v", i, err)
		}
	}

	if got := len(reports.replaced[domain.SourceProtonDB]); got != 2 {
		t.Fatalf("re-running against the same scrape must keep the set at 2 reports, got %d", got)
	}
}

func TestGenerateGameSummaryFailureKeepsPrevious(t *testing.T) {
	games := &fakeGameStore{game: &domain.Game{GameID: 1, PerformanceSummary: "Previous summary."}}
	reports := newFakeReportStore()
	scrapes := newFakeScrapeStore()
	scrapes.latest[domain.SourceProtonDB] = storedScrape(domain.SourceProtonDB)

	miner := &fakeMiner{
		source:  domain.SourceProtonDB,
		reports: []domain.ReportBody{{Source: domain.SourceProtonDB, Notes: "Good."}},
	}
	summarizer := &fakeSummarizer{err: fmt.Errorf("model unavailable")}
	j := testJobs(games, &fakeQueueStore{}, reports, scrapes, &fakeCatalog{}, summarizer, miner)

	if err := j.GenerateGame(context.Background(), 1); err != nil {
		t.Fatalf("summary failure must not fail the pass, got %v", err)
	}
	if games.generated[0].summary != "Previous summary." {
		t.Fatalf("expected the previous summary to be kept, got %q", games.generated[0].summary)
	}
}

func TestGenerateGameFallsBackToStorefrontVerified(t *testing.T) {
	games := &fakeGameStore{}
	reports := newFakeReportStore()
	scrapes := newFakeScrapeStore()
	scrapes.latest[domain.SourceShareDeck] = storedScrape(domain.SourceShareDeck)

	verified := true
	miner := &fakeMiner{
		source:  domain.SourceShareDeck,
		reports: []domain.ReportBody{{Source: domain.SourceShareDeck, Notes: "OK."}},
	}
	j := testJobs(games, &fakeQueueStore{}, reports, scrapes, &fakeCatalog{verified: &verified}, &fakeSummarizer{}, miner)

	if err := j.GenerateGame(context.Background(), 1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := games.generated[0].verified; got == nil || !*got {
		t.Fatalf("expected the storefront verified flag, got %v", got)
	}
}

func TestScrapeGameSkipsUnchangedPages(t *testing.T) {
	scrapes := newFakeScrapeStore()
	content := &domain.ScrapedContent{Title: "protondb", URL: "https://example.com/protondb"}
	scrapes.latest[domain.SourceProtonDB] = &domain.Scrape{
		GameID: 1, Source: domain.SourceProtonDB, Content: *content, Hash: content.Hash(),
	}

	changed := &domain.ScrapedContent{Title: "sharedeck", URL: "https://example.com/sharedeck"}
	j := testJobs(&fakeGameStore{}, &fakeQueueStore{}, newFakeReportStore(), scrapes, &fakeCatalog{}, &fakeSummarizer{},
		&fakeMiner{source: domain.SourceProtonDB, content: content},
		&fakeMiner{source: domain.SourceShareDeck, content: changed},
		&fakeMiner{source: domain.SourceSteamDeckHQ, mineErr: fmt.Errorf("page unavailable")},
	)

	if err := j.ScrapeGame(context.Background(), 1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(scrapes.saved) != 1 {
		t.Fatalf("expected exactly the changed page saved, got %d", len(scrapes.saved))
	}
	if scrapes.saved[0].Source != domain.SourceShareDeck {
		t.Fatalf("unexpected saved source: %s", scrapes.saved[0].Source)
	}
	if scrapes.saved[0].Hash != changed.Hash() {
		t.Fatalf("saved scrape must carry the content hash")
	}
}

func TestProcessQueueMarksFailureWithoutData(t *testing.T) {
	queue := &fakeQueueStore{batch: []domain.QueueItem{{GameID: 1, Regenerate: true}}}
	j := testJobs(&fakeGameStore{}, queue, newFakeReportStore(), newFakeScrapeStore(), &fakeCatalog{}, &fakeSummarizer{},
		&fakeMiner{source: domain.SourceProtonDB},
	)

	if err := j.ProcessQueue(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(queue.failed) != 1 || queue.failed[0] != 1 {
		t.Fatalf("expected the game marked regenerate-failed, got %v", queue.failed)
	}
	if len(queue.regenerated) != 0 {
		t.Fatalf("a failed generation must not be marked regenerated")
	}
	if len(queue.removed) != 0 {
		t.Fatalf("a failed entry must stay queued")
	}
}

func TestProcessQueueFullPass(t *testing.T) {
	queue := &fakeQueueStore{batch: []domain.QueueItem{{GameID: 1, Rescrape: true, Regenerate: true}}}
	scrapes := newFakeScrapeStore()

	content := &domain.ScrapedContent{Title: "protondb", URL: "https://example.com/protondb"}
	miner := &fakeMiner{
		source:  domain.SourceProtonDB,
		content: content,
		reports: []domain.ReportBody{{Source: domain.SourceProtonDB, Notes: "Good."}},
	}
	games := &fakeGameStore{}
	j := testJobs(games, queue, newFakeReportStore(), scrapes, &fakeCatalog{}, &fakeSummarizer{summary: "OK."}, miner)

	if err := j.ProcessQueue(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(queue.rescraped) != 1 || len(queue.regenerated) != 1 || len(queue.removed) != 1 {
		t.Fatalf("expected rescraped/regenerated/removed once, got %d/%d/%d",
			len(queue.rescraped), len(queue.regenerated), len(queue.removed))
	}
	if len(games.generated) != 1 {
		t.Fatalf("expected one generated save, got %d", len(games.generated))
	}
}

func TestQueueGamesEnqueuesAndClearsFlags(t *testing.T) {
	games := &fakeGameStore{game: &domain.Game{GameID: 42, RescrapeRequested: true}}
	queue := &fakeQueueStore{}
	j := testJobs(games, queue, newFakeReportStore(), newFakeScrapeStore(), &fakeCatalog{}, &fakeSummarizer{})

	if err := j.QueueGames(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(queue.enqueued) != 1 || queue.enqueued[0] != 42 {
		t.Fatalf("expected game 42 enqueued, got %v", queue.enqueued)
	}
	if len(games.cleared) != 1 || games.cleared[0] != 42 {
		t.Fatalf("expected flags cleared for game 42, got %v", games.cleared)
	}
}
