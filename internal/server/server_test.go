package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/config"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
)

type fakeGames struct {
	game      *domain.Game
	upserted  []int64
	refreshed []int64
}

func (f *fakeGames) Find(context.Context, int64) (*domain.Game, error) {
	return f.game, nil
}

func (f *fakeGames) Upsert(_ context.Context, gameID int64, _ json.RawMessage) error {
	f.upserted = append(f.upserted, gameID)
	return nil
}

func (f *fakeGames) RequestRefresh(_ context.Context, gameID int64, _, _ bool) error {
	f.refreshed = append(f.refreshed, gameID)
	return nil
}

type fakeReports struct {
	reports []domain.GameReport
}

func (f *fakeReports) ListByGame(context.Context, int64) ([]domain.GameReport, error) {
	return f.reports, nil
}

func testServer(games *fakeGames, reports *fakeReports) *Server {
	return New(config.ServerConfig{Host: "127.0.0.1", Port: 0}, games, reports, nil, zap.NewNop())
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestGetGame(t *testing.T) {
	games := &fakeGames{game: &domain.Game{GameID: 1245620, Rating: "gold"}}
	rec := doRequest(t, testServer(games, &fakeReports{}), http.MethodGet, "/games/1245620")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got domain.Game
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.GameID != 1245620 || got.Rating != "gold" {
		t.Fatalf("unexpected game: %+v", got)
	}
}

func TestGetGameNotFound(t *testing.T) {
	rec := doRequest(t, testServer(&fakeGames{}, &fakeReports{}), http.MethodGet, "/games/99")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetGameInvalidID(t *testing.T) {
	rec := doRequest(t, testServer(&fakeGames{}, &fakeReports{}), http.MethodGet, "/games/abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetReportsEmptySetIsArray(t *testing.T) {
	rec := doRequest(t, testServer(&fakeGames{}, &fakeReports{}), http.MethodGet, "/games/1/reports")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty array, got %q", body)
	}
}

func TestRefreshKnownGame(t *testing.T) {
	games := &fakeGames{game: &domain.Game{GameID: 1}}
	rec := doRequest(t, testServer(games, &fakeReports{}), http.MethodPost, "/games/1/refresh")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(games.upserted) != 0 {
		t.Fatalf("a known game must not be re-registered")
	}
	if len(games.refreshed) != 1 || games.refreshed[0] != 1 {
		t.Fatalf("expected a refresh request, got %v", games.refreshed)
	}
}

func TestRefreshUnknownGameRegistersIt(t *testing.T) {
	games := &fakeGames{}
	rec := doRequest(t, testServer(games, &fakeReports{}), http.MethodPost, "/games/42/refresh")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(games.upserted) != 1 || games.upserted[0] != 42 {
		t.Fatalf("expected the game registered first, got %v", games.upserted)
	}
	if len(games.refreshed) != 1 {
		t.Fatalf("expected a refresh request, got %v", games.refreshed)
	}
}
