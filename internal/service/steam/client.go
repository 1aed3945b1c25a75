// Package steam talks to the Steam storefront API for catalog data: app
// details for name/artwork and the official Deck compatibility category.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/constants"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/service/cache"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/pkg/errors"
)

const (
	storeBaseURL = "https://store.steampowered.com"

	// The storefront's own "Verified" category in the compatibility report.
	deckCategoryVerified = 3
)

// AppDetails is the storefront payload for one app. Only the fields the
// rest of the system reads are typed; the raw payload is kept alongside so
// the full catalog entry can be stored as-is.
type AppDetails struct {
	Name             string          `json:"name"`
	Type             string          `json:"type"`
	ShortDescription string          `json:"short_description"`
	HeaderImage      string          `json:"header_image"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

type Client struct {
	httpClient *http.Client
	cache      *cache.CacheService
	logger     *zap.Logger
}

func NewClient(cacheService *cache.CacheService, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cacheService,
		logger:     logger,
	}
}

type appDetailsEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// GetAppDetails fetches the storefront catalog entry for an app. A missing
// or delisted app is (nil, nil).
func (c *Client) GetAppDetails(ctx context.Context, gameID int64) (*AppDetails, error) {
	cacheKey := fmt.Sprintf("steam:appdetails:%d", gameID)
	if c.cache != nil {
		var cached AppDetails
		if found, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			return &cached, nil
		}
	}

	url := fmt.Sprintf("%s/api/appdetails?appids=%d", storeBaseURL, gameID)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var envelope map[string]appDetailsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.NewAPIError("failed to decode app details", http.StatusOK, err)
	}

	entry, ok := envelope[fmt.Sprintf("%d", gameID)]
	if !ok || !entry.Success {
		c.logger.Debug("App not found on the storefront", zap.Int64("game_id", gameID))
		return nil, nil
	}

	var details AppDetails
	if err := json.Unmarshal(entry.Data, &details); err != nil {
		return nil, errors.NewAPIError("failed to decode app data", http.StatusOK, err)
	}
	details.Raw = entry.Data

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, &details, constants.CacheTTL.SteamAppDetails); err != nil {
			c.logger.Debug("Failed to cache app details", zap.Int64("game_id", gameID), zap.Error(err))
		}
	}
	return &details, nil
}

// GameName resolves an app id to its storefront display name. This is the
// catalog lookup the slug-keyed miner builds its URLs from.
func (c *Client) GameName(ctx context.Context, gameID int64) (string, error) {
	details, err := c.GetAppDetails(ctx, gameID)
	if err != nil {
		return "", err
	}
	if details == nil || details.Name == "" {
		return "", fmt.Errorf("no catalog entry for app %d", gameID)
	}
	return details.Name, nil
}

type deckReportEnvelope struct {
	Success int `json:"success"`
	Results struct {
		ResolvedCategory int `json:"resolved_category"`
	} `json:"results"`
}

// GetDeckVerified reads Valve's own compatibility category for an app and
// reports whether it is Verified. Any failure yields nil: the official
// category is an enrichment, never a hard dependency.
func (c *Client) GetDeckVerified(ctx context.Context, gameID int64) *bool {
	cacheKey := fmt.Sprintf("steam:deckverified:%d", gameID)
	if c.cache != nil {
		var cached bool
		if found, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			return &cached
		}
	}

	url := fmt.Sprintf("%s/saleaction/ajaxgetdeckappcompatibilityreport?nAppID=%d", storeBaseURL, gameID)
	body, err := c.get(ctx, url)
	if err != nil {
		c.logger.Debug("Deck compatibility report unavailable", zap.Int64("game_id", gameID), zap.Error(err))
		return nil
	}

	var envelope deckReportEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Success != 1 {
		return nil
	}

	verified := envelope.Results.ResolvedCategory == deckCategoryVerified
	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, verified, constants.CacheTTL.SteamDeckStatus); err != nil {
			c.logger.Debug("Failed to cache deck status", zap.Int64("game_id", gameID), zap.Error(err))
		}
	}
	return &verified
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewAPIError("failed to build request", 0, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewAPIError("request failed", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAPIError(
			fmt.Sprintf("unexpected status code from %s", url), resp.StatusCode, nil)
	}

	return io.ReadAll(resp.Body)
}
