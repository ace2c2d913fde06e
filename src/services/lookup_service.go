package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/username/notafolio/backend/src/config"
	"github.com/username/notafolio/backend/src/logger"
)

// BrapiLookupService resolves instrument names to B3 tickers and fetches
// quotes from the brapi.dev REST API. Responses are cached and requests
// are rate limited so a large import cannot hammer the upstream.
type BrapiLookupService struct {
	baseURL    string
	token      string
	client     *http.Client
	limiter    *rate.Limiter
	quoteCache *cache.Cache
}

func NewBrapiLookupService(cfg *config.AppConfig) *BrapiLookupService {
	return &BrapiLookupService{
		baseURL: strings.TrimRight(cfg.TickerLookupBaseURL, "/"),
		token:   cfg.TickerLookupToken,
		client: &http.Client{
			Timeout: cfg.TickerLookupTimeout,
		},
		// 2 req/s with a small burst keeps imports well under the free tier.
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
		quoteCache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

type availableResponse struct {
	Stocks []string `json:"stocks"`
}

type quoteResponse struct {
	Results []struct {
		Symbol             string          `json:"symbol"`
		RegularMarketPrice decimal.Decimal `json:"regularMarketPrice"`
	} `json:"results"`
}

// SearchSymbol queries the ticker search endpoint with the raw instrument
// name. An empty result is returned as ("", nil): not knowing a name is
// an expected outcome, not a transport failure.
func (s *BrapiLookupService) SearchSymbol(ctx context.Context, rawName string) (string, error) {
	// The search endpoint matches prefixes; the first token of the company
	// name is the most discriminating part ("PETROBRAS PN N2" -> "PETROBRAS").
	query := rawName
	if fields := strings.Fields(rawName); len(fields) > 0 {
		query = fields[0]
	}

	endpoint := fmt.Sprintf("%s/available?search=%s", s.baseURL, url.QueryEscape(query))
	var payload availableResponse
	if err := s.getJSON(ctx, endpoint, &payload); err != nil {
		return "", fmt.Errorf("ticker search for %q: %w", rawName, err)
	}

	if len(payload.Stocks) == 0 {
		return "", nil
	}
	// Only an unambiguous single hit is trusted; multiple candidates are
	// left for the interactive prompt to settle.
	if len(payload.Stocks) > 1 {
		logger.L.Debug("Ticker search returned multiple candidates", "rawName", rawName, "count", len(payload.Stocks))
		return "", nil
	}
	return payload.Stocks[0], nil
}

// GetQuote fetches the latest market price for a symbol. Quotes are
// advisory enrichment for position reports, so callers treat errors as
// soft failures.
func (s *BrapiLookupService) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if cached, found := s.quoteCache.Get(symbol); found {
		return cached.(decimal.Decimal), nil
	}

	endpoint := fmt.Sprintf("%s/quote/%s", s.baseURL, url.PathEscape(symbol))
	var payload quoteResponse
	if err := s.getJSON(ctx, endpoint, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("quote for %s: %w", symbol, err)
	}
	if len(payload.Results) == 0 || payload.Results[0].RegularMarketPrice.IsZero() {
		return decimal.Zero, fmt.Errorf("no quote available for %s", symbol)
	}

	price := payload.Results[0].RegularMarketPrice
	s.quoteCache.Set(symbol, price, cache.DefaultExpiration)
	return price, nil
}

func (s *BrapiLookupService) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// brapi answers 404 for unknown symbols; normalize to empty payload.
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
