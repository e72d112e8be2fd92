package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/fineflow77/btclti/internal/domain"
)

const coinID = "bitcoin"

// CoinGeckoClient fetches BTC spot prices and daily history from a CoinGecko-compatible API.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	delay      time.Duration
	maxRetries int
}

// NewCoinGeckoClient creates a new CoinGecko API client. rps <= 0 disables client-side
// rate limiting.
func NewCoinGeckoClient(baseURL string, delay time.Duration, maxRetries int, rps float64) *CoinGeckoClient {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &CoinGeckoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
		delay:      delay,
		maxRetries: maxRetries,
	}
}

// Name identifies the client in logs and metrics.
func (c *CoinGeckoClient) Name() string {
	return c.baseURL
}

// FetchSpot fetches the current BTC price in USD and in currency.
func (c *CoinGeckoClient) FetchSpot(ctx context.Context, currency string) (domain.SpotQuote, error) {
	currency = strings.ToLower(currency)
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd,%s", c.baseURL, coinID, currency)

	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return domain.SpotQuote{}, err
	}

	// {"bitcoin":{"usd":97000,"jpy":14800000}}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.SpotQuote{}, fmt.Errorf("parsing CoinGecko response: %w", err)
	}

	prices, ok := raw[coinID]
	if !ok {
		return domain.SpotQuote{}, fmt.Errorf("CoinGecko response has no %s price", coinID)
	}
	usd, ok := prices["usd"]
	if !ok || usd <= 0 {
		return domain.SpotQuote{}, fmt.Errorf("CoinGecko response has no usd price")
	}
	local, ok := prices[currency]
	if !ok || local <= 0 {
		return domain.SpotQuote{}, fmt.Errorf("CoinGecko response has no %s price", currency)
	}

	return domain.SpotQuote{
		Currency:  currency,
		PriceUSD:  decimal.NewFromFloat(usd),
		PriceFiat: decimal.NewFromFloat(local),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// FetchHistory fetches daily USD closes for the last days days, ascending by date.
// When the provider returns several samples for one day the last one wins.
func (c *CoinGeckoClient) FetchHistory(ctx context.Context, days int) ([]domain.PricePoint, error) {
	url := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d&interval=daily", c.baseURL, coinID, days)

	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	// {"prices":[[1704067200000,42280.23],...]}
	var raw struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing CoinGecko history: %w", err)
	}

	points := make([]domain.PricePoint, 0, len(raw.Prices))
	for _, p := range raw.Prices {
		date := time.UnixMilli(int64(p[0])).UTC().Truncate(24 * time.Hour)
		if n := len(points); n > 0 && points[n-1].Date.Equal(date) {
			points[n-1].PriceUSD = p[1]
			continue
		}
		points = append(points, domain.PricePoint{Date: date, PriceUSD: p[1]})
	}
	return points, nil
}

func (c *CoinGeckoClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.delay
			if baseDelay == 0 {
				baseDelay = 10 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for CoinGecko rate limit: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating CoinGecko request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("CoinGecko request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading CoinGecko response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("CoinGecko rate limited (attempt %d/%d)", attempt+1, c.maxRetries+1)
			continue
		}

		return nil, fmt.Errorf("CoinGecko HTTP %d: %s", resp.StatusCode, string(body))
	}

	return nil, lastErr
}
