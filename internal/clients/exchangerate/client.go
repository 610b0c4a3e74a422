// Package exchangerate provides currency exchange rate fetching from exchangerate-api.com.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/holdings-risk/internal/clientdata"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public endpoint; the base currency is appended as a path segment.
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// Client for exchangerate-api.com
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
	cache   *clientdata.Store[map[string]float64]
}

// NewClient creates a new exchangerate-api.com client.
// cache is optional; if nil, every call goes to the network.
func NewClient(cache *clientdata.Store[map[string]float64], timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "exchangerate-api").Logger(),
		cache:   cache,
	}
}

// SetBaseURL points the client at another endpoint. Used by tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

// GetRate returns how many units of toCurrency one unit of fromCurrency buys.
// The full rate table for fromCurrency is cached, so later pairs with the same
// base are served without a request. If the API fails, a stale table is used
// when available.
func (c *Client) GetRate(ctx context.Context, fromCurrency, toCurrency string) (float64, error) {
	from := strings.ToUpper(fromCurrency)
	to := strings.ToUpper(toCurrency)
	if from == to {
		return 1.0, nil
	}

	if c.cache != nil {
		if rates, ok := c.cache.GetIfFresh(from); ok {
			if rate, exists := rates[to]; exists && rate > 0 {
				c.log.Debug().Str("from", from).Str("to", to).Float64("rate", rate).Msg("Cache hit")
				return rate, nil
			}
		}
	}

	rates, err := c.fetchRates(ctx, from)
	if err != nil {
		if staleRate, ok := c.getStale(from, to); ok {
			c.log.Warn().
				Err(err).
				Str("from", from).
				Str("to", to).
				Float64("rate", staleRate).
				Msg("API failed, using stale cached rate")
			return staleRate, nil
		}
		return 0, err
	}

	if c.cache != nil {
		c.cache.Store(from, rates, clientdata.TTLExchangeAPI)
	}

	rate, exists := rates[to]
	if !exists || rate <= 0 {
		return 0, fmt.Errorf("rate not found for %s->%s", from, to)
	}

	c.log.Debug().Str("from", from).Str("to", to).Float64("rate", rate).Msg("Fetched rate")
	return rate, nil
}

func (c *Client) fetchRates(ctx context.Context, base string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Rates) == 0 {
		return nil, fmt.Errorf("empty rate table for %s", base)
	}

	return result.Rates, nil
}

// getStale retrieves a cached rate even if expired.
func (c *Client) getStale(from, to string) (float64, bool) {
	if c.cache == nil {
		return 0, false
	}
	entry, ok := c.cache.Get(from)
	if !ok {
		return 0, false
	}
	rate, exists := entry.Value[to]
	if !exists || rate <= 0 {
		return 0, false
	}
	return rate, true
}
