// Package finnhub provides a key-gated client for the Finnhub REST API.
// It serves as the first market data tier: quotes, daily candles,
// fundamental metrics, company profiles and the earnings calendar.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://finnhub.io/api/v1"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 25 // requests per second; the free plan allows 30
)

// IndexProxies maps bare index tickers, which Finnhub does not quote, to
// liquid ETFs that track them.
var IndexProxies = map[string]string{
	"^GSPC": "SPY",
	"^SPX":  "SPY",
	"SPX":   "SPY",
	"^IXIC": "QQQ",
	"^NDX":  "QQQ",
	"NDX":   "QQQ",
	"^DJI":  "DIA",
	"DJI":   "DIA",
	"^RUT":  "IWM",
	"RUT":   "IWM",
}

// ProxySymbol returns the ETF proxy for an index ticker, or the symbol unchanged.
func ProxySymbol(symbol string) string {
	if proxy, ok := IndexProxies[strings.ToUpper(symbol)]; ok {
		return proxy
	}
	return symbol
}

// Client is a rate-limited Finnhub client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRateLimit sets the rate limit. Fractional rates are allowed; the burst
// is never below one request.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			burst := int(requestsPerSecond)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a new Finnhub client. An empty apiKey yields a client
// whose calls all fail with domain.ErrNotConfigured.
func NewClient(apiKey string, log zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		log:        log.With().Str("client", "finnhub").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Enabled reports whether the client has credentials.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// get performs a rate-limited GET request and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if !c.Enabled() {
		return domain.ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.log.Debug().Str("path", path).Str("symbol", params.Get("symbol")).Msg("Finnhub API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: finnhub %s: %v", domain.ErrUpstreamUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: finnhub %s: status %d: %s", domain.ErrUpstreamUnavailable, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode finnhub %s response: %w", path, err)
	}

	return nil
}

type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// GetQuote returns the latest quote for symbol. Index tickers are resolved
// through their ETF proxy but the returned quote keeps the requested symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	params := url.Values{}
	params.Set("symbol", ProxySymbol(symbol))

	var resp quoteResponse
	if err := c.get(ctx, "/quote", params, &resp); err != nil {
		return nil, err
	}

	// Unknown symbols come back as all zeros
	if resp.Current <= 0 {
		return nil, fmt.Errorf("%w: finnhub has no quote for %s", domain.ErrDataInsufficient, symbol)
	}

	return &domain.Quote{
		Symbol:        symbol,
		Price:         resp.Current,
		Change:        resp.Change,
		ChangePercent: resp.ChangePercent,
		Currency:      "USD",
		Source:        domain.SourceFinnhub,
	}, nil
}

type candleResponse struct {
	Close     []float64 `json:"c"`
	Volume    []float64 `json:"v"`
	Timestamp []int64   `json:"t"`
	Status    string    `json:"s"`
}

// GetDailyCandles returns daily bars between from and to, oldest first.
func (c *Client) GetDailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error) {
	params := url.Values{}
	params.Set("symbol", ProxySymbol(symbol))
	params.Set("resolution", "D")
	params.Set("from", fmt.Sprintf("%d", from.Unix()))
	params.Set("to", fmt.Sprintf("%d", to.Unix()))

	var resp candleResponse
	if err := c.get(ctx, "/stock/candle", params, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "ok" || len(resp.Close) == 0 || len(resp.Close) != len(resp.Timestamp) {
		return nil, fmt.Errorf("%w: finnhub candles for %s: status %q", domain.ErrDataInsufficient, symbol, resp.Status)
	}

	bars := make([]domain.Bar, 0, len(resp.Close))
	for i, ts := range resp.Timestamp {
		if resp.Close[i] <= 0 {
			continue
		}
		bar := domain.Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: resp.Close[i],
		}
		if i < len(resp.Volume) {
			bar.Volume = resp.Volume[i]
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

type metricResponse struct {
	Metric map[string]interface{} `json:"metric"`
}

// metric returns the first numeric value found under keys.
func metric(m map[string]interface{}, keys ...string) *float64 {
	for _, key := range keys {
		if v, ok := m[key].(float64); ok {
			val := v
			return &val
		}
	}
	return nil
}

// GetFundamentals maps /stock/metric onto the risk model factors.
func (c *Client) GetFundamentals(ctx context.Context, symbol string) (*domain.Fundamentals, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("metric", "all")

	var resp metricResponse
	if err := c.get(ctx, "/stock/metric", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Metric) == 0 {
		return nil, fmt.Errorf("%w: finnhub has no metrics for %s", domain.ErrDataInsufficient, symbol)
	}

	m := resp.Metric
	f := &domain.Fundamentals{
		DebtToEquity:     metric(m, "totalDebt/totalEquityQuarterly", "totalDebt/totalEquityAnnual"),
		InterestCoverage: metric(m, "netInterestCoverageTTM", "netInterestCoverageAnnual"),
		TrailingPE:       metric(m, "peTTM", "peBasicExclExtraTTM", "peExclExtraTTM"),
		PriceToSales:     metric(m, "psTTM", "psAnnual"),
		PEG:              metric(m, "pegTTM", "pegRatio"),
		Beta:             metric(m, "beta"),
	}

	// Finnhub reports price/FCF; the yield is its reciprocal in percent
	if pfcf := metric(m, "pfcfShareTTM", "pfcfShareAnnual"); pfcf != nil && *pfcf > 0 {
		y := 100 / *pfcf
		f.FCFYieldPct = &y
	}

	return f, nil
}

type profileResponse struct {
	Name     string `json:"name"`
	Ticker   string `json:"ticker"`
	Industry string `json:"finnhubIndustry"`
	Currency string `json:"currency"`
}

// GetProfile returns company metadata used for sector classification.
func (c *Client) GetProfile(ctx context.Context, symbol string) (*domain.SecurityMetadata, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp profileResponse
	if err := c.get(ctx, "/stock/profile2", params, &resp); err != nil {
		return nil, err
	}
	if resp.Name == "" && resp.Industry == "" {
		return nil, fmt.Errorf("%w: finnhub has no profile for %s", domain.ErrDataInsufficient, symbol)
	}

	return &domain.SecurityMetadata{
		Symbol:    symbol,
		Industry:  resp.Industry,
		LongName:  resp.Name,
		QuoteType: "EQUITY",
	}, nil
}

type earningsResponse struct {
	EarningsCalendar []struct {
		Date   string `json:"date"`
		Symbol string `json:"symbol"`
	} `json:"earningsCalendar"`
}

// GetNextEarnings returns the first scheduled earnings date on or after now,
// looking ahead up to horizon. Returns nil, nil when none is scheduled.
func (c *Client) GetNextEarnings(ctx context.Context, symbol string, now time.Time, horizon time.Duration) (*time.Time, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", now.Format("2006-01-02"))
	params.Set("to", now.Add(horizon).Format("2006-01-02"))

	var resp earningsResponse
	if err := c.get(ctx, "/calendar/earnings", params, &resp); err != nil {
		return nil, err
	}

	today := now.Truncate(24 * time.Hour)
	var next *time.Time
	for _, e := range resp.EarningsCalendar {
		d, err := time.Parse("2006-01-02", e.Date)
		if err != nil || d.Before(today) {
			continue
		}
		if next == nil || d.Before(*next) {
			day := d
			next = &day
		}
	}

	return next, nil
}
