// Package yahoo provides a keyless client for the Yahoo Finance JSON endpoints:
// batch quotes (v7), daily charts (v8) and quoteSummary profiles (v10).
package yahoo

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
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	DefaultTimeout = 15 * time.Second
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Client for the Yahoo Finance public API
type Client struct {
	baseURL    string
	httpClient *http.Client
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

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        log.With().Str("client", "yahoo").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("path", path).Msg("Yahoo API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: yahoo %s: %v", domain.ErrUpstreamUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: yahoo %s: status %d: %s", domain.ErrUpstreamUnavailable, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode yahoo %s response: %w", path, err)
	}
	return nil
}

type quoteResult struct {
	Symbol                      string   `json:"symbol"`
	Currency                    string   `json:"currency"`
	QuoteType                   string   `json:"quoteType"`
	LongName                    string   `json:"longName"`
	ShortName                   string   `json:"shortName"`
	RegularMarketPrice          float64  `json:"regularMarketPrice"`
	RegularMarketChange         float64  `json:"regularMarketChange"`
	RegularMarketChangePercent  float64  `json:"regularMarketChangePercent"`
	MarketCap                   *float64 `json:"marketCap"`
	TrailingPE                  *float64 `json:"trailingPE"`
	TrailingAnnualDividendYield *float64 `json:"trailingAnnualDividendYield"`
	Beta                        *float64 `json:"beta"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

// GetQuotes fetches quotes for all symbols in one request. Symbols Yahoo does
// not know are simply absent from the returned map.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	if len(symbols) == 0 {
		return map[string]domain.Quote{}, nil
	}

	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))

	var resp quoteResponse
	if err := c.get(ctx, "/v7/finance/quote", params, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("%w: yahoo quote error: %s", domain.ErrUpstreamUnavailable, resp.QuoteResponse.Error.Description)
	}

	requested := make(map[string]string, len(symbols))
	for _, s := range symbols {
		requested[strings.ToUpper(s)] = s
	}

	quotes := make(map[string]domain.Quote, len(resp.QuoteResponse.Result))
	for _, r := range resp.QuoteResponse.Result {
		if r.RegularMarketPrice <= 0 {
			continue
		}
		symbol, ok := requested[strings.ToUpper(r.Symbol)]
		if !ok {
			symbol = r.Symbol
		}

		q := domain.Quote{
			Symbol:        symbol,
			Price:         r.RegularMarketPrice,
			Change:        r.RegularMarketChange,
			ChangePercent: r.RegularMarketChangePercent,
			MarketCap:     r.MarketCap,
			PE:            r.TrailingPE,
			DividendYield: r.TrailingAnnualDividendYield,
			Beta:          r.Beta,
			Currency:      r.Currency,
			Source:        domain.SourceYahoo,
		}
		if r.QuoteType != "" || r.LongName != "" || r.ShortName != "" {
			q.Metadata = &domain.SecurityMetadata{
				Symbol:    symbol,
				QuoteType: r.QuoteType,
				LongName:  r.LongName,
				ShortName: r.ShortName,
			}
		}
		quotes[symbol] = q
	}

	return quotes, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// chartRange picks the smallest Yahoo range covering the requested days.
func chartRange(days int) string {
	switch {
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 366:
		return "1y"
	case days <= 731:
		return "2y"
	default:
		return "5y"
	}
}

// GetDailyBars returns daily bars covering roughly the last days calendar days, oldest first.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, days int) ([]domain.Bar, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", chartRange(days))

	var resp chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo chart error: %s", domain.ErrUpstreamUnavailable, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no chart for %s", domain.ErrDataInsufficient, symbol)
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]domain.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Null closes mark holidays and halted sessions
		if i >= len(quote.Close) || quote.Close[i] == nil || *quote.Close[i] <= 0 {
			continue
		}
		bar := domain.Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *quote.Close[i],
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}

	return bars, nil
}
