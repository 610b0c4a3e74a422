// Package stooq provides a keyless CSV client for stooq.com end-of-day data.
// It is the last market data tier before synthetic defaults.
package stooq

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://stooq.com"
	DefaultTimeout = 15 * time.Second
)

// Interval selects the bar size of a Stooq download
type Interval string

const (
	IntervalDaily   Interval = "d"
	IntervalMonthly Interval = "m"
)

// indexSymbols maps Yahoo-style index tickers to Stooq's names.
var indexSymbols = map[string]string{
	"^GSPC": "^spx",
	"^SPX":  "^spx",
	"SPX":   "^spx",
	"^IXIC": "^ndq",
	"^NDX":  "^ndx",
	"NDX":   "^ndx",
	"^DJI":  "^dji",
	"DJI":   "^dji",
	"^RUT":  "^rut",
	"RUT":   "^rut",
}

// StooqSymbol converts a ticker to Stooq's lower-case form. Plain tickers
// are assumed to be US listings and get the ".us" suffix.
func StooqSymbol(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if mapped, ok := indexSymbols[upper]; ok {
		return mapped
	}
	// Currency pairs in Yahoo form (EURUSD=X) are plain pairs on Stooq
	if strings.HasSuffix(upper, "=X") {
		return strings.ToLower(strings.TrimSuffix(upper, "=X"))
	}
	lower := strings.ToLower(upper)
	if strings.HasPrefix(lower, "^") || strings.Contains(lower, ".") {
		return lower
	}
	// Class shares use a dash on Stooq (BRK-B.US)
	return strings.ReplaceAll(lower, "/", "-") + ".us"
}

// Row is one parsed CSV line
type Row struct {
	Date   time.Time
	Close  float64
	Volume float64
}

// Client for stooq.com CSV downloads
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new Stooq client
func NewClient(timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("client", "stooq").Logger(),
	}
}

// SetBaseURL points the client at another endpoint. Used by tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// GetHistory downloads the full series for symbol at the given interval, oldest first.
func (c *Client) GetHistory(ctx context.Context, symbol string, interval Interval) ([]Row, error) {
	params := url.Values{}
	params.Set("s", StooqSymbol(symbol))
	params.Set("i", string(interval))

	reqURL := c.baseURL + "/q/d/l/?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.log.Debug().Str("symbol", params.Get("s")).Str("interval", string(interval)).Msg("Stooq request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: stooq: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: stooq: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	rows, err := ParseCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("stooq %s: %w", symbol, err)
	}
	return rows, nil
}

// GetQuote derives a quote from the last two daily rows.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	rows, err := c.GetHistory(ctx, symbol, IntervalDaily)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: stooq has no rows for %s", domain.ErrDataInsufficient, symbol)
	}

	last := rows[len(rows)-1]
	q := &domain.Quote{
		Symbol:   symbol,
		Price:    last.Close,
		Currency: "USD",
		Source:   domain.SourceStooq,
	}
	if len(rows) > 1 {
		prev := rows[len(rows)-2].Close
		q.Change = last.Close - prev
		if prev != 0 {
			q.ChangePercent = q.Change / prev * 100
		}
	}
	return q, nil
}

// ParseCSV reads Stooq's Date,Open,High,Low,Close[,Volume] format.
// Rows with an unparsable date or a non-positive or non-finite close are
// skipped. A body
// without the expected header (Stooq answers "No data" in plain text) is
// reported as domain.ErrDataInsufficient.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.ErrDataInsufficient
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	dateIdx, closeIdx, volIdx := -1, -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "date":
			dateIdx = i
		case "close":
			closeIdx = i
		case "volume":
			volIdx = i
		}
	}
	if dateIdx < 0 || closeIdx < 0 {
		return nil, domain.ErrDataInsufficient
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if len(record) <= closeIdx || len(record) <= dateIdx {
			continue
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(record[dateIdx]))
		if err != nil {
			continue
		}
		closePrice, err := strconv.ParseFloat(strings.TrimSpace(record[closeIdx]), 64)
		if err != nil || closePrice <= 0 || math.IsNaN(closePrice) || math.IsInf(closePrice, 0) {
			continue
		}

		row := Row{Date: date, Close: closePrice}
		if volIdx >= 0 && volIdx < len(record) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(record[volIdx]), 64); err == nil && v >= 0 && !math.IsInf(v, 0) {
				row.Volume = v
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
