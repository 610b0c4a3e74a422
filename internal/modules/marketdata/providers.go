// Package marketdata aggregates quote, history and fundamental data across
// provider tiers. Every provider error is absorbed here: callers receive a
// default, an empty result or nil, never an error.
package marketdata

import (
	"context"
	"time"

	"github.com/aristath/holdings-risk/internal/clients/stooq"
	"github.com/aristath/holdings-risk/internal/clients/yahoo"
	"github.com/aristath/holdings-risk/internal/domain"
)

// Provider names used in metrics and logs.
const (
	providerFinnhub = "finnhub"
	providerYahoo   = "yahoo"
	providerStooq   = "stooq"
)

// FinnhubAPI is the tier 1 key-gated provider.
type FinnhubAPI interface {
	Enabled() bool
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
	GetDailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error)
	GetFundamentals(ctx context.Context, symbol string) (*domain.Fundamentals, error)
	GetProfile(ctx context.Context, symbol string) (*domain.SecurityMetadata, error)
	GetNextEarnings(ctx context.Context, symbol string, now time.Time, horizon time.Duration) (*time.Time, error)
}

// YahooAPI is the tier 2 keyless provider.
type YahooAPI interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error)
	GetDailyBars(ctx context.Context, symbol string, days int) ([]domain.Bar, error)
	GetSummary(ctx context.Context, symbol string) (*yahoo.Summary, error)
}

// StooqAPI is the tier 3 CSV provider.
type StooqAPI interface {
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
	GetHistory(ctx context.Context, symbol string, interval stooq.Interval) ([]stooq.Row, error)
}

// Providers bundles the tier clients. Any of them may be nil.
type Providers struct {
	Finnhub FinnhubAPI
	Yahoo   YahooAPI
	Stooq   StooqAPI
}

func (p Providers) finnhubEnabled() bool {
	return p.Finnhub != nil && p.Finnhub.Enabled()
}
