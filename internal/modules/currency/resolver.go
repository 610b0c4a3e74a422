// Package currency resolves exchange rates between quote currencies and a
// portfolio's base currency.
package currency

import (
	"context"
	"strings"

	"github.com/aristath/holdings-risk/internal/clientdata"
	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/rs/zerolog"
)

// QuoteFetcher resolves FX pair symbols (EURUSD=X) through the quote aggregator.
type QuoteFetcher interface {
	FetchQuotesBatch(ctx context.Context, symbols []string) map[string]domain.Quote
}

// RateSource is a direct exchange-rate API.
type RateSource interface {
	GetRate(ctx context.Context, fromCurrency, toCurrency string) (float64, error)
}

// minorUnits maps sub-unit currency codes used by exchanges to their major
// currency and divisor. Codes are case-sensitive: GBp is pence, GBP is pounds.
var minorUnits = map[string]struct {
	major   string
	divisor float64
}{
	"GBp": {"GBP", 100},
	"GBX": {"GBP", 100},
	"ZAc": {"ZAR", 100},
	"ILA": {"ILS", 100},
}

// Resolver returns FX rates with a 5-minute cache per pair.
// Resolution order: cache, quote aggregator pair symbol, exchange-rate API, 1.0.
type Resolver struct {
	quotes QuoteFetcher
	rates  RateSource
	cache  *clientdata.Store[float64]
	log    zerolog.Logger
}

// NewResolver creates a resolver. rates may be nil.
func NewResolver(quotes QuoteFetcher, rates RateSource, cache *clientdata.Store[float64], log zerolog.Logger) *Resolver {
	if cache == nil {
		cache = clientdata.NewStore[float64]("fx_rates")
	}
	return &Resolver{
		quotes: quotes,
		rates:  rates,
		cache:  cache,
		log:    log.With().Str("component", "fx_resolver").Logger(),
	}
}

// PairSymbol returns the Yahoo-style pair symbol for from/to.
func PairSymbol(from, to string) string {
	return strings.ToUpper(from) + strings.ToUpper(to) + "=X"
}

// normalize splits a currency code into its major currency and the divisor
// that converts sub-unit amounts into it.
func normalize(code string) (string, float64) {
	code = strings.TrimSpace(code)
	if mu, ok := minorUnits[code]; ok {
		return mu.major, mu.divisor
	}
	return strings.ToUpper(code), 1
}

// FetchFxRate returns how many units of to one unit of from buys. It never fails:
// when no source resolves the pair, 1.0 is returned and a warning is logged.
func (r *Resolver) FetchFxRate(ctx context.Context, from, to string) float64 {
	fromMajor, fromDiv := normalize(from)
	toMajor, toDiv := normalize(to)
	if fromMajor == "" || toMajor == "" {
		return 1.0
	}
	return r.majorRate(ctx, fromMajor, toMajor) / fromDiv * toDiv
}

func (r *Resolver) majorRate(ctx context.Context, from, to string) float64 {
	if from == to {
		return 1.0
	}

	key := from + ":" + to
	if rate, ok := r.cache.GetIfFresh(key); ok {
		return rate
	}

	if r.quotes != nil {
		pair := PairSymbol(from, to)
		quotes := r.quotes.FetchQuotesBatch(ctx, []string{pair})
		if q, ok := quotes[pair]; ok && !q.IsDefault() && q.Price > 0 {
			r.cache.Store(key, q.Price, clientdata.TTLExchangeRate)
			return q.Price
		}
	}

	if r.rates != nil {
		rate, err := r.rates.GetRate(ctx, from, to)
		if err == nil && rate > 0 {
			r.cache.Store(key, rate, clientdata.TTLExchangeRate)
			return rate
		}
		r.log.Debug().Err(err).Str("from", from).Str("to", to).Msg("Exchange rate API failed")
	}

	r.log.Warn().Str("from", from).Str("to", to).Msg("No FX source resolved pair, using 1.0")
	return 1.0
}

// ConvertPrice converts amount from one currency to another.
func (r *Resolver) ConvertPrice(ctx context.Context, amount float64, from, to string) float64 {
	return amount * r.FetchFxRate(ctx, from, to)
}
