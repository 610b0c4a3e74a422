package currency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/aristath/holdings-risk/internal/clientdata"
	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeQuotes struct {
	prices map[string]float64
	calls  int32
}

func (f *fakeQuotes) FetchQuotesBatch(_ context.Context, symbols []string) map[string]domain.Quote {
	atomic.AddInt32(&f.calls, 1)
	out := make(map[string]domain.Quote, len(symbols))
	for _, s := range symbols {
		if p, ok := f.prices[s]; ok {
			out[s] = domain.Quote{Symbol: s, Price: p, Source: domain.SourceYahoo}
		} else {
			out[s] = domain.DefaultQuote(s)
		}
	}
	return out
}

type fakeRates struct {
	rates map[string]float64
	calls int32
}

func (f *fakeRates) GetRate(_ context.Context, from, to string) (float64, error) {
	atomic.AddInt32(&f.calls, 1)
	if r, ok := f.rates[from+to]; ok {
		return r, nil
	}
	return 0, errors.New("unknown pair")
}

func TestFetchFxRate_SameCurrency(t *testing.T) {
	q := &fakeQuotes{}
	r := NewResolver(q, nil, nil, zerolog.Nop())

	assert.Equal(t, 1.0, r.FetchFxRate(context.Background(), "usd", "USD"))
	assert.Equal(t, int32(0), atomic.LoadInt32(&q.calls))
}

func TestFetchFxRate_FromQuoteAggregatorAndCached(t *testing.T) {
	q := &fakeQuotes{prices: map[string]float64{"EURUSD=X": 1.08}}
	r := NewResolver(q, nil, nil, zerolog.Nop())

	assert.Equal(t, 1.08, r.FetchFxRate(context.Background(), "EUR", "USD"))
	assert.Equal(t, 1.08, r.FetchFxRate(context.Background(), "eur", "usd"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&q.calls))
}

func TestFetchFxRate_DefaultQuoteFallsThroughToRateAPI(t *testing.T) {
	q := &fakeQuotes{}
	rates := &fakeRates{rates: map[string]float64{"CHFUSD": 1.12}}
	r := NewResolver(q, rates, nil, zerolog.Nop())

	assert.Equal(t, 1.12, r.FetchFxRate(context.Background(), "CHF", "USD"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&rates.calls))
}

func TestFetchFxRate_AllSourcesFailReturnsOne(t *testing.T) {
	r := NewResolver(&fakeQuotes{}, &fakeRates{}, nil, zerolog.Nop())
	assert.Equal(t, 1.0, r.FetchFxRate(context.Background(), "XAU", "USD"))
}

func TestFetchFxRate_UnknownIsNotCached(t *testing.T) {
	q := &fakeQuotes{prices: map[string]float64{}}
	r := NewResolver(q, nil, nil, zerolog.Nop())

	assert.Equal(t, 1.0, r.FetchFxRate(context.Background(), "SEK", "USD"))
	q.prices["SEKUSD=X"] = 0.095
	assert.Equal(t, 0.095, r.FetchFxRate(context.Background(), "SEK", "USD"))
}

func TestFetchFxRate_PenceNormalization(t *testing.T) {
	q := &fakeQuotes{prices: map[string]float64{"GBPUSD=X": 1.25}}
	r := NewResolver(q, nil, nil, zerolog.Nop())

	assert.InDelta(t, 0.0125, r.FetchFxRate(context.Background(), "GBp", "USD"), 1e-12)
	assert.InDelta(t, 1.25, r.FetchFxRate(context.Background(), "GBP", "USD"), 1e-12)
	assert.InDelta(t, 0.01, r.FetchFxRate(context.Background(), "GBX", "GBP"), 1e-12)
	assert.InDelta(t, 100.0, r.FetchFxRate(context.Background(), "GBP", "GBp"), 1e-12)
}

func TestFetchFxRate_UsesSharedCache(t *testing.T) {
	cache := clientdata.NewStore[float64]("fx")
	cache.Store("JPY:USD", 0.0067, clientdata.TTLExchangeRate)

	r := NewResolver(&fakeQuotes{}, nil, cache, zerolog.Nop())
	assert.Equal(t, 0.0067, r.FetchFxRate(context.Background(), "JPY", "USD"))
}

func TestConvertPrice(t *testing.T) {
	q := &fakeQuotes{prices: map[string]float64{"EURUSD=X": 1.1}}
	r := NewResolver(q, nil, nil, zerolog.Nop())
	assert.InDelta(t, 110.0, r.ConvertPrice(context.Background(), 100, "EUR", "USD"), 1e-9)
}

func TestPairSymbol(t *testing.T) {
	assert.Equal(t, "EURUSD=X", PairSymbol("eur", "usd"))
}
