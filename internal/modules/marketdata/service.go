package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aristath/holdings-risk/internal/clientdata"
	"github.com/aristath/holdings-risk/internal/clients/stooq"
	"github.com/aristath/holdings-risk/internal/clients/yahoo"
	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/rs/zerolog"
)

// earningsHorizon bounds the Finnhub earnings calendar lookup.
const earningsHorizon = 120 * 24 * time.Hour

// Caches holds the process-lifetime stores used by the Service.
type Caches struct {
	Quotes       *clientdata.Store[domain.Quote]
	Monthly      *clientdata.Store[[]domain.OHLCPoint]
	Daily        *clientdata.Store[[]domain.Bar]
	Fundamentals *clientdata.Store[*domain.Fundamentals]
	Summaries    *clientdata.Store[*yahoo.Summary]
	Metadata     *clientdata.Store[*domain.SecurityMetadata]
}

// NewCaches creates the stores and registers them for periodic cleanup.
// registry may be nil.
func NewCaches(registry *clientdata.Registry) *Caches {
	c := &Caches{
		Quotes:       clientdata.NewStore[domain.Quote]("quotes"),
		Monthly:      clientdata.NewStore[[]domain.OHLCPoint]("monthly_history"),
		Daily:        clientdata.NewStore[[]domain.Bar]("daily_history"),
		Fundamentals: clientdata.NewStore[*domain.Fundamentals]("fundamentals"),
		Summaries:    clientdata.NewStore[*yahoo.Summary]("yahoo_summaries"),
		Metadata:     clientdata.NewStore[*domain.SecurityMetadata]("metadata"),
	}
	if registry != nil {
		registry.Register(c.Quotes)
		registry.Register(c.Monthly)
		registry.Register(c.Daily)
		registry.Register(c.Fundamentals)
		registry.Register(c.Summaries)
		registry.Register(c.Metadata)
	}
	return c
}

// Service is the quote and history aggregator.
type Service struct {
	providers Providers
	caches    *Caches
	metrics   *ProviderMetrics
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates the aggregator. caches and metrics may be nil.
func NewService(providers Providers, caches *Caches, metrics *ProviderMetrics, log zerolog.Logger) *Service {
	if caches == nil {
		caches = NewCaches(nil)
	}
	return &Service{
		providers: providers,
		caches:    caches,
		metrics:   metrics,
		now:       time.Now,
		log:       log.With().Str("component", "marketdata").Logger(),
	}
}

// Metrics returns the provider metrics holder.
func (s *Service) Metrics() *ProviderMetrics {
	return s.metrics
}

func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		n := domain.NormalizeTicker(sym)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// FetchQuotesBatch returns a quote for every requested symbol. Keys are the
// upper-cased symbols. Unresolved symbols get domain.DefaultQuote.
func (s *Service) FetchQuotesBatch(ctx context.Context, symbols []string) map[string]domain.Quote {
	wanted := normalizeSymbols(symbols)
	result := make(map[string]domain.Quote, len(wanted))

	pending := make([]string, 0, len(wanted))
	for _, sym := range wanted {
		if q, ok := s.caches.Quotes.GetIfFresh(sym); ok {
			result[sym] = q
			continue
		}
		pending = append(pending, sym)
	}

	if len(pending) > 0 && s.providers.finnhubEnabled() {
		resolved := s.parallelQuotes(ctx, pending, providerFinnhub, s.providers.Finnhub.GetQuote)
		pending = s.absorb(result, resolved, pending)
	}

	if len(pending) > 0 && s.providers.Yahoo != nil {
		batch, err := track(s.metrics, providerYahoo, "batch_quote", func() (map[string]domain.Quote, error) {
			return s.providers.Yahoo.GetQuotes(ctx, pending)
		})
		if err != nil {
			s.log.Debug().Err(err).Int("symbols", len(pending)).Msg("Yahoo batch quote failed")
		} else {
			pending = s.absorb(result, batch, pending)
		}
	}

	if len(pending) > 0 && s.providers.Stooq != nil {
		resolved := s.parallelQuotes(ctx, pending, providerStooq, s.providers.Stooq.GetQuote)
		pending = s.absorb(result, resolved, pending)
	}

	for _, sym := range pending {
		s.log.Warn().Str("symbol", sym).Msg("No provider resolved quote, using default")
		result[sym] = domain.DefaultQuote(sym)
	}

	return result
}

// absorb copies resolved quotes into result and the cache, returning the
// symbols still unresolved in their original order.
func (s *Service) absorb(result, resolved map[string]domain.Quote, pending []string) []string {
	remaining := pending[:0:0]
	for _, sym := range pending {
		q, ok := resolved[sym]
		if !ok || !validPrice(q.Price) {
			remaining = append(remaining, sym)
			continue
		}
		q.Symbol = sym
		result[sym] = q
		s.caches.Quotes.Store(sym, q, clientdata.TTLQuote)
	}
	return remaining
}

// validPrice rejects zero, negative and non-finite prices.
func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0)
}

type quoteFunc func(ctx context.Context, symbol string) (*domain.Quote, error)

// parallelQuotes fans out one goroutine per symbol.
func (s *Service) parallelQuotes(ctx context.Context, symbols []string, provider string, fetch quoteFunc) map[string]domain.Quote {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		resolved = make(map[string]domain.Quote, len(symbols))
	)

	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			q, err := track(s.metrics, provider, "quote", func() (*domain.Quote, error) {
				return fetch(ctx, sym)
			})
			if err != nil || q == nil {
				s.log.Debug().Err(err).Str("provider", provider).Str("symbol", sym).Msg("Quote tier miss")
				return
			}
			mu.Lock()
			resolved[sym] = *q
			mu.Unlock()
		}(sym)
	}
	wg.Wait()

	return resolved
}

// FetchHistoryMonthlyClose returns up to months month-end closes, oldest
// first. When every provider fails, a synthetic flat series is returned.
func (s *Service) FetchHistoryMonthlyClose(ctx context.Context, symbol string, months int) []domain.OHLCPoint {
	if months <= 0 {
		months = 12
	}
	symbol = domain.NormalizeTicker(symbol)
	cacheKey := symbol + ":" + strconv.Itoa(months)
	if points, ok := s.caches.Monthly.GetIfFresh(cacheKey); ok {
		return points
	}

	now := s.now()
	tiers := []struct {
		provider string
		fetch    func() ([]domain.OHLCPoint, error)
	}{
		{providerFinnhub, func() ([]domain.OHLCPoint, error) {
			if !s.providers.finnhubEnabled() {
				return nil, domain.ErrNotConfigured
			}
			bars, err := s.providers.Finnhub.GetDailyCandles(ctx, symbol, now.AddDate(0, -(months+1), 0), now)
			if err != nil {
				return nil, err
			}
			if len(bars) < MinDailyPoints {
				return nil, insufficient(symbol, len(bars))
			}
			return CollapseToMonthly(bars), nil
		}},
		{providerYahoo, func() ([]domain.OHLCPoint, error) {
			if s.providers.Yahoo == nil {
				return nil, domain.ErrNotConfigured
			}
			bars, err := s.providers.Yahoo.GetDailyBars(ctx, symbol, (months+1)*31)
			if err != nil {
				return nil, err
			}
			if len(bars) < MinDailyPoints {
				return nil, insufficient(symbol, len(bars))
			}
			sortBars(bars)
			return CollapseToMonthly(bars), nil
		}},
		{providerStooq, func() ([]domain.OHLCPoint, error) {
			if s.providers.Stooq == nil {
				return nil, domain.ErrNotConfigured
			}
			rows, err := s.providers.Stooq.GetHistory(ctx, symbol, stooq.IntervalMonthly)
			if err != nil {
				return nil, err
			}
			if len(rows) < MinMonthlyPoints {
				return nil, insufficient(symbol, len(rows))
			}
			return rowsToMonthly(rows), nil
		}},
	}

	for _, tier := range tiers {
		points, err := s.trackSeries(tier.provider, "monthly_history", tier.fetch)
		if err != nil || len(points) == 0 {
			continue
		}
		points = TrimPoints(points, months)
		s.caches.Monthly.Store(cacheKey, points, clientdata.TTLMonthlyHistory)
		return points
	}

	s.log.Warn().Str("symbol", symbol).Int("months", months).Msg("All history providers failed, using synthetic series")
	return SyntheticMonthlySeries(symbol, months, now)
}

// trackSeries records metrics for a tier, skipping tiers that are not configured.
func (s *Service) trackSeries(provider, operation string, fetch func() ([]domain.OHLCPoint, error)) ([]domain.OHLCPoint, error) {
	start := time.Now()
	points, err := fetch()
	if errors.Is(err, domain.ErrNotConfigured) {
		return nil, err
	}
	s.metrics.Record(provider, operation, time.Since(start), err)
	return points, err
}

// FetchHistoryDaily returns up to tradingDays daily bars, oldest first.
// Returns nil when no tier produced enough data; there is no synthetic fallback.
func (s *Service) FetchHistoryDaily(ctx context.Context, symbol string, tradingDays int) []domain.Bar {
	if tradingDays <= 0 {
		tradingDays = 252
	}
	symbol = domain.NormalizeTicker(symbol)
	cacheKey := symbol + ":" + strconv.Itoa(tradingDays)
	if bars, ok := s.caches.Daily.GetIfFresh(cacheKey); ok {
		return bars
	}

	now := s.now()
	// Calendar days needed to cover tradingDays sessions, with slack for holidays
	calendarDays := tradingDays*365/252 + 10

	tiers := []struct {
		provider string
		fetch    func() ([]domain.Bar, error)
	}{
		{providerFinnhub, func() ([]domain.Bar, error) {
			if !s.providers.finnhubEnabled() {
				return nil, domain.ErrNotConfigured
			}
			return s.providers.Finnhub.GetDailyCandles(ctx, symbol, now.AddDate(0, 0, -calendarDays), now)
		}},
		{providerYahoo, func() ([]domain.Bar, error) {
			if s.providers.Yahoo == nil {
				return nil, domain.ErrNotConfigured
			}
			return s.providers.Yahoo.GetDailyBars(ctx, symbol, calendarDays)
		}},
		{providerStooq, func() ([]domain.Bar, error) {
			if s.providers.Stooq == nil {
				return nil, domain.ErrNotConfigured
			}
			rows, err := s.providers.Stooq.GetHistory(ctx, symbol, stooq.IntervalDaily)
			if err != nil {
				return nil, err
			}
			return rowsToBars(rows), nil
		}},
	}

	for _, tier := range tiers {
		start := time.Now()
		bars, err := tier.fetch()
		if errors.Is(err, domain.ErrNotConfigured) {
			continue
		}
		if err == nil && len(bars) < MinDailyPoints {
			err = insufficient(symbol, len(bars))
		}
		s.metrics.Record(tier.provider, "daily_history", time.Since(start), err)
		if err != nil {
			s.log.Debug().Err(err).Str("provider", tier.provider).Str("symbol", symbol).Msg("Daily history tier miss")
			continue
		}

		sortBars(bars)
		bars = trimBars(bars, tradingDays)
		s.caches.Daily.Store(cacheKey, bars, clientdata.TTLDailyHistory)
		return bars
	}

	s.log.Debug().Str("symbol", symbol).Msg("No daily history available")
	return nil
}

// FetchFundamentals merges Finnhub metrics (when configured) with Yahoo's
// quoteSummary, field by field. Returns nil when nothing was found.
func (s *Service) FetchFundamentals(ctx context.Context, symbol string) *domain.Fundamentals {
	symbol = domain.NormalizeTicker(symbol)
	if f, ok := s.caches.Fundamentals.GetIfFresh(symbol); ok {
		return f
	}

	merged := &domain.Fundamentals{}

	if s.providers.finnhubEnabled() {
		f, err := track(s.metrics, providerFinnhub, "fundamentals", func() (*domain.Fundamentals, error) {
			return s.providers.Finnhub.GetFundamentals(ctx, symbol)
		})
		if err == nil {
			merged.Merge(f)
		}

		next, err := track(s.metrics, providerFinnhub, "earnings", func() (*time.Time, error) {
			return s.providers.Finnhub.GetNextEarnings(ctx, symbol, s.now(), earningsHorizon)
		})
		if err == nil && next != nil && merged.NextEarnings == nil {
			merged.NextEarnings = next
		}
	}

	if summary := s.summary(ctx, symbol); summary != nil {
		f := summary.Fundamentals
		merged.Merge(&f)
	}

	if merged.IsEmpty() {
		s.log.Debug().Str("symbol", symbol).Msg("No fundamentals available")
		return nil
	}

	s.caches.Fundamentals.Store(symbol, merged, clientdata.TTLFundamentals)
	return merged
}

// summary fetches and caches Yahoo's quoteSummary for symbol.
func (s *Service) summary(ctx context.Context, symbol string) *yahoo.Summary {
	if s.providers.Yahoo == nil {
		return nil
	}
	if cached, ok := s.caches.Summaries.GetIfFresh(symbol); ok {
		return cached
	}

	summary, err := track(s.metrics, providerYahoo, "summary", func() (*yahoo.Summary, error) {
		return s.providers.Yahoo.GetSummary(ctx, symbol)
	})
	if err != nil {
		s.log.Debug().Err(err).Str("symbol", symbol).Msg("Yahoo summary failed")
		return nil
	}

	s.caches.Summaries.Store(symbol, summary, clientdata.TTLFundamentals)
	return summary
}

// FetchMetadata returns descriptive data for sector classification: Yahoo
// quoteSummary first, then the Finnhub company profile. Unlike the other
// fetchers it reports failure so the classifier can decide what to cache.
func (s *Service) FetchMetadata(ctx context.Context, symbol string) (*domain.SecurityMetadata, error) {
	symbol = domain.NormalizeTicker(symbol)
	if meta, ok := s.caches.Metadata.GetIfFresh(symbol); ok {
		return meta, nil
	}

	if summary := s.summary(ctx, symbol); summary != nil && hasClassifiableFields(&summary.Metadata) {
		meta := summary.Metadata
		s.caches.Metadata.Store(symbol, &meta, clientdata.TTLMetadata)
		return &meta, nil
	}

	if s.providers.finnhubEnabled() {
		meta, err := track(s.metrics, providerFinnhub, "profile", func() (*domain.SecurityMetadata, error) {
			return s.providers.Finnhub.GetProfile(ctx, symbol)
		})
		if err == nil && meta != nil {
			s.caches.Metadata.Store(symbol, meta, clientdata.TTLMetadata)
			return meta, nil
		}
	}

	return nil, fmt.Errorf("%w: no metadata for %s", domain.ErrDataInsufficient, symbol)
}

func hasClassifiableFields(m *domain.SecurityMetadata) bool {
	return strings.TrimSpace(m.Sector+m.Industry+m.Category+m.QuoteType+m.LongName+m.Summary) != ""
}

func insufficient(symbol string, n int) error {
	return fmt.Errorf("%w: %s returned %d points", domain.ErrDataInsufficient, symbol, n)
}
