// Package snapshots computes holdings risk snapshots and serves them from a
// durable cache keyed by (portfolio, benchmark).
package snapshots

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/aristath/holdings-risk/internal/modules/scoring"
	"github.com/aristath/holdings-risk/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// MarketData is the subset of the market data aggregators the orchestrator uses.
type MarketData interface {
	FetchQuotesBatch(ctx context.Context, symbols []string) map[string]domain.Quote
	FetchHistoryMonthlyClose(ctx context.Context, symbol string, months int) []domain.OHLCPoint
	FetchHistoryDaily(ctx context.Context, symbol string, tradingDays int) []domain.Bar
	FetchFundamentals(ctx context.Context, symbol string) *domain.Fundamentals
}

// SectorResolver classifies tickers.
type SectorResolver interface {
	SectorForTicker(ticker string) string
	EnsureSectors(ctx context.Context, tickers []string)
	SeedSectorFromQuote(ticker string, meta *domain.SecurityMetadata)
}

// FxResolver converts between currencies.
type FxResolver interface {
	FetchFxRate(ctx context.Context, from, to string) float64
}

// DefaultBasePortfolioSize is the assumed portfolio value used to back-solve
// share counts from weights.
const DefaultBasePortfolioSize = 100000.0

// Orchestrator computes snapshots. It never touches persistence.
type Orchestrator struct {
	market   MarketData
	sectors  SectorResolver
	fx       FxResolver
	baseSize float64
	now      func() time.Time
	log      zerolog.Logger
}

// NewOrchestrator creates an orchestrator. baseSize <= 0 selects
// DefaultBasePortfolioSize.
func NewOrchestrator(market MarketData, sectors SectorResolver, fx FxResolver, baseSize float64, log zerolog.Logger) *Orchestrator {
	if baseSize <= 0 {
		baseSize = DefaultBasePortfolioSize
	}
	return &Orchestrator{
		market:   market,
		sectors:  sectors,
		fx:       fx,
		baseSize: baseSize,
		now:      time.Now,
		log:      log.With().Str("component", "snapshot_orchestrator").Logger(),
	}
}

// symbolData is everything fetched for one unique ticker.
type symbolData struct {
	quote        domain.Quote
	priceBase    float64 // quote price in the portfolio base currency
	monthly      []domain.OHLCPoint
	daily        []domain.Bar
	fundamentals *domain.Fundamentals
}

// ComputeHoldingsSnapshot builds a snapshot for holdings against benchmark,
// valuing everything in baseCurrency.
func (o *Orchestrator) ComputeHoldingsSnapshot(ctx context.Context, holdings []domain.Holding, benchmark, baseCurrency string) *domain.HoldingsSnapshot {
	benchmark = domain.NormalizeTicker(benchmark)
	baseCurrency = strings.TrimSpace(baseCurrency)
	if baseCurrency == "" {
		baseCurrency = domain.DefaultBaseCurrency
	}
	now := o.now().UTC()

	meta := domain.SnapshotMeta{
		Benchmark:    benchmark,
		RiskModel:    scoring.ModelVersion,
		BaseCurrency: baseCurrency,
		RefreshedAt:  now.Format(time.RFC3339),
	}
	if len(holdings) == 0 {
		return &domain.HoldingsSnapshot{Holdings: []domain.HoldingRow{}, Meta: meta}
	}

	done := utils.OperationTimer("compute_holdings_snapshot", o.log)
	defer done()

	tickers := uniqueTickers(holdings)

	// Quotes, converted to the base currency
	data := o.fetchQuotes(ctx, tickers, baseCurrency)

	// Shares, value, weight and cost basis
	rows := o.valueHoldings(holdings, data)
	meta.TotalValue = round(sumValues(rows), 2)
	for _, r := range rows {
		if r.HasCostBasis {
			meta.AnyCostBasis = true
			break
		}
	}

	// Sectors: seed from quote metadata, then wait for the rest
	for _, t := range tickers {
		o.sectors.SeedSectorFromQuote(t, data[t].quote.Metadata)
	}
	o.sectors.EnsureSectors(ctx, tickers)

	// History and fundamentals
	benchMonthly, benchDaily := o.fetchHistory(ctx, tickers, benchmark, data)

	// Statistics and risk per holding
	for i := range rows {
		d := data[rows[i].Ticker]
		stats := preferDaily(dailyStats(d.daily, benchDaily), monthlyStats(d.monthly, benchMonthly))
		if stats.Beta == nil && d.fundamentals != nil {
			stats.Beta = d.fundamentals.Beta
		}

		rows[i].Sector = o.sectors.SectorForTicker(rows[i].Ticker)
		rows[i].Volatility12m = roundPtr(stats.VolatilityPct, 2)
		rows[i].Beta12m = roundPtr(stats.Beta, 3)

		weight := rows[i].WeightPct
		result := scoring.ComputeRiskScore(buildFactors(stats, d.fundamentals, weight, now))
		rows[i].RiskScore = result.RiskScore
		rows[i].RiskBucket = result.Bucket
		rows[i].RiskComponents = result.Components
	}

	// Weighted beta over holdings with a known beta
	meta.AvgBetaWeighted = weightedBeta(rows)

	// Heaviest first; ties keep input order
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].WeightPct > rows[j].WeightPct
	})

	return &domain.HoldingsSnapshot{Holdings: rows, Meta: meta}
}

func uniqueTickers(holdings []domain.Holding) []string {
	seen := make(map[string]struct{}, len(holdings))
	out := make([]string, 0, len(holdings))
	for _, h := range holdings {
		t := domain.NormalizeTicker(h.Ticker)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (o *Orchestrator) fetchQuotes(ctx context.Context, tickers []string, baseCurrency string) map[string]*symbolData {
	quotes := o.market.FetchQuotesBatch(ctx, tickers)

	rates := make(map[string]float64)
	data := make(map[string]*symbolData, len(tickers))
	for _, t := range tickers {
		q, ok := quotes[t]
		if !ok {
			q = domain.DefaultQuote(t)
		}

		price := q.Price
		// The placeholder price carries no currency information.
		if !q.IsDefault() && q.Currency != "" && q.Currency != baseCurrency {
			rate, cached := rates[q.Currency]
			if !cached {
				rate = o.fx.FetchFxRate(ctx, q.Currency, baseCurrency)
				rates[q.Currency] = rate
			}
			price *= rate
		}
		if !(price > 0) || math.IsInf(price, 0) {
			o.log.Warn().Str("ticker", t).Float64("price", q.Price).Msg("Unusable quote price, using default")
			q = domain.DefaultQuote(t)
			price = q.Price
		}

		data[t] = &symbolData{quote: q, priceBase: price}
	}
	return data
}

// valueHoldings derives shares, value, weight and cost-basis returns in input order.
func (o *Orchestrator) valueHoldings(holdings []domain.Holding, data map[string]*symbolData) []domain.HoldingRow {
	rows := make([]domain.HoldingRow, 0, len(holdings))
	equalWeight := 100.0 / float64(len(holdings))

	for _, h := range holdings {
		t := domain.NormalizeTicker(h.Ticker)
		d, ok := data[t]
		if !ok {
			q := domain.DefaultQuote(t)
			d = &symbolData{quote: q, priceBase: q.Price}
		}

		row := domain.HoldingRow{
			ID:           h.ID,
			Ticker:       t,
			Price:        round(d.priceBase, 4),
			HasCostBasis: h.HasCostBasis(),
		}

		var shares float64
		switch {
		case h.Shares != nil:
			shares = *h.Shares
		case d.priceBase > 0:
			weight := equalWeight
			if h.TargetWeightPct != nil {
				weight = *h.TargetWeightPct
			}
			shares = weight / 100 * o.baseSize / d.priceBase
			row.SharesAreEstimated = true
		}
		row.Shares = floatPtr(round(shares, 6))
		row.Value = decimal.NewFromFloat(d.priceBase).Mul(decimal.NewFromFloat(shares)).Round(2).InexactFloat64()

		if row.HasCostBasis {
			// Purchase prices are recorded in the quote's own currency.
			ret := (d.quote.Price - *h.PurchasePrice) / *h.PurchasePrice * 100
			row.ReturnSincePurchase = floatPtr(round(ret, 2))
		}

		rows = append(rows, row)
	}

	total := sumValues(rows)
	for i := range rows {
		if total > 0 {
			rows[i].WeightPct = round(rows[i].Value/total*100, 2)
		}
		if ret := rows[i].ReturnSincePurchase; ret != nil {
			rows[i].ContributionPct = floatPtr(round(rows[i].WeightPct*(*ret)/100, 2))
		}
	}
	return rows
}

// fetchHistory loads monthly and daily history for the benchmark and every
// ticker, plus fundamentals, all in parallel.
func (o *Orchestrator) fetchHistory(ctx context.Context, tickers []string, benchmark string, data map[string]*symbolData) ([]domain.OHLCPoint, []domain.Bar) {
	var (
		g            errgroup.Group
		benchMonthly []domain.OHLCPoint
		benchDaily   []domain.Bar
	)

	if benchmark != "" {
		g.Go(func() error {
			benchMonthly = o.market.FetchHistoryMonthlyClose(ctx, benchmark, HistoryMonths)
			return nil
		})
		g.Go(func() error {
			benchDaily = o.market.FetchHistoryDaily(ctx, benchmark, HistoryTradingDays)
			return nil
		})
	}

	for _, t := range tickers {
		d := data[t]
		symbol := t
		g.Go(func() error {
			d.monthly = o.market.FetchHistoryMonthlyClose(ctx, symbol, HistoryMonths)
			return nil
		})
		g.Go(func() error {
			d.daily = o.market.FetchHistoryDaily(ctx, symbol, HistoryTradingDays)
			return nil
		})
		g.Go(func() error {
			d.fundamentals = o.market.FetchFundamentals(ctx, symbol)
			return nil
		})
	}

	_ = g.Wait()
	return benchMonthly, benchDaily
}

func buildFactors(stats seriesStats, f *domain.Fundamentals, weightPct float64, now time.Time) scoring.Factors {
	factors := scoring.Factors{
		VolatilityPct:   stats.VolatilityPct,
		MaxDrawdownPct:  stats.MaxDrawdownPct,
		Beta:            stats.Beta,
		AvgDollarVolume: stats.AvgDollarVolume,
		WeightPct:       &weightPct,
	}
	if f == nil {
		return factors
	}

	factors.DebtToEquity = f.DebtToEquity
	factors.InterestCoverage = f.InterestCoverage
	factors.TrailingPE = f.TrailingPE
	factors.PriceToSales = f.PriceToSales
	factors.PEG = f.PEG
	factors.FCFYieldPct = f.FCFYieldPct
	factors.ShortPercentFloat = f.ShortPercentFloat
	factors.ShortRatio = f.ShortRatio
	if f.NextEarnings != nil {
		days := int(math.Ceil(f.NextEarnings.Sub(now).Hours() / 24))
		factors.DaysToEarnings = &days
	}
	return factors
}

// weightedBeta is 0 when no holding has a beta.
func weightedBeta(rows []domain.HoldingRow) float64 {
	var sumW, sumWB float64
	for _, r := range rows {
		if r.Beta12m == nil || r.WeightPct <= 0 {
			continue
		}
		sumW += r.WeightPct
		sumWB += r.WeightPct * *r.Beta12m
	}
	if sumW == 0 {
		return 0
	}
	return round(sumWB/sumW, 3)
}

func sumValues(rows []domain.HoldingRow) float64 {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(decimal.NewFromFloat(r.Value))
	}
	return total.InexactFloat64()
}

func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func roundPtr(v *float64, places int32) *float64 {
	if v == nil {
		return nil
	}
	return floatPtr(round(*v, places))
}

func floatPtr(v float64) *float64 {
	return &v
}
