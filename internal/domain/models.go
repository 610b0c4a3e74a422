// Package domain provides the core models shared by market data, scoring and snapshots.
package domain

import (
	"strings"
	"time"
)

// QuoteSource identifies which provider produced a quote or series
type QuoteSource string

const (
	SourceFinnhub QuoteSource = "finnhub"
	SourceYahoo   QuoteSource = "yahoo"
	SourceStooq   QuoteSource = "stooq"
	// SourceDefault marks the synthetic fallback quote for unresolved symbols
	SourceDefault QuoteSource = "default"
	// SourceSynthetic marks a generated monthly series used when every tier failed
	SourceSynthetic QuoteSource = "synthetic"
)

// DefaultQuotePrice is the price carried by the default quote.
const DefaultQuotePrice = 100.0

// DefaultBaseCurrency is used for portfolios that do not declare one.
const DefaultBaseCurrency = "USD"

// SectorOther is the unknown-sector sentinel.
const SectorOther = "Other"

// Holding is one line of a portfolio
type Holding struct {
	ID              string   `json:"id"`
	Ticker          string   `json:"ticker"`
	Shares          *float64 `json:"shares,omitempty"`
	PurchasePrice   *float64 `json:"purchase_price,omitempty"`
	TargetWeightPct *float64 `json:"target_weight_pct,omitempty"`
}

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// HasCostBasis reports whether the holding can produce a return since purchase.
func (h Holding) HasCostBasis() bool {
	return h.PurchasePrice != nil && *h.PurchasePrice > 0
}

// Portfolio is a user's list of holdings
type Portfolio struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	BaseCurrency string    `json:"base_currency"`
	Holdings     []Holding `json:"holdings"`
}

// SecurityMetadata is descriptive data a provider returns alongside quotes
// or from a profile lookup. Used for sector classification.
type SecurityMetadata struct {
	Symbol    string `json:"symbol"`
	Sector    string `json:"sector,omitempty"`
	Industry  string `json:"industry,omitempty"`
	Category  string `json:"category,omitempty"`
	QuoteType string `json:"quote_type,omitempty"`
	LongName  string `json:"long_name,omitempty"`
	ShortName string `json:"short_name,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// Quote is the latest price snapshot for a symbol
type Quote struct {
	Metadata      *SecurityMetadata `json:"metadata,omitempty"`
	MarketCap     *float64          `json:"market_cap,omitempty"`
	PE            *float64          `json:"pe,omitempty"`
	DividendYield *float64          `json:"dividend_yield,omitempty"`
	Beta          *float64          `json:"beta,omitempty"`
	Symbol        string            `json:"symbol"`
	Currency      string            `json:"currency"`
	Source        QuoteSource       `json:"source"`
	Price         float64           `json:"price"`
	Change        float64           `json:"change"`
	ChangePercent float64           `json:"change_percent"`
}

// DefaultQuote returns the placeholder quote for a symbol no provider resolved.
func DefaultQuote(symbol string) Quote {
	return Quote{
		Symbol:   symbol,
		Price:    DefaultQuotePrice,
		Currency: DefaultBaseCurrency,
		Source:   SourceDefault,
	}
}

// IsDefault reports whether the quote is the unresolved placeholder.
func (q Quote) IsDefault() bool {
	return q.Source == SourceDefault
}

// OHLCPoint is a month-end close. Date is formatted YYYY-MM.
type OHLCPoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// Bar is a daily candle
type Bar struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Fundamentals are the balance-sheet and market factors used by the risk model.
// Every field is optional.
type Fundamentals struct {
	NextEarnings      *time.Time `json:"next_earnings,omitempty"`
	DebtToEquity      *float64   `json:"debt_to_equity,omitempty"` // ratio, not percent
	InterestCoverage  *float64   `json:"interest_coverage,omitempty"`
	TrailingPE        *float64   `json:"trailing_pe,omitempty"`
	PriceToSales      *float64   `json:"price_to_sales,omitempty"`
	PEG               *float64   `json:"peg,omitempty"`
	FCFYieldPct       *float64   `json:"fcf_yield_pct,omitempty"`
	ShortPercentFloat *float64   `json:"short_percent_float,omitempty"` // percent
	ShortRatio        *float64   `json:"short_ratio,omitempty"`         // days to cover
	Beta              *float64   `json:"beta,omitempty"`
}

// Merge fills every nil field of f from other. Fields already set on f win.
func (f *Fundamentals) Merge(other *Fundamentals) {
	if other == nil {
		return
	}
	fill := func(dst **float64, src *float64) {
		if *dst == nil && src != nil {
			*dst = src
		}
	}
	fill(&f.DebtToEquity, other.DebtToEquity)
	fill(&f.InterestCoverage, other.InterestCoverage)
	fill(&f.TrailingPE, other.TrailingPE)
	fill(&f.PriceToSales, other.PriceToSales)
	fill(&f.PEG, other.PEG)
	fill(&f.FCFYieldPct, other.FCFYieldPct)
	fill(&f.ShortPercentFloat, other.ShortPercentFloat)
	fill(&f.ShortRatio, other.ShortRatio)
	fill(&f.Beta, other.Beta)
	if f.NextEarnings == nil && other.NextEarnings != nil {
		f.NextEarnings = other.NextEarnings
	}
}

// IsEmpty reports whether no field is set.
func (f *Fundamentals) IsEmpty() bool {
	if f == nil {
		return true
	}
	return f.NextEarnings == nil && f.DebtToEquity == nil && f.InterestCoverage == nil &&
		f.TrailingPE == nil && f.PriceToSales == nil && f.PEG == nil && f.FCFYieldPct == nil &&
		f.ShortPercentFloat == nil && f.ShortRatio == nil && f.Beta == nil
}

// RiskBucket is the coarse label derived from a risk score
type RiskBucket string

const (
	RiskLow    RiskBucket = "Low"
	RiskMedium RiskBucket = "Medium"
	RiskHigh   RiskBucket = "High"
)

// RiskComponent is one factor's contribution to a risk score
type RiskComponent struct {
	RawValue *float64 `json:"rawValue"`
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Score    float64  `json:"score"`
	Weight   float64  `json:"weight"`
}

// HoldingRow is one holding in a snapshot
type HoldingRow struct {
	Shares              *float64        `json:"shares"`
	ReturnSincePurchase *float64        `json:"returnSincePurchase"`
	ContributionPct     *float64        `json:"contributionPct"`
	Volatility12m       *float64        `json:"volatility12m"`
	Beta12m             *float64        `json:"beta12m"`
	ID                  string          `json:"id"`
	Ticker              string          `json:"ticker"`
	Sector              string          `json:"sector"`
	RiskBucket          RiskBucket      `json:"riskBucket"`
	RiskComponents      []RiskComponent `json:"riskComponents"`
	Price               float64         `json:"price"`
	Value               float64         `json:"value"`
	WeightPct           float64         `json:"weightPct"`
	RiskScore           int             `json:"riskScore"`
	SharesAreEstimated  bool            `json:"sharesAreEstimated"`
	HasCostBasis        bool            `json:"hasCostBasis"`
}

// SnapshotMeta describes how a snapshot was computed
type SnapshotMeta struct {
	AvgBetaWeighted float64 `json:"avgBetaWeighted"`
	Benchmark       string  `json:"benchmark"`
	RiskModel       string  `json:"riskModel"`
	BaseCurrency    string  `json:"baseCurrency"`
	RefreshedAt     string  `json:"refreshedAt"`
	TotalValue      float64 `json:"totalValue"`
	AnyCostBasis    bool    `json:"anyCostBasis"`
}

// HoldingsSnapshot is the persisted point-in-time analysis of a portfolio.
type HoldingsSnapshot struct {
	Holdings []HoldingRow `json:"holdings"`
	Meta     SnapshotMeta `json:"meta"`
}
