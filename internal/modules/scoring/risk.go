// Package scoring implements the per-holding composite risk model.
//
// Each factor is mapped linearly onto 0-100 between a low and a high anchor
// (inverted factors score 100 at the low anchor) and clamped. Missing factors
// score a neutral 50. The composite is the weighted sum rounded to an integer.
package scoring

import (
	"math"

	"github.com/aristath/holdings-risk/internal/domain"
)

// ModelVersion tags snapshots produced by this model.
const ModelVersion = "risk-v2-position"

// NeutralScore is assigned to factors with no data.
const NeutralScore = 50.0

// unknownEarningsScore applies when no upcoming earnings date is known.
const unknownEarningsScore = 20.0

// Bucket thresholds on the composite score.
const (
	lowBucketBelow    = 33
	mediumBucketBelow = 66
)

// concentrationWeight is carved out of the base weights, which are scaled
// by the remainder.
const concentrationWeight = 0.10

// Component keys.
const (
	KeyVolatility       = "volatility"
	KeyDrawdown         = "drawdown"
	KeyBeta             = "beta"
	KeyDebtEquity       = "debt_equity"
	KeyInterestCoverage = "interest_coverage"
	KeyValuation        = "valuation"
	KeyPEG              = "peg"
	KeyFCFYield         = "fcf_yield"
	KeyLiquidity        = "liquidity"
	KeyShortInterest    = "short_interest"
	KeyEarnings         = "earnings"
	KeyConcentration    = "concentration"
)

type factorDef struct {
	key    string
	label  string
	weight float64
}

// baseFactors lists the eleven security-level factors with their unscaled weights.
var baseFactors = []factorDef{
	{KeyVolatility, "12m volatility %", 0.20},
	{KeyDrawdown, "12m max drawdown %", 0.10},
	{KeyBeta, "Beta distance from 1", 0.05},
	{KeyDebtEquity, "Debt / equity", 0.15},
	{KeyInterestCoverage, "Interest coverage", 0.10},
	{KeyValuation, "Valuation (P/E, P/S fallback)", 0.06},
	{KeyPEG, "PEG ratio", 0.05},
	{KeyFCFYield, "FCF yield %", 0.04},
	{KeyLiquidity, "10d avg dollar volume", 0.10},
	{KeyShortInterest, "Short interest", 0.10},
	{KeyEarnings, "Days to next earnings", 0.05},
}

var concentrationFactor = factorDef{KeyConcentration, "Portfolio weight %", concentrationWeight}

// Factors are the optional inputs of the model. Nil means unknown.
type Factors struct {
	VolatilityPct     *float64
	MaxDrawdownPct    *float64
	Beta              *float64
	DebtToEquity      *float64
	InterestCoverage  *float64
	TrailingPE        *float64
	PriceToSales      *float64
	PEG               *float64
	FCFYieldPct       *float64
	AvgDollarVolume   *float64
	ShortPercentFloat *float64
	ShortRatio        *float64
	DaysToEarnings    *int
	WeightPct         *float64
}

// finite drops NaN and infinite values so they score as unknown.
func (f Factors) finite() Factors {
	f.VolatilityPct = finite(f.VolatilityPct)
	f.MaxDrawdownPct = finite(f.MaxDrawdownPct)
	f.Beta = finite(f.Beta)
	f.DebtToEquity = finite(f.DebtToEquity)
	f.InterestCoverage = finite(f.InterestCoverage)
	f.TrailingPE = finite(f.TrailingPE)
	f.PriceToSales = finite(f.PriceToSales)
	f.PEG = finite(f.PEG)
	f.FCFYieldPct = finite(f.FCFYieldPct)
	f.AvgDollarVolume = finite(f.AvgDollarVolume)
	f.ShortPercentFloat = finite(f.ShortPercentFloat)
	f.ShortRatio = finite(f.ShortRatio)
	f.WeightPct = finite(f.WeightPct)
	return f
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

// Result is the scored holding.
type Result struct {
	Bucket     domain.RiskBucket
	Components []domain.RiskComponent
	RiskScore  int
}

// Weights returns the effective weight per component key. They sum to 1.
func Weights() map[string]float64 {
	scale := 1 - concentrationWeight
	weights := make(map[string]float64, len(baseFactors)+1)
	for _, f := range baseFactors {
		weights[f.key] = f.weight * scale
	}
	weights[KeyConcentration] = concentrationWeight
	return weights
}

// BucketFor maps a composite score to its bucket.
func BucketFor(score int) domain.RiskBucket {
	switch {
	case score < lowBucketBelow:
		return domain.RiskLow
	case score < mediumBucketBelow:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

// ComputeRiskScore scores one holding. The full component list is always
// returned in a fixed order.
func ComputeRiskScore(f Factors) Result {
	f = f.finite()
	scale := 1 - concentrationWeight
	components := make([]domain.RiskComponent, 0, len(baseFactors)+1)
	for _, def := range baseFactors {
		score, raw := scoreFactor(def.key, f)
		components = append(components, domain.RiskComponent{
			Key:      def.key,
			Label:    def.label,
			Score:    round1(score),
			Weight:   def.weight * scale,
			RawValue: raw,
		})
	}

	concScore, concRaw := scoreConcentration(f.WeightPct)
	components = append(components, domain.RiskComponent{
		Key:      concentrationFactor.key,
		Label:    concentrationFactor.label,
		Score:    round1(concScore),
		Weight:   concentrationFactor.weight,
		RawValue: concRaw,
	})

	total := 0.0
	for _, c := range components {
		total += c.Score * c.Weight
	}
	score := int(math.Round(clamp(total, 0, 100)))

	return Result{
		RiskScore:  score,
		Bucket:     BucketFor(score),
		Components: components,
	}
}

func scoreFactor(key string, f Factors) (float64, *float64) {
	switch key {
	case KeyVolatility:
		return linearOrNeutral(f.VolatilityPct, 10, 60, false)
	case KeyDrawdown:
		if f.MaxDrawdownPct == nil {
			return NeutralScore, nil
		}
		dd := math.Abs(*f.MaxDrawdownPct)
		return linear(dd, 5, 50), &dd
	case KeyBeta:
		if f.Beta == nil {
			return NeutralScore, nil
		}
		return linear(math.Abs(*f.Beta-1), 0, 1), f.Beta
	case KeyDebtEquity:
		return linearOrNeutral(f.DebtToEquity, 0, 2.5, false)
	case KeyInterestCoverage:
		if f.InterestCoverage == nil {
			return NeutralScore, nil
		}
		if *f.InterestCoverage <= 1 {
			return 100, f.InterestCoverage
		}
		return 100 - linear(*f.InterestCoverage, 1, 15), f.InterestCoverage
	case KeyValuation:
		return scoreValuation(f.TrailingPE, f.PriceToSales)
	case KeyPEG:
		return linearOrNeutral(positive(f.PEG), 1, 3, false)
	case KeyFCFYield:
		return linearOrNeutral(f.FCFYieldPct, 0, 8, true)
	case KeyLiquidity:
		if f.AvgDollarVolume == nil || *f.AvgDollarVolume <= 0 {
			return NeutralScore, nil
		}
		return 100 - linear(math.Log10(*f.AvgDollarVolume), 6, 9), f.AvgDollarVolume
	case KeyShortInterest:
		return scoreShortInterest(f.ShortPercentFloat, f.ShortRatio)
	case KeyEarnings:
		return scoreEarnings(f.DaysToEarnings)
	}
	return NeutralScore, nil
}

// scoreValuation uses trailing P/E when it is meaningful (positive) and
// falls back to price/sales otherwise.
func scoreValuation(pe, ps *float64) (float64, *float64) {
	if pe != nil && *pe > 0 {
		return linear(*pe, 10, 60), pe
	}
	if ps != nil && *ps > 0 {
		return linear(*ps, 1, 15), ps
	}
	return NeutralScore, nil
}

// scoreShortInterest takes the worse of short % of float and days-to-cover.
func scoreShortInterest(pctFloat, ratio *float64) (float64, *float64) {
	var (
		best  = -1.0
		raw   *float64
		found bool
	)
	if pctFloat != nil {
		best, raw, found = linear(*pctFloat, 2, 20), pctFloat, true
	}
	if ratio != nil {
		if s := linear(*ratio, 1, 10); !found || s > best {
			best, raw, found = s, ratio, true
		}
	}
	if !found {
		return NeutralScore, nil
	}
	return best, raw
}

// scoreEarnings is a step function: an imminent report carries event risk.
func scoreEarnings(days *int) (float64, *float64) {
	if days == nil || *days < 0 {
		return unknownEarningsScore, nil
	}
	raw := float64(*days)
	switch {
	case *days <= 7:
		return 100, &raw
	case *days <= 21:
		return 60, &raw
	default:
		return 0, &raw
	}
}

func scoreConcentration(weightPct *float64) (float64, *float64) {
	return linearOrNeutral(weightPct, 2, 25, false)
}

func linearOrNeutral(v *float64, low, high float64, inverted bool) (float64, *float64) {
	if finite(v) == nil {
		return NeutralScore, nil
	}
	s := linear(*v, low, high)
	if inverted {
		s = 100 - s
	}
	return s, v
}

// linear maps v onto 0-100 between low and high, clamped.
func linear(v, low, high float64) float64 {
	if high <= low {
		return NeutralScore
	}
	return clamp((v-low)/(high-low)*100, 0, 100)
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
