package scoring

import (
	"math"
	"testing"

	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func componentByKey(t *testing.T, r Result, key string) domain.RiskComponent {
	t.Helper()
	for _, c := range r.Components {
		if c.Key == key {
			return c
		}
	}
	require.Failf(t, "component not found", "key %s", key)
	return domain.RiskComponent{}
}

func TestWeights_SumToOne(t *testing.T) {
	total := 0.0
	for _, w := range Weights() {
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.InDelta(t, 0.18, Weights()[KeyVolatility], 1e-9)
	assert.InDelta(t, 0.10, Weights()[KeyConcentration], 1e-9)
}

func TestComputeRiskScore_AllUnknown(t *testing.T) {
	r := ComputeRiskScore(Factors{})

	assert.Equal(t, 49, r.RiskScore)
	assert.Equal(t, domain.RiskMedium, r.Bucket)
	require.Len(t, r.Components, 12)

	for _, c := range r.Components {
		assert.Nil(t, c.RawValue, c.Key)
		if c.Key == KeyEarnings {
			assert.Equal(t, 20.0, c.Score)
		} else {
			assert.Equal(t, 50.0, c.Score, c.Key)
		}
	}

	weightSum := 0.0
	for _, c := range r.Components {
		weightSum += c.Weight
	}
	assert.InDelta(t, 1.0, weightSum, 1e-9)
}

func TestComputeRiskScore_ComponentOrderIsFixed(t *testing.T) {
	r := ComputeRiskScore(Factors{VolatilityPct: ptr(30)})
	keys := make([]string, 0, len(r.Components))
	for _, c := range r.Components {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{
		KeyVolatility, KeyDrawdown, KeyBeta, KeyDebtEquity, KeyInterestCoverage,
		KeyValuation, KeyPEG, KeyFCFYield, KeyLiquidity, KeyShortInterest,
		KeyEarnings, KeyConcentration,
	}, keys)
}

func TestComputeRiskScore_LowRiskHolding(t *testing.T) {
	r := ComputeRiskScore(Factors{
		VolatilityPct:     ptr(10),
		MaxDrawdownPct:    ptr(5),
		Beta:              ptr(1),
		DebtToEquity:      ptr(0),
		InterestCoverage:  ptr(20),
		TrailingPE:        ptr(9),
		PEG:               ptr(0.8),
		FCFYieldPct:       ptr(10),
		AvgDollarVolume:   ptr(5e9),
		ShortPercentFloat: ptr(1),
		ShortRatio:        ptr(0.5),
		DaysToEarnings:    intPtr(60),
		WeightPct:         ptr(1),
	})

	assert.Equal(t, 0, r.RiskScore)
	assert.Equal(t, domain.RiskLow, r.Bucket)
}

func TestComputeRiskScore_HighRiskHolding(t *testing.T) {
	r := ComputeRiskScore(Factors{
		VolatilityPct:     ptr(80),
		MaxDrawdownPct:    ptr(-65),
		Beta:              ptr(2.4),
		DebtToEquity:      ptr(4),
		InterestCoverage:  ptr(0.5),
		TrailingPE:        ptr(-12),
		PriceToSales:      ptr(30),
		PEG:               ptr(5),
		FCFYieldPct:       ptr(-2),
		AvgDollarVolume:   ptr(2e5),
		ShortPercentFloat: ptr(35),
		DaysToEarnings:    intPtr(3),
		WeightPct:         ptr(40),
	})

	assert.Equal(t, 100, r.RiskScore)
	assert.Equal(t, domain.RiskHigh, r.Bucket)

	valuation := componentByKey(t, r, KeyValuation)
	require.NotNil(t, valuation.RawValue)
	assert.Equal(t, 30.0, *valuation.RawValue)

	drawdown := componentByKey(t, r, KeyDrawdown)
	require.NotNil(t, drawdown.RawValue)
	assert.Equal(t, 65.0, *drawdown.RawValue)
}

func TestComputeRiskScore_FactorMappings(t *testing.T) {
	tests := []struct {
		name    string
		factors Factors
		key     string
		want    float64
	}{
		{"volatility midpoint", Factors{VolatilityPct: ptr(35)}, KeyVolatility, 50},
		{"beta distance", Factors{Beta: ptr(0.5)}, KeyBeta, 50},
		{"beta above one", Factors{Beta: ptr(1.25)}, KeyBeta, 25},
		{"debt equity", Factors{DebtToEquity: ptr(1.25)}, KeyDebtEquity, 50},
		{"interest coverage at one", Factors{InterestCoverage: ptr(1)}, KeyInterestCoverage, 100},
		{"interest coverage midpoint", Factors{InterestCoverage: ptr(8)}, KeyInterestCoverage, 50},
		{"pe", Factors{TrailingPE: ptr(35)}, KeyValuation, 50},
		{"ps fallback", Factors{PriceToSales: ptr(8)}, KeyValuation, 50},
		{"peg", Factors{PEG: ptr(2)}, KeyPEG, 50},
		{"negative peg unknown", Factors{PEG: ptr(-1)}, KeyPEG, 50},
		{"fcf yield inverted", Factors{FCFYieldPct: ptr(2)}, KeyFCFYield, 75},
		{"liquidity log scale", Factors{AvgDollarVolume: ptr(3.1622776601683795e7)}, KeyLiquidity, 50},
		{"short ratio only", Factors{ShortRatio: ptr(5.5)}, KeyShortInterest, 50},
		{"short takes the worse", Factors{ShortPercentFloat: ptr(2), ShortRatio: ptr(10)}, KeyShortInterest, 100},
		{"earnings within a week", Factors{DaysToEarnings: intPtr(7)}, KeyEarnings, 100},
		{"earnings within three weeks", Factors{DaysToEarnings: intPtr(21)}, KeyEarnings, 60},
		{"earnings far away", Factors{DaysToEarnings: intPtr(22)}, KeyEarnings, 0},
		{"earnings in the past", Factors{DaysToEarnings: intPtr(-3)}, KeyEarnings, 20},
		{"concentration", Factors{WeightPct: ptr(13.5)}, KeyConcentration, 50},
		{"concentration clamped", Factors{WeightPct: ptr(60)}, KeyConcentration, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ComputeRiskScore(tt.factors)
			assert.InDelta(t, tt.want, componentByKey(t, r, tt.key).Score, 0.05)
		})
	}
}

func TestBucketFor(t *testing.T) {
	assert.Equal(t, domain.RiskLow, BucketFor(0))
	assert.Equal(t, domain.RiskLow, BucketFor(32))
	assert.Equal(t, domain.RiskMedium, BucketFor(33))
	assert.Equal(t, domain.RiskMedium, BucketFor(65))
	assert.Equal(t, domain.RiskHigh, BucketFor(66))
	assert.Equal(t, domain.RiskHigh, BucketFor(100))
}

func TestComputeRiskScore_BoundedForExtremeInputs(t *testing.T) {
	r := ComputeRiskScore(Factors{VolatilityPct: ptr(1e9), DebtToEquity: ptr(-5)})
	assert.GreaterOrEqual(t, r.RiskScore, 0)
	assert.LessOrEqual(t, r.RiskScore, 100)
}

func TestComputeRiskScore_NonFiniteInputsScoreAsUnknown(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	r := ComputeRiskScore(Factors{
		VolatilityPct:     ptr(nan),
		MaxDrawdownPct:    ptr(nan),
		Beta:              ptr(inf),
		DebtToEquity:      ptr(math.Inf(-1)),
		InterestCoverage:  ptr(nan),
		TrailingPE:        ptr(inf),
		PriceToSales:      ptr(nan),
		PEG:               ptr(nan),
		FCFYieldPct:       ptr(inf),
		AvgDollarVolume:   ptr(inf),
		ShortPercentFloat: ptr(nan),
		ShortRatio:        ptr(inf),
		WeightPct:         ptr(nan),
	})

	assert.Equal(t, ComputeRiskScore(Factors{}), r)
	for _, c := range r.Components {
		assert.False(t, math.IsNaN(c.Score), c.Key)
		assert.Nil(t, c.RawValue, c.Key)
	}
}
