package snapshots

import (
	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/aristath/holdings-risk/pkg/formulas"
)

const (
	// HistoryMonths yields twelve monthly returns.
	HistoryMonths = 13
	// HistoryTradingDays is one year of daily bars.
	HistoryTradingDays = formulas.TradingDaysPerYear
	// LiquidityWindow is the number of recent bars averaged for dollar volume.
	LiquidityWindow = 10
)

// seriesStats are the price-derived risk inputs of one symbol.
type seriesStats struct {
	VolatilityPct   *float64
	Beta            *float64
	MaxDrawdownPct  *float64
	AvgDollarVolume *float64
}

// preferDaily takes each statistic from the daily series when available and
// falls back to the monthly regression.
func preferDaily(daily, monthly seriesStats) seriesStats {
	return seriesStats{
		VolatilityPct:   firstNonNil(daily.VolatilityPct, monthly.VolatilityPct),
		Beta:            firstNonNil(daily.Beta, monthly.Beta),
		MaxDrawdownPct:  firstNonNil(daily.MaxDrawdownPct, monthly.MaxDrawdownPct),
		AvgDollarVolume: firstNonNil(daily.AvgDollarVolume, monthly.AvgDollarVolume),
	}
}

func firstNonNil(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// monthlyStats computes volatility, drawdown and beta from month-end closes.
func monthlyStats(points, benchmark []domain.OHLCPoint) seriesStats {
	if len(points) < 2 {
		return seriesStats{}
	}
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}

	benchByMonth := make(map[string]float64, len(benchmark))
	for _, p := range benchmark {
		benchByMonth[p.Date] = p.Close
	}
	var assetAligned, benchAligned []float64
	for _, p := range points {
		if b, ok := benchByMonth[p.Date]; ok {
			assetAligned = append(assetAligned, p.Close)
			benchAligned = append(benchAligned, b)
		}
	}

	return seriesStats{
		VolatilityPct:  formulas.CalculateVolatilityPct(closes, formulas.MonthsPerYear),
		MaxDrawdownPct: formulas.CalculateMaxDrawdownPct(closes),
		Beta:           formulas.CalculateBeta(formulas.CalculateReturns(assetAligned), formulas.CalculateReturns(benchAligned)),
	}
}

// dailyStats computes the same statistics from daily bars, plus liquidity.
func dailyStats(bars, benchmark []domain.Bar) seriesStats {
	if len(bars) < 2 {
		return seriesStats{}
	}
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	benchByDay := make(map[string]float64, len(benchmark))
	for _, b := range benchmark {
		benchByDay[b.Date.Format("2006-01-02")] = b.Close
	}
	var assetAligned, benchAligned []float64
	for _, b := range bars {
		if c, ok := benchByDay[b.Date.Format("2006-01-02")]; ok {
			assetAligned = append(assetAligned, b.Close)
			benchAligned = append(benchAligned, c)
		}
	}

	return seriesStats{
		VolatilityPct:   formulas.CalculateVolatilityPct(closes, formulas.TradingDaysPerYear),
		MaxDrawdownPct:  formulas.CalculateMaxDrawdownPct(closes),
		Beta:            formulas.CalculateBeta(formulas.CalculateReturns(assetAligned), formulas.CalculateReturns(benchAligned)),
		AvgDollarVolume: formulas.AverageDollarVolume(closes, volumes, LiquidityWindow),
	}
}
