// Package formulas holds the return and risk statistics used by the scoring pipeline.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Trading periods per year used to annualize volatility.
const (
	TradingDaysPerYear = 252
	MonthsPerYear      = 12
)

// MinBetaObservations is the minimum number of paired returns needed for a regression beta.
const MinBetaObservations = 3

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Covariance calculates the covariance between two datasets
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// CalculateReturns converts prices to simple returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// AnnualizedVolatility annualizes the standard deviation of daily returns (x sqrt(252)).
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return AnnualizeVolatility(dailyReturns, TradingDaysPerYear)
}

// AnnualizeVolatility annualizes the standard deviation of returns sampled
// periodsPerYear times a year.
func AnnualizeVolatility(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}
	return StdDev(returns) * math.Sqrt(float64(periodsPerYear))
}

// CalculateVolatilityPct returns annualized volatility of a price series in
// percent, or nil when fewer than two returns are available.
func CalculateVolatilityPct(prices []float64, periodsPerYear int) *float64 {
	returns := CalculateReturns(prices)
	if len(returns) < 2 {
		return nil
	}
	vol := AnnualizeVolatility(returns, periodsPerYear) * 100
	return &vol
}

// CalculateBeta regresses asset returns on benchmark returns and returns the slope.
// Both slices must be aligned period by period. Returns nil when there are too
// few observations or the benchmark does not move.
func CalculateBeta(assetReturns, benchmarkReturns []float64) *float64 {
	if len(assetReturns) != len(benchmarkReturns) || len(assetReturns) < MinBetaObservations {
		return nil
	}
	if Variance(benchmarkReturns) == 0 {
		return nil
	}

	_, beta := stat.LinearRegression(benchmarkReturns, assetReturns, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return nil
	}
	return &beta
}

// AverageDollarVolume averages close*volume over the last window bars.
// Returns nil when no bar in the window carries volume.
func AverageDollarVolume(closes, volumes []float64, window int) *float64 {
	n := len(closes)
	if n == 0 || n != len(volumes) || window <= 0 {
		return nil
	}

	start := 0
	if n > window {
		start = n - window
	}

	sum := 0.0
	count := 0
	for i := start; i < n; i++ {
		if volumes[i] <= 0 || closes[i] <= 0 {
			continue
		}
		sum += closes[i] * volumes[i]
		count++
	}
	if count == 0 {
		return nil
	}

	avg := sum / float64(count)
	return &avg
}
