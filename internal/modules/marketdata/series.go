package marketdata

import (
	"hash/fnv"
	"math/rand"
	"sort"
	"time"

	"github.com/aristath/holdings-risk/internal/clients/stooq"
	"github.com/aristath/holdings-risk/internal/domain"
)

// Minimum raw points a tier must return before its series is used.
const (
	MinDailyPoints   = 60
	MinMonthlyPoints = 3
)

const monthLayout = "2006-01"

// CollapseToMonthly reduces daily bars to one close per calendar month.
// The last bar seen for a month wins, so bars must be in chronological order.
func CollapseToMonthly(bars []domain.Bar) []domain.OHLCPoint {
	byMonth := make(map[string]float64, len(bars)/20+1)
	for _, b := range bars {
		byMonth[b.Date.UTC().Format(monthLayout)] = b.Close
	}
	return sortedPoints(byMonth)
}

// rowsToMonthly converts Stooq monthly rows, keeping the last row per month.
func rowsToMonthly(rows []stooq.Row) []domain.OHLCPoint {
	byMonth := make(map[string]float64, len(rows))
	for _, r := range rows {
		byMonth[r.Date.UTC().Format(monthLayout)] = r.Close
	}
	return sortedPoints(byMonth)
}

func rowsToBars(rows []stooq.Row) []domain.Bar {
	bars := make([]domain.Bar, len(rows))
	for i, r := range rows {
		bars[i] = domain.Bar{Date: r.Date, Close: r.Close, Volume: r.Volume}
	}
	return bars
}

func sortedPoints(byMonth map[string]float64) []domain.OHLCPoint {
	points := make([]domain.OHLCPoint, 0, len(byMonth))
	for month, c := range byMonth {
		points = append(points, domain.OHLCPoint{Date: month, Close: c})
	}
	// YYYY-MM sorts lexically in time order
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

func sortBars(bars []domain.Bar) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
}

// TrimPoints keeps the last n points.
func TrimPoints(points []domain.OHLCPoint, n int) []domain.OHLCPoint {
	if n <= 0 || len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

func trimBars(bars []domain.Bar, n int) []domain.Bar {
	if n <= 0 || len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}

// SyntheticMonthlySeries returns a near-flat series around 100 ending in the
// month of now. The jitter is seeded from the symbol so repeated calls agree.
func SyntheticMonthlySeries(symbol string, months int, now time.Time) []domain.OHLCPoint {
	if months <= 0 {
		return nil
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	points := make([]domain.OHLCPoint, months)
	price := 100.0
	for i := 0; i < months; i++ {
		// +/-0.5% per month
		price *= 1 + (rng.Float64()-0.5)*0.01
		points[i] = domain.OHLCPoint{
			Date:  start.AddDate(0, i, 0).Format(monthLayout),
			Close: price,
		}
	}
	return points
}
