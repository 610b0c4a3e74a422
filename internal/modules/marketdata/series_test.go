package marketdata

import (
	"testing"
	"time"

	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollapseToMonthly_LastCloseWins(t *testing.T) {
	bars := []domain.Bar{
		{Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), Close: 10},
		{Date: time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC), Close: 11},
		{Date: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), Close: 12},
		{Date: time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC), Close: 13},
	}

	points := CollapseToMonthly(bars)
	require.Len(t, points, 2)
	assert.Equal(t, domain.OHLCPoint{Date: "2026-01", Close: 11}, points[0])
	assert.Equal(t, domain.OHLCPoint{Date: "2026-02", Close: 13}, points[1])
}

func TestTrimPoints(t *testing.T) {
	points := []domain.OHLCPoint{{Date: "a"}, {Date: "b"}, {Date: "c"}}
	assert.Len(t, TrimPoints(points, 2), 2)
	assert.Equal(t, "b", TrimPoints(points, 2)[0].Date)
	assert.Len(t, TrimPoints(points, 5), 3)
}

func TestSyntheticMonthlySeries(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	a := SyntheticMonthlySeries("AAA", 12, now)
	b := SyntheticMonthlySeries("BBB", 12, now)
	require.Len(t, a, 12)
	assert.Equal(t, "2025-11", a[0].Date)
	assert.Equal(t, "2026-10", a[11].Date)
	assert.NotEqual(t, a, b, "seed differs per symbol")
	assert.Equal(t, a, SyntheticMonthlySeries("AAA", 12, now))
	assert.Nil(t, SyntheticMonthlySeries("AAA", 0, now))
}
