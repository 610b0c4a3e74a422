package stooq

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dailyCSV = `Date,Open,High,Low,Close,Volume
2026-10-13,100,101,99,100.5,1000
2026-10-14,100.5,102,100,101.0,1500
2026-10-15,101,103,100,99.0,2000
`

func TestStooqSymbol(t *testing.T) {
	assert.Equal(t, "aapl.us", StooqSymbol("AAPL"))
	assert.Equal(t, "^spx", StooqSymbol("^GSPC"))
	assert.Equal(t, "^ndx", StooqSymbol("NDX"))
	assert.Equal(t, "vod.uk", StooqSymbol("VOD.UK"))
	assert.Equal(t, "brk-b.us", StooqSymbol("brk-b"))
	assert.Equal(t, "eurusd", StooqSymbol("EURUSD=X"))
}

func TestParseCSV(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(dailyCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, 99.0, rows[2].Close)
	assert.Equal(t, 2000.0, rows[2].Volume)
}

func TestParseCSV_NoData(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("No data"))
	assert.True(t, errors.Is(err, domain.ErrDataInsufficient))

	_, err = ParseCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, domain.ErrDataInsufficient))
}

func TestParseCSV_SkipsBadRows(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("Date,Open,High,Low,Close\n2026-01-31,1,1,1,10\nbad,1,1,1,11\n2026-02-28,1,1,1,0\n2026-03-31,1,1,1,12\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 12.0, rows[1].Close)
	assert.Equal(t, 0.0, rows[1].Volume)
}

func TestParseCSV_SkipsNonFiniteValues(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("Date,Open,High,Low,Close,Volume\n2026-10-14,1,1,1,NaN,10\n2026-10-15,1,1,1,+Inf,10\n2026-10-16,1,1,1,12,NaN\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 12.0, rows[0].Close)
	assert.Equal(t, 0.0, rows[0].Volume)
}

func TestGetQuote_NonFiniteCloseIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Date,Open,High,Low,Close,Volume\n2026-10-16,1,1,1,NaN,10\n"))
	}))
	defer server.Close()

	c := NewClient(time.Second, zerolog.Nop())
	c.SetBaseURL(server.URL)

	q, err := c.GetQuote(context.Background(), "XYZ")
	assert.Error(t, err)
	assert.Nil(t, q)
}

func TestGetHistory_Monthly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/q/d/l/", r.URL.Path)
		assert.Equal(t, "msft.us", r.URL.Query().Get("s"))
		assert.Equal(t, "m", r.URL.Query().Get("i"))
		_, _ = w.Write([]byte("Date,Open,High,Low,Close,Volume\n2026-08-29,1,1,1,400,1\n2026-09-30,1,1,1,410,1\n"))
	}))
	defer server.Close()

	c := NewClient(time.Second, zerolog.Nop())
	c.SetBaseURL(server.URL)

	rows, err := c.GetHistory(context.Background(), "MSFT", IntervalMonthly)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestGetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(dailyCSV))
	}))
	defer server.Close()

	c := NewClient(time.Second, zerolog.Nop())
	c.SetBaseURL(server.URL)

	q, err := c.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 99.0, q.Price)
	assert.InDelta(t, -2.0, q.Change, 1e-9)
	assert.InDelta(t, -1.980198, q.ChangePercent, 1e-5)
	assert.Equal(t, domain.SourceStooq, q.Source)
}

func TestGetQuote_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(time.Second, zerolog.Nop())
	c.SetBaseURL(server.URL)

	_, err := c.GetQuote(context.Background(), "AAPL")
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
}
