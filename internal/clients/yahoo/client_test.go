package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(zerolog.Nop(), WithBaseURL(server.URL))
}

func TestGetQuotes_Batch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v7/finance/quote", r.URL.Path)
		assert.Equal(t, "AAPL,VOO,NOPE", r.URL.Query().Get("symbols"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[
			{"symbol":"AAPL","currency":"USD","quoteType":"EQUITY","longName":"Apple Inc.","regularMarketPrice":230.5,"regularMarketChange":-1.5,"regularMarketChangePercent":-0.65,"marketCap":3.4e12,"trailingPE":35.2},
			{"symbol":"VOO","currency":"USD","quoteType":"ETF","shortName":"Vanguard S&P 500 ETF","regularMarketPrice":520}
		],"error":null}}`))
	})

	quotes, err := c.GetQuotes(context.Background(), []string{"AAPL", "VOO", "NOPE"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	aapl := quotes["AAPL"]
	assert.Equal(t, 230.5, aapl.Price)
	assert.Equal(t, -1.5, aapl.Change)
	assert.Equal(t, domain.SourceYahoo, aapl.Source)
	require.NotNil(t, aapl.PE)
	assert.Equal(t, 35.2, *aapl.PE)
	require.NotNil(t, aapl.Metadata)
	assert.Equal(t, "EQUITY", aapl.Metadata.QuoteType)

	voo := quotes["VOO"]
	require.NotNil(t, voo.Metadata)
	assert.Equal(t, "ETF", voo.Metadata.QuoteType)

	_, ok := quotes["NOPE"]
	assert.False(t, ok)
}

func TestGetQuotes_Empty(t *testing.T) {
	c := NewClient(zerolog.Nop(), WithBaseURL("http://127.0.0.1:0"))
	quotes, err := c.GetQuotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestGetQuotes_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.GetQuotes(context.Background(), []string{"AAPL"})
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
}

func TestGetDailyBars_SkipsNullCloses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1y", r.URL.Query().Get("range"))
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"currency":"USD"},
			"timestamp":[1700000000,1700086400,1700172800],
			"indicators":{"quote":[{"close":[10.5,null,11.0],"volume":[1000,null,1200]}]}}],"error":null}}`))
	})

	bars, err := c.GetDailyBars(context.Background(), "AAPL", 365)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 10.5, bars[0].Close)
	assert.Equal(t, 1200.0, bars[1].Volume)
}

func TestGetDailyBars_ChartError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})
	_, err := c.GetDailyBars(context.Background(), "GONE", 365)
	assert.Error(t, err)
}

func TestChartRange(t *testing.T) {
	assert.Equal(t, "1mo", chartRange(20))
	assert.Equal(t, "6mo", chartRange(120))
	assert.Equal(t, "1y", chartRange(365))
	assert.Equal(t, "2y", chartRange(500))
	assert.Equal(t, "5y", chartRange(2000))
}

const summaryPayload = `{"quoteSummary":{"result":[{
	"assetProfile":{"sector":"Technology","industry":"Consumer Electronics","longBusinessSummary":"Apple designs smartphones."},
	"quoteType":{"quoteType":"EQUITY","longName":"Apple Inc."},
	"price":{"longName":"Apple Inc.","marketCap":{"raw":2000000000000,"fmt":"2T"}},
	"summaryDetail":{"trailingPE":{"raw":30.1},"priceToSalesTrailing12Months":{"raw":8.2},"beta":{}},
	"defaultKeyStatistics":{"pegRatio":{"raw":2.4},"shortPercentOfFloat":{"raw":0.012},"shortRatio":{"raw":1.9},"beta":{"raw":1.25}},
	"financialData":{"debtToEquity":{"raw":150.0},"freeCashflow":{"raw":100000000000}},
	"calendarEvents":{"earnings":{"earningsDate":[{"raw":1793577600},{"raw":1793491200}]}},
	"incomeStatementHistory":{"incomeStatementHistory":[{"ebit":{"raw":120000000000},"interestExpense":{"raw":-3000000000}}]}
}],"error":null}}`

func TestGetSummary(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v10/finance/quoteSummary/AAPL", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("modules"), "fundProfile")
		_, _ = w.Write([]byte(summaryPayload))
	})

	s, err := c.GetSummary(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "Technology", s.Metadata.Sector)
	assert.Equal(t, "Consumer Electronics", s.Metadata.Industry)
	assert.Equal(t, "EQUITY", s.Metadata.QuoteType)
	assert.Equal(t, "Apple Inc.", s.Metadata.LongName)
	assert.Contains(t, s.Metadata.Summary, "smartphones")

	f := s.Fundamentals
	require.NotNil(t, f.DebtToEquity)
	assert.InDelta(t, 1.5, *f.DebtToEquity, 1e-9)
	require.NotNil(t, f.ShortPercentFloat)
	assert.InDelta(t, 1.2, *f.ShortPercentFloat, 1e-9)
	require.NotNil(t, f.FCFYieldPct)
	assert.InDelta(t, 5.0, *f.FCFYieldPct, 1e-9)
	require.NotNil(t, f.InterestCoverage)
	assert.InDelta(t, 40.0, *f.InterestCoverage, 1e-9)
	require.NotNil(t, f.Beta)
	assert.Equal(t, 1.25, *f.Beta)
	require.NotNil(t, f.NextEarnings)
	assert.Equal(t, int64(1793491200), f.NextEarnings.Unix())
	require.NotNil(t, f.PEG)
	assert.Equal(t, 2.4, *f.PEG)
}

func TestGetSummary_FundCategory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{
			"fundProfile":{"categoryName":"Intermediate Government","family":"Vanguard"},
			"quoteType":{"quoteType":"ETF","longName":"Vanguard Intermediate-Term Treasury ETF"}
		}],"error":null}}`))
	})

	meta, err := c.GetMetadata(context.Background(), "VGIT")
	require.NoError(t, err)
	assert.Equal(t, "Intermediate Government", meta.Category)
	assert.Equal(t, "ETF", meta.QuoteType)
	assert.Empty(t, meta.Sector)
}

func TestGetSummary_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found"}}}`))
	})
	_, err := c.GetFundamentals(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, domain.ErrDataInsufficient))
}
