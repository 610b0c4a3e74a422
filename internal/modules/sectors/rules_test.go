package sectors

import (
	"testing"

	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassifyIdentifier(t *testing.T) {
	tests := []struct {
		ticker string
		want   string
	}{
		{"912828YK0", GovernmentBonds},
		{"912796ZZ9", GovernmentBonds},
		{"91282CJL6", GovernmentBonds},
		{"US912828YK02", GovernmentBonds},
		{"XS1234567890", CorporateBonds},
		{"037833AK6", CorporateBonds},
		{"AAPL", Other},
		{"", Other},
	}

	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyIdentifier(tt.ticker))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		ticker string
		meta   *domain.SecurityMetadata
		want   string
	}{
		{
			name:   "sector synonym",
			ticker: "ADBE",
			meta:   &domain.SecurityMetadata{Sector: "Information Technology"},
			want:   Technology,
		},
		{
			name:   "yahoo consumer cyclical",
			ticker: "NKE",
			meta:   &domain.SecurityMetadata{Sector: "Consumer Cyclical"},
			want:   ConsumerDiscretionary,
		},
		{
			name:   "industry with qualifier",
			ticker: "USB",
			meta:   &domain.SecurityMetadata{Industry: "Banks\u2014Regional"},
			want:   FinancialServices,
		},
		{
			name:   "treasury fund category",
			ticker: "VGSH",
			meta:   &domain.SecurityMetadata{Category: "Short Government", QuoteType: "ETF"},
			want:   GovernmentBonds,
		},
		{
			name:   "municipal fund category",
			ticker: "VTEB",
			meta:   &domain.SecurityMetadata{Category: "Muni National Interm", QuoteType: "ETF", LongName: "Vanguard Tax-Exempt Bond ETF"},
			want:   MunicipalBonds,
		},
		{
			name:   "fund name mentions treasury",
			ticker: "SCHO",
			meta:   &domain.SecurityMetadata{QuoteType: "ETF", LongName: "Schwab Short-Term U.S. Treasury ETF"},
			want:   GovernmentBonds,
		},
		{
			name:   "commodity category",
			ticker: "DBC",
			meta:   &domain.SecurityMetadata{Category: "Commodities Broad Basket", QuoteType: "ETF"},
			want:   Commodities,
		},
		{
			name:   "plain etf",
			ticker: "SCHD",
			meta:   &domain.SecurityMetadata{QuoteType: "ETF", LongName: "Schwab US Dividend Equity ETF"},
			want:   ETF,
		},
		{
			name:   "crypto quote type",
			ticker: "SOL-USD",
			meta:   &domain.SecurityMetadata{QuoteType: "CRYPTOCURRENCY"},
			want:   Crypto,
		},
		{
			name:   "free text summary",
			ticker: "XYZQ",
			meta:   &domain.SecurityMetadata{QuoteType: "EQUITY", LongName: "Example Holdings", Summary: "Operates a regional bank in the Midwest."},
			want:   FinancialServices,
		},
		{
			name:   "unmatched name falls through to identifier patterns",
			ticker: "VGAS",
			meta:   &domain.SecurityMetadata{QuoteType: "EQUITY", LongName: "Las Vegas Amusements"},
			want:   Other,
		},
		{
			name:   "identifier fallback with empty metadata",
			ticker: "912810SX7",
			meta:   &domain.SecurityMetadata{},
			want:   GovernmentBonds,
		},
		{
			name:   "nil metadata",
			ticker: "ZZZZ",
			meta:   nil,
			want:   Other,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ticker, tt.meta))
		})
	}
}

func TestStaticSector(t *testing.T) {
	label, ok := StaticSector(" aapl ")
	assert.True(t, ok)
	assert.Equal(t, Technology, label)

	_, ok = StaticSector("UNKNOWN")
	assert.False(t, ok)
}
