package yahoo

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/holdings-risk/internal/domain"
)

var summaryModules = []string{
	"assetProfile",
	"summaryProfile",
	"fundProfile",
	"quoteType",
	"price",
	"summaryDetail",
	"defaultKeyStatistics",
	"financialData",
	"calendarEvents",
	"incomeStatementHistory",
}

// rawValue is Yahoo's {raw, fmt} number wrapper; missing values come back as {}.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (v rawValue) ptr() *float64 {
	if v.Raw == nil || math.IsNaN(*v.Raw) || math.IsInf(*v.Raw, 0) {
		return nil
	}
	val := *v.Raw
	return &val
}

type profile struct {
	Sector              string `json:"sector"`
	Industry            string `json:"industry"`
	LongBusinessSummary string `json:"longBusinessSummary"`
}

type summaryResult struct {
	AssetProfile   profile `json:"assetProfile"`
	SummaryProfile profile `json:"summaryProfile"`
	FundProfile    struct {
		CategoryName string `json:"categoryName"`
		Family       string `json:"family"`
	} `json:"fundProfile"`
	QuoteType struct {
		QuoteType string `json:"quoteType"`
		LongName  string `json:"longName"`
		ShortName string `json:"shortName"`
	} `json:"quoteType"`
	Price struct {
		LongName  string   `json:"longName"`
		ShortName string   `json:"shortName"`
		MarketCap rawValue `json:"marketCap"`
		Currency  string   `json:"currency"`
	} `json:"price"`
	SummaryDetail struct {
		TrailingPE   rawValue `json:"trailingPE"`
		PriceToSales rawValue `json:"priceToSalesTrailing12Months"`
		Beta         rawValue `json:"beta"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics struct {
		PEGRatio            rawValue `json:"pegRatio"`
		ShortPercentOfFloat rawValue `json:"shortPercentOfFloat"`
		ShortRatio          rawValue `json:"shortRatio"`
		Beta                rawValue `json:"beta"`
	} `json:"defaultKeyStatistics"`
	FinancialData struct {
		DebtToEquity rawValue `json:"debtToEquity"`
		FreeCashflow rawValue `json:"freeCashflow"`
	} `json:"financialData"`
	CalendarEvents struct {
		Earnings struct {
			EarningsDate []rawValue `json:"earningsDate"`
		} `json:"earnings"`
	} `json:"calendarEvents"`
	IncomeStatementHistory struct {
		IncomeStatementHistory []struct {
			Ebit            rawValue `json:"ebit"`
			InterestExpense rawValue `json:"interestExpense"`
		} `json:"incomeStatementHistory"`
	} `json:"incomeStatementHistory"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// Summary is the parsed quoteSummary payload.
type Summary struct {
	Metadata     domain.SecurityMetadata
	Fundamentals domain.Fundamentals
}

// GetSummary fetches profile and fundamental modules for symbol in one request.
func (c *Client) GetSummary(ctx context.Context, symbol string) (*Summary, error) {
	params := url.Values{}
	params.Set("modules", strings.Join(summaryModules, ","))

	var resp summaryResponse
	if err := c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("%w: yahoo quoteSummary error: %s", domain.ErrDataInsufficient, resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo has no summary for %s", domain.ErrDataInsufficient, symbol)
	}

	r := resp.QuoteSummary.Result[0]
	return &Summary{
		Metadata:     parseMetadata(symbol, r),
		Fundamentals: parseFundamentals(r),
	}, nil
}

// GetMetadata returns only the descriptive part of quoteSummary.
func (c *Client) GetMetadata(ctx context.Context, symbol string) (*domain.SecurityMetadata, error) {
	s, err := c.GetSummary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &s.Metadata, nil
}

// GetFundamentals returns only the fundamental factors from quoteSummary.
func (c *Client) GetFundamentals(ctx context.Context, symbol string) (*domain.Fundamentals, error) {
	s, err := c.GetSummary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &s.Fundamentals, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseMetadata(symbol string, r summaryResult) domain.SecurityMetadata {
	return domain.SecurityMetadata{
		Symbol:    symbol,
		Sector:    firstNonEmpty(r.AssetProfile.Sector, r.SummaryProfile.Sector),
		Industry:  firstNonEmpty(r.AssetProfile.Industry, r.SummaryProfile.Industry),
		Category:  r.FundProfile.CategoryName,
		QuoteType: r.QuoteType.QuoteType,
		LongName:  firstNonEmpty(r.Price.LongName, r.QuoteType.LongName),
		ShortName: firstNonEmpty(r.Price.ShortName, r.QuoteType.ShortName),
		Summary:   firstNonEmpty(r.AssetProfile.LongBusinessSummary, r.SummaryProfile.LongBusinessSummary),
	}
}

func parseFundamentals(r summaryResult) domain.Fundamentals {
	f := domain.Fundamentals{
		TrailingPE:   r.SummaryDetail.TrailingPE.ptr(),
		PriceToSales: r.SummaryDetail.PriceToSales.ptr(),
		PEG:          r.DefaultKeyStatistics.PEGRatio.ptr(),
		ShortRatio:   r.DefaultKeyStatistics.ShortRatio.ptr(),
		Beta:         r.DefaultKeyStatistics.Beta.ptr(),
	}
	if f.Beta == nil {
		f.Beta = r.SummaryDetail.Beta.ptr()
	}

	// Yahoo reports debt/equity in percent
	if de := r.FinancialData.DebtToEquity.ptr(); de != nil {
		ratio := *de / 100
		f.DebtToEquity = &ratio
	}

	// Short interest comes as a fraction of float
	if spf := r.DefaultKeyStatistics.ShortPercentOfFloat.ptr(); spf != nil {
		pct := *spf * 100
		f.ShortPercentFloat = &pct
	}

	if fcf, mcap := r.FinancialData.FreeCashflow.ptr(), r.Price.MarketCap.ptr(); fcf != nil && mcap != nil && *mcap > 0 {
		y := *fcf / *mcap * 100
		f.FCFYieldPct = &y
	}

	if stmts := r.IncomeStatementHistory.IncomeStatementHistory; len(stmts) > 0 {
		ebit := stmts[0].Ebit.ptr()
		interest := stmts[0].InterestExpense.ptr()
		if ebit != nil && interest != nil && *interest != 0 {
			cov := *ebit / math.Abs(*interest)
			f.InterestCoverage = &cov
		}
	}

	var next *time.Time
	for _, d := range r.CalendarEvents.Earnings.EarningsDate {
		if d.Raw == nil {
			continue
		}
		t := time.Unix(int64(*d.Raw), 0).UTC()
		if next == nil || t.Before(*next) {
			next = &t
		}
	}
	f.NextEarnings = next

	return f
}
