package sectors

import (
	"regexp"
	"strings"

	"github.com/aristath/holdings-risk/internal/domain"
)

// Canonical sector labels.
const (
	Technology            = "Technology"
	Healthcare            = "Healthcare"
	FinancialServices     = "Financial Services"
	ConsumerDiscretionary = "Consumer Discretionary"
	ConsumerStaples       = "Consumer Staples"
	Industrials           = "Industrials"
	Materials             = "Materials"
	Energy                = "Energy"
	Utilities             = "Utilities"
	CommunicationServices = "Communication Services"
	RealEstate            = "Real Estate"
	GovernmentBonds       = "Government Bonds"
	MunicipalBonds        = "Municipal Bonds"
	CorporateBonds        = "Corporate Bonds"
	Commodities           = "Commodities"
	ETF                   = "ETF"
	MutualFund            = "Mutual Fund"
	Currency              = "Currency"
	Crypto                = "Crypto"
	Cash                  = "Cash"
	Index                 = "Index"
	Other                 = domain.SectorOther
)

// staticSectors always wins over any cached or fetched classification.
var staticSectors = map[string]string{
	"AAPL":    Technology,
	"MSFT":    Technology,
	"NVDA":    Technology,
	"AVGO":    Technology,
	"ORCL":    Technology,
	"GOOGL":   CommunicationServices,
	"GOOG":    CommunicationServices,
	"META":    CommunicationServices,
	"NFLX":    CommunicationServices,
	"AMZN":    ConsumerDiscretionary,
	"TSLA":    ConsumerDiscretionary,
	"HD":      ConsumerDiscretionary,
	"JPM":     FinancialServices,
	"BAC":     FinancialServices,
	"V":       FinancialServices,
	"MA":      FinancialServices,
	"BRK-B":   FinancialServices,
	"JNJ":     Healthcare,
	"UNH":     Healthcare,
	"LLY":     Healthcare,
	"PG":      ConsumerStaples,
	"KO":      ConsumerStaples,
	"WMT":     ConsumerStaples,
	"XOM":     Energy,
	"CVX":     Energy,
	"NEE":     Utilities,
	"CAT":     Industrials,
	"LIN":     Materials,
	"SPY":     ETF,
	"VOO":     ETF,
	"IVV":     ETF,
	"VTI":     ETF,
	"QQQ":     ETF,
	"DIA":     ETF,
	"IWM":     ETF,
	"TLT":     GovernmentBonds,
	"IEF":     GovernmentBonds,
	"SHY":     GovernmentBonds,
	"BIL":     GovernmentBonds,
	"GOVT":    GovernmentBonds,
	"MUB":     MunicipalBonds,
	"LQD":     CorporateBonds,
	"HYG":     CorporateBonds,
	"GLD":     Commodities,
	"SLV":     Commodities,
	"VNQ":     RealEstate,
	"BTC-USD": Crypto,
	"ETH-USD": Crypto,
	"^GSPC":   Index,
	"^IXIC":   Index,
	"^NDX":    Index,
	"^DJI":    Index,
	"^RUT":    Index,
}

// StaticSector returns the fixed label for well-known tickers.
func StaticSector(ticker string) (string, bool) {
	label, ok := staticSectors[domain.NormalizeTicker(ticker)]
	return label, ok
}

// synonyms collapses provider sector and industry labels to a canonical label.
// Keys are lowercase.
var synonyms = map[string]string{
	"technology":                     Technology,
	"information technology":         Technology,
	"tech":                           Technology,
	"software":                       Technology,
	"semiconductors":                 Technology,
	"computer hardware":              Technology,
	"consumer electronics":           Technology,
	"healthcare":                     Healthcare,
	"health care":                    Healthcare,
	"biotechnology":                  Healthcare,
	"pharmaceuticals":                Healthcare,
	"drug manufacturers":             Healthcare,
	"medical devices":                Healthcare,
	"financial services":             FinancialServices,
	"financial":                      FinancialServices,
	"financials":                     FinancialServices,
	"banking":                        FinancialServices,
	"banks":                          FinancialServices,
	"insurance":                      FinancialServices,
	"consumer cyclical":              ConsumerDiscretionary,
	"consumer discretionary":         ConsumerDiscretionary,
	"retail":                         ConsumerDiscretionary,
	"auto manufacturers":             ConsumerDiscretionary,
	"internet retail":                ConsumerDiscretionary,
	"consumer defensive":             ConsumerStaples,
	"consumer staples":               ConsumerStaples,
	"beverages":                      ConsumerStaples,
	"industrials":                    Industrials,
	"industrial":                     Industrials,
	"aerospace & defense":            Industrials,
	"basic materials":                Materials,
	"materials":                      Materials,
	"chemicals":                      Materials,
	"energy":                         Energy,
	"oil & gas integrated":           Energy,
	"oil & gas e&p":                  Energy,
	"oil & gas":                      Energy,
	"utilities":                      Utilities,
	"communication services":         CommunicationServices,
	"communications":                 CommunicationServices,
	"telecommunication services":     CommunicationServices,
	"telecom services":               CommunicationServices,
	"media":                          CommunicationServices,
	"internet content & information": CommunicationServices,
	"real estate":                    RealEstate,
	"reit":                           RealEstate,
	"reits":                          RealEstate,
}

type substringRule struct {
	needle string
	label  string
}

// categoryRules apply to fund category names in order.
var categoryRules = []substringRule{
	{"treasury", GovernmentBonds},
	{"government", GovernmentBonds},
	{"municipal", MunicipalBonds},
	{"muni ", MunicipalBonds},
	{"reit", RealEstate},
	{"real estate", RealEstate},
	{"commodit", Commodities},
	{"precious metal", Commodities},
	{"money market", Cash},
	{"bond", CorporateBonds},
	{"fixed income", CorporateBonds},
	{"credit", CorporateBonds},
}

// quoteTypeDefaults gives a fixed label per provider quote type.
var quoteTypeDefaults = map[string]string{
	"ETF":            ETF,
	"MUTUALFUND":     MutualFund,
	"CURRENCY":       Currency,
	"CRYPTOCURRENCY": Crypto,
	"MONEYMARKET":    Cash,
	"INDEX":          Index,
	"FUTURE":         Commodities,
}

type keywordRule struct {
	pattern *regexp.Regexp
	label   string
}

func keywords(label string, words ...string) keywordRule {
	return keywordRule{
		pattern: regexp.MustCompile(`\b(` + strings.Join(words, "|") + `)`),
		label:   label,
	}
}

// textRules match whole-word prefixes in lowercase name and business summary.
var textRules = []keywordRule{
	keywords(GovernmentBonds, "treasury", "treasuries"),
	keywords(RealEstate, "reit", "real estate"),
	keywords(FinancialServices, "bank", "banking", "insurance", "asset management", "brokerage"),
	keywords(Healthcare, "pharmaceutical", "biotech", "therapeutic", "medical", "health"),
	keywords(Technology, "software", "semiconductor", "cloud", "computing", "microchip"),
	keywords(Energy, "oil", "natural gas", "petroleum", "refining", "drilling"),
	keywords(Utilities, "utility", "utilities", "electric power"),
	keywords(Materials, "mining", "chemical", "steel", "copper"),
	keywords(Commodities, "gold", "silver", "bullion"),
	keywords(CommunicationServices, "telecom", "wireless", "broadcasting", "streaming"),
	keywords(ConsumerStaples, "beverage", "grocery", "household products", "tobacco"),
	keywords(ConsumerDiscretionary, "retail", "restaurant", "apparel", "automotive", "hotel"),
	keywords(Industrials, "aerospace", "railroad", "machinery", "logistics", "defense"),
}

var (
	treasuryCUSIP = regexp.MustCompile(`^912(79[67]|8[0-9]{2}|82[0-9A-Z])[0-9A-Z]{2}[0-9]$`)
	genericCUSIP  = regexp.MustCompile(`^[0-9]{3}[0-9A-Z]{5}[0-9]$`)
	isinPattern   = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z]{9}[0-9]$`)
)

// ClassifyIdentifier classifies a bond-like identifier without metadata.
// It returns Other when the ticker is not a recognizable CUSIP or ISIN.
func ClassifyIdentifier(ticker string) string {
	t := domain.NormalizeTicker(ticker)
	switch {
	case treasuryCUSIP.MatchString(t):
		return GovernmentBonds
	case isinPattern.MatchString(t) && strings.HasPrefix(t, "US912"):
		return GovernmentBonds
	case isinPattern.MatchString(t) && strings.HasPrefix(t, "XS"):
		return CorporateBonds
	case genericCUSIP.MatchString(t):
		return CorporateBonds
	}
	return Other
}

func normalizeSynonym(label string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" {
		return "", false
	}
	if canonical, ok := synonyms[key]; ok {
		return canonical, true
	}
	// Yahoo industries carry a qualifier after an em dash: "Banks\u2014Regional".
	if head, _, found := strings.Cut(key, "\u2014"); found {
		if canonical, ok := synonyms[strings.TrimSpace(head)]; ok {
			return canonical, true
		}
	}
	return "", false
}

func isFund(quoteType string) bool {
	switch strings.ToUpper(quoteType) {
	case "ETF", "MUTUALFUND", "MONEYMARKET":
		return true
	}
	return false
}

// Classify derives a sector label from provider metadata. It never returns an
// empty string.
func Classify(ticker string, meta *domain.SecurityMetadata) string {
	if meta == nil {
		return ClassifyIdentifier(ticker)
	}

	if label, ok := normalizeSynonym(meta.Sector); ok {
		return label
	}
	if label, ok := normalizeSynonym(meta.Industry); ok {
		return label
	}

	fundText := strings.ToLower(meta.Category)
	if isFund(meta.QuoteType) {
		fundText += " " + strings.ToLower(meta.LongName+" "+meta.ShortName)
	}
	if strings.TrimSpace(fundText) != "" {
		for _, rule := range categoryRules {
			if strings.Contains(fundText, rule.needle) {
				return rule.label
			}
		}
	}

	if label, ok := quoteTypeDefaults[strings.ToUpper(meta.QuoteType)]; ok {
		return label
	}

	text := strings.ToLower(strings.Join([]string{meta.LongName, meta.ShortName, meta.Summary}, " "))
	for _, rule := range textRules {
		if rule.pattern.MatchString(text) {
			return rule.label
		}
	}

	return ClassifyIdentifier(ticker)
}
