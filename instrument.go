package stockfolio

import "fmt"

// Market identifies the market segment an instrument trades on.
type Market string

const (
	MarketKR Market = "KR" // Korean market, KRW denominated
	MarketUS Market = "US" // US market, USD denominated
)

// ParseMarket parses a string into a Market.
func ParseMarket(s string) (Market, error) {
	switch Market(s) {
	case MarketKR:
		return MarketKR, nil
	case MarketUS:
		return MarketUS, nil
	default:
		return "", fmt.Errorf("unknown market: %q", s)
	}
}

// Currency returns the currency instruments of this market trade in.
func (m Market) Currency() string {
	if m == MarketUS {
		return "USD"
	}
	return "KRW"
}

// OtherSector is the bucket unknown or missing sectors are normalized to.
const OtherSector = "Other"

// Instrument represents a tradeable equity: a stock or ETF listed on a
// supported market.
type Instrument struct {
	Ticker string // the exchange ticker, unique key
	Name   string
	Market Market
	Sector string // may be empty; reports normalize it to OtherSector
}

// Currency returns the instrument's trading currency, derived from its market.
func (i Instrument) Currency() string { return i.Market.Currency() }

// NormalSector returns the instrument's sector, or OtherSector when the
// sector is missing or unknown.
func (i Instrument) NormalSector() string {
	if i.Sector == "" || i.Sector == "Unknown" {
		return OtherSector
	}
	return i.Sector
}
