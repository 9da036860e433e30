package stockfolio

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Holding is a current position enriched with market data: latest value,
// unrealized gain and portfolio weight. It is a read model computed on
// demand, not a stored entity.
type Holding struct {
	Position

	Name   string
	Sector string

	Close      Money // latest close, instrument currency
	ValueLocal Money // quantity at close, instrument currency
	Value      Money // reporting currency

	UnrealizedGain        Money // reporting currency
	UnrealizedGainPercent Percent
	Weight                Percent // share of total portfolio value
}

// ComputeHoldings derives every open position of a user and values it at the
// latest close on or before asOf. Positions whose instrument has no price in
// the fallback window are still listed, valued at zero.
func ComputeHoldings(ctx context.Context, ledger LedgerReader, prices PriceSource, reporting string, userID int64, asOf Date) ([]Holding, error) {
	if reporting == "" {
		reporting = "KRW"
	}
	if asOf.IsZero() {
		asOf = Today()
	}

	txs, err := ledger.Transactions(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	divs, err := ledger.Dividends(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("loading dividends: %w", err)
	}
	SortTransactions(txs)
	SortDividends(divs)

	txByTicker := make(map[string][]Transaction)
	for _, tx := range txs {
		txByTicker[tx.Ticker] = append(txByTicker[tx.Ticker], tx)
	}
	divByTicker := make(map[string][]DividendReceipt)
	for _, d := range divs {
		divByTicker[d.Ticker] = append(divByTicker[d.Ticker], d)
	}

	var fxRate decimal.Decimal
	fx := func() (decimal.Decimal, error) {
		if !fxRate.IsZero() {
			return fxRate, nil
		}
		rate, err := prices.FXRate(asOf)
		if err != nil {
			return decimal.Decimal{}, err
		}
		fxRate = rate
		return rate, nil
	}

	var holdings []Holding
	for ticker, history := range txByTicker {
		instr, err := ledger.Instrument(ctx, ticker)
		if err != nil {
			return nil, err
		}
		pos := ComputePosition(instr, reporting, history, divByTicker[ticker])
		if pos == nil {
			continue
		}

		h := Holding{
			Position:   *pos,
			Name:       instr.Name,
			Sector:     instr.NormalSector(),
			Close:      M(decimal.Zero, instr.Currency()),
			ValueLocal: M(decimal.Zero, instr.Currency()),
			Value:      M(decimal.Zero, reporting),
		}

		close, ok, err := closeWithFallback(prices, instr, asOf)
		if err != nil {
			return nil, fmt.Errorf("close of %s: %w", ticker, err)
		}
		if ok {
			h.Close = close
			h.ValueLocal = close.Mul(pos.Quantity)
			if instr.Currency() == reporting {
				h.Value = h.ValueLocal
			} else {
				rate, err := fx()
				if err != nil {
					return nil, fmt.Errorf("fx rate: %w", err)
				}
				h.Value = h.ValueLocal.MulRate(rate, reporting)
			}
		}

		h.UnrealizedGain = h.Value.Sub(pos.TotalInvested)
		h.UnrealizedGainPercent = ratio(h.UnrealizedGain.AsFloat(), pos.TotalInvested.AsFloat())
		holdings = append(holdings, h)
	}

	total := 0.0
	for i := range holdings {
		total += holdings[i].Value.AsFloat()
	}
	for i := range holdings {
		holdings[i].Weight = ratio(holdings[i].Value.AsFloat(), total)
	}
	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].Value.Equal(holdings[j].Value) {
			return holdings[i].Ticker < holdings[j].Ticker
		}
		return holdings[j].Value.LessThan(holdings[i].Value)
	})
	return holdings, nil
}

// MarketSegment aggregates holdings of one market.
type MarketSegment struct {
	Market Market

	Value          Money // reporting currency
	Invested       Money
	UnrealizedGain Money
	Weight         Percent
	Positions      int
}

// BreakdownByMarket splits holdings into KR and US segments.
func BreakdownByMarket(reporting string, holdings []Holding) []MarketSegment {
	if reporting == "" {
		reporting = "KRW"
	}
	seg := map[Market]*MarketSegment{}
	for _, m := range []Market{MarketKR, MarketUS} {
		seg[m] = &MarketSegment{
			Market:         m,
			Value:          M(decimal.Zero, reporting),
			Invested:       M(decimal.Zero, reporting),
			UnrealizedGain: M(decimal.Zero, reporting),
		}
	}

	total := 0.0
	for _, h := range holdings {
		s := seg[h.Market]
		if s == nil {
			continue
		}
		s.Value = s.Value.Add(h.Value)
		s.Invested = s.Invested.Add(h.TotalInvested)
		s.UnrealizedGain = s.UnrealizedGain.Add(h.UnrealizedGain)
		s.Positions++
		total += h.Value.AsFloat()
	}

	out := []MarketSegment{*seg[MarketKR], *seg[MarketUS]}
	for i := range out {
		out[i].Weight = ratio(out[i].Value.AsFloat(), total)
	}
	return out
}

// PortfolioSummary is the headline view of one user's portfolio.
type PortfolioSummary struct {
	Date Date

	TotalValue Money
	Invested   Money

	UnrealizedGain        Money
	UnrealizedGainPercent Percent
	RealizedGain          Money
	Dividends             Money // reporting currency, from the latest snapshot

	DayPnL        Money
	DayPnLPercent Percent

	Positions int
}

// Summarize condenses holdings and the snapshot series into headline totals.
// Day P&L comes from the latest snapshot, which compares against the prior
// snapshot; with fewer than one snapshot it stays zero.
func Summarize(reporting string, holdings []Holding, snaps []DailySnapshot) PortfolioSummary {
	if reporting == "" {
		reporting = "KRW"
	}
	s := PortfolioSummary{
		Date:           Today(),
		TotalValue:     M(decimal.Zero, reporting),
		Invested:       M(decimal.Zero, reporting),
		UnrealizedGain: M(decimal.Zero, reporting),
		RealizedGain:   M(decimal.Zero, reporting),
		Dividends:      M(decimal.Zero, reporting),
		DayPnL:         M(decimal.Zero, reporting),
		Positions:      len(holdings),
	}
	for _, h := range holdings {
		s.TotalValue = s.TotalValue.Add(h.Value)
		s.Invested = s.Invested.Add(h.TotalInvested)
		s.UnrealizedGain = s.UnrealizedGain.Add(h.UnrealizedGain)
		s.RealizedGain = s.RealizedGain.Add(h.Position.RealizedGain)
	}
	s.UnrealizedGainPercent = ratio(s.UnrealizedGain.AsFloat(), s.Invested.AsFloat())

	if len(snaps) > 0 {
		last := snaps[len(snaps)-1]
		s.Date = last.Date
		s.Dividends = last.Dividends
		s.DayPnL = last.DayPnL
		s.DayPnLPercent = last.DayPnLPercent
	}
	return s
}
