package stockfolio

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// DailySnapshot is the valuation of one user's whole portfolio at the end of
// one calendar day. Snapshots are derived by replay and rebuildable at any
// time; rebuilding from identical inputs yields identical snapshots.
type DailySnapshot struct {
	UserID int64
	Date   Date

	TotalValue Money // reporting currency
	KRValue    Money // reporting currency
	USValueUSD Money // US segment in USD
	USValue    Money // US segment converted to reporting
	Invested   Money // remaining cost basis, reporting currency
	Dividends  Money // accumulated net dividends, reporting currency

	DayPnL        Money // vs previous snapshot, zero on the first day
	DayPnLPercent Percent

	CumulativeReturn        Money // value + dividends - invested
	CumulativeReturnPercent Percent

	FXRate decimal.Decimal // USD rate applied that day
}

// InstrumentPerformance is one instrument's contribution on one day while
// held, in the instrument's currency.
type InstrumentPerformance struct {
	UserID int64
	Ticker string
	Date   Date

	Quantity      Quantity
	Close         Money
	PrevClose     Money // equals Close on the first day held
	DayPnL        Money
	DayPnLPercent Percent
	Value         Money
}

// Builder replays a user's full transaction history into daily snapshots.
// It is pure with respect to storage: it reads through LedgerReader and
// PriceSource and returns the rebuilt series for the caller to persist.
type Builder struct {
	Ledger LedgerReader
	Prices PriceSource

	// Reporting is the reporting currency code, "KRW" when empty.
	Reporting string
	// AsOf caps the replay, today when zero. Set in tests.
	AsOf Date
}

// instrumentState carries per-instrument running replay state across days.
type instrumentState struct {
	instr         Instrument
	quantity      Quantity
	costReporting Money
	prevClose     Money
	hasPrevClose  bool
}

// Build replays from the user's first transaction date through AsOf and
// returns one snapshot per day the portfolio had value or invested capital,
// plus per-instrument daily performance rows. A user with no transactions
// yields empty slices, not an error.
func (b *Builder) Build(ctx context.Context, userID int64) ([]DailySnapshot, []InstrumentPerformance, error) {
	reporting := b.Reporting
	if reporting == "" {
		reporting = "KRW"
	}
	asOf := b.AsOf
	if asOf.IsZero() {
		asOf = Today()
	}

	txs, err := b.Ledger.Transactions(ctx, userID, "")
	if err != nil {
		return nil, nil, fmt.Errorf("loading transactions: %w", err)
	}
	if len(txs) == 0 {
		return nil, nil, nil
	}
	divs, err := b.Ledger.Dividends(ctx, userID, "")
	if err != nil {
		return nil, nil, fmt.Errorf("loading dividends: %w", err)
	}
	SortTransactions(txs)
	SortDividends(divs)

	states := make(map[string]*instrumentState)
	state := func(ticker string) (*instrumentState, error) {
		if s, ok := states[ticker]; ok {
			return s, nil
		}
		instr, err := b.Ledger.Instrument(ctx, ticker)
		if err != nil {
			return nil, err
		}
		s := &instrumentState{
			instr:         instr,
			quantity:      Q(decimal.Zero),
			costReporting: M(decimal.Zero, reporting),
		}
		states[ticker] = s
		return s, nil
	}

	var (
		snapshots []DailySnapshot
		perf      []InstrumentPerformance

		invested  = M(decimal.Zero, reporting)
		dividends = M(decimal.Zero, reporting)
		lastFX    = decimal.NewFromInt(1)

		prevTotal    Money
		hasPrevTotal bool

		ti, di int
	)

	for day := range NewRange(txs[0].Date, asOf).Days() {
		// Apply the day's transactions in insertion order.
		for ti < len(txs) && !txs[ti].Date.After(day) {
			tx := txs[ti]
			ti++
			s, err := state(tx.Ticker)
			if err != nil {
				return nil, nil, err
			}
			switch tx.Kind {
			case Buy:
				cost := tx.Price.Mul(tx.Quantity).MulRate(tx.FXRate, reporting)
				s.quantity = s.quantity.Add(tx.Quantity)
				s.costReporting = s.costReporting.Add(cost)
				invested = invested.Add(cost)
			case Sell:
				if !s.quantity.IsPositive() {
					continue
				}
				sellQty := tx.Quantity.Min(s.quantity)
				released := s.costReporting.Div(s.quantity).Mul(sellQty)
				s.quantity = s.quantity.Sub(sellQty)
				s.costReporting = s.costReporting.Sub(released)
				invested = invested.Sub(released)
			}
		}

		// Accrue the day's dividends, converted at the day's rate when the
		// receipt is not in the reporting currency.
		for di < len(divs) && !divs[di].Date.After(day) {
			d := divs[di]
			di++
			net := d.Net()
			if net.Currency() == reporting {
				dividends = dividends.Add(net)
				continue
			}
			rate, err := b.Prices.FXRate(day)
			if err != nil {
				return nil, nil, fmt.Errorf("fx rate on %s: %w", day, err)
			}
			lastFX = rate
			dividends = dividends.Add(net.MulRate(rate, reporting))
		}

		// Value the day's holdings.
		krValue := M(decimal.Zero, reporting)
		usValueUSD := M(decimal.Zero, "USD")

		needsFX := false
		for _, s := range states {
			if s.quantity.IsPositive() && s.instr.Currency() != reporting {
				needsFX = true
				break
			}
		}
		if needsFX {
			rate, err := b.Prices.FXRate(day)
			if err != nil {
				return nil, nil, fmt.Errorf("fx rate on %s: %w", day, err)
			}
			lastFX = rate
		}

		tickers := slices.Collect(maps.Keys(states))
		slices.Sort(tickers)
		for _, ticker := range tickers {
			s := states[ticker]
			if !s.quantity.IsPositive() {
				s.hasPrevClose = false
				continue
			}
			close, ok, err := closeWithFallback(b.Prices, s.instr, day)
			if err != nil {
				return nil, nil, fmt.Errorf("close of %s on %s: %w", ticker, day, err)
			}
			if !ok {
				continue // no recent price, zero contribution today
			}

			value := close.Mul(s.quantity)
			switch s.instr.Market {
			case MarketUS:
				usValueUSD = usValueUSD.Add(value)
			default:
				krValue = krValue.Add(value)
			}

			prevClose := close
			if s.hasPrevClose {
				prevClose = s.prevClose
			}
			dayPnL := close.Sub(prevClose).Mul(s.quantity)
			perf = append(perf, InstrumentPerformance{
				UserID:        userID,
				Ticker:        ticker,
				Date:          day,
				Quantity:      s.quantity,
				Close:         close,
				PrevClose:     prevClose,
				DayPnL:        dayPnL,
				DayPnLPercent: ratio(dayPnL.AsFloat(), prevClose.Mul(s.quantity).AsFloat()),
				Value:         value,
			})
			s.prevClose = close
			s.hasPrevClose = true
		}

		usValue := usValueUSD.MulRate(lastFX, reporting)
		total := krValue.Add(usValue)

		if total.IsZero() && invested.IsZero() {
			continue // no position, day is skipped rather than zero-filled
		}

		snap := DailySnapshot{
			UserID:     userID,
			Date:       day,
			TotalValue: total,
			KRValue:    krValue,
			USValueUSD: usValueUSD,
			USValue:    usValue,
			Invested:   invested,
			Dividends:  dividends,
			FXRate:     lastFX,
		}
		if hasPrevTotal {
			snap.DayPnL = total.Sub(prevTotal)
			snap.DayPnLPercent = ratio(snap.DayPnL.AsFloat(), prevTotal.AsFloat())
		} else {
			snap.DayPnL = M(decimal.Zero, reporting)
		}
		snap.CumulativeReturn = total.Add(dividends).Sub(invested)
		snap.CumulativeReturnPercent = ratio(snap.CumulativeReturn.AsFloat(), invested.AsFloat())

		snapshots = append(snapshots, snap)
		prevTotal, hasPrevTotal = total, true
	}

	return snapshots, perf, nil
}
