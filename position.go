package stockfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CostBasisMethod selects how realized gains are attributed to sales.
//
// A Position's own totals always use AverageCost. FIFO is offered for
// per-sale display in transaction history, where matching the oldest lots
// first is the convention some brokers report. The two methods disagree on
// individual sales but converge once a position is fully closed.
type CostBasisMethod string

const (
	// AverageCost blends all buys into a single average cost per unit.
	AverageCost CostBasisMethod = "average"
	// FIFO consumes the oldest unsold lots first.
	FIFO CostBasisMethod = "fifo"
)

// ParseCostBasisMethod parses a string into a CostBasisMethod.
func ParseCostBasisMethod(s string) (CostBasisMethod, error) {
	switch CostBasisMethod(s) {
	case AverageCost, FIFO:
		return CostBasisMethod(s), nil
	default:
		return "", fmt.Errorf("unknown cost basis method: %q", s)
	}
}

// Position is the current holding of one (user, instrument), fully derived
// from the transaction and dividend history. It is recomputed, never
// independently mutated; a quantity of zero means the position no longer
// exists.
type Position struct {
	UserID int64
	Ticker string
	Market Market

	Quantity      Quantity
	AverageCost   Money           // per unit, instrument currency
	AverageFXRate decimal.Decimal // blended rate at cost, 1.0 for reporting-currency instruments
	TotalInvested Money           // remaining cost basis, reporting currency
	RealizedGain  Money           // reporting currency
	Dividends     Money           // accumulated net dividends, instrument currency
}

// ComputePosition replays one instrument's full history into its current
// position using the weighted-average cost method.
//
// Transactions must be ordered by (date, id); Append and SortTransactions
// guarantee that. Sell quantities exceeding the held quantity are clamped,
// and a sell against an empty position is a no-op. The returned position is
// nil when the final quantity is zero or negative: callers delete the stored
// position rather than persisting a zeroed one.
func ComputePosition(instr Instrument, reporting string, txs []Transaction, divs []DividendReceipt) *Position {
	local := instr.Currency()

	quantity := Q(decimal.Zero)
	costLocal := M(decimal.Zero, local)
	costReporting := M(decimal.Zero, reporting)
	realized := M(decimal.Zero, reporting)

	for _, tx := range txs {
		switch tx.Kind {
		case Buy:
			quantity = quantity.Add(tx.Quantity)
			costLocal = costLocal.Add(tx.Price.Mul(tx.Quantity))
			costReporting = costReporting.Add(tx.Price.Mul(tx.Quantity).MulRate(tx.FXRate, reporting))

		case Sell:
			if quantity.IsZero() || quantity.IsNegative() {
				continue // nothing held, nothing to sell
			}
			sellQty := tx.Quantity.Min(quantity)

			avgLocal := costLocal.Div(quantity)
			avgReporting := costReporting.Div(quantity)

			proceeds := tx.Price.Mul(sellQty).MulRate(tx.FXRate, reporting)
			realized = realized.Add(proceeds.Sub(avgReporting.Mul(sellQty)))

			quantity = quantity.Sub(sellQty)
			costLocal = costLocal.Sub(avgLocal.Mul(sellQty))
			costReporting = costReporting.Sub(avgReporting.Mul(sellQty))
		}
	}

	dividends := M(decimal.Zero, local)
	for _, d := range divs {
		dividends = dividends.Add(d.Net())
	}

	if !quantity.IsPositive() {
		return nil
	}

	fxRate := decimal.NewFromInt(1)
	if !costLocal.IsZero() {
		fxRate = costReporting.Amount().Div(costLocal.Amount())
	}

	return &Position{
		UserID:        instrUserID(txs, divs),
		Ticker:        instr.Ticker,
		Market:        instr.Market,
		Quantity:      quantity,
		AverageCost:   costLocal.Div(quantity),
		AverageFXRate: fxRate,
		TotalInvested: costReporting,
		RealizedGain:  realized,
		Dividends:     dividends,
	}
}

// instrUserID pulls the owning user from whichever record is present.
func instrUserID(txs []Transaction, divs []DividendReceipt) int64 {
	if len(txs) > 0 {
		return txs[0].UserID
	}
	if len(divs) > 0 {
		return divs[0].UserID
	}
	return 0
}

// RealizedGain is the outcome of one sale, attributed under a chosen cost
// basis method.
type RealizedGain struct {
	Date      Date
	Ticker    string
	Method    CostBasisMethod
	Quantity  Quantity
	Proceeds  Money // reporting currency
	CostBasis Money // reporting currency
	Gain      Money // reporting currency
}

// RealizedGains replays an instrument's ordered transactions and reports the
// gain locked in by each sale, per the given cost basis method. Sales against
// an empty position are skipped; oversized sales are clamped.
func RealizedGains(instr Instrument, reporting string, txs []Transaction, method CostBasisMethod) []RealizedGain {
	var gains []RealizedGain
	var held lots

	quantity := Q(decimal.Zero)
	costReporting := M(decimal.Zero, reporting)

	for _, tx := range txs {
		switch tx.Kind {
		case Buy:
			cost := tx.Price.Mul(tx.Quantity).MulRate(tx.FXRate, reporting)
			quantity = quantity.Add(tx.Quantity)
			costReporting = costReporting.Add(cost)
			held = append(held, lot{Date: tx.Date, Quantity: tx.Quantity, Cost: cost})

		case Sell:
			if !quantity.IsPositive() {
				continue
			}
			sellQty := tx.Quantity.Min(quantity)
			proceeds := tx.Price.Mul(sellQty).MulRate(tx.FXRate, reporting)

			var basis Money
			switch method {
			case FIFO:
				basis = held.fifoCostOfSelling(sellQty)
			default:
				basis = costReporting.Div(quantity).Mul(sellQty)
			}

			gains = append(gains, RealizedGain{
				Date:      tx.Date,
				Ticker:    instr.Ticker,
				Method:    method,
				Quantity:  sellQty,
				Proceeds:  proceeds,
				CostBasis: basis,
				Gain:      proceeds.Sub(basis),
			})

			held = held.sell(sellQty)
			quantity = quantity.Sub(sellQty)
			costReporting = costReporting.Sub(basis)
		}
	}
	return gains
}
