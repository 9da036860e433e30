package stockfolio

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// Fixture instruments shared across tests.
var (
	samsung = Instrument{Ticker: "005930", Name: "Samsung Electronics", Market: MarketKR, Sector: "Technology"}
	hyundai = Instrument{Ticker: "005380", Name: "Hyundai Motor", Market: MarketKR, Sector: "Automotive"}
	apple   = Instrument{Ticker: "AAPL", Name: "Apple Inc.", Market: MarketUS, Sector: "Technology"}
	nosect  = Instrument{Ticker: "XXXX", Name: "No Sector Corp", Market: MarketKR}
)

func day(y int, m time.Month, d int) Date { return NewDate(y, m, d) }

// fakePrices is an in-memory PriceSource for tests.
type fakePrices struct {
	closes map[string]map[Date]Money
	fx     map[Date]decimal.Decimal
	rate   decimal.Decimal // fallback rate when fx has no entry for the date

	closeCalls int
	fxCalls    int
}

func newFakePrices() *fakePrices {
	return &fakePrices{
		closes: make(map[string]map[Date]Money),
		fx:     make(map[Date]decimal.Decimal),
		rate:   decimal.NewFromInt(1),
	}
}

func (f *fakePrices) setClose(ticker string, on Date, price Money) {
	if f.closes[ticker] == nil {
		f.closes[ticker] = make(map[Date]Money)
	}
	f.closes[ticker][on] = price
}

func (f *fakePrices) setFX(on Date, rate float64) {
	f.fx[on] = decimal.NewFromFloat(rate)
}

func (f *fakePrices) CloseOn(instr Instrument, on Date) (Money, bool, error) {
	f.closeCalls++
	price, ok := f.closes[instr.Ticker][on]
	return price, ok, nil
}

func (f *fakePrices) FXRate(on Date) (decimal.Decimal, error) {
	f.fxCalls++
	if rate, ok := f.fx[on]; ok {
		return rate, nil
	}
	return f.rate, nil
}

// newTestLedger creates a ledger for user 1 with the given instruments declared.
func newTestLedger(t *testing.T, instruments ...Instrument) *Ledger {
	t.Helper()
	l := NewLedger(1)
	for _, instr := range instruments {
		if err := l.Declare(instr); err != nil {
			t.Fatalf("Declare(%s) failed: %v", instr.Ticker, err)
		}
	}
	return l
}

// mustAppend appends transactions and fails the test on validation errors.
func mustAppend(t *testing.T, l *Ledger, txs ...Transaction) {
	t.Helper()
	if err := l.Append(txs...); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
}

// ledgerTransactions fetches the user's ordered transactions from the ledger.
func ledgerTransactions(t *testing.T, l *Ledger, ticker string) []Transaction {
	t.Helper()
	txs, err := l.Transactions(context.Background(), l.UserID(), ticker)
	if err != nil {
		t.Fatalf("Transactions() failed: %v", err)
	}
	return txs
}
