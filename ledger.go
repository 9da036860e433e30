package stockfolio

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sort"
)

// LedgerReader is the read interface the engine consumes the ledger store
// through. Implementations must return records ordered by (date, insertion
// order), or the engine sorts them itself before replay.
type LedgerReader interface {
	// Transactions returns a user's transaction history. An empty ticker
	// means all instruments.
	Transactions(ctx context.Context, userID int64, ticker string) ([]Transaction, error)
	// Dividends returns a user's dividend history. An empty ticker means all
	// instruments.
	Dividends(ctx context.Context, userID int64, ticker string) ([]DividendReceipt, error)
	// Instrument resolves a ticker to its instrument record.
	Instrument(ctx context.Context, ticker string) (Instrument, error)
}

// Ledger is an in-memory, append-only record of one user's transactions and
// dividend receipts, kept in chronological order.
type Ledger struct {
	userID      int64
	txs         []Transaction
	divs        []DividendReceipt
	instruments map[string]Instrument // indexed by ticker
	nextID      int64
}

// NewLedger creates an empty ledger for one user.
func NewLedger(userID int64) *Ledger {
	return &Ledger{
		userID:      userID,
		instruments: make(map[string]Instrument),
		nextID:      1,
	}
}

// UserID returns the owner of the ledger.
func (l *Ledger) UserID() int64 { return l.userID }

// Declare registers an instrument so transactions can reference it.
func (l *Ledger) Declare(instr Instrument) error {
	if instr.Ticker == "" {
		return fmt.Errorf("instrument ticker is missing")
	}
	if instr.Market != MarketKR && instr.Market != MarketUS {
		return fmt.Errorf("instrument %q has unknown market %q", instr.Ticker, instr.Market)
	}
	l.instruments[instr.Ticker] = instr
	return nil
}

// InstrumentByTicker returns the declared instrument, or false if unknown.
func (l *Ledger) InstrumentByTicker(ticker string) (Instrument, bool) {
	instr, ok := l.instruments[ticker]
	return instr, ok
}

// Append validates and appends transactions, maintaining chronological order.
// Each transaction gets the next insertion-order ID, so same-day entries
// replay in the order they were recorded.
func (l *Ledger) Append(txs ...Transaction) error {
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("invalid transaction on %s: %w", tx.Date, err)
		}
		instr, ok := l.instruments[tx.Ticker]
		if !ok {
			return fmt.Errorf("instrument %q not declared in ledger", tx.Ticker)
		}
		if tx.Price.Currency() != instr.Currency() {
			return fmt.Errorf("%s trades in %s, got a price in %s", tx.Ticker, instr.Currency(), tx.Price.Currency())
		}
		tx.UserID = l.userID
		tx.ID = l.nextID
		l.nextID++
		l.txs = append(l.txs, tx)
	}
	l.stableSort()
	return nil
}

// AppendDividend validates and appends dividend receipts.
func (l *Ledger) AppendDividend(divs ...DividendReceipt) error {
	for _, d := range divs {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("invalid dividend on %s: %w", d.Date, err)
		}
		instr, ok := l.instruments[d.Ticker]
		if !ok {
			return fmt.Errorf("instrument %q not declared in ledger", d.Ticker)
		}
		if d.Amount.Currency() != instr.Currency() {
			return fmt.Errorf("%s pays dividends in %s, got %s", d.Ticker, instr.Currency(), d.Amount.Currency())
		}
		d.UserID = l.userID
		d.ID = l.nextID
		l.nextID++
		l.divs = append(l.divs, d)
	}
	sort.SliceStable(l.divs, func(i, j int) bool {
		if l.divs[i].Date == l.divs[j].Date {
			return l.divs[i].ID < l.divs[j].ID
		}
		return l.divs[i].Date.Before(l.divs[j].Date)
	})
	return nil
}

// stableSort keeps the ledger ordered by (date, insertion order).
func (l *Ledger) stableSort() {
	sort.SliceStable(l.txs, func(i, j int) bool {
		if l.txs[i].Date == l.txs[j].Date {
			return l.txs[i].ID < l.txs[j].ID
		}
		return l.txs[i].Date.Before(l.txs[j].Date)
	})
}

// FirstTransactionDate returns the date of the earliest transaction, or a
// zero date when the ledger is empty.
func (l *Ledger) FirstTransactionDate() Date {
	if len(l.txs) == 0 {
		return Date{}
	}
	return l.txs[0].Date
}

// AllTickers iterates over the tickers of declared instruments, sorted.
func (l *Ledger) AllTickers() iter.Seq[string] {
	return func(yield func(string) bool) {
		tickers := slices.Collect(maps.Keys(l.instruments))
		slices.Sort(tickers)
		for _, t := range tickers {
			if !yield(t) {
				return
			}
		}
	}
}

// --- LedgerReader implementation ---

// Transactions returns the user's ordered transactions, optionally filtered
// by ticker.
func (l *Ledger) Transactions(_ context.Context, userID int64, ticker string) ([]Transaction, error) {
	if userID != l.userID {
		return nil, nil
	}
	out := make([]Transaction, 0, len(l.txs))
	for _, tx := range l.txs {
		if ticker == "" || tx.Ticker == ticker {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Dividends returns the user's ordered dividend receipts, optionally filtered
// by ticker.
func (l *Ledger) Dividends(_ context.Context, userID int64, ticker string) ([]DividendReceipt, error) {
	if userID != l.userID {
		return nil, nil
	}
	out := make([]DividendReceipt, 0, len(l.divs))
	for _, d := range l.divs {
		if ticker == "" || d.Ticker == ticker {
			out = append(out, d)
		}
	}
	return out, nil
}

// Instrument resolves a declared ticker.
func (l *Ledger) Instrument(_ context.Context, ticker string) (Instrument, error) {
	instr, ok := l.instruments[ticker]
	if !ok {
		return Instrument{}, fmt.Errorf("instrument %q not declared in ledger", ticker)
	}
	return instr, nil
}

// SortTransactions orders a transaction slice by (date, insertion order)
// in place. Replay relies on this ordering for determinism.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date == txs[j].Date {
			return txs[i].ID < txs[j].ID
		}
		return txs[i].Date.Before(txs[j].Date)
	})
}

// SortDividends orders a dividend slice by (date, insertion order) in place.
func SortDividends(divs []DividendReceipt) {
	sort.SliceStable(divs, func(i, j int) bool {
		if divs[i].Date == divs[j].Date {
			return divs[i].ID < divs[j].ID
		}
		return divs[i].Date.Before(divs[j].Date)
	})
}
