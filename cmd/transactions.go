package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
	"github.com/kwahn/stockfolio/store"
)

// appendTransaction stores one transaction and recomputes the affected
// position so the holdings view stays current without a full replay.
func appendTransaction(ctx context.Context, db *store.DB, tx stockfolio.Transaction) subcommands.ExitStatus {
	instr, err := db.Instrument(ctx, tx.Ticker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (declare it first)\n", err)
		return subcommands.ExitFailure
	}
	tx.UserID = *userID
	if tx.Price.Currency() != instr.Currency() {
		fmt.Fprintf(os.Stderr, "Error: %s trades in %s, got a price in %s\n",
			instr.Ticker, instr.Currency(), tx.Price.Currency())
		return subcommands.ExitFailure
	}

	id, err := db.AddTransaction(ctx, tx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error recording transaction: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := NewReplayer(db).RecomputePosition(ctx, *userID, tx.Ticker); err != nil {
		fmt.Fprintf(os.Stderr, "Error recomputing position: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Recorded %s of %s %s (id %d)\n", tx.Kind, tx.Quantity, tx.Ticker, id)
	return subcommands.ExitSuccess
}

// parseTradeDate validates the -d flag, defaulting to today.
func parseTradeDate(s string) (stockfolio.Date, error) {
	if s == "" {
		return stockfolio.Today(), nil
	}
	return stockfolio.ParseDate(s)
}

// --- Buy Command ---

type buyCmd struct {
	date     string
	ticker   string
	quantity float64
	price    float64
	fxRate   float64
	note     string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "purchase shares to open or add to a position" }
func (*buyCmd) Usage() string {
	return `buy -t <ticker> -q <quantity> -p <price> [-d <date>] [-fx <rate>] [-n <note>]

  Purchases shares of a declared instrument. The price is in the instrument's
  trading currency; -fx is the rate to the reporting currency at trade time
  and defaults to 1 for same-currency instruments.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Transaction date (YYYY-MM-DD), defaults to today")
	f.StringVar(&c.ticker, "t", "", "Instrument ticker")
	f.Float64Var(&c.quantity, "q", 0, "Number of shares")
	f.Float64Var(&c.price, "p", 0, "Price per share in the instrument's currency")
	f.Float64Var(&c.fxRate, "fx", 1, "Exchange rate to the reporting currency at trade time")
	f.StringVar(&c.note, "n", "", "An optional rationale or note for the transaction")
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" || c.quantity <= 0 || c.price <= 0 || c.fxRate <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	day, err := parseTradeDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	db, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	instr, err := db.Instrument(ctx, c.ticker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (declare it first)\n", err)
		return subcommands.ExitFailure
	}

	tx := stockfolio.NewBuy(day, c.ticker, c.quantity, stockfolio.M(c.price, instr.Currency()), c.fxRate)
	tx.Note = c.note
	return appendTransaction(ctx, db, tx)
}

// --- Sell Command ---

type sellCmd struct {
	date     string
	ticker   string
	quantity float64
	price    float64
	fxRate   float64
	note     string
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "sell shares to trim or close a position" }
func (*sellCmd) Usage() string {
	return `sell -t <ticker> -q <quantity> -p <price> [-d <date>] [-fx <rate>] [-n <note>]

  Sells shares of a declared instrument. Selling more than the held quantity
  closes the position.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Transaction date (YYYY-MM-DD), defaults to today")
	f.StringVar(&c.ticker, "t", "", "Instrument ticker")
	f.Float64Var(&c.quantity, "q", 0, "Number of shares")
	f.Float64Var(&c.price, "p", 0, "Price per share in the instrument's currency")
	f.Float64Var(&c.fxRate, "fx", 1, "Exchange rate to the reporting currency at trade time")
	f.StringVar(&c.note, "n", "", "An optional rationale or note for the transaction")
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" || c.quantity <= 0 || c.price <= 0 || c.fxRate <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	day, err := parseTradeDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	db, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	instr, err := db.Instrument(ctx, c.ticker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (declare it first)\n", err)
		return subcommands.ExitFailure
	}

	tx := stockfolio.NewSell(day, c.ticker, c.quantity, stockfolio.M(c.price, instr.Currency()), c.fxRate)
	tx.Note = c.note
	return appendTransaction(ctx, db, tx)
}

// --- Dividend Command ---

type dividendCmd struct {
	date   string
	ticker string
	amount float64
	tax    float64
	note   string
}

func (*dividendCmd) Name() string     { return "dividend" }
func (*dividendCmd) Synopsis() string { return "record a dividend payment received" }
func (*dividendCmd) Usage() string {
	return `dividend -t <ticker> -a <amount> [-tax <tax>] [-d <date>] [-n <note>]

  Records a dividend in the instrument's trading currency. The tax withheld
  at source is subtracted to get the net amount.
`
}

func (c *dividendCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Payment date (YYYY-MM-DD), defaults to today")
	f.StringVar(&c.ticker, "t", "", "Instrument ticker")
	f.Float64Var(&c.amount, "a", 0, "Gross dividend amount in the instrument's currency")
	f.Float64Var(&c.tax, "tax", 0, "Tax withheld at source")
	f.StringVar(&c.note, "n", "", "An optional note for the dividend")
}

func (c *dividendCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" || c.amount <= 0 || c.tax < 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	day, err := parseTradeDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	db, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	instr, err := db.Instrument(ctx, c.ticker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (declare it first)\n", err)
		return subcommands.ExitFailure
	}

	cur := instr.Currency()
	div := stockfolio.NewDividend(day, c.ticker, stockfolio.M(c.amount, cur), stockfolio.M(c.tax, cur))
	div.UserID = *userID
	div.Note = c.note

	id, err := db.AddDividend(ctx, div)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error recording dividend: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := NewReplayer(db).RecomputePosition(ctx, *userID, c.ticker); err != nil {
		fmt.Fprintf(os.Stderr, "Error recomputing position: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Recorded dividend of %s for %s (id %d)\n", div.Net(), c.ticker, id)
	return subcommands.ExitSuccess
}
