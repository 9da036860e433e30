// Package cmd implements the CLI application to manage a stock portfolio.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
	"github.com/kwahn/stockfolio/store"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&declareCmd{}, "instruments")
	c.Register(&instrumentsCmd{}, "instruments")

	c.Register(&buyCmd{}, "transactions")
	c.Register(&sellCmd{}, "transactions")
	c.Register(&dividendCmd{}, "transactions")
	c.Register(&txCmd{}, "transactions")
	c.Register(&gainsCmd{}, "transactions")

	c.Register(&fetchCmd{}, "prices")
	c.Register(&quoteCmd{}, "prices")
	c.Register(&replayCmd{}, "prices")
	c.Register(&jobsCmd{}, "prices")

	c.Register(&holdingCmd{}, "reports")
	c.Register(&summaryCmd{}, "reports")
	c.Register(&sectorsCmd{}, "reports")
	c.Register(&riskCmd{}, "reports")
	c.Register(&monthlyCmd{}, "reports")
	c.Register(&returnsCmd{}, "reports")
	c.Register(&statsCmd{}, "reports")
	c.Register(&trendCmd{}, "reports")
	c.Register(&benchmarkCmd{}, "reports")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var dbPath = flag.String("db", defaultDBPath(), "Path to the SQLite database file")
var userID = flag.Int64("user", 1, "User the command operates on")
var reportingCurrency = flag.String("currency", defaultCurrency(), "Reporting currency")

func defaultDBPath() string {
	if p := os.Getenv("STOCKFOLIO_DB"); p != "" {
		return p
	}
	return "stockfolio.db"
}

func defaultCurrency() string {
	if c := os.Getenv("STOCKFOLIO_CURRENCY"); c != "" {
		return c
	}
	return "KRW"
}

// OpenStore is the central function to open the database.
func OpenStore() (*store.DB, error) {
	db, err := store.Open(*dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", *dbPath, err)
	}
	return db, nil
}

// NewReplayer wires a replayer over the store, which serves as ledger, price
// source and snapshot store at once.
func NewReplayer(db *store.DB) *stockfolio.Replayer {
	return &stockfolio.Replayer{
		Ledger:    db,
		Prices:    db,
		Store:     db,
		Reporting: *reportingCurrency,
	}
}

// allTime is the range used when a command reports over the full history.
func allTime() stockfolio.Range {
	return stockfolio.NewRange(stockfolio.NewDate(1970, time.January, 1), stockfolio.Today())
}

func printMarkdown(md string) {
	fmt.Println(md)
}

// loadHoldings values the user's open positions at the latest close.
func loadHoldings(ctx context.Context, db *store.DB) ([]stockfolio.Holding, error) {
	return stockfolio.ComputeHoldings(ctx, db, db, *reportingCurrency, *userID, stockfolio.Today())
}

// loadSnapshots reads the user's full snapshot series.
func loadSnapshots(ctx context.Context, db *store.DB) ([]stockfolio.DailySnapshot, error) {
	return db.Snapshots(ctx, *userID, allTime())
}
