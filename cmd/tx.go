package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
)

type txCmd struct {
	ticker string
	start  string
	date   string
	head   int
	tail   int
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list transactions in the ledger" }
func (*txCmd) Usage() string {
	return `tx [-t <ticker>] [-s <start_date>] [-d <end_date>] [-head <n>] [-tail <n>]

  Lists transactions, oldest first, with options for filtering and limiting
  the output.
`
}

func (p *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.ticker, "t", "", "Only transactions of this ticker.")
	f.StringVar(&p.start, "s", "", "The start date for a custom range.")
	f.StringVar(&p.date, "d", "", "The end date for the range.")
	f.IntVar(&p.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&p.tail, "tail", 0, "Show only the last N transactions.")
}

func (p *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.head > 0 && p.tail > 0 {
		fmt.Fprintln(os.Stderr, "Error: -head and -tail flags cannot be used together.")
		return subcommands.ExitUsageError
	}

	db, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	transactions, err := db.Transactions(ctx, *userID, p.ticker)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if p.start != "" || p.date != "" {
		from := stockfolio.NewDate(1970, time.January, 1)
		to := stockfolio.Today()
		if p.start != "" {
			if from, err = stockfolio.ParseDate(p.start); err != nil {
				fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
				return subcommands.ExitUsageError
			}
		}
		if p.date != "" {
			if to, err = stockfolio.ParseDate(p.date); err != nil {
				fmt.Fprintf(os.Stderr, "Error parsing end date: %v\n", err)
				return subcommands.ExitUsageError
			}
		}
		rng := stockfolio.NewRange(from, to)
		kept := transactions[:0]
		for _, tx := range transactions {
			if rng.Contains(tx.Date) {
				kept = append(kept, tx)
			}
		}
		transactions = kept
	}

	if p.head > 0 && len(transactions) > p.head {
		transactions = transactions[:p.head]
	}
	if p.tail > 0 && len(transactions) > p.tail {
		transactions = transactions[len(transactions)-p.tail:]
	}

	printMarkdown(transactionsMarkdown(transactions))
	return subcommands.ExitSuccess
}
