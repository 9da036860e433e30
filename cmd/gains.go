package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
)

type gainsCmd struct {
	ticker string
	method string
}

func (*gainsCmd) Name() string     { return "gains" }
func (*gainsCmd) Synopsis() string { return "report the realized gain of each sale" }
func (*gainsCmd) Usage() string {
	return `gains [-t <ticker>] [-method <method>]

  Replays the transaction history and reports the gain locked in by each
  sale, in the reporting currency. The average method blends all buys into
  one cost; fifo matches the oldest lots first. Both agree once a position
  is fully closed.
`
}

func (c *gainsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "t", "", "Only sales of this ticker.")
	f.StringVar(&c.method, "method", "average", "The cost basis method (average, fifo).")
}

func (c *gainsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	method, err := stockfolio.ParseCostBasisMethod(c.method)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	db, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	instruments, err := db.Instruments(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	var gains []stockfolio.RealizedGain
	for _, instr := range instruments {
		if c.ticker != "" && instr.Ticker != c.ticker {
			continue
		}
		txs, err := db.Transactions(ctx, *userID, instr.Ticker)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		gains = append(gains, stockfolio.RealizedGains(instr, *reportingCurrency, txs, method)...)
	}

	printMarkdown(gainsMarkdown(gains, method))
	return subcommands.ExitSuccess
}
