package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
)

type holdingCmd struct {
	markets bool
}

func (*holdingCmd) Name() string     { return "holding" }
func (*holdingCmd) Synopsis() string { return "display current holdings valued at the latest close" }
func (*holdingCmd) Usage() string {
	return `holding [-markets]

  Lists every open position with its value, unrealized gain and portfolio
  weight, heaviest first. With -markets, adds the KR/US segment breakdown.
`
}

func (c *holdingCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.markets, "markets", false, "Also show the per-market breakdown.")
}

func (c *holdingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	holdings, err := loadHoldings(ctx, db)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	printMarkdown(holdingsMarkdown(holdings))
	if c.markets {
		segments := stockfolio.BreakdownByMarket(*reportingCurrency, holdings)
		printMarkdown(marketsMarkdown(segments))
	}
	return subcommands.ExitSuccess
}
