package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type quoteCmd struct {
	ticker string
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "fetch the live quote of a Korean instrument" }
func (*quoteCmd) Usage() string {
	return `quote -t <ticker>

  Fetches the current price of a Korean instrument from the KIS open API.
  Requires KIS_APP_KEY and KIS_APP_SECRET.
`
}

func (c *quoteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "t", "", "Instrument ticker")
}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	kc, err := kisClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	q, err := kc.Quote(ctx, c.ticker)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("%s: %s (%s, %s), volume %d\n",
		q.Ticker, q.Price, q.Change.SignedString(), q.ChangePercent.SignedString(), q.Volume)
	return subcommands.ExitSuccess
}
