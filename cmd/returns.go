package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
)

type returnsCmd struct{}

func (*returnsCmd) Name() string     { return "returns" }
func (*returnsCmd) Synopsis() string { return "display returns over the standard lookback windows" }
func (*returnsCmd) Usage() string {
	return `returns

  Reports flow-adjusted returns over 1M, 3M, 6M, 1Y and YTD windows,
  anchored at the last snapshot. Deposits and withdrawals inside a window
  do not count as performance; dividends do.
`
}

func (*returnsCmd) SetFlags(*flag.FlagSet) {}

func (*returnsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	snaps, err := loadSnapshots(ctx, db)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	printMarkdown(returnsMarkdown(stockfolio.PeriodReturns(snaps)))
	return subcommands.ExitSuccess
}
