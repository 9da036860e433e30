package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
)

type monthlyCmd struct{}

func (*monthlyCmd) Name() string     { return "monthly" }
func (*monthlyCmd) Synopsis() string { return "display monthly profit and loss" }
func (*monthlyCmd) Usage() string {
	return `monthly

  Groups the snapshot series by calendar month and reports each month's
  summed day P&L and its return on the value at the month's start.
`
}

func (*monthlyCmd) SetFlags(*flag.FlagSet) {}

func (*monthlyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	printMarkdown(monthlyMarkdown(stockfolio.MonthlyReturns(snaps)))
	return subcommands.ExitSuccess
}
