package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
)

type sectorsCmd struct{}

func (*sectorsCmd) Name() string     { return "sectors" }
func (*sectorsCmd) Synopsis() string { return "display the portfolio's sector allocation" }
func (*sectorsCmd) Usage() string {
	return `sectors

  Groups holdings by sector, heaviest first. Holdings with no declared
  sector fall into the Other bucket.
`
}

func (*sectorsCmd) SetFlags(*flag.FlagSet) {}

func (*sectorsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	printMarkdown(sectorsMarkdown(stockfolio.SectorAllocation(holdings)))
	return subcommands.ExitSuccess
}
