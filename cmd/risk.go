package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
)

type riskCmd struct{}

func (*riskCmd) Name() string     { return "risk" }
func (*riskCmd) Synopsis() string { return "display drawdown, concentration and diversification" }
func (*riskCmd) Usage() string {
	return `risk

  Reports the maximum drawdown of the snapshot series, positions that
  dominate the portfolio, the weight of the top five and a diversification
  score.
`
}

func (*riskCmd) SetFlags(*flag.FlagSet) {}

func (*riskCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	snaps, err := loadSnapshots(ctx, db)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	printMarkdown(riskMarkdown(stockfolio.AnalyzeRisk(snaps, holdings)))
	return subcommands.ExitSuccess
}
