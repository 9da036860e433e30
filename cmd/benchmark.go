package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
	"github.com/kwahn/stockfolio/yahoo"
)

type benchmarkCmd struct {
	ticker string
	market string
	days   int
}

func (*benchmarkCmd) Name() string     { return "benchmark" }
func (*benchmarkCmd) Synopsis() string { return "compare the portfolio against a benchmark" }
func (*benchmarkCmd) Usage() string {
	return `benchmark [-t <ticker>] [-m <market>] [-days <n>]

  Fetches the benchmark's closes, aligns them with the snapshot series by
  date and compares cumulative returns. Defaults to the KODEX 200 ETF
  (069500). Alpha is the portfolio return minus the benchmark return.
`
}

func (c *benchmarkCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "t", "069500", "Benchmark ticker")
	f.StringVar(&c.market, "m", "KR", "Benchmark market (KR, US)")
	f.IntVar(&c.days, "days", 365, "Number of days to compare over.")
}

func (c *benchmarkCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	market, err := stockfolio.ParseMarket(c.market)
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

	snaps, err := loadSnapshots(ctx, db)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	instr := stockfolio.Instrument{Ticker: c.ticker, Market: market}
	rng := stockfolio.NewRange(stockfolio.Today().Add(-c.days), stockfolio.Today())
	closes, err := yahoo.New().History(ctx, instr, rng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching benchmark %s: %v\n", c.ticker, err)
		return subcommands.ExitFailure
	}

	bench := make([]stockfolio.BenchmarkClose, 0, len(closes))
	for _, cl := range closes {
		bench = append(bench, stockfolio.BenchmarkClose{Date: cl.Date, Close: cl.Price})
	}

	comparison := stockfolio.CompareBenchmark(snaps, bench)
	printMarkdown(benchmarkMarkdown(c.ticker, comparison))
	return subcommands.ExitSuccess
}
