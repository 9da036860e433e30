package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
)

type trendCmd struct {
	days  int
	start string
	date  string
}

func (*trendCmd) Name() string     { return "trend" }
func (*trendCmd) Synopsis() string { return "display the portfolio value trend over a date range" }
func (*trendCmd) Usage() string {
	return `trend [-days <n> | -s <start_date>] [-d <end_date>]

  Shows the portfolio value series over the range with its period return and
  worst decline. Defaults to the last 30 days.
`
}

func (c *trendCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 30, "Number of days to look back.")
	f.StringVar(&c.start, "s", "", "The start date for a custom range. Overrides -days.")
	f.StringVar(&c.date, "d", "", "The end date for the range, defaults to today.")
}

func (c *trendCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	end := stockfolio.Today()
	var err error
	if c.date != "" {
		if end, err = stockfolio.ParseDate(c.date); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing end date: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	start := end.Add(-c.days)
	if c.start != "" {
		if start, err = stockfolio.ParseDate(c.start); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
			return subcommands.ExitUsageError
		}
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

	report := stockfolio.Trend(snaps, stockfolio.NewRange(start, end))
	printMarkdown(trendMarkdown(report))
	return subcommands.ExitSuccess
}
