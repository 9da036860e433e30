package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type jobsCmd struct {
	limit int
}

func (*jobsCmd) Name() string     { return "jobs" }
func (*jobsCmd) Synopsis() string { return "list recent fetch job runs" }
func (*jobsCmd) Usage() string {
	return `jobs [-n <limit>]

  Lists recorded job runs, newest first.
`
}

func (c *jobsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 20, "Maximum number of runs to show.")
}

func (c *jobsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	runs, err := db.Runs(ctx, c.limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	printMarkdown(jobsMarkdown(runs))
	return subcommands.ExitSuccess
}
