package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
)

type replayCmd struct {
	all bool
}

func (*replayCmd) Name() string     { return "replay" }
func (*replayCmd) Synopsis() string { return "rebuild positions and daily snapshots from the ledger" }
func (*replayCmd) Usage() string {
	return `replay [-all]

  Replays the full transaction history into current positions and the daily
  snapshot series. Replay is idempotent: running it twice produces identical
  results. With -all, every user in the database is rebuilt concurrently.
`
}

func (c *replayCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "Rebuild every user, not just -user.")
}

func (c *replayCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	replayer := NewReplayer(db)

	users := []int64{*userID}
	if c.all {
		if users, err = db.Users(ctx); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
	}

	if err := replayer.RebuildAll(ctx, users); err != nil {
		var re *stockfolio.ReplayError
		if errors.As(err, &re) {
			fmt.Fprintf(os.Stderr, "Replay failed: %v\n", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return subcommands.ExitFailure
	}

	for _, u := range users {
		if err := replayer.RecomputePositions(ctx, u); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
	}

	fmt.Printf("Rebuilt %d user(s)\n", len(users))
	return subcommands.ExitSuccess
}
