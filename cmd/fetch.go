package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
	"github.com/kwahn/stockfolio/batch"
	"github.com/kwahn/stockfolio/kis"
	"github.com/kwahn/stockfolio/store"
	"github.com/kwahn/stockfolio/yahoo"
)

// backfillDays is how far back the first fetch of an instrument reaches.
const backfillDays = 365

type fetchCmd struct {
	ticker string
	from   string
	useKIS bool
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetch daily closes and FX rates into the price store" }
func (*fetchCmd) Usage() string {
	return `fetch [-t <ticker>] [-s <start_date>] [-kis]

  Fetches daily closes for every declared instrument plus the USD exchange
  rate, resuming from the last stored close. Each fetch runs as a recorded
  job with retries; see the jobs command for history. With -kis, Korean
  instruments fetch from the KIS open API instead of Yahoo (requires
  KIS_APP_KEY and KIS_APP_SECRET).
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "t", "", "Only fetch this ticker.")
	f.StringVar(&c.from, "s", "", "Fetch from this date, overriding the resume point.")
	f.BoolVar(&c.useKIS, "kis", false, "Fetch Korean instruments from the KIS open API.")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	instruments, err := db.Instruments(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	var override stockfolio.Date
	if c.from != "" {
		if override, err = stockfolio.ParseDate(c.from); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	runner := &batch.Runner{Recorder: db}
	yc := yahoo.New()
	var kc *kis.Client
	if c.useKIS {
		if kc, err = kisClient(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
	}

	failed := 0
	for _, instr := range instruments {
		if c.ticker != "" && instr.Ticker != c.ticker {
			continue
		}
		job := c.priceJob(db, yc, kc, instr, override)
		if err := runner.Run(ctx, job); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed++
		}
	}

	if err := runner.Run(ctx, fxJob(db, yc, *reportingCurrency)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		failed++
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d fetch jobs failed\n", failed)
		return subcommands.ExitFailure
	}
	fmt.Println("Fetch complete. Run replay to rebuild snapshots.")
	return subcommands.ExitSuccess
}

// priceJob fetches the missing closes of one instrument.
func (c *fetchCmd) priceJob(db *store.DB, yc *yahoo.Client, kc *kis.Client, instr stockfolio.Instrument, override stockfolio.Date) batch.Job {
	return batch.Job{
		Name: "prices/" + instr.Ticker,
		Do: func(ctx context.Context) (int, error) {
			rng, ok, err := resumeRange(ctx, db, instr.Ticker, override)
			if err != nil || !ok {
				return 0, err
			}

			if kc != nil && instr.Market == stockfolio.MarketKR {
				closes, err := kc.DailyCloses(ctx, instr.Ticker)
				if err != nil {
					return 0, err
				}
				n := 0
				for _, cl := range closes {
					if !rng.Contains(cl.Date) {
						continue
					}
					if err := db.UpsertClose(ctx, instr.Ticker, cl.Date, cl.Price); err != nil {
						return n, err
					}
					n++
				}
				return n, nil
			}

			closes, err := yc.History(ctx, instr, rng)
			if err != nil {
				return 0, err
			}
			for i, cl := range closes {
				if err := db.UpsertClose(ctx, instr.Ticker, cl.Date, cl.Price); err != nil {
					return i, err
				}
			}
			return len(closes), nil
		},
	}
}

// fxJob fetches the missing USD exchange rates.
func fxJob(db *store.DB, yc *yahoo.Client, reporting string) batch.Job {
	return batch.Job{
		Name: "fx/USD" + reporting,
		Do: func(ctx context.Context) (int, error) {
			rng := stockfolio.NewRange(stockfolio.Today().Add(-backfillDays), stockfolio.Today())
			rates, err := yc.FXHistory(ctx, reporting, rng)
			if err != nil {
				return 0, err
			}
			for i, r := range rates {
				if err := db.UpsertFXRate(ctx, r.Date, r.Rate); err != nil {
					return i, err
				}
			}
			return len(rates), nil
		},
	}
}

// resumeRange is the date range still missing for a ticker. ok is false when
// the store is already current.
func resumeRange(ctx context.Context, db *store.DB, ticker string, override stockfolio.Date) (stockfolio.Range, bool, error) {
	today := stockfolio.Today()
	from := override
	if from.IsZero() {
		last, err := db.LastCloseDate(ctx, ticker)
		if err != nil {
			return stockfolio.Range{}, false, err
		}
		if last.IsZero() {
			from = today.Add(-backfillDays)
		} else {
			from = last.Add(1)
		}
	}
	if from.After(today) {
		return stockfolio.Range{}, false, nil
	}
	return stockfolio.NewRange(from, today), true, nil
}

// kisClient builds a KIS client from the environment.
func kisClient() (*kis.Client, error) {
	key, secret := os.Getenv("KIS_APP_KEY"), os.Getenv("KIS_APP_SECRET")
	if key == "" || secret == "" {
		return nil, fmt.Errorf("KIS_APP_KEY and KIS_APP_SECRET must be set to use the KIS API")
	}
	return kis.New(kis.Config{AppKey: key, AppSecret: secret}), nil
}
