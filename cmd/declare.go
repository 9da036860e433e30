package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kwahn/stockfolio"
)

// --- Declare Command ---

type declareCmd struct {
	ticker string
	name   string
	market string
	sector string
}

func (*declareCmd) Name() string     { return "declare" }
func (*declareCmd) Synopsis() string { return "declare an instrument so transactions can reference it" }
func (*declareCmd) Usage() string {
	return `declare -t <ticker> -n <name> -m <market> [-sector <sector>]

  Declares a stock or ETF. The market (KR or US) fixes the trading currency.
  Declaring an existing ticker updates its name and sector.
`
}

func (c *declareCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "t", "", "Instrument ticker")
	f.StringVar(&c.name, "n", "", "Instrument name")
	f.StringVar(&c.market, "m", "KR", "Market the instrument trades on (KR, US)")
	f.StringVar(&c.sector, "sector", "", "Sector classification, optional")
}

func (c *declareCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" || c.name == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
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

	instr := stockfolio.Instrument{
		Ticker: c.ticker,
		Name:   c.name,
		Market: market,
		Sector: c.sector,
	}
	if err := db.SaveInstrument(ctx, instr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Declared %s (%s, %s)\n", instr.Ticker, instr.Name, instr.Market)
	return subcommands.ExitSuccess
}

// --- Instruments Command ---

type instrumentsCmd struct{}

func (*instrumentsCmd) Name() string     { return "instruments" }
func (*instrumentsCmd) Synopsis() string { return "list all declared instruments" }
func (*instrumentsCmd) Usage() string {
	return `instruments

  Lists every declared instrument with its market, currency and sector.
`
}

func (*instrumentsCmd) SetFlags(*flag.FlagSet) {}

func (*instrumentsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	printMarkdown(instrumentsMarkdown(instruments))
	return subcommands.ExitSuccess
}
