package cmd

import (
	"fmt"
	"strings"

	"github.com/kwahn/stockfolio"
	"github.com/kwahn/stockfolio/batch"
)

// The report commands render markdown tables and print them raw. The output
// stays readable in a terminal and pastes cleanly into notes.

func instrumentsMarkdown(instruments []stockfolio.Instrument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Instruments\n\n")
	fmt.Fprintln(&b, "| Ticker | Name | Market | Currency | Sector |")
	fmt.Fprintln(&b, "|:---|:---|:---:|:---:|:---|")
	for _, i := range instruments {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			i.Ticker, i.Name, i.Market, i.Currency(), i.NormalSector())
	}
	return b.String()
}

func transactionsMarkdown(txs []stockfolio.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Transactions\n\n")
	fmt.Fprintln(&b, "| Date | Kind | Ticker | Quantity | Price | Amount | FX | Note |")
	fmt.Fprintln(&b, "|:---|:---:|:---|---:|---:|---:|---:|:---|")
	for _, tx := range txs {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			tx.Date, tx.Kind, tx.Ticker, tx.Quantity, tx.Price, tx.Amount(), tx.FXRate, tx.Note)
	}
	return b.String()
}

func gainsMarkdown(gains []stockfolio.RealizedGain, method stockfolio.CostBasisMethod) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Realized Gains (%s)\n\n", method)
	fmt.Fprintln(&b, "| Date | Ticker | Quantity | Proceeds | Cost Basis | Gain |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|---:|")
	for _, g := range gains {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			g.Date, g.Ticker, g.Quantity, g.Proceeds, g.CostBasis, g.Gain.SignedString())
	}
	return b.String()
}

func holdingsMarkdown(holdings []stockfolio.Holding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Holdings\n\n")
	fmt.Fprintln(&b, "| Ticker | Name | Quantity | Close | Value | Unrealized | % | Weight |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|---:|---:|---:|")
	for _, h := range holdings {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			h.Ticker, h.Name, h.Quantity, h.Close, h.Value,
			h.UnrealizedGain.SignedString(), h.UnrealizedGainPercent.SignedString(), h.Weight)
	}
	return b.String()
}

func marketsMarkdown(segments []stockfolio.MarketSegment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Markets\n\n")
	fmt.Fprintln(&b, "| Market | Positions | Value | Invested | Unrealized | Weight |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|")
	for _, s := range segments {
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s |\n",
			s.Market, s.Positions, s.Value, s.Invested, s.UnrealizedGain.SignedString(), s.Weight)
	}
	return b.String()
}

func summaryMarkdown(s stockfolio.PortfolioSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Summary as of %s\n\n", s.Date)
	fmt.Fprintf(&b, "- Total value: %s across %d positions\n", s.TotalValue, s.Positions)
	fmt.Fprintf(&b, "- Invested: %s\n", s.Invested)
	fmt.Fprintf(&b, "- Unrealized gain: %s (%s)\n", s.UnrealizedGain.SignedString(), s.UnrealizedGainPercent.SignedString())
	fmt.Fprintf(&b, "- Realized gain: %s\n", s.RealizedGain.SignedString())
	fmt.Fprintf(&b, "- Dividends: %s\n", s.Dividends)
	fmt.Fprintf(&b, "- Day P&L: %s (%s)\n", s.DayPnL.SignedString(), s.DayPnLPercent.SignedString())
	return b.String()
}

func sectorsMarkdown(sectors []stockfolio.SectorWeight) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Sector Allocation\n\n")
	fmt.Fprintln(&b, "| Sector | Value | Weight | Holdings |")
	fmt.Fprintln(&b, "|:---|---:|---:|:---|")
	for _, s := range sectors {
		tickers := make([]string, 0, len(s.Instruments))
		for _, i := range s.Instruments {
			tickers = append(tickers, i.Ticker)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			s.Sector, s.Value, s.Weight, strings.Join(tickers, ", "))
	}
	return b.String()
}

func riskMarkdown(r stockfolio.RiskReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Risk\n\n")
	if r.MaxDrawdown.Percent > 0 {
		fmt.Fprintf(&b, "- Max drawdown: %s from %s to %s\n",
			r.MaxDrawdown.Percent, r.MaxDrawdown.Peak, r.MaxDrawdown.Trough)
	} else {
		fmt.Fprintf(&b, "- Max drawdown: none recorded\n")
	}
	fmt.Fprintf(&b, "- Top five weight: %s\n", r.TopFiveWeight)
	fmt.Fprintf(&b, "- Diversification score: %d/100\n", r.DiversificationScore)
	if len(r.Concentration) > 0 {
		fmt.Fprintf(&b, "\n## Concentration\n\n")
		for _, w := range r.Concentration {
			fmt.Fprintf(&b, "- %s (%s) holds %s of the portfolio\n", w.Ticker, w.Name, w.Weight)
		}
	}
	return b.String()
}

func monthlyMarkdown(months []stockfolio.MonthlyReturn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Monthly P&L\n\n")
	fmt.Fprintln(&b, "| Month | P&L | Return |")
	fmt.Fprintln(&b, "|:---|---:|---:|")
	for _, m := range months {
		fmt.Fprintf(&b, "| %d-%02d | %s | %s |\n",
			m.Year, m.Month, m.PnL.SignedString(), m.Return.SignedString())
	}
	return b.String()
}

func returnsMarkdown(returns []stockfolio.PeriodReturn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Period Returns\n\n")
	fmt.Fprintln(&b, "| Period | From | Return |")
	fmt.Fprintln(&b, "|:---|:---|---:|")
	for _, r := range returns {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", r.Label, r.From, r.Return.SignedString())
	}
	return b.String()
}

func statsMarkdown(s stockfolio.WinLossStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Win/Loss\n\n")
	fmt.Fprintf(&b, "- Days: %d up, %d down, %d flat\n", s.UpDays, s.DownDays, s.FlatDays)
	fmt.Fprintf(&b, "- Win rate: %s\n", s.WinRate)
	fmt.Fprintf(&b, "- Average win: %s, average loss: %s\n", s.AvgWinPercent.SignedString(), s.AvgLossPercent.SignedString())
	fmt.Fprintf(&b, "- Best day: %s (%s)\n", s.BestDay.PnL.SignedString(), s.BestDay.Date)
	fmt.Fprintf(&b, "- Worst day: %s (%s)\n", s.WorstDay.PnL.SignedString(), s.WorstDay.Date)
	fmt.Fprintf(&b, "- Profit factor: %.2f\n", s.ProfitFactor)
	return b.String()
}

func trendMarkdown(r stockfolio.TrendReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Trend\n\n")
	fmt.Fprintln(&b, "| Date | Value |")
	fmt.Fprintln(&b, "|:---|---:|")
	for _, p := range r.Points {
		fmt.Fprintf(&b, "| %s | %s |\n", p.Date, p.Value)
	}
	fmt.Fprintf(&b, "\nPeriod return: %s", r.PeriodReturn.SignedString())
	if r.MaxDrawdown.Percent > 0 {
		fmt.Fprintf(&b, ", max drawdown %s", r.MaxDrawdown.Percent)
	}
	fmt.Fprintln(&b)
	return b.String()
}

func benchmarkMarkdown(ticker string, c stockfolio.BenchmarkComparison) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Benchmark vs %s\n\n", ticker)
	fmt.Fprintln(&b, "| Date | Portfolio | Benchmark |")
	fmt.Fprintln(&b, "|:---|---:|---:|")
	for _, p := range c.Points {
		fmt.Fprintf(&b, "| %s | %s | %s |\n",
			p.Date, p.PortfolioReturn.SignedString(), p.BenchmarkReturn.SignedString())
	}
	fmt.Fprintf(&b, "\nPortfolio %s, benchmark %s, alpha %s\n",
		c.PortfolioReturn.SignedString(), c.BenchmarkReturn.SignedString(), c.Alpha.SignedString())
	return b.String()
}

func jobsMarkdown(runs []batch.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Job Runs\n\n")
	fmt.Fprintln(&b, "| Started | Job | Status | Records | Error |")
	fmt.Fprintln(&b, "|:---|:---|:---:|---:|:---|")
	for _, r := range runs {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %s |\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.Name, r.Status, r.Records, r.Error)
	}
	return b.String()
}
