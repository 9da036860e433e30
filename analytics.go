package stockfolio

import (
	"sort"
	"time"
)

// Analytics functions are pure transforms over snapshot series and holdings.
// None of them error: empty or degenerate input yields zero-valued results,
// so report rendering never has a failure path of its own.

// SectorInstrument is one holding inside a sector bucket.
type SectorInstrument struct {
	Ticker string
	Name   string
	Value  Money
	Weight Percent // share of the whole portfolio, not of the sector
}

// SectorWeight is one sector's share of the portfolio.
type SectorWeight struct {
	Sector      string
	Value       Money
	Weight      Percent
	Instruments []SectorInstrument
}

// SectorAllocation groups holdings by sector, heaviest first. Holdings with
// no declared sector fall into the "Other" bucket.
func SectorAllocation(holdings []Holding) []SectorWeight {
	total := 0.0
	for _, h := range holdings {
		total += h.Value.AsFloat()
	}

	bySector := map[string]*SectorWeight{}
	for _, h := range holdings {
		sector := h.Sector
		if sector == "" {
			sector = OtherSector
		}
		sw := bySector[sector]
		if sw == nil {
			sw = &SectorWeight{Sector: sector, Value: M(0, h.Value.Currency())}
			bySector[sector] = sw
		}
		sw.Value = sw.Value.Add(h.Value)
		sw.Instruments = append(sw.Instruments, SectorInstrument{
			Ticker: h.Ticker,
			Name:   h.Name,
			Value:  h.Value,
			Weight: ratio(h.Value.AsFloat(), total),
		})
	}

	out := make([]SectorWeight, 0, len(bySector))
	for _, sw := range bySector {
		sw.Weight = ratio(sw.Value.AsFloat(), total)
		sort.Slice(sw.Instruments, func(i, j int) bool {
			if sw.Instruments[i].Value.Equal(sw.Instruments[j].Value) {
				return sw.Instruments[i].Ticker < sw.Instruments[j].Ticker
			}
			return sw.Instruments[j].Value.LessThan(sw.Instruments[i].Value)
		})
		out = append(out, *sw)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value.Equal(out[j].Value) {
			return out[i].Sector < out[j].Sector
		}
		return out[j].Value.LessThan(out[i].Value)
	})
	return out
}

// BenchmarkClose is one day of a benchmark index or ETF series.
type BenchmarkClose struct {
	Date  Date
	Close Money
}

// BenchmarkPoint pairs portfolio and benchmark cumulative returns on one
// aligned date.
type BenchmarkPoint struct {
	Date            Date
	PortfolioReturn Percent
	BenchmarkReturn Percent
}

// BenchmarkComparison is the portfolio measured against a benchmark series.
type BenchmarkComparison struct {
	Points          []BenchmarkPoint
	PortfolioReturn Percent // cumulative over the aligned range
	BenchmarkReturn Percent
	Alpha           Percent // portfolio minus benchmark
}

// CompareBenchmark aligns the snapshot series with a benchmark close series
// by date and expresses both as percent returns from their first aligned
// values. Dates present in only one series are dropped.
func CompareBenchmark(snaps []DailySnapshot, bench []BenchmarkClose) BenchmarkComparison {
	benchByDate := make(map[Date]Money, len(bench))
	for _, b := range bench {
		benchByDate[b.Date] = b.Close
	}

	var cmp BenchmarkComparison
	var baseValue, baseBench float64
	for _, s := range snaps {
		b, ok := benchByDate[s.Date]
		if !ok {
			continue
		}
		if len(cmp.Points) == 0 {
			baseValue = s.TotalValue.AsFloat()
			baseBench = b.AsFloat()
		}
		cmp.Points = append(cmp.Points, BenchmarkPoint{
			Date:            s.Date,
			PortfolioReturn: ratio(s.TotalValue.AsFloat()-baseValue, baseValue),
			BenchmarkReturn: ratio(b.AsFloat()-baseBench, baseBench),
		})
	}
	if n := len(cmp.Points); n > 0 {
		cmp.PortfolioReturn = cmp.Points[n-1].PortfolioReturn
		cmp.BenchmarkReturn = cmp.Points[n-1].BenchmarkReturn
		cmp.Alpha = cmp.PortfolioReturn - cmp.BenchmarkReturn
	}
	return cmp
}

// Drawdown is the deepest peak-to-trough decline observed in a value series.
type Drawdown struct {
	Percent Percent // in [0, 100]
	Peak    Date    // date of the peak the decline started from
	Trough  Date    // date of the lowest point
}

// MaxDrawdown scans the snapshot series with a running peak.
func MaxDrawdown(snaps []DailySnapshot) Drawdown {
	var dd Drawdown
	var peak float64
	var peakDate Date
	for _, s := range snaps {
		v := s.TotalValue.AsFloat()
		// a tie with the peak starts a new drawdown window
		if v >= peak {
			peak, peakDate = v, s.Date
			continue
		}
		if peak <= 0 {
			continue
		}
		if p := ratio(peak-v, peak); p > dd.Percent {
			dd.Percent = p
			dd.Peak = peakDate
			dd.Trough = s.Date
		}
	}
	return dd
}

// concentrationThreshold is the portfolio weight at and above which a single
// position is flagged.
const concentrationThreshold = Percent(20)

// ConcentrationWarning flags one position that dominates the portfolio.
type ConcentrationWarning struct {
	Ticker string
	Name   string
	Weight Percent
}

// RiskReport bundles the portfolio risk indicators.
type RiskReport struct {
	MaxDrawdown          Drawdown
	Concentration        []ConcentrationWarning
	TopFiveWeight        Percent
	DiversificationScore int // 0..100
}

// AnalyzeRisk computes drawdown from the snapshot series and concentration
// measures from current holdings.
func AnalyzeRisk(snaps []DailySnapshot, holdings []Holding) RiskReport {
	r := RiskReport{MaxDrawdown: MaxDrawdown(snaps)}

	sorted := make([]Holding, len(holdings))
	copy(sorted, holdings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[j].Weight < sorted[i].Weight })

	sectors := map[string]bool{}
	for i, h := range sorted {
		if h.Weight >= concentrationThreshold {
			r.Concentration = append(r.Concentration, ConcentrationWarning{
				Ticker: h.Ticker,
				Name:   h.Name,
				Weight: h.Weight,
			})
		}
		if i < 5 {
			r.TopFiveWeight += h.Weight
		}
		sectors[h.Sector] = true
	}

	r.DiversificationScore = 10*len(sectors) + 5*len(holdings)
	if r.DiversificationScore > 100 {
		r.DiversificationScore = 100
	}
	return r
}

// MonthlyReturn is one calendar month's performance.
type MonthlyReturn struct {
	Year   int
	Month  time.Month
	PnL    Money
	Return Percent
}

// MonthlyReturns groups the snapshot series by calendar month. The monthly
// return divides the month's summed day P&L by the portfolio value at the
// month's start (the first day's value before that day's move).
func MonthlyReturns(snaps []DailySnapshot) []MonthlyReturn {
	type key struct {
		y int
		m time.Month
	}
	var order []key
	byMonth := map[key]*MonthlyReturn{}
	startValue := map[key]float64{}

	for _, s := range snaps {
		k := key{s.Date.Year(), s.Date.Month()}
		mr := byMonth[k]
		if mr == nil {
			mr = &MonthlyReturn{Year: k.y, Month: k.m, PnL: M(0, s.TotalValue.Currency())}
			byMonth[k] = mr
			order = append(order, k)
			// value at the month's start, before the first day's move
			startValue[k] = s.TotalValue.AsFloat() - s.DayPnL.AsFloat()
		}
		mr.PnL = mr.PnL.Add(s.DayPnL)
	}

	out := make([]MonthlyReturn, 0, len(order))
	for _, k := range order {
		mr := byMonth[k]
		mr.Return = ratio(mr.PnL.AsFloat(), startValue[k])
		out = append(out, *mr)
	}
	return out
}

// PeriodReturn is the flow-adjusted return over one lookback window.
type PeriodReturn struct {
	Label  string // "1M", "3M", "6M", "1Y", "YTD"
	From   Date
	Return Percent
}

// PeriodReturns computes flow-adjusted returns over the standard lookback
// windows, anchored at the last snapshot. New deposits and withdrawals are
// excluded from the return and dividends are included:
//
//	(end + dividendDelta - investedDelta - start) / start
//
// A window with no snapshot on or after its start date, or whose start is the
// end snapshot itself, returns zero.
func PeriodReturns(snaps []DailySnapshot) []PeriodReturn {
	if len(snaps) == 0 {
		return []PeriodReturn{{Label: "1M"}, {Label: "3M"}, {Label: "6M"}, {Label: "1Y"}, {Label: "YTD"}}
	}
	end := snaps[len(snaps)-1]

	windows := []struct {
		label string
		from  Date
	}{
		{"1M", end.Date.AddMonth(-1)},
		{"3M", end.Date.AddMonth(-3)},
		{"6M", end.Date.AddMonth(-6)},
		{"1Y", end.Date.AddMonth(-12)},
		{"YTD", end.Date.StartOfYear()},
	}

	out := make([]PeriodReturn, 0, len(windows))
	for _, w := range windows {
		pr := PeriodReturn{Label: w.label, From: w.from}
		if start, ok := firstOnOrAfter(snaps, w.from); ok && start.Date != end.Date {
			dividendDelta := end.Dividends.AsFloat() - start.Dividends.AsFloat()
			investedDelta := end.Invested.AsFloat() - start.Invested.AsFloat()
			pr.Return = ratio(end.TotalValue.AsFloat()+dividendDelta-investedDelta-start.TotalValue.AsFloat(),
				start.TotalValue.AsFloat())
		}
		out = append(out, pr)
	}
	return out
}

// firstOnOrAfter finds the earliest snapshot on or after a date. The series
// is ordered by date.
func firstOnOrAfter(snaps []DailySnapshot, from Date) (DailySnapshot, bool) {
	for _, s := range snaps {
		if !s.Date.Before(from) {
			return s, true
		}
	}
	return DailySnapshot{}, false
}

// DayRecord is one notable day in the win/loss statistics.
type DayRecord struct {
	Date    Date
	PnL     Money
	Percent Percent
}

// WinLossStats summarizes the distribution of daily P&L.
type WinLossStats struct {
	UpDays   int
	DownDays int
	FlatDays int

	WinRate        Percent
	AvgWinPercent  Percent
	AvgLossPercent Percent

	BestDay  DayRecord
	WorstDay DayRecord

	// ProfitFactor is gross profit over gross loss. 999 when there are
	// profits but no losses, 0 when there are neither.
	ProfitFactor float64
}

// AnalyzeWinLoss walks the snapshot series' daily P&L values.
func AnalyzeWinLoss(snaps []DailySnapshot) WinLossStats {
	var st WinLossStats
	var grossProfit, grossLoss float64
	var sumWinPct, sumLossPct float64
	first := true

	for _, s := range snaps {
		pnl := s.DayPnL.AsFloat()
		switch {
		case pnl > 0:
			st.UpDays++
			grossProfit += pnl
			sumWinPct += float64(s.DayPnLPercent)
		case pnl < 0:
			st.DownDays++
			grossLoss += -pnl
			sumLossPct += float64(s.DayPnLPercent)
		default:
			st.FlatDays++
		}

		// best and worst by daily return, not absolute P&L
		if first || s.DayPnLPercent > st.BestDay.Percent {
			st.BestDay = DayRecord{Date: s.Date, PnL: s.DayPnL, Percent: s.DayPnLPercent}
		}
		if first || s.DayPnLPercent < st.WorstDay.Percent {
			st.WorstDay = DayRecord{Date: s.Date, PnL: s.DayPnL, Percent: s.DayPnLPercent}
		}
		first = false
	}

	// flat days count against the win rate
	st.WinRate = ratio(float64(st.UpDays), float64(st.UpDays+st.DownDays+st.FlatDays))
	if st.UpDays > 0 {
		st.AvgWinPercent = Percent(sumWinPct / float64(st.UpDays))
	}
	if st.DownDays > 0 {
		st.AvgLossPercent = Percent(sumLossPct / float64(st.DownDays))
	}

	switch {
	case grossLoss > 0:
		st.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		st.ProfitFactor = 999
	}
	return st
}

// TrendPoint is one day of the portfolio value trend.
type TrendPoint struct {
	Date  Date
	Value Money
}

// TrendReport is the portfolio value over a date range with its period
// return and worst decline.
type TrendReport struct {
	Points       []TrendPoint
	PeriodReturn Percent
	MaxDrawdown  Drawdown
}

// Trend restricts the snapshot series to a range and summarizes it.
func Trend(snaps []DailySnapshot, rng Range) TrendReport {
	var within []DailySnapshot
	for _, s := range snaps {
		if rng.Contains(s.Date) {
			within = append(within, s)
		}
	}

	var tr TrendReport
	for _, s := range within {
		tr.Points = append(tr.Points, TrendPoint{Date: s.Date, Value: s.TotalValue})
	}
	if len(within) > 1 {
		first := within[0].TotalValue.AsFloat()
		last := within[len(within)-1].TotalValue.AsFloat()
		tr.PeriodReturn = ratio(last-first, first)
	}
	tr.MaxDrawdown = MaxDrawdown(within)
	return tr
}
