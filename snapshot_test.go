package stockfolio

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestBuilder_EmptyLedger(t *testing.T) {
	l := newTestLedger(t, samsung)
	b := &Builder{Ledger: l, Prices: newFakePrices(), AsOf: day(2025, time.June, 1)}

	snaps, perf, err := b.Build(context.Background(), 1)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if snaps != nil || perf != nil {
		t.Errorf("Build() on empty ledger = %d snapshots, %d perf rows, want none", len(snaps), len(perf))
	}
}

func TestBuilder_DailyWalk(t *testing.T) {
	l := newTestLedger(t, samsung)
	mustAppend(t, l, NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(100), 1.0))

	prices := newFakePrices()
	prices.setClose(samsung.Ticker, day(2025, time.January, 2), KRW(100))
	prices.setClose(samsung.Ticker, day(2025, time.January, 3), KRW(105))
	// Jan 4 and 5 have no close: the walk falls back to Jan 3.
	prices.setClose(samsung.Ticker, day(2025, time.January, 6), KRW(110))

	b := &Builder{Ledger: l, Prices: prices, AsOf: day(2025, time.January, 6)}
	snaps, perf, err := b.Build(context.Background(), 1)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if len(snaps) != 5 {
		t.Fatalf("got %d snapshots, want 5 (Jan 2 through Jan 6)", len(snaps))
	}

	first := snaps[0]
	if !first.TotalValue.Equal(KRW(1000)) || !first.Invested.Equal(KRW(1000)) {
		t.Errorf("Jan 2: value %s invested %s, want 1000/1000", first.TotalValue, first.Invested)
	}
	if !first.DayPnL.IsZero() {
		t.Errorf("Jan 2: DayPnL = %s, want 0 on the first snapshot", first.DayPnL)
	}

	if !snaps[1].DayPnL.Equal(KRW(50)) {
		t.Errorf("Jan 3: DayPnL = %s, want 50", snaps[1].DayPnL)
	}

	// stale-close days carry the last value and move zero
	if !snaps[2].TotalValue.Equal(KRW(1050)) || !snaps[2].DayPnL.IsZero() {
		t.Errorf("Jan 4: value %s pnl %s, want 1050/0", snaps[2].TotalValue, snaps[2].DayPnL)
	}

	last := snaps[4]
	if !last.TotalValue.Equal(KRW(1100)) || !last.DayPnL.Equal(KRW(50)) {
		t.Errorf("Jan 6: value %s pnl %s, want 1100/50", last.TotalValue, last.DayPnL)
	}
	if !last.CumulativeReturn.Equal(KRW(100)) {
		t.Errorf("Jan 6: CumulativeReturn = %s, want 100", last.CumulativeReturn)
	}

	if len(perf) != 5 {
		t.Fatalf("got %d perf rows, want 5", len(perf))
	}
	if !perf[0].PrevClose.Equal(perf[0].Close) {
		t.Errorf("first day PrevClose = %s, want Close %s", perf[0].PrevClose, perf[0].Close)
	}
	if !perf[1].DayPnL.Equal(KRW(50)) {
		t.Errorf("Jan 3 instrument DayPnL = %s, want 50", perf[1].DayPnL)
	}
}

func TestBuilder_PriceGapBeyondWindow(t *testing.T) {
	l := newTestLedger(t, samsung)
	mustAppend(t, l, NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(100), 1.0))

	prices := newFakePrices()
	prices.setClose(samsung.Ticker, day(2025, time.January, 2), KRW(100))

	b := &Builder{Ledger: l, Prices: prices, AsOf: day(2025, time.January, 14)}
	snaps, _, err := b.Build(context.Background(), 1)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if len(snaps) != 13 {
		t.Fatalf("got %d snapshots, want 13", len(snaps))
	}

	// Jan 12 is 10 days after the close: still within the fallback window.
	jan12 := snaps[10]
	if !jan12.TotalValue.Equal(KRW(1000)) {
		t.Errorf("Jan 12: value %s, want 1000 (stale close)", jan12.TotalValue)
	}
	// Jan 13 is beyond it: the holding contributes zero, but the day is still
	// persisted because capital is invested.
	jan13 := snaps[11]
	if !jan13.TotalValue.IsZero() {
		t.Errorf("Jan 13: value %s, want 0 beyond the price gap window", jan13.TotalValue)
	}
	if !jan13.Invested.Equal(KRW(1000)) {
		t.Errorf("Jan 13: invested %s, want 1000", jan13.Invested)
	}
}

func TestBuilder_ForeignCurrencyAndDividends(t *testing.T) {
	l := newTestLedger(t, apple)
	mustAppend(t, l, NewBuy(day(2025, time.January, 2), apple.Ticker, 1, USD(100), 1300))
	if err := l.AppendDividend(NewDividend(day(2025, time.January, 3), apple.Ticker, USD(10), USD(1))); err != nil {
		t.Fatalf("AppendDividend() failed: %v", err)
	}

	prices := newFakePrices()
	prices.setClose(apple.Ticker, day(2025, time.January, 2), USD(100))
	prices.setClose(apple.Ticker, day(2025, time.January, 3), USD(102))
	prices.setFX(day(2025, time.January, 2), 1300)
	prices.setFX(day(2025, time.January, 3), 1350)

	b := &Builder{Ledger: l, Prices: prices, AsOf: day(2025, time.January, 3)}
	snaps, _, err := b.Build(context.Background(), 1)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}

	jan2 := snaps[0]
	if !jan2.USValueUSD.Equal(USD(100)) || !jan2.USValue.Equal(KRW(130000)) {
		t.Errorf("Jan 2: US segment %s / %s, want 100 USD / 130000 KRW", jan2.USValueUSD, jan2.USValue)
	}
	if !jan2.KRValue.IsZero() {
		t.Errorf("Jan 2: KR segment %s, want 0", jan2.KRValue)
	}

	jan3 := snaps[1]
	if !jan3.TotalValue.Equal(KRW(137700)) {
		t.Errorf("Jan 3: value %s, want 137700 (102 USD at 1350)", jan3.TotalValue)
	}
	if !jan3.Dividends.Equal(KRW(12150)) {
		t.Errorf("Jan 3: dividends %s, want 12150 (9 USD net at 1350)", jan3.Dividends)
	}
	// 137700 + 12150 - 130000
	if !jan3.CumulativeReturn.Equal(KRW(19850)) {
		t.Errorf("Jan 3: CumulativeReturn = %s, want 19850", jan3.CumulativeReturn)
	}
}

func TestBuilder_SkipsEmptyDays(t *testing.T) {
	l := newTestLedger(t, samsung)
	mustAppend(t, l,
		NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(100), 1.0),
		NewSell(day(2025, time.January, 3), samsung.Ticker, 10, KRW(100), 1.0),
	)

	prices := newFakePrices()
	prices.setClose(samsung.Ticker, day(2025, time.January, 2), KRW(100))

	b := &Builder{Ledger: l, Prices: prices, AsOf: day(2025, time.January, 10)}
	snaps, _, err := b.Build(context.Background(), 1)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	// After the full close there is no value and no invested capital:
	// those days are skipped, not zero-filled.
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snaps))
	}
	if snaps[0].Date != day(2025, time.January, 2) {
		t.Errorf("snapshot date = %s, want 2025-01-02", snaps[0].Date)
	}
}

func TestBuilder_Idempotent(t *testing.T) {
	l := newTestLedger(t, samsung, apple)
	mustAppend(t, l,
		NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(70300), 1.0),
		NewBuy(day(2025, time.January, 2), apple.Ticker, 3, USD(151.3), 1337.42),
		NewSell(day(2025, time.January, 8), samsung.Ticker, 4, KRW(71150), 1.0),
	)

	prices := newFakePrices()
	for i := 0; i < 10; i++ {
		d := day(2025, time.January, 2).Add(i)
		prices.setClose(samsung.Ticker, d, KRW(70000+137*i))
		prices.setClose(apple.Ticker, d, USD(150.0+0.3*float64(i)))
		prices.setFX(d, 1335.5+float64(i))
	}

	b := &Builder{Ledger: l, Prices: prices, AsOf: day(2025, time.January, 11)}
	first, firstPerf, err := b.Build(context.Background(), 1)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	second, secondPerf, err := b.Build(context.Background(), 1)
	if err != nil {
		t.Fatalf("second Build() failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("rebuilding from identical inputs produced different snapshots")
	}
	if !reflect.DeepEqual(firstPerf, secondPerf) {
		t.Error("rebuilding from identical inputs produced different performance rows")
	}
}
