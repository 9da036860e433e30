package stockfolio

import (
	"context"
	"testing"
	"time"
)

func TestComputeHoldings(t *testing.T) {
	l := newTestLedger(t, samsung, apple)
	mustAppend(t, l,
		NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(70000), 1.0),
		NewBuy(day(2025, time.January, 2), apple.Ticker, 2, USD(100), 1300),
	)

	asOf := day(2025, time.January, 10)
	prices := newFakePrices()
	prices.setClose(samsung.Ticker, asOf, KRW(77000))
	prices.setClose(apple.Ticker, asOf, USD(110))
	prices.setFX(asOf, 1300)

	holdings, err := ComputeHoldings(context.Background(), l, prices, "KRW", 1, asOf)
	if err != nil {
		t.Fatalf("ComputeHoldings() failed: %v", err)
	}
	if len(holdings) != 2 {
		t.Fatalf("got %d holdings, want 2", len(holdings))
	}

	// sorted by value descending: samsung 770000 over apple 286000
	if holdings[0].Ticker != samsung.Ticker {
		t.Fatalf("first holding = %s, want samsung", holdings[0].Ticker)
	}
	sam, aapl := holdings[0], holdings[1]

	if !sam.Value.Equal(KRW(770000)) {
		t.Errorf("samsung value = %s, want 770000", sam.Value)
	}
	if !sam.UnrealizedGain.Equal(KRW(70000)) {
		t.Errorf("samsung unrealized = %s, want 70000", sam.UnrealizedGain)
	}
	if !sam.UnrealizedGainPercent.Equal(10) {
		t.Errorf("samsung unrealized %% = %s, want 10%%", sam.UnrealizedGainPercent)
	}

	if !aapl.ValueLocal.Equal(USD(220)) || !aapl.Value.Equal(KRW(286000)) {
		t.Errorf("apple value = %s / %s, want 220 USD / 286000 KRW", aapl.ValueLocal, aapl.Value)
	}

	total := 770000.0 + 286000.0
	if !sam.Weight.Equal(Percent(100 * 770000 / total)) {
		t.Errorf("samsung weight = %s, want %s", sam.Weight, Percent(100*770000/total))
	}
}

func TestComputeHoldings_MissingPrice(t *testing.T) {
	l := newTestLedger(t, samsung)
	mustAppend(t, l, NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(70000), 1.0))

	// No price at all: the holding is still listed, valued at zero.
	holdings, err := ComputeHoldings(context.Background(), l, newFakePrices(), "KRW", 1, day(2025, time.June, 1))
	if err != nil {
		t.Fatalf("ComputeHoldings() failed: %v", err)
	}
	if len(holdings) != 1 {
		t.Fatalf("got %d holdings, want 1", len(holdings))
	}
	if !holdings[0].Value.IsZero() {
		t.Errorf("value = %s, want 0 without any price", holdings[0].Value)
	}
	if !holdings[0].UnrealizedGain.Equal(KRW(-700000)) {
		t.Errorf("unrealized = %s, want -700000", holdings[0].UnrealizedGain)
	}
}

func TestBreakdownByMarket(t *testing.T) {
	holdings := []Holding{
		{Position: Position{Ticker: samsung.Ticker, Market: MarketKR, TotalInvested: KRW(700000)}, Value: KRW(770000), UnrealizedGain: KRW(70000)},
		{Position: Position{Ticker: apple.Ticker, Market: MarketUS, TotalInvested: KRW(260000)}, Value: KRW(286000), UnrealizedGain: KRW(26000)},
		{Position: Position{Ticker: hyundai.Ticker, Market: MarketKR, TotalInvested: KRW(100000)}, Value: KRW(44000), UnrealizedGain: KRW(-56000)},
	}

	segments := BreakdownByMarket("KRW", holdings)
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}

	kr, us := segments[0], segments[1]
	if kr.Market != MarketKR || us.Market != MarketUS {
		t.Fatalf("segment order = %s, %s; want KR then US", kr.Market, us.Market)
	}
	if kr.Positions != 2 || !kr.Value.Equal(KRW(814000)) {
		t.Errorf("KR = %d positions at %s, want 2 at 814000", kr.Positions, kr.Value)
	}
	if !kr.UnrealizedGain.Equal(KRW(14000)) {
		t.Errorf("KR unrealized = %s, want 14000", kr.UnrealizedGain)
	}
	total := 814000.0 + 286000.0
	if !us.Weight.Equal(Percent(100 * 286000 / total)) {
		t.Errorf("US weight = %s, want %s", us.Weight, Percent(100*286000/total))
	}
}

func TestSummarize(t *testing.T) {
	holdings := []Holding{
		{Position: Position{TotalInvested: KRW(1000), RealizedGain: KRW(30)}, Value: KRW(1100), UnrealizedGain: KRW(100)},
		{Position: Position{TotalInvested: KRW(500), RealizedGain: KRW(0)}, Value: KRW(450), UnrealizedGain: KRW(-50)},
	}
	snaps := snapshotSeries(t, day(2025, time.January, 2), 1500, 1550)
	snaps[1].Dividends = KRW(25)

	s := Summarize("KRW", holdings, snaps)
	if !s.TotalValue.Equal(KRW(1550)) || !s.Invested.Equal(KRW(1500)) {
		t.Errorf("totals = %s / %s, want 1550 / 1500", s.TotalValue, s.Invested)
	}
	if !s.UnrealizedGain.Equal(KRW(50)) {
		t.Errorf("unrealized = %s, want 50", s.UnrealizedGain)
	}
	if !s.RealizedGain.Equal(KRW(30)) {
		t.Errorf("realized = %s, want 30", s.RealizedGain)
	}
	if !s.DayPnL.Equal(KRW(50)) || !s.Dividends.Equal(KRW(25)) {
		t.Errorf("day pnl %s dividends %s, want 50 / 25", s.DayPnL, s.Dividends)
	}
	if s.Date != day(2025, time.January, 3) {
		t.Errorf("date = %s, want the last snapshot's", s.Date)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize("KRW", nil, nil)
	if !s.TotalValue.IsZero() || !s.DayPnL.IsZero() || s.Positions != 0 {
		t.Errorf("empty summary = %+v, want zeroes", s)
	}
}
