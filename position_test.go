package stockfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestComputePosition_AverageCost(t *testing.T) {
	txs := []Transaction{
		NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(100), 1.0),
		NewBuy(day(2025, time.January, 3), samsung.Ticker, 10, KRW(200), 1.0),
	}

	pos := ComputePosition(samsung, "KRW", txs, nil)
	if pos == nil {
		t.Fatal("ComputePosition() = nil, want a position")
	}
	if !pos.Quantity.Equal(Q(20)) {
		t.Errorf("Quantity = %s, want 20", pos.Quantity)
	}
	if !pos.AverageCost.Equal(KRW(150)) {
		t.Errorf("AverageCost = %s, want 150", pos.AverageCost)
	}
	if !pos.TotalInvested.Equal(KRW(3000)) {
		t.Errorf("TotalInvested = %s, want 3000", pos.TotalInvested)
	}
}

func TestComputePosition_PartialSell(t *testing.T) {
	txs := []Transaction{
		NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(100), 1.0),
		NewBuy(day(2025, time.January, 3), samsung.Ticker, 10, KRW(200), 1.0),
		NewSell(day(2025, time.January, 10), samsung.Ticker, 5, KRW(180), 1.0),
	}

	pos := ComputePosition(samsung, "KRW", txs, nil)
	if pos == nil {
		t.Fatal("ComputePosition() = nil, want a position")
	}
	if !pos.Quantity.Equal(Q(15)) {
		t.Errorf("Quantity = %s, want 15", pos.Quantity)
	}
	if !pos.TotalInvested.Equal(KRW(2250)) {
		t.Errorf("TotalInvested = %s, want 2250", pos.TotalInvested)
	}
	// 5 * (180 - 150)
	if !pos.RealizedGain.Equal(KRW(150)) {
		t.Errorf("RealizedGain = %s, want 150", pos.RealizedGain)
	}
	// average cost is unchanged by a sell
	if !pos.AverageCost.Equal(KRW(150)) {
		t.Errorf("AverageCost = %s, want 150", pos.AverageCost)
	}
}

func TestComputePosition_SellEdgeCases(t *testing.T) {
	testCases := []struct {
		name         string
		txs          []Transaction
		wantDeleted  bool
		wantQuantity Quantity
		wantRealized Money
	}{
		{
			name: "sell against empty position is a no-op",
			txs: []Transaction{
				NewSell(day(2025, time.January, 2), samsung.Ticker, 5, KRW(100), 1.0),
				NewBuy(day(2025, time.January, 3), samsung.Ticker, 10, KRW(100), 1.0),
			},
			wantQuantity: Q(10),
			wantRealized: KRW(0),
		},
		{
			name: "oversized sell is clamped to the held quantity",
			txs: []Transaction{
				NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(100), 1.0),
				NewSell(day(2025, time.January, 3), samsung.Ticker, 50, KRW(120), 1.0),
			},
			wantDeleted: true,
		},
		{
			name: "full close deletes the position",
			txs: []Transaction{
				NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(100), 1.0),
				NewSell(day(2025, time.January, 3), samsung.Ticker, 10, KRW(100), 1.0),
			},
			wantDeleted: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pos := ComputePosition(samsung, "KRW", tc.txs, nil)
			if tc.wantDeleted {
				if pos != nil {
					t.Fatalf("ComputePosition() = %+v, want nil (deletion)", pos)
				}
				return
			}
			if pos == nil {
				t.Fatal("ComputePosition() = nil, want a position")
			}
			if !pos.Quantity.Equal(tc.wantQuantity) {
				t.Errorf("Quantity = %s, want %s", pos.Quantity, tc.wantQuantity)
			}
			if !pos.RealizedGain.Equal(tc.wantRealized) {
				t.Errorf("RealizedGain = %s, want %s", pos.RealizedGain, tc.wantRealized)
			}
		})
	}
}

func TestComputePosition_ForeignCurrency(t *testing.T) {
	txs := []Transaction{
		NewBuy(day(2025, time.January, 2), apple.Ticker, 10, USD(100), 1300),
		NewBuy(day(2025, time.February, 2), apple.Ticker, 10, USD(100), 1400),
	}

	pos := ComputePosition(apple, "KRW", txs, nil)
	if pos == nil {
		t.Fatal("ComputePosition() = nil, want a position")
	}
	// 10*100*1300 + 10*100*1400
	if !pos.TotalInvested.Equal(KRW(2_700_000)) {
		t.Errorf("TotalInvested = %s, want 2700000", pos.TotalInvested)
	}
	if !pos.AverageCost.Equal(USD(100)) {
		t.Errorf("AverageCost = %s, want 100 USD", pos.AverageCost)
	}
	// blended: 2700000 / 2000
	if !pos.AverageFXRate.Equal(decimal.NewFromInt(1350)) {
		t.Errorf("AverageFXRate = %s, want 1350", pos.AverageFXRate)
	}
}

func TestComputePosition_Dividends(t *testing.T) {
	txs := []Transaction{
		NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(100), 1.0),
	}
	divs := []DividendReceipt{
		NewDividend(day(2025, time.March, 31), samsung.Ticker, KRW(500), KRW(77)),
		NewDividend(day(2025, time.June, 30), samsung.Ticker, KRW(500), KRW(77)),
	}

	pos := ComputePosition(samsung, "KRW", txs, divs)
	if pos == nil {
		t.Fatal("ComputePosition() = nil, want a position")
	}
	if !pos.Dividends.Equal(KRW(846)) {
		t.Errorf("Dividends = %s, want 846", pos.Dividends)
	}
	// dividends never touch the cost basis
	if !pos.TotalInvested.Equal(KRW(1000)) {
		t.Errorf("TotalInvested = %s, want 1000", pos.TotalInvested)
	}
}

func TestComputePosition_BuyOnlyConservation(t *testing.T) {
	// With only buys, totalInvested is exactly the sum of qty*price*fx.
	var txs []Transaction
	want := decimal.Zero
	for i := 1; i <= 20; i++ {
		price := KRW(100 + 7*i)
		txs = append(txs, NewBuy(day(2025, time.January, 1).Add(i), samsung.Ticker, float64(i), price, 1.0))
		want = want.Add(price.Amount().Mul(decimal.NewFromInt(int64(i))))
	}

	pos := ComputePosition(samsung, "KRW", txs, nil)
	if pos == nil {
		t.Fatal("ComputePosition() = nil, want a position")
	}
	if !pos.TotalInvested.Amount().Equal(want) {
		t.Errorf("TotalInvested = %s, want %s", pos.TotalInvested.Amount(), want)
	}
}

func TestComputePosition_Idempotent(t *testing.T) {
	txs := []Transaction{
		NewBuy(day(2025, time.January, 2), apple.Ticker, 7, USD(151.3), 1337.42),
		NewSell(day(2025, time.January, 20), apple.Ticker, 3, USD(163.7), 1301.11),
		NewBuy(day(2025, time.February, 2), apple.Ticker, 5, USD(149.9), 1355.55),
	}

	a := ComputePosition(apple, "KRW", txs, nil)
	b := ComputePosition(apple, "KRW", txs, nil)
	if a == nil || b == nil {
		t.Fatal("ComputePosition() = nil, want a position")
	}
	if !a.Quantity.Equal(b.Quantity) || !a.TotalInvested.Equal(b.TotalInvested) ||
		!a.RealizedGain.Equal(b.RealizedGain) || !a.AverageCost.Equal(b.AverageCost) {
		t.Errorf("replays differ: %+v vs %+v", a, b)
	}
}

func TestRealizedGains_Methods(t *testing.T) {
	// Two lots at different prices, then a sale that spans cost bases.
	txs := []Transaction{
		NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(100), 1.0),
		NewBuy(day(2025, time.January, 3), samsung.Ticker, 10, KRW(200), 1.0),
		NewSell(day(2025, time.January, 10), samsung.Ticker, 5, KRW(180), 1.0),
	}

	t.Run("average cost", func(t *testing.T) {
		gains := RealizedGains(samsung, "KRW", txs, AverageCost)
		if len(gains) != 1 {
			t.Fatalf("got %d gains, want 1", len(gains))
		}
		if !gains[0].Gain.Equal(KRW(150)) {
			t.Errorf("Gain = %s, want 150", gains[0].Gain)
		}
	})

	t.Run("fifo", func(t *testing.T) {
		gains := RealizedGains(samsung, "KRW", txs, FIFO)
		if len(gains) != 1 {
			t.Fatalf("got %d gains, want 1", len(gains))
		}
		// oldest lot cost 100: 5 * (180 - 100)
		if !gains[0].Gain.Equal(KRW(400)) {
			t.Errorf("Gain = %s, want 400", gains[0].Gain)
		}
	})

	t.Run("methods converge on full close", func(t *testing.T) {
		closed := append(append([]Transaction{}, txs...),
			NewSell(day(2025, time.January, 20), samsung.Ticker, 15, KRW(180), 1.0))

		sum := func(gains []RealizedGain) decimal.Decimal {
			total := decimal.Zero
			for _, g := range gains {
				total = total.Add(g.Gain.Amount())
			}
			return total
		}
		avg := sum(RealizedGains(samsung, "KRW", closed, AverageCost))
		fifo := sum(RealizedGains(samsung, "KRW", closed, FIFO))
		if !avg.Equal(fifo) {
			t.Errorf("total gains diverge after full close: average %s, fifo %s", avg, fifo)
		}
	})
}

func TestLots_FIFOSell(t *testing.T) {
	held := lots{
		{Date: day(2025, time.January, 2), Quantity: Q(10), Cost: KRW(1000)},
		{Date: day(2025, time.January, 3), Quantity: Q(10), Cost: KRW(2000)},
	}

	cost := held.fifoCostOfSelling(Q(15))
	// full first lot plus half the second
	if !cost.Equal(KRW(2000)) {
		t.Errorf("fifoCostOfSelling(15) = %s, want 2000", cost)
	}

	remaining := held.sell(Q(15))
	if len(remaining) != 1 {
		t.Fatalf("got %d remaining lots, want 1", len(remaining))
	}
	if !remaining[0].Quantity.Equal(Q(5)) || !remaining[0].Cost.Equal(KRW(1000)) {
		t.Errorf("remaining lot = %s @ %s, want 5 @ 1000", remaining[0].Quantity, remaining[0].Cost)
	}
}
