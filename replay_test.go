package stockfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu        sync.Mutex
	positions map[string]Position // keyed by user/ticker
	snaps     map[int64][]DailySnapshot
	perf      map[int64][]InstrumentPerformance

	failReplace error
}

func newMemStore() *memStore {
	return &memStore{
		positions: make(map[string]Position),
		snaps:     make(map[int64][]DailySnapshot),
		perf:      make(map[int64][]InstrumentPerformance),
	}
}

func posKey(userID int64, ticker string) string { return fmt.Sprintf("%d/%s", userID, ticker) }

func (s *memStore) UpsertPosition(_ context.Context, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[posKey(pos.UserID, pos.Ticker)] = pos
	return nil
}

func (s *memStore) DeletePosition(_ context.Context, userID int64, ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, posKey(userID, ticker))
	return nil
}

func (s *memStore) Positions(_ context.Context, userID int64) ([]Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Position
	for _, p := range s.positions {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) ReplaceSnapshots(_ context.Context, userID int64, rng Range, snaps []DailySnapshot, perf []InstrumentPerformance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReplace != nil {
		return s.failReplace
	}
	s.snaps[userID] = snaps
	s.perf[userID] = perf
	return nil
}

func (s *memStore) Snapshots(_ context.Context, userID int64, rng Range) ([]DailySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DailySnapshot
	for _, snap := range s.snaps[userID] {
		if rng.Contains(snap.Date) {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (s *memStore) Performance(_ context.Context, userID int64, ticker string, rng Range) ([]InstrumentPerformance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []InstrumentPerformance
	for _, p := range s.perf[userID] {
		if (ticker == "" || p.Ticker == ticker) && rng.Contains(p.Date) {
			out = append(out, p)
		}
	}
	return out, nil
}

// multiLedger routes LedgerReader calls to per-user ledgers.
type multiLedger map[int64]*Ledger

func (m multiLedger) Transactions(ctx context.Context, userID int64, ticker string) ([]Transaction, error) {
	l, ok := m[userID]
	if !ok {
		return nil, nil
	}
	return l.Transactions(ctx, userID, ticker)
}

func (m multiLedger) Dividends(ctx context.Context, userID int64, ticker string) ([]DividendReceipt, error) {
	l, ok := m[userID]
	if !ok {
		return nil, nil
	}
	return l.Dividends(ctx, userID, ticker)
}

func (m multiLedger) Instrument(ctx context.Context, ticker string) (Instrument, error) {
	for _, l := range m {
		if instr, ok := l.InstrumentByTicker(ticker); ok {
			return instr, nil
		}
	}
	return Instrument{}, fmt.Errorf("instrument %q not declared in ledger", ticker)
}

func samsungPrices(from Date, days int, base float64) *fakePrices {
	prices := newFakePrices()
	for i := 0; i < days; i++ {
		prices.setClose(samsung.Ticker, from.Add(i), KRW(base+float64(i)))
	}
	return prices
}

func TestReplayer_Rebuild(t *testing.T) {
	l := newTestLedger(t, samsung)
	mustAppend(t, l, NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(100), 1.0))

	store := newMemStore()
	r := &Replayer{
		Ledger: l,
		Prices: samsungPrices(day(2025, time.January, 2), 5, 100),
		Store:  store,
		AsOf:   day(2025, time.January, 6),
	}

	if err := r.Rebuild(context.Background(), 1); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	snaps, err := store.Snapshots(context.Background(), 1, NewRange(day(2025, time.January, 1), day(2025, time.January, 31)))
	if err != nil {
		t.Fatalf("Snapshots() failed: %v", err)
	}
	if len(snaps) != 5 {
		t.Fatalf("stored %d snapshots, want 5", len(snaps))
	}
}

func TestReplayer_RebuildSurfacesTypedError(t *testing.T) {
	l := newTestLedger(t, samsung)
	mustAppend(t, l, NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(100), 1.0))

	store := newMemStore()
	store.failReplace = errors.New("disk full")
	r := &Replayer{
		Ledger: l,
		Prices: samsungPrices(day(2025, time.January, 2), 5, 100),
		Store:  store,
		AsOf:   day(2025, time.January, 6),
	}

	err := r.Rebuild(context.Background(), 1)
	var re *ReplayError
	if !errors.As(err, &re) {
		t.Fatalf("Rebuild() error = %v, want a *ReplayError", err)
	}
	if re.User != 1 || re.From != day(2025, time.January, 2) {
		t.Errorf("ReplayError = %+v, want user 1 from 2025-01-02", re)
	}
	if len(store.snaps[1]) != 0 {
		t.Error("failed replace must leave the store untouched")
	}
}

func TestReplayer_RebuildAll(t *testing.T) {
	ledgers := multiLedger{}
	for userID := int64(1); userID <= 5; userID++ {
		l := NewLedger(userID)
		if err := l.Declare(samsung); err != nil {
			t.Fatalf("Declare() failed: %v", err)
		}
		if err := l.Append(NewBuy(day(2025, time.January, 2), samsung.Ticker, float64(userID), KRW(100), 1.0)); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
		ledgers[userID] = l
	}

	store := newMemStore()
	r := &Replayer{
		Ledger:  ledgers,
		Prices:  samsungPrices(day(2025, time.January, 2), 5, 100),
		Store:   store,
		Workers: 2,
		AsOf:    day(2025, time.January, 6),
	}

	if err := r.RebuildAll(context.Background(), []int64{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("RebuildAll() failed: %v", err)
	}
	for userID := int64(1); userID <= 5; userID++ {
		if len(store.snaps[userID]) != 5 {
			t.Errorf("user %d: stored %d snapshots, want 5", userID, len(store.snaps[userID]))
		}
	}
}

func TestReplayer_RebuildAllJoinsFailures(t *testing.T) {
	ledgers := multiLedger{
		1: NewLedger(1),
		2: NewLedger(2),
	}
	for userID, l := range ledgers {
		if err := l.Declare(samsung); err != nil {
			t.Fatalf("Declare() failed: %v", err)
		}
		if err := l.Append(NewBuy(day(2025, time.January, 2), samsung.Ticker, 1, KRW(100), 1.0)); err != nil {
			t.Fatalf("Append() for user %d failed: %v", userID, err)
		}
	}

	store := newMemStore()
	store.failReplace = errors.New("disk full")
	r := &Replayer{
		Ledger: ledgers,
		Prices: samsungPrices(day(2025, time.January, 2), 5, 100),
		Store:  store,
		AsOf:   day(2025, time.January, 6),
	}

	err := r.RebuildAll(context.Background(), []int64{1, 2})
	if err == nil {
		t.Fatal("RebuildAll() = nil, want joined per-user errors")
	}
	var re *ReplayError
	if !errors.As(err, &re) {
		t.Errorf("joined error does not expose *ReplayError: %v", err)
	}
}

func TestReplayer_RecomputePosition(t *testing.T) {
	l := newTestLedger(t, samsung)
	mustAppend(t, l, NewBuy(day(2025, time.January, 2), samsung.Ticker, 10, KRW(100), 1.0))

	store := newMemStore()
	r := &Replayer{Ledger: l, Prices: newFakePrices(), Store: store}

	if err := r.RecomputePosition(context.Background(), 1, samsung.Ticker); err != nil {
		t.Fatalf("RecomputePosition() failed: %v", err)
	}
	positions, _ := store.Positions(context.Background(), 1)
	if len(positions) != 1 || !positions[0].Quantity.Equal(Q(10)) {
		t.Fatalf("stored positions = %+v, want one with quantity 10", positions)
	}

	// Closing the position must delete it, not zero it.
	mustAppend(t, l, NewSell(day(2025, time.January, 3), samsung.Ticker, 10, KRW(110), 1.0))
	if err := r.RecomputePosition(context.Background(), 1, samsung.Ticker); err != nil {
		t.Fatalf("RecomputePosition() after close failed: %v", err)
	}
	positions, _ = store.Positions(context.Background(), 1)
	if len(positions) != 0 {
		t.Errorf("stored positions after full close = %+v, want none", positions)
	}
}

func TestCachedPriceSource(t *testing.T) {
	prices := samsungPrices(day(2025, time.January, 2), 1, 100)
	cached := CachePrices(prices)

	for i := 0; i < 10; i++ {
		if _, ok, err := cached.CloseOn(samsung, day(2025, time.January, 2)); err != nil || !ok {
			t.Fatalf("CloseOn() = ok %v, err %v", ok, err)
		}
		// misses are memoized too
		if _, ok, _ := cached.CloseOn(samsung, day(2025, time.January, 1)); ok {
			t.Fatal("CloseOn() found a close that does not exist")
		}
		if _, err := cached.FXRate(day(2025, time.January, 2)); err != nil {
			t.Fatalf("FXRate() failed: %v", err)
		}
	}

	if prices.closeCalls != 2 {
		t.Errorf("underlying CloseOn called %d times, want 2", prices.closeCalls)
	}
	if prices.fxCalls != 1 {
		t.Errorf("underlying FXRate called %d times, want 1", prices.fxCalls)
	}
}
