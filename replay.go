package stockfolio

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sync"
)

// ReplayError reports a failed snapshot rebuild for one user. The store is
// left untouched for that user; the caller decides whether to retry.
type ReplayError struct {
	User int64
	From Date
	To   Date
	Err  error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replaying user %d (%s to %s): %v", e.User, e.From, e.To, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }

// defaultWorkers bounds concurrent per-user replays so a network-backed
// price source is not flooded.
const defaultWorkers = 4

// Replayer rebuilds derived state (positions, snapshots, instrument
// performance) from the ledger. Each user's replay is strictly sequential;
// Replayer only parallelizes across users.
type Replayer struct {
	Ledger LedgerReader
	Prices PriceSource
	Store  Store

	// Reporting is the reporting currency code, "KRW" when empty.
	Reporting string
	// Workers bounds RebuildAll's concurrency, defaultWorkers when 0.
	Workers int
	// AsOf caps the replay, today when zero. Set in tests.
	AsOf Date
}

func (r *Replayer) reporting() string {
	if r.Reporting == "" {
		return "KRW"
	}
	return r.Reporting
}

// Rebuild replays one user's full history and atomically replaces the stored
// snapshot and performance series. Failures leave the previous series intact
// and come back as a *ReplayError.
func (r *Replayer) Rebuild(ctx context.Context, userID int64) error {
	return r.rebuild(ctx, userID, CachePrices(r.Prices))
}

func (r *Replayer) rebuild(ctx context.Context, userID int64, prices PriceSource) error {
	asOf := r.AsOf
	if asOf.IsZero() {
		asOf = Today()
	}

	b := &Builder{Ledger: r.Ledger, Prices: prices, Reporting: r.reporting(), AsOf: asOf}
	snaps, perf, err := b.Build(ctx, userID)
	if err != nil {
		return &ReplayError{User: userID, To: asOf, Err: err}
	}
	if len(snaps) == 0 {
		return nil // no history, nothing to replace
	}

	rng := NewRange(snaps[0].Date, asOf)
	if err := r.Store.ReplaceSnapshots(ctx, userID, rng, snaps, perf); err != nil {
		return &ReplayError{User: userID, From: rng.From, To: rng.To, Err: err}
	}
	log.Printf("replayed user %d: %d snapshots, %d performance rows (%s to %s)",
		userID, len(snaps), len(perf), rng.From, rng.To)
	return nil
}

// RebuildAll fans the rebuild out across users through a bounded worker
// pool, sharing one price cache for the run. Per-user failures do not stop
// the others; they are joined into the returned error.
func (r *Replayer) RebuildAll(ctx context.Context, userIDs []int64) error {
	workers := r.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	prices := CachePrices(r.Prices)

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errs := make([]error, len(userIDs))

	for i, userID := range userIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = r.rebuild(ctx, userID, prices)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// positionLocks serializes recomputation per (user, instrument) so two
// concurrent ledger mutations on the same position cannot interleave their
// read-replay-write cycles.
var positionLocks [64]sync.Mutex

func positionLock(userID int64, ticker string) *sync.Mutex {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d/%s", userID, ticker)
	return &positionLocks[h.Sum32()%uint32(len(positionLocks))]
}

// RecomputePosition replays one (user, instrument) history and stores the
// result: an upsert while shares remain, a delete once the position is fully
// closed. Call it after any transaction or dividend mutation.
func (r *Replayer) RecomputePosition(ctx context.Context, userID int64, ticker string) error {
	mu := positionLock(userID, ticker)
	mu.Lock()
	defer mu.Unlock()

	instr, err := r.Ledger.Instrument(ctx, ticker)
	if err != nil {
		return fmt.Errorf("recomputing position %d/%s: %w", userID, ticker, err)
	}
	txs, err := r.Ledger.Transactions(ctx, userID, ticker)
	if err != nil {
		return fmt.Errorf("recomputing position %d/%s: %w", userID, ticker, err)
	}
	divs, err := r.Ledger.Dividends(ctx, userID, ticker)
	if err != nil {
		return fmt.Errorf("recomputing position %d/%s: %w", userID, ticker, err)
	}
	SortTransactions(txs)
	SortDividends(divs)

	pos := ComputePosition(instr, r.reporting(), txs, divs)
	if pos == nil {
		if err := r.Store.DeletePosition(ctx, userID, ticker); err != nil {
			return fmt.Errorf("deleting position %d/%s: %w", userID, ticker, err)
		}
		return nil
	}
	pos.UserID = userID
	if err := r.Store.UpsertPosition(ctx, *pos); err != nil {
		return fmt.Errorf("storing position %d/%s: %w", userID, ticker, err)
	}
	return nil
}

// RecomputePositions recomputes every instrument a user has ever traded.
func (r *Replayer) RecomputePositions(ctx context.Context, userID int64) error {
	txs, err := r.Ledger.Transactions(ctx, userID, "")
	if err != nil {
		return fmt.Errorf("recomputing positions for user %d: %w", userID, err)
	}
	seen := map[string]bool{}
	for _, tx := range txs {
		if seen[tx.Ticker] {
			continue
		}
		seen[tx.Ticker] = true
		if err := r.RecomputePosition(ctx, userID, tx.Ticker); err != nil {
			return err
		}
	}
	return nil
}
