package stockfolio

import "context"

// Store persists the derived entities: positions, snapshots and per-
// instrument performance. The engine only ever overwrites derived state,
// never edits it in place, so the contract is upsert/delete/replace.
type Store interface {
	// UpsertPosition creates or overwrites one (user, instrument) position.
	UpsertPosition(ctx context.Context, pos Position) error
	// DeletePosition removes a position. Deleting a missing position is not
	// an error.
	DeletePosition(ctx context.Context, userID int64, ticker string) error
	// Positions returns a user's stored positions.
	Positions(ctx context.Context, userID int64) ([]Position, error)

	// ReplaceSnapshots atomically swaps a user's snapshot and performance
	// series for a date range with the rebuilt one. On error the previously
	// stored series must remain intact.
	ReplaceSnapshots(ctx context.Context, userID int64, rng Range, snaps []DailySnapshot, perf []InstrumentPerformance) error
	// Snapshots returns a user's snapshots within a range, ordered by date.
	Snapshots(ctx context.Context, userID int64, rng Range) ([]DailySnapshot, error)
	// Performance returns per-instrument daily rows within a range, ordered
	// by (date, ticker). An empty ticker means all instruments.
	Performance(ctx context.Context, userID int64, ticker string, rng Range) ([]InstrumentPerformance, error)
}
