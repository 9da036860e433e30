package store

import (
	"context"
	"fmt"

	"github.com/kwahn/stockfolio"
)

// UpsertPosition creates or overwrites one (user, instrument) position.
func (s *DB) UpsertPosition(ctx context.Context, pos stockfolio.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (user_id, ticker, market, quantity, avg_cost, currency, avg_fx_rate, invested, realized_gain, dividends, reporting)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, ticker) DO UPDATE SET
			market=excluded.market, quantity=excluded.quantity, avg_cost=excluded.avg_cost,
			currency=excluded.currency, avg_fx_rate=excluded.avg_fx_rate, invested=excluded.invested,
			realized_gain=excluded.realized_gain, dividends=excluded.dividends, reporting=excluded.reporting`,
		pos.UserID, pos.Ticker, string(pos.Market),
		pos.Quantity.Value().String(), pos.AverageCost.Amount().String(), pos.AverageCost.Currency(),
		pos.AverageFXRate.String(), pos.TotalInvested.Amount().String(),
		pos.RealizedGain.Amount().String(), pos.Dividends.Amount().String(),
		pos.TotalInvested.Currency())
	if err != nil {
		return fmt.Errorf("storing position %d/%s: %w", pos.UserID, pos.Ticker, err)
	}
	return nil
}

// DeletePosition removes a position. Deleting a missing position is not an
// error.
func (s *DB) DeletePosition(ctx context.Context, userID int64, ticker string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE user_id = ? AND ticker = ?`, userID, ticker)
	if err != nil {
		return fmt.Errorf("deleting position %d/%s: %w", userID, ticker, err)
	}
	return nil
}

// Positions returns a user's stored positions ordered by ticker.
func (s *DB) Positions(ctx context.Context, userID int64) ([]stockfolio.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, ticker, market, quantity, avg_cost, currency, avg_fx_rate, invested, realized_gain, dividends, reporting
		FROM positions WHERE user_id = ? ORDER BY ticker`, userID)
	if err != nil {
		return nil, fmt.Errorf("loading positions: %w", err)
	}
	defer rows.Close()

	var out []stockfolio.Position
	for rows.Next() {
		var pos stockfolio.Position
		var market, quantity, avgCost, currency, fxRate, invested, realized, dividends, reporting string
		if err := rows.Scan(&pos.UserID, &pos.Ticker, &market, &quantity, &avgCost, &currency,
			&fxRate, &invested, &realized, &dividends, &reporting); err != nil {
			return nil, err
		}
		pos.Market = stockfolio.Market(market)
		q, err := parseAmount(quantity)
		if err != nil {
			return nil, err
		}
		pos.Quantity = stockfolio.Q(q)
		ac, err := parseAmount(avgCost)
		if err != nil {
			return nil, err
		}
		pos.AverageCost = stockfolio.M(ac, currency)
		if pos.AverageFXRate, err = parseAmount(fxRate); err != nil {
			return nil, err
		}
		iv, err := parseAmount(invested)
		if err != nil {
			return nil, err
		}
		pos.TotalInvested = stockfolio.M(iv, reporting)
		rg, err := parseAmount(realized)
		if err != nil {
			return nil, err
		}
		pos.RealizedGain = stockfolio.M(rg, reporting)
		dv, err := parseAmount(dividends)
		if err != nil {
			return nil, err
		}
		pos.Dividends = stockfolio.M(dv, currency)
		out = append(out, pos)
	}
	return out, rows.Err()
}

// ReplaceSnapshots atomically swaps a user's snapshot and performance series
// within the range with the rebuilt one. The delete and all inserts run in a
// single SQLite transaction, so a failure leaves the previous series intact.
func (s *DB) ReplaceSnapshots(ctx context.Context, userID int64, rng stockfolio.Range, snaps []stockfolio.DailySnapshot, perf []stockfolio.InstrumentPerformance) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replacing snapshots for user %d: %w", userID, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	from, to := rng.From.String(), rng.To.String()
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE user_id = ? AND date BETWEEN ? AND ?`, userID, from, to); err != nil {
		return fmt.Errorf("clearing snapshots for user %d: %w", userID, err)
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM instrument_performance WHERE user_id = ? AND date BETWEEN ? AND ?`, userID, from, to); err != nil {
		return fmt.Errorf("clearing performance for user %d: %w", userID, err)
	}

	snapStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshots (user_id, date, total_value, kr_value, us_value_usd, us_value, invested, dividends, day_pnl, day_pnl_pct, cum_return, cum_return_pct, fx_rate, reporting)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer snapStmt.Close()

	for _, snap := range snaps {
		if _, err = snapStmt.ExecContext(ctx,
			snap.UserID, snap.Date.String(),
			snap.TotalValue.Amount().String(), snap.KRValue.Amount().String(),
			snap.USValueUSD.Amount().String(), snap.USValue.Amount().String(),
			snap.Invested.Amount().String(), snap.Dividends.Amount().String(),
			snap.DayPnL.Amount().String(), float64(snap.DayPnLPercent),
			snap.CumulativeReturn.Amount().String(), float64(snap.CumulativeReturnPercent),
			snap.FXRate.String(), snap.TotalValue.Currency()); err != nil {
			return fmt.Errorf("storing snapshot %d/%s: %w", snap.UserID, snap.Date, err)
		}
	}

	perfStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO instrument_performance (user_id, ticker, date, quantity, close, prev_close, day_pnl, day_pnl_pct, value, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer perfStmt.Close()

	for _, p := range perf {
		if _, err = perfStmt.ExecContext(ctx,
			p.UserID, p.Ticker, p.Date.String(),
			p.Quantity.Value().String(), p.Close.Amount().String(), p.PrevClose.Amount().String(),
			p.DayPnL.Amount().String(), float64(p.DayPnLPercent),
			p.Value.Amount().String(), p.Close.Currency()); err != nil {
			return fmt.Errorf("storing performance %d/%s/%s: %w", p.UserID, p.Ticker, p.Date, err)
		}
	}

	return tx.Commit()
}

// Snapshots returns a user's snapshots within the range, ordered by date.
func (s *DB) Snapshots(ctx context.Context, userID int64, rng stockfolio.Range) ([]stockfolio.DailySnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, date, total_value, kr_value, us_value_usd, us_value, invested, dividends, day_pnl, day_pnl_pct, cum_return, cum_return_pct, fx_rate, reporting
		FROM snapshots WHERE user_id = ? AND date BETWEEN ? AND ? ORDER BY date`,
		userID, rng.From.String(), rng.To.String())
	if err != nil {
		return nil, fmt.Errorf("loading snapshots: %w", err)
	}
	defer rows.Close()

	var out []stockfolio.DailySnapshot
	for rows.Next() {
		var snap stockfolio.DailySnapshot
		var date, total, kr, usUSD, us, invested, dividends, dayPnL, cumReturn, fxRate, reporting string
		var dayPct, cumPct float64
		if err := rows.Scan(&snap.UserID, &date, &total, &kr, &usUSD, &us, &invested, &dividends,
			&dayPnL, &dayPct, &cumReturn, &cumPct, &fxRate, &reporting); err != nil {
			return nil, err
		}
		if snap.Date, err = stockfolio.ParseDate(date); err != nil {
			return nil, err
		}
		for _, f := range []struct {
			raw string
			dst *stockfolio.Money
			cur string
		}{
			{total, &snap.TotalValue, reporting},
			{kr, &snap.KRValue, reporting},
			{usUSD, &snap.USValueUSD, "USD"},
			{us, &snap.USValue, reporting},
			{invested, &snap.Invested, reporting},
			{dividends, &snap.Dividends, reporting},
			{dayPnL, &snap.DayPnL, reporting},
			{cumReturn, &snap.CumulativeReturn, reporting},
		} {
			d, err := parseAmount(f.raw)
			if err != nil {
				return nil, err
			}
			*f.dst = stockfolio.M(d, f.cur)
		}
		if snap.FXRate, err = parseAmount(fxRate); err != nil {
			return nil, err
		}
		snap.DayPnLPercent = stockfolio.Percent(dayPct)
		snap.CumulativeReturnPercent = stockfolio.Percent(cumPct)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Performance returns per-instrument daily rows within the range, ordered by
// (date, ticker). An empty ticker means all instruments.
func (s *DB) Performance(ctx context.Context, userID int64, ticker string, rng stockfolio.Range) ([]stockfolio.InstrumentPerformance, error) {
	query := `SELECT user_id, ticker, date, quantity, close, prev_close, day_pnl, day_pnl_pct, value, currency
		FROM instrument_performance WHERE user_id = ? AND date BETWEEN ? AND ?`
	args := []any{userID, rng.From.String(), rng.To.String()}
	if ticker != "" {
		query += ` AND ticker = ?`
		args = append(args, ticker)
	}
	query += ` ORDER BY date, ticker`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading performance: %w", err)
	}
	defer rows.Close()

	var out []stockfolio.InstrumentPerformance
	for rows.Next() {
		var p stockfolio.InstrumentPerformance
		var date, quantity, close, prevClose, dayPnL, value, currency string
		var dayPct float64
		if err := rows.Scan(&p.UserID, &p.Ticker, &date, &quantity, &close, &prevClose, &dayPnL, &dayPct, &value, &currency); err != nil {
			return nil, err
		}
		if p.Date, err = stockfolio.ParseDate(date); err != nil {
			return nil, err
		}
		q, err := parseAmount(quantity)
		if err != nil {
			return nil, err
		}
		p.Quantity = stockfolio.Q(q)
		for _, f := range []struct {
			raw string
			dst *stockfolio.Money
		}{
			{close, &p.Close}, {prevClose, &p.PrevClose}, {dayPnL, &p.DayPnL}, {value, &p.Value},
		} {
			d, err := parseAmount(f.raw)
			if err != nil {
				return nil, err
			}
			*f.dst = stockfolio.M(d, currency)
		}
		p.DayPnLPercent = stockfolio.Percent(dayPct)
		out = append(out, p)
	}
	return out, rows.Err()
}
