package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kwahn/stockfolio"
	"github.com/shopspring/decimal"
)

// UpsertClose records one daily close. Providers backfill this table; the
// valuation engine only ever reads it.
func (s *DB) UpsertClose(ctx context.Context, ticker string, on stockfolio.Date, close stockfolio.Money) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prices (ticker, date, close, currency) VALUES (?, ?, ?, ?)
		ON CONFLICT(ticker, date) DO UPDATE SET close=excluded.close, currency=excluded.currency`,
		ticker, on.String(), close.Amount().String(), close.Currency())
	if err != nil {
		return fmt.Errorf("storing close %s/%s: %w", ticker, on, err)
	}
	return nil
}

// LastCloseDate returns the most recent date with a recorded close for a
// ticker, or a zero date when none exists. Backfill jobs resume from here.
func (s *DB) LastCloseDate(ctx context.Context, ticker string) (stockfolio.Date, error) {
	var date sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(date) FROM prices WHERE ticker = ?`, ticker).Scan(&date)
	if err != nil {
		return stockfolio.Date{}, fmt.Errorf("last close date of %s: %w", ticker, err)
	}
	if !date.Valid {
		return stockfolio.Date{}, nil
	}
	return stockfolio.ParseDate(date.String)
}

// CloseOn returns the recorded close for an exact date. Part of
// stockfolio.PriceSource; the engine applies its own lookback fallback.
func (s *DB) CloseOn(instr stockfolio.Instrument, on stockfolio.Date) (stockfolio.Money, bool, error) {
	var close, currency string
	err := s.db.QueryRow(
		`SELECT close, currency FROM prices WHERE ticker = ? AND date = ?`,
		instr.Ticker, on.String()).Scan(&close, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return stockfolio.Money{}, false, nil
	}
	if err != nil {
		return stockfolio.Money{}, false, fmt.Errorf("close of %s on %s: %w", instr.Ticker, on, err)
	}
	d, err := parseAmount(close)
	if err != nil {
		return stockfolio.Money{}, false, err
	}
	return stockfolio.M(d, currency), true, nil
}

// UpsertFXRate records the USD rate for one date.
func (s *DB) UpsertFXRate(ctx context.Context, on stockfolio.Date, rate decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fx_rates (date, rate) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET rate=excluded.rate`,
		on.String(), rate.String())
	if err != nil {
		return fmt.Errorf("storing fx rate on %s: %w", on, err)
	}
	return nil
}

// FXRate returns the USD rate applicable on a date: the most recent recorded
// rate on or before it, else the earliest recorded rate. With no historical
// rates at all the valuation degrades to whatever single rate was last
// backfilled, which is the documented degraded mode. Part of
// stockfolio.PriceSource.
func (s *DB) FXRate(on stockfolio.Date) (decimal.Decimal, error) {
	var rate string
	err := s.db.QueryRow(
		`SELECT rate FROM fx_rates WHERE date <= ? ORDER BY date DESC LIMIT 1`, on.String()).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.QueryRow(`SELECT rate FROM fx_rates ORDER BY date LIMIT 1`).Scan(&rate)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Decimal{}, fmt.Errorf("fx rate on %s: no rates recorded", on)
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fx rate on %s: %w", on, err)
	}
	return parseAmount(rate)
}
