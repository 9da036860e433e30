package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kwahn/stockfolio"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// SaveInstrument creates or updates an instrument.
func (s *DB) SaveInstrument(ctx context.Context, instr stockfolio.Instrument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO instruments (ticker, name, market, sector) VALUES (?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET name=excluded.name, market=excluded.market, sector=excluded.sector`,
		instr.Ticker, instr.Name, string(instr.Market), instr.Sector)
	if err != nil {
		return fmt.Errorf("saving instrument %s: %w", instr.Ticker, err)
	}
	return nil
}

// Instrument resolves a ticker. Part of stockfolio.LedgerReader.
func (s *DB) Instrument(ctx context.Context, ticker string) (stockfolio.Instrument, error) {
	var instr stockfolio.Instrument
	var market string
	err := s.db.QueryRowContext(ctx,
		`SELECT ticker, name, market, sector FROM instruments WHERE ticker = ?`, ticker).
		Scan(&instr.Ticker, &instr.Name, &market, &instr.Sector)
	if errors.Is(err, sql.ErrNoRows) {
		return stockfolio.Instrument{}, fmt.Errorf("instrument %q: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return stockfolio.Instrument{}, fmt.Errorf("loading instrument %s: %w", ticker, err)
	}
	instr.Market = stockfolio.Market(market)
	return instr, nil
}

// Instruments returns all known instruments, ordered by ticker.
func (s *DB) Instruments(ctx context.Context) ([]stockfolio.Instrument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ticker, name, market, sector FROM instruments ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("loading instruments: %w", err)
	}
	defer rows.Close()

	var out []stockfolio.Instrument
	for rows.Next() {
		var instr stockfolio.Instrument
		var market string
		if err := rows.Scan(&instr.Ticker, &instr.Name, &market, &instr.Sector); err != nil {
			return nil, err
		}
		instr.Market = stockfolio.Market(market)
		out = append(out, instr)
	}
	return out, rows.Err()
}

// AddTransaction validates and appends one transaction, returning its
// insertion-order id.
func (s *DB) AddTransaction(ctx context.Context, tx stockfolio.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, fmt.Errorf("rejecting transaction: %w", err)
	}
	instr, err := s.Instrument(ctx, tx.Ticker)
	if err != nil {
		return 0, fmt.Errorf("rejecting transaction: %w", err)
	}
	if tx.Price.Currency() != instr.Currency() {
		return 0, fmt.Errorf("rejecting transaction: %s trades in %s, got a price in %s",
			tx.Ticker, instr.Currency(), tx.Price.Currency())
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, ticker, kind, quantity, price, currency, fx_rate, fees, date, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.Ticker, string(tx.Kind),
		tx.Quantity.Value().String(), tx.Price.Amount().String(), tx.Price.Currency(),
		tx.FXRate.String(), tx.Fees.Amount().String(), tx.Date.String(), tx.Note)
	if err != nil {
		return 0, fmt.Errorf("saving transaction: %w", err)
	}
	return res.LastInsertId()
}

// DeleteTransaction removes one transaction.
func (s *DB) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction %d: %w", id, err)
	}
	return nil
}

// Transactions returns a user's history ordered by (date, id). Part of
// stockfolio.LedgerReader.
func (s *DB) Transactions(ctx context.Context, userID int64, ticker string) ([]stockfolio.Transaction, error) {
	query := `SELECT id, user_id, ticker, kind, quantity, price, currency, fx_rate, fees, date, note
		FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if ticker != "" {
		query += ` AND ticker = ?`
		args = append(args, ticker)
	}
	query += ` ORDER BY date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	defer rows.Close()

	var out []stockfolio.Transaction
	for rows.Next() {
		var tx stockfolio.Transaction
		var kind, quantity, price, currency, fxRate, fees, date string
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Ticker, &kind, &quantity, &price, &currency, &fxRate, &fees, &date, &tx.Note); err != nil {
			return nil, err
		}
		tx.Kind = stockfolio.TransactionKind(kind)
		q, err := parseAmount(quantity)
		if err != nil {
			return nil, err
		}
		tx.Quantity = stockfolio.Q(q)
		p, err := parseAmount(price)
		if err != nil {
			return nil, err
		}
		tx.Price = stockfolio.M(p, currency)
		if tx.FXRate, err = parseAmount(fxRate); err != nil {
			return nil, err
		}
		f, err := parseAmount(fees)
		if err != nil {
			return nil, err
		}
		tx.Fees = stockfolio.M(f, currency)
		if tx.Date, err = stockfolio.ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// AddDividend validates and appends one dividend receipt.
func (s *DB) AddDividend(ctx context.Context, d stockfolio.DividendReceipt) (int64, error) {
	if err := d.Validate(); err != nil {
		return 0, fmt.Errorf("rejecting dividend: %w", err)
	}
	instr, err := s.Instrument(ctx, d.Ticker)
	if err != nil {
		return 0, fmt.Errorf("rejecting dividend: %w", err)
	}
	if d.Amount.Currency() != instr.Currency() {
		return 0, fmt.Errorf("rejecting dividend: %s pays in %s, got %s",
			d.Ticker, instr.Currency(), d.Amount.Currency())
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO dividends (user_id, ticker, amount, tax, currency, date, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.UserID, d.Ticker, d.Amount.Amount().String(), d.Tax.Amount().String(),
		d.Amount.Currency(), d.Date.String(), d.Note)
	if err != nil {
		return 0, fmt.Errorf("saving dividend: %w", err)
	}
	return res.LastInsertId()
}

// Dividends returns a user's receipts ordered by (date, id). Part of
// stockfolio.LedgerReader.
func (s *DB) Dividends(ctx context.Context, userID int64, ticker string) ([]stockfolio.DividendReceipt, error) {
	query := `SELECT id, user_id, ticker, amount, tax, currency, date, note
		FROM dividends WHERE user_id = ?`
	args := []any{userID}
	if ticker != "" {
		query += ` AND ticker = ?`
		args = append(args, ticker)
	}
	query += ` ORDER BY date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading dividends: %w", err)
	}
	defer rows.Close()

	var out []stockfolio.DividendReceipt
	for rows.Next() {
		var d stockfolio.DividendReceipt
		var amount, tax, currency, date string
		if err := rows.Scan(&d.ID, &d.UserID, &d.Ticker, &amount, &tax, &currency, &date, &d.Note); err != nil {
			return nil, err
		}
		a, err := parseAmount(amount)
		if err != nil {
			return nil, err
		}
		d.Amount = stockfolio.M(a, currency)
		tv, err := parseAmount(tax)
		if err != nil {
			return nil, err
		}
		d.Tax = stockfolio.M(tv, currency)
		if d.Date, err = stockfolio.ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Users returns the distinct user ids present in the ledger.
func (s *DB) Users(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM transactions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
