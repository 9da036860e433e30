// Package store persists the ledger and its derived entities in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the SQLite-backed store. It persists the append-only ledger
// (instruments, transactions, dividends), the derived entities (positions,
// snapshots, per-instrument performance), the price history the valuation
// reads from, and batch job run records.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[store] opened database at %s", path)
	return &DB{db: db}, nil
}

// Close closes the database.
func (s *DB) Close() error { return s.db.Close() }

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS instruments (
			ticker  TEXT PRIMARY KEY,
			name    TEXT NOT NULL,
			market  TEXT NOT NULL,
			sector  TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS transactions (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id  INTEGER NOT NULL,
			ticker   TEXT    NOT NULL REFERENCES instruments(ticker),
			kind     TEXT    NOT NULL,
			quantity TEXT    NOT NULL,
			price    TEXT    NOT NULL,
			currency TEXT    NOT NULL,
			fx_rate  TEXT    NOT NULL,
			fees     TEXT    NOT NULL,
			date     TEXT    NOT NULL,
			note     TEXT    NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, ticker, date);

		CREATE TABLE IF NOT EXISTS dividends (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id  INTEGER NOT NULL,
			ticker   TEXT    NOT NULL REFERENCES instruments(ticker),
			amount   TEXT    NOT NULL,
			tax      TEXT    NOT NULL,
			currency TEXT    NOT NULL,
			date     TEXT    NOT NULL,
			note     TEXT    NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_dividends_user ON dividends(user_id, ticker, date);

		CREATE TABLE IF NOT EXISTS positions (
			user_id       INTEGER NOT NULL,
			ticker        TEXT    NOT NULL,
			market        TEXT    NOT NULL,
			quantity      TEXT    NOT NULL,
			avg_cost      TEXT    NOT NULL,
			currency      TEXT    NOT NULL,
			avg_fx_rate   TEXT    NOT NULL,
			invested      TEXT    NOT NULL,
			realized_gain TEXT    NOT NULL,
			dividends     TEXT    NOT NULL,
			reporting     TEXT    NOT NULL,
			PRIMARY KEY (user_id, ticker)
		);

		CREATE TABLE IF NOT EXISTS snapshots (
			user_id        INTEGER NOT NULL,
			date           TEXT    NOT NULL,
			total_value    TEXT    NOT NULL,
			kr_value       TEXT    NOT NULL,
			us_value_usd   TEXT    NOT NULL,
			us_value       TEXT    NOT NULL,
			invested       TEXT    NOT NULL,
			dividends      TEXT    NOT NULL,
			day_pnl        TEXT    NOT NULL,
			day_pnl_pct    REAL    NOT NULL,
			cum_return     TEXT    NOT NULL,
			cum_return_pct REAL    NOT NULL,
			fx_rate        TEXT    NOT NULL,
			reporting      TEXT    NOT NULL,
			PRIMARY KEY (user_id, date)
		);

		CREATE TABLE IF NOT EXISTS instrument_performance (
			user_id     INTEGER NOT NULL,
			ticker      TEXT    NOT NULL,
			date        TEXT    NOT NULL,
			quantity    TEXT    NOT NULL,
			close       TEXT    NOT NULL,
			prev_close  TEXT    NOT NULL,
			day_pnl     TEXT    NOT NULL,
			day_pnl_pct REAL    NOT NULL,
			value       TEXT    NOT NULL,
			currency    TEXT    NOT NULL,
			PRIMARY KEY (user_id, ticker, date)
		);

		CREATE TABLE IF NOT EXISTS prices (
			ticker   TEXT NOT NULL,
			date     TEXT NOT NULL,
			close    TEXT NOT NULL,
			currency TEXT NOT NULL,
			PRIMARY KEY (ticker, date)
		);

		CREATE TABLE IF NOT EXISTS fx_rates (
			date TEXT PRIMARY KEY,
			rate TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS job_runs (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			status      TEXT NOT NULL,
			started_at  TEXT NOT NULL,
			finished_at TEXT,
			records     INTEGER NOT NULL DEFAULT 0,
			error       TEXT NOT NULL DEFAULT ''
		);
	`)
	return err
}

// parseAmount reads a decimal stored as TEXT. Amounts are stored as decimal
// strings, not floats, so a replayed series reads back bit-identical.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("corrupt amount %q: %w", s, err)
	}
	return d, nil
}
