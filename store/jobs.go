package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kwahn/stockfolio/batch"
)

// RecordRun creates or updates one job run record. Implements batch.Recorder.
func (s *DB) RecordRun(ctx context.Context, run batch.Run) error {
	var finished any
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, name, status, started_at, finished_at, records, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status, finished_at=excluded.finished_at,
			records=excluded.records, error=excluded.error`,
		run.ID, run.Name, string(run.Status),
		run.StartedAt.UTC().Format(time.RFC3339), finished, run.Records, run.Error)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// Runs returns the most recent job runs, newest first.
func (s *DB) Runs(ctx context.Context, limit int) ([]batch.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, status, started_at, finished_at, records, error
		FROM job_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("loading job runs: %w", err)
	}
	defer rows.Close()

	var out []batch.Run
	for rows.Next() {
		var run batch.Run
		var status, started string
		var finished sql.NullString
		if err := rows.Scan(&run.ID, &run.Name, &status, &started, &finished, &run.Records, &run.Error); err != nil {
			return nil, err
		}
		run.Status = batch.Status(status)
		if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("corrupt run %s: %w", run.ID, err)
		}
		if finished.Valid {
			if run.FinishedAt, err = time.Parse(time.RFC3339, finished.String); err != nil {
				return nil, fmt.Errorf("corrupt run %s: %w", run.ID, err)
			}
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
